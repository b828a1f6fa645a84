package sse

import (
	"fmt"
	"net/http"
)

// FeedWriter writes keep-alive pings onto a document change feed as SSE
// comment lines, which clients discard.
type FeedWriter struct {
	w          http.ResponseWriter
	flusher    http.Flusher
	documentID string
}

// NewFeedWriter creates a ping writer for one document's feed.
func NewFeedWriter(w http.ResponseWriter, flusher http.Flusher, documentID string) *FeedWriter {
	return &FeedWriter{
		w:          w,
		flusher:    flusher,
		documentID: documentID,
	}
}

// WritePing writes an SSE comment (: keepalive\n\n) and flushes.
func (f *FeedWriter) WritePing() error {
	// Lines starting with : are comments the client ignores.
	if _, err := fmt.Fprintf(f.w, ": keepalive\n\n"); err != nil {
		return fmt.Errorf("feed ping for document %s: %w", f.documentID, err)
	}

	f.flusher.Flush()

	// Zero-byte write to surface a closed connection.
	if _, err := f.w.Write([]byte{}); err != nil {
		return fmt.Errorf("feed closed for document %s: %w", f.documentID, err)
	}

	return nil
}
