package config

import "time"

const (
	// MaxCommentLength is the maximum stored length of a comment message.
	// Longer messages are truncated, not rejected, so imports of legacy
	// documents with oversized comments never fail.
	MaxCommentLength = 1500

	// MaxCommentsPerRevision caps the comment list held by a single
	// revision. Adding beyond the cap is a capacity error.
	MaxCommentsPerRevision = 1000

	// DefaultLockLifetime is how long an edit lock is honored before it is
	// treated as expired and lazily cleared.
	DefaultLockLifetime = 60 * time.Minute

	// MaxDocumentTitleLength is the maximum length for document titles.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxDocumentTitleLength = 255

	// MaxTagLabelLength bounds annotation labels and sublabels.
	MaxTagLabelLength = 255

	// MaxSentenceLength bounds a single sentence's plain text. Ingestion
	// splits anything longer upstream; this is a persistence guard.
	MaxSentenceLength = 10000

	// DigestCacheTTL is the lifetime of the redis-cached document digest.
	// Short on purpose: the digest is cheap to rebuild from the analysis
	// cache and every mutation invalidates it explicitly anyway.
	DigestCacheTTL = 5 * time.Minute
)
