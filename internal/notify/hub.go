// Package notify delivers change events to document watchers. The Hub is an
// in-process fan-out: subscribers register a channel per document and every
// published event is offered to each of them without blocking the publisher.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"redline/internal/domain/models"
)

const subscriberBuffer = 16

// Hub is an in-memory Notifier with per-document subscriber lists.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[chan models.ChangeEvent]struct{}
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[chan models.ChangeEvent]struct{}),
		logger: logger,
	}
}

// Subscribe registers a watcher for a document and returns the event channel
// together with a cancel function. The channel is closed on cancel.
func (h *Hub) Subscribe(documentID string) (<-chan models.ChangeEvent, func()) {
	ch := make(chan models.ChangeEvent, subscriberBuffer)

	h.mu.Lock()
	group, ok := h.subs[documentID]
	if !ok {
		group = make(map[chan models.ChangeEvent]struct{})
		h.subs[documentID] = group
	}
	group[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if group, ok := h.subs[documentID]; ok {
				delete(group, ch)
				if len(group) == 0 {
					delete(h.subs, documentID)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}

	return ch, cancel
}

// Publish offers the event to every subscriber of its document. A subscriber
// whose buffer is full misses the event; slow consumers never block a
// mutation.
func (h *Hub) Publish(ctx context.Context, event models.ChangeEvent) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	h.mu.RLock()
	group := h.subs[event.DocumentID]
	targets := make([]chan models.ChangeEvent, 0, len(group))
	for ch := range group {
		targets = append(targets, ch)
	}
	h.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- event:
		default:
			h.logger.Warn("dropping change event for slow subscriber",
				"document_id", event.DocumentID,
				"kind", event.Kind)
		}
	}
}

// SubscriberCount reports how many watchers a document currently has.
func (h *Hub) SubscriberCount(documentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[documentID])
}
