package sse

import (
	"log/slog"
	"time"
)

// PingWriter writes a single keep-alive ping to a change feed client.
// Separate from the feed itself so heartbeat behavior is testable without a
// live HTTP connection.
type PingWriter interface {
	// WritePing emits one ping. An error means the client is gone.
	WritePing() error
}

// Heartbeat keeps a document change feed alive through proxies that drop
// idle connections. A feed goes quiet whenever nobody is editing the
// document, so without pings long-lived subscriptions would be cut.
type Heartbeat struct {
	interval time.Duration
	done     chan struct{}
}

// NewHeartbeat creates a heartbeat that pings at the given interval.
func NewHeartbeat(interval time.Duration) *Heartbeat {
	return &Heartbeat{
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start pings the feed until Stop is called or a write fails. The returned
// channel closes when the heartbeat terminates, which the feed loop treats
// as the client having disconnected.
func (h *Heartbeat) Start(writer PingWriter, logger *slog.Logger) <-chan struct{} {
	ticker := time.NewTicker(h.interval)
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := writer.WritePing(); err != nil {
					logger.Warn("change feed ping failed, closing",
						"error", err,
					)
					return
				}
			case <-h.done:
				return
			}
		}
	}()

	return stopped
}

// Stop ends the heartbeat. Safe to call more than once.
func (h *Heartbeat) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}
