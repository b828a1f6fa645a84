package notify

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"redline/internal/domain/models"
)

func testHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPublishReachesSubscribers(t *testing.T) {
	hub := testHub()
	ch1, cancel1 := hub.Subscribe("doc-1")
	defer cancel1()
	ch2, cancel2 := hub.Subscribe("doc-1")
	defer cancel2()
	other, cancelOther := hub.Subscribe("doc-2")
	defer cancelOther()

	hub.Publish(context.Background(), models.ChangeEvent{
		Kind:       models.ChangeEdited,
		DocumentID: "doc-1",
		Index:      3,
		User:       "alice",
	})

	for i, ch := range []<-chan models.ChangeEvent{ch1, ch2} {
		select {
		case e := <-ch:
			if e.Kind != models.ChangeEdited || e.Index != 3 {
				t.Errorf("subscriber %d got %+v", i, e)
			}
			if e.At.IsZero() {
				t.Errorf("publish must stamp the event time")
			}
		default:
			t.Errorf("subscriber %d got nothing", i)
		}
	}
	select {
	case e := <-other:
		t.Errorf("doc-2 watcher got doc-1's event: %+v", e)
	default:
	}
}

func TestCancelClosesChannel(t *testing.T) {
	hub := testHub()
	ch, cancel := hub.Subscribe("doc-1")

	if got := hub.SubscriberCount("doc-1"); got != 1 {
		t.Fatalf("subscribers = %d", got)
	}
	cancel()
	cancel() // safe to call twice

	if got := hub.SubscriberCount("doc-1"); got != 0 {
		t.Errorf("subscribers after cancel = %d", got)
	}
	if _, open := <-ch; open {
		t.Errorf("channel still open after cancel")
	}

	// Publishing to a document with no watchers is a no-op.
	hub.Publish(context.Background(), models.ChangeEvent{Kind: models.ChangeLocked, DocumentID: "doc-1"})
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	hub := testHub()
	ch, cancel := hub.Subscribe("doc-1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Overflow the buffer without draining; publishes must all return.
		for i := 0; i < subscriberBuffer+10; i++ {
			hub.Publish(context.Background(), models.ChangeEvent{
				Kind:       models.ChangeCommented,
				DocumentID: "doc-1",
			})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publisher blocked on a slow subscriber")
	}
	if got := len(ch); got != subscriberBuffer {
		t.Errorf("buffered events = %d, want %d", got, subscriberBuffer)
	}
}

func TestEventTimePreserved(t *testing.T) {
	hub := testHub()
	ch, cancel := hub.Subscribe("doc-1")
	defer cancel()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	hub.Publish(context.Background(), models.ChangeEvent{
		Kind:       models.ChangeAnalyzed,
		DocumentID: "doc-1",
		Index:      -1,
		At:         at,
	})

	e := <-ch
	if !e.At.Equal(at) {
		t.Errorf("event time = %v, want %v", e.At, at)
	}
}
