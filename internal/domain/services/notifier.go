package services

import (
	"context"

	"redline/internal/domain/models"
)

// Notifier is the notification transport contract: fire-and-forget delivery
// of change events to whoever is watching a document. Publish never blocks
// the mutation path and its outcome is never consumed.
type Notifier interface {
	Publish(ctx context.Context, event models.ChangeEvent)
}
