package ports

import (
	"context"

	"github.com/propspace/marketplace/internal/core/domain"
)

// EventPublisher delivers an encoded event to the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}

// ProfileEventSink accepts profile events for asynchronous delivery.
type ProfileEventSink interface {
	Enqueue(event domain.ProfileEvent)
}
