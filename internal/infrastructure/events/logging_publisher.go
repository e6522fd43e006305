package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LoggingPublisher is used when no brokers are configured. It only records
// that an event would have been published.
type LoggingPublisher struct {
	log zerolog.Logger
}

func NewLoggingPublisher(log zerolog.Logger) *LoggingPublisher {
	return &LoggingPublisher{log: log}
}

func (p *LoggingPublisher) Publish(_ context.Context, eventType string, payload []byte, partitionKey string) error {
	p.log.Debug().
		Str("event_type", eventType).
		Str("partition_key", partitionKey).
		Int("payload_bytes", len(payload)).
		Msg("event published")
	return nil
}
