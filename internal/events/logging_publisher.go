package events

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
)

// LoggingPublisher writes events to the log instead of a broker. It is used
// when no Kafka brokers are configured.
type LoggingPublisher struct {
	logger zerolog.Logger
}

func NewLoggingPublisher(logger zerolog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(_ context.Context, eventType, key string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	p.logger.Debug().
		Str("event_type", eventType).
		Str("key", key).
		RawJSON("payload", raw).
		Msg("event published")
	return nil
}

func (p *LoggingPublisher) Close() error { return nil }
