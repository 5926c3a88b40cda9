package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/synapse-flow/synapse/pkg/events"
)

// LocalLogSink records events to the structured log instead of the broker.
// It backs degraded mode: events dropped from the broker path stay observable
// for later audit. Publish never fails.
type LocalLogSink struct {
	logger *slog.Logger
}

func NewLocalLogSink(logger *slog.Logger) *LocalLogSink {
	return &LocalLogSink{logger: logger.With("sink", "local")}
}

func (s *LocalLogSink) Publish(ctx context.Context, topic string, key string, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.WarnContext(ctx, "Event logged without payload",
			"topic", topic,
			"key", key,
			"event_type", event.GetType(),
			"error", err)

		return nil
	}

	s.logger.WarnContext(ctx, "Event logged locally, broker unavailable",
		"topic", topic,
		"key", key,
		"event_type", event.GetType(),
		"event", string(payload))

	return nil
}

func (s *LocalLogSink) Close() error {
	return nil
}
