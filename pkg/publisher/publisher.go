// Package publisher turns workflow lifecycle transitions into broker events.
// Publishing never fails the triggering business operation: on any delivery
// error the event falls back to the local log sink for later audit.
package publisher

import (
	"context"
	"log/slog"

	"github.com/synapse-flow/synapse/pkg/eventbus"
	"github.com/synapse-flow/synapse/pkg/events"
)

type Publisher struct {
	sink     eventbus.EventSink
	fallback *eventbus.LocalLogSink
	logger   *slog.Logger
}

// New creates a publisher delivering through sink. A nil sink runs the
// publisher in degraded mode from the start, logging every event locally.
func New(sink eventbus.EventSink, logger *slog.Logger) *Publisher {
	return &Publisher{
		sink:     sink,
		fallback: eventbus.NewLocalLogSink(logger),
		logger:   logger,
	}
}

// Publish delivers a lifecycle event keyed by workflow id. Delivery failures
// are logged and the event is recorded locally; the caller is never blocked.
func (p *Publisher) Publish(ctx context.Context, event events.Event) {
	p.publish(ctx, events.WorkflowEventsTopic, event)
}

// PublishTestMessage sends a diagnostic message on the test topic, keyed by
// user id or "anonymous".
func (p *Publisher) PublishTestMessage(ctx context.Context, message, userID string) {
	p.publish(ctx, events.TestEventsTopic, events.NewTestMessage(message, userID))
}

func (p *Publisher) publish(ctx context.Context, topic string, event events.Event) {
	if p.sink != nil {
		err := p.sink.Publish(ctx, topic, event.Key(), event)
		if err == nil {
			p.logger.DebugContext(ctx, "Event published",
				"topic", topic,
				"event_type", event.GetType(),
				"key", event.Key())

			return
		}

		p.logger.WarnContext(ctx, "Broker unavailable, event logged only",
			"topic", topic,
			"event_type", event.GetType(),
			"key", event.Key(),
			"error", err)
	}

	_ = p.fallback.Publish(ctx, topic, event.Key(), event)
}

// PublishWorkflowCreated reports a newly created workflow.
func (p *Publisher) PublishWorkflowCreated(ctx context.Context, workflowID, userID, name, description string) {
	p.Publish(ctx, events.NewWorkflowCreated(workflowID, userID, name, description))
}

// PublishWorkflowPublished reports a publish state change.
func (p *Publisher) PublishWorkflowPublished(ctx context.Context, workflowID, userID string, published bool) {
	p.Publish(ctx, events.NewWorkflowPublished(workflowID, userID, published))
}

// PublishWorkflowTemplateUpdated reports a saved destination template.
func (p *Publisher) PublishWorkflowTemplateUpdated(ctx context.Context, workflowID, userID, channelType, templateBody string) {
	p.Publish(ctx, events.NewWorkflowTemplateUpdated(workflowID, userID, channelType, templateBody))
}

// PublishWorkflowUpdated reports a definition change.
func (p *Publisher) PublishWorkflowUpdated(ctx context.Context, workflowID, userID string, changes map[string]any) {
	p.Publish(ctx, events.NewWorkflowUpdated(workflowID, userID, changes))
}

// PublishWorkflowDeleted reports a deleted workflow.
func (p *Publisher) PublishWorkflowDeleted(ctx context.Context, workflowID, userID string) {
	p.Publish(ctx, events.NewWorkflowDeleted(workflowID, userID))
}
