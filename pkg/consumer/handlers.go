package consumer

import (
	"context"
	"log/slog"

	"github.com/synapse-flow/synapse/pkg/events"
)

// RegisterDefaultHandlers wires the stock handlers: one structured log line
// per lifecycle event with its typed payload, plus echo of diagnostic
// messages.
func RegisterDefaultHandlers(c *Consumer, logger *slog.Logger) {
	handlerLogger := logger.With("module", "event_handlers")

	c.Handle(events.WorkflowCreatedEvent, func(ctx context.Context, event events.Event) error {
		created := event.(*events.WorkflowCreated)

		handlerLogger.InfoContext(ctx, "Workflow created",
			"workflow_id", created.WorkflowID,
			"user_id", created.UserID,
			"name", created.Data.Name)

		return nil
	})

	c.Handle(events.WorkflowPublishedEvent, func(ctx context.Context, event events.Event) error {
		published := event.(*events.WorkflowPublished)

		handlerLogger.InfoContext(ctx, "Workflow publish state changed",
			"workflow_id", published.WorkflowID,
			"user_id", published.UserID,
			"published", published.Data.Published)

		return nil
	})

	c.Handle(events.WorkflowTemplateUpdatedEvent, func(ctx context.Context, event events.Event) error {
		updated := event.(*events.WorkflowTemplateUpdated)

		handlerLogger.InfoContext(ctx, "Workflow template updated",
			"workflow_id", updated.WorkflowID,
			"user_id", updated.UserID,
			"channel_type", updated.Data.ChannelType)

		return nil
	})

	c.Handle(events.WorkflowUpdatedEvent, func(ctx context.Context, event events.Event) error {
		updated := event.(*events.WorkflowUpdated)

		handlerLogger.InfoContext(ctx, "Workflow definition updated",
			"workflow_id", updated.WorkflowID,
			"user_id", updated.UserID)

		return nil
	})

	c.Handle(events.WorkflowDeletedEvent, func(ctx context.Context, event events.Event) error {
		deleted := event.(*events.WorkflowDeleted)

		handlerLogger.InfoContext(ctx, "Workflow deleted",
			"workflow_id", deleted.WorkflowID,
			"user_id", deleted.UserID)

		return nil
	})

	c.Handle(events.TestMessageEvent, func(ctx context.Context, event events.Event) error {
		test := event.(*events.TestMessage)

		handlerLogger.InfoContext(ctx, "Test message received",
			"user_id", test.Actor(),
			"message", test.Message)

		return nil
	})
}
