package publisher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/synapse-flow/synapse/pkg/events"
	"github.com/synapse-flow/synapse/pkg/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func TestPublishDeliversThroughSink(t *testing.T) {
	sink := &mocks.MockEventSink{}
	sink.On("Publish", mock.Anything, events.WorkflowEventsTopic, "wf-1", mock.Anything).Return(nil)

	pub := New(sink, testLogger())
	pub.PublishWorkflowCreated(context.Background(), "wf-1", "user-1", "Digest", "")

	sink.AssertExpectations(t)
}

func TestPublishFallsBackOnSinkError(t *testing.T) {
	sink := &mocks.MockEventSink{}
	sink.On("Publish", mock.Anything, events.WorkflowEventsTopic, "wf-1", mock.Anything).
		Return(errors.New("broker unreachable"))

	pub := New(sink, testLogger())

	// Must not panic and must not surface the broker error.
	pub.PublishWorkflowPublished(context.Background(), "wf-1", "user-1", true)

	sink.AssertExpectations(t)
}

func TestPublishWithNilSinkLogsLocally(t *testing.T) {
	pub := New(nil, testLogger())

	assert.NotPanics(t, func() {
		pub.PublishWorkflowDeleted(context.Background(), "wf-1", "user-1")
	})
}

func TestPublishTestMessageKeyedByUser(t *testing.T) {
	sink := &mocks.MockEventSink{}
	sink.On("Publish", mock.Anything, events.TestEventsTopic, "anonymous", mock.Anything).Return(nil)

	pub := New(sink, testLogger())
	pub.PublishTestMessage(context.Background(), "ping", "")

	sink.AssertExpectations(t)
}
