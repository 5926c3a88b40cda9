// Package mocks provides testify mock implementations for the pipeline's
// interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/synapse-flow/synapse/pkg/events"
)

// MockEventSink is a mock implementation of eventbus.EventSink.
type MockEventSink struct {
	mock.Mock
}

func (m *MockEventSink) Publish(ctx context.Context, topic string, key string, event events.Event) error {
	args := m.Called(ctx, topic, key, event)

	return args.Error(0)
}

func (m *MockEventSink) Close() error {
	args := m.Called()

	return args.Error(0)
}
