// Package eventbus provides the delivery layer between lifecycle events and
// the message broker, including the local degraded-mode sink.
package eventbus

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/synapse-flow/synapse/pkg/events"
)

// EventSink accepts events for delivery. BrokerSink delivers through the
// message broker; LocalLogSink records them locally when the broker is
// unavailable.
type EventSink interface {
	Publish(ctx context.Context, topic string, key string, event events.Event) error
	Close() error
}

// BrokerSink publishes events through a watermill publisher. The partition
// key rides in message metadata so Kafka preserves per-workflow ordering.
type BrokerSink struct {
	publisher message.Publisher
}

func NewBrokerSink(publisher message.Publisher) *BrokerSink {
	return &BrokerSink{publisher: publisher}
}

func (s *BrokerSink) Publish(_ context.Context, topic string, key string, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return s.publisher.Publish(topic, msg)
}

func (s *BrokerSink) Close() error {
	return s.publisher.Close()
}
