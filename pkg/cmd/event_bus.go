package cmd

import (
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/synapse-flow/synapse/pkg/eventbus"
	"github.com/synapse-flow/synapse/pkg/eventbus/kafka"
)

// NewEventSink builds the broker sink from a comma-separated broker list. A
// missing or unreachable broker yields nil: callers run the publisher in
// degraded local-log mode instead of failing.
func NewEventSink(brokers string, logger *slog.Logger, serviceName string) eventbus.EventSink {
	brokerList := splitBrokers(brokers)
	if len(brokerList) == 0 {
		logger.Warn("No Kafka brokers configured, events will be logged locally")

		return nil
	}

	publisher, _, err := kafka.CreateChannel(brokerList, watermill.NewSlogLogger(logger), serviceName)
	if err != nil {
		logger.Warn("Failed to create Kafka channel, events will be logged locally", "error", err)

		return nil
	}

	return eventbus.NewBrokerSink(publisher)
}

// NewSubscriber builds the broker subscriber. Nil means the consumer runs in
// degraded heartbeat mode.
func NewSubscriber(brokers string, logger *slog.Logger, serviceName string) message.Subscriber {
	brokerList := splitBrokers(brokers)
	if len(brokerList) == 0 {
		logger.Warn("No Kafka brokers configured, consumer will run degraded")

		return nil
	}

	_, subscriber, err := kafka.CreateChannel(brokerList, watermill.NewSlogLogger(logger), serviceName)
	if err != nil {
		logger.Warn("Failed to create Kafka channel, consumer will run degraded", "error", err)

		return nil
	}

	return subscriber
}

func splitBrokers(brokers string) []string {
	var list []string

	for _, broker := range strings.Split(brokers, ",") {
		broker = strings.TrimSpace(broker)
		if broker != "" {
			list = append(list, broker)
		}
	}

	return list
}
