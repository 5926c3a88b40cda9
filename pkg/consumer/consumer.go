// Package consumer implements the event consumer: a state-machined
// subscription loop that decodes lifecycle events and dispatches them to
// registered handlers. Without a broker it degrades to a heartbeat loop so
// the process stays observable.
package consumer

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/synapse-flow/synapse/pkg/events"
)

// State is the consumer lifecycle state.
type State string

const (
	StateStopped  State = "STOPPED"
	StateStarting State = "STARTING"
	StateRunning  State = "RUNNING"
)

// DefaultHeartbeatInterval paces the degraded-mode heartbeat log.
const DefaultHeartbeatInterval = 5 * time.Second

// Handler processes one decoded event. A handler error is isolated to its
// message: it is logged and the message is still acked.
type Handler func(ctx context.Context, event events.Event) error

// Consumer subscribes to the event topics and runs decoded events through
// per-type handlers. All construction dependencies are injected; a nil
// subscriber means degraded mode from the start.
type Consumer struct {
	subscriber message.Subscriber
	topics     []string
	accounting *Accounting
	heartbeat  time.Duration
	logger     *slog.Logger

	mu       sync.Mutex
	state    State
	handlers map[events.EventType][]Handler
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// Option configures a Consumer.
type Option func(*Consumer)

// WithTopics overrides the subscribed topics.
func WithTopics(topics ...string) Option {
	return func(c *Consumer) { c.topics = topics }
}

// WithAccounting attaches the per-user event accounting hook.
func WithAccounting(accounting *Accounting) Option {
	return func(c *Consumer) { c.accounting = accounting }
}

// WithHeartbeatInterval overrides the degraded-mode heartbeat interval.
func WithHeartbeatInterval(interval time.Duration) Option {
	return func(c *Consumer) { c.heartbeat = interval }
}

func New(subscriber message.Subscriber, logger *slog.Logger, opts ...Option) *Consumer {
	consumer := &Consumer{
		subscriber: subscriber,
		topics:     []string{events.WorkflowEventsTopic, events.TestEventsTopic},
		heartbeat:  DefaultHeartbeatInterval,
		logger:     logger.With("module", "consumer"),
		state:      StateStopped,
		handlers:   make(map[events.EventType][]Handler),
	}

	for _, opt := range opts {
		opt(consumer)
	}

	return consumer
}

// State returns the current lifecycle state.
func (c *Consumer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Handle registers a handler for an event type. Registration after Start is
// not supported.
func (c *Consumer) Handle(eventType events.EventType, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handlers[eventType] = append(c.handlers[eventType], handler)
}

// Start brings the consumer to RUNNING. Calling Start on a running consumer
// is a no-op. When the broker subscription cannot be established the
// consumer still reaches RUNNING, in degraded heartbeat mode.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()

	if c.state != StateStopped {
		c.mu.Unlock()
		c.logger.InfoContext(ctx, "Consumer already started", "state", c.state)

		return nil
	}

	c.state = StateStarting
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	degraded := c.subscriber == nil

	if !degraded {
		for _, topic := range c.topics {
			messages, err := c.subscriber.Subscribe(runCtx, topic)
			if err != nil {
				c.logger.WarnContext(ctx, "Broker subscription failed, entering degraded mode",
					"topic", topic,
					"error", err)

				degraded = true

				break
			}

			c.wg.Add(1)

			go c.consume(runCtx, topic, messages)
		}
	}

	if degraded {
		c.wg.Add(1)

		go c.heartbeatLoop(runCtx)
	}

	c.mu.Lock()
	c.state = StateRunning
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "Consumer started",
		"topics", strings.Join(c.topics, ","),
		"degraded", degraded)

	return nil
}

// Stop closes the subscription best-effort and always lands on STOPPED.
func (c *Consumer) Stop() {
	c.mu.Lock()

	if c.state == StateStopped {
		c.mu.Unlock()

		return
	}

	if c.cancel != nil {
		c.cancel()
	}

	c.mu.Unlock()

	if c.subscriber != nil {
		err := c.subscriber.Close()
		if err != nil {
			c.logger.Warn("Failed to close subscriber", "error", err)
		}
	}

	c.wg.Wait()

	c.mu.Lock()
	c.state = StateStopped
	c.mu.Unlock()

	c.logger.Info("Consumer stopped")
}

func (c *Consumer) consume(ctx context.Context, topic string, messages <-chan *message.Message) {
	defer c.wg.Done()

	for msg := range messages {
		c.handleMessage(ctx, topic, msg)
		msg.Ack()
	}
}

// handleMessage decodes and dispatches one message. Malformed payloads and
// unknown event types are logged and skipped so a poison message cannot
// stall the partition.
func (c *Consumer) handleMessage(ctx context.Context, topic string, msg *message.Message) {
	event, err := events.Decode(msg.Payload)
	if err != nil {
		c.logger.WarnContext(ctx, "Skipping undecodable message",
			"topic", topic,
			"message_id", msg.UUID,
			"event_type", msg.Metadata.Get(events.EventTypeMetadataKey),
			"error", err)

		return
	}

	if c.accounting != nil && strings.HasPrefix(string(event.GetType()), "workflow.") {
		c.accounting.Record(ctx, event.Actor())
	}

	c.mu.Lock()
	handlers := c.handlers[event.GetType()]
	c.mu.Unlock()

	if len(handlers) == 0 {
		c.logger.DebugContext(ctx, "No handler registered for event",
			"event_type", event.GetType())

		return
	}

	for _, handler := range handlers {
		err := handler(ctx, event)
		if err != nil {
			c.logger.ErrorContext(ctx, "Event handler failed",
				"event_type", event.GetType(),
				"message_id", msg.UUID,
				"error", err)
		}
	}
}

func (c *Consumer) heartbeatLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.logger.InfoContext(ctx, "Consumer heartbeat (degraded, no broker)")
		}
	}
}
