// Package events defines the workflow lifecycle event types delivered over
// the broker, as a tagged union keyed by event type.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type EventType string

// Broker topics.
const (
	WorkflowEventsTopic = "workflow-events" // lifecycle events, keyed by workflow id
	TestEventsTopic     = "test-events"     // diagnostic messages, keyed by user id
)

// Watermill message metadata keys. The partition key metadata drives Kafka's
// per-key ordering guarantee.
const (
	EventMetadataKey     = "key"
	EventTypeMetadataKey = "event_type"
)

const (
	WorkflowCreatedEvent         EventType = "workflow.created"
	WorkflowPublishedEvent       EventType = "workflow.published"
	WorkflowTemplateUpdatedEvent EventType = "workflow.template_updated"
	WorkflowUpdatedEvent         EventType = "workflow.updated"
	WorkflowDeletedEvent         EventType = "workflow.deleted"

	TestMessageEvent EventType = "test.message"
)

// ErrUnknownEventType is returned when decoding a message whose type has no
// registered variant. Consumers treat it as forward-compatible noise.
var ErrUnknownEventType = errors.New("unknown event type")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Event is one immutable lifecycle notification. Key is the broker partition
// key; Actor is the user the event is attributed to.
type Event interface {
	GetType() EventType
	Key() string
	Actor() string
}

// BaseEvent carries the fields shared by every lifecycle event. Every event
// is attributable to exactly one workflow and one acting user.
type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	WorkflowID string    `json:"workflowId" validate:"required"`
	UserID     string    `json:"userId"     validate:"required"`
	Timestamp  time.Time `json:"timestamp"`
}

func (b BaseEvent) Key() string {
	return b.WorkflowID
}

func (b BaseEvent) Actor() string {
	return b.UserID
}

// Validate checks the event's required attribution fields.
func (b BaseEvent) Validate() error {
	return validate.Struct(b)
}

func newBaseEvent(eventType EventType, workflowID, userID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		WorkflowID: workflowID,
		UserID:     userID,
		Timestamp:  time.Now().UTC(),
	}
}

type WorkflowCreated struct {
	BaseEvent

	Data WorkflowCreatedData `json:"data"`
}

type WorkflowCreatedData struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (e WorkflowCreated) GetType() EventType {
	return WorkflowCreatedEvent
}

func NewWorkflowCreated(workflowID, userID, name, description string) WorkflowCreated {
	return WorkflowCreated{
		BaseEvent: newBaseEvent(WorkflowCreatedEvent, workflowID, userID),
		Data:      WorkflowCreatedData{Name: name, Description: description},
	}
}

type WorkflowPublished struct {
	BaseEvent

	Data WorkflowPublishedData `json:"data"`
}

type WorkflowPublishedData struct {
	Published bool `json:"published"`
}

func (e WorkflowPublished) GetType() EventType {
	return WorkflowPublishedEvent
}

func NewWorkflowPublished(workflowID, userID string, published bool) WorkflowPublished {
	return WorkflowPublished{
		BaseEvent: newBaseEvent(WorkflowPublishedEvent, workflowID, userID),
		Data:      WorkflowPublishedData{Published: published},
	}
}

type WorkflowTemplateUpdated struct {
	BaseEvent

	Data WorkflowTemplateUpdatedData `json:"data"`
}

type WorkflowTemplateUpdatedData struct {
	ChannelType  string `json:"channelType"`
	TemplateBody string `json:"templateBody"`
}

func (e WorkflowTemplateUpdated) GetType() EventType {
	return WorkflowTemplateUpdatedEvent
}

func NewWorkflowTemplateUpdated(workflowID, userID, channelType, templateBody string) WorkflowTemplateUpdated {
	return WorkflowTemplateUpdated{
		BaseEvent: newBaseEvent(WorkflowTemplateUpdatedEvent, workflowID, userID),
		Data: WorkflowTemplateUpdatedData{
			ChannelType:  channelType,
			TemplateBody: templateBody,
		},
	}
}

type WorkflowUpdated struct {
	BaseEvent

	Data WorkflowUpdatedData `json:"data"`
}

type WorkflowUpdatedData struct {
	Changes map[string]any `json:"changes,omitempty"`
}

func (e WorkflowUpdated) GetType() EventType {
	return WorkflowUpdatedEvent
}

func NewWorkflowUpdated(workflowID, userID string, changes map[string]any) WorkflowUpdated {
	return WorkflowUpdated{
		BaseEvent: newBaseEvent(WorkflowUpdatedEvent, workflowID, userID),
		Data:      WorkflowUpdatedData{Changes: changes},
	}
}

type WorkflowDeleted struct {
	BaseEvent
}

func (e WorkflowDeleted) GetType() EventType {
	return WorkflowDeletedEvent
}

func NewWorkflowDeleted(workflowID, userID string) WorkflowDeleted {
	return WorkflowDeleted{
		BaseEvent: newBaseEvent(WorkflowDeletedEvent, workflowID, userID),
	}
}

// TestMessage is a diagnostic event for verifying broker connectivity. It is
// not attributed to a workflow; anonymous senders key on "anonymous".
type TestMessage struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Message   string    `json:"message"`
	UserID    string    `json:"userId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (e TestMessage) GetType() EventType {
	return TestMessageEvent
}

func (e TestMessage) Key() string {
	return e.Actor()
}

func (e TestMessage) Actor() string {
	if e.UserID == "" {
		return "anonymous"
	}

	return e.UserID
}

func NewTestMessage(message, userID string) TestMessage {
	return TestMessage{
		ID:        uuid.New().String(),
		Type:      TestMessageEvent,
		Message:   message,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}

// Decode unmarshals a broker message payload into its typed event variant,
// dispatching on the "type" field.
func Decode(payload []byte) (Event, error) {
	var probe struct {
		Type EventType `json:"type"`
	}

	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil, fmt.Errorf("malformed event payload: %w", err)
	}

	var event Event

	switch probe.Type {
	case WorkflowCreatedEvent:
		event = &WorkflowCreated{}
	case WorkflowPublishedEvent:
		event = &WorkflowPublished{}
	case WorkflowTemplateUpdatedEvent:
		event = &WorkflowTemplateUpdated{}
	case WorkflowUpdatedEvent:
		event = &WorkflowUpdated{}
	case WorkflowDeletedEvent:
		event = &WorkflowDeleted{}
	case TestMessageEvent:
		event = &TestMessage{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, probe.Type)
	}

	if err := json.Unmarshal(payload, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s event: %w", probe.Type, err)
	}

	return event, nil
}
