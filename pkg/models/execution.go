package models

import "time"

// ExecutionStatus represents the lifecycle state of a workflow execution.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "RUNNING"
	ExecutionStatusSuccess   ExecutionStatus = "SUCCESS"
	ExecutionStatusFailed    ExecutionStatus = "FAILED"
	ExecutionStatusCancelled ExecutionStatus = "CANCELLED"
)

// IsTerminal reports whether the status ends an execution's lifecycle.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusSuccess, ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	case ExecutionStatusRunning:
		return false
	}

	return false
}

// Execution is one attempt to run a workflow. It is created RUNNING and
// transitions exactly once to a terminal status; DurationMs is computed at
// completion and never recomputed.
type Execution struct {
	ID          string          `json:"id"`
	WorkflowID  string          `json:"workflowId" validate:"required"`
	UserID      string          `json:"userId"     validate:"required"`
	Status      ExecutionStatus `json:"status"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	DurationMs  *int64          `json:"durationMs,omitempty"`
	Error       string          `json:"error,omitempty"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
}

// ActivityType classifies an activity entry.
type ActivityType string

const (
	ActivityTypeSuccess ActivityType = "SUCCESS"
	ActivityTypeError   ActivityType = "ERROR"
	ActivityTypeWarning ActivityType = "WARNING"
	ActivityTypeInfo    ActivityType = "INFO"
)

// Activity is a timestamped note attached to an execution, immutable once
// created. WorkflowName is denormalized for display.
type Activity struct {
	ID           string         `json:"id"`
	ExecutionID  string         `json:"executionId" validate:"required"`
	UserID       string         `json:"userId"      validate:"required"`
	Type         ActivityType   `json:"type"`
	Message      string         `json:"message"     validate:"required"`
	Service      string         `json:"service,omitempty"`
	WorkflowName string         `json:"workflowName,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}
