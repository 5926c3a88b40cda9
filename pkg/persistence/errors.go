// Package persistence provides standardized error types for storage
// operations.
package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given id.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrExecutionNotFound indicates an execution was not found by the given id.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrExecutionFinished indicates a completion was attempted on an
	// execution that already reached a terminal status.
	ErrExecutionFinished = errors.New("execution already finished")
)

// StoreError wraps storage errors with operation context.
type StoreError struct {
	Op  string // operation being performed, e.g. "GetByID", "Update"
	ID  string // record id if applicable
	Err error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Op, e.ID, e.Err)
	}

	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a storage error with context.
func NewStoreError(op, id string, err error) *StoreError {
	return &StoreError{Op: op, ID: id, Err: err}
}

// IsWorkflowNotFound checks if an error indicates a missing workflow.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsExecutionNotFound checks if an error indicates a missing execution.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsExecutionFinished checks if an error indicates a double completion.
func IsExecutionFinished(err error) bool {
	return errors.Is(err, ErrExecutionFinished)
}
