// Package services implements the workflow and execution business operations
// on top of the persistence and event layers.
package services

import (
	"errors"
	"fmt"

	"github.com/synapse-flow/synapse/pkg/persistence"
)

var (
	// ErrInvalidInput marks a request that failed validation before any
	// store access.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidGraphDocument marks a nodes/edges document that is not a
	// well-formed graph.
	ErrInvalidGraphDocument = errors.New("invalid graph document")

	// ErrUnknownChannelType marks a template save for a destination kind
	// the pipeline does not know.
	ErrUnknownChannelType = errors.New("unknown channel type")
)

// NewValidationError wraps a validation failure under ErrInvalidInput.
func NewValidationError(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

// IsValidationError reports whether err originated from input validation.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInvalidGraphDocument) ||
		errors.Is(err, ErrUnknownChannelType)
}

// IsNotFound reports whether err is a missing-record condition.
func IsNotFound(err error) bool {
	return persistence.IsWorkflowNotFound(err) || persistence.IsExecutionNotFound(err)
}

// IsConflict reports whether err is a conflicting state transition, such as
// completing an execution twice.
func IsConflict(err error) bool {
	return persistence.IsExecutionFinished(err)
}
