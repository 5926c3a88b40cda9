// Package file provides a file-based persistence implementation. Each record
// is stored as one JSON document under the root directory.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/synapse-flow/synapse/pkg/persistence"
)

// Persistence implements persistence.Persistence on the file system.
type Persistence struct {
	root          string
	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
	activityRepo  *ActivityRepository
}

// NewPersistence creates a file persistence layer rooted at the given
// directory. A "file://" prefix is accepted and stripped.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:          cleanRoot,
		workflowRepo:  NewWorkflowRepository(cleanRoot),
		executionRepo: NewExecutionRepository(cleanRoot),
		activityRepo:  NewActivityRepository(cleanRoot),
	}
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return fp.executionRepo
}

func (fp *Persistence) ActivityRepository() persistence.ActivityRepository {
	return fp.activityRepo
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs no work for file persistence.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
