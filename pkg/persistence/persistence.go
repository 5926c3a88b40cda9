// Package persistence provides the storage abstraction for workflows,
// executions, and activities.
package persistence

import (
	"context"
	"time"

	"github.com/synapse-flow/synapse/pkg/models"
)

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	ActivityRepository() ActivityRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository owns workflow definitions and channel selections.
type WorkflowRepository interface {
	Create(ctx context.Context, workflow *models.Workflow) error
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Workflow, error)
	Update(ctx context.Context, id string, patch models.WorkflowPatch) (*models.Workflow, error)
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository owns execution records and their accounting queries.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.Execution) error
	GetByID(ctx context.Context, id string) (*models.Execution, error)
	Update(ctx context.Context, execution *models.Execution) error
	ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error)
	CountByUser(ctx context.Context, userID string) (total int64, successful int64, err error)
	CountStartedBetween(ctx context.Context, userID string, from, to time.Time) (int64, error)
	ListRunningBefore(ctx context.Context, cutoff time.Time) ([]*models.Execution, error)
}

// ActivityRepository owns the append-only activity log.
type ActivityRepository interface {
	Append(ctx context.Context, activity *models.Activity) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Activity, error)
	ListByExecution(ctx context.Context, executionID string, limit int) ([]*models.Activity, error)
}
