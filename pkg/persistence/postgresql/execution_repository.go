package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/synapse-flow/synapse/pkg/models"
	"github.com/synapse-flow/synapse/pkg/persistence"
)

// ExecutionRepository handles execution rows.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

const executionColumns = `id, workflow_id, user_id, status, started_at, completed_at, duration_ms, error, metadata`

// Create inserts a new execution row.
func (er *ExecutionRepository) Create(ctx context.Context, execution *models.Execution) error {
	metadata, err := marshalMetadata(execution.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflow_executions (` + executionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = er.db.ExecContext(ctx, query,
		execution.ID, execution.WorkflowID, execution.UserID, execution.Status,
		execution.StartedAt, execution.CompletedAt, execution.DurationMs,
		nullString(execution.Error), metadata,
	)
	if err != nil {
		return persistence.NewStoreError("Create", execution.ID, err)
	}

	return nil
}

// GetByID retrieves an execution by its id.
func (er *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM workflow_executions WHERE id = $1`

	execution, err := scanExecution(er.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewStoreError("GetByID", id, err)
	}

	return execution, nil
}

// Update overwrites an existing execution row.
func (er *ExecutionRepository) Update(ctx context.Context, execution *models.Execution) error {
	metadata, err := marshalMetadata(execution.Metadata)
	if err != nil {
		return err
	}

	query := `
		UPDATE workflow_executions SET
			status = $2, completed_at = $3, duration_ms = $4, error = $5, metadata = $6
		WHERE id = $1
	`

	result, err := er.db.ExecContext(ctx, query,
		execution.ID, execution.Status, execution.CompletedAt,
		execution.DurationMs, nullString(execution.Error), metadata,
	)
	if err != nil {
		return persistence.NewStoreError("Update", execution.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("Update", execution.ID, err)
	}

	if affected == 0 {
		return persistence.NewStoreError("Update", execution.ID, persistence.ErrExecutionNotFound)
	}

	return nil
}

// ListByWorkflow returns the workflow's executions, most recently started
// first.
func (er *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM workflow_executions
		WHERE workflow_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	return er.queryExecutions(ctx, "ListByWorkflow", query, workflowID, limit)
}

// CountByUser returns the user's total and successful execution counts.
func (er *ExecutionRepository) CountByUser(ctx context.Context, userID string) (int64, int64, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = $2)
		FROM workflow_executions
		WHERE user_id = $1
	`

	var total, successful int64

	err := er.db.QueryRowContext(ctx, query, userID, models.ExecutionStatusSuccess).Scan(&total, &successful)
	if err != nil {
		return 0, 0, persistence.NewStoreError("CountByUser", userID, err)
	}

	return total, successful, nil
}

// CountStartedBetween counts the user's executions started within [from, to].
func (er *ExecutionRepository) CountStartedBetween(ctx context.Context, userID string, from, to time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM workflow_executions
		WHERE user_id = $1 AND started_at >= $2 AND started_at <= $3
	`

	var count int64

	err := er.db.QueryRowContext(ctx, query, userID, from, to).Scan(&count)
	if err != nil {
		return 0, persistence.NewStoreError("CountStartedBetween", userID, err)
	}

	return count, nil
}

// ListRunningBefore returns executions still RUNNING that started before the
// cutoff.
func (er *ExecutionRepository) ListRunningBefore(ctx context.Context, cutoff time.Time) ([]*models.Execution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM workflow_executions
		WHERE status = $1 AND started_at < $2
		ORDER BY started_at ASC
	`

	return er.queryExecutions(ctx, "ListRunningBefore", query, models.ExecutionStatusRunning, cutoff)
}

func (er *ExecutionRepository) queryExecutions(ctx context.Context, op, query string, args ...any) ([]*models.Execution, error) {
	rows, err := er.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence.NewStoreError(op, "", err)
	}
	defer func() { _ = rows.Close() }()

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, persistence.NewStoreError(op, "", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewStoreError(op, "", err)
	}

	return executions, nil
}

func scanExecution(row rowScanner) (*models.Execution, error) {
	var (
		execution   models.Execution
		completedAt sql.NullTime
		durationMs  sql.NullInt64
		errMsg      sql.NullString
		metadata    []byte
	)

	err := row.Scan(
		&execution.ID, &execution.WorkflowID, &execution.UserID, &execution.Status,
		&execution.StartedAt, &completedAt, &durationMs, &errMsg, &metadata,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		execution.CompletedAt = &completedAt.Time
	}

	if durationMs.Valid {
		execution.DurationMs = &durationMs.Int64
	}

	execution.Error = errMsg.String

	if len(metadata) > 0 {
		err = json.Unmarshal(metadata, &execution.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution metadata: %w", err)
		}
	}

	return &execution, nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}

	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	return data, nil
}
