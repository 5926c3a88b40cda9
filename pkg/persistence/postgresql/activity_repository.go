package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/synapse-flow/synapse/pkg/models"
	"github.com/synapse-flow/synapse/pkg/persistence"
)

// ActivityRepository handles activity rows. The table is append-only.
type ActivityRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewActivityRepository(db *sql.DB, logger *slog.Logger) *ActivityRepository {
	return &ActivityRepository{db: db, logger: logger}
}

const activityColumns = `id, execution_id, user_id, type, message, service, workflow_name, metadata, timestamp`

// Append inserts a new activity row.
func (ar *ActivityRepository) Append(ctx context.Context, activity *models.Activity) error {
	metadata, err := marshalMetadata(activity.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflow_activities (` + activityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = ar.db.ExecContext(ctx, query,
		activity.ID, activity.ExecutionID, activity.UserID, activity.Type,
		activity.Message, nullString(activity.Service), nullString(activity.WorkflowName),
		metadata, activity.Timestamp,
	)
	if err != nil {
		return persistence.NewStoreError("Append", activity.ID, err)
	}

	return nil
}

// ListByUser returns the user's most recent activities, newest first.
func (ar *ActivityRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Activity, error) {
	query := `
		SELECT ` + activityColumns + `
		FROM workflow_activities
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	return ar.queryActivities(ctx, "ListByUser", query, userID, limit)
}

// ListByExecution returns an execution's activities, newest first.
func (ar *ActivityRepository) ListByExecution(ctx context.Context, executionID string, limit int) ([]*models.Activity, error) {
	query := `
		SELECT ` + activityColumns + `
		FROM workflow_activities
		WHERE execution_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	return ar.queryActivities(ctx, "ListByExecution", query, executionID, limit)
}

func (ar *ActivityRepository) queryActivities(ctx context.Context, op, query string, args ...any) ([]*models.Activity, error) {
	rows, err := ar.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence.NewStoreError(op, "", err)
	}
	defer func() { _ = rows.Close() }()

	activities := make([]*models.Activity, 0)

	for rows.Next() {
		var (
			activity              models.Activity
			service, workflowName sql.NullString
			metadata              []byte
		)

		err := rows.Scan(
			&activity.ID, &activity.ExecutionID, &activity.UserID, &activity.Type,
			&activity.Message, &service, &workflowName, &metadata, &activity.Timestamp,
		)
		if err != nil {
			return nil, persistence.NewStoreError(op, "", err)
		}

		activity.Service = service.String
		activity.WorkflowName = workflowName.String

		if len(metadata) > 0 {
			err = json.Unmarshal(metadata, &activity.Metadata)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal activity metadata: %w", err)
			}
		}

		activities = append(activities, &activity)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewStoreError(op, "", err)
	}

	return activities, nil
}
