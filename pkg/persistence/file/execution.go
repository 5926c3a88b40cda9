package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/synapse-flow/synapse/pkg/models"
	"github.com/synapse-flow/synapse/pkg/persistence"
)

// ExecutionRepository handles execution file operations.
type ExecutionRepository struct {
	root string
}

func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (er *ExecutionRepository) dir() string {
	return path.Join(er.root, "executions")
}

// Create writes a new execution record.
func (er *ExecutionRepository) Create(_ context.Context, execution *models.Execution) error {
	err := os.MkdirAll(er.dir(), 0750)
	if err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	return er.write(execution)
}

// GetByID retrieves an execution by its id.
func (er *ExecutionRepository) GetByID(_ context.Context, id string) (*models.Execution, error) {
	filePath := filepath.Clean(path.Join(er.dir(), id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewStoreError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, fmt.Errorf("failed to fetch execution %s: %w", id, err)
	}

	var execution models.Execution

	err = json.Unmarshal(body, &execution)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution %s: %w", id, err)
	}

	return &execution, nil
}

// Update overwrites an existing execution record.
func (er *ExecutionRepository) Update(ctx context.Context, execution *models.Execution) error {
	_, err := er.GetByID(ctx, execution.ID)
	if err != nil {
		return err
	}

	return er.write(execution)
}

// ListByWorkflow returns the workflow's executions, most recently started
// first.
func (er *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error) {
	executions, err := er.all(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Execution, 0)

	for _, execution := range executions {
		if execution.WorkflowID == workflowID {
			matched = append(matched, execution)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StartedAt.After(matched[j].StartedAt)
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, nil
}

// CountByUser returns the user's total and successful execution counts.
func (er *ExecutionRepository) CountByUser(ctx context.Context, userID string) (int64, int64, error) {
	executions, err := er.all(ctx)
	if err != nil {
		return 0, 0, err
	}

	var total, successful int64

	for _, execution := range executions {
		if execution.UserID != userID {
			continue
		}

		total++

		if execution.Status == models.ExecutionStatusSuccess {
			successful++
		}
	}

	return total, successful, nil
}

// CountStartedBetween counts the user's executions started within [from, to].
func (er *ExecutionRepository) CountStartedBetween(ctx context.Context, userID string, from, to time.Time) (int64, error) {
	executions, err := er.all(ctx)
	if err != nil {
		return 0, err
	}

	var count int64

	for _, execution := range executions {
		if execution.UserID != userID {
			continue
		}

		if execution.StartedAt.Before(from) || execution.StartedAt.After(to) {
			continue
		}

		count++
	}

	return count, nil
}

// ListRunningBefore returns executions still RUNNING that started before the
// cutoff.
func (er *ExecutionRepository) ListRunningBefore(ctx context.Context, cutoff time.Time) ([]*models.Execution, error) {
	executions, err := er.all(ctx)
	if err != nil {
		return nil, err
	}

	stuck := make([]*models.Execution, 0)

	for _, execution := range executions {
		if execution.Status == models.ExecutionStatusRunning && execution.StartedAt.Before(cutoff) {
			stuck = append(stuck, execution)
		}
	}

	return stuck, nil
}

func (er *ExecutionRepository) all(ctx context.Context) ([]*models.Execution, error) {
	if _, err := os.Stat(er.dir()); os.IsNotExist(err) {
		return []*models.Execution{}, nil
	}

	root := os.DirFS(er.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	executions := make([]*models.Execution, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		executionID := file[:len(file)-5]

		execution, err := er.GetByID(ctx, executionID)
		if err != nil {
			if persistence.IsExecutionNotFound(err) {
				continue
			}

			return nil, err
		}

		executions = append(executions, execution)
	}

	return executions, nil
}

func (er *ExecutionRepository) write(execution *models.Execution) error {
	data, err := json.MarshalIndent(execution, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", execution.ID, err)
	}

	filePath := path.Join(er.dir(), execution.ID+".json")

	return os.WriteFile(filePath, data, 0600)
}
