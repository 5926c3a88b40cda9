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

// WorkflowRepository handles workflow file operations.
type WorkflowRepository struct {
	root string
}

func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (wr *WorkflowRepository) dir() string {
	return path.Join(wr.root, "workflows")
}

// Create writes a new workflow document.
func (wr *WorkflowRepository) Create(_ context.Context, workflow *models.Workflow) error {
	err := os.MkdirAll(wr.dir(), 0750)
	if err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	return wr.write(workflow)
}

// GetByID retrieves a workflow by its id.
func (wr *WorkflowRepository) GetByID(_ context.Context, workflowID string) (*models.Workflow, error) {
	filePath := filepath.Clean(path.Join(wr.dir(), workflowID+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewStoreError("GetByID", workflowID, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	var workflow models.Workflow

	err = json.Unmarshal(body, &workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", workflowID, err)
	}

	return &workflow, nil
}

// ListByUser returns the user's workflows, newest first.
func (wr *WorkflowRepository) ListByUser(ctx context.Context, userID string) ([]*models.Workflow, error) {
	if _, err := os.Stat(wr.dir()); os.IsNotExist(err) {
		return []*models.Workflow{}, nil
	}

	root := os.DirFS(wr.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		workflowID := file[:len(file)-5]

		workflow, err := wr.GetByID(ctx, workflowID)
		if err != nil {
			if persistence.IsWorkflowNotFound(err) {
				continue
			}

			return nil, err
		}

		if workflow.UserID == userID {
			workflows = append(workflows, workflow)
		}
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})

	return workflows, nil
}

// Update applies a patch to the stored workflow and returns the result.
func (wr *WorkflowRepository) Update(ctx context.Context, id string, patch models.WorkflowPatch) (*models.Workflow, error) {
	workflow, err := wr.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(workflow)
	workflow.UpdatedAt = time.Now().UTC()

	err = wr.write(workflow)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// Delete removes a workflow by its id. Deleting an absent workflow is a no-op.
func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	filePath := path.Join(wr.dir(), id+".json")

	err := os.Remove(filePath)
	if err != nil && os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	return nil
}

func (wr *WorkflowRepository) write(workflow *models.Workflow) error {
	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.ID, err)
	}

	filePath := path.Join(wr.dir(), workflow.ID+".json")

	return os.WriteFile(filePath, data, 0600)
}
