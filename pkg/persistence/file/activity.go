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

	"github.com/synapse-flow/synapse/pkg/models"
)

// ActivityRepository handles activity file operations. Activities are
// append-only; nothing here mutates an existing record.
type ActivityRepository struct {
	root string
}

func NewActivityRepository(root string) *ActivityRepository {
	return &ActivityRepository{root: root}
}

func (ar *ActivityRepository) dir() string {
	return path.Join(ar.root, "activities")
}

// Append writes a new activity record.
func (ar *ActivityRepository) Append(_ context.Context, activity *models.Activity) error {
	err := os.MkdirAll(ar.dir(), 0750)
	if err != nil {
		return fmt.Errorf("failed to create activities directory: %w", err)
	}

	data, err := json.MarshalIndent(activity, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal activity %s: %w", activity.ID, err)
	}

	filePath := path.Join(ar.dir(), activity.ID+".json")

	return os.WriteFile(filePath, data, 0600)
}

// ListByUser returns the user's most recent activities, newest first.
func (ar *ActivityRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Activity, error) {
	return ar.list(ctx, limit, func(activity *models.Activity) bool {
		return activity.UserID == userID
	})
}

// ListByExecution returns an execution's activities, newest first.
func (ar *ActivityRepository) ListByExecution(ctx context.Context, executionID string, limit int) ([]*models.Activity, error) {
	return ar.list(ctx, limit, func(activity *models.Activity) bool {
		return activity.ExecutionID == executionID
	})
}

func (ar *ActivityRepository) list(_ context.Context, limit int, match func(*models.Activity) bool) ([]*models.Activity, error) {
	if _, err := os.Stat(ar.dir()); os.IsNotExist(err) {
		return []*models.Activity{}, nil
	}

	root := os.DirFS(ar.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list activity files: %w", err)
	}

	activities := make([]*models.Activity, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		filePath := filepath.Clean(path.Join(ar.dir(), file))

		body, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read activity file %s: %w", file, err)
		}

		var activity models.Activity

		err = json.Unmarshal(body, &activity)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal activity %s: %w", file, err)
		}

		if match(&activity) {
			activities = append(activities, &activity)
		}
	}

	sort.Slice(activities, func(i, j int) bool {
		return activities[i].Timestamp.After(activities[j].Timestamp)
	})

	if limit > 0 && len(activities) > limit {
		activities = activities[:limit]
	}

	return activities, nil
}
