package file

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synapse-flow/synapse/pkg/models"
)

func seedActivity(t *testing.T, repo *ActivityRepository, userID, executionID string, timestamp time.Time) *models.Activity {
	t.Helper()

	activity := &models.Activity{
		ID:          uuid.New().String(),
		ExecutionID: executionID,
		UserID:      userID,
		Type:        models.ActivityTypeInfo,
		Message:     "step finished",
		Timestamp:   timestamp,
	}

	require.NoError(t, repo.Append(context.Background(), activity))

	return activity
}

func TestActivityListByUserNewestFirst(t *testing.T) {
	repo := NewActivityRepository(t.TempDir())
	now := time.Now().UTC()

	oldest := seedActivity(t, repo, "user-1", "ex-1", now.Add(-2*time.Hour))
	newest := seedActivity(t, repo, "user-1", "ex-1", now)
	seedActivity(t, repo, "user-2", "ex-2", now)

	activities, err := repo.ListByUser(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.Len(t, activities, 2)
	assert.Equal(t, newest.ID, activities[0].ID)
	assert.Equal(t, oldest.ID, activities[1].ID)
}

func TestActivityListByUserHonorsLimit(t *testing.T) {
	repo := NewActivityRepository(t.TempDir())
	now := time.Now().UTC()

	for i := range 5 {
		seedActivity(t, repo, "user-1", "ex-1", now.Add(-time.Duration(i)*time.Minute))
	}

	activities, err := repo.ListByUser(context.Background(), "user-1", 3)
	require.NoError(t, err)
	assert.Len(t, activities, 3)
}

func TestActivityListByExecution(t *testing.T) {
	repo := NewActivityRepository(t.TempDir())
	now := time.Now().UTC()

	seedActivity(t, repo, "user-1", "ex-1", now)
	seedActivity(t, repo, "user-1", "ex-2", now)

	activities, err := repo.ListByExecution(context.Background(), "ex-1", 10)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, "ex-1", activities[0].ExecutionID)
}

func TestActivityListEmptyDir(t *testing.T) {
	repo := NewActivityRepository(t.TempDir())

	activities, err := repo.ListByUser(context.Background(), "user-1", 10)
	require.NoError(t, err)
	assert.Empty(t, activities)
}
