package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/synapse-flow/synapse/pkg/mocks"
	"github.com/synapse-flow/synapse/pkg/models"
	"github.com/synapse-flow/synapse/pkg/persistence"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func newTestExecutionService() (*ExecutionService, *mocks.MockExecutionRepository, *mocks.MockActivityRepository) {
	executions := &mocks.MockExecutionRepository{}
	activities := &mocks.MockActivityRepository{}
	service := NewExecutionService(executions, activities, testLogger())

	return service, executions, activities
}

func TestStartExecution(t *testing.T) {
	service, executions, _ := newTestExecutionService()
	executions.On("Create", mock.Anything, mock.Anything).Return(nil)

	execution, err := service.StartExecution(context.Background(), "wf-1", "user-1", map[string]any{"trigger": "manual"})
	require.NoError(t, err)

	assert.NotEmpty(t, execution.ID)
	assert.Equal(t, models.ExecutionStatusRunning, execution.Status)
	assert.False(t, execution.StartedAt.IsZero())
	assert.Nil(t, execution.CompletedAt)
	executions.AssertExpectations(t)
}

func TestStartExecutionRequiresAttribution(t *testing.T) {
	service, _, _ := newTestExecutionService()

	_, err := service.StartExecution(context.Background(), "wf-1", "", nil)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestCompleteExecutionComputesDuration(t *testing.T) {
	service, executions, _ := newTestExecutionService()

	startedAt := time.Now().UTC().Add(-90 * time.Second)
	running := &models.Execution{
		ID:         "ex-1",
		WorkflowID: "wf-1",
		UserID:     "user-1",
		Status:     models.ExecutionStatusRunning,
		StartedAt:  startedAt,
	}

	executions.On("GetByID", mock.Anything, "ex-1").Return(running, nil)
	executions.On("Update", mock.Anything, mock.Anything).Return(nil)

	completed, err := service.CompleteExecution(context.Background(), "ex-1", models.ExecutionStatusSuccess, "")
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusSuccess, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	require.NotNil(t, completed.DurationMs)
	assert.InDelta(t, 90_000, *completed.DurationMs, 2_000)
}

func TestCompleteExecutionNotFound(t *testing.T) {
	service, executions, _ := newTestExecutionService()
	executions.On("GetByID", mock.Anything, "ghost").
		Return(nil, persistence.NewStoreError("GetByID", "ghost", persistence.ErrExecutionNotFound))

	_, err := service.CompleteExecution(context.Background(), "ghost", models.ExecutionStatusSuccess, "")
	require.Error(t, err)
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestCompleteExecutionTwiceIsConflict(t *testing.T) {
	service, executions, _ := newTestExecutionService()

	completedAt := time.Now().UTC()
	durationMs := int64(1200)
	finished := &models.Execution{
		ID:          "ex-1",
		WorkflowID:  "wf-1",
		UserID:      "user-1",
		Status:      models.ExecutionStatusSuccess,
		StartedAt:   completedAt.Add(-time.Second),
		CompletedAt: &completedAt,
		DurationMs:  &durationMs,
	}

	executions.On("GetByID", mock.Anything, "ex-1").Return(finished, nil)

	_, err := service.CompleteExecution(context.Background(), "ex-1", models.ExecutionStatusFailed, "late failure")
	require.Error(t, err)
	assert.True(t, IsConflict(err))

	// Duration must survive the rejected second completion untouched.
	assert.Equal(t, int64(1200), *finished.DurationMs)
	executions.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestCompleteExecutionRejectsNonTerminalStatus(t *testing.T) {
	service, _, _ := newTestExecutionService()

	_, err := service.CompleteExecution(context.Background(), "ex-1", models.ExecutionStatusRunning, "")
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestLogActivityFillsDefaults(t *testing.T) {
	service, _, activities := newTestExecutionService()
	activities.On("Append", mock.Anything, mock.Anything).Return(nil)

	activity := &models.Activity{
		ExecutionID: "ex-1",
		UserID:      "user-1",
		Message:     "Fetched 3 rows",
	}

	require.NoError(t, service.LogActivity(context.Background(), activity))
	assert.NotEmpty(t, activity.ID)
	assert.Equal(t, models.ActivityTypeInfo, activity.Type)
	assert.False(t, activity.Timestamp.IsZero())
}

func TestLogActivityPropagatesWriteErrors(t *testing.T) {
	service, _, activities := newTestExecutionService()
	activities.On("Append", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	err := service.LogActivity(context.Background(), &models.Activity{
		ExecutionID: "ex-1",
		UserID:      "user-1",
		Message:     "boom",
	})
	require.Error(t, err)
}

func TestGetUserStatsSuccessRate(t *testing.T) {
	service, executions, _ := newTestExecutionService()
	executions.On("CountByUser", mock.Anything, "user-1").Return(int64(3), int64(2), nil)
	executions.On("CountStartedBetween", mock.Anything, "user-1", mock.Anything, mock.Anything).
		Return(int64(1), nil)

	stats := service.GetUserStats(context.Background(), "user-1")

	assert.Equal(t, int64(3), stats.TotalExecutions)
	assert.Equal(t, int64(2), stats.SuccessfulExecutions)
	assert.InDelta(t, 66.67, stats.SuccessRate, 0.001)
	assert.Equal(t, int64(1), stats.ExecutionsToday)
}

func TestGetUserStatsZeroExecutions(t *testing.T) {
	service, executions, _ := newTestExecutionService()
	executions.On("CountByUser", mock.Anything, "user-1").Return(int64(0), int64(0), nil)
	executions.On("CountStartedBetween", mock.Anything, "user-1", mock.Anything, mock.Anything).
		Return(int64(0), nil)

	stats := service.GetUserStats(context.Background(), "user-1")

	assert.Zero(t, stats.SuccessRate)
}

func TestGetUserStatsDegradesToZeros(t *testing.T) {
	service, executions, _ := newTestExecutionService()
	executions.On("CountByUser", mock.Anything, "user-1").
		Return(int64(0), int64(0), errors.New("store down"))

	stats := service.GetUserStats(context.Background(), "user-1")

	assert.Equal(t, UserStats{}, stats)
}

func TestGetUserStatsDayWindow(t *testing.T) {
	service, executions, _ := newTestExecutionService()
	service.now = func() time.Time {
		return time.Date(2025, 6, 15, 14, 30, 0, 0, time.Local)
	}

	executions.On("CountByUser", mock.Anything, "user-1").Return(int64(1), int64(1), nil)
	executions.On("CountStartedBetween", mock.Anything, "user-1",
		mock.MatchedBy(func(from time.Time) bool {
			return from.Hour() == 0 && from.Minute() == 0 && from.Day() == 15
		}),
		mock.MatchedBy(func(to time.Time) bool {
			return to.Hour() == 23 && to.Minute() == 59 && to.Day() == 15
		})).Return(int64(1), nil)

	service.GetUserStats(context.Background(), "user-1")
	executions.AssertExpectations(t)
}

func TestGetRecentActivitiesHumanizes(t *testing.T) {
	service, _, activities := newTestExecutionService()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }

	activities.On("ListByUser", mock.Anything, "user-1", 10).Return([]*models.Activity{
		{ID: "a1", Type: models.ActivityTypeSuccess, Message: "done", Timestamp: now.Add(-30 * time.Second)},
		{ID: "a2", Type: models.ActivityTypeError, Message: "failed", Timestamp: now.Add(-90 * time.Minute), WorkflowName: "Digest"},
	}, nil)

	views := service.GetRecentActivities(context.Background(), "user-1", 10)

	require.Len(t, views, 2)
	assert.Equal(t, "Just now", views[0].Timestamp)
	assert.Equal(t, "1 hour ago", views[1].Timestamp)
	assert.Equal(t, "Digest", views[1].WorkflowName)
}

func TestGetRecentActivitiesDegradesToEmpty(t *testing.T) {
	service, _, activities := newTestExecutionService()
	activities.On("ListByUser", mock.Anything, "user-1", 10).
		Return(nil, errors.New("store down"))

	views := service.GetRecentActivities(context.Background(), "user-1", 10)

	assert.NotNil(t, views)
	assert.Empty(t, views)
}

func TestGetWorkflowExecutionsAttachesActivityTail(t *testing.T) {
	service, executions, activities := newTestExecutionService()

	executions.On("ListByWorkflow", mock.Anything, "wf-1", 20).Return([]*models.Execution{
		{ID: "ex-1", WorkflowID: "wf-1", UserID: "user-1", Status: models.ExecutionStatusSuccess},
	}, nil)
	activities.On("ListByExecution", mock.Anything, "ex-1", recentActivitiesPerExecution).
		Return([]*models.Activity{{ID: "a1", ExecutionID: "ex-1"}}, nil)

	views := service.GetWorkflowExecutions(context.Background(), "wf-1", 20)

	require.Len(t, views, 1)
	require.Len(t, views[0].Activities, 1)
	assert.Equal(t, "a1", views[0].Activities[0].ID)
}
