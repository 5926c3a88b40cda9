package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/synapse-flow/synapse/pkg/models"
	"github.com/synapse-flow/synapse/pkg/persistence"
)

// recentActivitiesPerExecution caps the activity tail attached to each
// execution in GetWorkflowExecutions.
const recentActivitiesPerExecution = 5

// UserStats is the dashboard aggregate for one user.
type UserStats struct {
	ExecutionsToday      int64   `json:"executionsToday"`
	SuccessRate          float64 `json:"successRate"`
	TotalExecutions      int64   `json:"totalExecutions"`
	SuccessfulExecutions int64   `json:"successfulExecutions"`
}

// ActivityView is an activity entry with its timestamp humanized for display.
type ActivityView struct {
	ID           string              `json:"id"`
	Type         models.ActivityType `json:"type"`
	Message      string              `json:"message"`
	Timestamp    string              `json:"timestamp"`
	WorkflowName string              `json:"workflowName,omitempty"`
	Service      string              `json:"service,omitempty"`
}

// ExecutionView is an execution with its most recent activity tail.
type ExecutionView struct {
	*models.Execution

	Activities []*models.Activity `json:"activities"`
}

// ExecutionService records execution lifecycles and reduces them into
// dashboard statistics. Writes propagate their errors; aggregate reads
// degrade to safe defaults so dashboards stay available.
type ExecutionService struct {
	executions persistence.ExecutionRepository
	activities persistence.ActivityRepository
	validate   *validator.Validate
	logger     *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

func NewExecutionService(executions persistence.ExecutionRepository, activities persistence.ActivityRepository, logger *slog.Logger) *ExecutionService {
	return &ExecutionService{
		executions: executions,
		activities: activities,
		validate:   validator.New(),
		logger:     logger.With("module", "execution_service"),
		now:        time.Now,
	}
}

// StartExecution records a new RUNNING execution.
func (s *ExecutionService) StartExecution(ctx context.Context, workflowID, userID string, metadata map[string]any) (*models.Execution, error) {
	execution := &models.Execution{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		UserID:     userID,
		Status:     models.ExecutionStatusRunning,
		StartedAt:  s.now().UTC(),
		Metadata:   metadata,
	}

	err := s.validate.Struct(execution)
	if err != nil {
		return nil, NewValidationError(err)
	}

	err = s.executions.Create(ctx, execution)
	if err != nil {
		return nil, fmt.Errorf("failed to start execution: %w", err)
	}

	return execution, nil
}

// CompleteExecution transitions an execution to a terminal status exactly
// once. A second completion is a conflict; the stored duration is never
// recomputed.
func (s *ExecutionService) CompleteExecution(ctx context.Context, id string, status models.ExecutionStatus, errMsg string) (*models.Execution, error) {
	if !status.IsTerminal() {
		return nil, fmt.Errorf("%w: %q is not a terminal status", ErrInvalidInput, status)
	}

	execution, err := s.executions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if execution.Status.IsTerminal() {
		return nil, persistence.NewStoreError("CompleteExecution", id, persistence.ErrExecutionFinished)
	}

	completedAt := s.now().UTC()
	durationMs := completedAt.Sub(execution.StartedAt).Milliseconds()

	execution.Status = status
	execution.CompletedAt = &completedAt
	execution.DurationMs = &durationMs
	execution.Error = errMsg

	err = s.executions.Update(ctx, execution)
	if err != nil {
		return nil, fmt.Errorf("failed to complete execution: %w", err)
	}

	return execution, nil
}

// LogActivity appends one entry to the activity log. Write errors propagate.
func (s *ExecutionService) LogActivity(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}

	if activity.Timestamp.IsZero() {
		activity.Timestamp = s.now().UTC()
	}

	if activity.Type == "" {
		activity.Type = models.ActivityTypeInfo
	}

	err := s.validate.Struct(activity)
	if err != nil {
		return NewValidationError(err)
	}

	err = s.activities.Append(ctx, activity)
	if err != nil {
		return fmt.Errorf("failed to log activity: %w", err)
	}

	return nil
}

// GetUserStats reduces the execution log into the dashboard aggregate.
// Store failures degrade to zeros.
func (s *ExecutionService) GetUserStats(ctx context.Context, userID string) UserStats {
	var stats UserStats

	total, successful, err := s.executions.CountByUser(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "Stats read degraded to zeros",
			"user_id", userID,
			"error", err)

		return stats
	}

	stats.TotalExecutions = total
	stats.SuccessfulExecutions = successful

	if total > 0 {
		stats.SuccessRate = math.Round(float64(successful)/float64(total)*100*100) / 100
	}

	dayStart, dayEnd := localDayWindow(s.now())

	today, err := s.executions.CountStartedBetween(ctx, userID, dayStart, dayEnd)
	if err != nil {
		s.logger.WarnContext(ctx, "Daily count read degraded to zero",
			"user_id", userID,
			"error", err)

		return stats
	}

	stats.ExecutionsToday = today

	return stats
}

// GetRecentActivities returns the user's newest activities with humanized
// timestamps. Store failures degrade to an empty list.
func (s *ExecutionService) GetRecentActivities(ctx context.Context, userID string, limit int) []ActivityView {
	activities, err := s.activities.ListByUser(ctx, userID, limit)
	if err != nil {
		s.logger.WarnContext(ctx, "Recent activities read degraded to empty",
			"user_id", userID,
			"error", err)

		return []ActivityView{}
	}

	now := s.now()
	views := make([]ActivityView, 0, len(activities))

	for _, activity := range activities {
		views = append(views, ActivityView{
			ID:           activity.ID,
			Type:         activity.Type,
			Message:      activity.Message,
			Timestamp:    HumanizeTimestamp(now, activity.Timestamp),
			WorkflowName: activity.WorkflowName,
			Service:      activity.Service,
		})
	}

	return views
}

// GetWorkflowExecutions returns a workflow's recent executions, each with
// its last few activities. Store failures degrade to an empty list.
func (s *ExecutionService) GetWorkflowExecutions(ctx context.Context, workflowID string, limit int) []ExecutionView {
	executions, err := s.executions.ListByWorkflow(ctx, workflowID, limit)
	if err != nil {
		s.logger.WarnContext(ctx, "Workflow executions read degraded to empty",
			"workflow_id", workflowID,
			"error", err)

		return []ExecutionView{}
	}

	views := make([]ExecutionView, 0, len(executions))

	for _, execution := range executions {
		activities, err := s.activities.ListByExecution(ctx, execution.ID, recentActivitiesPerExecution)
		if err != nil {
			s.logger.WarnContext(ctx, "Execution activities read degraded to empty",
				"execution_id", execution.ID,
				"error", err)

			activities = []*models.Activity{}
		}

		views = append(views, ExecutionView{Execution: execution, Activities: activities})
	}

	return views
}

// localDayWindow returns [00:00:00, 23:59:59] of now's local calendar day.
func localDayWindow(now time.Time) (time.Time, time.Time) {
	year, month, day := now.Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	end := time.Date(year, month, day, 23, 59, 59, 999999999, now.Location())

	return start, end
}
