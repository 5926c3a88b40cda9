package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/synapse-flow/synapse/pkg/models"
)

// MockWorkflowRepository is a mock implementation of
// persistence.WorkflowRepository.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) Create(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) ListByUser(ctx context.Context, userID string) ([]*models.Workflow, error) {
	args := m.Called(ctx, userID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Update(ctx context.Context, id string, patch models.WorkflowPatch) (*models.Workflow, error) {
	args := m.Called(ctx, id, patch)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockExecutionRepository is a mock implementation of
// persistence.ExecutionRepository.
type MockExecutionRepository struct {
	mock.Mock
}

func (m *MockExecutionRepository) Create(ctx context.Context, execution *models.Execution) error {
	args := m.Called(ctx, execution)

	return args.Error(0)
}

func (m *MockExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	args := m.Called(ctx, id)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Execution), args.Error(1)
}

func (m *MockExecutionRepository) Update(ctx context.Context, execution *models.Execution) error {
	args := m.Called(ctx, execution)

	return args.Error(0)
}

func (m *MockExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error) {
	args := m.Called(ctx, workflowID, limit)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Execution), args.Error(1)
}

func (m *MockExecutionRepository) CountByUser(ctx context.Context, userID string) (int64, int64, error) {
	args := m.Called(ctx, userID)

	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockExecutionRepository) CountStartedBetween(ctx context.Context, userID string, from, to time.Time) (int64, error) {
	args := m.Called(ctx, userID, from, to)

	return args.Get(0).(int64), args.Error(1)
}

func (m *MockExecutionRepository) ListRunningBefore(ctx context.Context, cutoff time.Time) ([]*models.Execution, error) {
	args := m.Called(ctx, cutoff)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Execution), args.Error(1)
}

// MockActivityRepository is a mock implementation of
// persistence.ActivityRepository.
type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) Append(ctx context.Context, activity *models.Activity) error {
	args := m.Called(ctx, activity)

	return args.Error(0)
}

func (m *MockActivityRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Activity, error) {
	args := m.Called(ctx, userID, limit)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Activity), args.Error(1)
}

func (m *MockActivityRepository) ListByExecution(ctx context.Context, executionID string, limit int) ([]*models.Activity, error) {
	args := m.Called(ctx, executionID, limit)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Activity), args.Error(1)
}
