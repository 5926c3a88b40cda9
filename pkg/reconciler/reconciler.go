// Package reconciler sweeps stuck executions. A process crash between start
// and completion leaves an execution RUNNING forever; the sweep marks those
// FAILED once they exceed the timeout, through the execution service so the
// single-completion rule still holds.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/synapse-flow/synapse/pkg/models"
	"github.com/synapse-flow/synapse/pkg/persistence"
	"github.com/synapse-flow/synapse/pkg/services"
)

const (
	// DefaultSchedule runs the sweep every minute.
	DefaultSchedule = "@every 1m"

	// DefaultExecutionTimeout is how long an execution may stay RUNNING
	// before the sweep gives up on it.
	DefaultExecutionTimeout = 30 * time.Minute

	timedOutMessage = "execution timed out"
)

type Reconciler struct {
	executions persistence.ExecutionRepository
	service    *services.ExecutionService
	schedule   string
	timeout    time.Duration
	logger     *slog.Logger
	cron       *cron.Cron
	now        func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithSchedule overrides the cron schedule expression.
func WithSchedule(schedule string) Option {
	return func(r *Reconciler) { r.schedule = schedule }
}

// WithExecutionTimeout overrides the stuck-execution age threshold.
func WithExecutionTimeout(timeout time.Duration) Option {
	return func(r *Reconciler) { r.timeout = timeout }
}

func New(executions persistence.ExecutionRepository, service *services.ExecutionService, logger *slog.Logger, opts ...Option) *Reconciler {
	reconciler := &Reconciler{
		executions: executions,
		service:    service,
		schedule:   DefaultSchedule,
		timeout:    DefaultExecutionTimeout,
		logger:     logger.With("module", "reconciler"),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(reconciler)
	}

	return reconciler
}

// Start schedules the periodic sweep.
func (r *Reconciler) Start(ctx context.Context) error {
	r.cron = cron.New()

	_, err := r.cron.AddFunc(r.schedule, func() {
		r.Sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reconciler: %w", err)
	}

	r.cron.Start()
	r.logger.InfoContext(ctx, "Reconciler started",
		"schedule", r.schedule,
		"timeout", r.timeout)

	return nil
}

// Stop halts the schedule and waits for an in-flight sweep.
func (r *Reconciler) Stop() {
	if r.cron == nil {
		return
	}

	<-r.cron.Stop().Done()
	r.logger.Info("Reconciler stopped")
}

// Sweep fails every RUNNING execution older than the timeout. Conflicts are
// fine: a racing completion means the execution was not stuck after all.
func (r *Reconciler) Sweep(ctx context.Context) {
	cutoff := r.now().UTC().Add(-r.timeout)

	stuck, err := r.executions.ListRunningBefore(ctx, cutoff)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to list stuck executions", "error", err)

		return
	}

	for _, execution := range stuck {
		_, err := r.service.CompleteExecution(ctx, execution.ID, models.ExecutionStatusFailed, timedOutMessage)
		if err != nil {
			if services.IsConflict(err) {
				continue
			}

			r.logger.ErrorContext(ctx, "Failed to reconcile stuck execution",
				"execution_id", execution.ID,
				"error", err)

			continue
		}

		r.logger.WarnContext(ctx, "Marked stuck execution as failed",
			"execution_id", execution.ID,
			"workflow_id", execution.WorkflowID,
			"started_at", execution.StartedAt)
	}
}
