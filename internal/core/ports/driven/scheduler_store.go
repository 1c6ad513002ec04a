package driven

import (
	"context"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
)

// SchedulerStore keeps poll tasks and a bounded run log per task, so a
// restarted scheduler resumes each endpoint on its previous schedule.
type SchedulerStore interface {
	// GetTask returns the task, or nil and no error when it is unknown.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)

	// ListTasks returns every task ordered by ID.
	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask creates or replaces a task.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	// DeleteTask removes a task together with its run log.
	DeleteTask(ctx context.Context, taskID string) error

	// AppendRun logs a run and trims the task's log to its keep newest
	// entries. keep <= 0 keeps everything.
	AppendRun(ctx context.Context, run *domain.PollRun, keep int) error

	// Runs returns up to limit runs of a task, newest first.
	Runs(ctx context.Context, taskID string, limit int) ([]domain.PollRun, error)
}
