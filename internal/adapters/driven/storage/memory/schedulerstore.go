package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
)

// Ensure SchedulerStore implements the interface.
var _ driven.SchedulerStore = (*SchedulerStore)(nil)

// SchedulerStore is an in-memory implementation of driven.SchedulerStore.
type SchedulerStore struct {
	mu    sync.RWMutex
	tasks map[string]domain.ScheduledTask
	runs  map[string][]domain.PollRun // newest first
}

// NewSchedulerStore creates a new in-memory scheduler store.
func NewSchedulerStore() *SchedulerStore {
	return &SchedulerStore{
		tasks: make(map[string]domain.ScheduledTask),
		runs:  make(map[string][]domain.PollRun),
	}
}

// GetTask retrieves a task by ID, or nil if it does not exist.
func (s *SchedulerStore) GetTask(_ context.Context, taskID string) (*domain.ScheduledTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, nil
	}
	return &task, nil
}

// ListTasks returns all tasks ordered by ID.
func (s *SchedulerStore) ListTasks(_ context.Context) ([]domain.ScheduledTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.ScheduledTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		result = append(result, task)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// SaveTask creates or updates a task.
func (s *SchedulerStore) SaveTask(_ context.Context, task *domain.ScheduledTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = *task
	return nil
}

// DeleteTask removes a task and its run log.
func (s *SchedulerStore) DeleteTask(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, taskID)
	delete(s.runs, taskID)
	return nil
}

// AppendRun logs run and keeps the task's keep newest runs.
func (s *SchedulerStore) AppendRun(_ context.Context, run *domain.PollRun, keep int) error {
	if run == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := append([]domain.PollRun{*run}, s.runs[run.TaskID]...)
	if keep > 0 && len(runs) > keep {
		runs = runs[:keep]
	}
	s.runs[run.TaskID] = runs
	return nil
}

// Runs returns up to limit runs of a task, newest first.
func (s *SchedulerStore) Runs(_ context.Context, taskID string, limit int) ([]domain.PollRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := s.runs[taskID]
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return append([]domain.PollRun{}, runs...), nil
}
