package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driving"
	"github.com/custodia-labs/cmis-poller/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler polls every configured endpoint on its interval.
// Task state and run history persist in the scheduler store so a restart
// resumes where the previous process left off.
type Scheduler struct {
	config    domain.SchedulerConfig
	store     driven.SchedulerStore
	endpoints driven.EndpointStore
	polls     driving.PollOrchestrator

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	inflight map[string]bool
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	endpoints driven.EndpointStore,
	polls driving.PollOrchestrator,
) *Scheduler {
	if config.TickInterval <= 0 {
		config.TickInterval = domain.DefaultSchedulerConfig().TickInterval
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = domain.DefaultSchedulerConfig().HistoryLimit
	}
	return &Scheduler{
		config:    config,
		store:     store,
		endpoints: endpoints,
		polls:     polls,
		inflight:  make(map[string]bool),
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		return nil
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.Reload(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler and waits for running polls.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Reload synchronises stored tasks with the configured endpoints: new
// endpoints get a task, changed intervals are rescheduled and tasks of
// removed endpoints are deleted.
func (s *Scheduler) Reload(ctx context.Context) error {
	endpoints, err := s.endpoints.List(ctx)
	if err != nil {
		return err
	}

	configured := make(map[string]bool, len(endpoints))
	for i := range endpoints {
		ep := &endpoints[i]
		id := domain.PollTaskID(ep.ID)
		configured[id] = true
		if err := s.ensureTask(ctx, id, ep.ID, ep.PollInterval()); err != nil {
			return err
		}
	}

	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return err
	}
	for i := range tasks {
		id := tasks[i].ID
		if _, ok := domain.EndpointFromTaskID(id); ok && !configured[id] {
			logger.Debug("scheduler: removing task %s", id)
			if err := s.store.DeleteTask(ctx, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, interval time.Duration) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		// New endpoints poll on the first tick.
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: interval,
			Enabled:  true,
		}
	} else if task.Interval != interval {
		task.Interval = interval
		task.NextRun = time.Now().Add(interval)
	}
	task.Enabled = true

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	// Check for due tasks immediately on startup
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		task := &tasks[i]
		if !task.Enabled {
			continue
		}
		if task.NextRun.IsZero() || !task.NextRun.After(now) {
			s.runTask(ctx, task)
		}
	}
}

// runTask polls the task's endpoint in the background unless a previous
// run of the same task is still going.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	endpointID, ok := domain.EndpointFromTaskID(task.ID)
	if !ok {
		logger.Warn("scheduler: unknown task ID: %s", task.ID)
		return
	}

	s.mu.Lock()
	if s.inflight[task.ID] {
		s.mu.Unlock()
		logger.Debug("scheduler: %s still running, skipping", task.ID)
		return
	}
	s.inflight[task.ID] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inflight, task.ID)
			s.mu.Unlock()
		}()

		run := &domain.PollRun{TaskID: task.ID, StartedAt: time.Now()}
		count, err := s.polls.Poll(ctx, endpointID)
		run.Items = count
		run.EndedAt = time.Now()
		if status, statusErr := s.polls.Status(ctx, endpointID); statusErr == nil {
			run.PollID = status.LastPollID
		}
		if err != nil {
			run.Error = err.Error()
			logger.Warn("scheduler: poll %s failed: %v", endpointID, err)
		}

		// A reload may have removed the endpoint while the poll ran.
		current, getErr := s.store.GetTask(ctx, task.ID)
		if getErr != nil {
			logger.Warn("scheduler: failed to reload task %s: %v", task.ID, getErr)
			return
		}
		if current == nil {
			logger.Debug("scheduler: task %s removed during poll", task.ID)
			return
		}

		current.LastRun = run.StartedAt
		current.NextRun = run.EndedAt.Add(current.Interval)
		if run.Succeeded() {
			current.LastError = ""
			current.LastSuccess = run.EndedAt
		} else {
			current.LastError = firstLine(run.Error)
		}

		if saveErr := s.store.SaveTask(ctx, current); saveErr != nil {
			logger.Warn("scheduler: failed to save task %s: %v", task.ID, saveErr)
		}
		if appendErr := s.store.AppendRun(ctx, run, s.config.HistoryLimit); appendErr != nil {
			logger.Warn("scheduler: failed to log run of %s: %v", task.ID, appendErr)
		}
	}()
}

// LastRun returns the most recent scheduled poll of an endpoint, or nil.
func (s *Scheduler) LastRun(ctx context.Context, endpointID string) (*domain.PollRun, error) {
	runs, err := s.store.Runs(ctx, domain.PollTaskID(endpointID), 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
