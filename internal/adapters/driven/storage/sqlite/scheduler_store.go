package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
)

var _ driven.SchedulerStore = (*schedulerStore)(nil)

// schedulerStore keeps poll tasks in poll_tasks and their run log in
// poll_runs.
type schedulerStore struct {
	store *Store
}

const taskColumns = `id, name, interval_seconds, enabled, last_run, next_run, last_success, last_error`

// GetTask returns the task, or nil when it is unknown.
func (s *schedulerStore) GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM poll_tasks WHERE id = ?`, taskID)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return task, err
}

// ListTasks returns every task ordered by ID.
func (s *schedulerStore) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	rows, err := s.store.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM poll_tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list poll tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.ScheduledTask{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list poll tasks: %w", err)
	}
	return tasks, nil
}

// SaveTask creates or replaces a task.
func (s *schedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO poll_tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Name, int64(task.Interval/time.Second), task.Enabled,
		timeValue(task.LastRun), timeValue(task.NextRun), timeValue(task.LastSuccess),
		nullString(task.LastError))
	if err != nil {
		return fmt.Errorf("save poll task %s: %w", task.ID, err)
	}
	return nil
}

// DeleteTask removes a task and its run log in one transaction.
func (s *schedulerStore) DeleteTask(ctx context.Context, taskID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM poll_runs WHERE task_id = ?`, taskID); err != nil {
			return fmt.Errorf("delete runs of %s: %w", taskID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM poll_tasks WHERE id = ?`, taskID); err != nil {
			return fmt.Errorf("delete poll task %s: %w", taskID, err)
		}
		return nil
	})
}

// AppendRun logs run and drops the task's runs beyond the keep newest.
func (s *schedulerStore) AppendRun(ctx context.Context, run *domain.PollRun, keep int) error {
	if run == nil {
		return domain.ErrInvalidInput
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO poll_runs (task_id, poll_id, started_at, ended_at, items, error)
			VALUES (?, ?, ?, ?, ?, ?)`,
			run.TaskID, nullString(run.PollID),
			formatTime(run.StartedAt), formatTime(run.EndedAt),
			run.Items, nullString(run.Error))
		if err != nil {
			return fmt.Errorf("log run of %s: %w", run.TaskID, err)
		}
		if keep <= 0 {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			DELETE FROM poll_runs
			WHERE task_id = ? AND seq NOT IN (
				SELECT seq FROM poll_runs WHERE task_id = ? ORDER BY seq DESC LIMIT ?
			)`, run.TaskID, run.TaskID, keep)
		if err != nil {
			return fmt.Errorf("trim runs of %s: %w", run.TaskID, err)
		}
		return nil
	})
}

// Runs returns up to limit runs of a task, newest first. limit <= 0
// returns the whole log.
func (s *schedulerStore) Runs(ctx context.Context, taskID string, limit int) ([]domain.PollRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT task_id, poll_id, started_at, ended_at, items, error
		FROM poll_runs WHERE task_id = ?
		ORDER BY seq DESC LIMIT ?`, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs of %s: %w", taskID, err)
	}
	defer rows.Close()

	runs := []domain.PollRun{}
	for rows.Next() {
		var (
			run               domain.PollRun
			pollID, errMsg    sql.NullString
			started, finished string
		)
		if err := rows.Scan(&run.TaskID, &pollID, &started, &finished, &run.Items, &errMsg); err != nil {
			return nil, fmt.Errorf("scan run of %s: %w", taskID, err)
		}
		run.PollID = pollID.String
		run.Error = errMsg.String
		run.StartedAt = parseTime(started)
		run.EndedAt = parseTime(finished)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs of %s: %w", taskID, err)
	}
	return runs, nil
}

func (s *schedulerStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback() //nolint:errcheck // the fn error wins
		return err
	}
	return tx.Commit()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTask reads one poll_tasks row. A missing row surfaces as sql.ErrNoRows.
func scanTask(row scanner) (*domain.ScheduledTask, error) {
	var (
		task                          domain.ScheduledTask
		seconds                       int64
		lastRun, nextRun, lastSuccess sql.NullString
		lastError                     sql.NullString
	)
	err := row.Scan(&task.ID, &task.Name, &seconds, &task.Enabled,
		&lastRun, &nextRun, &lastSuccess, &lastError)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan poll task: %w", err)
	}

	task.Interval = time.Duration(seconds) * time.Second
	task.LastRun = parseTime(lastRun.String)
	task.NextRun = parseTime(nextRun.String)
	task.LastSuccess = parseTime(lastSuccess.String)
	task.LastError = lastError.String
	return &task, nil
}

// formatTime renders t as RFC 3339 in UTC with nanoseconds.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// timeValue is formatTime for nullable columns: the zero time is NULL.
func timeValue(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

// parseTime reads a stored timestamp; empty or malformed text is the zero time.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullString stores the empty string as NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
