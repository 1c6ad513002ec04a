package domain

import (
	"strings"
	"time"
)

// ScheduledTask represents a recurring endpoint poll.
type ScheduledTask struct {
	// ID is the unique identifier for the task.
	ID string

	// Name is a human-readable name for the task.
	Name string

	// Interval defines how often the task should run.
	Interval time.Duration

	// LastRun is when the task last ran.
	LastRun time.Time

	// NextRun is when the task should run next.
	NextRun time.Time

	// LastError contains the last error message, if any.
	LastError string

	// LastSuccess is when the task last completed successfully.
	LastSuccess time.Time

	// Enabled indicates whether the task is active.
	Enabled bool
}

// PollRun is the log entry of one scheduled poll.
type PollRun struct {
	TaskID string

	// PollID is the id the poll's sink tagged emitted items with. Empty
	// when the poll failed before it was assigned one.
	PollID string

	StartedAt time.Time
	EndedAt   time.Time

	// Items is the number of items the sink accepted.
	Items int

	// Error is the poll's error message, empty on success.
	Error string
}

// Succeeded reports whether the run completed without error.
func (r *PollRun) Succeeded() bool {
	return r.Error == ""
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool

	// TickInterval is how often due tasks are checked.
	TickInterval time.Duration

	// HistoryLimit is how many runs are kept per task.
	HistoryLimit int
}

// DefaultSchedulerConfig returns sensible defaults for the scheduler.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:      true,
		TickInterval: 15 * time.Second,
		HistoryLimit: 100,
	}
}

// pollTaskPrefix prefixes the task ID of every endpoint poll.
const pollTaskPrefix = "poll:"

// PollTaskID returns the scheduler task ID for an endpoint.
func PollTaskID(endpointID string) string {
	return pollTaskPrefix + endpointID
}

// EndpointFromTaskID extracts the endpoint ID from a poll task ID.
func EndpointFromTaskID(taskID string) (string, bool) {
	id, ok := strings.CutPrefix(taskID, pollTaskPrefix)
	return id, ok && id != ""
}
