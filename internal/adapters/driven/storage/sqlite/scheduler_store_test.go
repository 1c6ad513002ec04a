package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
)

func TestSchedulerStore_TaskRoundTrip(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	tasks := store.SchedulerStore()

	at := time.Date(2024, 5, 2, 9, 30, 15, 250, time.UTC)
	tests := []struct {
		name string
		task domain.ScheduledTask
	}{
		{
			name: "fresh task",
			task: domain.ScheduledTask{ID: "poll:new", Name: "new", Interval: time.Minute, Enabled: true},
		},
		{
			name: "polled task",
			task: domain.ScheduledTask{
				ID:          "poll:docs",
				Name:        "docs",
				Interval:    45 * time.Minute,
				LastRun:     at,
				NextRun:     at.Add(45 * time.Minute),
				LastSuccess: at.Add(time.Second),
				Enabled:     true,
			},
		},
		{
			name: "failing disabled task",
			task: domain.ScheduledTask{
				ID:        "poll:broken",
				Name:      "broken",
				Interval:  time.Hour,
				LastRun:   at,
				LastError: `resolve "/Missing": not found`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tasks.SaveTask(ctx, &tt.task))

			got, err := tasks.GetTask(ctx, tt.task.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.task, *got)
		})
	}
}

func TestSchedulerStore_GetTask_Unknown(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	task, err := store.SchedulerStore().GetTask(context.Background(), "poll:nobody")
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestSchedulerStore_SaveTask_Replaces(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	tasks := store.SchedulerStore()

	task := &domain.ScheduledTask{ID: "poll:docs", Name: "docs", Interval: time.Hour, Enabled: true, LastError: "timeout"}
	require.NoError(t, tasks.SaveTask(ctx, task))

	task.Interval = 2 * time.Hour
	task.LastError = ""
	task.Enabled = false
	require.NoError(t, tasks.SaveTask(ctx, task))

	got, err := tasks.GetTask(ctx, "poll:docs")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, got.Interval)
	assert.Empty(t, got.LastError)
	assert.False(t, got.Enabled)

	all, err := tasks.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSchedulerStore_SaveTask_Nil(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.SchedulerStore().SaveTask(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSchedulerStore_ListTasks_OrderedByID(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	tasks := store.SchedulerStore()

	empty, err := tasks.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, id := range []string{"poll:c", "poll:a", "poll:b"} {
		require.NoError(t, tasks.SaveTask(ctx, &domain.ScheduledTask{ID: id, Name: id, Interval: time.Hour}))
	}

	all, err := tasks.ListTasks(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for i := range all {
		ids = append(ids, all[i].ID)
	}
	assert.Equal(t, []string{"poll:a", "poll:b", "poll:c"}, ids)
}

func TestSchedulerStore_AppendRun_NewestFirst(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	tasks := store.SchedulerStore()

	start := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	ok := &domain.PollRun{
		TaskID:    "poll:docs",
		PollID:    "9b2d5c1e-0f4a-4c55-8d0e-3a1f2b7c6d90",
		StartedAt: start,
		EndedAt:   start.Add(3 * time.Second),
		Items:     12,
	}
	failed := &domain.PollRun{
		TaskID:    "poll:docs",
		StartedAt: start.Add(time.Minute),
		EndedAt:   start.Add(time.Minute),
		Error:     "open repository: connection refused",
	}
	require.NoError(t, tasks.AppendRun(ctx, ok, 10))
	require.NoError(t, tasks.AppendRun(ctx, failed, 10))

	runs, err := tasks.Runs(ctx, "poll:docs", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, *failed, runs[0])
	assert.Equal(t, *ok, runs[1])

	latest, err := tasks.Runs(ctx, "poll:docs", 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.False(t, latest[0].Succeeded())
	assert.Empty(t, latest[0].PollID)
}

func TestSchedulerStore_AppendRun_Nil(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.SchedulerStore().AppendRun(context.Background(), nil, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSchedulerStore_AppendRun_TrimsPerTask(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	tasks := store.SchedulerStore()

	start := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	for i := 1; i <= 5; i++ {
		for _, taskID := range []string{"poll:a", "poll:b"} {
			require.NoError(t, tasks.AppendRun(ctx, &domain.PollRun{
				TaskID:    taskID,
				PollID:    fmt.Sprintf("%s-%d", taskID, i),
				StartedAt: start.Add(time.Duration(i) * time.Minute),
				EndedAt:   start.Add(time.Duration(i) * time.Minute),
				Items:     i,
			}, 3))
		}
	}

	for _, taskID := range []string{"poll:a", "poll:b"} {
		runs, err := tasks.Runs(ctx, taskID, 0)
		require.NoError(t, err)
		require.Len(t, runs, 3, taskID)
		assert.Equal(t, []int{5, 4, 3}, []int{runs[0].Items, runs[1].Items, runs[2].Items})
		assert.Equal(t, taskID+"-5", runs[0].PollID)
	}
}

func TestSchedulerStore_AppendRun_KeepAll(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	tasks := store.SchedulerStore()

	now := time.Now()
	for i := 0; i < 4; i++ {
		require.NoError(t, tasks.AppendRun(ctx, &domain.PollRun{TaskID: "poll:docs", StartedAt: now, EndedAt: now}, 0))
	}

	runs, err := tasks.Runs(ctx, "poll:docs", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 4)
}

func TestSchedulerStore_DeleteTask_DropsRuns(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	tasks := store.SchedulerStore()

	now := time.Now()
	for _, id := range []string{"poll:gone", "poll:kept"} {
		require.NoError(t, tasks.SaveTask(ctx, &domain.ScheduledTask{ID: id, Name: id, Interval: time.Hour, Enabled: true}))
		require.NoError(t, tasks.AppendRun(ctx, &domain.PollRun{TaskID: id, PollID: id, StartedAt: now, EndedAt: now}, 10))
	}

	require.NoError(t, tasks.DeleteTask(ctx, "poll:gone"))

	gone, err := tasks.GetTask(ctx, "poll:gone")
	require.NoError(t, err)
	assert.Nil(t, gone)
	runs, err := tasks.Runs(ctx, "poll:gone", 0)
	require.NoError(t, err)
	assert.Empty(t, runs)

	kept, err := tasks.Runs(ctx, "poll:kept", 0)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestTimeColumns(t *testing.T) {
	at := time.Date(2024, 5, 2, 9, 30, 15, 123456789, time.FixedZone("CEST", 2*60*60))

	tests := []struct {
		name  string
		value any
		want  any
	}{
		{"zero time is NULL", timeValue(time.Time{}), nil},
		{"time is UTC text", timeValue(at), "2024-05-02T07:30:15.123456789Z"},
		{"empty string is NULL", nullString(""), nil},
		{"string kept", nullString("boom"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value)
		})
	}

	assert.True(t, at.Equal(parseTime(formatTime(at))))
	assert.True(t, parseTime("").IsZero())
	assert.True(t, parseTime("yesterday").IsZero())
}
