package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
)

func TestSchedulerStore_Tasks(t *testing.T) {
	store := NewSchedulerStore()
	ctx := context.Background()

	missing, err := store.GetTask(ctx, "poll:docs")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{ID: "poll:reports", Interval: time.Minute}))
	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{ID: "poll:docs", Interval: time.Hour}))
	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{ID: "poll:docs", Interval: 2 * time.Hour}))

	task, err := store.GetTask(ctx, "poll:docs")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, 2*time.Hour, task.Interval)

	tasks, err := store.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "poll:docs", tasks[0].ID)
	assert.Equal(t, "poll:reports", tasks[1].ID)
}

func TestSchedulerStore_Runs(t *testing.T) {
	store := NewSchedulerStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := range 5 {
		require.NoError(t, store.AppendRun(ctx, &domain.PollRun{
			TaskID:    "poll:docs",
			PollID:    fmt.Sprintf("run-%d", i),
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Items:     i,
		}, 3))
	}
	require.NoError(t, store.AppendRun(ctx, &domain.PollRun{TaskID: "poll:other", StartedAt: base}, 3))

	latest, err := store.Runs(ctx, "poll:docs", 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "run-4", latest[0].PollID)
	assert.Equal(t, 3, latest[1].Items)

	all, err := store.Runs(ctx, "poll:docs", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 2, all[2].Items)

	other, err := store.Runs(ctx, "poll:other", 0)
	require.NoError(t, err)
	assert.Len(t, other, 1)

	assert.ErrorIs(t, store.AppendRun(ctx, nil, 3), domain.ErrInvalidInput)
}

func TestSchedulerStore_DeleteTask(t *testing.T) {
	store := NewSchedulerStore()
	ctx := context.Background()

	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{ID: "poll:docs"}))
	require.NoError(t, store.AppendRun(ctx, &domain.PollRun{TaskID: "poll:docs"}, 0))
	require.NoError(t, store.DeleteTask(ctx, "poll:docs"))

	task, err := store.GetTask(ctx, "poll:docs")
	require.NoError(t, err)
	assert.Nil(t, task)

	runs, err := store.Runs(ctx, "poll:docs", 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
