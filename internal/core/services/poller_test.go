package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/cmis-poller/internal/connectors/memory"
	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
)

func TestPollingFacade_Poll_TreeMode(t *testing.T) {
	repo := nestedRepository(t)
	sink := newRecordingSink()

	facade := NewPollingFacade(repo, sink, domain.TreeMode{FolderPath: "/"})
	count, err := facade.Poll(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.Equal(t, []string{"", "Folder1", "Folder2", "Doc2.1", "Doc2.2"}, sink.names())
}

func TestPollingFacade_Poll_TreeModeSubfolder(t *testing.T) {
	repo := nestedRepository(t)
	sink := newRecordingSink()

	facade := NewPollingFacade(repo, sink, domain.TreeMode{FolderPath: "/Folder1/Folder2", ReadContent: true})
	count, err := facade.Poll(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, []string{"Folder2", "Doc2.1", "Doc2.2"}, sink.names())
	assert.Equal(t, "two one", sink.bodies["Doc2.1"])
}

func TestPollingFacade_Poll_MissingFolder(t *testing.T) {
	repo := nestedRepository(t)
	sink := newRecordingSink()

	facade := NewPollingFacade(repo, sink, domain.TreeMode{FolderPath: "/does/not/exist"})
	count, err := facade.Poll(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, domain.IsResolutionError(err))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, count)
	assert.Zero(t, sink.count())
}

func TestPollingFacade_Poll_RootIsDocument(t *testing.T) {
	repo := memory.NewRepository("test")
	repo.AddDocument("/", "file.txt", nil, "")
	sink := newRecordingSink()

	_, err := NewPollingFacade(repo, sink, domain.TreeMode{FolderPath: "/file.txt"}).Poll(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, domain.IsResolutionError(err))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, sink.count())
}

func TestPollingFacade_Poll_TreeBudget(t *testing.T) {
	repo := nestedRepository(t)
	sink := newRecordingSink()

	count, err := NewPollingFacade(repo, sink, domain.TreeMode{FolderPath: "/"}).Poll(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []string{"", "Folder1"}, sink.names())
}

func TestPollingFacade_Poll_QueryMode(t *testing.T) {
	repo := queryRepository(t)
	sink := summaryRecordingSink{newRecordingSink()}

	facade := NewPollingFacade(repo, sink, domain.QueryMode{Statement: nameQuery})
	count, err := facade.Poll(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"test1.txt"}, sink.names())
	assert.Equal(t, domain.Properties{domain.KeyResultCount: 1}, sink.summary)
}

func TestPollingFacade_Poll_QueryMaxResults(t *testing.T) {
	repo := queryRepository(t)
	sink := summaryRecordingSink{newRecordingSink()}

	facade := NewPollingFacade(repo, sink, domain.QueryMode{
		Statement: "SELECT * FROM cmis:document",
		Options:   domain.QueryOptions{MaxResults: 1},
	})
	count, err := facade.Poll(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, sink.count())
	assert.Equal(t, 1, sink.summary[domain.KeyResultCount])
}

func TestPollingFacade_Poll_QueryBudgetCapsResults(t *testing.T) {
	repo := queryRepository(t)
	sink := summaryRecordingSink{newRecordingSink()}

	facade := NewPollingFacade(repo, sink, domain.QueryMode{Statement: "SELECT * FROM cmis:document"})
	count, err := facade.Poll(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, count, sink.summary[domain.KeyResultCount])
	assert.Len(t, repo.Fetches(), 1)
}

func TestPollingFacade_Poll_QuerySummaryCountsEmitted(t *testing.T) {
	repo := queryRepository(t)
	inner := newRecordingSink()
	inner.skipName = "test2.txt"
	sink := summaryRecordingSink{inner}

	count, err := NewPollingFacade(repo, sink, domain.QueryMode{Statement: likeQuery}).Poll(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"test1.txt"}, sink.names())
	assert.Equal(t, domain.Properties{domain.KeyResultCount: 1}, sink.summary)
}

func TestPollingFacade_Poll_QueryDeclinedRowsKeepBudget(t *testing.T) {
	repo := queryRepository(t)
	inner := newRecordingSink()
	inner.skipName = "test1.txt"
	sink := summaryRecordingSink{inner}

	count, err := NewPollingFacade(repo, sink, domain.QueryMode{Statement: likeQuery}).Poll(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"test2.txt"}, sink.names())
	assert.Equal(t, 1, sink.summary[domain.KeyResultCount])
}

func TestPollingFacade_Poll_QueryWithoutSummarySink(t *testing.T) {
	repo := queryRepository(t)
	sink := newRecordingSink()

	count, err := NewPollingFacade(repo, sink, domain.QueryMode{Statement: nameQuery}).Poll(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	for _, item := range sink.items {
		assert.NotContains(t, item.Properties, domain.KeyResultCount)
		assert.NotContains(t, item.Properties, domain.KeyParentFolderPath)
	}
}

func TestPollingFacade_Poll_QueryEmitErrorStops(t *testing.T) {
	repo := queryRepository(t)
	calls := 0
	sink := driven.SinkFunc(func(_ context.Context, item domain.EmittedItem) (int, error) {
		item.Content.Close() //nolint:errcheck
		return 0, errors.New("rejected")
	})

	facade := NewPollingFacade(repo, countCalls(sink, &calls), domain.QueryMode{
		Statement: "SELECT * FROM cmis:document",
		Options:   domain.QueryOptions{RetrieveContent: true},
	})
	_, err := facade.Poll(context.Background(), 0)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestPollingFacade_Poll_QueryFailure(t *testing.T) {
	repo := queryRepository(t)
	repo.FailQuery(nameQuery, 0, errors.New("timeout"))
	sink := summaryRecordingSink{newRecordingSink()}

	count, err := NewPollingFacade(repo, sink, domain.QueryMode{Statement: nameQuery}).Poll(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, domain.IsEnumerationError(err))
	assert.Zero(t, count)
	assert.Nil(t, sink.summary)
}

func TestPollingFacade_Mode(t *testing.T) {
	mode := domain.QueryMode{Statement: nameQuery}
	facade := NewPollingFacade(memory.NewRepository("test"), newRecordingSink(), mode)
	assert.Equal(t, mode, facade.Mode())
}

// countCalls wraps sink and counts the items reaching it.
func countCalls(sink driven.Sink, calls *int) driven.Sink {
	return driven.SinkFunc(func(ctx context.Context, item domain.EmittedItem) (int, error) {
		*calls++
		return sink.Emit(ctx, item)
	})
}
