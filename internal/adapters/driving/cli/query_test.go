package cli

import (
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
)

func textStream(body, mime string) *domain.ContentStream {
	return &domain.ContentStream{
		MimeType: mime,
		Length:   int64(len(body)),
		Body:     io.NopCloser(strings.NewReader(body)),
	}
}

func sampleResult() *domain.QueryResult {
	return &domain.QueryResult{
		Items: []domain.EmittedItem{
			{
				Properties: domain.Properties{
					domain.PropObjectID:     "doc-1",
					domain.PropName:         "test1.txt",
					domain.PropObjectTypeID: domain.TypeDocument,
				},
				Content: textStream("hello", "text/plain"),
			},
			{
				Properties: domain.Properties{
					domain.PropObjectID: "doc-2",
					domain.PropName:     "test2.txt",
				},
			},
		},
		Count: 2,
	}
}

func TestQueryCmd_Args(t *testing.T) {
	assert.Error(t, queryCmd.Args(queryCmd, []string{"docs"}))
	assert.NoError(t, queryCmd.Args(queryCmd, []string{"docs", "SELECT * FROM cmis:document"}))
}

func TestQueryCmd_Table(t *testing.T) {
	sessions := &mockSessions{result: sampleResult()}
	stdout, _ := setupTestServices(t, &Services{Sessions: sessions})

	require.NoError(t, execute(t, "query", "docs", "SELECT * FROM cmis:document", "--max", "5", "--content"))

	assert.Equal(t, "docs", sessions.endpoint)
	assert.Equal(t, "SELECT * FROM cmis:document", sessions.statement)
	assert.Equal(t, domain.QueryOptions{RetrieveContent: true, MaxResults: 5, PageSize: 10}, sessions.opts)

	out := stdout.String()
	assert.Contains(t, out, "Results (2):")
	assert.Contains(t, out, "[1] test1.txt")
	assert.Contains(t, out, "[2] test2.txt")
	assert.Contains(t, out, "text/plain")
}

func TestQueryCmd_NoResults(t *testing.T) {
	stdout, _ := setupTestServices(t, &Services{Sessions: &mockSessions{}})

	require.NoError(t, execute(t, "query", "docs", "SELECT * FROM cmis:folder"))

	assert.Contains(t, stdout.String(), "No results found.")
}

func TestQueryCmd_JSON(t *testing.T) {
	stdout, _ := setupTestServices(t, &Services{Sessions: &mockSessions{result: sampleResult()}})

	require.NoError(t, execute(t, "query", "docs", "SELECT * FROM cmis:document", "--json"))

	var rows []queryRow
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "aGVsbG8=", rows[0].Content)
	assert.Equal(t, "text/plain", rows[0].MimeType)
	assert.Equal(t, "test2.txt", rows[1].Properties[domain.PropName])
	assert.Empty(t, rows[1].Content)
}

func TestQueryCmd_Error(t *testing.T) {
	setupTestServices(t, &Services{Sessions: &mockSessions{err: domain.ErrNotFound}})

	err := execute(t, "query", "docs", "SELECT * FROM cmis:document")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "query failed")
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestToQueryRows_ClosesContent(t *testing.T) {
	first := &closeTracker{Reader: strings.NewReader("a")}
	second := &closeTracker{Reader: strings.NewReader("b")}
	result := &domain.QueryResult{
		Items: []domain.EmittedItem{
			{Properties: domain.Properties{}, Content: &domain.ContentStream{Body: first}},
			{Properties: domain.Properties{}, Content: &domain.ContentStream{Body: second}},
		},
		Count: 2,
	}

	rows, err := toQueryRows(result)

	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.True(t, first.closed)
	assert.True(t, second.closed)
}
