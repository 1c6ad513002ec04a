package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
)

// Tool defaults.
const (
	defaultMaxResults = 20
	maxContentBytes   = 1 << 20
)

// QueryInput is the input schema for the cmis_query tool.
type QueryInput struct {
	Endpoint       string `json:"endpoint" jsonschema:"id of the configured repository endpoint"`
	Statement      string `json:"statement" jsonschema:"CMIS query, e.g. SELECT * FROM cmis:document WHERE cmis:name LIKE 'report%'"`
	MaxResults     int    `json:"max_results,omitempty" jsonschema:"maximum number of rows to return (default 20)"`
	IncludeContent bool   `json:"include_content,omitempty" jsonschema:"attach document content to document rows"`
}

// QueryOutput is the output schema for the cmis_query tool.
type QueryOutput struct {
	Rows  []QueryRow `json:"rows"`
	Count int        `json:"count"`
}

// QueryRow is one query result row.
type QueryRow struct {
	Properties map[string]any `json:"properties"`

	// Content holds text content; ContentBase64 holds anything else.
	Content       string `json:"content,omitempty"`
	ContentBase64 string `json:"content_base64,omitempty"`
	MimeType      string `json:"mime_type,omitempty"`
	Truncated     bool   `json:"truncated,omitempty"`
}

// PollInput is the input schema for the cmis_poll tool.
type PollInput struct {
	Endpoint string `json:"endpoint" jsonschema:"id of the configured repository endpoint"`
}

// PollOutput is the output schema for the cmis_poll tool.
type PollOutput struct {
	Endpoint string `json:"endpoint"`
	Items    int    `json:"items"`
	PollID   string `json:"poll_id,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "cmis_query",
		Description: "Run a CMIS query against a configured repository endpoint",
	}, s.handleQuery)

	if s.ports.Polls != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "cmis_poll",
			Description: "Poll a configured repository endpoint into its sink",
		}, s.handlePoll)
	}
}

// handleQuery handles the cmis_query tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	if input.Endpoint == "" || strings.TrimSpace(input.Statement) == "" {
		return nil, QueryOutput{}, fmt.Errorf("%w: endpoint and statement are required", domain.ErrInvalidInput)
	}

	maxResults := input.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	opts := domain.QueryOptions{
		RetrieveContent: input.IncludeContent,
		MaxResults:      maxResults,
	}
	result, err := s.ports.Sessions.Query(ctx, input.Endpoint, input.Statement, opts)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	output := QueryOutput{
		Rows:  make([]QueryRow, 0, len(result.Items)),
		Count: result.Count,
	}
	for i := range result.Items {
		row, err := toRow(result.Items[i])
		if err != nil {
			closeRemaining(result.Items[i+1:])
			return nil, QueryOutput{}, err
		}
		output.Rows = append(output.Rows, row)
	}

	return nil, output, nil
}

// handlePoll handles the cmis_poll tool invocation.
func (s *Server) handlePoll(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input PollInput,
) (*mcp.CallToolResult, PollOutput, error) {
	if input.Endpoint == "" {
		return nil, PollOutput{}, fmt.Errorf("%w: endpoint is required", domain.ErrInvalidInput)
	}

	items, err := s.ports.Polls.Poll(ctx, input.Endpoint)
	if err != nil {
		return nil, PollOutput{}, err
	}

	output := PollOutput{Endpoint: input.Endpoint, Items: items}
	if status, err := s.ports.Polls.Status(ctx, input.Endpoint); err == nil && status != nil {
		output.PollID = status.LastPollID
	}
	return nil, output, nil
}

// toRow converts an item, reading and closing its content.
func toRow(item domain.EmittedItem) (QueryRow, error) {
	defer item.Content.Close()

	row := QueryRow{Properties: item.Properties}
	if !item.HasContent() {
		return row, nil
	}

	data, err := io.ReadAll(io.LimitReader(item.Content, maxContentBytes+1))
	if err != nil {
		return row, fmt.Errorf("read content of %s: %w", item.Name(), err)
	}
	if len(data) > maxContentBytes {
		data = data[:maxContentBytes]
		row.Truncated = true
	}

	row.MimeType = item.Content.MimeType
	if isText(row.MimeType) {
		row.Content = string(data)
	} else {
		row.ContentBase64 = base64.StdEncoding.EncodeToString(data)
	}
	return row, nil
}

func isText(mimeType string) bool {
	return strings.HasPrefix(mimeType, "text/") ||
		strings.HasSuffix(mimeType, "json") ||
		strings.HasSuffix(mimeType, "xml")
}

func closeRemaining(items []domain.EmittedItem) {
	for i := range items {
		items[i].Content.Close()
	}
}
