package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driving"
	"github.com/custodia-labs/cmis-poller/internal/logger"
)

// Ensure QueryRunner implements the interface.
var _ driving.QueryService = (*QueryRunner)(nil)

// QueryRunner executes repository queries and materialises their rows.
type QueryRunner struct {
	repo driven.RepositoryClient
}

// NewQueryRunner creates a query runner over a repository session.
func NewQueryRunner(repo driven.RepositoryClient) *QueryRunner {
	return &QueryRunner{repo: repo}
}

// Query runs statement and pages through its results in server order,
// stopping at opts.MaxResults rows when that is non-zero.
// On failure any content streams already opened are closed.
func (r *QueryRunner) Query(
	ctx context.Context, statement string, opts domain.QueryOptions,
) (*domain.QueryResult, error) {
	if strings.TrimSpace(statement) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	opts = opts.WithDefaults()

	cursor, err := r.repo.ExecuteQuery(ctx, statement, opts.PageSize)
	if err != nil {
		return nil, &domain.EnumerationError{Op: "query", Err: err}
	}

	result := &domain.QueryResult{}
	for row, err := range Items(ctx, cursor, "query") {
		if err != nil {
			closeContent(result.Items)
			return nil, err
		}

		item := domain.EmittedItem{Properties: row.Properties.Clone()}
		if opts.RetrieveContent && domain.IsDocument(row) {
			content, err := r.documentContent(ctx, row)
			if err != nil {
				closeContent(result.Items)
				return nil, err
			}
			item.Content = content
		}

		result.Items = append(result.Items, item)
		if opts.MaxResults > 0 && len(result.Items) >= opts.MaxResults {
			break
		}
	}

	result.Count = len(result.Items)
	logger.Debug("Query returned %d rows", result.Count)
	return result, nil
}

// documentContent resolves a document row to its object and opens its content.
// Rows that do not carry an object id cannot be resolved and get no content.
func (r *QueryRunner) documentContent(ctx context.Context, row *domain.Node) (*domain.ContentStream, error) {
	id := row.ID()
	if id == "" {
		logger.Warn("Query row %q has no %s, content omitted", row.Name(), domain.PropObjectID)
		return nil, nil
	}

	doc, err := r.repo.GetObject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}

	content, err := r.repo.OpenContent(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("open content of %s: %w", id, err)
	}
	return content, nil
}

func closeContent(items []domain.EmittedItem) {
	for i := range items {
		items[i].Content.Close() //nolint:errcheck // best effort on abort
	}
}
