package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driving"
	"github.com/custodia-labs/cmis-poller/internal/logger"
)

// Ensure PollingFacade implements the interface.
var _ driving.Poller = (*PollingFacade)(nil)

// PollingFacade is the single entry point for one poll of a repository.
// The mode is chosen once, at construction, from configuration.
type PollingFacade struct {
	repo driven.RepositoryClient
	sink driven.Sink
	mode domain.PollMode
}

// NewPollingFacade creates a facade polling repo in mode and emitting to sink.
func NewPollingFacade(repo driven.RepositoryClient, sink driven.Sink, mode domain.PollMode) *PollingFacade {
	return &PollingFacade{
		repo: repo,
		sink: sink,
		mode: mode,
	}
}

// Mode returns the facade's poll mode.
func (p *PollingFacade) Mode() domain.PollMode {
	return p.mode
}

// Poll runs one poll, emitting at most budgetCap items (zero is unbounded),
// and returns the number of items the sink consumed.
func (p *PollingFacade) Poll(ctx context.Context, budgetCap int) (int, error) {
	budget := domain.NewBudget(budgetCap)

	switch mode := p.mode.(type) {
	case domain.TreeMode:
		return p.pollTree(ctx, mode, budget)
	case domain.QueryMode:
		return p.pollQuery(ctx, mode, budget)
	default:
		return 0, fmt.Errorf("%w: poll mode %v", domain.ErrUnsupportedType, p.mode)
	}
}

func (p *PollingFacade) pollTree(ctx context.Context, mode domain.TreeMode, budget *domain.Budget) (int, error) {
	root, err := p.repo.ResolvePath(ctx, mode.FolderPath)
	if err != nil {
		return 0, &domain.ResolutionError{Path: mode.FolderPath, Err: err}
	}
	if !domain.IsFolder(root) {
		return 0, &domain.ResolutionError{
			Path: mode.FolderPath,
			Err:  fmt.Errorf("%w: not a folder", domain.ErrInvalidInput),
		}
	}

	walker := NewTreeWalker(p.repo, p.sink, mode.PageSize, mode.ReadContent)
	return walker.Walk(ctx, root, budget)
}

// pollQuery materialises the query result and drains it into the sink
// one item at a time, then hands the result-count marker to the sink
// once if it accepts summaries. Rows the sink declines do not charge the
// budget, so MaxResults is left alone and the marker carries the emitted
// count rather than the number of rows returned.
func (p *PollingFacade) pollQuery(ctx context.Context, mode domain.QueryMode, budget *domain.Budget) (int, error) {
	result, err := NewQueryRunner(p.repo).Query(ctx, mode.Statement, mode.Options)
	if err != nil {
		return 0, err
	}

	for i := range result.Items {
		item := result.Items[i]
		if budget.Exhausted() {
			closeContent(result.Items[i:])
			break
		}
		if err := ctx.Err(); err != nil {
			closeContent(result.Items[i:])
			return budget.Count(), err
		}

		logger.Debug("Polling row: %s", item.Name())
		n, err := p.sink.Emit(ctx, item)
		if err != nil {
			closeContent(result.Items[i+1:])
			return budget.Count(), fmt.Errorf("emit %s: %w", item.Name(), err)
		}
		budget.Add(n)
	}

	if summary, ok := p.sink.(driven.SummarySink); ok {
		if err := summary.Summary(ctx, domain.ResultSummary(budget.Count())); err != nil {
			return budget.Count(), fmt.Errorf("emit summary: %w", err)
		}
	}

	return budget.Count(), nil
}
