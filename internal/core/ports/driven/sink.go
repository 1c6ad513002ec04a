package driven

import (
	"context"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
)

// Sink receives emitted items one at a time.
//
// Emit is called once per item and completes before the next item is
// fetched. The returned count is the number of items consumed, normally
// one; a sink that drops an item returns zero so the item does not count
// against the poll's budget. The sink owns item.Content once called and
// must close it.
type Sink interface {
	Emit(ctx context.Context, item domain.EmittedItem) (int, error)
}

// SummarySink is implemented by sinks that accept the once-per-poll
// summary properties of a query-mode poll.
type SummarySink interface {
	Sink

	Summary(ctx context.Context, props domain.Properties) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, item domain.EmittedItem) (int, error)

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, item domain.EmittedItem) (int, error) {
	return f(ctx, item)
}

// SinkFactory builds the sink an endpoint emits to.
type SinkFactory interface {
	// Create returns the sink for the endpoint and a function releasing it.
	Create(ctx context.Context, endpoint domain.Endpoint, pollID string) (Sink, func() error, error)
}
