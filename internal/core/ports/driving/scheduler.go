package driving

import (
	"context"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
)

// Scheduler polls endpoints in the background on their intervals.
type Scheduler interface {
	// Start begins running scheduled polls.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops all running polls.
	Stop() error

	// LastRun returns the most recent scheduled poll of an endpoint, or
	// nil when it has not been polled on schedule yet.
	LastRun(ctx context.Context, endpointID string) (*domain.PollRun, error)
}
