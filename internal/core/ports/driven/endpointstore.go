package driven

import (
	"context"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
)

// EndpointStore provides configured endpoints.
type EndpointStore interface {
	// Get retrieves an endpoint by ID.
	// Returns domain.ErrNotFound if it is not configured.
	Get(ctx context.Context, id string) (*domain.Endpoint, error)

	// List returns all configured endpoints in configuration order.
	List(ctx context.Context) ([]domain.Endpoint, error)
}

// ItemStore archives emitted items.
type ItemStore interface {
	// SaveItem stores one emitted item. content may be nil.
	SaveItem(ctx context.Context, endpointID, pollID string, props domain.Properties, content []byte) error

	// SaveSummary stores the summary properties of a poll.
	SaveSummary(ctx context.Context, endpointID, pollID string, props domain.Properties) error

	// CountItems returns the number of items archived for a poll.
	CountItems(ctx context.Context, pollID string) (int, error)
}
