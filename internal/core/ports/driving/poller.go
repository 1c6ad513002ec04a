package driving

import (
	"context"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
)

// Poller runs one poll of a repository and emits every item to a sink.
type Poller interface {
	// Poll emits at most budgetCap items (zero is unbounded) and returns
	// the number emitted.
	Poll(ctx context.Context, budgetCap int) (int, error)
}

// QueryService runs repository queries and returns materialised results.
type QueryService interface {
	// Query runs statement and returns its rows in server order.
	Query(ctx context.Context, statement string, opts domain.QueryOptions) (*domain.QueryResult, error)
}

// NodeService creates repository nodes.
type NodeService interface {
	// Create creates a folder or document and returns its object id.
	Create(ctx context.Context, req domain.CreateRequest) (string, error)

	// IsVersionable reports whether documents of typeID are versionable.
	IsVersionable(ctx context.Context, typeID string) (bool, error)
}

// PollOrchestrator polls configured endpoints.
type PollOrchestrator interface {
	// Poll polls one endpoint and returns the number of items emitted.
	Poll(ctx context.Context, endpointID string) (int, error)

	// PollAll polls every endpoint, each with its own session and budget.
	PollAll(ctx context.Context) (map[string]int, error)

	// Status returns the poll status for an endpoint.
	Status(ctx context.Context, endpointID string) (*domain.PollStatus, error)
}

// EndpointSessions opens per-endpoint query and node services for
// callers that act on a single endpoint rather than polling it.
type EndpointSessions interface {
	// Query runs statement against the endpoint's repository.
	Query(ctx context.Context, endpointID, statement string, opts domain.QueryOptions) (*domain.QueryResult, error)

	// Create creates a node in the endpoint's repository.
	Create(ctx context.Context, endpointID string, req domain.CreateRequest) (string, error)
}
