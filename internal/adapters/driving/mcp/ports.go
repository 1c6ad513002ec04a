package mcp

import (
	"context"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driving"
)

// EndpointLister lists configured endpoints.
type EndpointLister interface {
	List(ctx context.Context) ([]domain.Endpoint, error)
}

// Ports aggregates the services required by the MCP server.
type Ports struct {
	// Sessions runs queries against single endpoints.
	Sessions driving.EndpointSessions

	// Polls triggers and reports endpoint polls. Optional.
	Polls driving.PollOrchestrator

	// Endpoints lists configured endpoints. Optional.
	Endpoints EndpointLister
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Sessions == nil {
		return ErrMissingSessions
	}
	return nil
}
