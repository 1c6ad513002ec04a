package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driving"
)

// Ensure Sessions implements the interface.
var _ driving.EndpointSessions = (*Sessions)(nil)

// Sessions runs one-off queries and node creation against configured
// endpoints, opening a fresh repository session per call.
type Sessions struct {
	endpoints driven.EndpointStore
	repos     driven.RepositoryFactory
}

// NewSessions creates an endpoint session service.
func NewSessions(endpoints driven.EndpointStore, repos driven.RepositoryFactory) *Sessions {
	return &Sessions{endpoints: endpoints, repos: repos}
}

// Query runs statement against the endpoint's repository.
// Callers own the content streams of the returned items. Opened streams
// stay readable after the session is closed.
func (s *Sessions) Query(
	ctx context.Context,
	endpointID, statement string,
	opts domain.QueryOptions,
) (*domain.QueryResult, error) {
	repo, err := s.open(ctx, endpointID)
	if err != nil {
		return nil, err
	}
	defer repo.Close()
	return NewQueryRunner(repo).Query(ctx, statement, opts)
}

// Create creates a node in the endpoint's repository.
func (s *Sessions) Create(ctx context.Context, endpointID string, req domain.CreateRequest) (string, error) {
	repo, err := s.open(ctx, endpointID)
	if err != nil {
		return "", err
	}
	defer repo.Close()
	return NewNodeCreator(repo).Create(ctx, req)
}

func (s *Sessions) open(ctx context.Context, endpointID string) (driven.RepositoryClient, error) {
	endpoint, err := s.endpoints.Get(ctx, endpointID)
	if err != nil {
		return nil, fmt.Errorf("get endpoint: %w", err)
	}
	repo, err := s.repos.Open(ctx, *endpoint)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return repo, nil
}
