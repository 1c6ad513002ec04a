package mcp

import (
	"context"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
)

// mockSessions is a mock implementation of driving.EndpointSessions.
type mockSessions struct {
	result    *domain.QueryResult
	err       error
	endpoint  string
	statement string
	opts      domain.QueryOptions
}

func (m *mockSessions) Query(
	_ context.Context,
	endpointID, statement string,
	opts domain.QueryOptions,
) (*domain.QueryResult, error) {
	m.endpoint, m.statement, m.opts = endpointID, statement, opts
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &domain.QueryResult{}, nil
	}
	return m.result, nil
}

func (m *mockSessions) Create(_ context.Context, _ string, _ domain.CreateRequest) (string, error) {
	return "", m.err
}

// mockPolls is a mock implementation of driving.PollOrchestrator.
type mockPolls struct {
	items  int
	status *domain.PollStatus
	err    error
	polled []string
}

func (m *mockPolls) Poll(_ context.Context, endpointID string) (int, error) {
	m.polled = append(m.polled, endpointID)
	return m.items, m.err
}

func (m *mockPolls) PollAll(_ context.Context) (map[string]int, error) {
	return nil, m.err
}

func (m *mockPolls) Status(_ context.Context, endpointID string) (*domain.PollStatus, error) {
	if m.status != nil {
		return m.status, nil
	}
	return &domain.PollStatus{EndpointID: endpointID}, m.err
}

// mockLister is a mock implementation of EndpointLister.
type mockLister struct {
	endpoints []domain.Endpoint
	err       error
}

func (m *mockLister) List(_ context.Context) ([]domain.Endpoint, error) {
	return m.endpoints, m.err
}
