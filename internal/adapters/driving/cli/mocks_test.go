package cli

import (
	"context"
	"sync"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
)

// mockPolls is a mock implementation of driving.PollOrchestrator.
type mockPolls struct {
	items  int
	counts map[string]int
	err    error
	polled []string
}

func (m *mockPolls) Poll(_ context.Context, endpointID string) (int, error) {
	m.polled = append(m.polled, endpointID)
	return m.items, m.err
}

func (m *mockPolls) PollAll(_ context.Context) (map[string]int, error) {
	return m.counts, m.err
}

func (m *mockPolls) Status(_ context.Context, endpointID string) (*domain.PollStatus, error) {
	return &domain.PollStatus{EndpointID: endpointID, ItemsEmitted: m.items}, nil
}

// mockSessions is a mock implementation of driving.EndpointSessions.
type mockSessions struct {
	result    *domain.QueryResult
	createdID string
	err       error

	endpoint  string
	statement string
	opts      domain.QueryOptions
	request   domain.CreateRequest
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

func (m *mockSessions) Create(_ context.Context, endpointID string, req domain.CreateRequest) (string, error) {
	m.endpoint, m.request = endpointID, req
	return m.createdID, m.err
}

// mockEndpoints is a mock implementation of driven.EndpointStore.
type mockEndpoints struct {
	endpoints []domain.Endpoint
	err       error

	mu   sync.Mutex
	gets int
}

func (m *mockEndpoints) Get(_ context.Context, id string) (*domain.Endpoint, error) {
	m.mu.Lock()
	m.gets++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.endpoints {
		if m.endpoints[i].ID == id {
			ep := m.endpoints[i]
			return &ep, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockEndpoints) List(_ context.Context) ([]domain.Endpoint, error) {
	return m.endpoints, m.err
}

// mockScheduler is a mock implementation of driving.Scheduler.
type mockScheduler struct {
	started bool
	runs    map[string]*domain.PollRun
	err     error
}

func (m *mockScheduler) Start(ctx context.Context) error {
	m.started = true
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockScheduler) Stop() error {
	return nil
}

func (m *mockScheduler) LastRun(_ context.Context, endpointID string) (*domain.PollRun, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.runs[endpointID], nil
}
