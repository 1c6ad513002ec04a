package services

import (
	"context"
	"io"
	"sync"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driving"
)

// recordingSink records every emitted item and reads content bodies fully.
type recordingSink struct {
	mu       sync.Mutex
	items    []domain.EmittedItem
	bodies   map[string]string
	summary  domain.Properties
	emitErr  error
	failAt   int
	onEmit   func(item domain.EmittedItem)
	skipName string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{bodies: make(map[string]string), failAt: -1}
}

func (s *recordingSink) Emit(_ context.Context, item domain.EmittedItem) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer item.Content.Close() //nolint:errcheck

	if s.failAt >= 0 && len(s.items) == s.failAt {
		return 0, s.emitErr
	}
	if s.onEmit != nil {
		s.onEmit(item)
	}
	if s.skipName != "" && item.Name() == s.skipName {
		return 0, nil
	}
	if item.Content != nil {
		data, err := io.ReadAll(item.Content)
		if err != nil {
			return 0, err
		}
		s.bodies[item.Name()] = string(data)
	}
	s.items = append(s.items, item)
	return 1, nil
}

func (s *recordingSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.items))
	for i := range s.items {
		names = append(names, s.items[i].Name())
	}
	return names
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// summaryRecordingSink also accepts poll summaries.
type summaryRecordingSink struct {
	*recordingSink
}

func (s summaryRecordingSink) Summary(_ context.Context, props domain.Properties) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = props
	return nil
}

var _ driven.SummarySink = summaryRecordingSink{}

// mockEndpointStore implements driven.EndpointStore for testing.
type mockEndpointStore struct {
	mu        sync.RWMutex
	endpoints []domain.Endpoint
	listErr   error
}

func newMockEndpointStore(endpoints ...domain.Endpoint) *mockEndpointStore {
	return &mockEndpointStore{endpoints: endpoints}
}

func (m *mockEndpointStore) Get(_ context.Context, id string) (*domain.Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.endpoints {
		if m.endpoints[i].ID == id {
			ep := m.endpoints[i]
			return &ep, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockEndpointStore) List(_ context.Context) ([]domain.Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]domain.Endpoint(nil), m.endpoints...), nil
}

func (m *mockEndpointStore) set(endpoints ...domain.Endpoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endpoints = endpoints
}

// mockSinkFactory hands out one recording sink per endpoint.
type mockSinkFactory struct {
	mu       sync.Mutex
	sinks    map[string]*recordingSink
	pollIDs  []string
	released int
	err      error
}

func newMockSinkFactory() *mockSinkFactory {
	return &mockSinkFactory{sinks: make(map[string]*recordingSink)}
}

func (f *mockSinkFactory) Create(
	_ context.Context, endpoint domain.Endpoint, pollID string,
) (driven.Sink, func() error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, nil, f.err
	}
	sink, ok := f.sinks[endpoint.ID]
	if !ok {
		sink = newRecordingSink()
		f.sinks[endpoint.ID] = sink
	}
	f.pollIDs = append(f.pollIDs, pollID)
	return summaryRecordingSink{sink}, func() error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.released++
		return nil
	}, nil
}

func (f *mockSinkFactory) sink(endpointID string) *recordingSink {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sinks[endpointID]
}

// mockPollOrchestrator implements driving.PollOrchestrator for testing.
type mockPollOrchestrator struct {
	mu     sync.Mutex
	polled []string
	count  int
	err    error
	block  chan struct{}
	pollID string
}

func (m *mockPollOrchestrator) Poll(_ context.Context, endpointID string) (int, error) {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polled = append(m.polled, endpointID)
	return m.count, m.err
}

func (m *mockPollOrchestrator) PollAll(_ context.Context) (map[string]int, error) {
	return nil, nil
}

func (m *mockPollOrchestrator) Status(_ context.Context, id string) (*domain.PollStatus, error) {
	return &domain.PollStatus{EndpointID: id, LastPollID: m.pollID}, nil
}

func (m *mockPollOrchestrator) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.polled...)
}

// Ensure mocks implement interfaces
var (
	_ driven.EndpointStore     = (*mockEndpointStore)(nil)
	_ driven.SinkFactory       = (*mockSinkFactory)(nil)
	_ driving.PollOrchestrator = (*mockPollOrchestrator)(nil)
)
