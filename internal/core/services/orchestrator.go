package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driving"
	"github.com/custodia-labs/cmis-poller/internal/logger"
)

// Ensure PollOrchestrator implements the interface.
var _ driving.PollOrchestrator = (*PollOrchestrator)(nil)

// DefaultParallelPolls bounds how many endpoints PollAll polls at once.
const DefaultParallelPolls = 4

// PollOrchestrator polls configured endpoints.
// Every poll opens its own repository session, sink and budget, so
// different endpoints may be polled concurrently. A second poll of an
// endpoint that is already running is refused.
type PollOrchestrator struct {
	endpoints driven.EndpointStore
	repos     driven.RepositoryFactory
	sinks     driven.SinkFactory
	parallel  int

	// Status tracking
	mu     sync.RWMutex
	status map[string]*domain.PollStatus
}

// NewPollOrchestrator creates a poll orchestrator.
func NewPollOrchestrator(
	endpoints driven.EndpointStore,
	repos driven.RepositoryFactory,
	sinks driven.SinkFactory,
) *PollOrchestrator {
	return &PollOrchestrator{
		endpoints: endpoints,
		repos:     repos,
		sinks:     sinks,
		parallel:  DefaultParallelPolls,
		status:    make(map[string]*domain.PollStatus),
	}
}

// SetParallelism sets how many endpoints PollAll polls at once.
func (o *PollOrchestrator) SetParallelism(n int) {
	if n < 1 {
		n = 1
	}
	o.parallel = n
}

// Poll polls one endpoint and returns the number of items emitted.
func (o *PollOrchestrator) Poll(ctx context.Context, endpointID string) (int, error) {
	// 1. Get endpoint configuration
	endpoint, err := o.endpoints.Get(ctx, endpointID)
	if err != nil {
		return 0, fmt.Errorf("get endpoint: %w", err)
	}
	if err := endpoint.Validate(); err != nil {
		return 0, err
	}

	// 2. Claim the endpoint
	pollID := uuid.NewString()
	if err := o.begin(endpointID, pollID); err != nil {
		return 0, err
	}

	count, err := o.poll(ctx, endpoint, pollID)
	o.finish(endpointID, count, err)
	return count, err
}

func (o *PollOrchestrator) poll(ctx context.Context, endpoint *domain.Endpoint, pollID string) (int, error) {
	// 3. Open the repository session
	repo, err := o.repos.Open(ctx, *endpoint)
	if err != nil {
		return 0, fmt.Errorf("open repository: %w", err)
	}
	defer repo.Close()

	// 4. Build the sink
	sink, release, err := o.sinks.Create(ctx, *endpoint, pollID)
	if err != nil {
		return 0, fmt.Errorf("create sink: %w", err)
	}
	defer release() //nolint:errcheck // release errors are not actionable here

	// 5. Poll
	mode := endpoint.Mode()
	logger.Info("Starting %s poll %s for endpoint %s", mode, pollID, endpoint.ID)

	counting := &countingSink{sink: sink, onEmit: func(n int) { o.progress(endpoint.ID, n) }}
	count, err := NewPollingFacade(repo, counting.wrap(), mode).Poll(ctx, endpoint.ReadSize)
	if err != nil {
		return count, fmt.Errorf("%s: %w", mode, err)
	}

	logger.Info("Poll complete: endpoint %s emitted %d items", endpoint.ID, count)
	return count, nil
}

// PollAll polls every configured endpoint. One failing endpoint does not
// stop the others; failures are joined into the returned error.
func (o *PollOrchestrator) PollAll(ctx context.Context) (map[string]int, error) {
	endpoints, err := o.endpoints.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list endpoints: %w", err)
	}

	var (
		mu     sync.Mutex
		counts = make(map[string]int, len(endpoints))
		errs   []error
	)

	var g errgroup.Group
	g.SetLimit(o.parallel)
	for _, endpoint := range endpoints {
		id := endpoint.ID
		g.Go(func() error {
			count, err := o.Poll(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			counts[id] = count
			if err != nil {
				errs = append(errs, fmt.Errorf("poll %s: %w", id, err))
			}
			return nil
		})
	}
	_ = g.Wait() // errors collected above

	if len(errs) > 0 {
		return counts, errors.Join(errs...)
	}
	return counts, nil
}

// Status returns poll status for an endpoint.
func (o *PollOrchestrator) Status(_ context.Context, endpointID string) (*domain.PollStatus, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if status, ok := o.status[endpointID]; ok {
		// Return a copy to avoid race conditions
		statusCopy := *status
		return &statusCopy, nil
	}

	// Never polled - return idle status
	return &domain.PollStatus{
		EndpointID: endpointID,
		Running:    false,
	}, nil
}

func (o *PollOrchestrator) begin(endpointID, pollID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	status, ok := o.status[endpointID]
	if ok && status.Running {
		return fmt.Errorf("%w: %s", domain.ErrPollInProgress, endpointID)
	}
	if !ok {
		status = &domain.PollStatus{EndpointID: endpointID}
		o.status[endpointID] = status
	}
	status.Running = true
	status.ItemsEmitted = 0
	status.LastPollID = pollID
	status.LastError = ""
	return nil
}

func (o *PollOrchestrator) progress(endpointID string, n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if status, ok := o.status[endpointID]; ok {
		status.ItemsEmitted += n
	}
}

func (o *PollOrchestrator) finish(endpointID string, count int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	status := o.status[endpointID]
	status.Running = false
	status.LastItemsCount = count
	if err != nil {
		status.LastError = err.Error()
	}
}

// countingSink reports consumed items as they are emitted.
type countingSink struct {
	sink   driven.Sink
	onEmit func(n int)
}

func (c *countingSink) Emit(ctx context.Context, item domain.EmittedItem) (int, error) {
	n, err := c.sink.Emit(ctx, item)
	if err == nil {
		c.onEmit(n)
	}
	return n, err
}

// wrap keeps the SummarySink capability of the wrapped sink visible.
func (c *countingSink) wrap() driven.Sink {
	if summary, ok := c.sink.(driven.SummarySink); ok {
		return &countingSummarySink{countingSink: c, summary: summary}
	}
	return c
}

type countingSummarySink struct {
	*countingSink
	summary driven.SummarySink
}

func (c *countingSummarySink) Summary(ctx context.Context, props domain.Properties) error {
	return c.summary.Summary(ctx, props)
}
