package connectors

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/custodia-labs/cmis-poller/internal/connectors/cmis"
	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.RepositoryFactory = (*Factory)(nil)

// Opener opens a session for an endpoint.
type Opener func(ctx context.Context, endpoint domain.Endpoint) (driven.RepositoryClient, error)

// Factory opens repository sessions by URL scheme.
type Factory struct {
	mu      sync.RWMutex
	openers map[string]Opener
}

// NewFactory creates a factory with the CMIS browser binding registered
// for http and https URLs.
func NewFactory() *Factory {
	f := &Factory{openers: make(map[string]Opener)}
	openCMIS := func(ctx context.Context, endpoint domain.Endpoint) (driven.RepositoryClient, error) {
		return cmis.Open(ctx, endpoint)
	}
	f.Register("http", openCMIS)
	f.Register("https", openCMIS)
	return f
}

// Register adds or replaces the opener for scheme.
func (f *Factory) Register(scheme string, open Opener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openers[strings.ToLower(scheme)] = open
}

// Open opens a session with the opener registered for the endpoint's scheme.
func (f *Factory) Open(ctx context.Context, endpoint domain.Endpoint) (driven.RepositoryClient, error) {
	u, err := url.Parse(endpoint.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: endpoint %s: %v", domain.ErrInvalidInput, endpoint.ID, err)
	}

	f.mu.RLock()
	open, ok := f.openers[strings.ToLower(u.Scheme)]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: scheme %q", domain.ErrUnsupportedType, u.Scheme)
	}

	repo, err := open(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", endpoint.ID, err)
	}
	return repo, nil
}
