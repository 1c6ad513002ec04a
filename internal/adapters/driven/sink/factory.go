// Package sink builds the sink an endpoint emits to from its configuration.
//
// The concrete sinks live in subpackages:
//
//   - stream: JSON lines or YAML documents on a writer (stdout)
//   - sqlite: item archive in the SQLite store
//   - export: mirrored folder tree on disk
//   - filter: doublestar include patterns in front of any of the above
package sink

import (
	"context"
	"fmt"
	"io"

	"github.com/custodia-labs/cmis-poller/internal/adapters/driven/sink/export"
	"github.com/custodia-labs/cmis-poller/internal/adapters/driven/sink/filter"
	"github.com/custodia-labs/cmis-poller/internal/adapters/driven/sink/sqlite"
	"github.com/custodia-labs/cmis-poller/internal/adapters/driven/sink/stream"
	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
)

// Factory implements driven.SinkFactory.
type Factory struct {
	stdout io.Writer
	items  driven.ItemStore
}

var _ driven.SinkFactory = (*Factory)(nil)

// NewFactory creates a sink factory. Stream sinks share stdout; items may
// be nil when no endpoint archives to sqlite.
func NewFactory(stdout io.Writer, items driven.ItemStore) *Factory {
	return &Factory{
		stdout: stream.SyncWriter(stdout),
		items:  items,
	}
}

// Create returns the sink configured for endpoint.
func (f *Factory) Create(_ context.Context, endpoint domain.Endpoint, pollID string) (driven.Sink, func() error, error) {
	var s driven.Sink

	switch kind, arg := endpoint.SinkKind(); kind {
	case domain.SinkStdout:
		streamSink, err := stream.New(f.stdout, endpoint.Format, endpoint.ID)
		if err != nil {
			return nil, nil, err
		}
		s = streamSink
	case domain.SinkSQLite:
		if f.items == nil {
			return nil, nil, fmt.Errorf("%w: endpoint %s: no item store for sqlite sink", domain.ErrInvalidInput, endpoint.ID)
		}
		s = sqlite.New(f.items, endpoint.ID, pollID)
	case domain.SinkExport:
		if arg == "" {
			return nil, nil, fmt.Errorf("%w: endpoint %s: export sink needs a directory", domain.ErrInvalidInput, endpoint.ID)
		}
		exportSink, err := export.NewDir(arg)
		if err != nil {
			return nil, nil, err
		}
		s = exportSink
	default:
		return nil, nil, fmt.Errorf("%w: sink %q", domain.ErrUnsupportedType, kind)
	}

	if len(endpoint.Include) > 0 {
		filtered, err := filter.New(s, endpoint.Include)
		if err != nil {
			return nil, nil, err
		}
		s = filtered
	}

	return s, func() error { return nil }, nil
}
