// Package sqlite provides a sink that archives emitted items into an
// ItemStore, tagged with the endpoint and poll that produced them.
package sqlite

import (
	"context"
	"fmt"
	"io"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
)

// DefaultMaxContentSize caps how much of one content stream is archived.
const DefaultMaxContentSize = 64 << 20

// Sink archives items of one poll.
type Sink struct {
	store          driven.ItemStore
	endpointID     string
	pollID         string
	maxContentSize int64
}

var _ driven.SummarySink = (*Sink)(nil)

// New creates an archive sink for one poll of an endpoint.
func New(store driven.ItemStore, endpointID, pollID string) *Sink {
	return &Sink{
		store:          store,
		endpointID:     endpointID,
		pollID:         pollID,
		maxContentSize: DefaultMaxContentSize,
	}
}

// Emit archives item with its content, if any.
func (s *Sink) Emit(ctx context.Context, item domain.EmittedItem) (int, error) {
	defer item.Content.Close()

	var content []byte
	if item.HasContent() {
		var err error
		content, err = io.ReadAll(io.LimitReader(item.Content, s.maxContentSize+1))
		if err != nil {
			return 0, fmt.Errorf("read content of %s: %w", item.Name(), err)
		}
		if int64(len(content)) > s.maxContentSize {
			return 0, fmt.Errorf("%w: content of %s exceeds %d bytes",
				domain.ErrInvalidInput, item.Name(), s.maxContentSize)
		}
		if content == nil {
			content = []byte{}
		}
	}

	props := item.Properties
	if item.HasContent() && props.String(domain.PropContentStreamMimeType) == "" && item.Content.MimeType != "" {
		props = props.Clone()
		props[domain.PropContentStreamMimeType] = item.Content.MimeType
	}

	if err := s.store.SaveItem(ctx, s.endpointID, s.pollID, props, content); err != nil {
		return 0, fmt.Errorf("archive %s: %w", item.Name(), err)
	}
	return 1, nil
}

// Summary archives the poll summary.
func (s *Sink) Summary(ctx context.Context, props domain.Properties) error {
	if err := s.store.SaveSummary(ctx, s.endpointID, s.pollID, props); err != nil {
		return fmt.Errorf("archive summary: %w", err)
	}
	return nil
}
