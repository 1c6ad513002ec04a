package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
)

// Ensure ItemStore implements the interface.
var _ driven.ItemStore = (*ItemStore)(nil)

// Item is one archived item.
type Item struct {
	EndpointID string
	PollID     string
	Properties domain.Properties
	Content    []byte
}

// ItemStore is an in-memory implementation of driven.ItemStore.
type ItemStore struct {
	mu        sync.RWMutex
	items     []Item
	summaries map[string]domain.Properties
}

// NewItemStore creates a new in-memory item store.
func NewItemStore() *ItemStore {
	return &ItemStore{
		summaries: make(map[string]domain.Properties),
	}
}

// SaveItem stores one emitted item.
func (s *ItemStore) SaveItem(
	_ context.Context, endpointID, pollID string, props domain.Properties, content []byte,
) error {
	if endpointID == "" || pollID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, Item{
		EndpointID: endpointID,
		PollID:     pollID,
		Properties: props.Clone(),
		Content:    content,
	})
	return nil
}

// SaveSummary stores the summary of a poll, replacing any earlier one.
func (s *ItemStore) SaveSummary(_ context.Context, endpointID, pollID string, props domain.Properties) error {
	if endpointID == "" || pollID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[pollID] = props.Clone()
	return nil
}

// CountItems returns the number of items archived for a poll.
func (s *ItemStore) CountItems(_ context.Context, pollID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for i := range s.items {
		if s.items[i].PollID == pollID {
			count++
		}
	}
	return count, nil
}

// Items returns the items archived for a poll in emission order.
func (s *ItemStore) Items(pollID string) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []Item
	for _, item := range s.items {
		if item.PollID == pollID {
			result = append(result, item)
		}
	}
	return result
}

// Summary returns the summary stored for a poll.
func (s *ItemStore) Summary(pollID string) (domain.Properties, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	props, ok := s.summaries[pollID]
	return props, ok
}
