// Package filter provides a sink decorator that forwards only items
// matching a set of doublestar include patterns.
package filter

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
	"github.com/custodia-labs/cmis-poller/internal/logger"
)

// Sink forwards matching items to next. Dropped items report a count of
// zero so they do not consume the poll's budget.
type Sink struct {
	next     driven.Sink
	patterns []string
}

var _ driven.SummarySink = (*Sink)(nil)

// New wraps next. Patterns are matched against the item's repository path
// without the leading slash, for example "Folder1/**/*.txt".
func New(next driven.Sink, patterns []string) (*Sink, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: include pattern %q", domain.ErrInvalidInput, p)
		}
	}
	return &Sink{next: next, patterns: patterns}, nil
}

// Emit forwards item when it matches, otherwise closes its content and drops it.
func (s *Sink) Emit(ctx context.Context, item domain.EmittedItem) (int, error) {
	if !s.Match(item) {
		item.Content.Close()
		logger.Debug("filter: dropped %s", ItemPath(item))
		return 0, nil
	}
	return s.next.Emit(ctx, item)
}

// Summary forwards the summary when the wrapped sink accepts one.
func (s *Sink) Summary(ctx context.Context, props domain.Properties) error {
	if summary, ok := s.next.(driven.SummarySink); ok {
		return summary.Summary(ctx, props)
	}
	return nil
}

// Match reports whether item matches any pattern. No patterns match everything.
func (s *Sink) Match(item domain.EmittedItem) bool {
	if len(s.patterns) == 0 {
		return true
	}
	target := strings.TrimPrefix(ItemPath(item), "/")
	for _, p := range s.patterns {
		if ok, _ := doublestar.Match(p, target); ok {
			return true
		}
	}
	return false
}

// ItemPath returns the repository path of an emitted item: the folder
// path for folders, parent path plus name for tree-mode leaves, and the
// bare name for query rows.
func ItemPath(item domain.EmittedItem) string {
	if p := item.Properties.String(domain.PropPath); p != "" {
		return p
	}
	name := item.Name()
	if parent := item.Properties.String(domain.KeyParentFolderPath); parent != "" {
		return path.Join(parent, name)
	}
	return name
}
