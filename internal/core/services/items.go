package services

import (
	"context"
	"iter"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
	"github.com/custodia-labs/cmis-poller/internal/logger"
)

// Items returns the items of cursor as a lazy, single-pass sequence.
//
// Pages are requested on demand at an offset equal to the number of
// items already yielded. The sequence ends when a page reports no more
// items or comes back empty, when the consumer stops, or at the first
// failure, which is yielded once with a nil node. Fetch failures are
// wrapped in a domain.EnumerationError labelled op.
func Items(ctx context.Context, cursor driven.PageCursor, op string) iter.Seq2[*domain.Node, error] {
	return func(yield func(*domain.Node, error) bool) {
		offset := 0
		for pageNumber := 0; ; pageNumber++ {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			logger.Debug("Processing page %d of %s", pageNumber, op)
			page, err := cursor.FetchPage(ctx, offset)
			if err != nil {
				yield(nil, &domain.EnumerationError{Op: op, Offset: offset, Err: err})
				return
			}

			for i := range page.Nodes {
				if !yield(&page.Nodes[i], nil) {
					return
				}
				offset++
			}

			if page.Last() {
				return
			}
		}
	}
}
