package domain

// Budget counts items emitted by one poll against a cap.
// One Budget is shared by pointer across every recursive call of a
// tree walk, so a cap reached deep in the tree stops all ancestors too.
// It is not safe for concurrent use.
type Budget struct {
	limit int
	count int
}

// NewBudget creates a budget. A limit of zero or less is unbounded.
func NewBudget(limit int) *Budget {
	if limit < 0 {
		limit = 0
	}
	return &Budget{limit: limit}
}

// Add records n consumed items.
func (b *Budget) Add(n int) {
	b.count += n
}

// Count returns the number of items consumed so far.
func (b *Budget) Count() int {
	return b.count
}

// Limit returns the cap, zero when unbounded.
func (b *Budget) Limit() int {
	return b.limit
}

// Exhausted reports whether the cap has been reached.
func (b *Budget) Exhausted() bool {
	return b.limit > 0 && b.count >= b.limit
}
