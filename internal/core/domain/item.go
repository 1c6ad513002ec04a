package domain

// EmittedItem is the unit handed to a sink: a property set plus an
// optional content stream. Content is nil when absent, never an empty
// stream standing in for "none".
type EmittedItem struct {
	Properties Properties
	Content    *ContentStream
}

// Name returns the item's cmis:name.
func (i *EmittedItem) Name() string {
	return i.Properties.String(PropName)
}

// HasContent reports whether a content stream is attached.
func (i *EmittedItem) HasContent() bool {
	return i.Content != nil
}

// QueryResult is the materialised, ordered output of one query run.
type QueryResult struct {
	Items []EmittedItem

	// Count is reported separately from len(Items); the two always agree.
	Count int
}

// ResultSummary returns the once-per-poll marker for a query poll that
// emitted count items.
func ResultSummary(count int) Properties {
	return Properties{KeyResultCount: count}
}
