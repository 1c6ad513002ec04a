package domain

import "fmt"

// Page size and path defaults.
const (
	DefaultTreePageSize  = 100
	DefaultQueryPageSize = 10
	DefaultFolderPath    = "/"
)

// PollMode selects how a poll enumerates the repository.
// It is either TreeMode or QueryMode.
type PollMode interface {
	fmt.Stringer
	pollMode()
}

// TreeMode walks the folder hierarchy below FolderPath in pre-order.
type TreeMode struct {
	FolderPath  string
	PageSize    int
	ReadContent bool
}

func (TreeMode) pollMode() {}

func (m TreeMode) String() string {
	return "tree(" + m.FolderPath + ")"
}

// QueryMode pages through the result set of Statement.
type QueryMode struct {
	Statement string
	Options   QueryOptions
}

func (QueryMode) pollMode() {}

func (m QueryMode) String() string {
	return "query(" + m.Statement + ")"
}

// QueryOptions configures one query run.
type QueryOptions struct {
	// RetrieveContent attaches document content streams to document rows.
	RetrieveContent bool

	// MaxResults caps the number of rows returned. Zero is unlimited.
	MaxResults int

	// PageSize is the number of rows requested per page.
	PageSize int
}

// WithDefaults fills unset fields.
func (o QueryOptions) WithDefaults() QueryOptions {
	if o.PageSize <= 0 {
		o.PageSize = DefaultQueryPageSize
	}
	if o.MaxResults < 0 {
		o.MaxResults = 0
	}
	return o
}

// PollStatus reports progress of an endpoint poll.
type PollStatus struct {
	EndpointID     string
	Running        bool
	ItemsEmitted   int
	LastPollID     string
	LastError      string
	LastItemsCount int
}
