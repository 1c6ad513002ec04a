package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultPollInterval is used when an endpoint sets no interval.
const DefaultPollInterval = 5 * time.Minute

// Sink kinds understood by the sink factory.
const (
	SinkStdout = "stdout"
	SinkSQLite = "sqlite"
	SinkExport = "export"
)

// Endpoint is one configured repository and its polling options.
type Endpoint struct {
	// ID names the endpoint in config, CLI and history.
	ID string

	// URL is the repository's browser binding service URL.
	URL string

	// RepositoryID selects a repository. Empty uses the first one advertised.
	RepositoryID string

	Username string
	Password string

	// Token is a bearer token used instead of basic auth when set.
	Token string

	// FolderPath is the tree-mode root. Default "/".
	FolderPath string

	// Query switches the endpoint to query mode when non-empty.
	Query string

	// ReadContent attaches document content streams.
	ReadContent bool

	// ReadSize caps items per poll. Zero is unbounded.
	ReadSize int

	// PageSize is the per-request page size. Zero picks a mode default.
	PageSize int

	// Interval is the scheduler period.
	Interval time.Duration

	// Include holds doublestar patterns; when set only matching items reach the sink.
	Include []string

	// Sink is "stdout", "sqlite" or "export:<dir>".
	Sink string

	// Format is the stdout sink encoding, "json" or "yaml".
	Format string

	// RateLimit is the maximum request rate per second. Zero uses the client default.
	RateLimit float64
}

// Mode returns the poll mode selected by the endpoint's configuration.
func (e *Endpoint) Mode() PollMode {
	if strings.TrimSpace(e.Query) != "" {
		pageSize := e.PageSize
		if pageSize <= 0 {
			pageSize = DefaultQueryPageSize
		}
		return QueryMode{
			Statement: e.Query,
			Options: QueryOptions{
				RetrieveContent: e.ReadContent,
				MaxResults:      e.ReadSize,
				PageSize:        pageSize,
			},
		}
	}

	path := e.FolderPath
	if path == "" {
		path = DefaultFolderPath
	}
	pageSize := e.PageSize
	if pageSize <= 0 {
		pageSize = DefaultTreePageSize
	}
	return TreeMode{
		FolderPath:  path,
		PageSize:    pageSize,
		ReadContent: e.ReadContent,
	}
}

// PollInterval returns the configured interval or the default.
func (e *Endpoint) PollInterval() time.Duration {
	if e.Interval <= 0 {
		return DefaultPollInterval
	}
	return e.Interval
}

// SinkKind splits the sink setting into its kind and argument.
// "export:/tmp/out" yields ("export", "/tmp/out"); empty yields stdout.
func (e *Endpoint) SinkKind() (kind, arg string) {
	if e.Sink == "" {
		return SinkStdout, ""
	}
	kind, arg, _ = strings.Cut(e.Sink, ":")
	return kind, arg
}

// Validate checks the endpoint is usable.
func (e *Endpoint) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: endpoint id is required", ErrInvalidInput)
	}
	if e.URL == "" {
		return fmt.Errorf("%w: endpoint %s: url is required", ErrInvalidInput, e.ID)
	}
	if e.ReadSize < 0 {
		return fmt.Errorf("%w: endpoint %s: read_size must not be negative", ErrInvalidInput, e.ID)
	}
	if e.PageSize < 0 {
		return fmt.Errorf("%w: endpoint %s: page_size must not be negative", ErrInvalidInput, e.ID)
	}
	if e.FolderPath != "" && !strings.HasPrefix(e.FolderPath, "/") {
		return fmt.Errorf("%w: endpoint %s: folder_path must be absolute", ErrInvalidInput, e.ID)
	}
	switch kind, arg := e.SinkKind(); kind {
	case SinkStdout, SinkSQLite:
	case SinkExport:
		if arg == "" {
			return fmt.Errorf("%w: endpoint %s: export sink needs a directory", ErrInvalidInput, e.ID)
		}
	default:
		return fmt.Errorf("%w: sink %q", ErrUnsupportedType, kind)
	}
	switch e.Format {
	case "", "json", "yaml":
	default:
		return fmt.Errorf("%w: format %q", ErrUnsupportedType, e.Format)
	}
	return nil
}
