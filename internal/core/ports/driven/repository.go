package driven

import (
	"context"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
)

// PageCursor fetches successive pages of one enumeration: a folder's
// children or a query's result set.
//
// FetchPage returns up to the cursor's page size items starting at the
// zero-based offset. Callers pass the running count of items consumed,
// not a page index, so pages need not align with the server's own
// page boundaries.
type PageCursor interface {
	FetchPage(ctx context.Context, offset int) (domain.Page, error)
}

// RepositoryClient is an open session to a content repository.
type RepositoryClient interface {
	// RepositoryID returns the id of the repository the session is bound to.
	RepositoryID() string

	// ResolvePath returns the node at path.
	// Returns an error wrapping domain.ErrNotFound if nothing exists there.
	ResolvePath(ctx context.Context, path string) (*domain.Node, error)

	// GetObject returns the node with the given object id.
	GetObject(ctx context.Context, objectID string) (*domain.Node, error)

	// ListChildren returns a cursor over folder's children.
	ListChildren(ctx context.Context, folder *domain.Node, pageSize int) (PageCursor, error)

	// ExecuteQuery returns a cursor over the statement's result rows.
	ExecuteQuery(ctx context.Context, statement string, pageSize int) (PageCursor, error)

	// OpenContent returns the document's content stream.
	// Returns nil and no error when the document has no content.
	OpenContent(ctx context.Context, document *domain.Node) (*domain.ContentStream, error)

	// TypeDefinition returns the definition of an object type.
	TypeDefinition(ctx context.Context, typeID string) (*domain.TypeDefinition, error)

	// CreateFolder creates a folder under parent.
	CreateFolder(ctx context.Context, parent *domain.Node, props domain.Properties) (*domain.Node, error)

	// CreateDocument creates a document under parent. content may be nil.
	CreateDocument(
		ctx context.Context, parent *domain.Node, props domain.Properties, content *domain.ContentStream,
	) (*domain.Node, error)

	// Close releases the session.
	Close() error
}

// RepositoryFactory opens repository sessions for endpoints.
type RepositoryFactory interface {
	// Open creates a session for the endpoint.
	Open(ctx context.Context, endpoint domain.Endpoint) (RepositoryClient, error)
}
