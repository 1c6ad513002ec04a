package domain

import (
	"io"
	"maps"
	"strings"
)

// Base object type identifiers.
const (
	TypeFolder   = "cmis:folder"
	TypeDocument = "cmis:document"
)

// Well-known repository property ids.
const (
	PropObjectID              = "cmis:objectId"
	PropObjectTypeID          = "cmis:objectTypeId"
	PropBaseTypeID            = "cmis:baseTypeId"
	PropName                  = "cmis:name"
	PropPath                  = "cmis:path"
	PropParentID              = "cmis:parentId"
	PropCreationDate          = "cmis:creationDate"
	PropLastModificationDate  = "cmis:lastModificationDate"
	PropContentStreamMimeType = "cmis:contentStreamMimeType"
	PropContentStreamLength   = "cmis:contentStreamLength"
	PropContentStreamFileName = "cmis:contentStreamFileName"
)

// PropertyNamespace prefixes every repository-defined property id.
const PropertyNamespace = "cmis:"

// Reserved keys the poller injects into emitted properties.
// They live outside the repository namespace so they never collide
// with, or get forwarded as, repository properties.
const (
	// KeyParentFolderPath carries the parent folder's path on every
	// non-folder item emitted during tree traversal.
	KeyParentFolderPath = "poller:parentFolderPath"

	// KeyResultCount carries the number of items a query-mode poll emitted.
	KeyResultCount = "poller:resultCount"
)

// Properties maps property ids to scalar values.
// Multi-valued properties are flattened to their first value.
type Properties map[string]any

// Clone returns a shallow copy.
func (p Properties) Clone() Properties {
	if p == nil {
		return Properties{}
	}
	return maps.Clone(p)
}

// String returns the value for key if it is a string.
func (p Properties) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Node is one repository entity: a folder, a document, or a query row.
// Nodes are created fresh per page fetch and never mutated afterwards.
type Node struct {
	// Properties is the node's full flattened property set.
	Properties Properties

	// Path is the resolved path for folders. Empty for documents and query rows.
	Path string
}

// ID returns the node's object id.
func (n *Node) ID() string {
	return n.Properties.String(PropObjectID)
}

// Name returns the node's display name.
func (n *Node) Name() string {
	return n.Properties.String(PropName)
}

// FolderPath returns the node's path, falling back to the cmis:path property.
func (n *Node) FolderPath() string {
	if n.Path != "" {
		return n.Path
	}
	return n.Properties.String(PropPath)
}

// Page is one bounded batch of nodes returned by a paged fetch.
type Page struct {
	Nodes []Node

	// HasMore reports whether further items exist beyond this page.
	HasMore bool
}

// Last reports whether no further page should be requested.
// An empty page is terminal even when HasMore is set.
func (p Page) Last() bool {
	return !p.HasMore || len(p.Nodes) == 0
}

// ContentStream is a single-use, forward-only document body.
type ContentStream struct {
	FileName string
	MimeType string

	// Length is the advertised byte length, or -1 when unknown.
	Length int64

	Body io.ReadCloser
}

// Read reads from the underlying body.
func (c *ContentStream) Read(p []byte) (int, error) {
	return c.Body.Read(p)
}

// Close releases the underlying body. It is safe on a nil stream.
func (c *ContentStream) Close() error {
	if c == nil || c.Body == nil {
		return nil
	}
	return c.Body.Close()
}

// TypeDefinition describes a repository object type.
type TypeDefinition struct {
	ID          string
	BaseID      string
	DisplayName string
	Versionable bool
}

// RepositoryOnly returns the subset of p in the repository namespace.
func (p Properties) RepositoryOnly() Properties {
	result := make(Properties, len(p))
	for key, value := range p {
		if strings.HasPrefix(key, PropertyNamespace) {
			result[key] = value
		}
	}
	return result
}
