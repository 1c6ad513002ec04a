package services

import (
	"context"
	"fmt"
	"io"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driving"
)

// Ensure NodeCreator implements the interface.
var _ driving.NodeService = (*NodeCreator)(nil)

// defaultMimeType is used for document content with no declared type.
const defaultMimeType = "application/octet-stream"

// NodeCreator creates folders and documents in a repository.
type NodeCreator struct {
	repo driven.RepositoryClient
}

// NewNodeCreator creates a node service over a repository session.
func NewNodeCreator(repo driven.RepositoryClient) *NodeCreator {
	return &NodeCreator{repo: repo}
}

// Create creates the requested node under req.FolderPath and returns its id.
// cmis:name is mandatory. Only repository-namespaced properties are sent.
func (c *NodeCreator) Create(ctx context.Context, req domain.CreateRequest) (string, error) {
	name := req.Properties.String(domain.PropName)
	if name == "" {
		return "", &domain.RequiredFieldError{Field: domain.PropName}
	}

	folderPath := req.FolderPath
	if folderPath == "" {
		folderPath = domain.DefaultFolderPath
	}
	parent, err := c.repo.ResolvePath(ctx, folderPath)
	if err != nil {
		return "", &domain.ResolutionError{Path: folderPath, Err: err}
	}
	if !domain.IsFolder(parent) {
		return "", &domain.ResolutionError{
			Path: folderPath,
			Err:  fmt.Errorf("%w: not a folder", domain.ErrInvalidInput),
		}
	}

	props := req.Properties.RepositoryOnly()

	var node *domain.Node
	if isDocumentCreation(req, props) {
		props[domain.PropObjectTypeID] = domain.TypeDocument
		node, err = c.repo.CreateDocument(ctx, parent, props, contentStream(req, props, name))
	} else {
		props[domain.PropObjectTypeID] = domain.TypeFolder
		node, err = c.repo.CreateFolder(ctx, parent, props)
	}
	if err != nil {
		return "", fmt.Errorf("create %s in %s: %w", name, folderPath, err)
	}
	return node.ID(), nil
}

// IsVersionable reports whether objects of typeID are versionable.
func (c *NodeCreator) IsVersionable(ctx context.Context, typeID string) (bool, error) {
	def, err := c.repo.TypeDefinition(ctx, typeID)
	if err != nil {
		return false, fmt.Errorf("get type %s: %w", typeID, err)
	}
	return def.Versionable, nil
}

// isDocumentCreation reports whether the request creates a document:
// an explicit document type wins, otherwise supplying content does.
func isDocumentCreation(req domain.CreateRequest, props domain.Properties) bool {
	objectType := req.ObjectType
	if objectType == "" {
		objectType = props.String(domain.PropObjectTypeID)
	}
	if objectType != "" {
		return objectType == domain.TypeDocument
	}
	return req.Content != nil
}

func contentStream(req domain.CreateRequest, props domain.Properties, name string) *domain.ContentStream {
	if req.Content == nil {
		return nil
	}

	mimeType := props.String(domain.PropContentStreamMimeType)
	if mimeType == "" {
		mimeType = req.MimeType
	}
	if mimeType == "" {
		mimeType = defaultMimeType
	}

	return &domain.ContentStream{
		FileName: name,
		MimeType: mimeType,
		Length:   -1,
		Body:     io.NopCloser(req.Content),
	}
}
