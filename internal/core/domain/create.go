package domain

import "io"

// CreateRequest describes a folder or document to create in the repository.
type CreateRequest struct {
	// Properties are the requested properties. Only cmis:-prefixed keys are sent.
	Properties Properties

	// FolderPath is the parent folder. Default "/".
	FolderPath string

	// ObjectType forces TypeFolder or TypeDocument. When empty the request
	// creates a document if Content is set and a folder otherwise.
	ObjectType string

	// Content is the document body, nil for folders and empty documents.
	Content io.Reader

	// MimeType is used when cmis:contentStreamMimeType is not set.
	MimeType string
}
