package domain

// TypeID returns the node's object type id and whether it was present.
func TypeID(n *Node) (string, bool) {
	if n == nil {
		return "", false
	}
	v, ok := n.Properties[PropObjectTypeID]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// IsFolder reports whether the node's type id is cmis:folder.
// A node without a type id is neither a folder nor a document.
func IsFolder(n *Node) bool {
	id, ok := TypeID(n)
	return ok && id == TypeFolder
}

// IsDocument reports whether the node's type id is cmis:document.
func IsDocument(n *Node) bool {
	id, ok := TypeID(n)
	return ok && id == TypeDocument
}
