package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
)

// Ensure Repository implements the interface.
var _ driven.RepositoryClient = (*Repository)(nil)

// RootID is the object id of the root folder.
const RootID = "root"

// Fetch records one page request made against the repository.
type Fetch struct {
	Op       string
	Offset   int
	PageSize int
	Returned int
}

type object struct {
	props    domain.Properties
	path     string
	children []string
	content  []byte
}

// Repository is an in-memory content repository.
type Repository struct {
	id string

	mu         sync.Mutex
	objects    map[string]*object
	order      []string
	queries    map[string][]domain.Properties
	types      map[string]domain.TypeDefinition
	maxPage    int
	failures   map[string]failure
	contentErr map[string]error
	fetches    []Fetch
	closed     bool
}

type failure struct {
	offset int
	err    error
}

// NewRepository creates an empty repository holding only the root folder.
func NewRepository(id string) *Repository {
	r := &Repository{
		id:         id,
		objects:    make(map[string]*object),
		queries:    make(map[string][]domain.Properties),
		failures:   make(map[string]failure),
		contentErr: make(map[string]error),
		types: map[string]domain.TypeDefinition{
			domain.TypeFolder: {
				ID: domain.TypeFolder, BaseID: domain.TypeFolder, DisplayName: "Folder",
			},
			domain.TypeDocument: {
				ID: domain.TypeDocument, BaseID: domain.TypeDocument, DisplayName: "Document", Versionable: true,
			},
		},
	}
	r.objects[RootID] = &object{
		path: "/",
		props: domain.Properties{
			domain.PropObjectID:     RootID,
			domain.PropObjectTypeID: domain.TypeFolder,
			domain.PropBaseTypeID:   domain.TypeFolder,
			domain.PropName:         "",
			domain.PropPath:         "/",
		},
	}
	return r
}

// AddFolder creates a folder named name under parentPath and returns its path.
func (r *Repository) AddFolder(parentPath, name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj := r.mustAdd(parentPath, domain.Properties{
		domain.PropObjectTypeID: domain.TypeFolder,
		domain.PropBaseTypeID:   domain.TypeFolder,
		domain.PropName:         name,
	}, nil)
	return obj.path
}

// AddDocument creates a document under parentPath and returns its object id.
// A nil content creates a document without a content stream.
func (r *Repository) AddDocument(parentPath, name string, content []byte, mimeType string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	props := domain.Properties{
		domain.PropObjectTypeID: domain.TypeDocument,
		domain.PropBaseTypeID:   domain.TypeDocument,
		domain.PropName:         name,
	}
	if content != nil {
		props[domain.PropContentStreamMimeType] = mimeType
		props[domain.PropContentStreamLength] = int64(len(content))
		props[domain.PropContentStreamFileName] = name
	}
	return r.mustAdd(parentPath, props, content).props.String(domain.PropObjectID)
}

// AddNode creates a child of parentPath with exactly the given properties
// plus an object id and parent id. It allows nodes of unknown or missing type.
func (r *Repository) AddNode(parentPath string, props domain.Properties) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mustAdd(parentPath, props.Clone(), nil).props.String(domain.PropObjectID)
}

// SetQuery registers the rows returned for statement.
func (r *Repository) SetQuery(statement string, rows []domain.Properties) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries[statement] = rows
}

// SetType registers a type definition.
func (r *Repository) SetType(def domain.TypeDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[def.ID] = def
}

// SetMaxPageSize caps how many items any page returns, regardless of the
// requested page size. Zero removes the cap.
func (r *Repository) SetMaxPageSize(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxPage = n
}

// FailChildren makes listing the children of folderPath fail with err
// once a page at or beyond offset is requested.
func (r *Repository) FailChildren(folderPath string, offset int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures["children:"+folderPath] = failure{offset: offset, err: err}
}

// FailQuery makes statement fail with err once a page at or beyond offset
// is requested.
func (r *Repository) FailQuery(statement string, offset int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures["query:"+statement] = failure{offset: offset, err: err}
}

// FailContent makes opening the content of objectID fail with err.
func (r *Repository) FailContent(objectID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contentErr[objectID] = err
}

// Fetches returns every page request made so far.
func (r *Repository) Fetches() []Fetch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Fetch(nil), r.fetches...)
}

// Closed reports whether Close has been called.
func (r *Repository) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// RepositoryID returns the repository id.
func (r *Repository) RepositoryID() string {
	return r.id
}

// ResolvePath returns the node at p.
func (r *Repository) ResolvePath(_ context.Context, p string) (*domain.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj := r.byPath(p)
	if obj == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, p)
	}
	return obj.node(), nil
}

// GetObject returns the node with objectID.
func (r *Repository) GetObject(_ context.Context, objectID string) (*domain.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, ok := r.objects[objectID]
	if !ok {
		return nil, fmt.Errorf("%w: object %s", domain.ErrNotFound, objectID)
	}
	return obj.node(), nil
}

// ListChildren returns a cursor over the children of folder.
func (r *Repository) ListChildren(_ context.Context, folder *domain.Node, pageSize int) (driven.PageCursor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, ok := r.objects[folder.ID()]
	if !ok {
		return nil, fmt.Errorf("%w: folder %s", domain.ErrNotFound, folder.ID())
	}
	key := "children:" + obj.path
	return &cursor{repo: r, op: key, pageSize: pageSize, rows: func() []domain.Node {
		nodes := make([]domain.Node, 0, len(obj.children))
		for _, id := range obj.children {
			nodes = append(nodes, *r.objects[id].node())
		}
		return nodes
	}}, nil
}

// ExecuteQuery returns a cursor over the rows of statement.
func (r *Repository) ExecuteQuery(_ context.Context, statement string, pageSize int) (driven.PageCursor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.queries[statement]; !ok && baseTypeOf(statement) == "" {
		return nil, fmt.Errorf("%w: unsupported query %q", domain.ErrInvalidInput, statement)
	}
	return &cursor{repo: r, op: "query:" + statement, pageSize: pageSize, rows: func() []domain.Node {
		if rows, ok := r.queries[statement]; ok {
			nodes := make([]domain.Node, 0, len(rows))
			for _, props := range rows {
				nodes = append(nodes, domain.Node{Properties: props.Clone()})
			}
			return nodes
		}
		base := baseTypeOf(statement)
		var nodes []domain.Node
		for _, id := range r.order {
			obj := r.objects[id]
			if obj.props.String(domain.PropBaseTypeID) == base {
				nodes = append(nodes, domain.Node{Properties: obj.props.Clone()})
			}
		}
		return nodes
	}}, nil
}

// OpenContent returns the document's content, or nil when it has none.
func (r *Repository) OpenContent(_ context.Context, document *domain.Node) (*domain.ContentStream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := document.ID()
	if err, ok := r.contentErr[id]; ok {
		return nil, err
	}
	obj, ok := r.objects[id]
	if !ok {
		return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	if obj.content == nil {
		return nil, nil
	}
	return &domain.ContentStream{
		FileName: obj.props.String(domain.PropContentStreamFileName),
		MimeType: obj.props.String(domain.PropContentStreamMimeType),
		Length:   int64(len(obj.content)),
		Body:     io.NopCloser(bytes.NewReader(obj.content)),
	}, nil
}

// TypeDefinition returns a registered type definition.
func (r *Repository) TypeDefinition(_ context.Context, typeID string) (*domain.TypeDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, ok := r.types[typeID]
	if !ok {
		return nil, fmt.Errorf("%w: type %s", domain.ErrNotFound, typeID)
	}
	return &def, nil
}

// CreateFolder creates a folder under parent.
func (r *Repository) CreateFolder(
	_ context.Context, parent *domain.Node, props domain.Properties,
) (*domain.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	props = props.Clone()
	props[domain.PropBaseTypeID] = domain.TypeFolder
	obj, err := r.add(parent.FolderPath(), props, nil)
	if err != nil {
		return nil, err
	}
	return obj.node(), nil
}

// CreateDocument creates a document under parent, reading content fully.
func (r *Repository) CreateDocument(
	_ context.Context, parent *domain.Node, props domain.Properties, content *domain.ContentStream,
) (*domain.Node, error) {
	var data []byte
	props = props.Clone()
	if content != nil {
		defer content.Close()
		var err error
		if data, err = io.ReadAll(content); err != nil {
			return nil, fmt.Errorf("read content: %w", err)
		}
		props[domain.PropContentStreamMimeType] = content.MimeType
		props[domain.PropContentStreamLength] = int64(len(data))
		props[domain.PropContentStreamFileName] = content.FileName
	}
	props[domain.PropBaseTypeID] = domain.TypeDocument

	r.mu.Lock()
	defer r.mu.Unlock()
	obj, err := r.add(parent.FolderPath(), props, data)
	if err != nil {
		return nil, err
	}
	return obj.node(), nil
}

// Close marks the session closed.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *Repository) mustAdd(parentPath string, props domain.Properties, content []byte) *object {
	obj, err := r.add(parentPath, props, content)
	if err != nil {
		panic(err)
	}
	return obj
}

func (r *Repository) add(parentPath string, props domain.Properties, content []byte) (*object, error) {
	parent := r.byPath(parentPath)
	if parent == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, parentPath)
	}
	name := props.String(domain.PropName)
	for _, id := range parent.children {
		if r.objects[id].props.String(domain.PropName) == name {
			return nil, fmt.Errorf("%w: %s", domain.ErrAlreadyExists, path.Join(parent.path, name))
		}
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	props[domain.PropObjectID] = id
	props[domain.PropParentID] = parent.props.String(domain.PropObjectID)
	props[domain.PropCreationDate] = now
	props[domain.PropLastModificationDate] = now

	obj := &object{props: props, content: content}
	if props.String(domain.PropObjectTypeID) == domain.TypeFolder {
		obj.path = path.Join(parent.path, name)
		props[domain.PropPath] = obj.path
	}

	r.objects[id] = obj
	r.order = append(r.order, id)
	parent.children = append(parent.children, id)
	return obj, nil
}

func (r *Repository) byPath(p string) *object {
	p = path.Clean("/" + p)
	obj := r.objects[RootID]
	if p == "/" {
		return obj
	}
	for _, segment := range strings.Split(strings.TrimPrefix(p, "/"), "/") {
		var next *object
		for _, id := range obj.children {
			child := r.objects[id]
			if child.props.String(domain.PropName) == segment {
				next = child
				break
			}
		}
		if next == nil {
			return nil
		}
		obj = next
	}
	return obj
}

func (o *object) node() *domain.Node {
	return &domain.Node{Properties: o.props.Clone(), Path: o.path}
}

func baseTypeOf(statement string) string {
	fields := strings.Fields(strings.ToLower(statement))
	if len(fields) == 4 && fields[0] == "select" && fields[1] == "*" && fields[2] == "from" {
		switch fields[3] {
		case domain.TypeDocument:
			return domain.TypeDocument
		case domain.TypeFolder:
			return domain.TypeFolder
		}
	}
	return ""
}

type cursor struct {
	repo     *Repository
	op       string
	pageSize int
	rows     func() []domain.Node
}

func (c *cursor) FetchPage(ctx context.Context, offset int) (domain.Page, error) {
	if err := ctx.Err(); err != nil {
		return domain.Page{}, err
	}

	c.repo.mu.Lock()
	defer c.repo.mu.Unlock()

	size := c.pageSize
	if c.repo.maxPage > 0 && size > c.repo.maxPage {
		size = c.repo.maxPage
	}
	fetch := Fetch{Op: c.op, Offset: offset, PageSize: c.pageSize}

	if f, ok := c.repo.failures[c.op]; ok && offset >= f.offset {
		c.repo.fetches = append(c.repo.fetches, fetch)
		return domain.Page{}, f.err
	}

	rows := c.rows()
	start := min(offset, len(rows))
	end := min(start+size, len(rows))
	page := domain.Page{Nodes: rows[start:end], HasMore: end < len(rows)}

	fetch.Returned = len(page.Nodes)
	c.repo.fetches = append(c.repo.fetches, fetch)
	return page, nil
}

// Factory opens sessions onto in-memory repositories keyed by endpoint URL.
type Factory struct {
	repos map[string]*Repository
}

// Ensure Factory implements the interface.
var _ driven.RepositoryFactory = (*Factory)(nil)

// NewFactory creates a factory serving repos by endpoint URL.
func NewFactory(repos map[string]*Repository) *Factory {
	return &Factory{repos: repos}
}

// Open returns the repository registered for the endpoint URL.
func (f *Factory) Open(_ context.Context, endpoint domain.Endpoint) (driven.RepositoryClient, error) {
	repo, ok := f.repos[endpoint.URL]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoRepository, endpoint.URL)
	}
	return repo, nil
}
