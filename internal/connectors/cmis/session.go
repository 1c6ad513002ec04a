package cmis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
	"github.com/custodia-labs/cmis-poller/internal/logger"
)

// Ensure Session implements the interface.
var _ driven.RepositoryClient = (*Session)(nil)

// Repository describes one repository advertised by a service document.
type Repository struct {
	ID            string
	RepositoryURL string
	RootFolderURL string
	RootFolderID  string
}

// Session is an open browser binding session bound to one repository.
type Session struct {
	client *Client
	repo   Repository
	closed atomic.Bool
}

// Open reads the endpoint's service document and binds a session to the
// configured repository.
func Open(ctx context.Context, endpoint domain.Endpoint) (*Session, error) {
	cfg, err := ParseConfig(endpoint)
	if err != nil {
		return nil, err
	}

	client := NewClient(cfg)
	doc, err := client.getJSON(ctx, cfg.ServiceURL, nil, "get service document")
	if err != nil {
		client.Close()
		return nil, err
	}

	repo, err := selectRepository(doc, cfg.RepositoryID)
	if err != nil {
		client.Close()
		return nil, err
	}

	logger.Debug("cmis: bound to repository %s at %s", repo.ID, repo.RepositoryURL)
	return &Session{client: client, repo: repo}, nil
}

func selectRepository(doc any, id string) (Repository, error) {
	repos := repositories(doc)
	if len(repos) == 0 {
		return Repository{}, domain.ErrNoRepository
	}

	var entry map[string]any
	if id == "" {
		entry = repos[0]
		if len(repos) > 1 {
			logger.Warn("cmis: %d repositories advertised, using %s", len(repos), stringAt(entry, repositoryIDPath))
		}
	} else {
		for _, candidate := range repos {
			if stringAt(candidate, repositoryIDPath) == id {
				entry = candidate
				break
			}
		}
		if entry == nil {
			return Repository{}, fmt.Errorf("%w: %s", ErrRepositoryNotFound, id)
		}
	}

	repo := Repository{
		ID:            stringAt(entry, repositoryIDPath),
		RepositoryURL: stringAt(entry, repositoryURLPath),
		RootFolderURL: stringAt(entry, rootFolderURLPath),
		RootFolderID:  stringAt(entry, rootFolderIDPath),
	}
	if repo.RepositoryURL == "" || repo.RootFolderURL == "" {
		return Repository{}, fmt.Errorf("%w: repository %s has no binding urls", ErrMalformedResponse, repo.ID)
	}
	return repo, nil
}

// RepositoryID returns the bound repository's id.
func (s *Session) RepositoryID() string {
	return s.repo.ID
}

// ResolvePath returns the object at an absolute folder path.
func (s *Session) ResolvePath(ctx context.Context, p string) (*domain.Node, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	doc, err := s.client.getJSON(ctx, s.repo.RootFolderURL+escapePath(p), url.Values{
		"cmisselector": {"object"},
		"succinct":     {"true"},
	}, "get object by path "+p)
	if err != nil {
		return nil, err
	}
	return nodeAt(doc, objectPropsPath)
}

// GetObject returns the object with objectID.
func (s *Session) GetObject(ctx context.Context, objectID string) (*domain.Node, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	doc, err := s.client.getJSON(ctx, s.repo.RootFolderURL, url.Values{
		"objectId":     {objectID},
		"cmisselector": {"object"},
		"succinct":     {"true"},
	}, "get object "+objectID)
	if err != nil {
		return nil, err
	}
	return nodeAt(doc, objectPropsPath)
}

// ListChildren returns a cursor over folder's children.
func (s *Session) ListChildren(ctx context.Context, folder *domain.Node, pageSize int) (driven.PageCursor, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	id := folder.ID()
	if id == "" {
		return nil, fmt.Errorf("%w: folder without %s", domain.ErrInvalidInput, domain.PropObjectID)
	}
	return &pageCursor{fetch: func(ctx context.Context, offset int) (domain.Page, error) {
		doc, err := s.client.getJSON(ctx, s.repo.RootFolderURL, url.Values{
			"objectId":     {id},
			"cmisselector": {"children"},
			"maxItems":     {strconv.Itoa(pageSize)},
			"skipCount":    {strconv.Itoa(offset)},
			"succinct":     {"true"},
		}, "get children of "+id)
		if err != nil {
			return domain.Page{}, err
		}
		return pageAt(doc, childrenPropsPath), nil
	}}, nil
}

// ExecuteQuery runs statement and returns a cursor over its rows.
// The first page is fetched immediately so a malformed query fails here.
func (s *Session) ExecuteQuery(ctx context.Context, statement string, pageSize int) (driven.PageCursor, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	cursor := &pageCursor{fetch: func(ctx context.Context, offset int) (domain.Page, error) {
		doc, err := s.client.getJSON(ctx, s.repo.RepositoryURL, url.Values{
			"cmisselector":      {"query"},
			"q":                 {statement},
			"searchAllVersions": {"false"},
			"maxItems":          {strconv.Itoa(pageSize)},
			"skipCount":         {strconv.Itoa(offset)},
			"succinct":          {"true"},
		}, "query")
		if err != nil {
			return domain.Page{}, err
		}
		return pageAt(doc, queryPropsPath), nil
	}}

	first, err := cursor.fetch(ctx, 0)
	if err != nil {
		return nil, err
	}
	cursor.first = &first
	return cursor, nil
}

// OpenContent returns the document's content stream, or nil when the
// document has none.
func (s *Session) OpenContent(ctx context.Context, document *domain.Node) (*domain.ContentStream, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if !mayHaveContent(document.Properties) {
		return nil, nil
	}

	id := document.ID()
	resp, err := s.client.get(ctx, s.repo.RootFolderURL, url.Values{
		"objectId":     {id},
		"cmisselector": {"content"},
	}, "get content of "+id)
	if err != nil {
		if IsConstraint(err) {
			return nil, nil
		}
		return nil, err
	}

	fileName := document.Properties.String(domain.PropContentStreamFileName)
	if fileName == "" {
		fileName = document.Name()
	}
	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = document.Properties.String(domain.PropContentStreamMimeType)
	}
	return &domain.ContentStream{
		FileName: fileName,
		MimeType: mimeType,
		Length:   resp.ContentLength,
		Body:     resp.Body,
	}, nil
}

// TypeDefinition returns the definition of typeID.
func (s *Session) TypeDefinition(ctx context.Context, typeID string) (*domain.TypeDefinition, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	doc, err := s.client.getJSON(ctx, s.repo.RepositoryURL, url.Values{
		"cmisselector": {"typeDefinition"},
		"typeId":       {typeID},
	}, "get type "+typeID)
	if err != nil {
		return nil, err
	}
	return &domain.TypeDefinition{
		ID:          stringAt(doc, typeIDPath),
		BaseID:      stringAt(doc, typeBaseIDPath),
		DisplayName: stringAt(doc, typeDisplayPath),
		Versionable: boolAt(doc, typeVersionedPath),
	}, nil
}

// CreateFolder creates a folder under parent.
func (s *Session) CreateFolder(
	ctx context.Context, parent *domain.Node, props domain.Properties,
) (*domain.Node, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	form := actionForm("createFolder", props)
	doc, err := s.client.postJSON(ctx, s.repo.RootFolderURL, url.Values{"objectId": {parent.ID()}},
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()), "create folder")
	if err != nil {
		return nil, err
	}
	return nodeAt(doc, objectPropsPath)
}

// CreateDocument creates a document under parent with optional content.
func (s *Session) CreateDocument(
	ctx context.Context, parent *domain.Node, props domain.Properties, content *domain.ContentStream,
) (*domain.Node, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	form := actionForm("createDocument", props)
	params := url.Values{"objectId": {parent.ID()}}

	if content == nil {
		doc, err := s.client.postJSON(ctx, s.repo.RootFolderURL, params,
			"application/x-www-form-urlencoded", strings.NewReader(form.Encode()), "create document")
		if err != nil {
			return nil, err
		}
		return nodeAt(doc, objectPropsPath)
	}
	defer content.Close()

	body, contentType, err := multipartBody(form, content)
	if err != nil {
		return nil, err
	}
	doc, err := s.client.postJSON(ctx, s.repo.RootFolderURL, params, contentType, body, "create document")
	if err != nil {
		return nil, err
	}
	return nodeAt(doc, objectPropsPath)
}

// Close releases the session. Content streams already opened stay readable.
func (s *Session) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.client.Close()
	}
	return nil
}

func (s *Session) check() error {
	if s.closed.Load() {
		return fmt.Errorf("%w: %w", domain.ErrConnectorClosed, errClosed)
	}
	return nil
}

// pageCursor pages through a browser binding collection by skip count.
type pageCursor struct {
	fetch func(ctx context.Context, offset int) (domain.Page, error)
	first *domain.Page
}

func (c *pageCursor) FetchPage(ctx context.Context, offset int) (domain.Page, error) {
	if offset == 0 && c.first != nil {
		page := *c.first
		c.first = nil
		return page, nil
	}
	return c.fetch(ctx, offset)
}

// mayHaveContent reports false only when the properties say the document
// has no content stream. Rows that omit the content properties are tried.
func mayHaveContent(props domain.Properties) bool {
	length, hasLength := props[domain.PropContentStreamLength]
	mimeType, hasMime := props[domain.PropContentStreamMimeType]
	if !hasLength && !hasMime {
		return true
	}
	if hasMime && mimeType != nil && mimeType != "" {
		return true
	}
	switch n := length.(type) {
	case int64:
		return n > 0
	case float64:
		return n > 0
	}
	return false
}

// escapePath escapes each segment of an absolute repository path.
func escapePath(p string) string {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	if len(segments) == 1 && segments[0] == "" {
		return ""
	}
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return "/" + strings.Join(segments, "/")
}

// actionForm builds the form fields of a create action. Properties are
// sent in key order.
func actionForm(action string, props domain.Properties) url.Values {
	form := url.Values{
		"cmisaction": {action},
		"succinct":   {"true"},
	}
	keys := make([]string, 0, len(props))
	for key := range props {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for i, key := range keys {
		form.Set(fmt.Sprintf("propertyId[%d]", i), key)
		form.Set(fmt.Sprintf("propertyValue[%d]", i), formatValue(props[key]))
	}
	return form
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return strconv.FormatInt(v.UnixMilli(), 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func multipartBody(form url.Values, content *domain.ContentStream) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(form))
	for key := range form {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if err := w.WriteField(key, form.Get(key)); err != nil {
			return nil, "", err
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="content"; filename=%q`, content.FileName))
	header.Set("Content-Type", content.MimeType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, "", fmt.Errorf("read content: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
