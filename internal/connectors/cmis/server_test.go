package cmis

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/cmis-poller/internal/connectors/memory"
	"github.com/custodia-labs/cmis-poller/internal/core/domain"
)

const testRepositoryID = "A1"

// fakeServer serves the browser binding over an in-memory repository.
type fakeServer struct {
	*httptest.Server
	repo *memory.Repository

	mu       sync.Mutex
	requests []*http.Request
	forms    []url.Values
	failures map[string]int // selector -> status, served once
	auth     func(r *http.Request) bool
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{
		repo:     memory.NewRepository(testRepositoryID),
		failures: make(map[string]int),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeServer) serviceURL() string {
	return f.URL + "/cmis/browser"
}

func (f *fakeServer) endpoint() domain.Endpoint {
	return domain.Endpoint{ID: "test", URL: f.serviceURL(), RateLimit: 1000}
}

func (f *fakeServer) failOnce(selector string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[selector] = status
}

func (f *fakeServer) recorded() []*http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*http.Request(nil), f.requests...)
}

func (f *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	selector := q.Get("cmisselector")

	var form url.Values
	if r.Method == http.MethodPost {
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			_ = r.ParseMultipartForm(1 << 20)
			form = url.Values(r.MultipartForm.Value)
		} else {
			_ = r.ParseForm()
			form = r.PostForm
		}
		selector = form.Get("cmisaction")
	}

	f.mu.Lock()
	f.requests = append(f.requests, r)
	f.forms = append(f.forms, form)
	status, fail := f.failures[selector]
	delete(f.failures, selector)
	auth := f.auth
	f.mu.Unlock()

	if auth != nil && !auth(r) {
		writeException(w, http.StatusUnauthorized, "unauthorized", "bad credentials")
		return
	}
	if fail {
		if status == http.StatusTooManyRequests {
			w.Header().Set(HeaderRetryAfter, "0")
		}
		writeException(w, status, "runtime", "injected failure")
		return
	}

	base := "/cmis/browser"
	root := base + "/" + testRepositoryID + "/root"
	switch {
	case r.URL.Path == base:
		writeJSON(w, map[string]any{
			testRepositoryID: map[string]any{
				"repositoryId":  testRepositoryID,
				"repositoryUrl": f.URL + base + "/" + testRepositoryID,
				"rootFolderUrl": f.URL + root,
				"rootFolderId":  memory.RootID,
			},
		})

	case r.URL.Path == base+"/"+testRepositoryID:
		f.handleRepository(ctx, w, selector, q)

	case r.Method == http.MethodPost && r.URL.Path == root:
		f.handleCreate(ctx, w, r, q.Get("objectId"), selector, form)

	case r.URL.Path == root && q.Get("objectId") != "":
		f.handleObject(ctx, w, q.Get("objectId"), selector, q)

	case strings.HasPrefix(r.URL.Path, root):
		node, err := f.repo.ResolvePath(ctx, "/"+strings.TrimPrefix(r.URL.Path, root))
		if err != nil {
			writeException(w, http.StatusNotFound, "objectNotFound", err.Error())
			return
		}
		writeJSON(w, objectJSON(node))

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeServer) handleRepository(ctx context.Context, w http.ResponseWriter, selector string, q url.Values) {
	switch selector {
	case "query":
		cursor, err := f.repo.ExecuteQuery(ctx, q.Get("q"), atoi(q.Get("maxItems")))
		if err != nil {
			writeException(w, http.StatusBadRequest, "invalidArgument", err.Error())
			return
		}
		page, err := cursor.FetchPage(ctx, atoi(q.Get("skipCount")))
		if err != nil {
			writeException(w, http.StatusInternalServerError, "runtime", err.Error())
			return
		}
		results := make([]any, 0, len(page.Nodes))
		for i := range page.Nodes {
			results = append(results, objectJSON(&page.Nodes[i]))
		}
		writeJSON(w, map[string]any{"results": results, "hasMoreItems": page.HasMore, "numItems": len(results)})

	case "typeDefinition":
		def, err := f.repo.TypeDefinition(ctx, q.Get("typeId"))
		if err != nil {
			writeException(w, http.StatusNotFound, "objectNotFound", err.Error())
			return
		}
		writeJSON(w, map[string]any{
			"id": def.ID, "baseId": def.BaseID, "displayName": def.DisplayName, "versionable": def.Versionable,
		})

	default:
		writeException(w, http.StatusBadRequest, "invalidArgument", "unknown selector "+selector)
	}
}

func (f *fakeServer) handleObject(ctx context.Context, w http.ResponseWriter, id, selector string, q url.Values) {
	node, err := f.repo.GetObject(ctx, id)
	if err != nil {
		writeException(w, http.StatusNotFound, "objectNotFound", err.Error())
		return
	}

	switch selector {
	case "object":
		writeJSON(w, objectJSON(node))

	case "children":
		cursor, err := f.repo.ListChildren(ctx, node, atoi(q.Get("maxItems")))
		if err != nil {
			writeException(w, http.StatusBadRequest, "invalidArgument", err.Error())
			return
		}
		page, err := cursor.FetchPage(ctx, atoi(q.Get("skipCount")))
		if err != nil {
			writeException(w, http.StatusInternalServerError, "runtime", err.Error())
			return
		}
		objects := make([]any, 0, len(page.Nodes))
		for i := range page.Nodes {
			objects = append(objects, map[string]any{"object": objectJSON(&page.Nodes[i])})
		}
		writeJSON(w, map[string]any{"objects": objects, "hasMoreItems": page.HasMore, "numItems": len(objects)})

	case "content":
		content, err := f.repo.OpenContent(ctx, node)
		if err != nil {
			writeException(w, http.StatusInternalServerError, "runtime", err.Error())
			return
		}
		if content == nil {
			writeException(w, http.StatusConflict, "constraint", "no content stream")
			return
		}
		defer content.Close()
		w.Header().Set("Content-Type", content.MimeType)
		w.Header().Set("Content-Length", strconv.FormatInt(content.Length, 10))
		_, _ = io.Copy(w, content)

	default:
		writeException(w, http.StatusBadRequest, "invalidArgument", "unknown selector "+selector)
	}
}

func (f *fakeServer) handleCreate(
	ctx context.Context, w http.ResponseWriter, r *http.Request, parentID, action string, form url.Values,
) {
	parent, err := f.repo.GetObject(ctx, parentID)
	if err != nil {
		writeException(w, http.StatusNotFound, "objectNotFound", err.Error())
		return
	}

	props := domain.Properties{}
	for i := 0; ; i++ {
		id := form.Get("propertyId[" + strconv.Itoa(i) + "]")
		if id == "" {
			break
		}
		props[id] = form.Get("propertyValue[" + strconv.Itoa(i) + "]")
	}

	var node *domain.Node
	switch action {
	case "createFolder":
		node, err = f.repo.CreateFolder(ctx, parent, props)
	case "createDocument":
		var content *domain.ContentStream
		if r.MultipartForm != nil {
			if files := r.MultipartForm.File["content"]; len(files) > 0 {
				file, openErr := files[0].Open()
				if openErr != nil {
					writeException(w, http.StatusBadRequest, "invalidArgument", openErr.Error())
					return
				}
				content = &domain.ContentStream{
					FileName: files[0].Filename,
					MimeType: files[0].Header.Get("Content-Type"),
					Length:   files[0].Size,
					Body:     file,
				}
			}
		}
		node, err = f.repo.CreateDocument(ctx, parent, props, content)
	default:
		writeException(w, http.StatusBadRequest, "invalidArgument", "unknown action "+action)
		return
	}
	if err != nil {
		writeException(w, http.StatusConflict, "nameConstraintViolation", err.Error())
		return
	}
	writeJSON(w, objectJSON(node))
}

// objectJSON renders a node as a succinct browser binding object.
// Dates become epoch milliseconds. Every object also carries a
// multi-valued secondary type list.
func objectJSON(node *domain.Node) map[string]any {
	props := make(map[string]any, len(node.Properties)+1)
	for key, value := range node.Properties {
		if ts, ok := value.(time.Time); ok {
			value = ts.UnixMilli()
		}
		props[key] = value
	}
	props["cmis:secondaryObjectTypeIds"] = []any{"P:cm:titled", "P:sys:localized"}
	return map[string]any{"succinctProperties": props}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeException(w http.ResponseWriter, status int, exception, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"exception": exception, "message": message})
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
