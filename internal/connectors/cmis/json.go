package cmis

import (
	"fmt"
	"io"
	"sort"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
)

// JSONPath expressions over browser binding responses.
var (
	exceptionPath     = jp.MustParseString("$.exception")
	messagePath       = jp.MustParseString("$.message")
	objectPropsPath   = jp.MustParseString("$.succinctProperties")
	childrenPropsPath = jp.MustParseString("$.objects[*].object.succinctProperties")
	queryPropsPath    = jp.MustParseString("$.results[*].succinctProperties")
	hasMoreItemsPath  = jp.MustParseString("$.hasMoreItems")
	repositoryIDPath  = jp.MustParseString("$.repositoryId")
	repositoryURLPath = jp.MustParseString("$.repositoryUrl")
	rootFolderURLPath = jp.MustParseString("$.rootFolderUrl")
	rootFolderIDPath  = jp.MustParseString("$.rootFolderId")
	typeIDPath        = jp.MustParseString("$.id")
	typeBaseIDPath    = jp.MustParseString("$.baseId")
	typeDisplayPath   = jp.MustParseString("$.displayName")
	typeVersionedPath = jp.MustParseString("$.versionable")
)

func decode(r io.Reader) (any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (any, error) {
	doc, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return doc, nil
}

func stringAt(doc any, x jp.Expr) string {
	s, _ := x.First(doc).(string)
	return s
}

func boolAt(doc any, x jp.Expr) bool {
	b, _ := x.First(doc).(bool)
	return b
}

// nodeAt extracts the single object found at x.
func nodeAt(doc any, x jp.Expr) (*domain.Node, error) {
	raw, ok := x.First(doc).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: no succinct properties", ErrMalformedResponse)
	}
	return toNode(raw), nil
}

// pageAt extracts every object found at x plus the hasMoreItems flag.
func pageAt(doc any, x jp.Expr) domain.Page {
	matches := x.Get(doc)
	page := domain.Page{
		Nodes:   make([]domain.Node, 0, len(matches)),
		HasMore: boolAt(doc, hasMoreItemsPath),
	}
	for _, match := range matches {
		if raw, ok := match.(map[string]any); ok {
			page.Nodes = append(page.Nodes, *toNode(raw))
		}
	}
	return page
}

// toNode flattens succinct properties into a node. Multi-valued
// properties keep their first value; empty ones become nil.
func toNode(raw map[string]any) *domain.Node {
	props := make(domain.Properties, len(raw))
	for key, value := range raw {
		if values, ok := value.([]any); ok {
			if len(values) == 0 {
				value = nil
			} else {
				value = values[0]
			}
		}
		props[key] = value
	}

	node := &domain.Node{Properties: props}
	if domain.IsFolder(node) {
		node.Path = props.String(domain.PropPath)
	}
	return node
}

// repositories returns the repository entries of a service document
// ordered by repository id.
func repositories(doc any) []map[string]any {
	entries, ok := doc.(map[string]any)
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	repos := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		if repo, ok := entries[id].(map[string]any); ok {
			repos = append(repos, repo)
		}
	}
	return repos
}
