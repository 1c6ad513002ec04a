package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for cmispoll resources.
	uriScheme = "cmispoll://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "endpoints",
		Name:        "endpoints",
		Description: "Configured repository endpoints",
		MIMEType:    "application/json",
	}, s.handleEndpointsResource)

	if s.ports.Polls != nil {
		s.server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: uriScheme + "endpoints/{endpointId}/status",
			Name:        "endpoint-status",
			Description: "Poll status of a specific endpoint",
			MIMEType:    "application/json",
		}, s.handleStatusResource)
	}
}

// endpointInfo is the public view of an endpoint. Credentials are omitted.
type endpointInfo struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Mode     string `json:"mode"`
	Sink     string `json:"sink"`
	Interval string `json:"interval"`
}

// handleEndpointsResource lists configured endpoints.
func (s *Server) handleEndpointsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Endpoints == nil {
		return jsonResult(req.Params.URI, []endpointInfo{})
	}

	endpoints, err := s.ports.Endpoints.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing endpoints: %w", err)
	}

	infos := make([]endpointInfo, len(endpoints))
	for i := range endpoints {
		kind, _ := endpoints[i].SinkKind()
		infos[i] = endpointInfo{
			ID:       endpoints[i].ID,
			URL:      redactURL(endpoints[i].URL),
			Mode:     endpoints[i].Mode().String(),
			Sink:     kind,
			Interval: endpoints[i].PollInterval().String(),
		}
	}
	return jsonResult(req.Params.URI, infos)
}

// handleStatusResource returns the poll status of one endpoint.
func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	endpointID := extractEndpointID(req.Params.URI)
	if endpointID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	status, err := s.ports.Polls.Status(ctx, endpointID)
	if err != nil {
		return nil, fmt.Errorf("getting status: %w", err)
	}

	return jsonResult(req.Params.URI, map[string]any{
		"endpoint":      status.EndpointID,
		"running":       status.Running,
		"items_emitted": status.ItemsEmitted,
		"last_poll_id":  status.LastPollID,
		"last_items":    status.LastItemsCount,
		"last_error":    status.LastError,
	})
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractEndpointID extracts the endpoint ID from a URI like cmispoll://endpoints/{endpointId}/status.
func extractEndpointID(uri string) string {
	const prefix = uriScheme + "endpoints/"
	const suffix = "/status"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}
	return strings.TrimSuffix(uri, suffix)
}

// redactURL drops userinfo from a URL string.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	u.User = nil
	return u.String()
}
