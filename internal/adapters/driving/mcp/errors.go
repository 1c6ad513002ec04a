// Package mcp provides an MCP (Model Context Protocol) server adapter for cmispoll.
// It lets AI assistants query configured CMIS repositories and trigger polls.
package mcp

import "errors"

// ErrMissingSessions is returned when the endpoint session service is not provided.
var ErrMissingSessions = errors.New("mcp: endpoint sessions are required")
