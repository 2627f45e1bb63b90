// Package mcp provides an MCP (Model Context Protocol) server adapter for knowctl.
// It lets AI assistants list, add, update and reindex knowledge sources.
package mcp

import "errors"

// ErrMissingSourceService is returned when the source service is not provided.
var ErrMissingSourceService = errors.New("mcp: source service is required")
