package mcp

import (
	"github.com/custodia-labs/knowctl/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Source manages sources on the knowledge backend.
	Source driving.SourceService

	// Links resolves backend-relative links. Optional; without it links
	// are returned as the backend sent them.
	Links driving.LinkService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p == nil || p.Source == nil {
		return ErrMissingSourceService
	}
	return nil
}
