// Package tui provides an interactive terminal user interface for knowctl.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/knowctl/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Source manages sources on the knowledge backend. Required.
	Source driving.SourceService

	// Links resolves and opens backend links. Optional; without it the
	// viewer cannot open previews or downloads.
	Links driving.LinkService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(source driving.SourceService, links driving.LinkService) *Ports {
	return &Ports{
		Source: source,
		Links:  links,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Source == nil {
		return ErrMissingSourceService
	}
	return nil
}
