package services

import (
	"fmt"

	"github.com/custodia-labs/knowctl/internal/core/domain"
	"github.com/custodia-labs/knowctl/internal/core/ports/driven"
	"github.com/custodia-labs/knowctl/internal/core/ports/driving"
)

// Ensure LinkService implements the interface.
var _ driving.LinkService = (*LinkService)(nil)

// LinkService resolves backend links against the server and opens them.
type LinkService struct {
	opener  driven.URLOpener
	baseURL string
}

// NewLinkService creates a link service. baseURL is the server address
// relative links resolve against.
func NewLinkService(opener driven.URLOpener, baseURL string) *LinkService {
	return &LinkService{opener: opener, baseURL: baseURL}
}

// Resolve returns the absolute form of raw if it is safe.
func (s *LinkService) Resolve(raw string) (string, bool) {
	return domain.ResolveURL(s.baseURL, raw)
}

// Open resolves raw and hands it to the opener.
func (s *LinkService) Open(raw string) error {
	if s.opener == nil {
		return domain.ErrNotImplemented
	}
	resolved, ok := s.Resolve(raw)
	if !ok {
		return fmt.Errorf("open %q: %w", raw, domain.ErrInvalidInput)
	}
	return s.opener.Open(resolved)
}
