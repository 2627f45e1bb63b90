// Package browser opens links in the system browser.
package browser

import (
	"fmt"
	"io"

	"github.com/pkg/browser"

	"github.com/custodia-labs/knowctl/internal/core/domain"
	"github.com/custodia-labs/knowctl/internal/core/ports/driven"
	"github.com/custodia-labs/knowctl/internal/logger"
)

// Ensure Opener implements the interface.
var _ driven.URLOpener = (*Opener)(nil)

// Opener launches the system browser for absolute, safe URLs.
type Opener struct {
	open func(string) error
}

// NewOpener creates a browser opener.
func NewOpener() *Opener {
	return &Opener{open: browser.OpenURL}
}

// Silence stops the launched browser from writing to the terminal.
// The TUI calls this before taking over the screen.
func Silence() {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// Open opens target if it is safe.
func (o *Opener) Open(target string) error {
	if !domain.IsSafeURL(target) {
		return fmt.Errorf("refusing to open %q: %w", target, domain.ErrInvalidInput)
	}
	logger.Debug("Opening %s", target)
	if err := o.open(target); err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	return nil
}
