package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/knowctl/internal/adapters/driven/browser"
	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui"
	"github.com/custodia-labs/knowctl/internal/logger"
)

// logFileName is written next to config.toml while the TUI runs.
const logFileName = "knowctl.log"

// errNotTerminal is returned when the TUI is started without a terminal.
var errNotTerminal = errors.New("the interactive interface needs a terminal; use 'knowctl source' commands instead")

// isTerminal is replaced in tests.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for knowctl.

The TUI lists every knowledge source as a card and keeps the list in step
with the backend after each change.

Controls:
  ↑/k, ↓/j - Move between cards
  Enter/o  - Open the selected source
  a        - Add a source (ctrl+t switches type, ctrl+s saves)
  m        - Card menu: pin, edit, refresh, delete
  i, x     - Reindex, remove
  r, R     - Refresh the list, reindex everything
  p, d, t  - In the viewer: preview, downloads, extracted text
  Esc      - Back / Cancel
  ?        - Toggle help
  q        - Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	if !isTerminal() {
		return errNotTerminal
	}

	// Build ports from configuration
	ports := tui.NewPorts(sourceService, linkService)

	var opts []tui.Option
	if excerptLength > 0 {
		opts = append(opts, tui.WithExcerptLength(excerptLength))
	}

	// Create the TUI app
	app, err := tui.NewApp(ports, opts...)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	// Log to a file; stderr would corrupt the alternate screen.
	if configStore != nil {
		closeLog, logErr := logger.OpenFile(filepath.Join(filepath.Dir(configStore.Path()), logFileName))
		if logErr == nil {
			defer closeLog() //nolint:errcheck
		}
	}
	browser.Silence()

	// Set up context from command
	app.WithContext(commandContext(cmd))

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
