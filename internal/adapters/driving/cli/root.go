// Package cli provides the cobra command tree for knowctl.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/knowctl/internal/core/ports/driven"
	"github.com/custodia-labs/knowctl/internal/core/ports/driving"
	"github.com/custodia-labs/knowctl/internal/core/services"
	"github.com/custodia-labs/knowctl/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

// skipServices marks commands that run without a backend client.
const skipServices = "knowctl/skip-services"

// ConfigEditor is the config store as the config commands see it.
type ConfigEditor interface {
	driven.ConfigStore

	// SetString parses raw by the key's type and persists it.
	SetString(key, raw string) error

	// Display renders a value for humans, masking secrets.
	Display(key string) string
}

// Ingester uploads files dropped into a folder.
type Ingester interface {
	Run(ctx context.Context, dir string, report func(services.IngestEvent)) error
}

// IDCompleter suggests source IDs for shell completion.
type IDCompleter interface {
	IDs(ctx context.Context, prefix string) ([]string, error)
}

// Options are the global flags handed to the bootstrap functions.
type Options struct {
	ConfigDir string
	Server    string
	Verbose   bool
}

// Services are the wired adapters the commands run against.
type Services struct {
	Source        driving.SourceService
	Links         driving.LinkService
	Ingest        Ingester
	Completer     IDCompleter
	ExcerptLength int

	// Close releases resources such as the snapshot database.
	Close func() error
}

// Bootstrap builds the config store and services from global flags.
// Config is called for every command; Services only for commands
// that talk to the backend.
type Bootstrap struct {
	Config   func(opts Options) (ConfigEditor, error)
	Services func(cfg ConfigEditor, opts Options) (*Services, error)
}

var (
	sourceService driving.SourceService
	linkService   driving.LinkService
	ingestService Ingester
	idCompleter   IDCompleter
	configStore   ConfigEditor
	excerptLength int
	closeServices func() error

	bootstrap *Bootstrap
	opts      Options
)

var rootCmd = &cobra.Command{
	Use:   "knowctl",
	Short: "Manage the sources of a knowledge backend",
	Long: `knowctl adds, edits, previews, reindexes, pins and removes the sources
that feed a knowledge backend's index: free text, uploaded documents and
web links.

Run without arguments, or with 'tui', for the interactive interface.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "", "configuration directory (default ~/.knowctl)")
	rootCmd.PersistentFlags().StringVar(&opts.Server, "server", "", "backend address, overrides server.base_url")
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
}

// SetBootstrap registers how the config store and services are built.
func SetBootstrap(b *Bootstrap) {
	bootstrap = b
}

// SetServices injects wired services directly.
func SetServices(s *Services) {
	if s == nil {
		sourceService, linkService, ingestService, idCompleter = nil, nil, nil, nil
		excerptLength, closeServices = 0, nil
		return
	}
	sourceService = s.Source
	linkService = s.Links
	ingestService = s.Ingest
	idCompleter = s.Completer
	excerptLength = s.ExcerptLength
	closeServices = s.Close
}

// SetConfigStore injects the config store directly.
func SetConfigStore(store ConfigEditor) {
	configStore = store
}

// Execute runs the root command and releases services afterwards.
func Execute() error {
	defer teardown()
	return rootCmd.Execute()
}

// setup enables logging and builds whatever the command needs that was
// not injected.
func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(opts.Verbose)

	if bootstrap == nil {
		return nil
	}
	if configStore == nil && bootstrap.Config != nil {
		store, err := bootstrap.Config(opts)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		configStore = store
	}
	if !needsServices(cmd) || sourceService != nil || bootstrap.Services == nil {
		return nil
	}
	svc, err := bootstrap.Services(configStore, opts)
	if err != nil {
		return fmt.Errorf("connecting to backend: %w", err)
	}
	SetServices(svc)
	return nil
}

func teardown() {
	if closeServices == nil {
		return
	}
	if err := closeServices(); err != nil {
		fmt.Fprintf(os.Stderr, "closing: %v\n", err)
	}
	closeServices = nil
}

// needsServices reports whether cmd or a parent talks to the backend.
func needsServices(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipServices] == "true" {
			return false
		}
	}
	return true
}

// errNoSourceService is returned when no backend client was wired.
var errNoSourceService = errors.New("source service not configured")

func requireSources() (driving.SourceService, error) {
	if sourceService == nil {
		return nil, errNoSourceService
	}
	return sourceService, nil
}
