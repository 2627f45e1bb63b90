// Command knowctl manages the sources of a knowledge backend.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/knowctl/internal/adapters/driven/browser"
	"github.com/custodia-labs/knowctl/internal/adapters/driven/config/file"
	"github.com/custodia-labs/knowctl/internal/adapters/driven/knowledgeapi"
	"github.com/custodia-labs/knowctl/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/knowctl/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/knowctl/internal/adapters/driven/watch"
	"github.com/custodia-labs/knowctl/internal/adapters/driving/cli"
	"github.com/custodia-labs/knowctl/internal/core/ports/driven"
	"github.com/custodia-labs/knowctl/internal/core/services"
	"github.com/custodia-labs/knowctl/internal/logger"
)

func main() {
	cli.SetBootstrap(&cli.Bootstrap{
		Config:   loadConfig,
		Services: buildServices,
	})

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(opts cli.Options) (cli.ConfigEditor, error) {
	return file.NewConfigStore(opts.ConfigDir)
}

// buildServices wires the backend client, the snapshot cache and the
// core services from configuration.
func buildServices(cfg cli.ConfigEditor, opts cli.Options) (*cli.Services, error) {
	baseURL := cfg.GetString(driven.ConfigServerBaseURL)
	if opts.Server != "" {
		baseURL = strings.TrimRight(opts.Server, "/")
	}
	perSecond := cfg.GetFloat(driven.ConfigClientRatePerSecond)

	client, err := knowledgeapi.NewClient(knowledgeapi.Config{
		BaseURL:           baseURL,
		PathPrefix:        cfg.GetString(driven.ConfigServerPathPrefix),
		Timeout:           time.Duration(cfg.GetInt(driven.ConfigServerTimeout)) * time.Second,
		Token:             cfg.GetString(driven.ConfigAuthToken),
		SessionCookie:     cfg.GetString(driven.ConfigAuthSessionCookie),
		CookieName:        cfg.GetString(driven.ConfigAuthCookieName),
		MaxRetries:        cfg.GetInt(driven.ConfigClientMaxRetries),
		RequestsPerSecond: perSecond,
	})
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	out := &cli.Services{
		ExcerptLength: cfg.GetInt(driven.ConfigUIExcerptLength),
	}

	var snapshot driven.SnapshotStore = memory.NewSnapshotStore()
	if cfg.GetBool(driven.ConfigCacheEnabled) {
		dataDir := filepath.Join(filepath.Dir(cfg.Path()), "data")
		store, err := sqlite.NewStore(dataDir)
		if err != nil {
			// The cache is optional; run without it.
			logger.Warn("offline cache disabled: %v", err)
		} else {
			snapshot = store
			out.Completer = store
			out.Close = store.Close
		}
	}

	feed := services.NewChangeFeed(0)
	sources := services.NewSourceService(client, feed,
		services.WithSnapshotStore(snapshot),
		services.WithReindexLimits(0, perSecond),
	)

	out.Source = sources
	out.Links = services.NewLinkService(browser.NewOpener(), client.BaseURL())
	out.Ingest = services.NewIngestService(sources, watch.NewFolderWatcher())
	logger.Debug("backend %s", client.BaseURL())
	return out, nil
}
