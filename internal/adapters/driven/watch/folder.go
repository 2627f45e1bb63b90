// Package watch provides an fsnotify-backed drop-folder watcher.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/knowctl/internal/core/ports/driven"
	"github.com/custodia-labs/knowctl/internal/logger"
)

// Ensure FolderWatcher implements the interface.
var _ driven.FolderWatcher = (*FolderWatcher)(nil)

// eventBuffer is the capacity of the path channel.
const eventBuffer = 64

// FolderWatcher reports regular files created or written in one directory.
// Subdirectories are not followed. Hidden files are ignored.
type FolderWatcher struct{}

// NewFolderWatcher creates a folder watcher.
func NewFolderWatcher() *FolderWatcher {
	return &FolderWatcher{}
}

// Watch starts observing dir. The returned channel closes when ctx is
// done or the underlying watcher stops.
func (w *FolderWatcher) Watch(ctx context.Context, dir string) (<-chan string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	out := make(chan string, eventBuffer)
	go w.loop(ctx, watcher, out)
	return out, nil
}

func (w *FolderWatcher) loop(ctx context.Context, watcher *fsnotify.Watcher, out chan<- string) {
	defer close(out)
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Warn("Failed to close file watcher: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isCandidate(event.Name) {
				continue
			}
			select {
			case out <- event.Name:
			case <-ctx.Done():
				return
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			// Log error but continue watching
			logger.Warn("File watcher error: %v", err)
		}
	}
}

// isCandidate accepts visible regular files.
func isCandidate(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
