package driven

import "context"

// FolderWatcher reports files that appear or change in a directory.
type FolderWatcher interface {
	// Watch emits the path of every regular file created or written under
	// dir. The channel closes when ctx is done or the watcher fails.
	Watch(ctx context.Context, dir string) (<-chan string, error)
}
