package markdown

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/goliatone/go-agrocms/internal/logging"
	"github.com/goliatone/go-agrocms/pkg/interfaces"
)

const defaultWatchDebounce = 250 * time.Millisecond

// WatchOptions configures WatchDirectory.
type WatchOptions struct {
	// Debounce collapses bursts of events into one callback.
	Debounce time.Duration
	// Recursive also watches subdirectories, including ones created later.
	Recursive bool
	Logger    interfaces.Logger
}

// WatchDirectory calls onChange after files under path change, until ctx is
// done. Removing a document does not remove its animal type; onChange only
// learns that something changed.
func WatchDirectory(ctx context.Context, path string, opts WatchOptions, onChange func(context.Context)) error {
	if onChange == nil {
		return errors.New("markdown watch: onChange is required")
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.ImportLogger(nil)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("markdown watch: %w", err)
	}
	defer watcher.Close()

	if err := addWatches(watcher, path, opts.Recursive); err != nil {
		return err
	}
	logger.Info("catalog.watch.started", "path", path, "recursive", opts.Recursive)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("catalog.watch.stopped", "path", path)
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if opts.Recursive && event.Has(fsnotify.Create) {
				if err := addWatches(watcher, event.Name, true); err != nil {
					logger.Warn("catalog.watch.add_failed", "path", event.Name, "error", err)
				}
			}
			logger.Debug("catalog.watch.event", "path", event.Name, "op", event.Op.String())
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("catalog.watch.error", "error", err)
		case <-timer.C:
			onChange(ctx)
		}
	}
}

// addWatches registers root, and its subdirectories when recursive. A root
// that is a plain file is ignored.
func addWatches(watcher *fsnotify.Watcher, root string, recursive bool) error {
	if !recursive {
		if err := watcher.Add(root); err != nil {
			return fmt.Errorf("markdown watch: add %s: %w", root, err)
		}
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("markdown watch: add %s: %w", path, err)
		}
		return nil
	})
}
