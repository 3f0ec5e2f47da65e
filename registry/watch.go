package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// watcher invalidates the index cache when the schema storage tree
// changes on disk. Schemas are read-only artifacts produced externally,
// so a change means a new corpus was deployed.
type watcher struct {
	fs     *fsnotify.Watcher
	logger zerolog.Logger
	stopCh chan struct{}
}

// Watch starts watching the storage root and every family directory for
// changes. Any create, write, remove, or rename under the tree drops the
// cache; the next request rediscovers.
func (ix *Index) Watch() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.watcher != nil {
		return fmt.Errorf("already watching %s", ix.dir)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	if err := fs.Add(ix.dir); err != nil {
		fs.Close()
		return fmt.Errorf("watch %s: %w", ix.dir, err)
	}

	// Watch family subdirectories too; fsnotify is not recursive.
	entries, err := os.ReadDir(ix.dir)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				if err := fs.Add(filepath.Join(ix.dir, entry.Name())); err != nil {
					ix.logger.Warn().Err(err).Str("dir", entry.Name()).Msg("cannot watch family directory")
				}
			}
		}
	}

	w := &watcher{
		fs:     fs,
		logger: ix.logger,
		stopCh: make(chan struct{}),
	}
	ix.watcher = w

	go w.loop(ix)

	ix.logger.Info().Str("dir", ix.dir).Msg("watching schemas directory for changes")
	return nil
}

// StopWatch stops the directory watcher, if running.
func (ix *Index) StopWatch() {
	ix.mu.Lock()
	w := ix.watcher
	ix.watcher = nil
	ix.mu.Unlock()

	if w != nil {
		close(w.stopCh)
		w.fs.Close()
	}
}

func (w *watcher) loop(ix *Index) {
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			// A new family directory must itself be watched.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.fs.Add(event.Name); err != nil {
						w.logger.Warn().Err(err).Str("dir", event.Name).Msg("cannot watch new family directory")
					}
				}
			}

			// Ignore editor noise outside schema version files and
			// directory-level events.
			base := filepath.Base(event.Name)
			isDirEvent := !strings.HasSuffix(base, ".json")
			if !isDirEvent && !strings.HasPrefix(base, "v") {
				continue
			}

			w.logger.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("schema storage changed")
			ix.Invalidate()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("schema watcher error")

		case <-w.stopCh:
			return
		}
	}
}
