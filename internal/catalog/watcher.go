package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	apperrors "github.com/Adithya-Monish-Kumar-K/launchrank/pkg/errors"
)

// Watcher keeps a Sink in step with a directory of source files.
type Watcher struct {
	dir      string
	sink     Sink
	debounce time.Duration
	logger   *slog.Logger

	// path -> source id it was last loaded as; owned by Load and Run.
	loaded map[string]string
}

// NewWatcher creates a Watcher for dir. Changes are applied once no new
// event has arrived for debounce.
func NewWatcher(dir string, sink Sink, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	return &Watcher{
		dir:      filepath.Clean(dir),
		sink:     sink,
		debounce: debounce,
		logger:   slog.Default().With("component", "catalog-watcher", "dir", dir),
		loaded:   make(map[string]string),
	}
}

// Load applies every source file currently in the directory. Broken files
// are logged and skipped; only a missing or unreadable directory is an
// error.
func (w *Watcher) Load(ctx context.Context) error {
	if _, err := os.Stat(w.dir); err != nil {
		return fmt.Errorf("catalog dir: %w", err)
	}
	files, err := LoadDir(w.dir)
	if err != nil {
		w.logger.Warn("some source files were skipped", "error", err)
	}
	for _, f := range files {
		if err := w.sink.Apply(ctx, f.Update); err != nil {
			w.logger.Error("applying source file", "path", f.Path, "error", err)
			continue
		}
		w.loaded[f.Path] = f.Update.Source
	}
	w.logger.Info("catalog directory loaded", "sources", len(w.loaded))
	return nil
}

// Run watches the directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.logger.Info("watching catalog directory")

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("catalog watcher stopping")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !IsSourceFile(event.Name) || !event.Has(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) {
				continue
			}
			pending[filepath.Clean(event.Name)] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("fsnotify error", "error", err)

		case <-timer.C:
			for path := range pending {
				w.sync(ctx, path)
			}
			clear(pending)
		}
	}
}

// sync brings the sink in line with the current state of path.
func (w *Watcher) sync(ctx context.Context, path string) {
	previous, known := w.loaded[path]

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if known {
			w.remove(ctx, path, previous)
		}
		return
	}

	update, err := LoadFile(path)
	if err != nil {
		w.logger.Warn("source file not reloaded", "path", path, "error", err)
		return
	}
	if known && previous != update.Source {
		w.remove(ctx, path, previous)
	}
	if err := w.sink.Apply(ctx, update); err != nil {
		w.logger.Error("applying source file", "path", path, "error", err)
		return
	}
	w.loaded[path] = update.Source
	w.logger.Info("source file reloaded", "path", path, "source", update.Source, "items", len(update.Items))
}

func (w *Watcher) remove(ctx context.Context, path, sourceID string) {
	delete(w.loaded, path)
	err := w.sink.Apply(ctx, SourceUpdate{Source: sourceID, Deleted: true, UpdatedAt: time.Now().UTC()})
	if err != nil && !errors.Is(err, apperrors.ErrSourceNotFound) {
		w.logger.Error("removing source", "path", path, "source", sourceID, "error", err)
		return
	}
	w.logger.Info("source file removed", "path", path, "source", sourceID)
}
