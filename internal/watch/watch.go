// Package watch reports batches of changed project files. Directories are
// watched recursively with fsnotify, new directories are picked up as they
// appear, and bursts of events are coalesced with a debounce window.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/fsutil"
)

// DefaultDebounce is how long the watcher waits for more events before
// reporting a batch.
const DefaultDebounce = 100 * time.Millisecond

// Options configure a Watcher.
type Options struct {
	Debounce time.Duration
	// Ignore filters project-relative paths, files and directories alike.
	Ignore func(rel string) bool
	// Files are individual project-relative files in the root directory to
	// watch, such as bower.json.
	Files []string
}

// Watcher watches a set of directories under a project root.
type Watcher struct {
	root     string
	debounce time.Duration
	ignore   func(string) bool
	files    map[string]struct{}
	fsw      *fsnotify.Watcher
	changes  chan string
}

// New registers watches for dirs (relative to root) and returns a Watcher.
// Missing directories are skipped. Events are buffered until Run starts.
func New(root string, dirs []string, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Ignore == nil {
		opts.Ignore = func(string) bool { return false }
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{
		root:     root,
		debounce: opts.Debounce,
		ignore:   opts.Ignore,
		files:    make(map[string]struct{}, len(opts.Files)),
		fsw:      fsw,
		changes:  make(chan string, 1024),
	}

	for _, dir := range dirs {
		if err := w.addRecursive(filepath.Join(root, filepath.FromSlash(dir))); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	if len(opts.Files) > 0 {
		for _, f := range opts.Files {
			w.files[filepath.ToSlash(filepath.Clean(f))] = struct{}{}
		}
		if err := fsw.Add(root); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", root, err)
		}
	}
	return w, nil
}

// addRecursive adds a directory and all subdirectories to the watch list.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, err := fsutil.Rel(w.root, path); err == nil && path != dir && w.ignore(rel) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// Close releases the underlying watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run delivers batches of changed project-relative paths to handle until
// ctx is done. handle runs on the calling goroutine, so batches never
// overlap; events arriving meanwhile form the next batch.
func (w *Watcher) Run(ctx context.Context, handle func(ctx context.Context, changed []string)) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("👀 Watching for changes.", "root", w.root, "debounce", w.debounce)

	go w.processEvents(ctx)

	var batch []string
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case rel := <-w.changes:
			batch = append(batch, rel)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer, timerC = nil, nil
			slices.Sort(batch)
			changed := slices.Compact(batch)
			batch = nil
			logger.Debug("Change batch ready.", "count", len(changed), "paths", changed)
			handle(ctx, changed)
		}
	}
}

// processEvents converts fsnotify events into relative paths.
func (w *Watcher) processEvents(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			rel, err := fsutil.Rel(w.root, event.Name)
			if err != nil || w.ignore(rel) {
				continue
			}
			if filepath.Dir(event.Name) == filepath.Clean(w.root) {
				if _, ok := w.files[rel]; !ok {
					continue
				}
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						logger.Warn("Failed to watch new directory.", "path", rel, "error", err)
					}
					continue
				}
			}

			select {
			case w.changes <- rel:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("File watcher error.", "error", err)
		}
	}
}
