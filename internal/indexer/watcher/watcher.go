// Package watcher re-indexes the corpus when its files change. Bursts of
// filesystem events are debounced into a single indexing run.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

const triggerName = "watch"

// Refresher starts a background indexing run.
type Refresher interface {
	RefreshAsync(trigger string) error
}

type Watcher struct {
	root      string
	debounce  time.Duration
	accepts   func(path string) bool
	refresher Refresher
	fsw       *fsnotify.Watcher
	logger    *slog.Logger
}

// New watches every directory under root. accepts reports whether a file
// path is a corpus document.
func New(root string, debounce time.Duration, accepts func(path string) bool, r Refresher) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 30 * time.Second
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	w := &Watcher{
		root:      root,
		debounce:  debounce,
		accepts:   accepts,
		refresher: r,
		fsw:       fsw,
		logger:    slog.Default().With("component", "corpus-watcher"),
	}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("corpus watcher started", "root", w.root, "debounce", w.debounce)
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return w.fsw.Close()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.handleEvent(ev) {
				continue
			}
			if pending && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
			pending = true
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		case <-timer.C:
			pending = false
			if err := w.refresher.RefreshAsync(triggerName); err != nil {
				if errors.Is(err, apperrors.ErrIndexingInProgress) {
					// Changes may have landed after the running scan passed them.
					timer.Reset(w.debounce)
					pending = true
					continue
				}
				w.logger.Error("failed to start re-index", "error", err)
				continue
			}
			w.logger.Info("corpus changed, re-index started")
		}
	}
}

// Close stops watching without waiting for Run.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// handleEvent reports whether ev should schedule a re-index. New
// directories are added to the watch list.
func (w *Watcher) handleEvent(ev fsnotify.Event) bool {
	if strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return false
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.logger.Warn("cannot watch new directory", "path", ev.Name, "error", err)
			}
			return true
		}
	}
	if w.accepts(ev.Name) {
		return true
	}
	// A removed directory has no extension and can no longer be stat'ed.
	return (ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)) && filepath.Ext(ev.Name) == ""
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("watching %s: %w", root, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
