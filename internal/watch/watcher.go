// Package watch turns filesystem notifications below a source root into file
// events and drives repeated pipeline runs from them.
package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"iiqsort/internal/logger"
	"iiqsort/internal/model"
	"iiqsort/internal/scan"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reports create and write events for the files tree.Walk would
// yield. Directories the walker would skip are never watched.
type Watcher struct {
	fsw    *fsnotify.Watcher
	tree   scan.Walker
	events chan model.FileEvent
	done   chan struct{}
	once   sync.Once
}

// New starts watching tree.Root and every directory below it.
func New(tree scan.Walker, bufferSize int) (*Watcher, error) {
	root, err := filepath.Abs(tree.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("source directory not found: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	tree.Root = root

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		fsw:    fsw,
		tree:   tree,
		events: make(chan model.FileEvent, bufferSize),
		done:   make(chan struct{}),
	}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	go w.run()

	logger.Log.Info("watcher started", zap.String("dir", root))
	return w, nil
}

func (w *Watcher) Events() <-chan model.FileEvent {
	return w.events
}

func (w *Watcher) Stop() {
	w.once.Do(func() {
		close(w.done)
		_ = w.fsw.Close()
	})
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if !w.tree.Enters(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		logger.Log.Debug("watching directory", zap.String("path", path))
		return nil
	})
}

func (w *Watcher) run() {
	defer close(w.events)

	for {
		select {
		case <-w.done:
			logger.Log.Info("watcher stopping")
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Log.Error("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	var typ model.EventType
	switch {
	case ev.Has(fsnotify.Create):
		typ = model.EventCreate
	case ev.Has(fsnotify.Write):
		typ = model.EventWrite
	default:
		// Removals are what a run leaves behind in the source tree.
		return
	}

	if typ == model.EventCreate {
		if info, err := os.Lstat(ev.Name); err == nil && info.IsDir() {
			w.enter(ev.Name)
			return
		}
	}
	if w.tree.Matches(ev.Name) {
		w.emit(typ, ev.Name)
	}
}

// enter watches a new directory and reports the files that were already in
// it, e.g. a whole flight folder moved into the source at once.
func (w *Watcher) enter(dir string) {
	if !w.tree.Enters(dir) {
		return
	}
	if err := w.addTree(dir); err != nil {
		logger.Log.Warn("failed to watch new directory",
			zap.String("path", dir),
			zap.Error(err))
		return
	}

	sub := w.tree
	sub.Root = dir
	for c, err := range sub.Walk() {
		if err == nil {
			w.emit(model.EventCreate, c.Path)
		}
	}
}

func (w *Watcher) emit(typ model.EventType, path string) {
	select {
	case w.events <- model.FileEvent{Type: typ, Path: path, Timestamp: time.Now()}:
	default:
		logger.Log.Warn("event channel is full, dropping event",
			zap.String("path", path))
	}
}
