// Package watcher keeps the index in step with live edits. It holds fsnotify
// watches over every non-skipped directory of the project, batches bursts of
// file events through a debouncer, and hands each quiet-period batch to a
// handler (typically an incremental reindex plus a rule run).
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"codeindex/internal/indexer"
	"codeindex/internal/logging"
)

// DefaultDebounce is the quiet period applied when none is configured.
const DefaultDebounce = 500 * time.Millisecond

// Event is one relevant file change, with Path relative to the project root
// in forward-slash form.
type Event struct {
	Op   string `json:"op"` // create, write, remove, rename
	Path string `json:"path"`
}

// Handler receives each debounced batch of events.
type Handler func(events []Event)

// Watcher drives fsnotify over a project tree. Directory skip rules and file
// relevance follow the indexer's discovery rules, so the watcher reacts to
// exactly the files an index scan would pick up.
type Watcher struct {
	ix      *indexer.Indexer
	log     *logging.Logger
	handler Handler
	batch   *Debouncer
	fsw     *fsnotify.Watcher

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a watcher over the indexer's project root. A debounce of zero
// or less selects DefaultDebounce.
func New(ix *indexer.Indexer, debounce time.Duration, handler Handler, log *logging.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		ix:      ix,
		log:     log,
		handler: handler,
		fsw:     fsw,
		ctx:     ctx,
		cancel:  cancel,
	}
	w.batch = NewDebouncer(debounce, w.dispatch)
	return w, nil
}

// Start registers watches for the project tree and begins processing events.
func (w *Watcher) Start() error {
	if err := w.addWatches(w.ix.Root()); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.run()

	w.log.Info("Watching project", map[string]interface{}{
		"root":        w.ix.Root(),
		"directories": len(w.fsw.WatchList()),
		"debounce":    w.batch.delay.String(),
	})
	return nil
}

// Stop shuts the watcher down and drops any pending batch.
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.fsw.Close()
	w.wg.Wait()
	w.batch.Cancel()
	w.log.Info("Watcher stopped", nil)
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("Watcher error", map[string]interface{}{"error": err.Error()})
		case <-w.ctx.Done():
			return
		}
	}
}

// handleEvent filters one fsnotify event down to the source files discovery
// would see and queues it. New directories gain watches immediately; files
// created inside them before the watch lands are still caught, because the
// handler's incremental rescan diffs the whole tree.
func (w *Watcher) handleEvent(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.ix.Root(), ev.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return
	}
	rel = filepath.ToSlash(rel)

	if ev.Op&fsnotify.Create != 0 {
		if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
			if !w.ix.ShouldSkipDir(filepath.Base(ev.Name), rel) {
				w.addWatches(ev.Name)
			}
			return
		}
	}
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if !w.ix.IsSourcePath(rel) {
		return
	}
	w.batch.Add(Event{Op: opString(ev.Op), Path: rel})
}

func (w *Watcher) dispatch(events []Event) {
	w.log.Debug("File changes settled", map[string]interface{}{
		"events": len(events),
	})
	if w.handler != nil {
		w.handler(events)
	}
}

// addWatches registers dir and every non-skipped directory below it. Only a
// failure on dir itself is fatal; deeper failures are logged and skipped.
func (w *Watcher) addWatches(dir string) error {
	var rootErr error
	filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.ix.Root(), path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel != "." && w.ix.ShouldSkipDir(d.Name(), rel) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			if path == dir {
				rootErr = addErr
				return filepath.SkipAll
			}
			w.log.Warn("Cannot watch directory", map[string]interface{}{
				"path":  rel,
				"error": addErr.Error(),
			})
		}
		return nil
	})
	return rootErr
}

func opString(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	default:
		return "chmod"
	}
}
