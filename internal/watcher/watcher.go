// Package watcher nudges the sync engine when a local SQLite database is
// written by another process, so local mode reacts faster than the poll
// interval.
package watcher

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bizportal/portalchat/internal/logger"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses bursts of writes (the WAL and the main file
// usually change together) into one notification.
const DefaultDebounce = 150 * time.Millisecond

// Watcher calls onChange after the database files stop changing.
type Watcher struct {
	fs       *fsnotify.Watcher
	base     string
	debounce time.Duration
	onChange func()
	log      *logger.Logger

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// New watches the directory holding dbPath. debounce <= 0 selects
// DefaultDebounce.
func New(dbPath string, debounce time.Duration, onChange func(), log *logger.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = logger.Nop()
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(filepath.Dir(dbPath)); err != nil {
		_ = fs.Close()
		return nil, err
	}
	return &Watcher{
		fs:       fs,
		base:     filepath.Base(dbPath),
		debounce: debounce,
		onChange: onChange,
		log:      log.With("component", "watcher"),
	}, nil
}

// Run dispatches file events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

// Close releases the underlying watcher.
func (w *Watcher) Close() error {
	w.stop()
	return w.fs.Close()
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !w.relevant(event.Name) {
		return
	}
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
		w.schedule()
	}
}

// relevant matches the database file and its -wal and -shm siblings.
func (w *Watcher) relevant(path string) bool {
	name := filepath.Base(path)
	return name == w.base || strings.HasPrefix(name, w.base+"-")
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		closed := w.closed
		w.mu.Unlock()
		if closed || w.onChange == nil {
			return
		}
		w.onChange()
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
