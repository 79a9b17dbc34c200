// Package watcher turns filesystem notifications under a vault into
// debounced modification events.
package watcher

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Chifiwang/obsidian-git-integration/internal/errors"
	"github.com/Chifiwang/obsidian-git-integration/internal/logger"
)

// DefaultDebounce is how long a path must stay quiet before its event is
// reported.
const DefaultDebounce = 250 * time.Millisecond

// ErrWatcherClosed is returned when using a closed watcher.
var ErrWatcherClosed = errors.New("watcher is closed")

// Event reports that a tracked file was created or written.
type Event struct {
	// Path is absolute.
	Path string
	Time time.Time
}

// Options configure a Watcher.
type Options struct {
	// Root is the directory watched recursively.
	Root string

	// Filter selects the files that produce events. Nil accepts every file.
	Filter func(path string) bool

	// Debounce coalesces bursts on the same path. Zero means DefaultDebounce.
	Debounce time.Duration

	// BufferSize is the capacity of the event channel. Zero means 100.
	BufferSize int

	Logger logger.Logger
}

// Stats are counters since the watcher started.
type Stats struct {
	WatchedDirs int
	Events      int64
	Errors      int64
}

// Watcher watches a directory tree with fsnotify. Hidden directories
// (including .git) are never watched; new directories are picked up as they
// appear.
type Watcher struct {
	opts Options
	fsw  *fsnotify.Watcher

	mu      sync.Mutex
	dirs    map[string]bool
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup

	events chan Event

	totalEvents int64
	totalErrors int64
}

// New creates a watcher on opts.Root and starts delivering events.
func New(opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 100
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", opts.Root)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, "watch %s", root)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("watch %s: not a directory", root)
	}
	opts.Root = root

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fsnotify watcher")
	}

	w := &Watcher{
		opts:    opts,
		fsw:     fsw,
		dirs:    make(map[string]bool),
		closeCh: make(chan struct{}),
		events:  make(chan Event, opts.BufferSize),
	}

	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.loop()

	return w, nil
}

// Events returns the debounced event channel. It is closed by Close.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stats returns watcher counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	n := len(w.dirs)
	w.mu.Unlock()

	return Stats{
		WatchedDirs: n,
		Events:      atomic.LoadInt64(&w.totalEvents),
		Errors:      atomic.LoadInt64(&w.totalErrors),
	}
}

// Close stops the watcher and closes the event channel. Events still
// waiting out their debounce are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.wg.Wait()
	close(w.events)
	return w.fsw.Close()
}

// addTree watches dir and every non-hidden directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.opts.Root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.add(p)
	})
}

func (w *Watcher) add(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if w.dirs[dir] {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return errors.Wrapf(err, "watch %s", dir)
	}
	w.dirs[dir] = true
	return nil
}

func (w *Watcher) forget(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	prefix := dir + string(filepath.Separator)
	for d := range w.dirs {
		if d == dir || strings.HasPrefix(d, prefix) {
			delete(w.dirs, d)
		}
	}
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	pending := make(map[string]time.Time)
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		select {
		case <-w.closeCh:
			timer.Stop()
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if path, ok := w.accept(ev); ok {
				if len(pending) == 0 {
					timer.Reset(w.opts.Debounce)
				}
				pending[path] = time.Now().Add(w.opts.Debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			atomic.AddInt64(&w.totalErrors, 1)
			w.opts.Logger.Warning("watcher error: %v", err)

		case <-timer.C:
			now := time.Now()
			var next time.Time
			for path, due := range pending {
				if due.After(now) {
					if next.IsZero() || due.Before(next) {
						next = due
					}
					continue
				}
				delete(pending, path)
				if !w.emit(Event{Path: path, Time: now}) {
					return
				}
			}
			if !next.IsZero() {
				timer.Reset(next.Sub(now))
			}
		}
	}
}

// accept classifies a raw notification, watching new directories on the way.
func (w *Watcher) accept(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
			w.forget(ev.Name)
		}
		return "", false
	}
	if w.inHiddenDir(ev.Name) {
		return "", false
	}

	info, err := os.Stat(ev.Name)
	if err != nil {
		return "", false
	}
	if info.IsDir() {
		if ev.Has(fsnotify.Create) {
			if err := w.addTree(ev.Name); err != nil {
				w.opts.Logger.Warning("cannot watch new directory %s: %v", ev.Name, err)
			}
		}
		return "", false
	}

	if w.opts.Filter != nil && !w.opts.Filter(ev.Name) {
		return "", false
	}
	return ev.Name, true
}

func (w *Watcher) emit(ev Event) bool {
	select {
	case w.events <- ev:
		atomic.AddInt64(&w.totalEvents, 1)
		return true
	case <-w.closeCh:
		return false
	}
}

// inHiddenDir reports whether any component of path below the root is
// hidden. Hidden files themselves (editor swap files) are skipped too.
func (w *Watcher) inHiddenDir(path string) bool {
	rel, err := filepath.Rel(w.opts.Root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return true
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if isHidden(part) {
			return true
		}
	}
	return false
}

func isHidden(name string) bool {
	return len(name) > 1 && name[0] == '.'
}
