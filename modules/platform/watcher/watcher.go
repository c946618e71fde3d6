// Package watcher reports filesystem activity under a root as debounced
// change notifications.
package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"panetree/modules/core/ignore"
	"panetree/modules/platform/logger"
)

const (
	DefaultDebounce     = 300 * time.Millisecond
	DefaultPollInterval = 2 * time.Second

	ModeNotify = "notify"
	ModePoll   = "poll"
)

// Option configures a Watcher
type Option func(*Watcher)

// WithDebounce sets the quiet period before onChange runs
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithPollInterval sets the tick used when native notification is unavailable
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// Watcher coalesces bursts of events under root into single onChange calls
type Watcher struct {
	root         string
	onChange     func()
	debounce     time.Duration
	pollInterval time.Duration
	rules        ignore.Rules
	log          *logger.Logger

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	notify  *fsnotify.Watcher
	mode    string
	started bool
	closed  bool

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a watcher for root. Nothing is watched until Start.
func New(root string, onChange func(), opts ...Option) *Watcher {
	w := &Watcher{
		root:         root,
		onChange:     onChange,
		debounce:     DefaultDebounce,
		pollInterval: DefaultPollInterval,
		rules:        ignore.Load(root),
		log:          logger.GetGlobalLogger(),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. Native notification is tried first; if it cannot be
// set up the watcher polls instead, so Start only fails after Close.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New("watcher is closed")
	}
	if w.started {
		return nil
	}
	w.started = true

	nw, err := fsnotify.NewWatcher()
	if err == nil {
		if err = nw.Add(w.root); err != nil {
			nw.Close()
		}
	}
	if err != nil {
		w.log.Warn("File notification unavailable for %s, polling every %s: %v", w.root, w.pollInterval, err)
		w.mode = ModePoll
		w.wg.Add(1)
		go w.pollLoop()
		return nil
	}

	w.notify = nw
	w.mode = ModeNotify
	w.addTree(w.root, false)

	w.wg.Add(1)
	go w.eventLoop(nw)
	return nil
}

// Mode returns ModeNotify or ModePoll, or "" before Start
func (w *Watcher) Mode() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mode
}

// Trigger restarts the quiet period as if an event had arrived
func (w *Watcher) Trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.gen++
	gen := w.gen
	w.timer = time.AfterFunc(w.debounce, func() { w.fire(gen) })
}

// fire runs onChange unless a later Trigger superseded this timer
func (w *Watcher) fire(gen uint64) {
	w.mu.Lock()
	if w.closed || gen != w.gen {
		w.mu.Unlock()
		return
	}
	w.timer = nil
	w.mu.Unlock()

	if w.onChange != nil {
		w.onChange()
	}
}

// Close stops the timer and the event source. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		if w.timer != nil {
			w.timer.Stop()
			w.timer = nil
		}
		nw := w.notify
		w.notify = nil
		w.mu.Unlock()

		close(w.done)
		if nw != nil {
			err = nw.Close()
		}
		w.wg.Wait()
	})
	return err
}

// addTree adds dir and its subdirectories. Called with mu held.
func (w *Watcher) addTree(dir string, addSelf bool) {
	if w.notify == nil {
		return
	}
	if addSelf {
		if err := w.notify.Add(dir); err != nil {
			w.log.Debug("Cannot watch %s: %v", dir, err)
			return
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if w.ignored(path, true) {
			continue
		}
		w.addTree(path, true)
	}
}

// ignored reports whether path under root is excluded. Called with mu held.
func (w *Watcher) ignored(path string, isDir bool) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	return w.rules.ShouldIgnore(filepath.Base(path), rel, isDir)
}

// skipEvent reports whether an event needs no rebuild, reloading the rules
// first when the root ignore file itself changed
func (w *Watcher) skipEvent(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if name == filepath.Join(w.root, ignore.IgnoreFileName) {
		w.rules = ignore.Load(w.root)
		w.log.Debug("Reloaded ignore rules for %s", w.root)
		// directories no longer ignored get watched; adding a watched one again is a no-op
		w.addTree(w.root, false)
		return false
	}
	if info, err := os.Stat(name); err == nil {
		return w.ignored(name, info.IsDir())
	}
	// removed entries can no longer say what they were
	return w.ignored(name, false) || w.ignored(name, true)
}

func (w *Watcher) eventLoop(nw *fsnotify.Watcher) {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-nw.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			if w.skipEvent(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.mu.Lock()
					w.addTree(event.Name, true)
					w.mu.Unlock()
				}
			}
			w.Trigger()

		case err, ok := <-nw.Errors:
			if !ok {
				return
			}
			w.log.Warn("File watcher error: %v", err)
		}
	}
}

func (w *Watcher) pollLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			if w.onChange != nil {
				w.onChange()
			}
		}
	}
}
