// Package watcher reports template changes on disk, batched by a quiet period.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mvp-joe/ruumba/internal/logger"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 300 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Dirs are watched recursively.
	Dirs []string

	// Extensions to monitor, with leading dot (e.g., ".erb").
	Extensions []string

	// SkipDir reports directories that must not be watched, such as .git
	// or the projection directory. May be nil.
	SkipDir func(path string) bool

	// Debounce is the quiet period before the callback fires.
	Debounce time.Duration

	Logger logger.Logger
}

// Watcher monitors template directories with debouncing and pause/resume
// support. Callbacks run on the watcher's goroutine, one at a time.
type Watcher struct {
	watcher       *fsnotify.Watcher
	extensions    map[string]bool
	skipDir       func(string) bool
	debounceTime  time.Duration
	log           logger.Logger
	callback      func(files []string)
	ctx           context.Context
	cancel        context.CancelFunc
	paused        bool
	pausedMu      sync.RWMutex
	accumulated   map[string]bool
	accumulatedMu sync.Mutex
	debounceTimer *time.Timer
	timerMu       sync.Mutex
	fireMu        sync.Mutex
	stopOnce      sync.Once
	doneCh        chan struct{}
}

// New creates a watcher over opts.Dirs.
func New(opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	extMap := make(map[string]bool, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		extMap[ext] = true
	}

	w := &Watcher{
		watcher:      fsw,
		extensions:   extMap,
		skipDir:      opts.SkipDir,
		debounceTime: opts.Debounce,
		log:          opts.Logger,
		accumulated:  make(map[string]bool),
		doneCh:       make(chan struct{}),
	}
	if w.debounceTime <= 0 {
		w.debounceTime = DefaultDebounce
	}
	if w.log == nil {
		w.log = logger.GetDefault()
	}

	for _, dir := range opts.Dirs {
		if err := w.addDirectoriesRecursively(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	return w, nil
}

// Start begins watching, calling callback with the sorted set of changed
// files after each quiet period.
func (w *Watcher) Start(ctx context.Context, callback func(files []string)) {
	w.callback = callback
	w.ctx, w.cancel = context.WithCancel(ctx)
	go w.watch()
}

// Stop stops the watcher and waits for its goroutine. Safe to call twice.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
			<-w.doneCh
		} else {
			close(w.doneCh)
		}
		err = w.watcher.Close()
	})
	return err
}

// Pause stops firing callbacks but continues accumulating events.
func (w *Watcher) Pause() {
	w.pausedMu.Lock()
	defer w.pausedMu.Unlock()
	w.paused = true
}

// Resume resumes firing callbacks. Events accumulated while paused fire
// after the next quiet period.
func (w *Watcher) Resume() {
	w.pausedMu.Lock()
	wasPaused := w.paused
	w.paused = false
	w.pausedMu.Unlock()

	if !wasPaused {
		return
	}

	w.accumulatedMu.Lock()
	pending := len(w.accumulated) > 0
	w.accumulatedMu.Unlock()

	if pending && w.ctx != nil {
		w.resetDebounceTimer()
	}
}

// Drain discards accumulated events, e.g. the ones caused by writing
// corrections back.
func (w *Watcher) Drain() {
	w.accumulatedMu.Lock()
	w.accumulated = make(map[string]bool)
	w.accumulatedMu.Unlock()
}

func (w *Watcher) watch() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.ctx.Done():
			w.stopDebounceTimer()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addDirectoriesRecursively(event.Name); err != nil {
						w.log.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}

			if !w.shouldProcessEvent(event) {
				continue
			}

			w.accumulatedMu.Lock()
			w.accumulated[event.Name] = true
			w.accumulatedMu.Unlock()

			w.resetDebounceTimer()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("file watcher error", "error", err)
		}
	}
}

// fire hands the accumulated files to the callback unless paused.
func (w *Watcher) fire() {
	if w.ctx.Err() != nil {
		return
	}

	w.pausedMu.RLock()
	paused := w.paused
	w.pausedMu.RUnlock()
	if paused {
		return
	}

	w.accumulatedMu.Lock()
	if len(w.accumulated) == 0 {
		w.accumulatedMu.Unlock()
		return
	}
	files := make([]string, 0, len(w.accumulated))
	for file := range w.accumulated {
		files = append(files, file)
	}
	w.accumulated = make(map[string]bool)
	w.accumulatedMu.Unlock()

	sort.Strings(files)
	if w.callback != nil {
		w.callback(files)
	}
}

// resetDebounceTimer restarts the quiet period.
func (w *Watcher) resetDebounceTimer() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceTime, w.fireSerialized)
}

// fireSerialized keeps callbacks from overlapping when a timer fires while
// the previous callback is still running.
func (w *Watcher) fireSerialized() {
	w.fireMu.Lock()
	defer w.fireMu.Unlock()
	w.fire()
}

func (w *Watcher) stopDebounceTimer() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
}

// shouldProcessEvent keeps writes, creates, renames and removes of monitored
// extensions.
func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return w.extensions[filepath.Ext(event.Name)]
}

// addDirectoriesRecursively adds all directories in the tree to the watcher.
func (w *Watcher) addDirectoriesRecursively(rootPath string) error {
	return filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == rootPath {
				return err
			}
			w.log.Warn("error accessing directory", "path", path, "error", err)
			return nil
		}

		if !info.IsDir() {
			return nil
		}

		if path != rootPath && w.skipDir != nil && w.skipDir(path) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.log.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}
