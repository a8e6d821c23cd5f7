package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/nbtoc/internal/logfields"
)

// DefaultDebounce coalesces bursts of file events into one early tick.
const DefaultDebounce = 200 * time.Millisecond

// Watcher requests an early refresh whenever one of the watched files is
// written, created or renamed into place.
type Watcher struct {
	files    map[string]struct{}
	dirs     []string
	trigger  func()
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	requests chan struct{}
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWatcher watches paths and calls trigger, debounced, on changes.
func NewWatcher(paths []string, debounce time.Duration, trigger func()) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	files := make(map[string]struct{}, len(paths))
	seen := make(map[string]struct{})
	var dirs []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve watch path %s: %w", p, err)
		}
		files[abs] = struct{}{}
		dir := filepath.Dir(abs)
		if _, ok := seen[dir]; !ok {
			seen[dir] = struct{}{}
			dirs = append(dirs, dir)
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		files:    files,
		dirs:     dirs,
		trigger:  trigger,
		watcher:  w,
		debounce: debounce,
		logger:   slog.Default(),
		requests: make(chan struct{}, 1),
		stopChan: make(chan struct{}),
	}, nil
}

// WithLogger sets the logger.
func (w *Watcher) WithLogger(l *slog.Logger) *Watcher {
	if l != nil {
		w.logger = l
	}
	return w
}

// Start begins watching. Directories are watched rather than files so that
// atomic replace-by-rename is seen.
func (w *Watcher) Start(ctx context.Context) error {
	for _, dir := range w.dirs {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}
	w.logger.Info("Starting source watcher", "dirs", w.dirs)

	w.wg.Add(2)
	go w.watchLoop(ctx)
	go w.debounceLoop(ctx)
	return nil
}

// Stop ends watching and waits for the watcher goroutines.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping source watcher")
		close(w.stopChan)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if _, watched := w.files[filepath.Clean(event.Name)]; !watched {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.logger.Debug("Source change detected", logfields.Path(event.Name), "op", event.Op.String())
				w.request()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Source watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	defer w.wg.Done()
	var timer *time.Timer
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
	}
	for {
		select {
		case <-ctx.Done():
			stop()
			return
		case <-w.stopChan:
			stop()
			return
		case <-w.requests:
			stop()
			timer = time.AfterFunc(w.debounce, w.trigger)
		}
	}
}

func (w *Watcher) request() {
	select {
	case w.requests <- struct{}{}:
	default:
		// already pending
	}
}
