package corpus

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medtriage/internal/logging"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

const defaultDebounce = 250 * time.Millisecond

// ChangeEvent reports that the corpus file was written, created or replaced.
type ChangeEvent struct {
	Path      string
	Timestamp time.Time
}

// Watcher emits a ChangeEvent when the corpus file changes. The parent
// directory is watched so editors that replace the file by rename are seen.
// Bursts of writes within the debounce window collapse into one event.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	events   chan ChangeEvent
	stop     chan struct{}
	once     sync.Once
	debounce time.Duration
	logger   *logging.Logger
}

// NewWatcher creates a watcher for the file at path.
func NewWatcher(path string, logger *logging.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving corpus path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		path:     abs,
		watcher:  fw,
		events:   make(chan ChangeEvent, 1),
		stop:     make(chan struct{}),
		debounce: defaultDebounce,
		logger:   logger,
	}, nil
}

// Start begins watching in a background goroutine. Call Stop to release
// resources.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(w.path), err)
	}
	go w.processEvents(ctx)
	return nil
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		close(w.stop)
		_ = w.watcher.Close()
	})
}

// Events returns the channel of change notifications.
func (w *Watcher) Events() <-chan ChangeEvent {
	return w.events
}

func (w *Watcher) processEvents(ctx context.Context) {
	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Rename

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || event.Op&relevant == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.emit()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, "corpus watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) emit() {
	event := ChangeEvent{Path: w.path, Timestamp: time.Now()}
	select {
	case w.events <- event:
	default:
		// A reload is already pending.
	}
}
