// Package inbox watches a directory for dropped archives and queues an
// import job for each one.
package inbox

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// DefaultSettle is how long an archive must go without writes before it is
// queued.
const DefaultSettle = 3 * time.Second

// EnqueueFunc queues the archive at path for import.
type EnqueueFunc func(ctx context.Context, path string) error

type Watcher struct {
	dir     string
	settle  time.Duration
	enqueue EnqueueFunc
	log     logger.Logger

	fsw     *fsnotify.Watcher
	mu      sync.Mutex
	timers  map[string]*time.Timer
	stop    chan struct{}
	stopped chan struct{}
}

func New(dir string, settle time.Duration, enqueue EnqueueFunc) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{
		dir:     dir,
		settle:  settle,
		enqueue: enqueue,
		log:     logger.New().Data(logger.Data{"inbox": dir}),
		timers:  map[string]*time.Timer{},
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start queues the archives already in the directory and then watches it
// for new ones.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return errors.WithStack(err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WithStack(err)
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return errors.WithStack(err)
	}
	w.fsw = fsw

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		fsw.Close()
		return errors.WithStack(err)
	}
	for _, e := range entries {
		if e.Type().IsRegular() && IsArchive(e.Name()) {
			w.schedule(filepath.Join(w.dir, e.Name()))
		}
	}

	go w.loop()
	w.log.Info("watching inbox")
	return nil
}

// Stop ends the watch. Archives still settling are not queued.
func (w *Watcher) Stop() {
	close(w.stop)
	if w.fsw != nil {
		w.fsw.Close()
		<-w.stopped
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) loop() {
	defer close(w.stopped)

	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !IsArchive(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.schedule(event.Name)
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.cancel(event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Err(err).Warn("inbox watcher error")
		}
	}
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.timers[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.fire(path)
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) fire(path string) {
	select {
	case <-w.stop:
		return
	default:
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	log := w.log.Data(logger.Data{"archive": filepath.Base(path)})
	if err := w.enqueue(log.WithContext(context.Background()), path); err != nil {
		log.Err(err).Error("failed to queue inbox archive")
		return
	}
	log.Info("queued inbox archive")
}

// IsArchive reports whether name looks like a zip archive. Names starting
// with a dot are ignored since uploaders commonly write to hidden temp files.
func IsArchive(name string) bool {
	base := filepath.Base(name)
	return !strings.HasPrefix(base, ".") && strings.EqualFold(filepath.Ext(base), ".zip")
}
