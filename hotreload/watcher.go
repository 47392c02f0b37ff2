package hotreload

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Watcher listens for writes to the managed source files. It only sets a
// flag; rebuilding stays on the render thread.
type Watcher struct {
	log     *zap.Logger
	watcher *fsnotify.Watcher
	files   map[string]struct{}
	dirty   atomic.Bool
	done    chan struct{}
}

// NewWatcher watches the directories holding paths. Empty paths are skipped.
func NewWatcher(paths Paths, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		log:     logger.Named("watcher"),
		watcher: fw,
		files:   make(map[string]struct{}),
		done:    make(chan struct{}),
	}
	dirs := make(map[string]struct{})
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	// Editors often save by rename, so the directory is watched rather than
	// the file itself.
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		w.log.Debug("watching shader directory", zap.String("dir", dir))
	}

	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				w.log.Debug("shader source changed",
					zap.String("file", event.Name),
					zap.String("op", event.Op.String()))
				w.dirty.Store(true)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Events may have been lost; rebuild on the next poll.
			w.log.Warn("watcher error", zap.Error(err))
			w.dirty.Store(true)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	_, ok := w.files[abs]
	return ok
}

// Changed reports whether a managed file changed since the previous call.
func (w *Watcher) Changed() bool {
	return w.dirty.Swap(false)
}

// Close stops watching.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
