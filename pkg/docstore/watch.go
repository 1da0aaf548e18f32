package docstore

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/chazu/frametree/pkg/frames"
)

// settle is how long a burst of events on the file must be quiet before the
// document is reloaded.
const settle = 50 * time.Millisecond

// Watcher reloads a document file whenever it changes on disk.
type Watcher struct {
	path string
	w    *fsnotify.Watcher
}

// NewWatcher starts watching path. The containing directory is watched so
// that saves which replace the file by rename are seen too.
func NewWatcher(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "watch %s", path)
	}
	if _, err := FormatFor(abs); err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create watcher")
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, errors.Wrapf(err, "watch %s", filepath.Dir(abs))
	}
	return &Watcher{path: abs, w: w}, nil
}

// Run calls fn with the freshly loaded document, or the load error, after
// each change to the file. It returns when ctx is done or the watcher fails.
func (w *Watcher) Run(ctx context.Context, fn func(*frames.Document, error)) error {
	defer w.w.Close()

	timer := time.NewTimer(settle)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(settle)
		case <-timer.C:
			fn(Load(w.path))
		case err, ok := <-w.w.Errors:
			if !ok {
				return nil
			}
			return errors.Wrap(err, "watch")
		}
	}
}

// Close stops the watcher without waiting for Run.
func (w *Watcher) Close() error {
	return w.w.Close()
}

// Watch is NewWatcher followed by Run.
func Watch(ctx context.Context, path string, fn func(*frames.Document, error)) error {
	w, err := NewWatcher(path)
	if err != nil {
		return err
	}
	return w.Run(ctx, fn)
}
