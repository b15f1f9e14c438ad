package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher removes known entries whose files are deleted or renamed outside
// the application.
type Watcher struct {
	known   *KnownFiles
	watcher *fsnotify.Watcher

	mu   sync.Mutex
	dirs map[string]bool
}

// NewWatcher starts watching the directories of all current entries and of
// every entry added later.
func NewWatcher(known *KnownFiles) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{
		known:   known,
		watcher: fw,
		dirs:    make(map[string]bool),
	}
	for _, e := range known.List() {
		w.Track(e)
	}
	known.OnAdd(w.Track)
	return w, nil
}

// Track watches the directory containing e.
func (w *Watcher) Track(e Entry) {
	dir, err := filepath.Abs(filepath.Dir(e.Path()))
	if err != nil {
		log.Warn().Err(err).Str("path", e.Path()).Msg("cannot resolve directory to watch")
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dirs[dir] {
		return
	}
	if err := w.watcher.Add(dir); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("cannot watch directory")
		return
	}
	w.dirs[dir] = true
	log.Debug().Str("dir", dir).Msg("watching directory")
}

// Run processes file events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				w.forget(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("file watcher error")
		}
	}
}

func (w *Watcher) forget(name string) {
	gone, err := filepath.Abs(name)
	if err != nil {
		return
	}
	removed := w.known.RemoveFunc(func(e Entry) bool {
		p, err := filepath.Abs(e.Path())
		return err == nil && p == gone
	})
	if removed > 0 {
		log.Info().Str("path", gone).Msg("known file removed externally")
	}
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	w.known.OnAdd(nil)
	return w.watcher.Close()
}
