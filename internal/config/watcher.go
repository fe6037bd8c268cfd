package config

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/effekt/comfybuild/internal/logging"
)

// Watcher monitors the configs directory and reports which variant changed.
// The loader cache is invalidated before each notification so callbacks see
// fresh resolutions.
type Watcher struct {
	watcher  *fsnotify.Watcher
	loader   *Loader
	onChange func(name string)
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
	stopped  bool
	mu       sync.Mutex
}

// NewWatcher creates a watcher over the loader's configs directory.
// onChange is invoked with the variant name for every created or modified
// variant document.
func NewWatcher(loader *Loader, onChange func(name string)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(loader.Dir()); err != nil {
		w.Close()
		return nil, err
	}

	logging.Info().Str("dir", loader.Dir()).Msg("config watcher initialized")

	return &Watcher{
		watcher:  w,
		loader:   loader,
		onChange: onChange,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching for document changes.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

// Stop terminates the watcher and waits for the event loop to exit.
// Safe to call more than once, and before Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	started := w.started
	w.mu.Unlock()

	close(w.stopCh)
	w.watcher.Close()
	if started {
		<-w.doneCh
	}
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			base := filepath.Base(ev.Name)
			if !strings.HasPrefix(base, filePrefix) || !strings.HasSuffix(base, fileSuffix) {
				continue
			}
			name := NormalizeName(base)
			logging.Debug().Str("variant", name).Str("op", ev.Op.String()).Msg("variant document changed")

			// Any document may be an ancestor of another, so the whole
			// cache is dropped rather than just the touched name.
			w.loader.Invalidate()
			w.onChange(name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error().Err(err).Msg("config watcher error")
		}
	}
}
