package store

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/petems/macro-tray/internal/binding"
)

// DefaultDebounce collapses the burst of events a single editor save emits.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads the document when another process changes it.
type Watcher struct {
	store    *Store
	fsw      *fsnotify.Watcher
	onChange func(binding.Document)
	debounce time.Duration
	log      zerolog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// Watch starts watching the document's directory. onChange runs on the
// watcher goroutine with each externally modified document.
func (s *Store) Watch(onChange func(binding.Document), debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Editors often replace the file, so watch the directory rather than
	// the file itself.
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{
		store:    s,
		fsw:      fsw,
		onChange: onChange,
		debounce: debounce,
		log:      s.log,
		done:     make(chan struct{}),
	}
	go w.loop()

	s.log.Info().Str("path", s.path).Msg("Watching hotkey file for changes")
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)

	base := filepath.Base(w.store.path)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !shouldReload(w.store.path, base, ev) {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, w.reload)
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("File watcher error")
		}
	}
}

// shouldReload reports whether an fsnotify event touches the document.
func shouldReload(path, base string, ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Clean(ev.Name)
	if name == path {
		return true
	}
	// Some editors write via temp + rename, resulting in partial paths.
	return filepath.Base(name) == base
}

func (w *Watcher) reload() {
	data, err := os.ReadFile(w.store.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.log.Warn().Err(err).Msg("Failed to read changed hotkey file")
		}
		return
	}
	if !w.store.changed(data) {
		return
	}

	doc, err := w.store.decode(data)
	if err != nil {
		w.log.Error().Err(err).Msg("Ignoring unreadable hotkey file")
		return
	}
	w.log.Info().Msg("Hotkey file changed on disk, reloading")
	w.onChange(doc)
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fsw.Close()
		<-w.done
	})
	return err
}
