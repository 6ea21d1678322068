// Package store persists the hotkey document and watches it for edits made
// outside the running process.
package store

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/petems/macro-tray/internal/binding"
)

// Store reads and writes one hotkey document.
type Store struct {
	path string
	log  zerolog.Logger

	mu       sync.Mutex
	lastHash [sha256.Size]byte
	haveHash bool
}

func New(path string, log zerolog.Logger) *Store {
	return &Store{path: filepath.Clean(path), log: log}
}

func (s *Store) Path() string { return s.path }

// Load reads the document. A missing file yields an empty document.
// Malformed bindings are logged and skipped.
func (s *Store) Load() (binding.Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.log.Info().Str("path", s.path).Msg("No hotkey file yet, starting empty")
		return binding.Document{Bindings: []binding.Binding{}, MasterTriggers: []string{}}, nil
	}
	if err != nil {
		return binding.Document{}, fmt.Errorf("read hotkeys: %w", err)
	}

	doc, err := s.decode(data)
	if err != nil {
		return binding.Document{}, err
	}
	s.remember(data)
	return doc, nil
}

func (s *Store) decode(data []byte) (binding.Document, error) {
	doc, skipped, err := binding.DecodeDocument(data)
	if err != nil {
		return binding.Document{}, fmt.Errorf("%w: %v", binding.ErrInvalidBinding, err)
	}
	for _, sk := range skipped {
		s.log.Warn().Err(sk.Err).Int("index", sk.Index).Str("path", s.path).Msg("Skipping malformed binding")
	}
	s.log.Info().
		Int("bindings", len(doc.Bindings)).
		Int("master_triggers", len(doc.MasterTriggers)).
		Msg("Hotkeys loaded")
	return doc, nil
}

// Save writes the document atomically.
func (s *Store) Save(doc binding.Document) error {
	data, err := binding.EncodeDocument(doc)
	if err != nil {
		return fmt.Errorf("save hotkeys: marshal: %w", err)
	}

	// Record the hash first so the watcher never mistakes this write for
	// an external edit.
	s.remember(data)
	if err := atomicWrite(s.path, data); err != nil {
		return err
	}
	s.log.Debug().Str("path", s.path).Int("bindings", len(doc.Bindings)).Msg("Hotkeys saved")
	return nil
}

func (s *Store) remember(data []byte) {
	sum := sha256.Sum256(data)
	s.mu.Lock()
	s.lastHash, s.haveHash = sum, true
	s.mu.Unlock()
}

// changed reports whether data differs from the last document this store
// read or wrote, and remembers it if so.
func (s *Store) changed(data []byte) bool {
	sum := sha256.Sum256(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.haveHash && sum == s.lastHash {
		return false
	}
	s.lastHash, s.haveHash = sum, true
	return true
}

// atomicWrite writes data using temp-file + rename so readers never see a
// partial document.
func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save hotkeys: mkdir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".hotkeys.json.tmp.*")
	if err != nil {
		return fmt.Errorf("save hotkeys: create temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
		}
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmpFile.Write(data); err != nil {
		return fmt.Errorf("save hotkeys: write: %w", err)
	}
	if err = tmpFile.Sync(); err != nil {
		return fmt.Errorf("save hotkeys: sync: %w", err)
	}
	err = tmpFile.Close()
	tmpFile = nil
	if err != nil {
		return fmt.Errorf("save hotkeys: close: %w", err)
	}

	if err = renameWithRetry(tmpPath, path); err != nil {
		return fmt.Errorf("save hotkeys: rename: %w", err)
	}
	return nil
}

// renameWithRetry tolerates the short-lived locks Windows scanners and
// editors hold on freshly written files.
func renameWithRetry(from, to string) error {
	attempts := 1
	if runtime.GOOS == "windows" {
		attempts = 5
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = os.Rename(from, to); err == nil {
			return nil
		}
		time.Sleep(time.Duration(i+1) * 20 * time.Millisecond)
	}
	return err
}
