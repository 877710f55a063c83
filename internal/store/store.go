// Package store persists named text snippets in a single JSON file.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"keytyper/internal/logger"
	"keytyper/pkg/errors"
)

// Store is a name → body mapping mirrored to disk on every mutation.
type Store struct {
	path string
	log  zerolog.Logger

	mu          sync.RWMutex
	snippets    map[string]string
	lastWritten []byte
}

// Open loads path. A missing or unreadable file yields an empty store; the
// failure is logged, never returned.
func Open(path string, log zerolog.Logger) *Store {
	s := &Store{
		path:     filepath.Clean(path),
		log:      logger.Component(log, "store"),
		snippets: map[string]string{},
	}
	if m, data, err := s.read(); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("snippet file unreadable, starting empty")
	} else {
		s.snippets, s.lastWritten = m, data
		s.log.Debug().Int("count", len(m)).Str("path", s.path).Msg("snippets loaded")
	}
	return s
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

func (s *Store) read() (map[string]string, []byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil, nil
		}
		return nil, nil, err
	}
	m := map[string]string{}
	if len(bytes.TrimSpace(data)) == 0 {
		return m, data, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	return m, data, nil
}

// Put saves body under name, replacing any previous body.
func (s *Store) Put(name, body string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.Validation(errors.ErrEmptyName, "snippet name is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snippets[name] = body
	return s.flushLocked()
}

// Get returns the body saved under name.
func (s *Store) Get(name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.snippets[name]
	if !ok {
		return "", fmt.Errorf("snippet %q: %w", name, errors.ErrNotFound)
	}
	return body, nil
}

// Delete removes name.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snippets[name]; !ok {
		return fmt.Errorf("snippet %q: %w", name, errors.ErrNotFound)
	}
	delete(s.snippets, name)
	return s.flushLocked()
}

// List returns all names in lexicographic order.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.snippets))
	for name := range s.snippets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// flushLocked rewrites the whole file. The in-memory map is kept even when
// the write fails.
func (s *Store) flushLocked() error {
	data, err := json.MarshalIndent(s.snippets, "", "  ")
	if err != nil {
		return errors.NewError(errors.ErrorTypePersistence, "failed to encode snippets", err)
	}
	data = append(data, '\n')

	if err := writeAtomic(s.path, data); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("failed to save snippets")
		return errors.NewError(errors.ErrorTypePersistence, "failed to save snippets", err)
	}
	s.lastWritten = data
	s.log.Debug().Int("count", len(s.snippets)).Msg("snippets saved")
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Reload re-reads the file. It reports whether the contents changed from
// what the store last wrote or loaded.
func (s *Store) Reload() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, data, err := s.read()
	if err != nil {
		return false, errors.NewError(errors.ErrorTypePersistence, "failed to reload snippets", err)
	}
	if bytes.Equal(data, s.lastWritten) && (data != nil || len(s.snippets) == 0) {
		return false, nil
	}
	s.snippets, s.lastWritten = m, data
	return true, nil
}

// Watch reloads the store when the file is edited by another process and
// then calls onChange. Writes made through this Store are ignored. Watch
// blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.NewError(errors.ErrorTypePersistence, "failed to create watcher", err)
	}
	defer w.Close()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewError(errors.ErrorTypePersistence, "failed to create snippet directory", err)
	}
	// Editors and our own rename replace the file, so watch the directory.
	if err := w.Add(dir); err != nil {
		return errors.NewError(errors.ErrorTypePersistence, "failed to watch "+dir, err)
	}
	s.log.Debug().Str("dir", dir).Msg("watching snippet file")

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(e.Name) != s.path || e.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			changed, err := s.Reload()
			if err != nil {
				s.log.Warn().Err(err).Msg("failed to reload snippets")
				continue
			}
			if changed {
				s.log.Info().Str("op", e.Op.String()).Msg("snippets reloaded from external change")
				if onChange != nil {
					onChange()
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn().Err(err).Msg("snippet watcher error")
		}
	}
}
