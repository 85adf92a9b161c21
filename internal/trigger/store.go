package trigger

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Default marker locations.
const (
	DefaultSkipPath   = "/tmp/skip.now"
	DefaultCancelPath = "/tmp/cancel.now"
	DefaultExtendPath = "/tmp/extend.now"
)

// Store holds the presence of trigger markers.
type Store interface {
	// Consume reports whether the marker for kind was present and removes it.
	// Exactly one caller observes a given assertion.
	Consume(kind Kind) (bool, error)

	// Assert sets the marker for kind.
	Assert(kind Kind) error

	// Clear removes every marker. Clearing an empty store is not an error.
	Clear() error

	// Changes delivers a value whenever a marker may have been asserted. A nil
	// channel means the store offers no change notifications.
	Changes() <-chan struct{}
}

// Paths maps each trigger kind to its marker file.
type Paths struct {
	Skip   string
	Cancel string
	Extend string
}

// DefaultPaths returns the standard marker locations.
func DefaultPaths() Paths {
	return Paths{
		Skip:   DefaultSkipPath,
		Cancel: DefaultCancelPath,
		Extend: DefaultExtendPath,
	}
}

// For returns the marker path for kind.
func (p Paths) For(kind Kind) string {
	switch kind {
	case Skip:
		return p.Skip
	case Cancel:
		return p.Cancel
	case Extend:
		return p.Extend
	default:
		return ""
	}
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) FileStoreOption {
	return func(s *FileStore) {
		s.logger = logger
	}
}

// FileStore keeps markers as files. A marker is asserted while its file exists.
type FileStore struct {
	paths  Paths
	logger *slog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	wake    chan struct{}
	done    chan struct{}
}

// NewFileStore creates a store for the given marker paths.
func NewFileStore(paths Paths, opts ...FileStoreOption) *FileStore {
	s := &FileStore{
		paths:  paths,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Paths returns the marker paths.
func (s *FileStore) Paths() Paths {
	return s.paths
}

// Consume removes the marker file. Removal succeeding is the observation, so
// two concurrent consumers cannot both see the same marker.
func (s *FileStore) Consume(kind Kind) (bool, error) {
	path := s.paths.For(kind)
	if path == "" {
		return false, fmt.Errorf("no marker path for trigger %q", kind)
	}

	err := os.Remove(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to consume %s marker; %w", kind, err)
	}
}

// Assert creates the marker file.
func (s *FileStore) Assert(kind Kind) error {
	path := s.paths.For(kind)
	if path == "" {
		return fmt.Errorf("no marker path for trigger %q", kind)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s marker; %w", kind, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s marker; %w", kind, err)
	}
	return nil
}

// Present reports whether the marker for kind exists without consuming it.
func (s *FileStore) Present(kind Kind) bool {
	path := s.paths.For(kind)
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Clear removes every marker file that exists.
func (s *FileStore) Clear() error {
	var errs []error
	for _, kind := range Kinds {
		path := s.paths.For(kind)
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to remove %s marker; %w", kind, err))
		}
	}
	return errors.Join(errs...)
}

// Changes returns the wake channel, or nil if Watch has not been started.
func (s *FileStore) Changes() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wake == nil {
		return nil
	}
	return s.wake
}

// Watch starts watching the marker directories for created markers. Events
// for unrelated files in the same directories are ignored.
func (s *FileStore) Watch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher; %w", err)
	}

	names := make(map[string]Kind, len(Kinds))
	dirs := make(map[string]bool)
	for _, kind := range Kinds {
		path := s.paths.For(kind)
		if path == "" {
			continue
		}
		clean := filepath.Clean(path)
		names[clean] = kind
		dirs[filepath.Dir(clean)] = true
	}

	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return fmt.Errorf("failed to watch marker directory %s; %w", dir, err)
		}
	}

	s.watcher = fsw
	s.wake = make(chan struct{}, 1)
	s.done = make(chan struct{})

	go s.processEvents(fsw, names, s.wake, s.done)

	s.logger.Debug("watching trigger markers",
		"skip", s.paths.Skip,
		"cancel", s.paths.Cancel,
		"extend", s.paths.Extend,
	)
	return nil
}

// Close stops watching. It is safe to call when Watch was never started.
func (s *FileStore) Close() error {
	s.mu.Lock()
	fsw := s.watcher
	done := s.done
	s.watcher = nil
	s.mu.Unlock()

	if fsw == nil {
		return nil
	}

	err := fsw.Close()
	<-done
	if err != nil {
		return fmt.Errorf("failed to close fsnotify watcher; %w", err)
	}
	return nil
}

func (s *FileStore) processEvents(fsw *fsnotify.Watcher, names map[string]Kind, wake chan<- struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			kind, ok := names[filepath.Clean(event.Name)]
			if !ok {
				continue
			}
			s.logger.Debug("trigger marker observed", "trigger", kind, "path", event.Name)
			select {
			case wake <- struct{}{}:
			default:
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			s.logger.Warn("fsnotify error on trigger markers", "error", err)
		}
	}
}

// MemoryStore keeps markers in memory.
type MemoryStore struct {
	mu      sync.Mutex
	markers map[Kind]bool
	wake    chan struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		markers: make(map[Kind]bool),
		wake:    make(chan struct{}, 1),
	}
}

// Consume reports and clears the marker for kind.
func (m *MemoryStore) Consume(kind Kind) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	present := m.markers[kind]
	delete(m.markers, kind)
	return present, nil
}

// Assert sets the marker for kind.
func (m *MemoryStore) Assert(kind Kind) error {
	m.mu.Lock()
	m.markers[kind] = true
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	return nil
}

// Clear removes every marker.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.markers)
	return nil
}

// Changes returns the wake channel.
func (m *MemoryStore) Changes() <-chan struct{} {
	return m.wake
}

// Present reports whether the marker for kind is set without consuming it.
func (m *MemoryStore) Present(kind Kind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markers[kind]
}
