package store

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mechvibesdx/settings/internal/settings"
)

// ConfigFileName is the name of the settings document inside the data directory.
const ConfigFileName = "config.json"

// Store provides access to the persisted settings document.
type Store interface {
	// Load never fails: an absent or unreadable document yields defaults.
	Load() settings.Snapshot
	// Save stamps a fresh timestamp and persists the snapshot.
	Save(snapshot settings.Snapshot) (settings.Snapshot, error)
	// Update re-reads the document, applies mutate, stamps and saves.
	Update(mutate func(*settings.Snapshot)) (settings.Snapshot, error)
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithClock overrides the time source used to stamp writes, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *FileStore) {
		s.clock = clock
	}
}

// FileStore keeps the settings document on disk. Writers inside one process
// are serialized by a mutex; readers never take it.
type FileStore struct {
	path   string
	logger *zap.Logger
	clock  func() time.Time

	mu sync.Mutex
}

// NewFileStore creates a store backed by the document at path.
func NewFileStore(path string, logger *zap.Logger, opts ...Option) *FileStore {
	s := &FileStore{
		path:   path,
		logger: logger,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the location of the settings document.
func (s *FileStore) Path() string {
	return s.path
}

// Load decodes the settings document over the defaults. Any failure is
// logged and answered with settings.Default().
func (s *FileStore) Load() settings.Snapshot {
	snapshot := settings.Default()
	if err := ReadJSON(s.path, &snapshot); err != nil {
		if IsNotExist(err) {
			s.logger.Debug("config file missing, using defaults", zap.String("path", s.path))
		} else {
			s.logger.Warn("failed to load config file, using defaults", zap.String("path", s.path), zap.Error(err))
		}
		return settings.Default()
	}
	return snapshot
}

// Save normalizes the snapshot, assigns a fresh timestamp and writes it.
// The stamped snapshot is returned.
func (s *FileStore) Save(snapshot settings.Snapshot) (settings.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save(snapshot)
}

// Update loads the current document rather than trusting any cached copy,
// so changes made by other writers are not clobbered.
func (s *FileStore) Update(mutate func(*settings.Snapshot)) (settings.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.Load()
	mutate(&next)
	return s.save(next)
}

// EnsureExists writes the defaults when no document exists yet.
func (s *FileStore) EnsureExists() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	if _, err := s.save(settings.Default()); err != nil {
		return err
	}
	s.logger.Info("created default config file", zap.String("path", s.path))
	return nil
}

func (s *FileStore) save(snapshot settings.Snapshot) (settings.Snapshot, error) {
	out := snapshot.Normalize()
	out.LastUpdated = s.clock().UTC()

	if err := WriteJSON(s.path, out); err != nil {
		return out, fmt.Errorf("save config: %w", err)
	}
	return out, nil
}
