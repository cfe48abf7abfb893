// Package preferences persists operator preferences as a small JSON file.
//
// The file holds a single object:
//
//	{ "AlwaysCreateBackup": true }
//
// A missing or unreadable file yields the defaults and is rewritten.
package preferences

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// Preferences is the persisted document.
type Preferences struct {
	AlwaysCreateBackup bool `json:"AlwaysCreateBackup"`
}

// Defaults returns the preferences used when no valid file exists.
func Defaults() Preferences {
	return Preferences{AlwaysCreateBackup: true}
}

// Store loads on first use and saves on every mutation.
type Store struct {
	mu     sync.Mutex
	path   string
	prefs  Preferences
	loaded bool
	log    zerolog.Logger
}

// NewStore creates a store backed by path.
func NewStore(path string, log zerolog.Logger) *Store {
	return &Store{path: path, log: log}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the file. A missing or corrupt file is replaced by the defaults.
func (s *Store) Load() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	return s.prefs
}

func (s *Store) loadLocked() {
	if s.loaded {
		return
	}
	s.loaded = true

	data, err := os.ReadFile(s.path)
	if err == nil {
		var p Preferences
		if err = json.Unmarshal(data, &p); err == nil {
			s.prefs = p
			return
		}
	}

	s.log.Debug().Err(err).Str("path", s.path).Msg("preferences unavailable, writing defaults")
	s.prefs = Defaults()
	if err := s.saveLocked(); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("could not write default preferences")
	}
}

// AlwaysCreateBackup reports whether inputs should be backed up by default.
func (s *Store) AlwaysCreateBackup() bool {
	return s.Load().AlwaysCreateBackup
}

// SetAlwaysCreateBackup updates the preference and saves it.
func (s *Store) SetAlwaysCreateBackup(v bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	s.prefs.AlwaysCreateBackup = v
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create preferences directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	return nil
}
