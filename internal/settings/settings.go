// Package settings manages the persisted, externally editable system
// settings file.  The admin UI (a separate process) rewrites the same file,
// so the store watches it and reloads on change.
package settings

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	DefaultOpeningTimeSeconds = 5

	MinOpeningTimeSeconds = 1
	MaxOpeningTimeSeconds = 60
)

var ErrOpeningTimeRange = errors.New("opening time out of range (1-60s)")

// Settings are the mutable knobs persisted outside the database.
type Settings struct {
	OpeningTimeSeconds int  `koanf:"opening_time"`
	AlertsEnabled      bool `koanf:"alerts_enabled"`
}

func defaults() Settings {
	return Settings{
		OpeningTimeSeconds: DefaultOpeningTimeSeconds,
		AlertsEnabled:      true,
	}
}

// Store loads, serves and persists Settings.  All reads are served from an
// in-memory copy guarded by a RWMutex; SetOpeningTime and the file watcher
// are the only writers.
type Store struct {
	path   string
	logger *log.Logger

	mu      sync.RWMutex
	current Settings

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Load reads the settings file at path.  A missing or unreadable file is
// not an error: defaults are used and the file is created on first write.
func Load(path string, logger *log.Logger) (*Store, error) {
	s := &Store{path: path, logger: logger, current: defaults()}
	if err := s.reload(); err != nil {
		logger.Printf("settings: using defaults: %v", err)
	}
	return s, nil
}

func (s *Store) reload() error {
	k := koanf.New(".")
	if err := k.Load(file.Provider(s.path), yaml.Parser()); err != nil {
		return fmt.Errorf("load %s: %w", s.path, err)
	}

	next := defaults()
	if k.Exists("opening_time") {
		next.OpeningTimeSeconds = k.Int("opening_time")
	}
	if k.Exists("alerts_enabled") {
		next.AlertsEnabled = k.Bool("alerts_enabled")
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return nil
}

// OpeningTime returns the configured momentary-open duration, clamped to
// the allowed range regardless of what the file says.
func (s *Store) OpeningTime() time.Duration {
	s.mu.RLock()
	n := s.current.OpeningTimeSeconds
	s.mu.RUnlock()
	if n < MinOpeningTimeSeconds {
		n = DefaultOpeningTimeSeconds
	}
	if n > MaxOpeningTimeSeconds {
		n = MaxOpeningTimeSeconds
	}
	return time.Duration(n) * time.Second
}

// OpeningTimeSeconds is OpeningTime in whole seconds, for status reporting.
func (s *Store) OpeningTimeSeconds() int {
	return int(s.OpeningTime() / time.Second)
}

func (s *Store) AlertsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.AlertsEnabled
}

// SetOpeningTime validates, persists and applies a new opening time.
// Out-of-range input is rejected without touching state or file.
func (s *Store) SetOpeningTime(seconds int) error {
	if seconds < MinOpeningTimeSeconds || seconds > MaxOpeningTimeSeconds {
		return ErrOpeningTimeRange
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.current
	next.OpeningTimeSeconds = seconds
	if err := s.persist(next); err != nil {
		return err
	}
	s.current = next
	s.logger.Printf("settings: opening time set to %ds", seconds)
	return nil
}

// persist writes the settings file atomically (temp file + rename) so the
// watcher in the admin UI never sees a half-written file.  Caller holds mu.
func (s *Store) persist(v Settings) error {
	out, err := yaml.Parser().Marshal(map[string]any{
		"opening_time":   v.OpeningTimeSeconds,
		"alerts_enabled": v.AlertsEnabled,
	})
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir settings dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename settings: %w", err)
	}
	return nil
}

// Watch reloads the store whenever another process rewrites the settings
// file.  It watches the parent directory because editors and atomic writers
// replace the file rather than writing in place.
func (s *Store) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("settings watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return fmt.Errorf("settings watch %s: %w", filepath.Dir(s.path), err)
	}

	s.watcher = w
	s.done = make(chan struct{})
	go s.watchLoop()
	return nil
}

func (s *Store) watchLoop() {
	defer close(s.done)
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := s.reload(); err != nil {
				s.logger.Printf("settings: reload after %s: %v", ev.Op, err)
				continue
			}
			s.logger.Printf("settings: reloaded (opening_time=%ds)", s.OpeningTimeSeconds())
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Printf("settings: watcher error: %v", err)
		}
	}
}

// Close stops the watcher, if started.
func (s *Store) Close() {
	if s.watcher != nil {
		_ = s.watcher.Close()
		<-s.done
	}
}
