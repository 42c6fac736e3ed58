// Package jsonfile provides a JSON file-based conversation state store.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/hay-kot/lobby/internal/core/chat"
)

const fileVersion = 1

// ErrUnsupportedVersion is returned when the state file was written by a
// newer version.
var ErrUnsupportedVersion = errors.New("unsupported state file version")

// StateFile is the root JSON structure stored on disk.
type StateFile struct {
	Version int        `json:"version"`
	SavedAt time.Time  `json:"saved_at"`
	State   chat.State `json:"state"`
}

// Store implements chat.Store using a JSON file for persistence.
// Concurrent processes are serialized with an flock on a sibling lock file.
type Store struct {
	path string
	now  func() time.Time
	mu   sync.RWMutex
}

// New creates a new JSON file store at the given path.
func New(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the state. A missing or empty file yields an empty state.
func (s *Store) Load(ctx context.Context) (chat.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st chat.State
	err := s.withLock(syscall.LOCK_SH, func() error {
		file, err := s.load()
		if err != nil {
			return err
		}
		st = file.State
		return nil
	})
	return st, err
}

// Save replaces the stored state.
func (s *Store) Save(ctx context.Context, st chat.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withLock(syscall.LOCK_EX, func() error {
		return s.save(StateFile{Version: fileVersion, SavedAt: s.now().UTC(), State: st})
	})
}

// Update runs fn with exclusive access to the state file. The chat.Store
// passed to fn reads and writes without relocking, so a load-modify-save
// cycle inside fn cannot interleave with another process doing the same.
func (s *Store) Update(ctx context.Context, fn func(tx chat.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withLock(syscall.LOCK_EX, func() error {
		return fn(lockedStore{s: s})
	})
}

// lockedStore is the view of a Store handed out by Update.
type lockedStore struct {
	s *Store
}

func (l lockedStore) Load(context.Context) (chat.State, error) {
	file, err := l.s.load()
	if err != nil {
		return chat.State{}, err
	}
	return file.State, nil
}

func (l lockedStore) Save(_ context.Context, st chat.State) error {
	return l.s.save(StateFile{Version: fileVersion, SavedAt: l.s.now().UTC(), State: st})
}

func (s *Store) lockPath() string {
	return s.path + ".lock"
}

// withLock executes fn while holding a file lock of the given kind.
func (s *Store) withLock(how int, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	if err := syscall.Flock(int(f.Fd()), how); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN) //nolint:errcheck

	return fn()
}

// load reads the state file from disk.
// Returns an empty state if the file doesn't exist.
func (s *Store) load() (StateFile, error) {
	empty := StateFile{Version: fileVersion, State: chat.New()}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return empty, nil
		}
		return StateFile{}, fmt.Errorf("read state file: %w", err)
	}

	if len(data) == 0 {
		return empty, nil
	}

	var file StateFile
	if err := json.Unmarshal(data, &file); err != nil {
		return StateFile{}, fmt.Errorf("parse state file: %w", err)
	}
	if file.Version > fileVersion {
		return StateFile{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, file.Version)
	}

	// Maps omitted by older files decode as nil.
	file.State = file.State.Clone()
	return file, nil
}

// save writes the state file to disk atomically.
// Uses write-to-temp-then-rename to prevent corruption from interrupted writes.
func (s *Store) save(file StateFile) error {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
