// Package flags persists small boolean flags on the local machine.
//
// The coordinator reads these during initialization to short-circuit
// stale remote state: a locally flagged-deleted account is treated as
// signed out even if a stale session token is still present.
package flags

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Flags are the persisted local flags owned by the sync engine.
type Flags struct {
	HasVisited     bool `json:"hasVisited"`
	UserSignedOut  bool `json:"userSignedOut"`
	AccountDeleted bool `json:"accountDeleted"`
}

// Store reads and writes the flags file. Safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	path  string
	flags Flags
}

// Open loads the flags from path, falling back to zero flags when the
// file is missing or unreadable. A corrupt or absent flags file must
// never block startup.
func Open(path string) (*Store, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("resolve flags path: %w", err)
	}

	s := &Store{path: resolved}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return s, nil // graceful degradation
	}
	if err := json.Unmarshal(data, &s.flags); err != nil {
		return s, nil // graceful degradation
	}
	return s, nil
}

// Get returns the current flags.
func (s *Store) Get() Flags {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags
}

// SetHasVisited records that the app has been opened on this machine.
func (s *Store) SetHasVisited(v bool) error {
	return s.update(func(f *Flags) { f.HasVisited = v })
}

// SetUserSignedOut records an explicit local sign-out.
func (s *Store) SetUserSignedOut(v bool) error {
	return s.update(func(f *Flags) { f.UserSignedOut = v })
}

// SetAccountDeleted records a local account deletion.
func (s *Store) SetAccountDeleted(v bool) error {
	return s.update(func(f *Flags) { f.AccountDeleted = v })
}

func (s *Store) update(mutate func(*Flags)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mutate(&s.flags)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create flags dir: %w", err)
	}
	data, err := json.Marshal(s.flags)
	if err != nil {
		return fmt.Errorf("marshal flags: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write flags: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if path == "" {
		return "", errors.New("empty flags path")
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
