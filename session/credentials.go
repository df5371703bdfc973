package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vitrinelabs/vitrine/core"
)

// MemoryCredentialStore keeps credentials in process memory only. Used in
// tests and by hosts that manage persistence themselves.
type MemoryCredentialStore struct {
	mu    sync.RWMutex
	creds *core.Credentials
}

// NewMemoryCredentialStore creates an empty in-memory credential store
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{}
}

func (s *MemoryCredentialStore) Load(ctx context.Context) (*core.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return nil, nil
	}
	copied := *s.creds
	return &copied, nil
}

func (s *MemoryCredentialStore) Save(ctx context.Context, creds *core.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *creds
	s.creds = &copied
	return nil
}

func (s *MemoryCredentialStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = nil
	return nil
}

// FileCredentialStore persists credentials as a JSON file, the per-profile
// durable slot of a desktop or kiosk deployment. Writes go through a
// temporary file and rename so the slot is replaced atomically: either the
// full record lands or nothing changes.
type FileCredentialStore struct {
	mu   sync.Mutex
	path string
}

// NewFileCredentialStore creates a file-backed credential store at path.
// The parent directory is created on first save.
func NewFileCredentialStore(path string) *FileCredentialStore {
	return &FileCredentialStore{path: path}
}

func (s *FileCredentialStore) Load(ctx context.Context) (*core.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading credential slot: %w", err)
	}
	var creds core.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("corrupt credential slot: %w", err)
	}
	return &creds, nil
}

func (s *FileCredentialStore) Save(ctx context.Context, creds *core.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating credential directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing credential slot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing credential slot: %w", err)
	}
	return nil
}

func (s *FileCredentialStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing credential slot: %w", err)
	}
	return nil
}
