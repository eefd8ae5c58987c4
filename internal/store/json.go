package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// JSONStore keeps the whole snapshot in a single JSON document.
type JSONStore struct {
	path string
	mu   sync.Mutex
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

func (s *JSONStore) Load(_ context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, loadFailed(err, s.path)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, loadFailed(err, s.path)
	}
	return &snap, nil
}

func (s *JSONStore) Save(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return saveFailed(err, s.path)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return saveFailed(err, s.path)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return saveFailed(err, s.path)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return saveFailed(err, s.path)
	}
	return nil
}

func (s *JSONStore) Close() error { return nil }
