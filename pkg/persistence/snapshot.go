package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lwm2m-go/lwm2m-client/pkg/repository"
)

// ErrUnversioned is returned when a snapshot lacks the format version tag.
var ErrUnversioned = errors.New("snapshot has no version tag")

// SnapshotStore manages a repository snapshot file.
type SnapshotStore struct {
	mu   sync.Mutex
	path string
}

// NewSnapshotStore creates a snapshot store backed by path.
func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

// Path returns the snapshot file path.
func (s *SnapshotStore) Path() string {
	return s.path
}

// Save writes snapshot, as produced by repository.Encode, to disk. The file
// is replaced atomically.
func (s *SnapshotStore) Save(snapshot []byte) error {
	var head struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(snapshot, &head); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if head.Version == "" {
		return ErrUnversioned
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(snapshot); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Load reads the snapshot as a repository source layer.
// Returns nil, nil if the file doesn't exist.
func (s *SnapshotStore) Load() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	layer, err := repository.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", s.path, err)
	}
	return layer, nil
}

// Clear removes the snapshot file.
func (s *SnapshotStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
