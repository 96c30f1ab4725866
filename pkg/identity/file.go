package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/JesseRWeigel/stay-focused/pkg/appdir"
	"gopkg.in/yaml.v3"
)

var _ Store = (*FileStore)(nil)

// FileStore keeps the identifier in a small YAML file that is replaced
// atomically on every write.
type FileStore struct {
	mu   sync.Mutex
	path string
}

type fileFormat struct {
	DeviceID string `yaml:"device_id"`
}

// NewFile creates a FileStore backed by path. The file is created lazily on
// the first Save.
func NewFile(path string) (*FileStore, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("identity: resolve path: %w", err)
	}

	return &FileStore{path: abs}, nil
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("identity: read file: %w", err)
	}

	var ff fileFormat
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return "", false, fmt.Errorf("identity: parse file: %w", err)
	}

	if ff.DeviceID == "" {
		return "", false, nil
	}

	return ff.DeviceID, true, nil
}

// Save implements Store.
func (s *FileStore) Save(_ context.Context, id string) error {
	id, err := normalize(id)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(fileFormat{DeviceID: id})
	if err != nil {
		return fmt.Errorf("identity: marshal: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(data)
}

// Clear implements Store.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("identity: remove file: %w", err)
	}

	return nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }

// write replaces the file atomically. Must be called with mu held.
func (s *FileStore) write(data []byte) error {
	if err := appdir.WriteFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("identity: %w", err)
	}

	return nil
}
