package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/Kiarash1380mohebbi/web-scrapy/internal/crawler"
	"github.com/Kiarash1380mohebbi/web-scrapy/pkg/errors"
)

// FileStore owns the single JSON results artifact of a search run
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store writing to path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the artifact location
func (s *FileStore) Path() string {
	return s.path
}

// Clear removes the previous run's artifact so stale results are never
// mistaken for fresh ones. A missing file is not an error.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.NewStorage("remove previous artifact", err)
	}
	return nil
}

// Write serializes records and atomically replaces the artifact.
// Readers see either no file or the complete new one.
func (s *FileStore) Write(records []crawler.ProductRecord) error {
	data, err := crawler.Marshal(records)
	if err != nil {
		return errors.NewStorage("encode records", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewStorage("create artifact directory", err)
	}

	// Write to temp file in the same directory so the rename stays atomic
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.NewStorage("create temp file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.NewStorage("write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.NewStorage("sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewStorage("close temp file", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return errors.NewStorage("chmod temp file", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return errors.NewStorage("replace artifact", err)
	}
	return nil
}

// Load reads the artifact back
func (s *FileStore) Load() ([]crawler.ProductRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.NewStorage("read artifact", err)
	}

	var records []crawler.ProductRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.NewStorage("decode artifact", err)
	}
	return records, nil
}
