package extraction

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// TempStorage manages the temporary WAV files handed to the inference engine
type TempStorage struct {
	dir    string
	prefix string
}

// NewTempStorage creates a temp storage rooted at dir
func NewTempStorage(dir, prefix string) (*TempStorage, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &TempStorage{dir: dir, prefix: prefix}, nil
}

// Dir returns the directory temp files are created in
func (s *TempStorage) Dir() string { return s.dir }

// Pattern is the glob matching every file this storage creates
func (s *TempStorage) Pattern() string {
	return filepath.Join(s.dir, s.prefix+"*.wav")
}

// Create opens a new uniquely named file for writing
func (s *TempStorage) Create() (*os.File, error) {
	path := filepath.Join(s.dir, s.prefix+uuid.NewString()+".wav")
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return file, nil
}

// Delete removes a file, ignoring files that are already gone
func (s *TempStorage) Delete(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Exists checks if a file exists
func (s *TempStorage) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat file: %w", err)
	}
	return true, nil
}

// List returns every temp file currently on disk
func (s *TempStorage) List() ([]string, error) {
	return filepath.Glob(s.Pattern())
}
