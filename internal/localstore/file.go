// Package localstore keeps named JSON entries on disk, one file per entry.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidKey is returned for entry names that would escape the directory.
var ErrInvalidKey = errors.New("invalid entry name")

// FileStore stores entries under Dir as <name>.json.
type FileStore struct {
	Dir string
}

// New returns a store rooted at dir.
func New(dir string) *FileStore { return &FileStore{Dir: dir} }

// Sub returns a store rooted at a child directory of s.
func (s *FileStore) Sub(name string) (*FileStore, error) {
	if err := checkKey(name); err != nil {
		return nil, err
	}
	return &FileStore{Dir: filepath.Join(s.Dir, name)}, nil
}

// Load decodes entry name into v.  A missing entry leaves v untouched and
// reports found=false.
func (s *FileStore) Load(name string, v any) (found bool, err error) {
	path, err := s.path(name)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

// Save replaces entry name with the JSON encoding of v.  The previous
// content survives a failed write.
func (s *FileStore) Save(name string, v any) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+name+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Delete removes entry name.  Deleting a missing entry is not an error.
func (s *FileStore) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RemoveAll deletes the store directory and every entry in it.
func (s *FileStore) RemoveAll() error {
	return os.RemoveAll(s.Dir)
}

func (s *FileStore) path(name string) (string, error) {
	if err := checkKey(name); err != nil {
		return "", err
	}
	return filepath.Join(s.Dir, name+".json"), nil
}

func checkKey(name string) error {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, name)
	}
	return nil
}
