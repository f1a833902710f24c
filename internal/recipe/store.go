package recipe

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// PersistError reports a failure to write the recipe list back to disk.
// Op is "encode" or "write".
type PersistError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist recipes (%s %s): %v", e.Op, e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Store keeps the recipe list in memory and mirrors it to a YAML file.
// Every read and write goes through one mutex; the file is rewritten in
// full on every Append while the lock is held.
type Store struct {
	mu      sync.Mutex
	path    string
	recipes []Recipe
}

// Open reads the whole backing file and decodes it. A missing or
// malformed file is an error.
func Open(path string) (*Store, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read recipes %s: %w", path, err)
	}
	recipes, err := Decode(b)
	if err != nil {
		return nil, fmt.Errorf("parse recipes %s: %w", path, err)
	}
	return &Store{path: path, recipes: recipes}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Len returns the number of recipes.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recipes)
}

// List returns a snapshot copy in insertion order.
func (s *Store) List() []Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Recipe, len(s.recipes))
	for i, r := range s.recipes {
		out[i] = r.clone()
	}
	return out
}

// Append adds r at the end and rewrites the backing file. If the file
// cannot be written the append is undone, so memory never holds a recipe
// the file does not.
func (s *Store) Append(r Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := len(s.recipes)
	s.recipes = append(s.recipes, r.clone())
	if err := s.persistLocked(); err != nil {
		s.recipes = s.recipes[:prev:prev]
		return err
	}
	return nil
}

func (s *Store) persistLocked() error {
	data, err := Encode(s.recipes)
	if err != nil {
		return &PersistError{Op: "encode", Path: s.path, Err: err}
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return &PersistError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}

// writeFileAtomic replaces path with data via a sibling temp file and a
// rename. The parent directory must already exist.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Encode serializes recipes as a YAML sequence of stored records.
func Encode(recipes []Recipe) ([]byte, error) {
	if recipes == nil {
		recipes = []Recipe{}
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(recipes); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a YAML sequence of stored records. Empty input yields an
// empty list.
func Decode(b []byte) ([]Recipe, error) {
	var recipes []Recipe
	if err := yaml.Unmarshal(b, &recipes); err != nil {
		return nil, err
	}
	if recipes == nil {
		recipes = []Recipe{}
	}
	return recipes, nil
}
