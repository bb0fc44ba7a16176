package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store reads and writes the settings file. Writes go through a temp file and
// an atomic rename so a concurrent reader never observes a torn file.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore builds a settings store rooted at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the current settings merged over the defaults. A missing or
// unreadable file yields the defaults; Load never fails.
func (st *Store) Load() Settings {
	st.mu.Lock()
	defer st.mu.Unlock()

	merged := Defaults()

	data, err := os.ReadFile(st.path)
	if err == nil {
		// Absent keys keep their default; only present keys overwrite.
		_ = json.Unmarshal(data, &merged)
	}

	merged.normalize()
	return merged
}

// Save persists the settings atomically.
func (st *Store) Save(s Settings) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	s.normalize()
	return writeFileAtomic(st.path, s)
}

func writeFileAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
