package watchlist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrNotFound indicates the requested term does not exist.
var ErrNotFound = errors.New("watchlist: term not found")

// Store persists the watch list as a JSON file. Every mutation is a full
// read-modify-atomic-replace so concurrent writers (the scheduler touching
// last-run timestamps, the admin API editing terms) cannot corrupt the file.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore builds a watch list store rooted at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns all watched terms. A missing file is an empty list.
func (st *Store) Load() ([]Term, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.load()
}

func (st *Store) load() ([]Term, error) {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read watch list: %w", err)
	}
	return decodeTerms(data), nil
}

func (st *Store) replace(terms []Term) error {
	// Assign ids to terms that never got one, preserving existing ids.
	next := 0
	for _, t := range terms {
		if t.ID > next {
			next = t.ID
		}
	}
	for i := range terms {
		if terms[i].ID <= 0 {
			next++
			terms[i].ID = next
		}
	}

	data, err := json.MarshalIndent(terms, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal watch list: %w", err)
	}
	return writeFileAtomic(st.path, data)
}

// Get returns the term with the given id.
func (st *Store) Get(id int) (Term, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	terms, err := st.load()
	if err != nil {
		return Term{}, err
	}
	for _, t := range terms {
		if t.ID == id {
			return t, nil
		}
	}
	return Term{}, ErrNotFound
}

// Add appends a new term and returns it with its assigned id.
func (st *Store) Add(t Term) (Term, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	terms, err := st.load()
	if err != nil {
		return Term{}, err
	}

	t.ID = 0
	terms = append(terms, t)
	if err := st.replace(terms); err != nil {
		return Term{}, err
	}
	return terms[len(terms)-1], nil
}

// Update overwrites the stored term carrying the same id.
func (st *Store) Update(updated Term) error {
	return st.mutate(updated.ID, func(t *Term) {
		*t = updated
	})
}

// Delete removes the term with the given id.
func (st *Store) Delete(id int) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	terms, err := st.load()
	if err != nil {
		return err
	}

	kept := terms[:0]
	for _, t := range terms {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(terms) {
		return ErrNotFound
	}
	return st.replace(kept)
}

// TouchLastRun records a completed run for the term.
func (st *Store) TouchLastRun(id int, at time.Time) error {
	return st.mutate(id, func(t *Term) {
		stamp := at
		t.LastRunAt = &stamp
	})
}

// ResetLastRun clears the run timestamp so the term is due immediately.
func (st *Store) ResetLastRun(id int) error {
	return st.mutate(id, func(t *Term) {
		t.LastRunAt = nil
	})
}

func (st *Store) mutate(id int, apply func(*Term)) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	terms, err := st.load()
	if err != nil {
		return err
	}
	for i := range terms {
		if terms[i].ID == id {
			apply(&terms[i])
			return st.replace(terms)
		}
	}
	return ErrNotFound
}

func writeFileAtomic(path string, data []byte) error {
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
		return fmt.Errorf("replace watch list: %w", err)
	}
	return nil
}
