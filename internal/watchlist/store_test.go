package watchlist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "keywords.json"))
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	terms, err := tempStore(t).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(terms) != 0 {
		t.Errorf("terms = %v, want empty", terms)
	}
}

func TestAddAssignsSequentialIDs(t *testing.T) {
	st := tempStore(t)

	first, err := st.Add(Term{Term: "lego"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	second, err := st.Add(Term{Term: "duplo"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if first.ID != 1 || second.ID != 2 {
		t.Errorf("ids = %d, %d; want 1, 2", first.ID, second.ID)
	}
}

func TestDeleteDoesNotReuseIDs(t *testing.T) {
	st := tempStore(t)
	st.Add(Term{Term: "a"})
	b, _ := st.Add(Term{Term: "b"})

	if err := st.Delete(1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	c, err := st.Add(Term{Term: "c"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if c.ID != b.ID+1 {
		t.Errorf("new id = %d, want %d", c.ID, b.ID+1)
	}
}

func TestDeleteMissingTerm(t *testing.T) {
	st := tempStore(t)
	st.Add(Term{Term: "a"})

	if err := st.Delete(99); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete missing = %v, want ErrNotFound", err)
	}
}

func TestUpdatePreservesOtherTerms(t *testing.T) {
	st := tempStore(t)
	a, _ := st.Add(Term{Term: "a"})
	st.Add(Term{Term: "b"})

	min := int64(10)
	a.Term = "a updated"
	a.MinPrice = &min
	if err := st.Update(a); err != nil {
		t.Fatalf("update: %v", err)
	}

	terms, _ := st.Load()
	if len(terms) != 2 {
		t.Fatalf("terms = %d, want 2", len(terms))
	}
	got, _ := st.Get(a.ID)
	if got.Term != "a updated" || got.MinPrice == nil || *got.MinPrice != 10 {
		t.Errorf("updated term = %+v", got)
	}
}

func TestTouchAndResetLastRun(t *testing.T) {
	st := tempStore(t)
	term, _ := st.Add(Term{Term: "lego"})

	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	if err := st.TouchLastRun(term.ID, at); err != nil {
		t.Fatalf("touch: %v", err)
	}
	got, _ := st.Get(term.ID)
	if got.LastRunAt == nil || !got.LastRunAt.Equal(at) {
		t.Errorf("last run = %v, want %v", got.LastRunAt, at)
	}

	if err := st.ResetLastRun(term.ID); err != nil {
		t.Fatalf("reset: %v", err)
	}
	got, _ = st.Get(term.ID)
	if got.LastRunAt != nil {
		t.Errorf("last run after reset = %v, want nil", got.LastRunAt)
	}
}

func TestLoadLegacyFormats(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "keywords wrapper",
			raw:  `{"keywords": [{"term": "lego"}, {"term": "duplo"}]}`,
			want: []string{"lego", "duplo"},
		},
		{
			name: "bare strings",
			raw:  `["lego", "duplo"]`,
			want: []string{"lego", "duplo"},
		},
		{
			name: "single object",
			raw:  `{"term": "lego"}`,
			want: []string{"lego"},
		},
		{
			name: "mixed list",
			raw:  `[{"term": "lego", "min_price": "5"}, "duplo"]`,
			want: []string{"lego", "duplo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "keywords.json")
			if err := os.WriteFile(path, []byte(tt.raw), 0o644); err != nil {
				t.Fatal(err)
			}

			terms, err := NewStore(path).Load()
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if len(terms) != len(tt.want) {
				t.Fatalf("terms = %d, want %d", len(terms), len(tt.want))
			}
			for i, w := range tt.want {
				if terms[i].Term != w {
					t.Errorf("term[%d] = %q, want %q", i, terms[i].Term, w)
				}
			}
		})
	}
}

func TestLoadCoercesStringNumbers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.json")
	raw := `[{"id": 3, "term": "lego", "interval_minutes": "30", "min_price": "5", "max_price": 120, "last_run_at": "2026-03-14T12:00:00"}]`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	terms, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got := terms[0]
	if got.ID != 3 || got.IntervalMinutes != 30 {
		t.Errorf("term = %+v", got)
	}
	if got.MinPrice == nil || *got.MinPrice != 5 {
		t.Errorf("min price = %v, want 5", got.MinPrice)
	}
	if got.MaxPrice == nil || *got.MaxPrice != 120 {
		t.Errorf("max price = %v, want 120", got.MaxPrice)
	}
	if got.LastRunAt == nil || got.LastRunAt.Hour() != 12 {
		t.Errorf("last run = %v", got.LastRunAt)
	}
}

func TestLoadIgnoresLegacyNeverMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.json")
	raw := `[{"id": 1, "term": "lego", "last_run_at": "never"}]`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	terms, _ := NewStore(path).Load()
	if terms[0].LastRunAt != nil {
		t.Errorf("last run = %v, want nil for legacy marker", terms[0].LastRunAt)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 1}, {-4, 1}, {1, 1}, {5, 5}, {20, 20}, {21, 20},
	}
	for _, tt := range tests {
		if got := ClampLimit(tt.in); got != tt.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
