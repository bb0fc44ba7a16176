package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"marktplaats-watcher/internal/listing"
	"marktplaats-watcher/internal/notify"
	"marktplaats-watcher/internal/service"
	"marktplaats-watcher/internal/settings"
	"marktplaats-watcher/internal/watchlist"
)

type fakeLedger struct {
	counts    map[int64]int64
	results   map[int64][]listing.Listing
	resetIDs  []int64
	listLimit int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		counts:  make(map[int64]int64),
		results: make(map[int64][]listing.Listing),
	}
}

func (f *fakeLedger) InsertNew(ctx context.Context, termID int64, items []listing.Listing) ([]listing.Listing, error) {
	return items, nil
}

func (f *fakeLedger) ListForTerm(ctx context.Context, termID int64, limit int) ([]listing.Listing, error) {
	f.listLimit = limit
	return f.results[termID], nil
}

func (f *fakeLedger) CountForTerm(ctx context.Context, termID int64) (int64, error) {
	return f.counts[termID], nil
}

func (f *fakeLedger) ResetTerm(ctx context.Context, termID int64) error {
	f.resetIDs = append(f.resetIDs, termID)
	return nil
}

type fakeRunner struct {
	result service.Result
	err    error
	runs   []int
	manual []bool
}

func (f *fakeRunner) RunTermByID(ctx context.Context, id int, manual bool) (service.Result, error) {
	f.runs = append(f.runs, id)
	f.manual = append(f.manual, manual)
	return f.result, f.err
}

type recordingNotifier struct {
	texts []string
	err   error
}

func (n *recordingNotifier) NotifyListing(ctx context.Context, l listing.Listing) error { return n.err }

func (n *recordingNotifier) NotifyText(ctx context.Context, text string) error {
	n.texts = append(n.texts, text)
	return n.err
}

type apiFixture struct {
	server   *Server
	terms    *watchlist.Store
	settings *settings.Store
	ledger   *fakeLedger
	runner   *fakeRunner
	notifier *recordingNotifier
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	dir := t.TempDir()

	settingsStore := settings.NewStore(filepath.Join(dir, "settings.json"))
	termStore := watchlist.NewStore(filepath.Join(dir, "keywords.json"))
	ledger := newFakeLedger()
	runner := &fakeRunner{}
	notifier := &recordingNotifier{}

	srv := NewServer(settingsStore, termStore, ledger, runner, func(settings.Settings) notify.Notifier {
		return notifier
	}, "https://www.marktplaats.nl", zerolog.Nop())

	return &apiFixture{
		server:   srv,
		terms:    termStore,
		settings: settingsStore,
		ledger:   ledger,
		runner:   runner,
		notifier: notifier,
	}
}

func (fx *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	fx.server.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestTermCRUD(t *testing.T) {
	fx := newAPIFixture(t)

	rec := fx.do(t, http.MethodPost, "/api/terms", map[string]any{
		"term":      "lego technic",
		"max_price": 150,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body)
	}
	created := decodeBody[termView](t, rec)
	if created.ID != 1 || created.Term.Term != "lego technic" {
		t.Fatalf("created = %+v", created)
	}
	if created.MaxPrice == nil || *created.MaxPrice != 150 {
		t.Errorf("max price = %v, want 150", created.MaxPrice)
	}
	if created.SearchURL == "" {
		t.Error("created term must carry a search URL")
	}

	fx.ledger.counts[1] = 7
	rec = fx.do(t, http.MethodGet, "/api/terms", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	list := decodeBody[[]termView](t, rec)
	if len(list) != 1 || list[0].ResultCount != 7 {
		t.Fatalf("list = %+v", list)
	}

	rec = fx.do(t, http.MethodPut, "/api/terms/1", map[string]any{
		"term":             "lego duplo",
		"interval_minutes": 30,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body)
	}
	updated := decodeBody[termView](t, rec)
	if updated.Term.Term != "lego duplo" || updated.IntervalMinutes != 30 {
		t.Fatalf("updated = %+v", updated)
	}
	if updated.MaxPrice != nil {
		t.Error("update must replace price bounds, not merge them")
	}

	rec = fx.do(t, http.MethodDelete, "/api/terms/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if len(fx.ledger.resetIDs) != 1 || fx.ledger.resetIDs[0] != 1 {
		t.Errorf("delete must cascade into the ledger, resets = %v", fx.ledger.resetIDs)
	}

	terms, _ := fx.terms.Load()
	if len(terms) != 0 {
		t.Errorf("terms after delete = %v", terms)
	}
}

func TestCreateTermValidation(t *testing.T) {
	fx := newAPIFixture(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"empty term", map[string]any{"term": "   "}},
		{"negative interval", map[string]any{"term": "lego", "interval_minutes": -1}},
		{"inverted bounds", map[string]any{"term": "lego", "min_price": 100, "max_price": 10}},
		{"negative price", map[string]any{"term": "lego", "min_price": -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := fx.do(t, http.MethodPost, "/api/terms", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}

	rec := fx.do(t, http.MethodPost, "/api/terms", map[string]any{"term": "lego", "limit_per_run": 99})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if created := decodeBody[termView](t, rec); created.LimitPerRun != 20 {
		t.Errorf("limit = %d, want clamped 20", created.LimitPerRun)
	}
}

func TestManualRunEndpoint(t *testing.T) {
	fx := newAPIFixture(t)
	fx.terms.Add(watchlist.Term{Term: "lego"})
	fx.runner.result = service.Result{Fetched: 5, Filtered: 4, New: 2}

	rec := fx.do(t, http.MethodPost, "/api/terms/1/run", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	res := decodeBody[service.Result](t, rec)
	if res.New != 2 || res.Fetched != 5 {
		t.Fatalf("result = %+v", res)
	}
	if len(fx.runner.manual) != 1 || !fx.runner.manual[0] {
		t.Error("API runs must mark themselves manual")
	}
}

func TestManualRunFailures(t *testing.T) {
	fx := newAPIFixture(t)

	fx.runner.err = watchlist.ErrNotFound
	if rec := fx.do(t, http.MethodPost, "/api/terms/42/run", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing term status = %d, want 404", rec.Code)
	}

	fx.runner.err = fmt.Errorf("fetch returned no listings for %q", "lego")
	rec := fx.do(t, http.MethodPost, "/api/terms/1/run", nil)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("failed run status = %d, want 502", rec.Code)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["error"] != "run failed" {
		t.Errorf("failed run body = %v, want generic error", body)
	}
}

func TestResetTermEndpoint(t *testing.T) {
	fx := newAPIFixture(t)
	term, _ := fx.terms.Add(watchlist.Term{Term: "lego"})
	fx.terms.TouchLastRun(term.ID, time.Now())

	rec := fx.do(t, http.MethodPost, "/api/terms/1/reset", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(fx.ledger.resetIDs) != 1 {
		t.Errorf("ledger resets = %v", fx.ledger.resetIDs)
	}

	got, _ := fx.terms.Get(term.ID)
	if got.LastRunAt != nil {
		t.Error("reset must clear the last-run timestamp")
	}

	if rec := fx.do(t, http.MethodPost, "/api/terms/9/reset", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing term status = %d, want 404", rec.Code)
	}
}

func TestTermResultsEndpoint(t *testing.T) {
	fx := newAPIFixture(t)
	fx.terms.Add(watchlist.Term{Term: "lego"})
	fx.ledger.results[1] = []listing.Listing{
		{AdID: "m1", Title: "set 42083"},
		{AdID: "m2", Title: "set 42115"},
	}

	rec := fx.do(t, http.MethodGet, "/api/terms/1/results?limit=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	results := decodeBody[[]listing.Listing](t, rec)
	if len(results) != 2 || results[0].AdID != "m1" {
		t.Fatalf("results = %+v", results)
	}
	if fx.ledger.listLimit != 10 {
		t.Errorf("limit passed = %d, want 10", fx.ledger.listLimit)
	}

	if rec := fx.do(t, http.MethodGet, "/api/terms/1/results?limit=zero", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
	if rec := fx.do(t, http.MethodGet, "/api/terms/5/results", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing term status = %d, want 404", rec.Code)
	}
}

func TestTimerSettingsUpdate(t *testing.T) {
	fx := newAPIFixture(t)

	rec := fx.do(t, http.MethodPut, "/api/settings/timer", map[string]any{
		"default_interval_minutes": 30,
		"sleep_mode":               "ja",
		"sleep_start":              "22:30",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	got := decodeBody[settings.Settings](t, rec)
	if got.DefaultIntervalMinutes != 30 {
		t.Errorf("interval = %d, want 30", got.DefaultIntervalMinutes)
	}
	if got.SleepMode != settings.EnumYes {
		t.Errorf("sleep mode = %q, want normalized yes", got.SleepMode)
	}
	if got.SleepStart != "22:30" {
		t.Errorf("sleep start = %q", got.SleepStart)
	}
	// Absent keys keep their stored value.
	if got.DefaultLimitPerRun != 5 || got.SleepEnd != "07:00" {
		t.Errorf("partial update clobbered defaults: %+v", got)
	}

	tests := []struct {
		name string
		body map[string]any
	}{
		{"zero interval", map[string]any{"default_interval_minutes": 0}},
		{"limit too high", map[string]any{"default_limit_per_run": 21}},
		{"bad clock", map[string]any{"sleep_start": "25:99"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := fx.do(t, http.MethodPut, "/api/settings/timer", tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestTelegramSettingsAndTest(t *testing.T) {
	fx := newAPIFixture(t)

	// Unconfigured: the test endpoint refuses.
	if rec := fx.do(t, http.MethodPost, "/api/settings/telegram/test", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("unconfigured test status = %d, want 400", rec.Code)
	}

	rec := fx.do(t, http.MethodPut, "/api/settings/telegram", map[string]any{
		"telegram_bot_id":  "123:abc",
		"telegram_chat_id": "456",
		"manual_notify":    "on",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d", rec.Code)
	}
	got := decodeBody[settings.Settings](t, rec)
	if got.TelegramBotID != "123:abc" || got.TelegramChatID != "456" {
		t.Fatalf("settings = %+v", got)
	}
	if got.ManualNotify != settings.EnumYes {
		t.Errorf("manual notify = %q, want normalized yes", got.ManualNotify)
	}

	rec = fx.do(t, http.MethodPost, "/api/settings/telegram/test", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("test status = %d, body %s", rec.Code, rec.Body)
	}
	if len(fx.notifier.texts) != 1 {
		t.Fatalf("test messages sent = %d, want 1", len(fx.notifier.texts))
	}
}

func TestSettingsEndpointReturnsDefaults(t *testing.T) {
	fx := newAPIFixture(t)

	rec := fx.do(t, http.MethodGet, "/api/settings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeBody[settings.Settings](t, rec); got != settings.Defaults() {
		t.Errorf("settings = %+v, want defaults", got)
	}
}
