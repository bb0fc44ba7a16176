package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"marktplaats-watcher/internal/service"
	"marktplaats-watcher/internal/settings"
	"marktplaats-watcher/internal/storage"
	"marktplaats-watcher/internal/watchlist"
)

// Runner executes the watch pipeline for one term on demand.
type Runner interface {
	RunTermByID(ctx context.Context, id int, manual bool) (service.Result, error)
}

// Server is the JSON admin API: term CRUD, manual runs, stored results, and
// the operator settings.
type Server struct {
	settings    *settings.Store
	terms       *watchlist.Store
	ledger      storage.Ledger
	runner      Runner
	newNotifier service.NotifierFactory
	baseURL     string
	logger      zerolog.Logger
}

// NewServer wires the admin API around the shared stores and the pipeline
// runner. baseURL is the public marketplace URL used to build browsable
// search links.
func NewServer(settingsStore *settings.Store, termStore *watchlist.Store, ledger storage.Ledger, runner Runner, nf service.NotifierFactory, baseURL string, logger zerolog.Logger) *Server {
	return &Server{
		settings:    settingsStore,
		terms:       termStore,
		ledger:      ledger,
		runner:      runner,
		newNotifier: nf,
		baseURL:     baseURL,
		logger:      logger.With().Str("component", "httpapi").Logger(),
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/terms", s.handleListTerms).Methods(http.MethodGet)
	api.HandleFunc("/terms", s.handleCreateTerm).Methods(http.MethodPost)
	api.HandleFunc("/terms/{id:[0-9]+}", s.handleUpdateTerm).Methods(http.MethodPut)
	api.HandleFunc("/terms/{id:[0-9]+}", s.handleDeleteTerm).Methods(http.MethodDelete)
	api.HandleFunc("/terms/{id:[0-9]+}/run", s.handleRunTerm).Methods(http.MethodPost)
	api.HandleFunc("/terms/{id:[0-9]+}/reset", s.handleResetTerm).Methods(http.MethodPost)
	api.HandleFunc("/terms/{id:[0-9]+}/results", s.handleTermResults).Methods(http.MethodGet)

	api.HandleFunc("/settings", s.handleGetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings/timer", s.handleUpdateTimer).Methods(http.MethodPut)
	api.HandleFunc("/settings/telegram", s.handleUpdateTelegram).Methods(http.MethodPut)
	api.HandleFunc("/settings/telegram/test", s.handleTelegramTest).Methods(http.MethodPost)

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
