package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"marktplaats-watcher/internal/fetcher"
	"marktplaats-watcher/internal/watchlist"
)

const defaultResultsLimit = 50

type termView struct {
	watchlist.Term
	SearchURL   string `json:"search_url"`
	ResultCount int64  `json:"result_count"`
}

type termPayload struct {
	Term            string `json:"term"`
	IntervalMinutes int    `json:"interval_minutes"`
	MinPrice        *int64 `json:"min_price"`
	MaxPrice        *int64 `json:"max_price"`
	LimitPerRun     int    `json:"limit_per_run"`
}

func (p *termPayload) validate() string {
	p.Term = strings.TrimSpace(p.Term)
	if p.Term == "" {
		return "term must not be empty"
	}
	if p.IntervalMinutes < 0 {
		return "interval_minutes must be at least 1"
	}
	if p.MinPrice != nil && *p.MinPrice < 0 {
		return "min_price must not be negative"
	}
	if p.MaxPrice != nil && *p.MaxPrice < 0 {
		return "max_price must not be negative"
	}
	if p.MinPrice != nil && p.MaxPrice != nil && *p.MinPrice > *p.MaxPrice {
		return "min_price must not exceed max_price"
	}
	if p.LimitPerRun != 0 {
		p.LimitPerRun = watchlist.ClampLimit(p.LimitPerRun)
	}
	return ""
}

func (s *Server) termView(r *http.Request, t watchlist.Term) termView {
	cfg := s.settings.Load()
	count, err := s.ledger.CountForTerm(r.Context(), int64(t.ID))
	if err != nil {
		s.logger.Warn().Err(err).Int("term_id", t.ID).Msg("result count unavailable")
	}
	return termView{
		Term:        t,
		SearchURL:   fetcher.SearchURL(s.baseURL, t.Term, cfg.Postcode, cfg.RadiusKM),
		ResultCount: count,
	}
}

func termID(r *http.Request) int {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	return id
}

func (s *Server) handleListTerms(w http.ResponseWriter, r *http.Request) {
	terms, err := s.terms.Load()
	if err != nil {
		s.logger.Error().Err(err).Msg("load watch list failed")
		respondError(w, http.StatusInternalServerError, "could not load watch list")
		return
	}

	views := make([]termView, 0, len(terms))
	for _, t := range terms {
		views = append(views, s.termView(r, t))
	}
	respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateTerm(w http.ResponseWriter, r *http.Request) {
	var payload termPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := payload.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	added, err := s.terms.Add(watchlist.Term{
		Term:            payload.Term,
		IntervalMinutes: payload.IntervalMinutes,
		MinPrice:        payload.MinPrice,
		MaxPrice:        payload.MaxPrice,
		LimitPerRun:     payload.LimitPerRun,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("add term failed")
		respondError(w, http.StatusInternalServerError, "could not store term")
		return
	}
	respondJSON(w, http.StatusCreated, s.termView(r, added))
}

func (s *Server) handleUpdateTerm(w http.ResponseWriter, r *http.Request) {
	var payload termPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := payload.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	existing, err := s.terms.Get(termID(r))
	if err != nil {
		s.respondTermError(w, err)
		return
	}

	existing.Term = payload.Term
	existing.IntervalMinutes = payload.IntervalMinutes
	existing.MinPrice = payload.MinPrice
	existing.MaxPrice = payload.MaxPrice
	existing.LimitPerRun = payload.LimitPerRun

	if err := s.terms.Update(existing); err != nil {
		s.respondTermError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.termView(r, existing))
}

func (s *Server) handleDeleteTerm(w http.ResponseWriter, r *http.Request) {
	id := termID(r)
	if err := s.terms.Delete(id); err != nil {
		s.respondTermError(w, err)
		return
	}

	// Removing the term also drops its ledger entries; re-adding the same
	// search later starts from a clean slate.
	if err := s.ledger.ResetTerm(r.Context(), int64(id)); err != nil {
		s.logger.Error().Err(err).Int("term_id", id).Msg("ledger cleanup failed after delete")
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleRunTerm(w http.ResponseWriter, r *http.Request) {
	id := termID(r)
	res, err := s.runner.RunTermByID(r.Context(), id, true)
	if err != nil {
		if errors.Is(err, watchlist.ErrNotFound) {
			respondError(w, http.StatusNotFound, "term not found")
			return
		}
		s.logger.Error().Err(err).Int("term_id", id).Msg("manual run failed")
		respondError(w, http.StatusBadGateway, "run failed")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleResetTerm(w http.ResponseWriter, r *http.Request) {
	id := termID(r)
	if _, err := s.terms.Get(id); err != nil {
		s.respondTermError(w, err)
		return
	}

	if err := s.ledger.ResetTerm(r.Context(), int64(id)); err != nil {
		s.logger.Error().Err(err).Int("term_id", id).Msg("ledger reset failed")
		respondError(w, http.StatusInternalServerError, "could not reset results")
		return
	}
	if err := s.terms.ResetLastRun(id); err != nil {
		s.respondTermError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleTermResults(w http.ResponseWriter, r *http.Request) {
	id := termID(r)
	if _, err := s.terms.Get(id); err != nil {
		s.respondTermError(w, err)
		return
	}

	limit := defaultResultsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		limit = n
	}

	results, err := s.ledger.ListForTerm(r.Context(), int64(id), limit)
	if err != nil {
		s.logger.Error().Err(err).Int("term_id", id).Msg("list results failed")
		respondError(w, http.StatusInternalServerError, "could not load results")
		return
	}
	respondJSON(w, http.StatusOK, results)
}

func (s *Server) respondTermError(w http.ResponseWriter, err error) {
	if errors.Is(err, watchlist.ErrNotFound) {
		respondError(w, http.StatusNotFound, "term not found")
		return
	}
	s.logger.Error().Err(err).Msg("watch list operation failed")
	respondError(w, http.StatusInternalServerError, "watch list unavailable")
}
