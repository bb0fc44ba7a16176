package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"marktplaats-watcher/internal/settings"
)

type timerPayload struct {
	DefaultIntervalMinutes *int    `json:"default_interval_minutes"`
	DefaultLimitPerRun     *int    `json:"default_limit_per_run"`
	SleepMode              *string `json:"sleep_mode"`
	SleepStart             *string `json:"sleep_start"`
	SleepEnd               *string `json:"sleep_end"`
	Postcode               *string `json:"postcode"`
	RadiusKM               *string `json:"radius_km"`
}

type telegramPayload struct {
	TelegramBotID  *string `json:"telegram_bot_id"`
	TelegramChatID *string `json:"telegram_chat_id"`
	ManualNotify   *string `json:"manual_notify"`
}

func validClock(v string) bool {
	_, err := time.Parse("15:04", v)
	return err == nil
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.settings.Load())
}

// handleUpdateTimer applies a partial update: absent keys keep their stored
// value.
func (s *Server) handleUpdateTimer(w http.ResponseWriter, r *http.Request) {
	var payload timerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if payload.DefaultIntervalMinutes != nil && *payload.DefaultIntervalMinutes < 1 {
		respondError(w, http.StatusBadRequest, "default_interval_minutes must be at least 1")
		return
	}
	if payload.DefaultLimitPerRun != nil && (*payload.DefaultLimitPerRun < 1 || *payload.DefaultLimitPerRun > 20) {
		respondError(w, http.StatusBadRequest, "default_limit_per_run must be between 1 and 20")
		return
	}
	if payload.SleepStart != nil && !validClock(*payload.SleepStart) {
		respondError(w, http.StatusBadRequest, "sleep_start must be HH:MM")
		return
	}
	if payload.SleepEnd != nil && !validClock(*payload.SleepEnd) {
		respondError(w, http.StatusBadRequest, "sleep_end must be HH:MM")
		return
	}

	cfg := s.settings.Load()
	if payload.DefaultIntervalMinutes != nil {
		cfg.DefaultIntervalMinutes = *payload.DefaultIntervalMinutes
	}
	if payload.DefaultLimitPerRun != nil {
		cfg.DefaultLimitPerRun = *payload.DefaultLimitPerRun
	}
	if payload.SleepMode != nil {
		cfg.SleepMode = settings.NormalizeEnum(*payload.SleepMode)
	}
	if payload.SleepStart != nil {
		cfg.SleepStart = *payload.SleepStart
	}
	if payload.SleepEnd != nil {
		cfg.SleepEnd = *payload.SleepEnd
	}
	if payload.Postcode != nil {
		cfg.Postcode = strings.TrimSpace(*payload.Postcode)
	}
	if payload.RadiusKM != nil {
		cfg.RadiusKM = strings.TrimSpace(*payload.RadiusKM)
	}

	if err := s.settings.Save(cfg); err != nil {
		s.logger.Error().Err(err).Msg("save settings failed")
		respondError(w, http.StatusInternalServerError, "could not store settings")
		return
	}
	respondJSON(w, http.StatusOK, s.settings.Load())
}

func (s *Server) handleUpdateTelegram(w http.ResponseWriter, r *http.Request) {
	var payload telegramPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cfg := s.settings.Load()
	if payload.TelegramBotID != nil {
		cfg.TelegramBotID = strings.TrimSpace(*payload.TelegramBotID)
	}
	if payload.TelegramChatID != nil {
		cfg.TelegramChatID = strings.TrimSpace(*payload.TelegramChatID)
	}
	if payload.ManualNotify != nil {
		cfg.ManualNotify = settings.NormalizeEnum(*payload.ManualNotify)
	}

	if err := s.settings.Save(cfg); err != nil {
		s.logger.Error().Err(err).Msg("save settings failed")
		respondError(w, http.StatusInternalServerError, "could not store settings")
		return
	}
	respondJSON(w, http.StatusOK, s.settings.Load())
}

func (s *Server) handleTelegramTest(w http.ResponseWriter, r *http.Request) {
	cfg := s.settings.Load()
	if cfg.TelegramBotID == "" || cfg.TelegramChatID == "" {
		respondError(w, http.StatusBadRequest, "telegram is not configured")
		return
	}

	notifier := s.newNotifier(cfg)
	if err := notifier.NotifyText(r.Context(), "Testbericht van de Marktplaats watcher."); err != nil {
		s.logger.Error().Err(err).Msg("telegram test message failed")
		respondError(w, http.StatusBadGateway, "test message failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
