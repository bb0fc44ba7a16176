package settings

import (
	"strconv"
	"strings"
)

// Enum values used for the yes/no settings toggles.
const (
	EnumYes = "yes"
	EnumNo  = "no"
)

// RadiusAll is the sentinel meaning "no distance filter".
const RadiusAll = "all"

// Settings holds the operator-editable runtime configuration. It lives in a
// JSON file next to the watch list so the editing layer can run as a separate
// process.
type Settings struct {
	DefaultIntervalMinutes int    `json:"default_interval_minutes"`
	DefaultLimitPerRun     int    `json:"default_limit_per_run"`
	SleepMode              string `json:"sleep_mode"`
	SleepStart             string `json:"sleep_start"`
	SleepEnd               string `json:"sleep_end"`
	Postcode               string `json:"postcode"`
	RadiusKM               string `json:"radius_km"`
	TelegramBotID          string `json:"telegram_bot_id"`
	TelegramChatID         string `json:"telegram_chat_id"`
	ManualNotify           string `json:"manual_notify"`
}

// Defaults returns the documented default settings.
func Defaults() Settings {
	return Settings{
		DefaultIntervalMinutes: 15,
		DefaultLimitPerRun:     5,
		SleepMode:              EnumNo,
		SleepStart:             "23:00",
		SleepEnd:               "07:00",
		Postcode:               "",
		RadiusKM:               RadiusAll,
		ManualNotify:           EnumNo,
	}
}

// SleepModeOn reports whether the sleep window is enabled.
func (s Settings) SleepModeOn() bool {
	return isYes(s.SleepMode)
}

// ManualNotifyOn reports whether manual runs should push notifications.
func (s Settings) ManualNotifyOn() bool {
	return isYes(s.ManualNotify)
}

// DistanceMeters translates the radius setting into meters for the search
// endpoint. The second return is false for the "all" sentinel or garbage.
func (s Settings) DistanceMeters() (int, bool) {
	r := strings.TrimSpace(s.RadiusKM)
	if r == "" || strings.EqualFold(r, RadiusAll) {
		return 0, false
	}
	km, err := strconv.Atoi(r)
	if err != nil || km <= 0 {
		return 0, false
	}
	return km * 1000, true
}

// NormalizeEnum coerces arbitrary input to the yes/no enum, defaulting to no.
func NormalizeEnum(v string) string {
	if isYes(v) {
		return EnumYes
	}
	return EnumNo
}

func isYes(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "ja", "true", "1", "on":
		return true
	}
	return false
}

// normalize repairs out-of-range values after a load.
func (s *Settings) normalize() {
	if s.DefaultIntervalMinutes <= 0 {
		s.DefaultIntervalMinutes = Defaults().DefaultIntervalMinutes
	}
	if s.DefaultLimitPerRun < 1 || s.DefaultLimitPerRun > 20 {
		s.DefaultLimitPerRun = Defaults().DefaultLimitPerRun
	}
	if s.SleepStart == "" {
		s.SleepStart = Defaults().SleepStart
	}
	if s.SleepEnd == "" {
		s.SleepEnd = Defaults().SleepEnd
	}
	if s.RadiusKM == "" {
		s.RadiusKM = RadiusAll
	}
	s.SleepMode = NormalizeEnum(s.SleepMode)
	s.ManualNotify = NormalizeEnum(s.ManualNotify)
}
