package service

import (
	"strconv"
	"strings"
	"time"

	"marktplaats-watcher/internal/settings"
	"marktplaats-watcher/internal/watchlist"
)

// sleepFloor is the minimum effective interval while the sleep window is
// active.
const sleepFloor = 60 * time.Minute

// InSleepWindow reports whether the time of day of now falls inside the
// [start, end) window. A start at or after the end wraps past midnight:
// 23:00-07:00 covers 23:30 and 06:59 but not 07:00.
func InSleepWindow(now time.Time, start, end string) bool {
	startMin := parseClock(start, 23*60)
	endMin := parseClock(end, 7*60)
	nowMin := now.Hour()*60 + now.Minute()

	if startMin >= endMin {
		return nowMin >= startMin || nowMin < endMin
	}
	return nowMin >= startMin && nowMin < endMin
}

// parseClock reads an "HH:MM" value, falling back when malformed.
func parseClock(v string, fallback int) int {
	hh, mm, ok := strings.Cut(strings.TrimSpace(v), ":")
	if !ok {
		return fallback
	}
	h, err1 := strconv.Atoi(strings.TrimSpace(hh))
	m, err2 := strconv.Atoi(strings.TrimSpace(mm))
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return fallback
	}
	return h*60 + m
}

// EffectiveInterval resolves a term's polling interval, applying the default
// and the sleep-window floor.
func EffectiveInterval(term watchlist.Term, cfg settings.Settings, sleepActive bool) time.Duration {
	minutes := term.IntervalMinutes
	if minutes <= 0 {
		minutes = cfg.DefaultIntervalMinutes
	}

	interval := time.Duration(minutes) * time.Minute
	if sleepActive && interval < sleepFloor {
		interval = sleepFloor
	}
	return interval
}

// Due reports whether a term should run now: never ran before, or its
// effective interval has elapsed since the last successful run.
func Due(term watchlist.Term, cfg settings.Settings, sleepActive bool, now time.Time) bool {
	if term.LastRunAt == nil {
		return true
	}
	return now.Sub(*term.LastRunAt) >= EffectiveInterval(term, cfg, sleepActive)
}
