package engine

import (
	"fmt"
	"log/slog"
)

// Season is the world's current season.
type Season uint8

const (
	SeasonSpring Season = iota
	SeasonSummer
	SeasonFall
	SeasonWinter
)

// String returns a human-readable season name.
func (s Season) String() string {
	switch s {
	case SeasonSpring:
		return "Spring"
	case SeasonSummer:
		return "Summer"
	case SeasonFall:
		return "Fall"
	case SeasonWinter:
		return "Winter"
	default:
		return "Unknown"
	}
}

// Next returns the season that follows s.
func (s Season) Next() Season {
	return (s + 1) % 4
}

// ParseSeason is the inverse of Season.String.
func ParseSeason(name string) (Season, bool) {
	for s := SeasonSpring; s <= SeasonWinter; s++ {
		if s.String() == name {
			return s, true
		}
	}
	return SeasonSpring, false
}

// AdvanceSeason moves the world into the next season.
func (w *World) AdvanceSeason(tick uint64) Season {
	w.mu.Lock()
	w.lastTick = tick
	w.season = w.season.Next()
	s := w.season
	e := w.appendLocked(Event{Description: fmt.Sprintf("%s begins", s), Category: CategorySeason})
	w.unlockAndPublish(e)

	slog.Info("season change", "tick", tick, "season", s)
	return s
}
