package domain

import (
	"fmt"
	"time"
)

// WeekKey is the chronological key of the walk-forward loop. Ordering is
// season first, week second; all training-partition comparisons go through
// Before so the cutoff rule lives in exactly one place.
type WeekKey struct {
	Season int
	Week   int
}

// Before reports whether k is strictly earlier than other.
func (k WeekKey) Before(other WeekKey) bool {
	if k.Season != other.Season {
		return k.Season < other.Season
	}
	return k.Week < other.Week
}

func (k WeekKey) String() string {
	return fmt.Sprintf("%d wk%02d", k.Season, k.Week)
}

// Game is one real-world contest with its realized outcome. Rows are
// appended by ingestion and read-only to the engine.
type Game struct {
	Season    int
	Week      int
	HomeTeam  string
	AwayTeam  string
	Kickoff   time.Time
	HomeScore int
	AwayScore int
	Played    bool
}

// Key returns the game's chronological key.
func (g Game) Key() WeekKey {
	return WeekKey{Season: g.Season, Week: g.Week}
}

// Margin is the realized signed margin, home score minus away score.
func (g Game) Margin() int {
	return g.HomeScore - g.AwayScore
}

// ID is the canonical join key, SSSS_WW_AWAY_HOME, matching the key the
// ingestion pipeline stamps on both the game and quote tables.
func (g Game) ID() string {
	return fmt.Sprintf("%04d_%02d_%s_%s", g.Season, g.Week, g.AwayTeam, g.HomeTeam)
}
