// Package feed loads the walk-forward history from CSV exports: a game
// table and a long-format quote table (one row per game/book/market),
// joined on the season_week_AWAY_HOME key the upstream ingestion uses.
package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kcdavs/linebacker/internal/domain"
)

// teamAbbrev maps the odds sources' city names onto the game table's
// abbreviations. Already-abbreviated names pass through untouched.
var teamAbbrev = map[string]string{
	"Arizona": "ARI", "Atlanta": "ATL", "Baltimore": "BAL", "Buffalo": "BUF",
	"Carolina": "CAR", "Chicago": "CHI", "Cincinnati": "CIN", "Cleveland": "CLE",
	"Dallas": "DAL", "Denver": "DEN", "Detroit": "DET", "Green Bay": "GB",
	"Houston": "HOU", "Indianapolis": "IND", "Jacksonville": "JAX",
	"Kansas City": "KC", "Las Vegas": "LV", "L.A. Chargers": "LAC",
	"L.A. Rams": "LAR", "Miami": "MIA", "Minnesota": "MIN", "New England": "NE",
	"New Orleans": "NO", "N.Y. Giants": "NYG", "N.Y. Jets": "NYJ",
	"Philadelphia": "PHI", "Pittsburgh": "PIT", "San Francisco": "SF",
	"Seattle": "SEA", "Tampa Bay": "TB", "Tennessee": "TEN",
	"Washington": "WAS", "Oakland": "OAK", "St. Louis": "STL",
}

func normalizeTeam(name string) string {
	name = strings.TrimSpace(name)
	if abbr, ok := teamAbbrev[name]; ok {
		return abbr
	}
	return name
}

// remapWeek converts the odds sources' named playoff weeks to the numeric
// scheme of the game table. The expanded 17-game schedule shifted the
// playoffs one week from the 2021 season on.
func remapWeek(season int, raw string) (int, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "wild card":
		if season < 2021 {
			return 18, true
		}
		return 19, true
	case "divisional":
		if season < 2021 {
			return 19, true
		}
		return 20, true
	case "conference":
		if season < 2021 {
			return 20, true
		}
		return 21, true
	case "super bowl":
		if season < 2021 {
			return 21, true
		}
		return 22, true
	}
	week, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || week < 1 {
		return 0, false
	}
	return week, true
}

// Load reads both tables and returns the joined history, one GameRecord
// per game with its book quotes plus a computed consensus quote per
// market. Quote rows that match no game are dropped, as are quotes that
// do not price both sides.
func Load(gamesPath, quotesPath string) ([]domain.GameRecord, error) {
	games, err := loadGames(gamesPath)
	if err != nil {
		return nil, err
	}
	quotes, err := loadQuotes(quotesPath)
	if err != nil {
		return nil, err
	}
	return join(games, quotes), nil
}

func join(games []domain.Game, quotes map[string][]domain.Quote) []domain.GameRecord {
	history := make([]domain.GameRecord, 0, len(games))
	matched := 0
	for _, g := range games {
		rec := domain.GameRecord{Game: g, Quotes: quotes[g.ID()]}
		if len(rec.Quotes) > 0 {
			matched++
		}
		for _, market := range []domain.MarketType{domain.MarketSpread, domain.MarketMoneyline} {
			if _, ok := rec.Quote(market, domain.ConsensusBook); ok {
				continue
			}
			if c := domain.Consensus(rec.BookQuotes(market)); c.TwoSided() {
				rec.Quotes = append(rec.Quotes, c)
			}
		}
		history = append(history, rec)
	}
	slog.Info("history loaded",
		"games", len(games), "games_with_quotes", matched)
	return history
}

type header map[string]int

func (h header) get(rec []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func readHeader(r *csv.Reader, required ...string) (header, error) {
	row, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	h := make(header, len(row))
	for i, col := range row {
		h[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range required {
		if _, ok := h[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}
	return h, nil
}

// loadGames parses the game table. Expected columns: season, week,
// home_team, away_team, home_score, away_score and optionally kickoff.
// Score cells are empty for games not yet played.
func loadGames(path string) ([]domain.Game, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("feed: open games: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	h, err := readHeader(r, "season", "week", "home_team", "away_team")
	if err != nil {
		return nil, fmt.Errorf("feed: games %s: %w", path, err)
	}

	var games []domain.Game
	skipped := 0
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("feed: games %s line %d: %w", path, line, err)
		}

		season, err := strconv.Atoi(h.get(rec, "season"))
		if err != nil {
			skipped++
			continue
		}
		week, ok := remapWeek(season, h.get(rec, "week"))
		if !ok {
			skipped++
			continue
		}

		g := domain.Game{
			Season:   season,
			Week:     week,
			HomeTeam: normalizeTeam(h.get(rec, "home_team")),
			AwayTeam: normalizeTeam(h.get(rec, "away_team")),
		}
		if g.HomeTeam == "" || g.AwayTeam == "" {
			skipped++
			continue
		}
		if ts := h.get(rec, "kickoff"); ts != "" {
			if t, err := time.Parse(time.RFC3339, ts); err == nil {
				g.Kickoff = t
			} else if t, err := time.Parse("2006-01-02", ts); err == nil {
				g.Kickoff = t
			}
		}
		hs, errH := strconv.Atoi(h.get(rec, "home_score"))
		as, errA := strconv.Atoi(h.get(rec, "away_score"))
		if errH == nil && errA == nil {
			g.HomeScore, g.AwayScore, g.Played = hs, as, true
		}
		games = append(games, g)
	}
	if skipped > 0 {
		slog.Warn("unparseable game rows skipped", "file", path, "rows", skipped)
	}
	return games, nil
}

// loadQuotes parses the long-format quote table, keyed by join key.
// Expected columns: season, week, home_team, away_team, book, market,
// odds_home, odds_away and, for spreads, line_home, line_away. Empty
// cells are missing values; one-sided quotes are dropped here.
func loadQuotes(path string) (map[string][]domain.Quote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("feed: open quotes: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	h, err := readHeader(r, "season", "week", "home_team", "away_team", "book", "market")
	if err != nil {
		return nil, fmt.Errorf("feed: quotes %s: %w", path, err)
	}

	quotes := make(map[string][]domain.Quote)
	skipped, oneSided := 0, 0
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("feed: quotes %s line %d: %w", path, line, err)
		}

		season, err := strconv.Atoi(h.get(rec, "season"))
		if err != nil {
			skipped++
			continue
		}
		week, ok := remapWeek(season, h.get(rec, "week"))
		if !ok {
			skipped++
			continue
		}
		market := domain.MarketType(strings.ToLower(h.get(rec, "market")))
		if market != domain.MarketSpread && market != domain.MarketMoneyline {
			skipped++
			continue
		}

		q := domain.Quote{
			Book:     strings.ToLower(h.get(rec, "book")),
			Market:   market,
			OddsHome: parsePrice(h.get(rec, "odds_home")),
			OddsAway: parsePrice(h.get(rec, "odds_away")),
			LineHome: parsePrice(h.get(rec, "line_home")),
			LineAway: parsePrice(h.get(rec, "line_away")),
		}
		if !q.TwoSided() {
			oneSided++
			continue
		}

		key := (domain.Game{
			Season: season, Week: week,
			HomeTeam: normalizeTeam(h.get(rec, "home_team")),
			AwayTeam: normalizeTeam(h.get(rec, "away_team")),
		}).ID()
		quotes[key] = append(quotes[key], q)
	}
	if skipped > 0 || oneSided > 0 {
		slog.Warn("quote rows dropped", "file", path,
			"unparseable", skipped, "one_sided", oneSided)
	}
	return quotes, nil
}

func parsePrice(cell string) domain.Price {
	if cell == "" {
		return domain.Price{}
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return domain.Price{}
	}
	return domain.Priced(v)
}
