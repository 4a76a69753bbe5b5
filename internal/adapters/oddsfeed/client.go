// Package oddsfeed fetches current per-book lines for an upcoming week
// from the odds API used by score mode.
package oddsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/kcdavs/linebacker/internal/domain"
)

const (
	// The upstream odds endpoint is scraped content behind a CDN; stay
	// well under its tolerance.
	requestsPerSec = 2

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Client is the odds API client with rate limiting and retries. It
// satisfies ports.QuoteFeed.
type Client struct {
	http    *http.Client
	base    string
	limiter *rate.Limiter
}

func NewClient(base string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 15 * time.Second},
		base:    base,
		limiter: rate.NewLimiter(requestsPerSec, 2),
	}
}

// Wire types of the odds endpoint. Odds and lines are pointers so a
// one-sided quote decodes as missing rather than zero.
type oddsResponse struct {
	Games []oddsGame `json:"games"`
}

type oddsGame struct {
	HomeTeam string     `json:"home_team"`
	AwayTeam string     `json:"away_team"`
	Kickoff  string     `json:"kickoff"`
	Lines    []oddsLine `json:"lines"`
}

type oddsLine struct {
	Book     string   `json:"book"`
	Market   string   `json:"market"`
	OddsHome *float64 `json:"odds_home"`
	OddsAway *float64 `json:"odds_away"`
	LineHome *float64 `json:"line_home"`
	LineAway *float64 `json:"line_away"`
}

// CurrentQuotes fetches the given week's board and returns one unplayed
// GameRecord per game with its two-sided book quotes.
func (c *Client) CurrentQuotes(ctx context.Context, season, week int) ([]domain.GameRecord, error) {
	url := fmt.Sprintf("%s/nfl/odds?season=%d&week=%d", c.base, season, week)
	var resp oddsResponse
	if err := c.get(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("oddsfeed: week %d-%d: %w", season, week, err)
	}

	records := make([]domain.GameRecord, 0, len(resp.Games))
	oneSided := 0
	for _, g := range resp.Games {
		rec := domain.GameRecord{Game: domain.Game{
			Season: season, Week: week,
			HomeTeam: g.HomeTeam, AwayTeam: g.AwayTeam,
		}}
		if t, err := time.Parse(time.RFC3339, g.Kickoff); err == nil {
			rec.Game.Kickoff = t
		}
		for _, l := range g.Lines {
			q := domain.Quote{
				Book:     l.Book,
				Market:   domain.MarketType(l.Market),
				OddsHome: price(l.OddsHome),
				OddsAway: price(l.OddsAway),
				LineHome: price(l.LineHome),
				LineAway: price(l.LineAway),
			}
			if !q.TwoSided() {
				oneSided++
				continue
			}
			rec.Quotes = append(rec.Quotes, q)
		}
		// the board carries book lines only; estimators that key off the
		// consensus line need it here just like historical records have it
		for _, market := range []domain.MarketType{domain.MarketSpread, domain.MarketMoneyline} {
			if _, ok := rec.Quote(market, domain.ConsensusBook); ok {
				continue
			}
			if c := domain.Consensus(rec.BookQuotes(market)); c.TwoSided() {
				rec.Quotes = append(rec.Quotes, c)
			}
		}
		records = append(records, rec)
	}
	if oneSided > 0 {
		slog.Warn("one-sided lines dropped from board", "count", oneSided)
	}
	return records, nil
}

func price(v *float64) domain.Price {
	if v == nil {
		return domain.Price{}
	}
	return domain.Priced(*v)
}

// get does a GET with rate limiting, exponential backoff and JSON decode.
func (c *Client) get(ctx context.Context, url string, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("status %d after %d retries", resp.StatusCode, maxRetries)
			}
			slog.Warn("odds API retry", "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
