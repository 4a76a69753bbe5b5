package domain

// MarketType identifies which market a quote or bet belongs to.
type MarketType string

const (
	MarketSpread    MarketType = "spread"
	MarketMoneyline MarketType = "moneyline"
)

// Side identifies which team a price or bet is on.
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

// ConsensusBook is the synthetic book ID for the mean-across-books quote.
// Backtests collapse the book dimension to this one quote per game/market.
const ConsensusBook = "consensus"

// Quote is a priced market observation for one game, one book, one market,
// both sides. A quote is usable only when fully two-sided; partial quotes
// are dropped at ingestion, never patched.
type Quote struct {
	Book     string
	Market   MarketType
	OddsHome Price
	OddsAway Price
	LineHome Price // spread point line, home convention (e.g. -2.5)
	LineAway Price // away-side line, already sign-flipped (e.g. +2.5)
}

// TwoSided reports whether the quote prices both sides (and, for spreads,
// carries both point lines).
func (q Quote) TwoSided() bool {
	if !q.OddsHome.OK || !q.OddsAway.OK {
		return false
	}
	if q.Market == MarketSpread {
		return q.LineHome.OK && q.LineAway.OK
	}
	return true
}

// Odds returns the priced American odds for the given side.
func (q Quote) Odds(side Side) Price {
	if side == SideAway {
		return q.OddsAway
	}
	return q.OddsHome
}

// Line returns the point line for the given side (spreads only).
func (q Quote) Line(side Side) Price {
	if side == SideAway {
		return q.LineAway
	}
	return q.LineHome
}

// Consensus builds the mean-across-books quote for one market. Only fully
// two-sided book quotes participate; an empty input (or no two-sided quote)
// yields a quote that is itself not two-sided.
func Consensus(quotes []Quote) Quote {
	out := Quote{Book: ConsensusBook}
	var oddsHome, oddsAway, lineHome, lineAway float64
	n := 0
	for _, q := range quotes {
		if !q.TwoSided() {
			continue
		}
		if n == 0 {
			out.Market = q.Market
		}
		oddsHome += q.OddsHome.V
		oddsAway += q.OddsAway.V
		lineHome += q.LineHome.Or(0)
		lineAway += q.LineAway.Or(0)
		n++
	}
	if n == 0 {
		return out
	}
	out.OddsHome = Priced(oddsHome / float64(n))
	out.OddsAway = Priced(oddsAway / float64(n))
	if out.Market == MarketSpread {
		out.LineHome = Priced(lineHome / float64(n))
		out.LineAway = Priced(lineAway / float64(n))
	}
	return out
}

// GameRecord is one row of the walk-forward history: a game plus every quote
// observed for it. It is the unit the estimator trains and predicts on.
type GameRecord struct {
	Game   Game
	Quotes []Quote
}

// Quote returns the record's quote for the given market and book.
func (r GameRecord) Quote(market MarketType, book string) (Quote, bool) {
	for _, q := range r.Quotes {
		if q.Market == market && q.Book == book {
			return q, true
		}
	}
	return Quote{}, false
}

// BookQuotes returns every non-consensus quote for the given market, in
// record order.
func (r GameRecord) BookQuotes(market MarketType) []Quote {
	var out []Quote
	for _, q := range r.Quotes {
		if q.Market == market && q.Book != ConsensusBook {
			out = append(out, q)
		}
	}
	return out
}
