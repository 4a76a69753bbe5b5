package domain

import "math"

// Price is an optional float64. Quotes, model estimates and edges travel
// through the engine as Price values so an absent number can never be
// mistaken for zero — arithmetic on a missing value yields a missing value.
type Price struct {
	V  float64
	OK bool
}

// Priced wraps a known value.
func Priced(v float64) Price { return Price{V: v, OK: true} }

// Or returns the value, or def when missing.
func (p Price) Or(def float64) float64 {
	if !p.OK {
		return def
	}
	return p.V
}

// ImpliedProb converts American odds into the break-even probability of the
// priced side. -110 → 0.5238…, +150 → 0.40. Zero is not a valid price.
func ImpliedProb(odds Price) Price {
	if !odds.OK {
		return Price{}
	}
	switch {
	case odds.V > 0:
		return Priced(100 / (odds.V + 100))
	case odds.V < 0:
		return Priced(-odds.V / (-odds.V + 100))
	}
	return Price{}
}

// ProfitMultiple converts American odds into profit per unit stake,
// excluding the stake itself: a win pays stake*multiple, a loss -stake.
// +150 → 1.5, -150 → 2/3.
func ProfitMultiple(odds Price) Price {
	if !odds.OK {
		return Price{}
	}
	switch {
	case odds.V > 0:
		return Priced(odds.V / 100)
	case odds.V < 0:
		return Priced(100 / -odds.V)
	}
	return Price{}
}

// ProbPair carries the implied and vig-free probabilities derived from one
// two-sided quote. The fair pair is set only when both implied probabilities
// are finite and positive; it then sums to exactly 1.
type ProbPair struct {
	ImpliedHome Price
	ImpliedAway Price
	FairHome    Price
	FairAway    Price
}

// Devig strips the bookmaker's overround from a two-sided American quote by
// normalizing the implied probabilities to sum to 1 (multiplicative method).
// Whatever implied probabilities were computable are returned even when the
// fair pair cannot be.
func Devig(oddsHome, oddsAway Price) ProbPair {
	pair := ProbPair{
		ImpliedHome: ImpliedProb(oddsHome),
		ImpliedAway: ImpliedProb(oddsAway),
	}
	if !pair.ImpliedHome.OK || !pair.ImpliedAway.OK {
		return pair
	}
	sum := pair.ImpliedHome.V + pair.ImpliedAway.V
	if math.IsNaN(sum) || math.IsInf(sum, 0) || sum <= 0 {
		return pair
	}
	pair.FairHome = Priced(pair.ImpliedHome.V / sum)
	pair.FairAway = Priced(pair.ImpliedAway.V / sum)
	return pair
}

// Implied returns the implied probability for the given side.
func (p ProbPair) Implied(side Side) Price {
	if side == SideAway {
		return p.ImpliedAway
	}
	return p.ImpliedHome
}

// Fair returns the vig-free probability for the given side.
func (p ProbPair) Fair(side Side) Price {
	if side == SideAway {
		return p.FairAway
	}
	return p.FairHome
}

// KellyFraction returns the growth-optimal fraction of bankroll for a bet
// with win probability pWin at the given odds, clamped to [0, 1]: the engine
// never shorts the side it evaluated and never stakes more than the full
// bankroll. Degenerate odds (missing or multiple <= 0) return 0.
func KellyFraction(pWin float64, odds Price) float64 {
	b := ProfitMultiple(odds)
	if !b.OK || b.V <= 0 {
		return 0
	}
	f := (b.V*pWin - (1 - pWin)) / b.V
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
