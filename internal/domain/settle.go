package domain

import "math"

// pushTolerance absorbs float noise in spread lines (.5 lines never push;
// whole lines must push exactly).
const pushTolerance = 1e-9

// BetValue is the bettor-relevant margin of a bet given the realized game
// margin (home score minus away score). Positive wins, negative loses, zero
// pushes. For spreads the side's own line is added, the away line already
// carrying the flipped sign convention.
func BetValue(market MarketType, side Side, line Price, margin int) float64 {
	m := float64(margin)
	if side == SideAway {
		m = -m
	}
	if market == MarketSpread {
		return m + line.Or(0)
	}
	return m
}

// Settle resolves a staked pick against the game's realized margin. Pure and
// total: it consults nothing beyond the single game being settled.
func Settle(p Pick, margin int) SettledBet {
	value := BetValue(p.Market, p.Side, p.Line, margin)
	switch {
	case math.Abs(value) <= pushTolerance:
		return SettledBet{Pick: p, Result: ResultPush, Payout: 0}
	case value > 0:
		return SettledBet{Pick: p, Result: ResultWin, Payout: p.Stake * ProfitMultiple(p.Odds).Or(0)}
	default:
		return SettledBet{Pick: p, Result: ResultLoss, Payout: -p.Stake}
	}
}
