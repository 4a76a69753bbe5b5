package domain

// Candidate is one proposed wager: a side of a priced quote paired with the
// model's win-probability estimate and the two edge measures. It is a pure
// projection of (game, quote, estimate) — built once, never mutated, only
// filtered and ranked.
type Candidate struct {
	Game   Game
	Market MarketType
	Side   Side
	Book   string
	Odds   Price
	Line   Price // spread bets only; side-specific sign convention
	PModel float64

	// EdgeEV is model probability minus the break-even probability implied
	// by the priced, vig-inclusive odds on this side.
	EdgeEV float64
	// EdgeFair is model probability minus the vig-free fair probability.
	EdgeFair float64
}

// NewCandidate builds the candidate for one side of a quote. It returns
// false when the model estimate is missing, the quote is not fully
// two-sided, or the de-vig is degenerate — the caller drops the row rather
// than defaulting an edge to zero.
func NewCandidate(g Game, q Quote, side Side, pModel Price) (Candidate, bool) {
	if !pModel.OK || !q.TwoSided() {
		return Candidate{}, false
	}
	pair := Devig(q.OddsHome, q.OddsAway)
	breakeven := pair.Implied(side)
	fair := pair.Fair(side)
	if !breakeven.OK || !fair.OK {
		return Candidate{}, false
	}
	return Candidate{
		Game:     g,
		Market:   q.Market,
		Side:     side,
		Book:     q.Book,
		Odds:     q.Odds(side),
		Line:     q.Line(side),
		PModel:   pModel.V,
		EdgeEV:   pModel.V - breakeven.V,
		EdgeFair: pModel.V - fair.V,
	}, true
}

// Pick is a candidate promoted by the selector, augmented with an ID and a
// dollar stake.
type Pick struct {
	ID    string
	Candidate
	Stake float64
}

// BetResult classifies a settled bet.
type BetResult string

const (
	ResultWin  BetResult = "win"
	ResultLoss BetResult = "loss"
	ResultPush BetResult = "push"
)

// SettledBet is a pick resolved against the realized game outcome.
// Immutable once computed.
type SettledBet struct {
	Pick
	Result BetResult
	Payout float64 // signed: stake*multiple on a win, -stake on a loss, 0 on a push
}

// Snapshot is one point of the bankroll trajectory: the bankroll after all
// of the week's bets settled.
type Snapshot struct {
	Season   int
	Week     int
	Bankroll float64
}

// DropCounters aggregates rows silently excluded during a run. Missing data
// degrades coverage, it never aborts the simulation — these counters are how
// the degradation stays visible.
type DropCounters struct {
	MissingQuote    int // no two-sided quote for the game/market
	MissingEstimate int // estimator returned no probability for the row
	MissingOutcome  int // pick could not settle, game outcome absent
	SkippedWeeks    int // weeks below the minimum training-row count
}

// RunResult is everything a completed (or cleanly cancelled) walk-forward
// run produces: the bankroll trajectory, the full bet ledger and the
// aggregate drop counters, plus the run parameters reporting needs.
type RunResult struct {
	StartingBankroll float64
	SelectionPolicy  string
	StakingMode      string
	Trajectory       []Snapshot
	Ledger           []SettledBet
	Dropped          DropCounters
}

// FinalBankroll returns the last trajectory point, or the starting bankroll
// when no week was evaluated.
func (r RunResult) FinalBankroll() float64 {
	if len(r.Trajectory) == 0 {
		return r.StartingBankroll
	}
	return r.Trajectory[len(r.Trajectory)-1].Bankroll
}

// Record returns the win/loss/push counts of the ledger.
func (r RunResult) Record() (wins, losses, pushes int) {
	for _, b := range r.Ledger {
		switch b.Result {
		case ResultWin:
			wins++
		case ResultLoss:
			losses++
		case ResultPush:
			pushes++
		}
	}
	return
}

// TotalStaked sums the stakes across the ledger.
func (r RunResult) TotalStaked() float64 {
	var total float64
	for _, b := range r.Ledger {
		total += b.Stake
	}
	return total
}
