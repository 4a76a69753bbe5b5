// Package notify renders runs and picks for a terminal.
package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/kcdavs/linebacker/internal/domain"
)

// Console implements ports.Reporter.
type Console struct {
	out     io.Writer
	table   bool
	maxBets int
}

// NewConsole creates a reporter writing to stdout. With table off it prints
// a compact one-liner per run, suitable for scripting sweeps.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table, maxBets: 25}
}

// NewConsoleWriter creates a reporter for tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table, maxBets: 25}
}

// Report prints the run summary and, in table mode, the bankroll
// trajectory and the largest bets of the ledger.
func (c *Console) Report(_ context.Context, res domain.RunResult) error {
	if c.table {
		c.printFull(res)
	} else {
		c.printCompact(res)
	}
	return nil
}

// printCompact prints the whole run on one line.
func (c *Console) printCompact(res domain.RunResult) {
	wins, losses, pushes := res.Record()
	fmt.Fprintf(c.out, "[%s] %s/%s | %d-%d-%d | staked $%.2f | $%.2f → $%.2f | roi %+.2f%%\n",
		time.Now().Format("15:04:05"),
		res.SelectionPolicy, res.StakingMode,
		wins, losses, pushes,
		res.TotalStaked(),
		res.StartingBankroll, res.FinalBankroll(),
		roi(res))
}

func (c *Console) printFull(res domain.RunResult) {
	wins, losses, pushes := res.Record()
	net := res.FinalBankroll() - res.StartingBankroll

	fmt.Fprintf(c.out, "\n=== RUN — %s selection, %s staking ===\n",
		res.SelectionPolicy, res.StakingMode)
	fmt.Fprintf(c.out, "  Record:    %d-%d-%d over %d weeks\n",
		wins, losses, pushes, len(res.Trajectory))
	fmt.Fprintf(c.out, "  Staked:    $%.2f across %d bets\n", res.TotalStaked(), len(res.Ledger))
	fmt.Fprintf(c.out, "  Bankroll:  $%.2f → $%.2f (net %+.2f)\n",
		res.StartingBankroll, res.FinalBankroll(), net)
	fmt.Fprintf(c.out, "  ROI:       %+.2f%% of total staked\n", roi(res))

	d := res.Dropped
	if d.MissingQuote+d.MissingEstimate+d.MissingOutcome+d.SkippedWeeks > 0 {
		fmt.Fprintf(c.out, "  Dropped:   quote:%d estimate:%d outcome:%d skipped-weeks:%d\n",
			d.MissingQuote, d.MissingEstimate, d.MissingOutcome, d.SkippedWeeks)
	}

	c.printTrajectory(res.Trajectory)
	c.printLedger(res.Ledger)
}

func (c *Console) printTrajectory(trajectory []domain.Snapshot) {
	if len(trajectory) == 0 {
		return
	}
	fmt.Fprintf(c.out, "\n  Bankroll by week:\n")
	table := tablewriter.NewWriter(c.out)
	table.Header("Season", "Week", "Bankroll")
	for _, snap := range trajectory {
		table.Append(
			fmt.Sprintf("%d", snap.Season),
			fmt.Sprintf("%d", snap.Week),
			fmt.Sprintf("$%.2f", snap.Bankroll),
		)
	}
	table.Render()
}

func (c *Console) printLedger(ledger []domain.SettledBet) {
	if len(ledger) == 0 {
		return
	}
	shown := ledger
	if len(shown) > c.maxBets {
		fmt.Fprintf(c.out, "\n  Ledger (first %d of %d bets):\n", c.maxBets, len(ledger))
		shown = shown[:c.maxBets]
	} else {
		fmt.Fprintf(c.out, "\n  Ledger:\n")
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Week", "Game", "Bet", "Odds", "Edge", "Stake", "Result", "Payout")
	for _, bet := range shown {
		table.Append(
			fmt.Sprintf("%d-%02d", bet.Game.Season, bet.Game.Week),
			fmt.Sprintf("%s @ %s", bet.Game.AwayTeam, bet.Game.HomeTeam),
			betLabel(bet.Candidate),
			oddsLabel(bet.Odds),
			fmt.Sprintf("%+.3f", bet.EdgeFair),
			fmt.Sprintf("$%.2f", bet.Stake),
			strings.ToUpper(string(bet.Result)),
			fmt.Sprintf("%+.2f", bet.Payout),
		)
	}
	table.Render()
}

// ReportPicks prints unsettled picks for the upcoming week, best edge first.
func (c *Console) ReportPicks(_ context.Context, picks []domain.Pick) error {
	if len(picks) == 0 {
		fmt.Fprintf(c.out, "[%s] no picks clear the edge gates\n", time.Now().Format("15:04:05"))
		return nil
	}

	fmt.Fprintf(c.out, "\n=== PICKS — %d bets ===\n", len(picks))
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Game", "Bet", "Book", "Odds", "P(win)", "EdgeEV", "EdgeFair", "Stake")
	for i, p := range picks {
		table.Append(
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%s @ %s", p.Game.AwayTeam, p.Game.HomeTeam),
			betLabel(p.Candidate),
			p.Book,
			oddsLabel(p.Odds),
			fmt.Sprintf("%.3f", p.PModel),
			fmt.Sprintf("%+.3f", p.EdgeEV),
			fmt.Sprintf("%+.3f", p.EdgeFair),
			fmt.Sprintf("$%.2f", p.Stake),
		)
	}
	table.Render()
	return nil
}

// --- helpers ---

func betLabel(c domain.Candidate) string {
	team := c.Game.HomeTeam
	if c.Side == domain.SideAway {
		team = c.Game.AwayTeam
	}
	if c.Market == domain.MarketSpread && c.Line.OK {
		return fmt.Sprintf("%s %+.1f", team, c.Line.V)
	}
	return fmt.Sprintf("%s ML", team)
}

func oddsLabel(odds domain.Price) string {
	if !odds.OK {
		return "-"
	}
	return fmt.Sprintf("%+.0f", odds.V)
}

func roi(res domain.RunResult) float64 {
	staked := res.TotalStaked()
	if staked <= 0 {
		return 0
	}
	return (res.FinalBankroll() - res.StartingBankroll) / staked * 100
}
