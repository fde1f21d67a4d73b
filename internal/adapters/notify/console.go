package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/tradecore/internal/domain"
)

// Console implementa ports.Notifier.
type Console struct {
	out     io.Writer
	verbose bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(verbose bool) *Console {
	return &Console{out: os.Stdout, verbose: verbose}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, verbose bool) *Console {
	return &Console{out: w, verbose: verbose}
}

// Notify imprime una tabla con las decisiones y, en verbose, el detalle de cada una.
func (c *Console) Notify(_ context.Context, decisions []domain.Decision) error {
	if len(decisions) == 0 {
		fmt.Fprintf(c.out, "[%s] no decisions\n", time.Now().Format("15:04:05"))
		return nil
	}

	routed, failed := countOutcomes(decisions)
	fmt.Fprintf(c.out, "\n[%s] %d decisions: %d routed, %d failed\n",
		time.Now().Format("15:04:05"), len(decisions), routed, failed)

	c.printTable(decisions)

	if c.verbose {
		for i, d := range decisions {
			c.printDetail(i+1, d)
		}
	}
	return nil
}

func (c *Console) printTable(decisions []domain.Decision) {
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Market", "Side", "Kelly", "Size", "Venue(s)", "Net", "Fees", "Slip%", "Result")

	for i, d := range decisions {
		r := d.Routing
		venues := "-"
		if d.OK() {
			venues = platformsLabel(r.Platforms())
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			truncate(d.Intent.MarketID, 28),
			string(d.Intent.Side),
			fmt.Sprintf("%.4f", d.Sizing.KellyFraction),
			fmt.Sprintf("%.2f", d.Sizing.PositionSize),
			venues,
			priceLabel(d),
			feesLabel(d),
			slippageLabel(d),
			resultLabel(d),
		)
	}
	table.Render()
}

// printDetail imprime el razonamiento completo de una decisión.
func (c *Console) printDetail(n int, d domain.Decision) {
	r := d.Routing
	fmt.Fprintf(c.out, "\n--- #%d: %s %s  [%s] ---\n", n, d.Intent.Side, d.Intent.MarketID, resultLabel(d))
	if d.ID != "" {
		fmt.Fprintf(c.out, "  id: %s\n", d.ID)
	}

	fmt.Fprintf(c.out, "\n  1. SIZING:\n")
	fmt.Fprintf(c.out, "     edge=%.4f  p=%.4f  raw kelly=%.4f\n",
		d.Intent.EdgeFraction, d.Intent.WinProbability, d.Sizing.RawFraction)
	for _, a := range d.Sizing.Adjustments {
		fmt.Fprintf(c.out, "     x%.3f  %s\n", a.Multiplier, a.Reason)
	}
	fmt.Fprintf(c.out, "     >>> kelly=%.4f  size=%.2f  confidence=%.2f\n",
		d.Sizing.KellyFraction, d.Sizing.PositionSize, d.Sizing.Confidence)
	for _, w := range d.Sizing.Warnings {
		fmt.Fprintf(c.out, "     >> %s\n", w)
	}

	if len(r.AllRoutes) > 0 {
		fmt.Fprintf(c.out, "\n  2. ROUTES (%s):\n", r.Mode)
		for i, rc := range r.AllRoutes {
			maker := "taker"
			if rc.IsMaker {
				maker = "maker"
			}
			fmt.Fprintf(c.out, "     %d. %-10s px=%.4f net=%.6f fees=%.4f slip=%.2f%% depth=%.0f %dms %s\n",
				i+1, rc.Platform, rc.QuotedPrice, rc.NetPrice, rc.EstimatedFees,
				rc.SlippagePercent, rc.AvailableDepth, rc.ExecutionTimeMs, maker)
		}
	}

	if r.Split != nil {
		fmt.Fprintf(c.out, "\n  3. SPLIT:\n")
		for _, l := range r.Split.Legs {
			fmt.Fprintf(c.out, "     %-10s %.2f @ net %.6f\n", l.Platform, l.AllocatedSize, l.Candidate.NetPrice)
		}
		fmt.Fprintf(c.out, "     >>> avg net=%.6f  fees=%.4f  slip=%.2f%%\n",
			r.Split.NetPrice, r.Split.EstimatedFees, r.Split.SlippagePercent)
	}

	for _, drop := range r.Dropped {
		fmt.Fprintf(c.out, "  !! %s dropped: %s\n", drop.Platform, drop.Reason)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(c.out, "  >> %s\n", w)
	}
	if r.Recommendation != "" {
		fmt.Fprintf(c.out, "\n  RECOMMENDATION: %s\n", r.Recommendation)
	}
	if d.Err != nil {
		fmt.Fprintf(c.out, "\n  ERROR: %v\n", d.Err)
	}
}

// PrintState imprime el estado del sizing.
func (c *Console) PrintState(s domain.SizingState) {
	fmt.Fprintf(c.out, "\n=== SIZING STATE ===\n")
	fmt.Fprintf(c.out, "  Bankroll:     $%.2f (peak $%.2f)\n", s.Bankroll, s.PeakBankroll)
	fmt.Fprintf(c.out, "  Drawdown:     %.1f%%\n", s.CurrentDrawdown*100)
	fmt.Fprintf(c.out, "  Win rate:     %.1f%% over %d trades\n", s.RecentWinRate*100, len(s.Window))
	fmt.Fprintf(c.out, "  Streaks:      %d wins / %d losses\n", s.WinStreak, s.LossStreak)
	fmt.Fprintf(c.out, "  Total trades: %d\n\n", s.TotalTrades)
}

// PrintHistory imprime las decisiones leídas del journal.
func (c *Console) PrintHistory(records []domain.DecisionRecord) {
	if len(records) == 0 {
		fmt.Fprintln(c.out, "\n  No decisions in the journal for this period.")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("When", "Market", "Side", "Size", "Mode", "Venue(s)", "Net", "Result")
	for _, rec := range records {
		result := "OK"
		switch {
		case rec.Error != "":
			result = truncate(rec.Error, 40)
		case rec.Split:
			result = "SPLIT"
		}
		net := "-"
		if rec.Error == "" {
			net = fmt.Sprintf("%.6f", rec.NetPrice)
		}
		venues := platformsLabel(rec.Venues)
		if venues == "" {
			venues = "-"
		}
		table.Append(
			rec.DecidedAt.Local().Format("01-02 15:04:05"),
			truncate(rec.MarketID, 28),
			string(rec.Side),
			fmt.Sprintf("%.2f", rec.PositionSize),
			string(rec.Mode),
			venues,
			net,
			result,
		)
	}
	table.Render()
}

// --- helpers ---

func countOutcomes(decisions []domain.Decision) (routed, failed int) {
	for _, d := range decisions {
		if d.OK() {
			routed++
		} else {
			failed++
		}
	}
	return
}

func resultLabel(d domain.Decision) string {
	switch {
	case d.Err == nil && d.Routing.IsSplit():
		return "SPLIT"
	case d.Err == nil:
		return "OK"
	case errors.Is(d.Err, domain.ErrInvalidInput):
		return "INVALID"
	case errors.Is(d.Err, domain.ErrNoLiquidity):
		return "NO LIQUIDITY"
	}
	return "ERROR"
}

func priceLabel(d domain.Decision) string {
	if !d.OK() {
		return "-"
	}
	return fmt.Sprintf("%.6f", d.Routing.NetPrice())
}

func feesLabel(d domain.Decision) string {
	if !d.OK() {
		return "-"
	}
	return fmt.Sprintf("$%.4f", d.Routing.EstimatedFees())
}

func slippageLabel(d domain.Decision) string {
	r := d.Routing
	switch {
	case !d.OK():
		return "-"
	case r.Split != nil:
		return fmt.Sprintf("%.2f", r.Split.SlippagePercent)
	case r.BestRoute != nil:
		return fmt.Sprintf("%.2f", r.BestRoute.SlippagePercent)
	}
	return "-"
}

func platformsLabel(ps []domain.Platform) string {
	s := make([]string, len(ps))
	for i, p := range ps {
		s[i] = string(p)
	}
	return strings.Join(s, "+")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
