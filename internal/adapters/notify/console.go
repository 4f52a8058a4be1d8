package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/davidrc/gapscalp/internal/domain"
	"github.com/olekukonko/tablewriter"
)

const maxTableRows = 50

// Console implements ports.Notifier with a formatted summary and an
// optional per-trade table.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole creates a notifier writing to stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter creates a notifier for tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify prints the run summary. A zero-trade run reports explicitly
// instead of rendering empty statistics.
func (c *Console) Notify(_ context.Context, report domain.BacktestReport) error {
	rule := strings.Repeat("=", 60)

	fmt.Fprintf(c.out, "\n%s\n", rule)
	fmt.Fprintln(c.out, "BACKTEST RESULTS")
	fmt.Fprintln(c.out, rule)
	fmt.Fprintf(c.out, "Period: %s to %s\n",
		report.Start.Format("2006-01-02"), report.End.Format("2006-01-02"))
	fmt.Fprintf(c.out, "Symbols: %s\n", strings.Join(report.Symbols, ", "))

	if report.TotalTrades == 0 {
		fmt.Fprintln(c.out, "No trades executed")
		fmt.Fprintln(c.out, rule)
		return nil
	}

	fmt.Fprintf(c.out, "Total Trades: %d\n", report.TotalTrades)
	fmt.Fprintf(c.out, "Winning Trades: %d\n", report.WinningTrades)
	fmt.Fprintf(c.out, "Losing Trades: %d\n", report.LosingTrades)
	fmt.Fprintf(c.out, "Win Rate: %.1f%%\n", report.WinRate)
	fmt.Fprintf(c.out, "Average Win: $%.2f\n", report.AvgWin)
	fmt.Fprintf(c.out, "Average Loss: $%.2f\n", report.AvgLoss)
	fmt.Fprintf(c.out, "Total PnL: $%.2f\n", report.TotalPnL)
	fmt.Fprintf(c.out, "Final Capital: $%.2f\n", report.FinalCapital)
	fmt.Fprintf(c.out, "Total Return: %.2f%%\n", report.TotalReturnPct)
	if report.OpenPositions > 0 {
		fmt.Fprintf(c.out, "Open Positions at End: %d\n", report.OpenPositions)
	}
	fmt.Fprintln(c.out, rule)

	if c.table {
		c.printTrades(report.Trades)
	}
	return nil
}

// printTrades renders the ledger, capped so a long run stays readable.
func (c *Console) printTrades(trades []domain.Trade) {
	shown := trades
	if len(shown) > maxTableRows {
		shown = shown[:maxTableRows]
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Symbol", "Type", "Strike", "Size", "Entry", "Exit", "PnL", "PnL%", "Reason", "Exit Date")

	for i, t := range shown {
		table.Append(
			fmt.Sprintf("%d", i+1),
			t.Symbol,
			strings.ToUpper(string(t.Direction)),
			fmt.Sprintf("%.2f", t.Strike),
			fmt.Sprintf("%d", t.Size),
			fmt.Sprintf("$%.2f", t.EntryPremium),
			fmt.Sprintf("$%.2f", t.ExitPremium),
			fmt.Sprintf("$%.2f", t.PnL),
			fmt.Sprintf("%+.1f%%", t.PnLPct),
			t.Reason,
			t.ExitTime.Format("2006-01-02"),
		)
	}
	table.Render()

	if len(trades) > maxTableRows {
		fmt.Fprintf(c.out, "... and %d more trades (see CSV ledger)\n", len(trades)-maxTableRows)
	}
}

// PrintSignal prints one live/paper signal as a single line.
func (c *Console) PrintSignal(sig domain.Signal) {
	fmt.Fprintf(c.out, "[%s] %s %s %dx %s %.2f (%s, conf %.2f)\n",
		time.Now().Format("15:04:05"), sig.Action, sig.Symbol, sig.Size,
		strings.ToUpper(string(sig.OptionType)), sig.Strike, sig.Reason, sig.Confidence)
}
