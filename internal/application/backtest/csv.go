package backtest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/davidrc/gapscalp/internal/domain"
)

var ledgerHeader = []string{
	"symbol", "entry_time", "exit_time", "direction", "strike", "size",
	"entry_premium", "exit_premium", "pnl", "pnl_pct", "exit_reason",
}

// WriteLedger writes the trade ledger CSV into dir and returns the full
// path. With zero trades it writes nothing and returns ""; the caller
// prints the notice.
func WriteLedger(dir string, trades []domain.Trade) (string, error) {
	if len(trades) == 0 {
		return "", nil
	}

	path := filepath.Join(dir, LedgerFilename(time.Now()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("backtest.WriteLedger: create %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(ledgerHeader); err != nil {
		return "", fmt.Errorf("backtest.WriteLedger: header: %w", err)
	}
	for _, t := range trades {
		row := []string{
			t.Symbol,
			t.EntryTime.Format(time.RFC3339),
			t.ExitTime.Format(time.RFC3339),
			string(t.Direction),
			strconv.FormatFloat(t.Strike, 'f', 2, 64),
			strconv.Itoa(t.Size),
			strconv.FormatFloat(t.EntryPremium, 'f', 4, 64),
			strconv.FormatFloat(t.ExitPremium, 'f', 4, 64),
			strconv.FormatFloat(t.PnL, 'f', 2, 64),
			strconv.FormatFloat(t.PnLPct, 'f', 2, 64),
			t.Reason,
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("backtest.WriteLedger: row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("backtest.WriteLedger: flush: %w", err)
	}
	return path, nil
}
