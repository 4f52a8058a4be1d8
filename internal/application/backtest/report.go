package backtest

import (
	"time"

	"github.com/davidrc/gapscalp/internal/domain"
)

// buildReport aggregates the ledger into the run summary. A run with
// zero trades produces a clean zeroed report, never NaNs.
func buildReport(cfg Config, symbols []string, finalCapital float64, trades []domain.Trade, dailies []domain.DailyPnL, open int) domain.BacktestReport {
	report := domain.BacktestReport{
		Start:          cfg.Start,
		End:            cfg.End,
		Symbols:        symbols,
		InitialCapital: cfg.InitialCapital,
		FinalCapital:   finalCapital,
		OpenPositions:  open,
		Trades:         trades,
		Dailies:        dailies,
	}

	report.TotalTrades = len(trades)
	if report.TotalTrades == 0 {
		return report
	}

	var winSum, lossSum float64
	for _, t := range trades {
		report.TotalPnL += t.PnL
		if t.PnL > 0 {
			report.WinningTrades++
			winSum += t.PnL
		} else {
			report.LosingTrades++
			lossSum += t.PnL
		}
	}

	report.WinRate = float64(report.WinningTrades) / float64(report.TotalTrades) * 100
	if report.WinningTrades > 0 {
		report.AvgWin = winSum / float64(report.WinningTrades)
	}
	if report.LosingTrades > 0 {
		report.AvgLoss = lossSum / float64(report.LosingTrades)
	}
	if cfg.InitialCapital > 0 {
		report.TotalReturnPct = (finalCapital - cfg.InitialCapital) / cfg.InitialCapital * 100
	}
	return report
}

// LedgerFilename is the timestamped name for a run's CSV trade ledger.
func LedgerFilename(now time.Time) string {
	return "backtest_trades_" + now.Format("20060102_150405") + ".csv"
}
