package ports

import (
	"context"
	"time"

	"github.com/davidrc/gapscalp/internal/domain"
)

// Storage persists backtest runs, trade ledgers and live/paper signals.
type Storage interface {
	// SaveBacktest persists the run summary and its trades atomically.
	SaveBacktest(ctx context.Context, runID, mode string, report domain.BacktestReport) error

	// SaveSignal records one emitted signal (paper/live modes).
	SaveSignal(ctx context.Context, sig domain.Signal) error

	// GetTrades returns trades whose exit time falls in the range.
	GetTrades(ctx context.Context, from, to time.Time) ([]domain.Trade, error)

	// Close closes the underlying database cleanly.
	Close() error
}
