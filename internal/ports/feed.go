package ports

import (
	"context"
	"time"

	"github.com/davidrc/gapscalp/internal/domain"
)

// OptionsFeed supplies chain and underlying data. Any call may fail or
// return nothing; agents must treat that as "no signal this bar".
type OptionsFeed interface {
	// GetChain returns the near-expiry chain for the symbol.
	GetChain(ctx context.Context, symbol string) ([]domain.OptionQuote, error)

	// GetYesterdayClose returns the previous session's close.
	GetYesterdayClose(ctx context.Context, symbol string) (float64, error)

	// GetCurrentPrice returns the latest underlying price.
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// BarProvider supplies historical bars for replay.
type BarProvider interface {
	GetBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)
}

// BarObserver is fed each bar of a replay in order. Implemented by the
// regime classifier and the replay feed so the hot loop stays I/O free.
type BarObserver interface {
	Observe(symbol string, bar domain.Bar)
}
