package strategy

import (
	"context"

	"github.com/davidrc/gapscalp/internal/domain"
)

// Agent consumes one bar at a time for a symbol and decides what, if
// anything, to do. A nil signal is an implicit HOLD.
type Agent interface {
	// Name identifies the strategy in signals and reports.
	Name() string

	// OnBar applies the strategy to one bar. Data-feed failures inside
	// the call are never fatal: they produce a nil signal.
	OnBar(ctx context.Context, symbol string, bar domain.Bar) *domain.Signal

	// Reset clears all position state. Callers must invoke it before
	// reusing an agent on an unrelated series (e.g. a new symbol).
	Reset()
}

// PremiumFunc prices a contract from underlying, strike and type.
// Injectable so tests and alternative models can replace the default
// closed-form estimator.
type PremiumFunc func(underlying, strike float64, typ domain.OptionType) float64
