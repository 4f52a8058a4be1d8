package ports

import (
	"context"

	"github.com/davidrc/gapscalp/internal/domain"
)

// Notifier presents a finished run to the user.
type Notifier interface {
	Notify(ctx context.Context, report domain.BacktestReport) error
}
