package broker

// Log-only executor. Real order submission belongs to the brokerage
// integration, which this repository treats as an external collaborator;
// this adapter lets live mode run end to end without one.

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/davidrc/gapscalp/internal/domain"
)

// LogExecutor implements ports.Executor by logging orders.
type LogExecutor struct{}

// NewLogExecutor creates the executor.
func NewLogExecutor() *LogExecutor {
	return &LogExecutor{}
}

// Submit logs the order it would have sent.
func (e *LogExecutor) Submit(_ context.Context, sig domain.Signal) error {
	slog.Info("live: order (not routed, log-only executor)",
		"symbol", sig.Symbol,
		"action", sig.Action,
		"size", sig.Size,
		"type", sig.OptionType,
		"strike", fmt.Sprintf("%.2f", sig.Strike),
		"strategy", sig.Strategy,
		"reason", sig.Reason,
		"confidence", sig.Confidence,
	)
	return nil
}
