package ports

import (
	"context"

	"github.com/davidrc/gapscalp/internal/domain"
)

// Executor routes a signal to an order destination (broker, log, ...).
type Executor interface {
	Submit(ctx context.Context, sig domain.Signal) error
}
