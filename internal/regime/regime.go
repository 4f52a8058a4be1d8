package regime

import (
	"math"
	"sync"

	"github.com/davidrc/gapscalp/internal/domain"
)

const (
	// DefaultLookback is how many trailing returns feed the volatility
	// estimate.
	DefaultLookback = 20
	// DefaultMaxVolatility is the per-period return stddev below which
	// the market counts as neutral.
	DefaultMaxVolatility = 0.02
)

// Classifier labels a symbol as neutral when trailing volatility is low.
// It is fed closes via Observe; it performs no I/O of its own, so it is
// deterministic in replay and safe to share across agents.
type Classifier struct {
	lookback int
	maxVol   float64

	mu     sync.Mutex
	closes map[string][]float64
}

// New creates a classifier with the default lookback and threshold.
func New() *Classifier {
	return &Classifier{
		lookback: DefaultLookback,
		maxVol:   DefaultMaxVolatility,
		closes:   make(map[string][]float64),
	}
}

// Observe records a period close for the symbol. Only the trailing
// lookback window is retained.
func (c *Classifier) Observe(symbol string, bar domain.Bar) {
	if bar.Close <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	closes := append(c.closes[symbol], bar.Close)
	// lookback+1 closes yield lookback returns
	if n := len(closes); n > c.lookback+1 {
		closes = closes[n-c.lookback-1:]
	}
	c.closes[symbol] = closes
}

// IsNeutral reports whether the trailing return stddev is below the
// threshold. Fewer than lookback returns defaults to neutral: the
// strategy is a mean-reversion play and should not be starved of signal
// by missing history.
func (c *Classifier) IsNeutral(symbol string) bool {
	c.mu.Lock()
	closes := c.closes[symbol]
	c.mu.Unlock()

	returns := periodReturns(closes)
	if len(returns) < c.lookback {
		return true
	}
	return stddev(returns) < c.maxVol
}

func periodReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, closes[i]/closes[i-1]-1)
	}
	return returns
}

// stddev is the sample standard deviation.
func stddev(xs []float64) float64 {
	n := float64(len(xs))
	if n < 2 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / n

	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / (n - 1))
}
