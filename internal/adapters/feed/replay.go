package feed

// replay.go: an OptionsFeed backed by the bar stream itself.
//
// During a historical replay there is no live chain and "yesterday's
// close" must mean the previous bar, not whatever the network says
// today. The engine advances this feed with each bar before the agent
// sees it; the feed then answers chain/close/price queries from that
// state with zero I/O in the hot loop.

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/davidrc/gapscalp/internal/domain"
	"github.com/davidrc/gapscalp/internal/pricing"
)

const (
	chainBandPct = 0.03 // synthesize strikes within ±3% of spot
	defaultIV    = 0.20
)

// Replay implements ports.OptionsFeed and ports.BarObserver.
type Replay struct {
	mu        sync.Mutex
	prevClose map[string]float64
	spot      map[string]float64
	asOf      map[string]time.Time
}

// NewReplay creates an empty replay feed.
func NewReplay() *Replay {
	return &Replay{
		prevClose: make(map[string]float64),
		spot:      make(map[string]float64),
		asOf:      make(map[string]time.Time),
	}
}

// Observe advances the feed to the given bar. The close seen on the
// previous call becomes "yesterday's close".
func (r *Replay) Observe(symbol string, bar domain.Bar) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prevClose[symbol] = r.spot[symbol]
	r.spot[symbol] = bar.Close
	r.asOf[symbol] = bar.Timestamp
}

// GetYesterdayClose returns the previous bar's close. Errors until two
// bars have been observed, which correctly suppresses entries on the
// first bar of a series.
func (r *Replay) GetYesterdayClose(_ context.Context, symbol string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pc := r.prevClose[symbol]
	if pc <= 0 {
		return 0, fmt.Errorf("feed.Replay: no prior close for %s", symbol)
	}
	return pc, nil
}

// GetCurrentPrice returns the current bar's close.
func (r *Replay) GetCurrentPrice(_ context.Context, symbol string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	spot := r.spot[symbol]
	if spot <= 0 {
		return 0, fmt.Errorf("feed.Replay: no price for %s", symbol)
	}
	return spot, nil
}

// GetChain synthesizes a same-day chain around the current spot: both
// option types on a regular strike grid, quoted off the premium model.
// A placeholder for the real chain, like the premium model itself.
func (r *Replay) GetChain(_ context.Context, symbol string) ([]domain.OptionQuote, error) {
	r.mu.Lock()
	spot := r.spot[symbol]
	asOf := r.asOf[symbol]
	r.mu.Unlock()

	if spot <= 0 {
		return nil, fmt.Errorf("feed.Replay: no price for %s", symbol)
	}

	step := strikeStep(spot)
	lo := math.Floor(spot * (1 - chainBandPct) / step)
	hi := math.Ceil(spot * (1 + chainBandPct) / step)
	expiry := asOf.Truncate(24 * time.Hour).Add(21 * time.Hour) // same-day close-ish

	var chain []domain.OptionQuote
	for k := lo; k <= hi; k++ {
		strike := k * step
		for _, typ := range []domain.OptionType{domain.Call, domain.Put} {
			mid := pricing.Estimate(spot, strike, typ)
			chain = append(chain, domain.OptionQuote{
				Strike:     strike,
				Type:       typ,
				Bid:        math.Max(0, mid-0.01),
				Ask:        mid + 0.01,
				IV:         defaultIV,
				Expiration: expiry,
			})
		}
	}
	return chain, nil
}

// strikeStep mirrors listed index-option spacing: $1 grid for cheap
// underlyings, $5 above 500.
func strikeStep(spot float64) float64 {
	if spot > 500 {
		return 5
	}
	return 1
}
