package strategy

// mike.go: gap-scalp-reentry for 0DTE index options.
//
// The play: on a neutral day that opens away from yesterday's close,
// fade the gap (puts on an up-gap, calls on a down-gap) with a light
// first leg, average down once into weakness, trim into strength, and
// cut on a 20% premium loss or a rejection off the profit-target level.

import (
	"context"
	"log/slog"

	"github.com/davidrc/gapscalp/internal/domain"
	"github.com/davidrc/gapscalp/internal/ports"
	"github.com/davidrc/gapscalp/internal/pricing"
	"github.com/davidrc/gapscalp/internal/risk"
)

const (
	gapThreshold = 0.005 // 0.5% vs yesterday close
	strikeBand   = 0.02  // strike must be within 2% of spot

	profitTargetPct = 0.015 // underlying move, direction-dependent
	stopLossPct     = 0.20  // premium drawdown

	avgDownMin = -0.30
	avgDownMax = -0.10

	trim30Frac = 0.50 // sell 50% at +30%
	trim60Frac = 0.70 // sell 70% at +60%

	initialSizeFrac = 0.5 // deliberately under-sized first leg

	confEntry   = 0.75
	confAvgDown = 0.80
	confTrim30  = 0.85
	confTrim60  = 0.90
	confExit    = 1.0
)

// Mike is the gap-scalp agent. One instance owns at most one position
// for the symbol it is currently replaying.
type Mike struct {
	feed     ports.OptionsFeed
	regime   ports.RegimeClassifier
	sizer    *risk.Sizer
	estimate PremiumFunc

	pos *domain.Position // nil when flat
}

// NewMike wires the agent with the default closed-form premium model.
func NewMike(feed ports.OptionsFeed, regime ports.RegimeClassifier, sizer *risk.Sizer) *Mike {
	return NewMikeWithPricing(feed, regime, sizer, pricing.Estimate)
}

// NewMikeWithPricing wires the agent with a custom premium model.
func NewMikeWithPricing(feed ports.OptionsFeed, regime ports.RegimeClassifier, sizer *risk.Sizer, estimate PremiumFunc) *Mike {
	return &Mike{feed: feed, regime: regime, sizer: sizer, estimate: estimate}
}

// Name implements Agent.
func (m *Mike) Name() string { return "mike" }

// Position exposes the current lot for bookkeeping and diagnostics.
// Nil when flat.
func (m *Mike) Position() *domain.Position { return m.pos }

// Reset implements Agent.
func (m *Mike) Reset() { m.pos = nil }

// OnBar implements Agent. Decision order: entry (flat only), then
// average-down, then trims, then stop-loss/rejection exit.
func (m *Mike) OnBar(ctx context.Context, symbol string, bar domain.Bar) *domain.Signal {
	if m.pos == nil {
		if !m.regime.IsNeutral(symbol) {
			return nil
		}
		dir, ok := m.detectGap(ctx, symbol, bar)
		if !ok {
			return nil
		}
		return m.tryEntry(ctx, symbol, bar, dir)
	}

	current := m.estimate(bar.Close, m.pos.Strike, m.pos.Direction)
	pnlPct := m.pos.PnLPct(current)

	// One averaging leg per lot, and only while the lot is intact:
	// once gains have been trimmed the remainder is a runner, not a
	// position worth doubling into.
	if !m.pos.HasAveragedDown && !m.pos.HasTrimmed &&
		pnlPct >= avgDownMin && pnlPct <= avgDownMax {
		return m.averageDown(symbol, current, pnlPct)
	}

	switch {
	case pnlPct >= 0.60:
		return m.trim(symbol, trim60Frac, domain.ReasonTrim60, confTrim60, pnlPct)
	case pnlPct >= 0.30:
		return m.trim(symbol, trim30Frac, domain.ReasonTrim30, confTrim30, pnlPct)
	case pnlPct <= -stopLossPct || m.pos.RejectedAt(bar):
		reason := domain.ReasonStopLoss
		if pnlPct > -stopLossPct {
			reason = domain.ReasonRejection
		}
		return m.exit(symbol, reason, pnlPct)
	}

	return nil
}

// detectGap compares the bar's open with yesterday's close. An up-gap
// means we expect a fill down and buy puts; a down-gap the reverse.
func (m *Mike) detectGap(ctx context.Context, symbol string, bar domain.Bar) (domain.OptionType, bool) {
	prevClose, err := m.feed.GetYesterdayClose(ctx, symbol)
	if err != nil || prevClose <= 0 {
		return "", false
	}

	gapPct := (bar.Open - prevClose) / prevClose
	if abs(gapPct) <= gapThreshold {
		return "", false
	}
	if gapPct > 0 {
		return domain.Put, true
	}
	return domain.Call, true
}

func (m *Mike) tryEntry(ctx context.Context, symbol string, bar domain.Bar, dir domain.OptionType) *domain.Signal {
	chain, err := m.feed.GetChain(ctx, symbol)
	if err != nil || len(chain) == 0 {
		if err != nil {
			slog.Debug("mike: chain unavailable, holding", "symbol", symbol, "err", err)
		}
		return nil
	}

	spot := bar.Close
	strike, ok := domain.NearestStrike(chain, spot, dir, strikeBand)
	if !ok {
		return nil
	}

	premium := m.estimate(spot, strike, dir)
	if premium <= 0 {
		return nil
	}

	size := m.sizer.Size(premium, risk.DefaultRiskPct)
	initial := int(float64(size) * initialSizeFrac)
	if initial < 1 {
		initial = 1
	}

	target := spot * (1 + profitTargetPct)
	if dir == domain.Put {
		target = spot * (1 - profitTargetPct)
	}

	m.pos = &domain.Position{
		Direction:       dir,
		Strike:          strike,
		EntryPremium:    premium,
		AvgPremium:      premium,
		Size:            initial,
		EntryUnderlying: spot,
		ProfitTarget:    target,
		StopLoss:        premium * (1 - stopLossPct),
		OpenedAt:        bar.Timestamp,
	}

	sig := domain.NewSignal(symbol, domain.ActionBuy, initial, strike, dir, m.Name(), confEntry, domain.ReasonEntry)
	sig.Metadata["entry_premium"] = premium
	sig.Metadata["entry_price"] = spot
	sig.Metadata["pt_level"] = m.pos.ProfitTarget
	sig.Metadata["sl_level"] = m.pos.StopLoss
	return &sig
}

func (m *Mike) averageDown(symbol string, premium, pnlPct float64) *domain.Signal {
	addSize := int(float64(m.pos.Size) * 0.5)
	if addSize < 1 {
		addSize = 1
	}
	m.pos.AverageDown(addSize, premium)

	sig := domain.NewSignal(symbol, domain.ActionBuy, addSize, m.pos.Strike, m.pos.Direction, m.Name(), confAvgDown, domain.ReasonAvgDown)
	sig.Metadata["new_avg_premium"] = m.pos.AvgPremium
	sig.Metadata["add_premium"] = premium
	sig.Metadata["pnl_pct"] = pnlPct * 100
	return &sig
}

func (m *Mike) trim(symbol string, frac float64, reason string, confidence, pnlPct float64) *domain.Signal {
	trimSize := int(float64(m.pos.Size) * frac)
	if trimSize < 1 {
		return nil // single-contract runner, nothing to peel off
	}
	m.pos.Size -= trimSize
	m.pos.HasTrimmed = true

	sig := domain.NewSignal(symbol, domain.ActionSell, trimSize, m.pos.Strike, m.pos.Direction, m.Name(), confidence, reason)
	sig.Metadata["pnl_pct"] = pnlPct * 100
	sig.Metadata["avg_premium"] = m.pos.AvgPremium
	sig.Metadata["remaining"] = float64(m.pos.Size)
	return &sig
}

func (m *Mike) exit(symbol, reason string, pnlPct float64) *domain.Signal {
	exitSize := m.pos.Size
	strike, dir := m.pos.Strike, m.pos.Direction
	m.pos = nil

	sig := domain.NewSignal(symbol, domain.ActionSell, exitSize, strike, dir, m.Name(), confExit, reason)
	sig.Metadata["pnl_pct"] = pnlPct * 100
	return &sig
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
