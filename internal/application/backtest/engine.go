package backtest

// engine.go: bar-by-bar replay of a symbol list through one agent.
//
// The loop is strictly sequential: one bar is fully processed (agent
// decision + bookkeeping) before the next is read, and each symbol gets
// a fresh agent reset, so no position state leaks across series.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/davidrc/gapscalp/internal/domain"
	"github.com/davidrc/gapscalp/internal/ports"
	"github.com/davidrc/gapscalp/internal/pricing"
	"github.com/davidrc/gapscalp/internal/risk"
	"github.com/davidrc/gapscalp/internal/strategy"
	"github.com/google/uuid"
)

// Config holds the replay window and starting equity.
type Config struct {
	Start          time.Time
	End            time.Time
	InitialCapital float64
}

// Engine replays historical bars through an agent and reconciles its
// signals into a trade ledger.
type Engine struct {
	bars     ports.BarProvider
	agent    strategy.Agent
	sizer    *risk.Sizer
	regime   ports.BarObserver
	feedSync ports.BarObserver // advanced before each bar; may be nil
	estimate strategy.PremiumFunc

	cfg     Config
	capital float64
	trades  []domain.Trade
	dailies []domain.DailyPnL
	open    int // lots left open at end of their replay
}

// New creates an engine using the default premium model. feedSync, when
// non-nil, is advanced with each bar before the agent sees it (used by
// the replay feed to expose previous-close and spot without I/O).
func New(bars ports.BarProvider, agent strategy.Agent, sizer *risk.Sizer, regime, feedSync ports.BarObserver, cfg Config) *Engine {
	return NewWithPricing(bars, agent, sizer, regime, feedSync, cfg, pricing.Estimate)
}

// NewWithPricing creates an engine with a custom premium model, which
// must match the one the agent decides with.
func NewWithPricing(bars ports.BarProvider, agent strategy.Agent, sizer *risk.Sizer, regime, feedSync ports.BarObserver, cfg Config, estimate strategy.PremiumFunc) *Engine {
	if cfg.InitialCapital <= 0 {
		cfg.InitialCapital = 10000
	}
	return &Engine{
		bars:     bars,
		agent:    agent,
		sizer:    sizer,
		regime:   regime,
		feedSync: feedSync,
		estimate: estimate,
		cfg:      cfg,
		capital:  cfg.InitialCapital,
	}
}

// Run replays every symbol in order and returns the aggregate report.
// A failure in one symbol's replay is logged and the run continues with
// the next symbol.
func (e *Engine) Run(ctx context.Context, symbols []string) (domain.BacktestReport, error) {
	slog.Info("backtest starting",
		"strategy", e.agent.Name(),
		"symbols", symbols,
		"start", e.cfg.Start.Format("2006-01-02"),
		"end", e.cfg.End.Format("2006-01-02"),
		"capital", e.cfg.InitialCapital,
	)

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return domain.BacktestReport{}, err
		}
		if err := e.replaySymbol(ctx, symbol); err != nil {
			slog.Error("backtest: symbol replay failed, continuing", "symbol", symbol, "err", err)
		}
	}

	report := buildReport(e.cfg, symbols, e.capital, e.trades, e.dailies, e.open)
	return report, nil
}

// openLot is the engine's own bookkeeping of the position the agent is
// running. entryPremium tracks the current cost basis (it follows the
// agent's average after an averaging leg).
type openLot struct {
	direction    domain.OptionType
	strike       float64
	size         int
	entryPremium float64
	entryTime    time.Time
}

func (e *Engine) replaySymbol(ctx context.Context, symbol string) (err error) {
	// One bad symbol must not abort the whole run.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backtest.replaySymbol: %s: panic: %v", symbol, r)
		}
	}()

	bars, err := e.bars.GetBars(ctx, symbol, e.cfg.Start, e.cfg.End)
	if err != nil {
		return fmt.Errorf("backtest.replaySymbol: %s: get bars: %w", symbol, err)
	}
	if len(bars) == 0 {
		slog.Warn("backtest: no data for symbol", "symbol", symbol)
		return nil
	}

	slog.Info("backtest: replaying symbol", "symbol", symbol, "bars", len(bars))
	e.agent.Reset()

	var lot *openLot
	for i, bar := range bars {
		if e.feedSync != nil {
			e.feedSync.Observe(symbol, bar)
		}

		if sig := e.agent.OnBar(ctx, symbol, bar); sig != nil {
			e.apply(symbol, bar, *sig, &lot)
		}

		// Current bar joins the regime history only after the decision,
		// so a bar never influences its own entry check.
		if e.regime != nil {
			e.regime.Observe(symbol, bar)
		}

		if i == len(bars)-1 || !domain.SameDay(bars[i+1].Timestamp, bar.Timestamp) {
			e.dailies = append(e.dailies, domain.DailyPnL{
				Date:    bar.Timestamp,
				Symbol:  symbol,
				PnL:     e.capital - e.cfg.InitialCapital,
				Capital: e.capital,
			})
		}
	}

	if lot != nil {
		// Unmatched remainder is reported, never silently dropped.
		e.open++
		slog.Warn("backtest: position still open at end of replay",
			"symbol", symbol,
			"direction", lot.direction,
			"size", lot.size,
			"basis", fmt.Sprintf("$%.2f", lot.entryPremium),
		)
	}
	return nil
}

// apply reconciles one signal into the tracked lot and the ledger.
func (e *Engine) apply(symbol string, bar domain.Bar, sig domain.Signal, lot **openLot) {
	switch sig.Action {
	case domain.ActionBuy:
		e.applyBuy(symbol, bar, sig, lot)
	case domain.ActionSell:
		e.applySell(symbol, bar, sig, lot)
	}
}

func (e *Engine) applyBuy(symbol string, bar domain.Bar, sig domain.Signal, lot **openLot) {
	if *lot == nil {
		entryPremium, ok := sig.Metadata["entry_premium"]
		if !ok {
			entryPremium = e.estimate(bar.Close, sig.Strike, sig.OptionType)
		}
		*lot = &openLot{
			direction:    sig.OptionType,
			strike:       sig.Strike,
			size:         sig.Size,
			entryPremium: entryPremium,
			entryTime:    bar.Timestamp,
		}
		slog.Info("backtest: ENTRY",
			"symbol", symbol,
			"date", bar.Timestamp.Format("2006-01-02"),
			"type", sig.OptionType,
			"strike", fmt.Sprintf("%.2f", sig.Strike),
			"size", sig.Size,
			"premium", fmt.Sprintf("$%.2f", entryPremium),
		)
		return
	}

	if sig.Reason != domain.ReasonAvgDown {
		slog.Warn("backtest: BUY with open lot and unexpected reason, ignoring",
			"symbol", symbol, "reason", sig.Reason)
		return
	}

	(*lot).size += sig.Size
	if avg, ok := sig.Metadata["new_avg_premium"]; ok && avg > 0 {
		(*lot).entryPremium = avg
	}
	slog.Info("backtest: AVG DOWN",
		"symbol", symbol,
		"date", bar.Timestamp.Format("2006-01-02"),
		"added", sig.Size,
		"size", (*lot).size,
		"avg_premium", fmt.Sprintf("$%.2f", (*lot).entryPremium),
	)
}

func (e *Engine) applySell(symbol string, bar domain.Bar, sig domain.Signal, lot **openLot) {
	if *lot == nil {
		slog.Warn("backtest: SELL with no tracked position, ignoring", "symbol", symbol)
		return
	}
	l := *lot

	qty := sig.Size
	if qty > l.size {
		qty = l.size
	}

	exitPremium := e.estimate(bar.Close, l.strike, l.direction)
	pnl := (exitPremium - l.entryPremium) * float64(qty) * 100
	pnlPct := 0.0
	if l.entryPremium > 0 {
		pnlPct = (exitPremium - l.entryPremium) / l.entryPremium * 100
	}

	e.capital += pnl
	e.sizer.UpdateAccountValue(e.capital)

	e.trades = append(e.trades, domain.Trade{
		ID:           uuid.New().String(),
		Symbol:       symbol,
		EntryTime:    l.entryTime,
		ExitTime:     bar.Timestamp,
		Direction:    l.direction,
		Strike:       l.strike,
		Size:         qty,
		EntryPremium: l.entryPremium,
		ExitPremium:  exitPremium,
		PnL:          pnl,
		PnLPct:       pnlPct,
		Reason:       sig.Reason,
	})

	slog.Info("backtest: EXIT",
		"symbol", symbol,
		"date", bar.Timestamp.Format("2006-01-02"),
		"reason", sig.Reason,
		"size", qty,
		"pnl", fmt.Sprintf("$%.2f", pnl),
		"pnl_pct", fmt.Sprintf("%+.1f%%", pnlPct),
		"capital", fmt.Sprintf("$%.2f", e.capital),
	)

	if sig.IsTrim() {
		l.size -= qty
		// basis follows the agent's average for the remaining runner
		if avg, ok := sig.Metadata["avg_premium"]; ok && avg > 0 {
			l.entryPremium = avg
		}
		if l.size <= 0 {
			*lot = nil
		}
		return
	}
	*lot = nil
}
