package backtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/davidrc/gapscalp/internal/adapters/feed"
	"github.com/davidrc/gapscalp/internal/domain"
	"github.com/davidrc/gapscalp/internal/regime"
	"github.com/davidrc/gapscalp/internal/risk"
	"github.com/davidrc/gapscalp/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBarProvider struct {
	bars map[string][]domain.Bar
	errs map[string]error
}

func (p *fakeBarProvider) GetBars(_ context.Context, symbol string, _, _ time.Time) ([]domain.Bar, error) {
	if err := p.errs[symbol]; err != nil {
		return nil, err
	}
	return p.bars[symbol], nil
}

// scriptAgent replays a fixed signal sequence, one entry per bar.
type scriptAgent struct {
	signals map[string][]*domain.Signal
	cursor  map[string]int
	panics  map[string]bool
	resets  int
}

func newScriptAgent() *scriptAgent {
	return &scriptAgent{
		signals: map[string][]*domain.Signal{},
		cursor:  map[string]int{},
		panics:  map[string]bool{},
	}
}

func (a *scriptAgent) Name() string { return "script" }
func (a *scriptAgent) Reset()       { a.resets++ }

func (a *scriptAgent) OnBar(_ context.Context, symbol string, _ domain.Bar) *domain.Signal {
	if a.panics[symbol] {
		panic("scripted failure")
	}
	i := a.cursor[symbol]
	a.cursor[symbol]++
	seq := a.signals[symbol]
	if i >= len(seq) {
		return nil
	}
	return seq[i]
}

// closeIsPremium treats the bar close as the option premium, so test
// bars drive exit fills directly.
func closeIsPremium(S, _ float64, _ domain.OptionType) float64 { return S }

func dayBars(closes ...float64) []domain.Bar {
	t0 := time.Date(2025, 11, 17, 15, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			Open: c, High: c, Low: c, Close: c,
			Timestamp: t0.AddDate(0, 0, i),
		}
	}
	return bars
}

func buySig(symbol string, size int, reason string, meta map[string]float64) *domain.Signal {
	sig := domain.NewSignal(symbol, domain.ActionBuy, size, 101, domain.Put, "script", 0.8, reason)
	for k, v := range meta {
		sig.Metadata[k] = v
	}
	return &sig
}

func sellSig(symbol string, size int, reason string, meta map[string]float64) *domain.Signal {
	sig := domain.NewSignal(symbol, domain.ActionSell, size, 101, domain.Put, "script", 0.9, reason)
	for k, v := range meta {
		sig.Metadata[k] = v
	}
	return &sig
}

func newTestEngine(provider *fakeBarProvider, agent strategy.Agent, sizer *risk.Sizer, capital float64) *Engine {
	cfg := Config{
		Start:          time.Date(2025, 11, 17, 0, 0, 0, 0, time.UTC),
		End:            time.Date(2025, 12, 17, 0, 0, 0, 0, time.UTC),
		InitialCapital: capital,
	}
	return NewWithPricing(provider, agent, sizer, nil, nil, cfg, closeIsPremium)
}

func TestRun_TrimLifecycle(t *testing.T) {
	provider := &fakeBarProvider{bars: map[string][]domain.Bar{
		"SPY": dayBars(2.00, 2.80, 3.20, 1.60),
	}}
	agent := newScriptAgent()
	agent.signals["SPY"] = []*domain.Signal{
		buySig("SPY", 10, domain.ReasonEntry, map[string]float64{"entry_premium": 2.00}),
		sellSig("SPY", 5, domain.ReasonTrim30, map[string]float64{"avg_premium": 2.00}),
		sellSig("SPY", 3, domain.ReasonTrim60, map[string]float64{"avg_premium": 2.00}),
		sellSig("SPY", 2, domain.ReasonStopLoss, nil),
	}
	sizer := risk.NewSizer(10000)
	engine := newTestEngine(provider, agent, sizer, 10000)

	report, err := engine.Run(context.Background(), []string{"SPY"})
	require.NoError(t, err)

	require.Len(t, report.Trades, 3)
	assert.InDelta(t, 400, report.Trades[0].PnL, 1e-9)  // (2.80-2.00)×5×100
	assert.InDelta(t, 360, report.Trades[1].PnL, 1e-9)  // (3.20-2.00)×3×100
	assert.InDelta(t, -80, report.Trades[2].PnL, 1e-9)  // (1.60-2.00)×2×100
	assert.InDelta(t, 680, report.TotalPnL, 1e-9)
	assert.InDelta(t, 10680, report.FinalCapital, 1e-9)
	assert.Equal(t, 2, report.WinningTrades)
	assert.Equal(t, 1, report.LosingTrades)
	assert.InDelta(t, 66.67, report.WinRate, 0.01)
	assert.Equal(t, 0, report.OpenPositions)

	// realized P&L compounds into future sizing
	assert.InDelta(t, 10680, sizer.AccountValue(), 1e-9)
}

func TestRun_LedgerMatchesCashFlow(t *testing.T) {
	// Invariant: total P&L equals sell proceeds minus the matched buy
	// cost, times the contract multiplier.
	provider := &fakeBarProvider{bars: map[string][]domain.Bar{
		"SPY": dayBars(2.00, 2.80, 3.20, 1.60),
	}}
	agent := newScriptAgent()
	agent.signals["SPY"] = []*domain.Signal{
		buySig("SPY", 10, domain.ReasonEntry, map[string]float64{"entry_premium": 2.00}),
		sellSig("SPY", 5, domain.ReasonTrim30, map[string]float64{"avg_premium": 2.00}),
		sellSig("SPY", 3, domain.ReasonTrim60, map[string]float64{"avg_premium": 2.00}),
		sellSig("SPY", 2, domain.ReasonStopLoss, nil),
	}
	engine := newTestEngine(provider, agent, risk.NewSizer(10000), 10000)

	report, err := engine.Run(context.Background(), []string{"SPY"})
	require.NoError(t, err)

	proceeds := 2.80*5 + 3.20*3 + 1.60*2
	cost := 2.00 * 10
	assert.InDelta(t, (proceeds-cost)*100, report.TotalPnL, 1e-9)
	assert.InDelta(t, report.InitialCapital+report.TotalPnL, report.FinalCapital, 1e-9)
}

func TestRun_AverageDownRaisesBasis(t *testing.T) {
	provider := &fakeBarProvider{bars: map[string][]domain.Bar{
		"SPY": dayBars(2.00, 1.40, 1.60),
	}}
	agent := newScriptAgent()
	agent.signals["SPY"] = []*domain.Signal{
		buySig("SPY", 10, domain.ReasonEntry, map[string]float64{"entry_premium": 2.00}),
		buySig("SPY", 5, domain.ReasonAvgDown, map[string]float64{"new_avg_premium": 1.80}),
		sellSig("SPY", 15, domain.ReasonStopLoss, nil),
	}
	engine := newTestEngine(provider, agent, risk.NewSizer(10000), 10000)

	report, err := engine.Run(context.Background(), []string{"SPY"})
	require.NoError(t, err)

	require.Len(t, report.Trades, 1)
	trade := report.Trades[0]
	assert.Equal(t, 15, trade.Size)
	assert.InDelta(t, 1.80, trade.EntryPremium, 1e-9)
	// (1.60-1.80)×15×100
	assert.InDelta(t, -300, trade.PnL, 1e-9)
	assert.InDelta(t, 9700, report.FinalCapital, 1e-9)
}

func TestRun_BuyWithOpenLotAndWrongReasonIgnored(t *testing.T) {
	provider := &fakeBarProvider{bars: map[string][]domain.Bar{
		"SPY": dayBars(2.00, 2.00, 2.00),
	}}
	agent := newScriptAgent()
	agent.signals["SPY"] = []*domain.Signal{
		buySig("SPY", 10, domain.ReasonEntry, map[string]float64{"entry_premium": 2.00}),
		buySig("SPY", 10, domain.ReasonEntry, map[string]float64{"entry_premium": 2.00}),
		sellSig("SPY", 99, domain.ReasonStopLoss, nil),
	}
	engine := newTestEngine(provider, agent, risk.NewSizer(10000), 10000)

	report, err := engine.Run(context.Background(), []string{"SPY"})
	require.NoError(t, err)

	// the second entry must not stack onto the lot
	require.Len(t, report.Trades, 1)
	assert.Equal(t, 10, report.Trades[0].Size)
}

func TestRun_SellWithoutLotIgnored(t *testing.T) {
	provider := &fakeBarProvider{bars: map[string][]domain.Bar{
		"SPY": dayBars(2.00),
	}}
	agent := newScriptAgent()
	agent.signals["SPY"] = []*domain.Signal{
		sellSig("SPY", 5, domain.ReasonStopLoss, nil),
	}
	engine := newTestEngine(provider, agent, risk.NewSizer(10000), 10000)

	report, err := engine.Run(context.Background(), []string{"SPY"})
	require.NoError(t, err)
	assert.Empty(t, report.Trades)
	assert.InDelta(t, 10000, report.FinalCapital, 1e-9)
}

func TestRun_SellCappedAtLotSize(t *testing.T) {
	provider := &fakeBarProvider{bars: map[string][]domain.Bar{
		"SPY": dayBars(2.00, 2.80),
	}}
	agent := newScriptAgent()
	agent.signals["SPY"] = []*domain.Signal{
		buySig("SPY", 2, domain.ReasonEntry, map[string]float64{"entry_premium": 2.00}),
		sellSig("SPY", 10, domain.ReasonStopLoss, nil),
	}
	engine := newTestEngine(provider, agent, risk.NewSizer(10000), 10000)

	report, err := engine.Run(context.Background(), []string{"SPY"})
	require.NoError(t, err)
	require.Len(t, report.Trades, 1)
	assert.Equal(t, 2, report.Trades[0].Size)
	assert.Equal(t, 0, report.OpenPositions)
}

func TestRun_OpenPositionAtEndReported(t *testing.T) {
	provider := &fakeBarProvider{bars: map[string][]domain.Bar{
		"SPY": dayBars(2.00, 2.10),
	}}
	agent := newScriptAgent()
	agent.signals["SPY"] = []*domain.Signal{
		buySig("SPY", 10, domain.ReasonEntry, map[string]float64{"entry_premium": 2.00}),
	}
	engine := newTestEngine(provider, agent, risk.NewSizer(10000), 10000)

	report, err := engine.Run(context.Background(), []string{"SPY"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.OpenPositions)
	assert.Equal(t, 0, report.TotalTrades)
	assert.InDelta(t, 10000, report.FinalCapital, 1e-9)
}

func TestRun_ZeroTradesCleanReport(t *testing.T) {
	provider := &fakeBarProvider{bars: map[string][]domain.Bar{
		"SPY": dayBars(2.00, 2.10, 2.20),
	}}
	engine := newTestEngine(provider, newScriptAgent(), risk.NewSizer(10000), 10000)

	report, err := engine.Run(context.Background(), []string{"SPY"})
	require.NoError(t, err)
	assert.Equal(t, 0, report.TotalTrades)
	assert.Equal(t, 0.0, report.WinRate)
	assert.Equal(t, 0.0, report.TotalPnL)
	assert.InDelta(t, 10000, report.FinalCapital, 1e-9)
}

func TestRun_SymbolErrorDoesNotAbortRun(t *testing.T) {
	provider := &fakeBarProvider{
		bars: map[string][]domain.Bar{"QQQ": dayBars(2.00, 2.80)},
		errs: map[string]error{"SPY": errors.New("provider down")},
	}
	agent := newScriptAgent()
	agent.signals["QQQ"] = []*domain.Signal{
		buySig("QQQ", 1, domain.ReasonEntry, map[string]float64{"entry_premium": 2.00}),
		sellSig("QQQ", 1, domain.ReasonStopLoss, nil),
	}
	engine := newTestEngine(provider, agent, risk.NewSizer(10000), 10000)

	report, err := engine.Run(context.Background(), []string{"SPY", "QQQ"})
	require.NoError(t, err)
	require.Len(t, report.Trades, 1)
	assert.Equal(t, "QQQ", report.Trades[0].Symbol)
}

func TestRun_PanicIsolatedPerSymbol(t *testing.T) {
	provider := &fakeBarProvider{bars: map[string][]domain.Bar{
		"BAD": dayBars(2.00),
		"QQQ": dayBars(2.00, 2.80),
	}}
	agent := newScriptAgent()
	agent.panics["BAD"] = true
	agent.signals["QQQ"] = []*domain.Signal{
		buySig("QQQ", 1, domain.ReasonEntry, map[string]float64{"entry_premium": 2.00}),
		sellSig("QQQ", 1, domain.ReasonStopLoss, nil),
	}
	engine := newTestEngine(provider, agent, risk.NewSizer(10000), 10000)

	report, err := engine.Run(context.Background(), []string{"BAD", "QQQ"})
	require.NoError(t, err)
	require.Len(t, report.Trades, 1)
	assert.Equal(t, "QQQ", report.Trades[0].Symbol)
}

func TestRun_AgentResetPerSymbol(t *testing.T) {
	provider := &fakeBarProvider{bars: map[string][]domain.Bar{
		"SPY": dayBars(2.00),
		"QQQ": dayBars(2.00),
	}}
	agent := newScriptAgent()
	engine := newTestEngine(provider, agent, risk.NewSizer(10000), 10000)

	_, err := engine.Run(context.Background(), []string{"SPY", "QQQ"})
	require.NoError(t, err)
	assert.Equal(t, 2, agent.resets)
}

func TestRun_DailySnapshotsPerDateBoundary(t *testing.T) {
	provider := &fakeBarProvider{bars: map[string][]domain.Bar{
		"SPY": dayBars(2.00, 2.80, 3.20),
	}}
	engine := newTestEngine(provider, newScriptAgent(), risk.NewSizer(10000), 10000)

	report, err := engine.Run(context.Background(), []string{"SPY"})
	require.NoError(t, err)
	// one bar per calendar day: one snapshot each
	require.Len(t, report.Dailies, 3)
	for _, d := range report.Dailies {
		assert.Equal(t, "SPY", d.Symbol)
		assert.InDelta(t, 10000, d.Capital, 1e-9)
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	provider := &fakeBarProvider{bars: map[string][]domain.Bar{"SPY": dayBars(2.00)}}
	engine := newTestEngine(provider, newScriptAgent(), risk.NewSizer(10000), 10000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := engine.Run(ctx, []string{"SPY"})
	assert.ErrorIs(t, err, context.Canceled)
}

// TestRun_EndToEndGapScalp drives the real agent, replay feed and regime
// classifier through a synthetic gap day and checks the full lifecycle:
// entry on the 1% gap, two trims into strength, stop on the give-back.
func TestRun_EndToEndGapScalp(t *testing.T) {
	t0 := time.Date(2025, 11, 17, 15, 0, 0, 0, time.UTC)
	mkBar := func(day int, open, high, low, close float64) domain.Bar {
		return domain.Bar{Open: open, High: high, Low: low, Close: close,
			Timestamp: t0.AddDate(0, 0, day)}
	}
	bars := []domain.Bar{
		mkBar(0, 100.00, 100.20, 99.80, 100.00),
		mkBar(1, 101.00, 101.20, 100.80, 101.00), // 1% gap up
		mkBar(2, 95.20, 95.40, 94.80, 95.00),
		mkBar(3, 94.20, 94.40, 93.80, 94.00),
		mkBar(4, 99.00, 99.10, 98.50, 99.00),
	}
	provider := &fakeBarProvider{bars: map[string][]domain.Bar{"SPY": bars}}

	// premium path keyed off the underlying close: entry at $2.00, +40%,
	// +60%, then a 20% drawdown
	premiums := map[float64]float64{100.00: 2.00, 101.00: 2.00, 95.00: 2.80, 94.00: 3.20, 99.00: 1.60}
	estimate := func(S, _ float64, _ domain.OptionType) float64 { return premiums[S] }

	replay := feed.NewReplay()
	sizer := risk.NewSizer(57143) // recommends 20 contracts at $2.00
	classifier := regime.New()
	agent := strategy.NewMikeWithPricing(replay, classifier, sizer, estimate)

	cfg := Config{
		Start:          t0,
		End:            t0.AddDate(0, 0, 10),
		InitialCapital: 57143,
	}
	engine := NewWithPricing(provider, agent, sizer, classifier, replay, cfg, estimate)

	report, err := engine.Run(context.Background(), []string{"SPY"})
	require.NoError(t, err)

	require.Len(t, report.Trades, 3)
	assert.Equal(t, domain.ReasonTrim30, report.Trades[0].Reason)
	assert.Equal(t, 5, report.Trades[0].Size)
	assert.Equal(t, domain.ReasonTrim60, report.Trades[1].Reason)
	assert.Equal(t, 3, report.Trades[1].Size)
	assert.Equal(t, domain.ReasonStopLoss, report.Trades[2].Reason)
	assert.Equal(t, 2, report.Trades[2].Size)

	for _, trade := range report.Trades {
		assert.Equal(t, domain.Put, trade.Direction, "up-gap fades with puts")
		assert.Equal(t, 101.0, trade.Strike)
	}

	assert.InDelta(t, 680, report.TotalPnL, 1e-9)
	assert.InDelta(t, 57823, report.FinalCapital, 1e-9)
	assert.Equal(t, 0, report.OpenPositions)
	assert.Nil(t, agent.Position())
}

func TestLedgerFilename(t *testing.T) {
	now := time.Date(2025, 11, 17, 9, 30, 5, 0, time.UTC)
	assert.Equal(t, "backtest_trades_20251117_093005.csv", LedgerFilename(now))
}
