package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/davidrc/gapscalp/config"
	"github.com/davidrc/gapscalp/internal/adapters/feed"
	"github.com/davidrc/gapscalp/internal/adapters/storage"
	"github.com/davidrc/gapscalp/internal/application/manager"
	"github.com/davidrc/gapscalp/internal/domain"
	"github.com/davidrc/gapscalp/internal/regime"
	"github.com/davidrc/gapscalp/internal/risk"
	"github.com/davidrc/gapscalp/internal/strategy"
)

// runPaper polls the live feed on a fixed interval and records the
// signals the strategy would have fired, without routing orders. One
// failed cycle never aborts the loop.
func runPaper(ctx context.Context, cfg *config.Config, store *storage.SQLiteStorage, symbols []string) error {
	yahoo := feed.NewYahoo(cfg.Feed.BaseURL)
	classifier := regime.New()
	sizer := risk.NewSizer(cfg.Trading.InitialCapital)
	mgr := manager.New(yahoo, classifier, sizer)

	agent := mgr.Agent(cfg.Trading.Strategy)
	if agent == nil {
		slog.Error("unknown strategy", "strategy", cfg.Trading.Strategy)
		return nil
	}

	seedRegime(ctx, yahoo, classifier, symbols)

	slog.Info("paper loop starting", "interval", cfg.PollInterval(), "symbols", symbols)

	ticker := time.NewTicker(cfg.PollInterval())
	defer ticker.Stop()

	for {
		paperCycle(ctx, yahoo, agent, store, symbols)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// paperCycle runs one polling pass across all symbols.
func paperCycle(ctx context.Context, yahoo *feed.Yahoo, agent strategy.Agent, store *storage.SQLiteStorage, symbols []string) {
	for _, symbol := range symbols {
		price, err := yahoo.GetCurrentPrice(ctx, symbol)
		if err != nil {
			slog.Warn("paper: price unavailable, holding", "symbol", symbol, "err", err)
			continue
		}

		// Polling gives a single print, so the bar degenerates to it.
		bar := domain.Bar{
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Timestamp: time.Now().UTC(),
		}

		sig := agent.OnBar(ctx, symbol, bar)
		if sig == nil {
			continue
		}

		slog.Info("paper: signal",
			"symbol", sig.Symbol,
			"action", sig.Action,
			"size", sig.Size,
			"type", sig.OptionType,
			"strike", sig.Strike,
			"reason", sig.Reason,
		)
		if store != nil {
			if err := store.SaveSignal(ctx, *sig); err != nil {
				slog.Warn("paper: failed to save signal", "err", err)
			}
		}
	}
}

// seedRegime warms the classifier with trailing daily closes so the
// first cycles are not all fail-open neutral.
func seedRegime(ctx context.Context, yahoo *feed.Yahoo, classifier *regime.Classifier, symbols []string) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -45)
	for _, symbol := range symbols {
		bars, err := yahoo.GetBars(ctx, symbol, start, end)
		if err != nil {
			slog.Warn("regime seed failed, will fail open", "symbol", symbol, "err", err)
			continue
		}
		for _, bar := range bars {
			classifier.Observe(symbol, bar)
		}
		slog.Debug("regime seeded", "symbol", symbol, "bars", len(bars))
	}
}
