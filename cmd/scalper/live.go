package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/davidrc/gapscalp/config"
	"github.com/davidrc/gapscalp/internal/adapters/broker"
	"github.com/davidrc/gapscalp/internal/adapters/feed"
	"github.com/davidrc/gapscalp/internal/adapters/storage"
	"github.com/davidrc/gapscalp/internal/application/manager"
	"github.com/davidrc/gapscalp/internal/domain"
	"github.com/davidrc/gapscalp/internal/ports"
	"github.com/davidrc/gapscalp/internal/regime"
	"github.com/davidrc/gapscalp/internal/risk"
	"github.com/davidrc/gapscalp/internal/strategy"
)

// runLive is the paper loop plus an executor: signals are routed to the
// order destination instead of only being recorded. The shipped
// executor is log-only; a brokerage adapter slots in behind
// ports.Executor.
func runLive(ctx context.Context, cfg *config.Config, store *storage.SQLiteStorage, symbols []string) error {
	yahoo := feed.NewYahoo(cfg.Feed.BaseURL)
	classifier := regime.New()
	sizer := risk.NewSizer(cfg.Trading.InitialCapital)
	mgr := manager.New(yahoo, classifier, sizer)

	agent := mgr.Agent(cfg.Trading.Strategy)
	if agent == nil {
		slog.Error("unknown strategy", "strategy", cfg.Trading.Strategy)
		return nil
	}

	var executor ports.Executor = broker.NewLogExecutor()

	seedRegime(ctx, yahoo, classifier, symbols)

	slog.Info("live loop starting", "interval", cfg.PollInterval(), "symbols", symbols)

	ticker := time.NewTicker(cfg.PollInterval())
	defer ticker.Stop()

	for {
		liveCycle(ctx, yahoo, agent, executor, store, symbols)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func liveCycle(ctx context.Context, yahoo *feed.Yahoo, agent strategy.Agent, executor ports.Executor, store *storage.SQLiteStorage, symbols []string) {
	for _, symbol := range symbols {
		price, err := yahoo.GetCurrentPrice(ctx, symbol)
		if err != nil {
			slog.Warn("live: price unavailable, holding", "symbol", symbol, "err", err)
			continue
		}

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

		if err := executor.Submit(ctx, *sig); err != nil {
			slog.Error("live: order submission failed", "symbol", symbol, "err", err)
		}
		if store != nil {
			if err := store.SaveSignal(ctx, *sig); err != nil {
				slog.Warn("live: failed to save signal", "err", err)
			}
		}
	}
}
