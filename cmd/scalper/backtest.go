package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/davidrc/gapscalp/config"
	"github.com/davidrc/gapscalp/internal/adapters/feed"
	"github.com/davidrc/gapscalp/internal/adapters/notify"
	"github.com/davidrc/gapscalp/internal/adapters/storage"
	"github.com/davidrc/gapscalp/internal/application/backtest"
	"github.com/davidrc/gapscalp/internal/ports"
	"github.com/davidrc/gapscalp/internal/regime"
	"github.com/davidrc/gapscalp/internal/risk"
	"github.com/davidrc/gapscalp/internal/strategy"
	"github.com/google/uuid"
)

// runBacktest replays the window through the configured agent. Bars
// come from CSV fixtures when dataDir is set, from the live API
// otherwise; either way the agent's feed is the replay feed, so its
// view of "yesterday" always tracks the bar stream.
func runBacktest(ctx context.Context, cfg *config.Config, store *storage.SQLiteStorage, symbols []string, start, end time.Time, dataDir string, table bool) error {
	var bars ports.BarProvider
	if dataDir != "" {
		bars = feed.NewCSVDir(dataDir)
	} else {
		bars = feed.NewYahoo(cfg.Feed.BaseURL)
	}

	replayFeed := feed.NewReplay()
	classifier := regime.New()
	sizer := risk.NewSizer(cfg.Trading.InitialCapital)
	agent := strategy.NewMike(replayFeed, classifier, sizer)

	engine := backtest.New(bars, agent, sizer, classifier, replayFeed, backtest.Config{
		Start:          start,
		End:            end,
		InitialCapital: cfg.Trading.InitialCapital,
	})

	report, err := engine.Run(ctx, symbols)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	notifier := notify.NewConsole(table)
	if err := notifier.Notify(ctx, report); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	if len(report.Trades) == 0 {
		fmt.Println("No trades, skipping CSV ledger")
	} else {
		path, err := backtest.WriteLedger(".", report.Trades)
		if err != nil {
			slog.Warn("failed to write trade ledger", "err", err)
		} else {
			fmt.Printf("Trades saved to %s\n", path)
		}
	}

	if store != nil {
		if err := store.SaveBacktest(ctx, uuid.New().String(), "backtest", report); err != nil {
			slog.Warn("failed to persist run", "err", err)
		}
	}
	return nil
}
