package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/davidrc/gapscalp/config"
	"github.com/davidrc/gapscalp/internal/adapters/storage"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	mode := flag.String("mode", "backtest", "mode: backtest|paper|live")
	symbolList := flag.String("symbols", "SPY,QQQ", "comma-separated symbol list")
	startStr := flag.String("start", "", "backtest start date (YYYY-MM-DD)")
	endStr := flag.String("end", "", "backtest end date (YYYY-MM-DD)")
	capital := flag.Float64("capital", 0, "initial capital (overrides config)")
	dataDir := flag.String("data", "", "replay bars from CSV fixtures in this dir instead of the API")
	table := flag.Bool("table", false, "print the full trade table")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *capital > 0 {
		cfg.Trading.InitialCapital = *capital
	}
	setupLogger(cfg.Log)

	symbols := splitSymbols(*symbolList)
	if len(symbols) == 0 {
		slog.Error("no symbols given")
		os.Exit(1)
	}

	slog.Info("scalper starting",
		"mode", *mode,
		"symbols", symbols,
		"capital", cfg.Trading.InitialCapital,
		"strategy", cfg.Trading.Strategy,
	)

	var store *storage.SQLiteStorage
	if cfg.Storage.DSN != "off" {
		store, err = storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer store.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "backtest":
		start, end, err := parseWindow(*startStr, *endStr)
		if err != nil {
			slog.Error("invalid date window", "err", err)
			os.Exit(1)
		}
		if err := runBacktest(ctx, cfg, store, symbols, start, end, *dataDir, *table); err != nil {
			slog.Error("backtest failed", "err", err)
			os.Exit(1)
		}
	case "paper":
		if err := runPaper(ctx, cfg, store, symbols); err != nil {
			slog.Error("paper loop exited with error", "err", err)
			os.Exit(1)
		}
	case "live":
		if err := runLive(ctx, cfg, store, symbols); err != nil {
			slog.Error("live loop exited with error", "err", err)
			os.Exit(1)
		}
	default:
		slog.Error("unknown mode", "mode", *mode)
		os.Exit(1)
	}

	slog.Info("scalper stopped cleanly")
}

// parseWindow parses the date flags; a missing window defaults to the
// trailing month.
func parseWindow(startStr, endStr string) (time.Time, time.Time, error) {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, -1, 0)

	var err error
	if startStr != "" {
		if start, err = time.Parse("2006-01-02", startStr); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse start %q: %w", startStr, err)
		}
	}
	if endStr != "" {
		if end, err = time.Parse("2006-01-02", endStr); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse end %q: %w", endStr, err)
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end %s before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	return start, end, nil
}

func splitSymbols(list string) []string {
	var symbols []string
	for _, s := range strings.Split(list, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
