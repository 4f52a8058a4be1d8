package storage

// sqlite.go: trade ledger persistence, pure Go driver (no CGo).
//
// Three tables:
//   - `runs`: one row per backtest/paper run with summary numbers.
//   - `trades`: one row per realized trade, keyed to its run.
//   - `signals`: raw signal stream from paper/live polling.

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/davidrc/gapscalp/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id              TEXT PRIMARY KEY,
    mode            TEXT     NOT NULL,
    started_at      DATETIME NOT NULL,
    start_date      DATETIME,
    end_date        DATETIME,
    symbols         TEXT     NOT NULL DEFAULT '',
    initial_capital REAL     NOT NULL DEFAULT 0,
    final_capital   REAL     NOT NULL DEFAULT 0,
    total_pnl       REAL     NOT NULL DEFAULT 0,
    total_trades    INTEGER  NOT NULL DEFAULT 0,
    win_rate        REAL     NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS trades (
    id            TEXT PRIMARY KEY,
    run_id        TEXT     NOT NULL,
    symbol        TEXT     NOT NULL,
    entry_time    DATETIME NOT NULL,
    exit_time     DATETIME NOT NULL,
    direction     TEXT     NOT NULL,
    strike        REAL     NOT NULL,
    size          INTEGER  NOT NULL,
    entry_premium REAL     NOT NULL,
    exit_premium  REAL     NOT NULL,
    pnl           REAL     NOT NULL,
    pnl_pct       REAL     NOT NULL,
    exit_reason   TEXT     NOT NULL
);

CREATE TABLE IF NOT EXISTS signals (
    id          TEXT PRIMARY KEY,
    created_at  DATETIME NOT NULL,
    symbol      TEXT     NOT NULL,
    action      TEXT     NOT NULL,
    size        INTEGER  NOT NULL,
    strike      REAL     NOT NULL,
    option_type TEXT     NOT NULL,
    strategy    TEXT     NOT NULL,
    confidence  REAL     NOT NULL,
    reason      TEXT     NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_run  ON trades(run_id);
CREATE INDEX IF NOT EXISTS idx_trades_exit ON trades(exit_time DESC);
CREATE INDEX IF NOT EXISTS idx_signals_at  ON signals(created_at DESC);
`

// SQLiteStorage implements ports.Storage.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (or creates) the database at the given path
// and applies the schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// SaveBacktest persists the run summary and its trades in one tx.
func (s *SQLiteStorage) SaveBacktest(ctx context.Context, runID, mode string, report domain.BacktestReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveBacktest: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, mode, started_at, start_date, end_date, symbols,
		                  initial_capital, final_capital, total_pnl, total_trades, win_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, mode, time.Now().UTC(), report.Start.UTC(), report.End.UTC(),
		strings.Join(report.Symbols, ","), report.InitialCapital, report.FinalCapital,
		report.TotalPnL, report.TotalTrades, report.WinRate,
	); err != nil {
		return fmt.Errorf("storage.SaveBacktest: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades (id, run_id, symbol, entry_time, exit_time, direction,
		                    strike, size, entry_premium, exit_premium, pnl, pnl_pct, exit_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveBacktest: prepare: %w", err)
	}
	defer stmt.Close()

	for _, t := range report.Trades {
		if _, err := stmt.ExecContext(ctx,
			t.ID, runID, t.Symbol, t.EntryTime.UTC(), t.ExitTime.UTC(),
			string(t.Direction), t.Strike, t.Size, t.EntryPremium, t.ExitPremium,
			t.PnL, t.PnLPct, t.Reason,
		); err != nil {
			return fmt.Errorf("storage.SaveBacktest: insert trade %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveBacktest: commit: %w", err)
	}
	return nil
}

// SaveSignal records one emitted signal.
func (s *SQLiteStorage) SaveSignal(ctx context.Context, sig domain.Signal) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO signals (id, created_at, symbol, action, size, strike,
		                     option_type, strategy, confidence, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.ID, time.Now().UTC(), sig.Symbol, string(sig.Action), sig.Size,
		sig.Strike, string(sig.OptionType), sig.Strategy, sig.Confidence, sig.Reason,
	); err != nil {
		return fmt.Errorf("storage.SaveSignal: %w", err)
	}
	return nil
}

// GetTrades returns trades whose exit time falls in [from, to], newest
// first.
func (s *SQLiteStorage) GetTrades(ctx context.Context, from, to time.Time) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, entry_time, exit_time, direction, strike, size,
		       entry_premium, exit_premium, pnl, pnl_pct, exit_reason
		FROM trades
		WHERE exit_time BETWEEN ? AND ?
		ORDER BY exit_time DESC
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("storage.GetTrades: query: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var direction string
		if err := rows.Scan(
			&t.ID, &t.Symbol, &t.EntryTime, &t.ExitTime, &direction, &t.Strike,
			&t.Size, &t.EntryPremium, &t.ExitPremium, &t.PnL, &t.PnLPct, &t.Reason,
		); err != nil {
			return nil, fmt.Errorf("storage.GetTrades: scan row: %w", err)
		}
		t.Direction = domain.OptionType(direction)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
