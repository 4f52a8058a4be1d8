package domain

import "time"

// Trade is one realized entry→exit (full or partial) in the ledger.
// Append-only; the engine writes one per SELL it reconciles.
type Trade struct {
	ID           string
	Symbol       string
	EntryTime    time.Time
	ExitTime     time.Time
	Direction    OptionType
	Strike       float64
	Size         int
	EntryPremium float64
	ExitPremium  float64
	PnL          float64
	PnLPct       float64
	Reason       string
}

// DailyPnL is the cumulative P&L snapshot taken at each date boundary.
type DailyPnL struct {
	Date    time.Time
	Symbol  string
	PnL     float64
	Capital float64
}

// BacktestReport aggregates a full replay run.
type BacktestReport struct {
	Start          time.Time
	End            time.Time
	Symbols        []string
	TotalTrades    int
	WinningTrades  int
	LosingTrades   int
	WinRate        float64 // percent
	AvgWin         float64
	AvgLoss        float64
	TotalPnL       float64
	InitialCapital float64
	FinalCapital   float64
	TotalReturnPct float64
	OpenPositions  int // lots still open when the replay ended
	Trades         []Trade
	Dailies        []DailyPnL
}
