package domain

import "github.com/google/uuid"

// Action is what the agent wants done with the contract.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Signal reasons. The engine keys its bookkeeping off these.
const (
	ReasonEntry     = "entry"
	ReasonAvgDown   = "avg_down"
	ReasonTrim30    = "trim_30"
	ReasonTrim60    = "trim_60"
	ReasonStopLoss  = "stop_loss"
	ReasonRejection = "rejection"
)

// Signal is one actionable decision emitted by an agent. No signal on a
// bar means HOLD.
type Signal struct {
	ID         string
	Symbol     string
	Action     Action
	Size       int
	Strike     float64
	OptionType OptionType
	Strategy   string
	Confidence float64
	Reason     string
	Metadata   map[string]float64
}

// NewSignal builds a signal with a fresh ID and an allocated metadata map.
func NewSignal(symbol string, action Action, size int, strike float64, typ OptionType, strategy string, confidence float64, reason string) Signal {
	return Signal{
		ID:         uuid.New().String(),
		Symbol:     symbol,
		Action:     action,
		Size:       size,
		Strike:     strike,
		OptionType: typ,
		Strategy:   strategy,
		Confidence: confidence,
		Reason:     reason,
		Metadata:   make(map[string]float64),
	}
}

// IsTrim reports whether the signal closes only part of the position.
func (s Signal) IsTrim() bool {
	return s.Reason == ReasonTrim30 || s.Reason == ReasonTrim60
}
