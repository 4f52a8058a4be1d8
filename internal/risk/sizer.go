package risk

import "sync"

const (
	// DefaultRiskPct is the fraction of the account risked per entry.
	DefaultRiskPct = 0.07

	// contractMultiplier: one contract controls 100 underlying units.
	contractMultiplier = 100

	defaultAccountValue = 10000
)

// Sizer converts an account risk budget and a premium into a contract
// count. The mutex serializes account updates so a future parallel
// replay can share one capital pool safely.
type Sizer struct {
	mu           sync.Mutex
	accountValue float64
}

// NewSizer creates a sizer for the given starting equity.
func NewSizer(accountValue float64) *Sizer {
	if accountValue <= 0 {
		accountValue = defaultAccountValue
	}
	return &Sizer{accountValue: accountValue}
}

// Size returns the contract count for the premium at the given risk
// fraction, never less than 1 when premium > 0 so sub-dollar "lotto"
// contracts still get sized in. Invalid premium returns 0.
func (s *Sizer) Size(premium, riskPct float64) int {
	if premium <= 0 {
		return 0
	}
	if riskPct <= 0 {
		riskPct = DefaultRiskPct
	}

	s.mu.Lock()
	riskAmount := s.accountValue * riskPct
	s.mu.Unlock()

	contracts := int(riskAmount / (premium * contractMultiplier))
	if contracts < 1 {
		contracts = 1
	}
	return contracts
}

// UpdateAccountValue must be called after every realized P&L event so
// subsequent sizing compounds with equity.
func (s *Sizer) UpdateAccountValue(newValue float64) {
	s.mu.Lock()
	s.accountValue = newValue
	s.mu.Unlock()
}

// AccountValue returns the current equity.
func (s *Sizer) AccountValue() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountValue
}
