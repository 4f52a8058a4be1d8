package domain

import "time"

// Position is one open option lot. An agent owns at most one per symbol;
// it is constructed fresh on entry and replaced (never field-patched)
// when the position resets to flat.
type Position struct {
	Direction       OptionType
	Strike          float64
	EntryPremium    float64
	AvgPremium      float64
	Size            int
	HasAveragedDown bool
	HasTrimmed      bool
	EntryUnderlying float64
	ProfitTarget    float64 // underlying level, direction-dependent
	StopLoss        float64 // premium level, fixed at entry
	OpenedAt        time.Time
}

// PnLPct is the floating return of the lot at the given premium.
func (p *Position) PnLPct(currentPremium float64) float64 {
	if p.AvgPremium == 0 {
		return 0
	}
	return (currentPremium - p.AvgPremium) / p.AvgPremium
}

// AverageDown adds contracts at the current premium and recomputes the
// average as the cost-weighted mean of the old and new lots.
func (p *Position) AverageDown(addSize int, premium float64) {
	if addSize <= 0 {
		return
	}
	totalCost := p.AvgPremium*float64(p.Size) + premium*float64(addSize)
	p.Size += addSize
	p.AvgPremium = totalCost / float64(p.Size)
	p.HasAveragedDown = true
}

// RejectedAt reports a failed breakout off the profit-target level: for a
// call the bar traded above it but closed back below; for a put the bar
// traded below it but closed back above.
func (p *Position) RejectedAt(bar Bar) bool {
	if p.ProfitTarget == 0 {
		return false
	}
	if p.Direction == Call {
		return bar.High > p.ProfitTarget && bar.Close < p.ProfitTarget
	}
	return bar.Low < p.ProfitTarget && bar.Close > p.ProfitTarget
}
