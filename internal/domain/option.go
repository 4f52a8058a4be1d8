package domain

import "time"

// OptionType is the contract side: call or put.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// OptionQuote is one row of an options chain.
type OptionQuote struct {
	Strike     float64
	Type       OptionType
	Bid        float64
	Ask        float64
	IV         float64
	Expiration time.Time
}

// Mid returns the bid/ask midpoint, or the one-sided quote if the other is 0.
func (q OptionQuote) Mid() float64 {
	switch {
	case q.Bid > 0 && q.Ask > 0:
		return (q.Bid + q.Ask) / 2
	case q.Ask > 0:
		return q.Ask
	default:
		return q.Bid
	}
}

// NearestStrike picks from the chain the strike of the given type that is
// within `band` (fraction of price) of the underlying and closest to it.
// Returns 0, false when no contract qualifies.
func NearestStrike(chain []OptionQuote, price float64, typ OptionType, band float64) (float64, bool) {
	best := 0.0
	bestDist := price * band
	found := false
	for _, q := range chain {
		if q.Type != typ {
			continue
		}
		dist := q.Strike - price
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			best = q.Strike
			bestDist = dist
			found = true
		}
	}
	return best, found
}
