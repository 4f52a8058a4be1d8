package pricing

// premium.go: closed-form premium approximation for same-day contracts.
//
// This is deliberately a placeholder model, not a calibrated surface:
// fixed time-to-expiry (~1 hour left), fixed risk-free rate, and an IV
// read off a market-wide volatility index. Good enough to drive the
// strategy's relative P&L math in replay; never used for real quoting.

import (
	"math"

	"github.com/davidrc/gapscalp/internal/domain"
)

const (
	// DefaultTTE is ~1 trading hour expressed in years, the assumed
	// time left on a 0DTE contract at decision time.
	DefaultTTE = 0.0027

	riskFreeRate = 0.04
	volIndex     = 20.0 // market-wide vol index level
	// MinPremium floors the result so downstream P&L math never sees a
	// zero or negative premium.
	MinPremium = 0.01
)

// Estimate prices a near-expiry contract with the default time left.
func Estimate(underlying, strike float64, typ domain.OptionType) float64 {
	return EstimateAt(underlying, strike, typ, DefaultTTE)
}

// EstimateAt prices a contract with an explicit time-to-expiry in years.
// T <= 0 falls back to intrinsic value. Strictly increasing in the
// underlying for calls, strictly decreasing for puts.
func EstimateAt(underlying, strike float64, typ domain.OptionType, tte float64) float64 {
	if underlying <= 0 || strike <= 0 {
		return MinPremium
	}

	if tte <= 0 {
		return floor(intrinsic(underlying, strike, typ))
	}

	sigma := volIndex / 100
	sqrtT := math.Sqrt(tte)
	d1 := (math.Log(underlying/strike) + (riskFreeRate+0.5*sigma*sigma)*tte) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT

	discount := math.Exp(-riskFreeRate * tte)
	var premium float64
	if typ == domain.Call {
		premium = underlying*normCDF(d1) - strike*discount*normCDF(d2)
	} else {
		premium = strike*discount*normCDF(-d2) - underlying*normCDF(-d1)
	}
	return floor(premium)
}

func intrinsic(underlying, strike float64, typ domain.OptionType) float64 {
	if typ == domain.Call {
		return math.Max(0, underlying-strike)
	}
	return math.Max(0, strike-underlying)
}

func floor(premium float64) float64 {
	return math.Max(MinPremium, premium)
}

// normCDF is the standard normal CDF Φ(x).
func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}
