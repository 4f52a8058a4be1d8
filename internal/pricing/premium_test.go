package pricing

import (
	"testing"

	"github.com/davidrc/gapscalp/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestEstimate_CallMonotonicInUnderlying(t *testing.T) {
	prev := 0.0
	for _, S := range []float64{95, 98, 100, 102, 105, 110} {
		p := Estimate(S, 100, domain.Call)
		assert.Greater(t, p, prev, "call premium must strictly increase with S (S=%v)", S)
		prev = p
	}
}

func TestEstimate_PutMonotonicInUnderlying(t *testing.T) {
	prev := Estimate(90, 100, domain.Put)
	for _, S := range []float64{95, 98, 100, 102, 105} {
		p := Estimate(S, 100, domain.Put)
		assert.Less(t, p, prev, "put premium must strictly decrease with S (S=%v)", S)
		prev = p
	}
}

func TestEstimate_DeepITMCallNearIntrinsic(t *testing.T) {
	// With ~1h of time left a deep ITM call is worth roughly S-K.
	p := Estimate(110, 100, domain.Call)
	assert.InDelta(t, 10.0, p, 0.5)
}

func TestEstimateAt_ZeroTTEIsIntrinsic(t *testing.T) {
	assert.InDelta(t, 5.0, EstimateAt(105, 100, domain.Call, 0), 1e-9)
	assert.InDelta(t, 5.0, EstimateAt(95, 100, domain.Put, 0), 1e-9)
}

func TestEstimateAt_ZeroTTEOTMFloorsAtMinimum(t *testing.T) {
	// OTM at expiry has zero intrinsic; result still floors at $0.01.
	assert.Equal(t, MinPremium, EstimateAt(95, 100, domain.Call, 0))
	assert.Equal(t, MinPremium, EstimateAt(105, 100, domain.Put, 0))
}

func TestEstimate_FarOTMFloorsAtMinimum(t *testing.T) {
	assert.Equal(t, MinPremium, Estimate(100, 200, domain.Call))
	assert.Equal(t, MinPremium, Estimate(200, 100, domain.Put))
}

func TestEstimate_InvalidInputsReturnFloor(t *testing.T) {
	assert.Equal(t, MinPremium, Estimate(0, 100, domain.Call))
	assert.Equal(t, MinPremium, Estimate(100, 0, domain.Put))
	assert.Equal(t, MinPremium, Estimate(-5, 100, domain.Call))
}

func TestEstimate_ATMCallAboveATMPut(t *testing.T) {
	// Positive rates: ATM forward sits slightly above spot.
	call := Estimate(100, 100, domain.Call)
	put := Estimate(100, 100, domain.Put)
	assert.Greater(t, call, put)
	assert.Greater(t, put, 0.0)
}

func TestNormCDF(t *testing.T) {
	assert.InDelta(t, 0.5, normCDF(0), 1e-12)
	assert.InDelta(t, 0.8413, normCDF(1), 0.0001)
	assert.InDelta(t, 0.1587, normCDF(-1), 0.0001)
}
