package lending

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenchain/credit-engine/internal/scoring"
)

func scoreOf(overall float64) *scoring.SustainabilityScore {
	return &scoring.SustainabilityScore{Overall: overall, Grade: "B"}
}

func validRequest() Request {
	return Request{FarmerID: "farmer-001", Amount: 10000, Purpose: "seeds"}
}

func newCalculator(t *testing.T) *Calculator {
	t.Helper()
	c, err := NewCalculator(DefaultPolicy())
	require.NoError(t, err)
	return c
}

func TestDecideLowRiskFullAmount(t *testing.T) {
	c := newCalculator(t)

	d, err := c.Decide(scoreOf(85), false, validRequest())
	require.NoError(t, err)
	assert.True(t, d.Approved)
	assert.Equal(t, TierLow, d.Tier)
	assert.InDelta(t, 10000, d.ApprovedAmount, 1e-9)
	assert.InDelta(t, 0.08, d.InterestRate, 1e-9)
}

func TestDecideTierTerms(t *testing.T) {
	c := newCalculator(t)

	cases := []struct {
		overall float64
		tier    Tier
		amount  float64
		rate    float64
	}{
		{overall: 80, tier: TierLow, amount: 10000, rate: 0.08},
		{overall: 72, tier: TierMedium, amount: 7500, rate: 0.11},
		{overall: 60, tier: TierMedium, amount: 7500, rate: 0.11},
		{overall: 45, tier: TierHigh, amount: 5000, rate: 0.15},
		{overall: 40, tier: TierHigh, amount: 5000, rate: 0.15},
	}
	for _, tc := range cases {
		d, err := c.Decide(scoreOf(tc.overall), false, validRequest())
		require.NoError(t, err)
		assert.True(t, d.Approved)
		assert.Equal(t, tc.tier, d.Tier)
		assert.InDelta(t, tc.amount, d.ApprovedAmount, 1e-9)
		assert.InDelta(t, tc.rate, d.InterestRate, 1e-9)
	}
}

func TestDecideRejectsBelowThreshold(t *testing.T) {
	c := newCalculator(t)

	d, err := c.Decide(scoreOf(35), false, validRequest())
	require.NoError(t, err)
	assert.False(t, d.Approved)
	assert.Equal(t, TierRejected, d.Tier)
	assert.Zero(t, d.ApprovedAmount)
	assert.Zero(t, d.InterestRate)
}

func TestDecideDeforestationVeto(t *testing.T) {
	c := newCalculator(t)

	// High score, but deforestation was flagged.
	d, err := c.Decide(scoreOf(92), true, validRequest())
	require.NoError(t, err)
	assert.False(t, d.Approved)
	assert.Equal(t, TierRejected, d.Tier)
	assert.Zero(t, d.ApprovedAmount)
	assert.Contains(t, d.DecisionFactors[0], "deforestation")
}

func TestDecideAppliesCeiling(t *testing.T) {
	c := newCalculator(t)

	req := validRequest()
	req.Amount = 200000
	d, err := c.Decide(scoreOf(85), false, req)
	require.NoError(t, err)
	assert.InDelta(t, 50000, d.ApprovedAmount, 1e-9)
	assert.LessOrEqual(t, d.ApprovedAmount, req.Amount)
}

func TestDecideApprovedNeverExceedsRequested(t *testing.T) {
	c := newCalculator(t)

	for _, overall := range []float64{40, 55, 60, 75, 80, 95} {
		d, err := c.Decide(scoreOf(overall), false, validRequest())
		require.NoError(t, err)
		assert.LessOrEqual(t, d.ApprovedAmount, d.RequestedAmount)
	}
}

func TestValidateRequest(t *testing.T) {
	c := newCalculator(t)

	assert.NoError(t, c.ValidateRequest(validRequest()))

	var invalidErr *InvalidLoanRequestError

	zeroAmount := validRequest()
	zeroAmount.Amount = 0
	require.True(t, errors.As(c.ValidateRequest(zeroAmount), &invalidErr))

	negative := validRequest()
	negative.Amount = -500
	require.True(t, errors.As(c.ValidateRequest(negative), &invalidErr))

	unknownPurpose := validRequest()
	unknownPurpose.Purpose = "yacht"
	require.True(t, errors.As(c.ValidateRequest(unknownPurpose), &invalidErr))
	assert.Contains(t, invalidErr.Reason, "yacht")

	noFarmer := validRequest()
	noFarmer.FarmerID = "  "
	require.True(t, errors.As(c.ValidateRequest(noFarmer), &invalidErr))
}

func TestPolicyValidation(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	inverted := DefaultPolicy()
	inverted.MediumMin = 90
	assert.Error(t, inverted.Validate())

	badMultipliers := DefaultPolicy()
	badMultipliers.HighMultiplier = 1.5
	assert.Error(t, badMultipliers.Validate())

	badPremiums := DefaultPolicy()
	badPremiums.HighPremium = 0.01
	assert.Error(t, badPremiums.Validate())
}
