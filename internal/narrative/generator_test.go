package narrative

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenchain/credit-engine/internal/lending"
	"greenchain/credit-engine/internal/scoring"
)

func approvedFixture() (*scoring.SustainabilityScore, *lending.Decision) {
	score := &scoring.SustainabilityScore{
		Overall:         82.4,
		Grade:           "A",
		PositiveFactors: []string{"no deforestation detected"},
	}
	decision := &lending.Decision{
		Approved:       true,
		Tier:           lending.TierLow,
		ApprovedAmount: 10000,
		InterestRate:   0.08,
	}
	return score, decision
}

func TestStaticGeneratorApproved(t *testing.T) {
	score, decision := approvedFixture()

	n, err := NewStaticGenerator().Generate(context.Background(), score, decision)
	require.NoError(t, err)
	assert.True(t, n.Fallback)
	assert.Contains(t, n.Text, "82.4")
	assert.Contains(t, n.Text, "approved")
	assert.Contains(t, n.Text, "LOW")
	assert.Contains(t, n.Text, "no deforestation detected")
}

func TestStaticGeneratorRejected(t *testing.T) {
	score := &scoring.SustainabilityScore{
		Overall:     25,
		Grade:       "F",
		RiskFactors: []string{"recent deforestation on the plot"},
	}
	decision := &lending.Decision{
		Approved:        false,
		Tier:            lending.TierRejected,
		DecisionFactors: []string{"deforestation detected on the plot, loan automatically rejected"},
	}

	n, err := NewStaticGenerator().Generate(context.Background(), score, decision)
	require.NoError(t, err)
	assert.Contains(t, n.Text, "not approved")
	assert.Contains(t, n.Text, "deforestation")
}

func TestBuildPromptCarriesBreakdown(t *testing.T) {
	score, decision := approvedFixture()
	score.Components = []scoring.Component{
		{Name: scoring.ComponentVegetationTrend, Value: 85, Weight: 0.30, Rationale: "improving"},
	}

	prompt := buildPrompt(score, decision)
	assert.Contains(t, prompt, "82.4")
	assert.Contains(t, prompt, "vegetation trend")
	assert.Contains(t, prompt, "weight 30%")
	assert.Contains(t, prompt, "approved, tier LOW")
}

func TestNewAnthropicGeneratorRequiresKey(t *testing.T) {
	_, err := NewAnthropicGenerator(AnthropicConfig{})
	assert.Error(t, err)
}
