package scoring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthyComponents() []Component {
	return []Component{
		{Name: ComponentVegetationTrend, Value: 85, Rationale: "improving"},
		{Name: ComponentFarmingConsistency, Value: 90, Rationale: "steady"},
		{Name: ComponentNoDeforestation, Value: 100, Rationale: "clean"},
		{Name: ComponentClimateResilience, Value: 80, Rationale: "mild"},
	}
}

func TestAggregateWeightedSum(t *testing.T) {
	a, err := NewAggregator(DefaultWeights())
	require.NoError(t, err)

	score, err := a.Aggregate(healthyComponents())
	require.NoError(t, err)

	// 85*0.30 + 90*0.20 + 100*0.35 + 80*0.15 = 90.5
	assert.InDelta(t, 90.5, score.Overall, 1e-9)
	assert.Equal(t, "A", score.Grade)
	require.Len(t, score.Components, 4)
	assert.Equal(t, ComponentVegetationTrend, score.Components[0].Name)
	assert.InDelta(t, 0.30, score.Components[0].Weight, 1e-9)
}

func TestAggregatePermutationInvariant(t *testing.T) {
	a, err := NewAggregator(DefaultWeights())
	require.NoError(t, err)

	components := healthyComponents()
	reversed := []Component{components[3], components[2], components[1], components[0]}

	first, err := a.Aggregate(components)
	require.NoError(t, err)
	second, err := a.Aggregate(reversed)
	require.NoError(t, err)

	assert.Equal(t, first.Overall, second.Overall)
	assert.Equal(t, first.Components, second.Components)
}

func TestAggregateDerivesFactors(t *testing.T) {
	a, err := NewAggregator(DefaultWeights())
	require.NoError(t, err)

	score, err := a.Aggregate([]Component{
		{Name: ComponentVegetationTrend, Value: 30},
		{Name: ComponentFarmingConsistency, Value: 55},
		{Name: ComponentNoDeforestation, Value: 100},
		{Name: ComponentClimateResilience, Value: 85},
	})
	require.NoError(t, err)

	assert.Contains(t, score.RiskFactors, "declining vegetation health")
	assert.Contains(t, score.PositiveFactors, "no deforestation detected")
	assert.Contains(t, score.PositiveFactors, "favourable climate conditions")
	assert.NotContains(t, score.PositiveFactors, "consistent farming activity")
}

func TestAggregateRejectsMissingComponent(t *testing.T) {
	a, err := NewAggregator(DefaultWeights())
	require.NoError(t, err)

	_, err = a.Aggregate(healthyComponents()[:3])
	assert.ErrorContains(t, err, "missing component")
}

func TestAggregateRejectsOutOfRangeValue(t *testing.T) {
	a, err := NewAggregator(DefaultWeights())
	require.NoError(t, err)

	components := healthyComponents()
	components[1].Value = 130
	_, err = a.Aggregate(components)
	assert.ErrorContains(t, err, "outside [0, 100]")
}

func TestWeightsValidation(t *testing.T) {
	assert.NoError(t, DefaultWeights().Validate())

	bad := Weights{Trend: 0.5, Consistency: 0.5, Deforestation: 0.5, Climate: 0.5}
	err := bad.Validate()
	var weightErr *InvalidWeightConfigurationError
	require.True(t, errors.As(err, &weightErr))
	assert.InDelta(t, 2.0, weightErr.Sum, 1e-9)

	negative := Weights{Trend: -0.1, Consistency: 0.5, Deforestation: 0.45, Climate: 0.15}
	require.True(t, errors.As(negative.Validate(), &weightErr))
}

func TestNewAggregatorRejectsBadWeights(t *testing.T) {
	_, err := NewAggregator(Weights{Trend: 1, Consistency: 1, Deforestation: 1, Climate: 1})
	var weightErr *InvalidWeightConfigurationError
	assert.True(t, errors.As(err, &weightErr))
}

func TestGradeBreakpoints(t *testing.T) {
	cases := map[float64]string{82: "A", 80: "A", 70: "B", 55: "C", 40: "D", 20: "F"}
	for overall, grade := range cases {
		assert.Equal(t, grade, gradeFor(overall))
	}
}
