package scoring

import (
	"fmt"
	"math"
)

// Component names, fixed across the pipeline and the certificate.
const (
	ComponentVegetationTrend    = "vegetation_trend"
	ComponentFarmingConsistency = "farming_consistency"
	ComponentNoDeforestation    = "no_deforestation"
	ComponentClimateResilience  = "climate_resilience"
)

// componentOrder is the canonical breakdown order.
var componentOrder = []string{
	ComponentVegetationTrend,
	ComponentFarmingConsistency,
	ComponentNoDeforestation,
	ComponentClimateResilience,
}

// InvalidWeightConfigurationError is returned when the configured component
// weights cannot produce a 0..100 overall score.
type InvalidWeightConfigurationError struct {
	Reason string
	Sum    float64
}

func (e *InvalidWeightConfigurationError) Error() string {
	return fmt.Sprintf("invalid weight configuration: %s (sum %.4f)", e.Reason, e.Sum)
}

// Component is one scored dimension with its weight and a human-readable
// rationale. Values are 0..100; weights are 0..1.
type Component struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Weight    float64 `json:"weight"`
	Rationale string  `json:"rationale"`
}

// Weights is the component weight configuration.
type Weights struct {
	Trend         float64 `json:"trend"`
	Consistency   float64 `json:"consistency"`
	Deforestation float64 `json:"deforestation"`
	Climate       float64 `json:"climate"`
}

// DefaultWeights returns the production weighting: deforestation dominates,
// then trend, consistency, climate.
func DefaultWeights() Weights {
	return Weights{
		Trend:         0.30,
		Consistency:   0.20,
		Deforestation: 0.35,
		Climate:       0.15,
	}
}

const weightSumTolerance = 1e-3

// Validate checks that every weight is in [0, 1] and the weights sum to 1
// within tolerance.
func (w Weights) Validate() error {
	for name, v := range w.byName() {
		if v < 0 || v > 1 {
			return &InvalidWeightConfigurationError{
				Reason: fmt.Sprintf("weight %s=%.4f outside [0, 1]", name, v),
				Sum:    w.sum(),
			}
		}
	}
	if math.Abs(w.sum()-1) > weightSumTolerance {
		return &InvalidWeightConfigurationError{Reason: "weights must sum to 1", Sum: w.sum()}
	}
	return nil
}

func (w Weights) sum() float64 {
	return w.Trend + w.Consistency + w.Deforestation + w.Climate
}

func (w Weights) byName() map[string]float64 {
	return map[string]float64{
		ComponentVegetationTrend:    w.Trend,
		ComponentFarmingConsistency: w.Consistency,
		ComponentNoDeforestation:    w.Deforestation,
		ComponentClimateResilience:  w.Climate,
	}
}

// SustainabilityScore is the aggregated result with its full breakdown. The
// factor lists summarize the breakdown for narratives and audit trails; the
// grade is presentation only and never feeds the loan decision.
type SustainabilityScore struct {
	Overall         float64     `json:"overall"`
	Grade           string      `json:"grade"`
	Components      []Component `json:"components"`
	RiskFactors     []string    `json:"risk_factors"`
	PositiveFactors []string    `json:"positive_factors"`
}

// Component returns the named component from the breakdown.
func (s *SustainabilityScore) Component(name string) (Component, bool) {
	for _, c := range s.Components {
		if c.Name == name {
			return c, true
		}
	}
	return Component{}, false
}

// Aggregator combines the four component scores into the overall
// sustainability score. Weights are validated at construction; aggregation
// itself is pure and order-independent.
type Aggregator struct {
	weights Weights
}

// NewAggregator creates an aggregator with validated weights.
func NewAggregator(w Weights) (*Aggregator, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{weights: w}, nil
}

// Aggregate computes the weighted overall score. Exactly the four known
// components must be present, in any order; the aggregator stamps the
// configured weight on each and emits the breakdown in canonical order.
func (a *Aggregator) Aggregate(components []Component) (*SustainabilityScore, error) {
	byName := make(map[string]Component, len(components))
	for _, c := range components {
		if _, dup := byName[c.Name]; dup {
			return nil, fmt.Errorf("duplicate component %q", c.Name)
		}
		if c.Value < 0 || c.Value > 100 || math.IsNaN(c.Value) {
			return nil, fmt.Errorf("component %q value %.2f outside [0, 100]", c.Name, c.Value)
		}
		byName[c.Name] = c
	}

	weights := a.weights.byName()
	ordered := make([]Component, 0, len(componentOrder))
	overall := 0.0
	for _, name := range componentOrder {
		c, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("missing component %q", name)
		}
		c.Weight = weights[name]
		overall += c.Value * c.Weight
		ordered = append(ordered, c)
		delete(byName, name)
	}
	if len(byName) > 0 {
		for name := range byName {
			return nil, fmt.Errorf("unknown component %q", name)
		}
	}

	score := &SustainabilityScore{
		Overall:    round2(overall),
		Components: ordered,
	}
	score.Grade = gradeFor(score.Overall)
	score.RiskFactors, score.PositiveFactors = deriveFactors(ordered)
	return score, nil
}

func gradeFor(overall float64) string {
	switch {
	case overall >= 80:
		return "A"
	case overall >= 65:
		return "B"
	case overall >= 50:
		return "C"
	case overall >= 35:
		return "D"
	default:
		return "F"
	}
}

// factor labels by component, used for both directions of the summary.
var factorLabels = map[string][2]string{
	ComponentVegetationTrend:    {"declining vegetation health", "healthy vegetation trend"},
	ComponentFarmingConsistency: {"irregular farming activity", "consistent farming activity"},
	ComponentNoDeforestation:    {"recent deforestation on the plot", "no deforestation detected"},
	ComponentClimateResilience:  {"high climate stress exposure", "favourable climate conditions"},
}

func deriveFactors(components []Component) (risks, positives []string) {
	for _, c := range components {
		labels := factorLabels[c.Name]
		switch {
		case c.Value < 40:
			risks = append(risks, labels[0])
		case c.Value > 70:
			positives = append(positives, labels[1])
		}
	}
	return risks, positives
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
