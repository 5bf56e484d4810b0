package vegetation

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// TrendConfig holds the tunable bounds of the trend and consistency scores.
type TrendConfig struct {
	// StabilityEpsilon is the slope magnitude (index units per month) below
	// which the series counts as stable.
	StabilityEpsilon float64
	// StableScore is the neutral score for a stable series.
	StableScore float64
	// SlopeGain converts slope per month into score points around StableScore.
	SlopeGain float64
	// BareSoilThreshold is the series mean below which the plot is treated
	// as bare soil and both scores are floored.
	BareSoilThreshold float64
	// BareSoilScore is the floor applied to bare-soil plots.
	BareSoilScore float64
	// ConsistencyPenalty scales the coefficient of variation into a score
	// deduction.
	ConsistencyPenalty float64
}

// DefaultTrendConfig returns the production scoring parameters.
func DefaultTrendConfig() TrendConfig {
	return TrendConfig{
		StabilityEpsilon:   0.01,
		StableScore:        70,
		SlopeGain:          600,
		BareSoilThreshold:  0.2,
		BareSoilScore:      15,
		ConsistencyPenalty: 1.5,
	}
}

// TrendResult is the outcome of trend scoring for one series.
type TrendResult struct {
	Score         float64
	SlopePerMonth float64
	NoVegetation  bool
	Rationale     string
}

// ConsistencyResult is the outcome of consistency scoring for one series.
type ConsistencyResult struct {
	Score        float64
	CV           float64
	Seasonal     bool
	NoVegetation bool
	Rationale    string
}

// TrendAnalyzer scores vegetation trend and farming consistency. Both scores
// are pure functions of the series; the analyzer holds no state beyond its
// configuration.
type TrendAnalyzer struct {
	cfg TrendConfig
}

// NewTrendAnalyzer creates an analyzer, applying defaults for zero settings.
func NewTrendAnalyzer(cfg TrendConfig) *TrendAnalyzer {
	def := DefaultTrendConfig()
	if cfg.StabilityEpsilon <= 0 {
		cfg.StabilityEpsilon = def.StabilityEpsilon
	}
	if cfg.StableScore <= 0 {
		cfg.StableScore = def.StableScore
	}
	if cfg.SlopeGain <= 0 {
		cfg.SlopeGain = def.SlopeGain
	}
	if cfg.BareSoilThreshold <= 0 {
		cfg.BareSoilThreshold = def.BareSoilThreshold
	}
	if cfg.BareSoilScore <= 0 {
		cfg.BareSoilScore = def.BareSoilScore
	}
	if cfg.ConsistencyPenalty <= 0 {
		cfg.ConsistencyPenalty = def.ConsistencyPenalty
	}
	return &TrendAnalyzer{cfg: cfg}
}

// TrendScore fits a linear regression of index on elapsed days and maps the
// slope to a 0..100 score. Growing vegetation scores above the stable
// baseline, declining vegetation below it.
func (a *TrendAnalyzer) TrendScore(s *Series) (TrendResult, error) {
	if s == nil || s.Len() < 2 {
		return TrendResult{}, fmt.Errorf("trend score: series needs at least 2 observations")
	}

	if s.Mean() < a.cfg.BareSoilThreshold {
		return TrendResult{
			Score:        a.cfg.BareSoilScore,
			NoVegetation: true,
			Rationale:    "no vegetation detected",
		}, nil
	}

	slope, err := a.slopePerMonth(s)
	if err != nil {
		return TrendResult{}, fmt.Errorf("trend score: %w", err)
	}

	if math.Abs(slope) <= a.cfg.StabilityEpsilon {
		return TrendResult{
			Score:         a.cfg.StableScore,
			SlopePerMonth: slope,
			Rationale:     "stable vegetation trend",
		}, nil
	}

	score := clamp(a.cfg.StableScore+a.cfg.SlopeGain*slope, 0, 100)
	rationale := fmt.Sprintf("vegetation index declining %.4f per month", -slope)
	if slope > 0 {
		rationale = fmt.Sprintf("vegetation index improving %.4f per month", slope)
	}
	return TrendResult{Score: score, SlopePerMonth: slope, Rationale: rationale}, nil
}

// ConsistencyScore measures how regular the farming signal is via the
// coefficient of variation. When the series spans multiple years the
// comparison is restricted to the season matching the window end, so that
// ordinary seasonal swings do not read as inconsistency.
func (a *TrendAnalyzer) ConsistencyScore(s *Series) (ConsistencyResult, error) {
	if s == nil || s.Len() < 2 {
		return ConsistencyResult{}, fmt.Errorf("consistency score: series needs at least 2 observations")
	}

	if s.Mean() < a.cfg.BareSoilThreshold {
		return ConsistencyResult{
			Score:        a.cfg.BareSoilScore,
			NoVegetation: true,
			Rationale:    "no vegetation detected",
		}, nil
	}

	values := s.Values()
	seasonal := false
	if s.SpansMultipleYears() {
		subset := seasonalSubset(s)
		if len(subset) >= 2 {
			values = subset
			seasonal = true
		}
	}

	mean, err := stats.Mean(values)
	if err != nil {
		return ConsistencyResult{}, fmt.Errorf("consistency score: %w", err)
	}
	sd, err := stats.StandardDeviation(values)
	if err != nil {
		return ConsistencyResult{}, fmt.Errorf("consistency score: %w", err)
	}
	if mean == 0 {
		return ConsistencyResult{}, fmt.Errorf("consistency score: zero-mean series")
	}

	cv := sd / mean
	score := clamp(100*(1-a.cfg.ConsistencyPenalty*cv), 0, 100)
	rationale := fmt.Sprintf("index variation %.1f%% across the window", 100*cv)
	if seasonal {
		rationale = fmt.Sprintf("index variation %.1f%% across matching seasons", 100*cv)
	}
	return ConsistencyResult{Score: score, CV: cv, Seasonal: seasonal, Rationale: rationale}, nil
}

// slopePerMonth fits index against elapsed days and converts the fitted slope
// to index units per 30-day month. stats.LinearRegression returns the fitted
// points rather than coefficients, so the slope is taken from the fitted
// endpoints.
func (a *TrendAnalyzer) slopePerMonth(s *Series) (float64, error) {
	coords := make([]stats.Coordinate, s.Len())
	start := s.Observations[0].Timestamp
	for i, obs := range s.Observations {
		coords[i] = stats.Coordinate{
			X: obs.Timestamp.Sub(start).Hours() / 24,
			Y: obs.Index,
		}
	}

	fitted, err := stats.LinearRegression(coords)
	if err != nil {
		return 0, err
	}

	first := fitted[0]
	last := fitted[len(fitted)-1]
	dx := last.X - first.X
	if dx == 0 {
		return 0, fmt.Errorf("series has no time extent")
	}
	return (last.Y - first.Y) / dx * 30, nil
}

// seasonalSubset returns the index values whose month falls in the same
// meteorological season as the window end.
func seasonalSubset(s *Series) []float64 {
	target := seasonOf(int(s.Window.End.Month()))
	var subset []float64
	for _, obs := range s.Observations {
		if seasonOf(int(obs.Timestamp.Month())) == target {
			subset = append(subset, obs.Index)
		}
	}
	return subset
}

func seasonOf(month int) int {
	switch month {
	case 12, 1, 2:
		return 0
	case 3, 4, 5:
		return 1
	case 6, 7, 8:
		return 2
	default:
		return 3
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
