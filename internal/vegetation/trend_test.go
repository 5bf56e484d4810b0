package vegetation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// monthlySeries builds a series with one observation every 30 days.
func monthlySeries(w Window, values []float64) *Series {
	s := &Series{Window: w}
	for i, v := range values {
		s.Observations = append(s.Observations, Observation{
			Timestamp:  w.Start.AddDate(0, 0, i*30),
			Index:      v,
			CloudCover: 0.1,
			SceneID:    "S2_TEST",
		})
	}
	return s
}

func TestTrendScoreStable(t *testing.T) {
	w := testWindow(180)
	s := monthlySeries(w, []float64{0.60, 0.61, 0.60, 0.59, 0.60, 0.61})

	a := NewTrendAnalyzer(DefaultTrendConfig())
	res, err := a.TrendScore(s)
	require.NoError(t, err)
	assert.InDelta(t, 70, res.Score, 1e-9)
	assert.Equal(t, "stable vegetation trend", res.Rationale)
}

func TestTrendScoreImproving(t *testing.T) {
	w := testWindow(180)
	s := monthlySeries(w, []float64{0.40, 0.44, 0.48, 0.52, 0.56, 0.60})

	a := NewTrendAnalyzer(DefaultTrendConfig())
	res, err := a.TrendScore(s)
	require.NoError(t, err)
	// slope is 0.04 per month: 70 + 600*0.04 = 94
	assert.InDelta(t, 94, res.Score, 0.5)
	assert.Greater(t, res.SlopePerMonth, 0.0)
}

func TestTrendScoreDeclining(t *testing.T) {
	w := testWindow(180)
	s := monthlySeries(w, []float64{0.60, 0.56, 0.52, 0.48, 0.44, 0.40})

	a := NewTrendAnalyzer(DefaultTrendConfig())
	res, err := a.TrendScore(s)
	require.NoError(t, err)
	assert.InDelta(t, 46, res.Score, 0.5)
	assert.Less(t, res.SlopePerMonth, 0.0)
}

func TestTrendScoreClampedToBounds(t *testing.T) {
	w := testWindow(180)
	crash := monthlySeries(w, []float64{0.90, 0.70, 0.55, 0.45, 0.40, 0.35})

	a := NewTrendAnalyzer(DefaultTrendConfig())
	res, err := a.TrendScore(crash)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Score, 0.0)
	assert.LessOrEqual(t, res.Score, 100.0)
}

func TestTrendScoreBareSoil(t *testing.T) {
	w := testWindow(180)
	s := monthlySeries(w, []float64{0.10, 0.12, 0.11, 0.09, 0.10, 0.11})

	a := NewTrendAnalyzer(DefaultTrendConfig())
	res, err := a.TrendScore(s)
	require.NoError(t, err)
	assert.InDelta(t, 15, res.Score, 1e-9)
	assert.True(t, res.NoVegetation)
	assert.Equal(t, "no vegetation detected", res.Rationale)
}

func TestConsistencyScoreSteadySeries(t *testing.T) {
	w := testWindow(180)
	s := monthlySeries(w, []float64{0.60, 0.61, 0.60, 0.59, 0.60, 0.61})

	a := NewTrendAnalyzer(DefaultTrendConfig())
	res, err := a.ConsistencyScore(s)
	require.NoError(t, err)
	assert.Greater(t, res.Score, 90.0)
	assert.False(t, res.Seasonal)
}

func TestConsistencyScoreErraticSeries(t *testing.T) {
	w := testWindow(180)
	steady := monthlySeries(w, []float64{0.60, 0.61, 0.60, 0.59, 0.60, 0.61})
	erratic := monthlySeries(w, []float64{0.25, 0.75, 0.30, 0.70, 0.28, 0.72})

	a := NewTrendAnalyzer(DefaultTrendConfig())
	steadyRes, err := a.ConsistencyScore(steady)
	require.NoError(t, err)
	erraticRes, err := a.ConsistencyScore(erratic)
	require.NoError(t, err)
	assert.Less(t, erraticRes.Score, steadyRes.Score)
}

func TestConsistencyScoreUsesSeasonalSubsetAcrossYears(t *testing.T) {
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	w := Window{Start: end.AddDate(-2, 0, 0), End: end}

	// Strong but regular seasonal cycle over two years. Whole-series CV is
	// large; same-season CV is small.
	s := &Series{Window: w}
	for i := 0; i < 24; i++ {
		ts := w.Start.AddDate(0, i, 0)
		index := 0.30
		switch int(ts.Month()) {
		case 6, 7, 8:
			index = 0.75
		case 3, 4, 5:
			index = 0.55
		case 9, 10, 11:
			index = 0.45
		}
		s.Observations = append(s.Observations, Observation{Timestamp: ts, Index: index, CloudCover: 0.1})
	}

	a := NewTrendAnalyzer(DefaultTrendConfig())
	res, err := a.ConsistencyScore(s)
	require.NoError(t, err)
	assert.True(t, res.Seasonal)
	assert.Greater(t, res.Score, 80.0)
}

func TestConsistencyScoreBareSoil(t *testing.T) {
	w := testWindow(180)
	s := monthlySeries(w, []float64{0.10, 0.12, 0.11, 0.09, 0.10, 0.11})

	a := NewTrendAnalyzer(DefaultTrendConfig())
	res, err := a.ConsistencyScore(s)
	require.NoError(t, err)
	assert.InDelta(t, 15, res.Score, 1e-9)
	assert.True(t, res.NoVegetation)
}
