package vegetation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWindow(days int) Window {
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: end.AddDate(0, 0, -days), End: end}
}

func obs(w Window, day int, index, cloud float64) Observation {
	return Observation{
		Timestamp:  w.Start.AddDate(0, 0, day),
		Index:      index,
		CloudCover: cloud,
		SceneID:    "S2_TEST",
	}
}

func TestBuilderFiltersCloudyObservations(t *testing.T) {
	w := testWindow(180)
	raw := []Observation{
		obs(w, 5, 0.61, 0.1),
		obs(w, 40, 0.65, 0.9), // too cloudy
		obs(w, 70, 0.58, 0.2),
		obs(w, 130, 0.63, 0.3),
	}

	b := NewBuilder(DefaultBuilderConfig())
	s, err := b.Build(w, raw)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	for _, o := range s.Observations {
		assert.LessOrEqual(t, o.CloudCover, 0.4)
	}
}

func TestBuilderKeepsBestScenePerInterval(t *testing.T) {
	w := testWindow(180)
	raw := []Observation{
		obs(w, 2, 0.50, 0.35),
		obs(w, 12, 0.55, 0.05), // same interval, clearer
		obs(w, 40, 0.60, 0.10),
		obs(w, 75, 0.62, 0.15),
	}

	b := NewBuilder(DefaultBuilderConfig())
	s, err := b.Build(w, raw)
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
	assert.InDelta(t, 0.55, s.Observations[0].Index, 1e-9)
}

func TestBuilderOrdersObservations(t *testing.T) {
	w := testWindow(180)
	raw := []Observation{
		obs(w, 130, 0.63, 0.1),
		obs(w, 5, 0.61, 0.1),
		obs(w, 70, 0.58, 0.1),
	}

	b := NewBuilder(DefaultBuilderConfig())
	s, err := b.Build(w, raw)
	require.NoError(t, err)
	for i := 1; i < s.Len(); i++ {
		assert.True(t, s.Observations[i-1].Timestamp.Before(s.Observations[i].Timestamp))
	}
}

func TestBuilderDropsOutOfWindowObservations(t *testing.T) {
	w := testWindow(180)
	raw := []Observation{
		obs(w, -10, 0.70, 0.1),
		obs(w, 5, 0.61, 0.1),
		obs(w, 70, 0.58, 0.1),
		obs(w, 130, 0.63, 0.1),
		obs(w, 200, 0.66, 0.1),
	}

	b := NewBuilder(DefaultBuilderConfig())
	s, err := b.Build(w, raw)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	for _, o := range s.Observations {
		assert.True(t, w.Contains(o.Timestamp))
	}
}

func TestBuilderInsufficientData(t *testing.T) {
	w := testWindow(180)
	raw := []Observation{
		obs(w, 5, 0.61, 0.1),
		obs(w, 70, 0.58, 0.9), // filtered
		obs(w, 130, 0.63, 0.1),
	}

	b := NewBuilder(DefaultBuilderConfig())
	_, err := b.Build(w, raw)
	var insufficientErr *InsufficientDataError
	require.True(t, errors.As(err, &insufficientErr))
	assert.Equal(t, 2, insufficientErr.Usable)
	assert.Equal(t, 3, insufficientErr.Required)
}
