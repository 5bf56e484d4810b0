package vegetation

import (
	"fmt"
	"sort"
	"time"
)

// InsufficientDataError is returned when a requested window does not contain
// enough usable observations to score. It is terminal for the evaluation:
// the engine never substitutes a default score for missing data.
type InsufficientDataError struct {
	Usable   int
	Required int
	Window   Window
	Cause    error
}

func (e *InsufficientDataError) Error() string {
	msg := fmt.Sprintf("insufficient vegetation data: %d usable observations, need %d (window %s to %s)",
		e.Usable, e.Required,
		e.Window.Start.Format("2006-01-02"), e.Window.End.Format("2006-01-02"))
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *InsufficientDataError) Unwrap() error {
	return e.Cause
}

// Window is a closed [Start, End] lookback interval; both endpoints are
// inside the window.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Observation is a single vegetation-index sample from one satellite scene.
// Immutable once created.
type Observation struct {
	Timestamp  time.Time `json:"timestamp"`
	Index      float64   `json:"index"`       // NDVI-range value in [-1, 1]
	CloudCover float64   `json:"cloud_cover"` // fraction in [0, 1]
	SceneID    string    `json:"scene_id"`
}

// Series is an ordered vegetation-index time series for one polygon and one
// lookback window. Timestamps are strictly increasing; gaps are left absent
// rather than interpolated.
type Series struct {
	Window       Window
	Observations []Observation
}

// Len returns the number of observations.
func (s *Series) Len() int {
	return len(s.Observations)
}

// Values returns the index values in timestamp order.
func (s *Series) Values() []float64 {
	values := make([]float64, len(s.Observations))
	for i, obs := range s.Observations {
		values[i] = obs.Index
	}
	return values
}

// Mean returns the mean index value.
func (s *Series) Mean() float64 {
	if len(s.Observations) == 0 {
		return 0
	}
	sum := 0.0
	for _, obs := range s.Observations {
		sum += obs.Index
	}
	return sum / float64(len(s.Observations))
}

// SpansMultipleYears reports whether the series covers more than one calendar
// year of data, which enables season-restricted consistency scoring.
func (s *Series) SpansMultipleYears() bool {
	if len(s.Observations) < 2 {
		return false
	}
	first := s.Observations[0].Timestamp
	last := s.Observations[len(s.Observations)-1].Timestamp
	return last.Sub(first) > 365*24*time.Hour
}

// BuilderConfig controls how raw observations are normalized into a Series.
type BuilderConfig struct {
	// MaxCloudCover is the highest acceptable cloud fraction; observations
	// above it are discarded.
	MaxCloudCover float64
	// MinObservations is the minimum usable count below which the builder
	// fails with InsufficientDataError.
	MinObservations int
	// RevisitInterval is the sampling interval; one representative
	// observation (lowest cloud cover) is kept per interval.
	RevisitInterval time.Duration
}

// DefaultBuilderConfig returns the standard Sentinel-2 oriented settings.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		MaxCloudCover:   0.4,
		MinObservations: 3,
		RevisitInterval: 30 * 24 * time.Hour,
	}
}

// Builder normalizes raw per-scene samples into a clean ordered Series.
type Builder struct {
	cfg BuilderConfig
}

// NewBuilder creates a Builder, applying defaults for zero-valued settings.
func NewBuilder(cfg BuilderConfig) *Builder {
	def := DefaultBuilderConfig()
	if cfg.MaxCloudCover <= 0 {
		cfg.MaxCloudCover = def.MaxCloudCover
	}
	if cfg.MinObservations <= 0 {
		cfg.MinObservations = def.MinObservations
	}
	if cfg.RevisitInterval <= 0 {
		cfg.RevisitInterval = def.RevisitInterval
	}
	return &Builder{cfg: cfg}
}

// Build filters and collapses raw observations into a Series for the window.
// Observations outside the window or above the cloud threshold are dropped;
// within each revisit interval only the lowest-cloud observation survives.
// Intervals with no usable observation stay absent.
func (b *Builder) Build(window Window, raw []Observation) (*Series, error) {
	best := make(map[int]Observation)

	for _, obs := range raw {
		if !window.Contains(obs.Timestamp) {
			continue
		}
		if obs.CloudCover > b.cfg.MaxCloudCover {
			continue
		}
		bucket := int(obs.Timestamp.Sub(window.Start) / b.cfg.RevisitInterval)
		current, ok := best[bucket]
		if !ok || obs.CloudCover < current.CloudCover ||
			(obs.CloudCover == current.CloudCover && obs.Timestamp.Before(current.Timestamp)) {
			best[bucket] = obs
		}
	}

	observations := make([]Observation, 0, len(best))
	for _, obs := range best {
		observations = append(observations, obs)
	}
	sort.Slice(observations, func(i, j int) bool {
		return observations[i].Timestamp.Before(observations[j].Timestamp)
	})

	if len(observations) < b.cfg.MinObservations {
		return nil, &InsufficientDataError{
			Usable:   len(observations),
			Required: b.cfg.MinObservations,
			Window:   window,
		}
	}

	return &Series{Window: window, Observations: observations}, nil
}
