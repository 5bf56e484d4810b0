package vegetation

import (
	"fmt"
	"math"
	"time"
)

// ChangeConfig holds the deforestation detection parameters.
type ChangeConfig struct {
	// DeclineThreshold is the relative baseline-to-recent decline above
	// which a drop is considered significant.
	DeclineThreshold float64
	// MinQuarterObservations is the minimum usable observation count in each
	// comparison quarter.
	MinQuarterObservations int
}

// DefaultChangeConfig returns the production detection parameters.
func DefaultChangeConfig() ChangeConfig {
	return ChangeConfig{
		DeclineThreshold:       0.30,
		MinQuarterObservations: 2,
	}
}

// ChangeResult is the outcome of deforestation detection over one long-window
// series.
type ChangeResult struct {
	Flagged         bool
	Score           float64
	BaselineMean    float64
	RecentMean      float64
	RelativeDecline float64
	Rationale       string
}

// ChangeDetector compares the first quarter of a long lookback window against
// the last quarter and flags sustained vegetation loss. A drop must be both
// large and sustained to flag: every recent observation has to sit below every
// baseline observation, so a single harvest dip does not trip the veto.
type ChangeDetector struct {
	cfg ChangeConfig
}

// NewChangeDetector creates a detector, applying defaults for zero settings.
func NewChangeDetector(cfg ChangeConfig) *ChangeDetector {
	def := DefaultChangeConfig()
	if cfg.DeclineThreshold <= 0 {
		cfg.DeclineThreshold = def.DeclineThreshold
	}
	if cfg.MinQuarterObservations <= 0 {
		cfg.MinQuarterObservations = def.MinQuarterObservations
	}
	return &ChangeDetector{cfg: cfg}
}

// Detect runs sustained-loss detection on the series.
func (d *ChangeDetector) Detect(s *Series) (ChangeResult, error) {
	if s == nil {
		return ChangeResult{}, fmt.Errorf("change detection: nil series")
	}

	quarter := s.Window.Duration() / 4
	baselineEnd := s.Window.Start.Add(quarter)
	recentStart := s.Window.End.Add(-quarter)

	var baseline, recent []Observation
	for _, obs := range s.Observations {
		if obs.Timestamp.Before(baselineEnd) {
			baseline = append(baseline, obs)
		}
		if !obs.Timestamp.Before(recentStart) {
			recent = append(recent, obs)
		}
	}

	if len(baseline) < d.cfg.MinQuarterObservations || len(recent) < d.cfg.MinQuarterObservations {
		usable := len(baseline)
		if len(recent) < usable {
			usable = len(recent)
		}
		return ChangeResult{}, &InsufficientDataError{
			Usable:   usable,
			Required: d.cfg.MinQuarterObservations,
			Window:   s.Window,
		}
	}

	baselineMean := meanOf(baseline)
	recentMean := meanOf(recent)

	result := ChangeResult{
		BaselineMean: baselineMean,
		RecentMean:   recentMean,
	}

	// A near-zero baseline means there was no vegetation to lose.
	if baselineMean <= 0.05 {
		result.Score = 100
		result.Rationale = "no vegetated baseline to compare against"
		return result, nil
	}

	decline := (baselineMean - recentMean) / baselineMean
	result.RelativeDecline = decline

	sustained := maxIndex(recent) < minIndex(baseline)

	if decline > d.cfg.DeclineThreshold && sustained {
		result.Flagged = true
		result.Score = math.Round(100 * (1 - math.Min(1, 2*decline)))
		result.Rationale = fmt.Sprintf("sustained vegetation loss of %.0f%% against baseline", 100*decline)
		return result, nil
	}

	result.Score = 100
	if decline > d.cfg.DeclineThreshold {
		result.Rationale = "temporary vegetation dip, recovered within the window"
	} else {
		result.Rationale = "no significant vegetation loss"
	}
	return result, nil
}

// QuarterDuration returns the comparison quarter length for a window, exposed
// for source implementations that need to guarantee coverage.
func QuarterDuration(w Window) time.Duration {
	return w.Duration() / 4
}

func meanOf(obs []Observation) float64 {
	if len(obs) == 0 {
		return 0
	}
	sum := 0.0
	for _, o := range obs {
		sum += o.Index
	}
	return sum / float64(len(obs))
}

func minIndex(obs []Observation) float64 {
	m := math.Inf(1)
	for _, o := range obs {
		if o.Index < m {
			m = o.Index
		}
	}
	return m
}

func maxIndex(obs []Observation) float64 {
	m := math.Inf(-1)
	for _, o := range obs {
		if o.Index > m {
			m = o.Index
		}
	}
	return m
}
