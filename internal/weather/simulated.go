package weather

import (
	"context"
	"math"

	"greenchain/credit-engine/internal/climate"
	"greenchain/credit-engine/internal/geometry"
	"greenchain/credit-engine/internal/vegetation"
)

// SimulatedSource returns a deterministic anomaly derived from the polygon
// latitude: mild stress in temperate bands, more near the extremes. Useful
// for demos and the one-shot CLI.
type SimulatedSource struct {
	// BaseAnomaly shifts the whole curve; zero means the default 0.2.
	BaseAnomaly float64
}

// NewSimulatedSource returns a simulated weather source.
func NewSimulatedSource() *SimulatedSource {
	return &SimulatedSource{}
}

// FetchAnomaly computes the synthetic anomaly.
func (s *SimulatedSource) FetchAnomaly(_ context.Context, polygon *geometry.FarmPolygon, _ vegetation.Window) (climate.Anomaly, error) {
	base := s.BaseAnomaly
	if base <= 0 {
		base = 0.2
	}

	lat := math.Abs(polygon.Centroid().Lat)
	stress := base + 0.3*math.Abs(lat-25)/65
	value := math.Max(0, math.Min(1, stress))

	return climate.Anomaly{
		Value:           value,
		RainfallRisk:    value,
		TemperatureRisk: value * 0.8,
		FrostRisk:       value * 0.5,
		DroughtRisk:     value * 1.1,
	}, nil
}
