package weather

import (
	"context"

	"greenchain/credit-engine/internal/climate"
	"greenchain/credit-engine/internal/geometry"
	"greenchain/credit-engine/internal/vegetation"
)

// Source supplies a bounded climate anomaly for a polygon and window.
// Implementations own their transport; the engine only consumes the anomaly.
type Source interface {
	FetchAnomaly(ctx context.Context, polygon *geometry.FarmPolygon, window vegetation.Window) (climate.Anomaly, error)
}
