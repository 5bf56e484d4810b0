package imagery

import (
	"context"

	"greenchain/credit-engine/internal/geometry"
	"greenchain/credit-engine/internal/vegetation"
)

// Source supplies raw vegetation observations for a polygon and window.
// Implementations own their transport concerns (auth, retries); the engine
// only sees observations or an error. Calls for disjoint windows are
// independent and may run concurrently.
type Source interface {
	FetchObservations(ctx context.Context, polygon *geometry.FarmPolygon, window vegetation.Window) ([]vegetation.Observation, error)
}
