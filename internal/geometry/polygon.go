package geometry

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// InvalidPolygonError is returned when a farm boundary cannot be used for
// evaluation. It is terminal: no imagery is fetched for an invalid polygon.
type InvalidPolygonError struct {
	Reason string
}

func (e *InvalidPolygonError) Error() string {
	return fmt.Sprintf("invalid polygon: %s", e.Reason)
}

// Vertex is a single polygon corner in geographic coordinates.
type Vertex struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// FarmPolygon is the boundary of a single farm plot. The vertex list is stored
// open (no repeated closing vertex); the ring is closed on demand. A
// FarmPolygon constructed through NewFarmPolygon is always simple (no
// self-intersections) and has positive area.
type FarmPolygon struct {
	Vertices []Vertex `json:"vertices"`
}

// NewFarmPolygon validates raw vertices and returns a normalized polygon.
// A trailing vertex equal to the first is accepted and dropped.
func NewFarmPolygon(vertices []Vertex) (*FarmPolygon, error) {
	verts := make([]Vertex, len(vertices))
	copy(verts, vertices)

	// Drop an explicit closing vertex.
	if len(verts) >= 2 && verts[0] == verts[len(verts)-1] {
		verts = verts[:len(verts)-1]
	}

	if len(verts) < 3 {
		return nil, &InvalidPolygonError{Reason: fmt.Sprintf("need at least 3 vertices, got %d", len(verts))}
	}

	for i, v := range verts {
		if math.IsNaN(v.Lat) || math.IsNaN(v.Lon) {
			return nil, &InvalidPolygonError{Reason: fmt.Sprintf("vertex %d has NaN coordinate", i)}
		}
		if v.Lat < -90 || v.Lat > 90 {
			return nil, &InvalidPolygonError{Reason: fmt.Sprintf("vertex %d latitude %.6f out of range", i, v.Lat)}
		}
		if v.Lon < -180 || v.Lon > 180 {
			return nil, &InvalidPolygonError{Reason: fmt.Sprintf("vertex %d longitude %.6f out of range", i, v.Lon)}
		}
	}

	for i := 0; i < len(verts); i++ {
		for j := i + 1; j < len(verts); j++ {
			if verts[i] == verts[j] {
				return nil, &InvalidPolygonError{Reason: fmt.Sprintf("duplicate vertex at positions %d and %d", i, j)}
			}
		}
	}

	p := &FarmPolygon{Vertices: verts}

	if p.selfIntersects() {
		return nil, &InvalidPolygonError{Reason: "boundary is self-intersecting"}
	}
	if p.AreaSquareMeters() <= 0 {
		return nil, &InvalidPolygonError{Reason: "boundary encloses no area"}
	}

	return p, nil
}

// Ring returns the closed orb ring for the boundary.
func (p *FarmPolygon) Ring() orb.Ring {
	ring := make(orb.Ring, 0, len(p.Vertices)+1)
	for _, v := range p.Vertices {
		ring = append(ring, orb.Point{v.Lon, v.Lat})
	}
	ring = append(ring, ring[0])
	return ring
}

// AreaSquareMeters returns the geodesic area of the plot.
func (p *FarmPolygon) AreaSquareMeters() float64 {
	return math.Abs(geo.Area(orb.Polygon{p.Ring()}))
}

// AreaHectares returns the plot area in hectares.
func (p *FarmPolygon) AreaHectares() float64 {
	return p.AreaSquareMeters() / 10000
}

// Centroid returns the planar centroid, used for single-point queries against
// external data sources.
func (p *FarmPolygon) Centroid() Vertex {
	point, _ := planar.CentroidArea(orb.Polygon{p.Ring()})
	return Vertex{Lat: point.Y(), Lon: point.X()}
}

// Bound returns the bounding box of the boundary.
func (p *FarmPolygon) Bound() orb.Bound {
	return p.Ring().Bound()
}

// selfIntersects reports whether any two non-adjacent edges cross.
// orb/planar has no simplicity predicate, so the segment test is done here.
func (p *FarmPolygon) selfIntersects() bool {
	n := len(p.Vertices)
	edge := func(i int) (Vertex, Vertex) {
		return p.Vertices[i], p.Vertices[(i+1)%n]
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			// Skip adjacent edges (they share a vertex by construction).
			if j == i || (j+1)%n == i || (i+1)%n == j {
				continue
			}
			a1, a2 := edge(i)
			b1, b2 := edge(j)
			if segmentsIntersect(a1, a2, b1, b2) {
				return true
			}
		}
	}
	return false
}

func segmentsIntersect(p1, p2, q1, q2 Vertex) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	// Collinear overlap counts as an intersection.
	if d1 == 0 && onSegment(q1, q2, p1) {
		return true
	}
	if d2 == 0 && onSegment(q1, q2, p2) {
		return true
	}
	if d3 == 0 && onSegment(p1, p2, q1) {
		return true
	}
	if d4 == 0 && onSegment(p1, p2, q2) {
		return true
	}
	return false
}

func cross(a, b, c Vertex) float64 {
	return (b.Lon-a.Lon)*(c.Lat-a.Lat) - (b.Lat-a.Lat)*(c.Lon-a.Lon)
}

func onSegment(a, b, c Vertex) bool {
	return math.Min(a.Lon, b.Lon) <= c.Lon && c.Lon <= math.Max(a.Lon, b.Lon) &&
		math.Min(a.Lat, b.Lat) <= c.Lat && c.Lat <= math.Max(a.Lat, b.Lat)
}
