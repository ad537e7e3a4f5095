package oracle

import (
	"math"

	"github.com/npillmayer/kinoplan"
	"github.com/npillmayer/kinoplan/polygon"
)

// PolygonMap is a rectangular planar map with polygon obstacles.
type PolygonMap struct {
	lo, hi    kinoplan.Vec2
	res       float64
	obstacles polygon.Set
	potRadius float64
}

// NewPolygonMap creates an empty map covering the box [lo, hi]. Primitives
// are checked at resolution res.
func NewPolygonMap(lo, hi kinoplan.Vec2, res float64) *PolygonMap {
	if res <= 0 {
		res = 0.1
	}
	return &PolygonMap{lo: lo, hi: hi, res: res}
}

// Add adds an obstacle.
func (m *PolygonMap) Add(pg polygon.Polygon) {
	m.obstacles.Add(pg)
}

// SetPotentialRadius switches the map to distance-map mode. r ≤ 0 turns the
// potential off.
func (m *PolygonMap) SetPotentialRadius(r float64) {
	m.potRadius = r
}

// Resolution is part of interface Oracle.
func (m *PolygonMap) Resolution() float64 {
	return m.res
}

// IsFree is part of interface Oracle.
func (m *PolygonMap) IsFree(p kinoplan.Vec2) bool {
	if p[0] < m.lo[0] || p[1] < m.lo[1] || p[0] > m.hi[0] || p[1] > m.hi[1] {
		return false
	}
	return !m.obstacles.Contains(p)
}

// nearest returns the point on any obstacle boundary closest to p.
func (m *PolygonMap) nearest(p kinoplan.Vec2) (kinoplan.Vec2, float64) {
	best, dist := p, math.Inf(1)
	for _, c := range m.obstacles.Contours() {
		c.Edges(func(a, b kinoplan.Vec2) {
			q := closestOnSegment(p, a, b)
			if d := kinoplan.Dist(p, q); d < dist {
				best, dist = q, d
			}
		})
	}
	return best, dist
}

func closestOnSegment(p, a, b kinoplan.Vec2) kinoplan.Vec2 {
	ab := kinoplan.Sub(b, a)
	l2 := kinoplan.Dot(ab, ab)
	if l2 == 0 {
		return a
	}
	s := kinoplan.Clamp(kinoplan.Dot(kinoplan.Sub(p, a), ab)/l2, 0, 1)
	return kinoplan.AddScaled(a, ab, s)
}

// Potential is part of interface DistanceField.
func (m *PolygonMap) Potential(p kinoplan.Vec2) (float64, kinoplan.Vec2) {
	var grad kinoplan.Vec2
	if m.potRadius <= 0 {
		return 0, grad
	}
	if !m.IsFree(p) {
		return 1, grad
	}
	q, d := m.nearest(p)
	if d >= m.potRadius || d == 0 {
		return potentialOf(d, m.potRadius), grad
	}
	// dφ/dp = -2(1-d/r)/r ⋅ (p-q)/d
	s := -2 * (1 - d/m.potRadius) / (m.potRadius * d)
	return potentialOf(d, m.potRadius), kinoplan.Scale(kinoplan.Sub(p, q), s)
}

// Cloud returns points along all obstacle boundaries, spaced at the map's
// resolution.
func (m *PolygonMap) Cloud() []kinoplan.Vec2 {
	var pts []kinoplan.Vec2
	for _, c := range m.obstacles.Contours() {
		c.Edges(func(a, b kinoplan.Vec2) {
			n := max(1, int(math.Ceil(kinoplan.Dist(a, b)/m.res)))
			for j := 0; j < n; j++ {
				pts = append(pts, kinoplan.Lerp(a, b, float64(j)/float64(n)))
			}
		})
	}
	return pts
}
