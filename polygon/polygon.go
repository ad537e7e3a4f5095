/*
Package polygon builds planar polygon obstacles.

Polygons are assembled with a small builder and may be placed with an affine
transform. A Set unions any number of polygons (using polyclip-go) and
answers point containment queries, which is what map layers need.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package polygon

import (
	"bytes"
	"fmt"
	"math"

	polyclip "github.com/akavel/polyclip-go"
	"github.com/npillmayer/kinoplan"
	"github.com/npillmayer/schuko/tracing"
)

// L traces to key 'kinoplan.polygon'.
func L() tracing.Trace {
	return tracing.Select("kinoplan.polygon")
}

// Polygon is a closed polygon in the plane.
type Polygon struct {
	c polyclip.Contour
}

// Builder collects knots for a polygon.
type Builder struct {
	knots []kinoplan.Vec2
}

// NullPolygon starts a new polygon without any knots.
func NullPolygon() *Builder {
	return &Builder{}
}

// Knot appends a knot.
func (b *Builder) Knot(p kinoplan.Vec2) *Builder {
	b.knots = append(b.knots, p)
	return b
}

// Cycle closes the polygon. Consecutive duplicate knots are dropped.
func (b *Builder) Cycle() Polygon {
	var pg Polygon
	for i, k := range b.knots {
		if i > 0 && kinoplan.Equal(k, b.knots[i-1]) {
			continue
		}
		pg.c.Add(polyclip.Point{X: k[0], Y: k[1]})
	}
	if n := len(pg.c); n > 1 && pg.c[0] == pg.c[n-1] {
		pg.c = pg.c[:n-1]
	}
	return pg
}

// Box creates an axis-aligned rectangle from two opposite corners.
func Box(p1, p2 kinoplan.Vec2) Polygon {
	lo := kinoplan.V2(math.Min(p1[0], p2[0]), math.Min(p1[1], p2[1]))
	hi := kinoplan.V2(math.Max(p1[0], p2[0]), math.Max(p1[1], p2[1]))
	return NullPolygon().Knot(lo).Knot(kinoplan.V2(hi[0], lo[1])).
		Knot(hi).Knot(kinoplan.V2(lo[0], hi[1])).Cycle()
}

// N returns the number of knots.
func (pg Polygon) N() int {
	return len(pg.c)
}

// Knot returns knot i.
func (pg Polygon) Knot(i int) kinoplan.Vec2 {
	return kinoplan.V2(pg.c[i].X, pg.c[i].Y)
}

// Transformed returns a copy of pg with every knot transformed by m.
func (pg Polygon) Transformed(m kinoplan.AT) Polygon {
	b := NullPolygon()
	for i := 0; i < pg.N(); i++ {
		b.Knot(m.Apply(pg.Knot(i)))
	}
	return b.Cycle()
}

// Contains is a predicate: is p inside pg?
func (pg Polygon) Contains(p kinoplan.Vec2) bool {
	return pg.N() > 2 && pg.c.Contains(polyclip.Point{X: p[0], Y: p[1]})
}

// Edges calls f for every edge of pg, closing edge included.
func (pg Polygon) Edges(f func(a, b kinoplan.Vec2)) {
	for i := 0; i < pg.N(); i++ {
		f(pg.Knot(i), pg.Knot((i+1)%pg.N()))
	}
}

// AsString returns a MetaPost-like notation of pg.
func AsString(pg Polygon) string {
	var s bytes.Buffer
	for i := 0; i < pg.N(); i++ {
		s.WriteString(kinoplan.Format(pg.Knot(i)))
		s.WriteString("--")
	}
	s.WriteString("cycle")
	return s.String()
}

// === Polygon Sets ==========================================================

// Set is the union of polygons. The zero value is an empty set.
type Set struct {
	pg polyclip.Polygon
}

// Add unions pg into the set. Degenerate polygons are ignored.
func (s *Set) Add(pg Polygon) {
	if pg.N() < 3 {
		L().Errorf("ignoring degenerate polygon %s", AsString(pg))
		return
	}
	clip := polyclip.Polygon{pg.c}
	if len(s.pg) == 0 {
		s.pg = clip
		return
	}
	s.pg = s.pg.Construct(polyclip.UNION, clip)
	L().P("contours", len(s.pg)).Debugf("added polygon %s", AsString(pg))
}

// Contours returns the contours of the union, holes included.
func (s *Set) Contours() []Polygon {
	pgs := make([]Polygon, len(s.pg))
	for i, c := range s.pg {
		pgs[i] = Polygon{c: c}
	}
	return pgs
}

// Contains is a predicate: is p inside the union? Holes count by the
// even-odd rule.
func (s *Set) Contains(p kinoplan.Vec2) bool {
	pt := polyclip.Point{X: p[0], Y: p[1]}
	inside := false
	for _, c := range s.pg {
		if len(c) > 2 && c.Contains(pt) {
			inside = !inside
		}
	}
	return inside
}

// Empty is a predicate: does the set contain no polygon?
func (s *Set) Empty() bool {
	return len(s.pg) == 0
}

func (s *Set) String() string {
	return fmt.Sprintf("polygon-set{%d contours}", len(s.pg))
}
