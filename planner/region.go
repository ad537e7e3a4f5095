package planner

import (
	"math"

	"github.com/npillmayer/kinoplan"
)

type cell [3]int64

// region is a set of grid cells around a guiding path.
type region[V kinoplan.Vector] struct {
	res   float64
	cells map[cell]struct{}
}

func newRegion[V kinoplan.Vector](path []V, radius V, res float64) *region[V] {
	r := &region[V]{res: res, cells: make(map[cell]struct{})}
	r.mark(path[0], radius)
	for i := 1; i < len(path); i++ {
		a, b := path[i-1], path[i]
		steps := int(math.Ceil(kinoplan.Dist(a, b) / (res / 2)))
		for j := 1; j <= steps; j++ {
			r.mark(kinoplan.Lerp(a, b, float64(j)/float64(steps)), radius)
		}
	}
	return r
}

func (r *region[V]) cellOf(p V) cell {
	var c cell
	for i := 0; i < len(p); i++ {
		c[i] = int64(math.Floor(p[i] / r.res))
	}
	return c
}

// mark adds all cells overlapping the box of half-size radius around p.
func (r *region[V]) mark(p V, radius V) {
	lo := r.cellOf(kinoplan.Sub(p, radius))
	hi := r.cellOf(kinoplan.Add(p, radius))
	var c cell
	var walk func(d int)
	walk = func(d int) {
		if d == len(p) {
			r.cells[c] = struct{}{}
			return
		}
		for k := lo[d]; k <= hi[d]; k++ {
			c[d] = k
			walk(d + 1)
		}
	}
	walk(0)
}

func (r *region[V]) contains(p V) bool {
	_, ok := r.cells[r.cellOf(p)]
	return ok
}

func (r *region[V]) size() int {
	return len(r.cells)
}

func (r *region[V]) centers() []V {
	cs := make([]V, 0, len(r.cells))
	for c := range r.cells {
		var v V
		for i := 0; i < len(v); i++ {
			v[i] = (float64(c[i]) + 0.5) * r.res
		}
		cs = append(cs, v)
	}
	return cs
}
