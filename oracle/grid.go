package oracle

import (
	"errors"
	"fmt"
	"math"

	"github.com/emirpasic/gods/queues/arrayqueue"
	"github.com/npillmayer/kinoplan"
)

// ErrInvalidGrid flags grid parameters which do not describe a map.
var ErrInvalidGrid = errors.New("oracle: invalid grid")

// Grid is an axis-aligned occupancy grid. Cells outside of the grid are
// never free.
type Grid[V kinoplan.Vector] struct {
	origin    V         // lower corner
	res       float64   // cell size
	dims      []int     // cells per axis
	occupied  []bool    // row-major, first axis fastest
	dist      []float64 // distance to the nearest occupied cell, nil without potential
	potRadius float64
}

// NewGrid creates an empty grid with lower corner origin, extent size and
// cell size res.
func NewGrid[V kinoplan.Vector](origin, size V, res float64) (*Grid[V], error) {
	if !(res > 0) {
		return nil, fmt.Errorf("%w: resolution %g", ErrInvalidGrid, res)
	}
	g := &Grid[V]{origin: origin, res: res, dims: make([]int, len(origin))}
	n := 1
	for i := 0; i < len(size); i++ {
		if !(size[i] > 0) {
			return nil, fmt.Errorf("%w: size %s", ErrInvalidGrid, kinoplan.Format(size))
		}
		g.dims[i] = int(math.Ceil(size[i]/res - kinoplan.Epsilon))
		n *= g.dims[i]
	}
	g.occupied = make([]bool, n)
	tracer().Debugf("grid %v of %d cells, resolution %g", g.dims, n, res)
	return g, nil
}

// Resolution is part of interface Oracle.
func (g *Grid[V]) Resolution() float64 {
	return g.res
}

// Dims returns the number of cells per axis.
func (g *Grid[V]) Dims() []int {
	d := make([]int, len(g.dims))
	copy(d, g.dims)
	return d
}

// Bounds returns the lower and upper corner of the grid.
func (g *Grid[V]) Bounds() (V, V) {
	hi := g.origin
	for i := range g.dims {
		hi[i] += float64(g.dims[i]) * g.res
	}
	return g.origin, hi
}

// cellOf returns the integer cell coordinates of p.
func (g *Grid[V]) cellOf(p V) ([]int, bool) {
	c := make([]int, len(g.dims))
	inside := true
	for i := range g.dims {
		c[i] = int(math.Floor((p[i] - g.origin[i]) / g.res))
		if c[i] < 0 || c[i] >= g.dims[i] {
			inside = false
		}
	}
	return c, inside
}

func (g *Grid[V]) indexOf(c []int) int {
	idx, stride := 0, 1
	for i := range g.dims {
		idx += c[i] * stride
		stride *= g.dims[i]
	}
	return idx
}

func (g *Grid[V]) cellAt(idx int) []int {
	c := make([]int, len(g.dims))
	for i := range g.dims {
		c[i] = idx % g.dims[i]
		idx /= g.dims[i]
	}
	return c
}

func (g *Grid[V]) centerOf(c []int) V {
	var p V
	for i := range g.dims {
		p[i] = g.origin[i] + (float64(c[i])+0.5)*g.res
	}
	return p
}

// Contains is a predicate: is p within the grid's bounds?
func (g *Grid[V]) Contains(p V) bool {
	_, inside := g.cellOf(p)
	return inside
}

// IsFree is part of interface Oracle.
func (g *Grid[V]) IsFree(p V) bool {
	c, inside := g.cellOf(p)
	return inside && !g.occupied[g.indexOf(c)]
}

// Occupy marks the cell containing p as occupied. Points outside the grid
// are ignored. Invalidates the distance map.
func (g *Grid[V]) Occupy(p V) {
	if c, inside := g.cellOf(p); inside {
		g.occupied[g.indexOf(c)] = true
		g.dist = nil
	}
}

// OccupyBox marks every cell whose center lies in the box [lo, hi].
func (g *Grid[V]) OccupyBox(lo, hi V) {
	for idx := range g.occupied {
		p := g.centerOf(g.cellAt(idx))
		in := true
		for i := 0; i < len(p); i++ {
			if p[i] < lo[i] || p[i] > hi[i] {
				in = false
				break
			}
		}
		if in {
			g.occupied[idx] = true
		}
	}
	g.dist = nil
}

// Cloud returns the centers of all occupied cells.
func (g *Grid[V]) Cloud() []V {
	var pts []V
	for idx, occ := range g.occupied {
		if occ {
			pts = append(pts, g.centerOf(g.cellAt(idx)))
		}
	}
	return pts
}

// === Distance Map ==========================================================

// UpdatePotential computes the distance map up to radius and switches the
// grid to distance-map mode. It propagates, brushfire-like, the nearest
// occupied cell from cell to cell, which approximates Euclidean distances.
// Must be called again after the occupancy changes.
func (g *Grid[V]) UpdatePotential(radius float64) {
	g.potRadius = radius
	g.dist = make([]float64, len(g.occupied))
	nearest := make([]int, len(g.occupied))
	queue := arrayqueue.New()
	for idx, occ := range g.occupied {
		if occ {
			g.dist[idx] = 0
			nearest[idx] = idx
			queue.Enqueue(idx)
		} else {
			g.dist[idx] = math.Inf(1)
			nearest[idx] = -1
		}
	}
	offsets := neighbourOffsets(len(g.dims))
	limit := radius + g.res
	for !queue.Empty() {
		v, _ := queue.Dequeue()
		idx := v.(int)
		c := g.cellAt(idx)
		seed := g.centerOf(g.cellAt(nearest[idx]))
	next:
		for _, off := range offsets {
			n := make([]int, len(c))
			for i := range c {
				n[i] = c[i] + off[i]
				if n[i] < 0 || n[i] >= g.dims[i] {
					continue next
				}
			}
			nidx := g.indexOf(n)
			d := kinoplan.Dist(g.centerOf(n), seed)
			if d < g.dist[nidx] && d <= limit {
				g.dist[nidx] = d
				nearest[nidx] = nearest[idx]
				queue.Enqueue(nidx)
			}
		}
	}
	tracer().Infof("distance map updated, potential radius %g", radius)
}

// neighbourOffsets lists all offsets in {-1,0,1}^dim except the origin.
func neighbourOffsets(dim int) [][]int {
	var offs [][]int
	total := int(math.Pow(3, float64(dim)))
	for k := 0; k < total; k++ {
		off := make([]int, dim)
		zero, m := true, k
		for i := 0; i < dim; i++ {
			off[i] = m%3 - 1
			m /= 3
			if off[i] != 0 {
				zero = false
			}
		}
		if !zero {
			offs = append(offs, off)
		}
	}
	return offs
}

// HasPotential is a predicate: has the distance map been computed?
func (g *Grid[V]) HasPotential() bool {
	return g.dist != nil
}

// Distance returns the distance from p to the nearest occupied cell, +Inf if
// there is none within the potential radius or no distance map exists.
func (g *Grid[V]) Distance(p V) float64 {
	c, inside := g.cellOf(p)
	if !inside {
		return 0
	}
	if g.dist == nil {
		return math.Inf(1)
	}
	return g.dist[g.indexOf(c)]
}

func (g *Grid[V]) potentialAt(p V) float64 {
	return potentialOf(g.Distance(p), g.potRadius)
}

// Potential is part of interface DistanceField. The gradient is taken by
// central differences one cell apart. Without a distance map the potential
// is 0 everywhere.
func (g *Grid[V]) Potential(p V) (float64, V) {
	var grad V
	if g.dist == nil {
		return 0, grad
	}
	phi := g.potentialAt(p)
	for i := 0; i < len(p); i++ {
		lo, hi := p, p
		lo[i] -= g.res
		hi[i] += g.res
		pLo, pHi := phi, phi
		h := 0.0
		if g.Contains(lo) {
			pLo = g.potentialAt(lo)
			h += g.res
		}
		if g.Contains(hi) {
			pHi = g.potentialAt(hi)
			h += g.res
		}
		if h > 0 {
			grad[i] = (pHi - pLo) / h
		}
	}
	return phi, grad
}
