/*
Package oracle answers collision and potential queries for the planner.

The planner only depends on the narrow Oracle interface. Oracles in
distance-map mode additionally implement DistanceField, which yields a
normalized obstacle-proximity potential together with its spatial gradient.

Two map representations are provided: Grid, an axis-aligned occupancy grid
in 2D or 3D with an optional distance map, and PolygonMap, a planar map of
polygon obstacles.

Oracles are read-only while a search runs and may be shared between
planners. Map updates must not overlap with searches.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package oracle

import (
	"github.com/npillmayer/kinoplan"
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'kinoplan.oracle'
func tracer() tracing.Trace {
	return tracing.Select("kinoplan.oracle")
}

// Oracle is the hard occupancy test consumed by the planner.
type Oracle[V kinoplan.Vector] interface {
	IsFree(p V) bool
	// Resolution is the spacing at which primitives are sampled for checks.
	Resolution() float64
}

// DistanceField is implemented by oracles operating in distance-map mode.
type DistanceField[V kinoplan.Vector] interface {
	Oracle[V]
	// Potential returns the obstacle potential at p, normalized to [0,1],
	// and its gradient. The potential grows towards obstacles.
	Potential(p V) (float64, V)
}

// CloudProvider is implemented by oracles which can list obstacle points,
// for diagnostics and for gradient refinement.
type CloudProvider[V kinoplan.Vector] interface {
	Cloud() []V
}

// potentialOf is the normalized potential for distance d within radius r.
func potentialOf(d, r float64) float64 {
	if r <= 0 || d >= r {
		return 0
	}
	x := 1 - d/r
	return x * x
}
