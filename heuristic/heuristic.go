/*
Package heuristic provides lower bounds on the cost-to-goal for lattice
search.

All heuristics ignore obstacles. They bound the time needed to bring the
position into the goal tolerance box, weighted by the time weight w of the
edge cost. As long as every lattice edge respects the same per-axis limits,
the bounds are consistent, which keeps weighted A* ε-suboptimal.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package heuristic

import (
	"math"

	"github.com/npillmayer/kinoplan"
	"github.com/npillmayer/kinoplan/primitive"
)

// Func estimates the cost from s to goal.
type Func[V kinoplan.Vector] func(s, goal primitive.State[V]) float64

// Zero is the trivial heuristic. Search degenerates to uniform-cost search.
func Zero[V kinoplan.Vector]() Func[V] {
	return func(s, goal primitive.State[V]) float64 {
		return 0
	}
}

// remaining returns the per-axis distance left to the goal box of half-size tol.
func remaining(d, tol float64) float64 {
	return math.Max(0, math.Abs(d)-tol)
}

// MinTime bounds the cost by the time to cover the largest per-axis distance
// at speed vmax:
//
//	h = w ⋅ max_i (|Δp_i| - tol) / vmax
func MinTime[V kinoplan.Vector](vmax, w, tol float64) Func[V] {
	if vmax <= 0 {
		return Zero[V]()
	}
	return func(s, goal primitive.State[V]) float64 {
		var t float64
		for i := 0; i < len(s.Pos); i++ {
			t = math.Max(t, remaining(goal.Pos[i]-s.Pos[i], tol)/vmax)
		}
		return w * t
	}
}

// Euclidean is a looser bound than MinTime, using the Euclidean distance to
// the goal scaled such that diagonal motion at vmax per axis is not
// overestimated.
func Euclidean[V kinoplan.Vector](vmax, w, tol float64) Func[V] {
	if vmax <= 0 {
		return Zero[V]()
	}
	return func(s, goal primitive.State[V]) float64 {
		dim := float64(len(s.Pos))
		d := kinoplan.Dist(s.Pos, goal.Pos) - tol*math.Sqrt(dim)
		return w * math.Max(0, d) / (vmax * math.Sqrt(dim))
	}
}

// MinTimeAcc bounds the cost by the per-axis minimum time of a
// double-integrator with |v| ≤ vmax and |a| ≤ amax, starting with the state's
// velocity and arriving with any velocity. It is tighter than MinTime for
// states that move away from the goal or start slowly.
func MinTimeAcc[V kinoplan.Vector](vmax, amax, w, tol float64) Func[V] {
	if vmax <= 0 {
		return Zero[V]()
	}
	if amax <= 0 {
		return MinTime[V](vmax, w, tol)
	}
	return func(s, goal primitive.State[V]) float64 {
		var t float64
		for i := 0; i < len(s.Pos); i++ {
			t = math.Max(t, axisTime(goal.Pos[i]-s.Pos[i], s.Vel[i], vmax, amax, tol))
		}
		return w * t
	}
}

// axisTime returns the minimum time to bring a 1D double integrator from
// offset d (goal minus position) and velocity v into [-tol, tol] around the
// goal.
func axisTime(d, v, vmax, amax, tol float64) float64 {
	dist := remaining(d, tol)
	if dist == 0 {
		return 0
	}
	if d < 0 { // mirror, such that the goal lies ahead
		v = -v
	}
	v = kinoplan.Clamp(v, -vmax, vmax)
	var t float64
	if v < 0 { // brake to a halt first, moving away from the goal
		t = -v / amax
		dist += v * v / (2 * amax)
		v = 0
	}
	accDist := (vmax*vmax - v*v) / (2 * amax)
	if accDist >= dist {
		return t + (-v+math.Sqrt(v*v+2*amax*dist))/amax
	}
	return t + (vmax-v)/amax + (dist-accDist)/vmax
}
