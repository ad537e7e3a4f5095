/*
Package traj assembles primitives into a single time-indexed trajectory.

A trajectory is immutable once built: New is the only point of mutation and
all later access is read-only, so trajectories may be shared freely between
goroutines.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package traj

import (
	"errors"
	"fmt"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/npillmayer/kinoplan"
	"github.com/npillmayer/kinoplan/primitive"
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'kinoplan.traj'
func tracer() tracing.Trace {
	return tracing.Select("kinoplan.traj")
}

var (
	// ErrOutOfRange flags a query time outside of [0, TotalTime()].
	ErrOutOfRange = errors.New("traj: query time out of range")
	// ErrEmptyTrajectory flags an attempt to build a trajectory without segments.
	ErrEmptyTrajectory = errors.New("traj: no segments")
)

// Trajectory is an ordered chain of primitives, each with a cumulative start
// time.
type Trajectory[V kinoplan.Vector] struct {
	segments []*primitive.Primitive[V]
	starts   []float64
	index    *treemap.Map // start time → segment index
	total    float64
}

// New builds a trajectory from an ordered chain of primitives. The slice is
// copied; primitives themselves are immutable and shared.
func New[V kinoplan.Vector](prs []*primitive.Primitive[V]) (*Trajectory[V], error) {
	if len(prs) == 0 {
		return nil, ErrEmptyTrajectory
	}
	tr := &Trajectory[V]{
		segments: make([]*primitive.Primitive[V], len(prs)),
		starts:   make([]float64, len(prs)),
		index:    treemap.NewWith(utils.Float64Comparator),
	}
	copy(tr.segments, prs)
	for i, pr := range prs {
		if pr == nil {
			return nil, fmt.Errorf("traj: segment #%d is nil", i)
		}
		tr.starts[i] = tr.total
		tr.index.Put(tr.total, i)
		tr.total += pr.Duration()
	}
	tracer().P("segments", len(prs)).Debugf("trajectory of %.3fs assembled", tr.total)
	return tr, nil
}

// TotalTime returns the duration of the whole trajectory.
func (tr *Trajectory[V]) TotalTime() float64 {
	return tr.total
}

// Len returns the number of segments.
func (tr *Trajectory[V]) Len() int {
	return len(tr.segments)
}

// Segments returns the primitives in order. The slice is a copy.
func (tr *Trajectory[V]) Segments() []*primitive.Primitive[V] {
	s := make([]*primitive.Primitive[V], len(tr.segments))
	copy(s, tr.segments)
	return s
}

// StartTime returns the cumulative start time of segment i.
func (tr *Trajectory[V]) StartTime(i int) float64 {
	return tr.starts[i]
}

// Locate finds the segment active at time t and the local time within it.
// The accepted range is the closed interval [0, TotalTime()]: the end time
// itself is valid and belongs to the last segment. Other times yield
// ErrOutOfRange.
func (tr *Trajectory[V]) Locate(t float64) (int, float64, error) {
	if !(t >= 0) || t > tr.total+kinoplan.Epsilon {
		return 0, 0, fmt.Errorf("%w: t=%g not in [0,%g]", ErrOutOfRange, t, tr.total)
	}
	_, found := tr.index.Floor(t)
	i := 0
	if found != nil {
		i = found.(int)
	}
	// zero-length segments share their start time with a successor
	for i+1 < len(tr.segments) && tr.starts[i+1] <= t && tr.segments[i].Duration() == 0 {
		i++
	}
	local := kinoplan.Clamp(t-tr.starts[i], 0, tr.segments[i].Duration())
	return i, local, nil
}

// Evaluate returns the state at time t. Like Locate it accepts the closed
// interval [0, TotalTime()], so evaluating at TotalTime() yields the final
// state.
func (tr *Trajectory[V]) Evaluate(t float64) (primitive.State[V], error) {
	i, local, err := tr.Locate(t)
	if err != nil {
		return primitive.State[V]{}, err
	}
	return tr.segments[i].Evaluate(local), nil
}

// Waypoints returns the boundary states of all segments: the start of every
// segment plus the end of the last one.
func (tr *Trajectory[V]) Waypoints() []primitive.State[V] {
	wps := make([]primitive.State[V], 0, len(tr.segments)+1)
	for _, pr := range tr.segments {
		wps = append(wps, pr.Evaluate(0))
	}
	return append(wps, tr.segments[len(tr.segments)-1].Successor())
}

// Positions returns the positions of Waypoints.
func (tr *Trajectory[V]) Positions() []V {
	wps := tr.Waypoints()
	pts := make([]V, len(wps))
	for i, wp := range wps {
		pts[i] = wp.Pos
	}
	return pts
}

// Sample returns n+1 states evenly spaced over the trajectory's duration.
func (tr *Trajectory[V]) Sample(n int) []primitive.State[V] {
	n = max(n, 1)
	states := make([]primitive.State[V], 0, n+1)
	for j := 0; j <= n; j++ {
		s, _ := tr.Evaluate(tr.total * float64(j) / float64(n))
		states = append(states, s)
	}
	return states
}

// Durations returns the durations of all segments.
func (tr *Trajectory[V]) Durations() []float64 {
	dts := make([]float64, len(tr.segments))
	for i, pr := range tr.segments {
		dts[i] = pr.Duration()
	}
	return dts
}

// J returns the accumulated effort over all segments, see primitive.J.
func (tr *Trajectory[V]) J(order int) float64 {
	var j float64
	for _, pr := range tr.segments {
		j += pr.J(order)
	}
	return j
}
