/*
Package planner implements a kinodynamic lattice planner.

The lattice is implicit: from every state, each control input of a finite set
U is applied for a fixed duration dt, giving one closed-form motion
primitive per input. A weighted A* searches this lattice from a start state
towards a goal box. States are merged by a quantized key over their active
derivatives.

Primitives are rejected if they break velocity, acceleration, jerk or yaw
limits, if any sample along them is not free according to the oracle, or if
they leave the optional search region. In distance-map mode, edge costs are
increased by the obstacle potential along the primitive.

A Planner owns its open and closed sets and must not be used for concurrent
searches. Oracles may be shared between planners.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package planner

import (
	"errors"
	"fmt"

	"github.com/npillmayer/kinoplan"
	"github.com/npillmayer/kinoplan/heuristic"
	"github.com/npillmayer/kinoplan/oracle"
	"github.com/npillmayer/kinoplan/primitive"
	"github.com/npillmayer/kinoplan/traj"
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'kinoplan.planner'
func tracer() tracing.Trace {
	return tracing.Select("kinoplan.planner")
}

var (
	// ErrNoPathFound is returned if the open set is exhausted before the goal
	// is reached.
	ErrNoPathFound = errors.New("planner: no path found")
	// ErrExpansionLimit is returned if the search hits its expansion or time
	// cap. A partial trajectory may be available.
	ErrExpansionLimit = errors.New("planner: expansion limit exceeded")
	// ErrInvalidQuery flags start or goal states which cannot be planned for.
	ErrInvalidQuery = errors.New("planner: invalid query")
)

// Planner searches the motion primitive lattice.
type Planner[V kinoplan.Vector] struct {
	oracle oracle.Oracle[V]
	field  oracle.DistanceField[V] // nil if the oracle offers no potential
	u      []V
	opts   Options
	region *region[V]
	last   *search[V] // most recent search, for diagnostics
	traj   *traj.Trajectory[V]
}

// New creates a planner for oracle o and control input set U.
func New[V kinoplan.Vector](o oracle.Oracle[V], U []V, opts ...Option) (*Planner[V], error) {
	if o == nil {
		return nil, fmt.Errorf("%w: no oracle", ErrInvalidOption)
	}
	if len(U) == 0 {
		return nil, fmt.Errorf("%w: empty control input set", ErrInvalidOption)
	}
	p := &Planner[V]{
		oracle: o,
		u:      make([]V, len(U)),
		opts:   DefaultOptions(),
	}
	copy(p.u, U)
	for _, opt := range opts {
		opt(&p.opts)
	}
	if err := p.opts.Validate(); err != nil {
		return nil, err
	}
	if df, ok := o.(oracle.DistanceField[V]); ok {
		p.field = df
	}
	return p, nil
}

// Options returns the planner's options.
func (p *Planner[V]) Options() Options {
	return p.opts
}

// ControlInputs returns the control input set U.
func (p *Planner[V]) ControlInputs() []V {
	u := make([]V, len(p.u))
	copy(u, p.u)
	return u
}

// SetSearchRegion restricts expansion to states whose positions stay within
// radius (per axis) of path. The path is densified at the oracle's
// resolution. An empty path removes the restriction.
func (p *Planner[V]) SetSearchRegion(path []V, radius V) {
	if len(path) == 0 {
		p.region = nil
		return
	}
	p.region = newRegion(path, radius, p.oracle.Resolution())
	tracer().Infof("search region of %d cells", p.region.size())
}

// SearchRegion returns the centers of all cells of the search region, or nil.
func (p *Planner[V]) SearchRegion() []V {
	if p.region == nil {
		return nil
	}
	return p.region.centers()
}

// heuristic returns the lower bound named in the options or, if none is
// named, the one matching the start's control mode.
func (p *Planner[V]) heuristic(start primitive.State[V]) heuristic.Func[V] {
	o := p.opts
	if o.Epsilon == 0 || o.W == 0 {
		return heuristic.Zero[V]()
	}
	switch o.Heuristic {
	case HeuristicZero:
		return heuristic.Zero[V]()
	case HeuristicEuclidean:
		return heuristic.Euclidean[V](o.Vmax, o.W, o.TolPos)
	case HeuristicMinTime:
		return heuristic.MinTime[V](o.Vmax, o.W, o.TolPos)
	case HeuristicMinTimeAcc:
		if o.Amax > 0 {
			return heuristic.MinTimeAcc[V](o.Vmax, o.Amax, o.W, o.TolPos)
		}
		return heuristic.MinTime[V](o.Vmax, o.W, o.TolPos)
	}
	if start.Control.Has(primitive.UseVel) && o.Amax > 0 {
		return heuristic.MinTimeAcc[V](o.Vmax, o.Amax, o.W, o.TolPos)
	}
	return heuristic.MinTime[V](o.Vmax, o.W, o.TolPos)
}

// Plan searches a trajectory from start into the goal box around goal. On
// success the trajectory is available through Traj. Every call starts a
// fresh search. With goal snapping switched on, a final segment connects the
// state reached in the goal box to the goal position, if that segment is
// within limits and free.
//
// Returns ErrNoPathFound if the lattice reachable from start contains no goal
// state, and ErrExpansionLimit if a cap was hit first; in the latter case
// Traj returns the trajectory to the expanded state closest to the goal.
func (p *Planner[V]) Plan(start, goal primitive.State[V]) error {
	p.traj = nil
	if err := start.Validate(); err != nil {
		return fmt.Errorf("%w: start: %v", ErrInvalidQuery, err)
	}
	if err := goal.Validate(); err != nil {
		return fmt.Errorf("%w: goal: %v", ErrInvalidQuery, err)
	}
	if !p.oracle.IsFree(start.Pos) {
		return fmt.Errorf("%w: start %s is not free", ErrInvalidQuery, kinoplan.Format(start.Pos))
	}
	s := newSearch(p, start, goal)
	p.last = s
	tip, err := s.run()
	if tip != nil {
		var tail []*primitive.Primitive[V]
		if err == nil && p.opts.SnapGoal {
			if pr := s.snap(tip); pr != nil {
				tail = append(tail, pr)
			}
		}
		tr, terr := s.trajectoryTo(tip, tail...)
		if terr != nil {
			return terr
		}
		p.traj = tr
	}
	tracer().P("expansions", s.expansions).Infof("search finished: %v", errOrOK(err))
	return err
}

func errOrOK(err error) string {
	if err == nil {
		return "ok"
	}
	return err.Error()
}

// Traj returns the trajectory of the last search, or nil.
func (p *Planner[V]) Traj() *traj.Trajectory[V] {
	return p.traj
}

// CloseSet returns the states expanded by the last search, in expansion order.
func (p *Planner[V]) CloseSet() []primitive.State[V] {
	if p.last == nil {
		return nil
	}
	states := make([]primitive.State[V], len(p.last.closed))
	for i, n := range p.last.closed {
		states[i] = n.state
	}
	return states
}

// OpenSet returns the states left open by the last search.
func (p *Planner[V]) OpenSet() []primitive.State[V] {
	if p.last == nil {
		return nil
	}
	var states []primitive.State[V]
	for _, n := range p.last.nodes {
		if !n.closed {
			states = append(states, n.state)
		}
	}
	return states
}

// Expansions returns the number of expansions of the last search.
func (p *Planner[V]) Expansions() int {
	if p.last == nil {
		return 0
	}
	return p.last.expansions
}

// Cost returns the accumulated cost g of the last trajectory found,
// including a goal snapping segment.
func (p *Planner[V]) Cost() float64 {
	if p.last == nil || p.last.tip == nil {
		return 0
	}
	return p.last.tip.g + p.last.snapCost
}
