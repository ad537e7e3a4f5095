package polysolver

import (
	"fmt"
	"math"

	"github.com/npillmayer/kinoplan"
	"github.com/npillmayer/kinoplan/primitive"
	"github.com/npillmayer/kinoplan/traj"
)

// ObstacleSet is an ordered set of obstacle reference points, e.g. the
// occupied cells of a map near a path.
type ObstacleSet[V kinoplan.Vector] struct {
	pts []V
}

// NewObstacleSet creates an obstacle set from points. The points are copied.
func NewObstacleSet[V kinoplan.Vector](pts ...V) ObstacleSet[V] {
	return ObstacleSet[V]{pts: append([]V(nil), pts...)}
}

// Len returns the number of obstacle points.
func (o ObstacleSet[V]) Len() int {
	return len(o.pts)
}

// Points returns a copy of the obstacle points.
func (o ObstacleSet[V]) Points() []V {
	return append([]V(nil), o.pts...)
}

// Near returns the subset of obstacle points within distance r of any of
// the given path points.
func (o ObstacleSet[V]) Near(path []V, r float64) ObstacleSet[V] {
	var near []V
	for _, p := range o.pts {
		for _, q := range path {
			if kinoplan.Dist(p, q) <= r {
				near = append(near, p)
				break
			}
		}
	}
	return ObstacleSet[V]{pts: near}
}

// maxBacktrack limits the step halvings of one descent iteration.
const maxBacktrack = 30

// sample is a point on the trajectory, tagged with its segment and the
// fraction of the segment's duration it lies at.
type sample[V kinoplan.Vector] struct {
	pos V
	seg int
	tau float64
}

// candidate is one set of waypoints together with its solution.
type candidate[V kinoplan.Vector] struct {
	wps     []primitive.Waypoint[V]
	d       [][]float64
	tr      *traj.Trajectory[V]
	samples []sample[V]
	cost    float64 // smoothness plus obstacle cost
}

// GradientDescent fits a trajectory through wps like Solve, then moves the
// intermediate waypoints to decrease
//
//	C = J + w·Σ_o max(0, r - d_o)²
//
// where d_o is the distance of obstacle o to the nearest of samples points
// per segment or the final waypoint, r is the obstacle radius and w the
// obstacle weight. End waypoints never move. C never increases from one iteration to the next.
//
// The descent stops once waypoints move less than the tolerance. If the
// iteration cap is hit first, ErrRefinementNonConvergence is returned and the
// best trajectory found is published nevertheless.
func (s *Solver[V]) GradientDescent(wps []primitive.Waypoint[V], dts []float64,
	samples int, obs ObstacleSet[V]) error {
	//
	s.traj, s.cost, s.history, s.refined = nil, 0, nil, nil
	if samples < 1 {
		return fmt.Errorf("%w: need at least 1 sample per segment, have %d", ErrInvalidInput, samples)
	}
	sys, err := s.setup(wps, dts)
	if err != nil {
		return err
	}
	best, err := s.evaluate(sys, cloneWaypoints(wps), samples, obs)
	if err != nil {
		return err
	}
	s.history = append(s.history, best.cost)
	converged := false
	for it := 0; it < s.opts.MaxIterations && !converged; it++ {
		grad := s.gradient(sys, best, obs)
		gmax := 0.0
		for _, g := range grad {
			gmax = math.Max(gmax, kinoplan.NormInf(g))
		}
		if gmax == 0 {
			converged = true
			break
		}
		step := s.opts.StepSize
		var next *candidate[V]
		for bt := 0; bt < maxBacktrack; bt++ {
			trial := cloneWaypoints(best.wps)
			for w := 1; w < len(trial)-1; w++ {
				trial[w].Pos = kinoplan.AddScaled(trial[w].Pos, grad[w], -step)
			}
			c, err := s.evaluate(sys, trial, samples, obs)
			if err == nil && c.cost < best.cost {
				next = c
				break
			}
			step /= 2
		}
		if next == nil {
			tracer().Debugf("descent: no improving step in iteration %d", it)
			converged = true
			break
		}
		best = next
		s.history = append(s.history, best.cost)
		converged = step*gmax < s.opts.Tolerance
	}
	if err := s.publish(sys, best.d); err != nil {
		return err
	}
	s.refined = best.wps
	tracer().P("C", best.cost).Infof("descent finished after %d iterations", len(s.history)-1)
	if !converged {
		return fmt.Errorf("%w: %d iterations", ErrRefinementNonConvergence, s.opts.MaxIterations)
	}
	return nil
}

// CostHistory returns the combined cost after each accepted step of the last
// descent, starting with the initial solution.
func (s *Solver[V]) CostHistory() []float64 {
	return append([]float64(nil), s.history...)
}

// Waypoints returns the waypoints of the last descent after refinement.
func (s *Solver[V]) Waypoints() []primitive.Waypoint[V] {
	return cloneWaypoints(s.refined)
}

func cloneWaypoints[V kinoplan.Vector](wps []primitive.Waypoint[V]) []primitive.Waypoint[V] {
	if wps == nil {
		return nil
	}
	return append([]primitive.Waypoint[V](nil), wps...)
}

// evaluate solves for wps and computes the combined cost.
func (s *Solver[V]) evaluate(sys *system[V], wps []primitive.Waypoint[V], n int,
	obs ObstacleSet[V]) (*candidate[V], error) {
	//
	d, err := sys.solve(wps)
	if err != nil {
		return nil, err
	}
	tr, err := sys.trajectory(d, s.segmentControl())
	if err != nil {
		return nil, err
	}
	c := &candidate[V]{wps: wps, d: d, tr: tr, cost: sys.cost(d), samples: samplePath(tr, n)}
	r := s.opts.ObstacleRadius
	for _, o := range obs.pts {
		if _, dist := c.nearest(o); dist < r {
			c.cost += s.opts.ObstacleWeight * (r - dist) * (r - dist)
		}
	}
	return c, nil
}

// samplePath places n samples on every segment, evenly spaced in time and
// starting at the segment's first waypoint, plus one at the final waypoint.
func samplePath[V kinoplan.Vector](tr *traj.Trajectory[V], n int) []sample[V] {
	segs := tr.Segments()
	samples := make([]sample[V], 0, len(segs)*n+1)
	for seg, pr := range segs {
		for j := 0; j < n; j++ {
			tau := float64(j) / float64(n)
			samples = append(samples, sample[V]{pos: pr.Pos(tau * pr.Duration()), seg: seg, tau: tau})
		}
	}
	if last := len(segs) - 1; last >= 0 {
		pr := segs[last]
		samples = append(samples, sample[V]{pos: pr.Pos(pr.Duration()), seg: last, tau: 1})
	}
	return samples
}

// nearest returns the index of the sample closest to p and its distance.
func (c *candidate[V]) nearest(p V) (int, float64) {
	idx, dist := -1, math.Inf(1)
	for i, smp := range c.samples {
		if d := kinoplan.Dist(smp.pos, p); d < dist {
			idx, dist = i, d
		}
	}
	return idx, dist
}

// gradient returns ∂C/∂p for every waypoint position. The entries of the
// end waypoints are zero.
func (s *Solver[V]) gradient(sys *system[V], c *candidate[V], obs ObstacleSet[V]) []V {
	grad := make([]V, len(c.wps))
	last := len(c.wps) - 1
	for i, di := range c.d {
		gi := sys.gradient(di)
		for w := 1; w < last; w++ {
			grad[w][i] = gi[w*sys.n]
		}
	}
	r, weight := s.opts.ObstacleRadius, s.opts.ObstacleWeight
	for _, o := range obs.pts {
		idx, dist := c.nearest(o)
		if idx < 0 || dist >= r || dist == 0 {
			continue
		}
		smp := c.samples[idx]
		// ∂/∂x (r - |x-o|)² = -2(r - |x-o|)(x-o)/|x-o|
		g := kinoplan.Scale(kinoplan.Sub(smp.pos, o), -2*weight*(r-dist)/dist)
		if w := smp.seg; w > 0 {
			grad[w] = kinoplan.AddScaled(grad[w], g, 1-smp.tau)
		}
		if w := smp.seg + 1; w < last {
			grad[w] = kinoplan.AddScaled(grad[w], g, smp.tau)
		}
	}
	return grad
}
