package planner

import (
	"errors"
	"fmt"

	"github.com/npillmayer/kinoplan"
	"github.com/npillmayer/kinoplan/oracle"
	"github.com/npillmayer/kinoplan/polysolver"
	"github.com/npillmayer/kinoplan/primitive"
	"github.com/npillmayer/kinoplan/traj"
)

// Refine smoothes a planned trajectory. The junctions of tr become
// waypoints for solver, with the segment durations of tr. Start and end keep
// their constraints, intermediate waypoints constrain position only. If o
// provides an obstacle cloud, gradient descent with samples points per
// segment pushes the trajectory away from the cloud points near it.
//
// If the descent does not converge, the best trajectory is returned together
// with polysolver.ErrRefinementNonConvergence.
func Refine[V kinoplan.Vector](tr *traj.Trajectory[V], o oracle.Oracle[V],
	solver *polysolver.Solver[V], samples int) (*traj.Trajectory[V], error) {
	//
	if tr == nil || solver == nil {
		return nil, fmt.Errorf("%w: refinement needs a trajectory and a solver", ErrInvalidQuery)
	}
	wps := tr.Waypoints()
	for i := 1; i < len(wps)-1; i++ {
		wps[i].Control = primitive.UsePos
	}
	var obs polysolver.ObstacleSet[V]
	if cp, ok := o.(oracle.CloudProvider[V]); ok {
		var path []V
		for _, s := range tr.Sample(tr.Len() * max(samples, 1)) {
			path = append(path, s.Pos)
		}
		obs = polysolver.NewObstacleSet(cp.Cloud()...).Near(path, solver.Options().ObstacleRadius)
		tracer().Debugf("refining against %d obstacle points", obs.Len())
	}
	err := solver.GradientDescent(wps, tr.Durations(), samples, obs)
	if err != nil && !errors.Is(err, polysolver.ErrRefinementNonConvergence) {
		return nil, err
	}
	return solver.Trajectory(), err
}
