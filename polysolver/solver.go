/*
Package polysolver fits minimum-derivative-energy piecewise polynomials
through a sequence of waypoints.

Given waypoints w.0 … w.N and segment durations T.0 … T.N-1, every segment is
a polynomial of degree 2R+1 per dimension, where R is the continuity order.
The unknowns are the derivatives 0 … R of position at every waypoint, shared
by the adjacent segments, which makes the result R times continuously
differentiable. Derivatives flagged on a waypoint are fixed; all others are
chosen to minimize

    J = Σ_seg ∫ |p⁽ʳ⁾(t)|² dt

with r the minimization order. This is an unconstrained quadratic program,
solved in closed form by a banded Cholesky factorization.

GradientDescent additionally moves the intermediate waypoints away from a set
of obstacle points, trading obstacle clearance against smoothness.

A Solver is not safe for concurrent use. The trajectories it publishes are
immutable.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package polysolver

import (
	"errors"
	"fmt"
	"math"

	"github.com/npillmayer/kinoplan"
	"github.com/npillmayer/kinoplan/polyn"
	"github.com/npillmayer/kinoplan/primitive"
	"github.com/npillmayer/kinoplan/traj"
	"github.com/npillmayer/schuko/tracing"
	"gonum.org/v1/gonum/mat"
)

// tracer writes to trace with key 'kinoplan.polysolver'
func tracer() tracing.Trace {
	return tracing.Select("kinoplan.polysolver")
}

var (
	// ErrSingularSystem is returned if the reduced linear system has no
	// unique solution, e.g. for a zero segment duration.
	ErrSingularSystem = errors.New("polysolver: singular system")
	// ErrRefinementNonConvergence is returned by GradientDescent if the
	// iteration cap is hit before the waypoints settle.
	ErrRefinementNonConvergence = errors.New("polysolver: refinement did not converge")
	// ErrInvalidInput flags malformed waypoint or duration lists.
	ErrInvalidInput = errors.New("polysolver: invalid input")
	// ErrInvalidOrder flags unusable continuity or minimization orders.
	ErrInvalidOrder = errors.New("polysolver: invalid order")
)

// maxCondition is the largest condition number of the reduced system we
// accept.
const maxCondition = 1e13

// Solver computes minimum-energy trajectories.
type Solver[V kinoplan.Vector] struct {
	smooth   int // continuity order R
	minimize int // minimization order r
	opts     Options
	traj     *traj.Trajectory[V]
	cost     float64
	history  []float64               // combined cost per descent step
	refined  []primitive.Waypoint[V] // waypoints after descent
}

// New creates a solver with continuity order R ≥ 1 and minimization order
// 1 ≤ r ≤ 2R+1.
func New[V kinoplan.Vector](R, r int, opts ...Option) (*Solver[V], error) {
	if R < 1 {
		return nil, fmt.Errorf("%w: continuity order %d < 1", ErrInvalidOrder, R)
	}
	if r < 1 || r > 2*R+1 {
		return nil, fmt.Errorf("%w: minimization order %d not in [1,%d]", ErrInvalidOrder, r, 2*R+1)
	}
	s := &Solver[V]{smooth: R, minimize: r, opts: DefaultOptions()}
	for _, opt := range opts {
		opt(&s.opts)
	}
	if err := s.opts.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Options returns the solver's options.
func (s *Solver[V]) Options() Options {
	return s.opts
}

// Trajectory returns the trajectory of the last successful solve, or nil.
func (s *Solver[V]) Trajectory() *traj.Trajectory[V] {
	return s.traj
}

// Cost returns the smoothness cost J of the last trajectory.
func (s *Solver[V]) Cost() float64 {
	return s.cost
}

// Solve fits a trajectory through wps with segment durations dts. Every
// waypoint must use its position; velocity, acceleration and jerk are fixed
// where flagged, up to the continuity order. On error no trajectory is
// published.
func (s *Solver[V]) Solve(wps []primitive.Waypoint[V], dts []float64) error {
	s.traj, s.cost = nil, 0
	sys, err := s.setup(wps, dts)
	if err != nil {
		return err
	}
	d, err := sys.solve(wps)
	if err != nil {
		return err
	}
	return s.publish(sys, d)
}

// publish turns the unknowns d into the solver's trajectory.
func (s *Solver[V]) publish(sys *system[V], d [][]float64) error {
	tr, err := sys.trajectory(d, s.segmentControl())
	if err != nil {
		return err
	}
	s.traj, s.cost = tr, sys.cost(d)
	tracer().P("J", s.cost).Debugf("solved %d segments", len(sys.ainv))
	return nil
}

func (s *Solver[V]) segmentControl() primitive.Control {
	switch s.smooth {
	case 1:
		return primitive.ACC
	case 2:
		return primitive.JRK
	}
	return primitive.SNP
}

func (s *Solver[V]) validate(wps []primitive.Waypoint[V], dts []float64) error {
	if len(wps) < 2 {
		return fmt.Errorf("%w: need at least 2 waypoints, have %d", ErrInvalidInput, len(wps))
	}
	if len(dts) != len(wps)-1 {
		return fmt.Errorf("%w: %d waypoints need %d durations, have %d",
			ErrInvalidInput, len(wps), len(wps)-1, len(dts))
	}
	for i, w := range wps {
		if !w.Control.Has(primitive.UsePos) {
			return fmt.Errorf("%w: waypoint %d has no position constraint", ErrInvalidInput, i)
		}
	}
	for i, dt := range dts {
		if !(dt > 0) || math.IsInf(dt, 0) {
			return fmt.Errorf("%w: duration %d is %g", ErrSingularSystem, i, dt)
		}
	}
	return nil
}

// === Linear system =========================================================

// system is the quadratic program for one set of durations and constraint
// flags. It is shared by all dimensions.
//
// Segment k only couples the unknowns of waypoints k and k+1, so the global
// cost matrix has bandwidth 2n-1 and every operation on it is linear in the
// number of waypoints.
type system[V kinoplan.Vector] struct {
	n     int               // unknowns per waypoint, R+1
	kd    int               // bandwidth of h
	dts   []float64         // segment durations
	h     *mat.SymBandDense // global cost matrix
	ainv  []*mat.Dense      // inverse mapping matrix per segment
	free  []int             // indices of free unknowns
	fixed []bool            // fixed[i] flags unknown i as fixed
	chol  mat.BandCholesky
}

// setup validates the input and builds and factorizes the cost matrix.
func (s *Solver[V]) setup(wps []primitive.Waypoint[V], dts []float64) (*system[V], error) {
	if err := s.validate(wps, dts); err != nil {
		return nil, err
	}
	n := s.smooth + 1
	sys := &system[V]{
		n:     n,
		kd:    2*n - 1,
		dts:   append([]float64(nil), dts...),
		h:     mat.NewSymBandDense(len(wps)*n, 2*n-1, nil),
		ainv:  make([]*mat.Dense, len(dts)),
		fixed: make([]bool, len(wps)*n),
	}
	for seg, T := range dts {
		ainv := mat.NewDense(2*n, 2*n, nil)
		if err := ainv.Inverse(mappingMatrix(s.smooth, T)); err != nil {
			return nil, fmt.Errorf("%w: segment %d: %v", ErrSingularSystem, seg, err)
		}
		sys.ainv[seg] = ainv
		var qa, c mat.Dense
		qa.Mul(costMatrix(s.smooth, s.minimize, T), ainv)
		c.Mul(ainv.T(), &qa)
		off := seg * n
		for i := 0; i < 2*n; i++ {
			for j := i; j < 2*n; j++ {
				v := (c.At(i, j) + c.At(j, i)) / 2
				sys.h.SetSymBand(off+i, off+j, sys.h.At(off+i, off+j)+v)
			}
		}
	}
	for w, wp := range wps {
		for k := 0; k < n; k++ {
			if wp.Uses(k) {
				sys.fixed[w*n+k] = true
			} else {
				sys.free = append(sys.free, w*n+k)
			}
		}
	}
	if len(sys.free) == 0 {
		return sys, nil
	}
	kd := min(sys.kd, len(sys.free)-1)
	hpp := mat.NewSymBandDense(len(sys.free), kd, nil)
	for a, p := range sys.free {
		for b := a; b <= min(a+kd, len(sys.free)-1); b++ {
			hpp.SetSymBand(a, b, sys.h.At(p, sys.free[b]))
		}
	}
	if ok := sys.chol.Factorize(hpp); !ok {
		return nil, fmt.Errorf("%w: reduced cost matrix is not positive definite", ErrSingularSystem)
	}
	if c := sys.chol.Cond(); c > maxCondition || math.IsNaN(c) {
		return nil, fmt.Errorf("%w: condition number %g", ErrSingularSystem, c)
	}
	return sys, nil
}

// solve returns the optimal unknowns per dimension, d[dim][w*n+k].
func (sys *system[V]) solve(wps []primitive.Waypoint[V]) ([][]float64, error) {
	var zero V
	size := len(wps) * sys.n
	d := make([][]float64, len(zero))
	for i := range d {
		d[i] = make([]float64, size)
		for f, fixed := range sys.fixed {
			if fixed {
				d[i][f] = wps[f/sys.n].Derivative(f % sys.n)[i]
			}
		}
		if len(sys.free) == 0 {
			continue
		}
		rhs := mat.NewVecDense(len(sys.free), nil)
		for a, p := range sys.free {
			var v float64
			for f := max(0, p-sys.kd); f <= min(size-1, p+sys.kd); f++ {
				if sys.fixed[f] {
					v -= sys.h.At(p, f) * d[i][f]
				}
			}
			rhs.SetVec(a, v)
		}
		var x mat.VecDense
		if err := sys.chol.SolveVecTo(&x, rhs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSingularSystem, err)
		}
		for a, p := range sys.free {
			d[i][p] = x.AtVec(a)
		}
	}
	return d, nil
}

// hmul returns H·d for the unknowns of one dimension.
func (sys *system[V]) hmul(di []float64) *mat.VecDense {
	var hd mat.VecDense
	hd.MulVec(sys.h, mat.NewVecDense(len(di), di))
	return &hd
}

// cost returns Σ dᵀ H d over all dimensions.
func (sys *system[V]) cost(d [][]float64) float64 {
	var j float64
	for _, di := range d {
		j += mat.Dot(mat.NewVecDense(len(di), di), sys.hmul(di))
	}
	return j
}

// gradient returns ∂J/∂d for the unknowns of one dimension.
func (sys *system[V]) gradient(di []float64) []float64 {
	hd := sys.hmul(di)
	grad := make([]float64, len(di))
	for i := range grad {
		grad[i] = 2 * hd.AtVec(i)
	}
	return grad
}

// trajectory recovers the polynomial coefficients of all segments.
func (sys *system[V]) trajectory(d [][]float64, c primitive.Control) (*traj.Trajectory[V], error) {
	prs := make([]*primitive.Primitive[V], len(sys.ainv))
	for seg, ainv := range sys.ainv {
		polys := make([]polyn.Polynomial, len(d))
		for i, di := range d {
			b := mat.NewVecDense(2*sys.n, di[seg*sys.n:(seg+2)*sys.n])
			var coeff mat.VecDense
			coeff.MulVec(ainv, b)
			polys[i] = polyn.FromCoefficients(coeff.RawVector().Data)
		}
		pr, err := primitive.FromPolynomials[V](polys, sys.dts[seg], c)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %d: %v", ErrSingularSystem, seg, err)
		}
		prs[seg] = pr
	}
	return traj.New(prs)
}

// === Matrices ==============================================================

// fallingFactorial returns i!/(i-k)!, or 0 for k > i.
func fallingFactorial(i, k int) float64 {
	if k > i {
		return 0
	}
	f := 1.0
	for j := i - k + 1; j <= i; j++ {
		f *= float64(j)
	}
	return f
}

// mappingMatrix maps the 2(R+1) coefficients of a segment of duration T to
// its boundary derivatives 0 … R at t=0 followed by those at t=T.
func mappingMatrix(R int, T float64) *mat.Dense {
	n := R + 1
	a := mat.NewDense(2*n, 2*n, nil)
	for k := 0; k < n; k++ {
		a.Set(k, k, fallingFactorial(k, k))
		for i := k; i < 2*n; i++ {
			a.Set(n+k, i, fallingFactorial(i, k)*math.Pow(T, float64(i-k)))
		}
	}
	return a
}

// costMatrix is the Hessian of ∫₀ᵀ (p⁽ʳ⁾)² dt in the coefficients of p.
func costMatrix(R, r int, T float64) *mat.Dense {
	m := 2 * (R + 1)
	q := mat.NewDense(m, m, nil)
	for i := r; i < m; i++ {
		for j := r; j < m; j++ {
			e := float64(i + j - 2*r + 1)
			q.Set(i, j, fallingFactorial(i, r)*fallingFactorial(j, r)*math.Pow(T, e)/e)
		}
	}
	return q
}
