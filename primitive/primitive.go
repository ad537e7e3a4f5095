package primitive

import (
	"fmt"
	"math"

	"github.com/npillmayer/kinoplan"
	"github.com/npillmayer/kinoplan/polyn"
)

// Primitive is a closed-form trajectory segment of duration Duration(). It
// holds one position polynomial per dimension, in local time t ∈ [0, dt],
// plus an optional linear yaw profile.
//
// Primitives are immutable once created.
type Primitive[V kinoplan.Vector] struct {
	pos     []polyn.Polynomial   // position polynomial per dimension
	derivs  [][]polyn.Polynomial // derivs[k][i]: k-th derivative in dimension i
	dt      float64              // duration
	control Control              // control mode of the start state
	input   V                    // control input, zero if built from boundaries
	yaw0    float64              // yaw at t = 0
	dyaw    float64              // yaw change over dt
}

// Generate creates the primitive applying control input u for duration dt,
// starting at state s. Per dimension, the position is the Taylor polynomial
// of the start state's active derivatives, completed by u acting on the first
// inactive derivative:
//
//	p(t) = Σ_{j<k} s.j t^j/j!  +  u t^k/k!
//
// where k is the order of s's control mode. No validity checks are performed.
func Generate[V kinoplan.Vector](s State[V], u V, dt float64) *Primitive[V] {
	k := max(s.Control.Order(), 1)
	pr := &Primitive[V]{
		pos:     make([]polyn.Polynomial, len(u)),
		dt:      dt,
		control: s.Control,
		input:   u,
		yaw0:    s.Yaw,
	}
	for i := 0; i < len(u); i++ {
		c := make([]float64, k+1)
		fact := 1.0
		for j := 0; j < k; j++ {
			if j > 0 {
				fact *= float64(j)
			}
			c[j] = s.Derivative(j)[i] / fact
		}
		c[k] = u[i] / (fact * float64(k))
		pr.pos[i] = polyn.FromCoefficients(c)
	}
	pr.prepare()
	if s.Control.Has(UseYaw) {
		pr.dyaw = headingChange(s.Yaw, pr.Vel(dt))
	}
	return pr
}

// FromPolynomials creates a primitive from explicit position polynomials, one
// per dimension. Used by solvers which compute coefficients themselves.
func FromPolynomials[V kinoplan.Vector](polys []polyn.Polynomial, dt float64, c Control) (*Primitive[V], error) {
	var zero V
	if len(polys) != len(zero) {
		return nil, fmt.Errorf("primitive: need %d polynomials, have %d", len(zero), len(polys))
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("%w: duration %g", ErrInfeasibleBoundary, dt)
	}
	pr := &Primitive[V]{
		pos:     make([]polyn.Polynomial, len(polys)),
		dt:      dt,
		control: c,
	}
	copy(pr.pos, polys)
	pr.prepare()
	return pr, nil
}

// prepare caches the derivative polynomials up to jerk.
func (pr *Primitive[V]) prepare() {
	pr.derivs = make([][]polyn.Polynomial, MaxOrder+1)
	pr.derivs[0] = pr.pos
	for k := 1; k <= MaxOrder; k++ {
		pr.derivs[k] = make([]polyn.Polynomial, len(pr.pos))
		for i := range pr.pos {
			pr.derivs[k][i] = pr.derivs[k-1][i].Derivative()
		}
	}
}

// headingChange returns the signed yaw change from yaw0 to the heading of
// velocity v. Without a usable velocity the heading is kept.
func headingChange[V kinoplan.Vector](yaw0 float64, v V) float64 {
	if math.Hypot(v[0], v[1]) <= kinoplan.Epsilon {
		return 0
	}
	return normalizeAngle(math.Atan2(v[1], v[0]) - yaw0)
}

// Duration returns the duration dt of the primitive.
func (pr *Primitive[V]) Duration() float64 {
	return pr.dt
}

// Control returns the control mode the primitive was generated in.
func (pr *Primitive[V]) Control() Control {
	return pr.control
}

// Input returns the control input.
func (pr *Primitive[V]) Input() V {
	return pr.input
}

// Polynomial returns the position polynomial for dimension i.
func (pr *Primitive[V]) Polynomial(i int) polyn.Polynomial {
	return pr.pos[i]
}

// Derivative evaluates the k-th derivative of position at local time t.
// Orders above jerk are computed on the fly.
func (pr *Primitive[V]) Derivative(k int, t float64) V {
	var v V
	for i := 0; i < len(v); i++ {
		if k <= MaxOrder {
			v[i] = pr.derivs[k][i].Eval(t)
		} else {
			v[i] = pr.pos[i].NthDerivative(k).Eval(t)
		}
	}
	return v
}

// Pos evaluates the position at local time t.
func (pr *Primitive[V]) Pos(t float64) V { return pr.Derivative(0, t) }

// Vel evaluates the velocity at local time t.
func (pr *Primitive[V]) Vel(t float64) V { return pr.Derivative(1, t) }

// Acc evaluates the acceleration at local time t.
func (pr *Primitive[V]) Acc(t float64) V { return pr.Derivative(2, t) }

// Jrk evaluates the jerk at local time t.
func (pr *Primitive[V]) Jrk(t float64) V { return pr.Derivative(3, t) }

// Yaw evaluates the yaw at local time t.
func (pr *Primitive[V]) Yaw(t float64) float64 {
	if pr.dt <= 0 {
		return pr.yaw0
	}
	return normalizeAngle(pr.yaw0 + pr.dyaw*t/pr.dt)
}

// YawChange returns the absolute yaw change over the whole primitive.
func (pr *Primitive[V]) YawChange() float64 {
	return math.Abs(pr.dyaw)
}

// Evaluate returns the full state at local time t. The state carries the
// control flags of the primitive's start state.
func (pr *Primitive[V]) Evaluate(t float64) State[V] {
	return State[V]{
		Pos:     pr.Pos(t),
		Vel:     pr.Vel(t),
		Acc:     pr.Acc(t),
		Jrk:     pr.Jrk(t),
		Yaw:     pr.Yaw(t),
		Control: pr.control,
	}
}

// Successor returns the state at the end of the primitive.
func (pr *Primitive[V]) Successor() State[V] {
	return pr.Evaluate(pr.dt)
}

// Sample returns n+1 states evenly spaced in time over [0, dt]. n < 1 is
// treated as 1.
func (pr *Primitive[V]) Sample(n int) []State[V] {
	n = max(n, 1)
	states := make([]State[V], n+1)
	for j := 0; j <= n; j++ {
		states[j] = pr.Evaluate(pr.dt * float64(j) / float64(n))
	}
	return states
}

// MaxDerivative returns the largest per-axis magnitude of the k-th derivative
// over [0, dt], found analytically from interior extrema and end points.
func (pr *Primitive[V]) MaxDerivative(k int) float64 {
	var m float64
	for i := range pr.pos {
		var p polyn.Polynomial
		if k <= MaxOrder {
			p = pr.derivs[k][i]
		} else {
			p = pr.pos[i].NthDerivative(k)
		}
		v, _ := p.MaxAbs(0, pr.dt)
		m = math.Max(m, v)
	}
	return m
}

// MaxVel returns the maximum per-axis speed along the primitive.
func (pr *Primitive[V]) MaxVel() float64 { return pr.MaxDerivative(1) }

// MaxAcc returns the maximum per-axis acceleration along the primitive.
func (pr *Primitive[V]) MaxAcc() float64 { return pr.MaxDerivative(2) }

// MaxJrk returns the maximum per-axis jerk along the primitive.
func (pr *Primitive[V]) MaxJrk() float64 { return pr.MaxDerivative(3) }

// J returns the control effort of the primitive: the integral of the squared
// derivative of the given order, summed over all dimensions.
func (pr *Primitive[V]) J(order int) float64 {
	var j float64
	for i := range pr.pos {
		d := pr.pos[i].NthDerivative(order)
		j += d.Multiply(d).Integral(0, pr.dt)
	}
	return j
}

func (pr *Primitive[V]) String() string {
	return fmt.Sprintf("prim{%s dt=%g u=%s}", pr.control, pr.dt, kinoplan.Format(pr.input))
}

// === Bounds ================================================================

// Bounds are per-axis limits for velocity, acceleration and jerk, and a limit
// for the yaw change over one primitive. A limit ≤ 0 is not checked.
type Bounds struct {
	Vmax, Amax, Jmax float64
	YawMax           float64
}

// Within is a predicate: does the primitive respect bounds b everywhere on
// [0, dt]?
func (pr *Primitive[V]) Within(b Bounds) bool {
	const slack = 1e-9
	if b.Vmax > 0 && pr.MaxVel() > b.Vmax+slack {
		return false
	}
	if b.Amax > 0 && pr.MaxAcc() > b.Amax+slack {
		return false
	}
	if b.Jmax > 0 && pr.MaxJrk() > b.Jmax+slack {
		return false
	}
	if b.YawMax > 0 && pr.control.Has(UseYaw) && pr.YawChange() > b.YawMax+slack {
		return false
	}
	return true
}
