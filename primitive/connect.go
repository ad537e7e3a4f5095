package primitive

import (
	"fmt"
	"math"

	"github.com/npillmayer/kinoplan"
	"github.com/npillmayer/kinoplan/polyn"
)

// Connect solves the two-point boundary value problem between s1 and s2 for
// duration dt. Both states must share their control mode (yaw aside). The
// segment is
//
//   - linear for VEL (positions given),
//   - a cubic Hermite polynomial for ACC (positions and velocities),
//   - a quintic for JRK (positions, velocities and accelerations).
//
// SNP states and non-positive durations yield ErrInfeasibleBoundary. If both
// states use yaw, yaw is interpolated linearly.
func Connect[V kinoplan.Vector](s1, s2 State[V], dt float64) (*Primitive[V], error) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("%w: duration %g", ErrInfeasibleBoundary, dt)
	}
	c1, c2 := s1.Control&^UseYaw, s2.Control&^UseYaw
	if c1 != c2 {
		return nil, fmt.Errorf("%w: control modes %s and %s differ", ErrInfeasibleBoundary,
			s1.Control, s2.Control)
	}
	if err := s1.Control.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInfeasibleBoundary, err)
	}
	var zero V
	polys := make([]polyn.Polynomial, len(zero))
	h := dt
	for i := range polys {
		p1, p2 := s1.Pos[i], s2.Pos[i]
		v1, v2 := s1.Vel[i], s2.Vel[i]
		a1, a2 := s1.Acc[i], s2.Acc[i]
		switch c1 {
		case VEL:
			polys[i] = polyn.FromCoefficients([]float64{p1, (p2 - p1) / h})
		case ACC:
			polys[i] = polyn.FromCoefficients([]float64{
				p1,
				v1,
				(3*(p2-p1) - (2*v1+v2)*h) / (h * h),
				(2*(p1-p2) + (v1+v2)*h) / (h * h * h),
			})
		case JRK:
			dp := p2 - (p1 + v1*h + a1*h*h/2)
			dv := v2 - (v1 + a1*h)
			da := a2 - a1
			polys[i] = polyn.FromCoefficients([]float64{
				p1,
				v1,
				a1 / 2,
				(10*dp - 4*dv*h + 0.5*da*h*h) / math.Pow(h, 3),
				(-15*dp + 7*dv*h - da*h*h) / math.Pow(h, 4),
				(6*dp - 3*dv*h + 0.5*da*h*h) / math.Pow(h, 5),
			})
		default:
			return nil, fmt.Errorf("%w: no closed-form connection for mode %s",
				ErrInfeasibleBoundary, s1.Control)
		}
	}
	pr, err := FromPolynomials[V](polys, dt, s1.Control)
	if err != nil {
		return nil, err
	}
	pr.yaw0 = s1.Yaw
	if s1.Control.Has(UseYaw) && s2.Control.Has(UseYaw) {
		pr.dyaw = normalizeAngle(s2.Yaw - s1.Yaw)
	}
	tracer().Debugf("connected %s -> %s in %gs", s1, s2, dt)
	return pr, nil
}
