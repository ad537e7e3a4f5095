package polyn

import (
	"math"
	"sort"

	"github.com/npillmayer/kinoplan"
)

// rootSamples is the number of sub-intervals scanned for sign changes when a
// polynomial's degree is too high for a closed-form solution.
const rootSamples = 64

// RealRoots returns the real roots of p in ascending order. Polynomials up to
// degree 3 are solved in closed form; for higher degrees RealRoots returns
// nil, clients should use RootsIn with a bounded interval instead.
// The zero polynomial has no (isolated) roots.
func (p Polynomial) RealRoots() []float64 {
	var r []float64
	switch p.Degree() {
	case 0:
		return nil
	case 1:
		r = []float64{-p.Coeff(0) / p.Coeff(1)}
	case 2:
		r = quadraticRoots(p.Coeff(2), p.Coeff(1), p.Coeff(0))
	case 3:
		r = cubicRoots(p.Coeff(3), p.Coeff(2), p.Coeff(1), p.Coeff(0))
	default:
		tracer().Debugf("no closed-form roots for degree %d", p.Degree())
		return nil
	}
	sort.Float64s(r)
	return r
}

// RootsIn returns the real roots of p within [a, b] in ascending order.
func (p Polynomial) RootsIn(a, b float64) []float64 {
	if a > b {
		a, b = b, a
	}
	if p.Degree() == 0 {
		return nil
	}
	var roots []float64
	if p.Degree() <= 3 {
		for _, t := range p.RealRoots() {
			if t >= a-kinoplan.Epsilon && t <= b+kinoplan.Epsilon {
				roots = append(roots, kinoplan.Clamp(t, a, b))
			}
		}
		return roots
	}
	h := (b - a) / rootSamples
	t0, v0 := a, p.Eval(a)
	if v0 == 0 {
		roots = append(roots, a)
	}
	for i := 1; i <= rootSamples; i++ {
		t1 := a + float64(i)*h
		v1 := p.Eval(t1)
		if v1 == 0 {
			roots = append(roots, t1)
		} else if v0*v1 < 0 {
			roots = append(roots, p.bisect(t0, t1, v0))
		}
		t0, v0 = t1, v1
	}
	return roots
}

// bisect narrows a sign change of p in [lo, hi]; vlo = p(lo).
func (p Polynomial) bisect(lo, hi, vlo float64) float64 {
	for i := 0; i < 100 && hi-lo > kinoplan.Epsilon; i++ {
		mid := (lo + hi) / 2
		vm := p.Eval(mid)
		if vm == 0 {
			return mid
		}
		if vlo*vm < 0 {
			hi = mid
		} else {
			lo, vlo = mid, vm
		}
	}
	return (lo + hi) / 2
}

// quadraticRoots solves a t² + b t + c = 0 with the cancellation-free form.
func quadraticRoots(a, b, c float64) []float64 {
	if a == 0 {
		if b == 0 {
			return nil
		}
		return []float64{-c / b}
	}
	disc := b*b - 4*a*c
	if disc < 0 {
		if disc > -kinoplan.Epsilon*math.Max(1, b*b) {
			disc = 0
		} else {
			return nil
		}
	}
	if disc == 0 {
		return []float64{-b / (2 * a)}
	}
	q := -0.5 * (b + math.Copysign(math.Sqrt(disc), b))
	r := []float64{q / a}
	if q != 0 {
		r = append(r, c/q)
	} else {
		r = append(r, -r[0])
	}
	return r
}

// cubicRoots solves a t³ + b t² + c t + d = 0 (trigonometric / Cardano form).
func cubicRoots(a, b, c, d float64) []float64 {
	if a == 0 {
		return quadraticRoots(b, c, d)
	}
	b, c, d = b/a, c/a, d/a
	q := (3*c - b*b) / 9
	r := (9*b*c - 27*d - 2*b*b*b) / 54
	disc := q*q*q + r*r
	shift := -b / 3
	switch {
	case disc > kinoplan.Epsilon:
		sq := math.Sqrt(disc)
		return []float64{shift + math.Cbrt(r+sq) + math.Cbrt(r-sq)}
	case disc >= -kinoplan.Epsilon && q > -kinoplan.Epsilon:
		// triple root
		return []float64{shift + 2*math.Cbrt(r)}
	case disc >= -kinoplan.Epsilon:
		s := math.Cbrt(r)
		return []float64{shift + 2*s, shift - s}
	}
	theta := math.Acos(kinoplan.Clamp(r/math.Sqrt(-q*q*q), -1, 1))
	m := 2 * math.Sqrt(-q)
	return []float64{
		shift + m*math.Cos(theta/3),
		shift + m*math.Cos((theta+2*math.Pi)/3),
		shift + m*math.Cos((theta+4*math.Pi)/3),
	}
}
