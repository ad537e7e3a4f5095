/*
Package kinoplan computes dynamically feasible trajectories for a single agent
moving in 2D or 3D space.

Two engines live in sub-packages: package planner searches a lattice of
closed-form motion primitives (package primitive) with a weighted A*, and
package polysolver fits minimum-energy piecewise polynomials through waypoints.
Both produce trajectories of package traj.

This package holds what all of them share: numeric tolerances, fixed-dimension
vectors and a small set of planar transforms.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package kinoplan

import (
	"fmt"
	"math"

	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'kinoplan'
func tracer() tracing.Trace {
	return tracing.Select("kinoplan")
}

// === Numeric Tolerances ====================================================

// Deg2Rad is a constant for converting from DEG to RAD or vice versa
const Deg2Rad float64 = math.Pi / 180

// Epsilon : numbers below ε are considered 0
var Epsilon float64 = 1e-9

// Is0 is a predicate: is n = 0 ?
func Is0(n float64) bool {
	return math.Abs(n) <= Epsilon
}

// Zap makes n = 0 if n "means" to be zero
func Zap(n float64) float64 {
	if Is0(n) {
		n = 0
	}
	return n
}

// Round to ε.
func Round(n float64) float64 {
	return math.Round(n/Epsilon) * Epsilon
}

// Quantize maps n onto the integer grid of spacing res. Used for building
// discretization keys of continuous states.
func Quantize(n, res float64) int64 {
	if res <= 0 {
		res = Epsilon
	}
	return int64(math.Round(n / res))
}

// Clamp restricts n to [lo, hi].
func Clamp(n, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, n))
}

// IsFinite is a predicate: is n neither NaN nor ±Inf?
func IsFinite(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0)
}

// === Planar Transforms =====================================================

// AT is an affine transform in the plane, a 3x3 matrix flattened by rows.
// Map layers use it to place obstacle shapes.
type AT [9]float64

// Identity transform. Will transform a point onto itself.
func Identity() AT {
	return AT{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Translation transform. Translate a point by v.
func Translation(v Vec2) AT {
	return AT{1, 0, v[0], 0, 1, v[1], 0, 0, 1}
}

// Rotation transform. Rotate a point counter-clockwise around the origin.
// Argument is in radians.
func Rotation(theta float64) AT {
	sin, cos := math.Sincos(theta)
	return AT{cos, -sin, 0, sin, cos, 0, 0, 0, 1}
}

// Then returns the transform applying m first and n second.
func (m AT) Then(n AT) AT {
	var o AT
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			var s float64
			for k := 0; k < 3; k++ {
				s += n[row*3+k] * m[k*3+col]
			}
			o[row*3+col] = s
		}
	}
	return o
}

// Apply transforms a 2D-point. The argument is unchanged.
func (m AT) Apply(p Vec2) Vec2 {
	return Vec2{
		Zap(m[0]*p[0] + m[1]*p[1] + m[2]),
		Zap(m[3]*p[0] + m[4]*p[1] + m[5]),
	}
}

// Debug Stringer for an affine transform.
func (m AT) String() string {
	return fmt.Sprintf("[%g,%g,%g|%g,%g,%g|%g,%g,%g]",
		m[0], m[1], m[2], m[3], m[4], m[5], m[6], m[7], m[8])
}
