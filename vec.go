package kinoplan

import (
	"fmt"
	"math"
	"strings"
)

// Vec2 is a point or direction in the plane.
type Vec2 [2]float64

// Vec3 is a point or direction in space.
type Vec3 [3]float64

// Vector is the constraint for all dimension-generic code of this module.
// A single planner or solver instance is bound to one of the two types and
// never mixes them.
type Vector interface {
	Vec2 | Vec3
}

// V2 is a quick notation for constructing a planar vector.
func V2(x, y float64) Vec2 {
	return Vec2{x, y}
}

// V3 is a quick notation for constructing a spatial vector.
func V3(x, y, z float64) Vec3 {
	return Vec3{x, y, z}
}

// Dim returns the dimension of vector type V.
func Dim[V Vector]() int {
	var v V
	return len(v)
}

// Uniform returns a vector with all components set to x.
func Uniform[V Vector](x float64) V {
	var v V
	for i := 0; i < len(v); i++ {
		v[i] = x
	}
	return v
}

// FromSlice copies the first Dim components of s into a vector. Missing
// components are left 0.
func FromSlice[V Vector](s []float64) V {
	var v V
	if len(s) != len(v) {
		tracer().Errorf("vector of dimension %d created from %d values", len(v), len(s))
	}
	for i := 0; i < len(v) && i < len(s); i++ {
		v[i] = s[i]
	}
	return v
}

// Slice returns the components of v as a fresh slice.
func Slice[V Vector](v V) []float64 {
	s := make([]float64, len(v))
	for i := 0; i < len(v); i++ {
		s[i] = v[i]
	}
	return s
}

// Add returns a + b.
func Add[V Vector](a, b V) V {
	for i := 0; i < len(a); i++ {
		a[i] += b[i]
	}
	return a
}

// Sub returns a - b.
func Sub[V Vector](a, b V) V {
	for i := 0; i < len(a); i++ {
		a[i] -= b[i]
	}
	return a
}

// Scale returns s⋅a.
func Scale[V Vector](a V, s float64) V {
	for i := 0; i < len(a); i++ {
		a[i] *= s
	}
	return a
}

// AddScaled returns a + s⋅b.
func AddScaled[V Vector](a, b V, s float64) V {
	for i := 0; i < len(a); i++ {
		a[i] += s * b[i]
	}
	return a
}

// Dot returns the inner product of a and b.
func Dot[V Vector](a, b V) float64 {
	var d float64
	for i := 0; i < len(a); i++ {
		d += a[i] * b[i]
	}
	return d
}

// Norm returns the Euclidean length of a.
func Norm[V Vector](a V) float64 {
	return math.Sqrt(Dot(a, a))
}

// NormInf returns the largest absolute component of a.
func NormInf[V Vector](a V) float64 {
	var m float64
	for i := 0; i < len(a); i++ {
		m = math.Max(m, math.Abs(a[i]))
	}
	return m
}

// Dist returns the Euclidean distance between a and b.
func Dist[V Vector](a, b V) float64 {
	return Norm(Sub(a, b))
}

// Equal compares two vectors component-wise within Epsilon.
func Equal[V Vector](a, b V) bool {
	for i := 0; i < len(a); i++ {
		if !Is0(a[i] - b[i]) {
			return false
		}
	}
	return true
}

// IsZero is a predicate: are all components of a (near) 0?
func IsZero[V Vector](a V) bool {
	var zero V
	return Equal(a, zero)
}

// Lerp interpolates linearly between a (s = 0) and b (s = 1).
func Lerp[V Vector](a, b V, s float64) V {
	return AddScaled(a, Sub(b, a), s)
}

// Abs returns the component-wise absolute value of a.
func Abs[V Vector](a V) V {
	for i := 0; i < len(a); i++ {
		a[i] = math.Abs(a[i])
	}
	return a
}

// Format is a pretty printer for vectors.
func Format[V Vector](a V) string {
	var b strings.Builder
	b.WriteByte('(')
	for i := 0; i < len(a); i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%g", a[i])
	}
	b.WriteByte(')')
	return b.String()
}
