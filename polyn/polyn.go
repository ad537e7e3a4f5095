// Package polyn is for arithmetic with univariate polynomials in time.
/*
BSD 3-Clause License

Copyright (c) 2017–21, Norbert Pillmayer.

All rights reserved.

Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions are met:

1. Redistributions of source code must retain the above copyright notice, this
   list of conditions and the following disclaimer.

2. Redistributions in binary form must reproduce the above copyright notice,
   this list of conditions and the following disclaimer in the documentation
   and/or other materials provided with the distribution.

3. Neither the name of the copyright holder nor the names of its
   contributors may be used to endorse or promote products derived from
   this software without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE LIABLE
FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR CONSEQUENTIAL
DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER
CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY,
OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.
*/
package polyn

import (
	"bytes"
	"fmt"
	"math"

	"github.com/npillmayer/kinoplan"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces to key 'kinoplan.polyn'.
func tracer() tracing.Trace {
	return tracing.Select("kinoplan.polyn")
}

// X is a helper for quick construction of polynomials.
// It denotes a term
//
//	C⋅t^I
//
// I ≥ 0
type X struct {
	I int     // exponent of t
	C float64 // coefficient
}

// New creates a polynomial, given the constant term and further terms.
//
// Use it as
//
//	polyn.New(8, polyn.X{2, 5}, polyn.X{1, 2.0/3})
//
// to get
//
//	p(t) = 8 + 2/3t + 5t²
//
// Terms with negative exponents are skipped. Repeated exponents accumulate.
func New(c float64, tms ...X) Polynomial {
	deg := 0
	for _, t := range tms {
		if t.I > deg {
			deg = t.I
		}
	}
	p := Polynomial{c: make([]float64, deg+1)}
	p.c[0] = c
	for _, t := range tms {
		if t.I < 0 {
			tracer().Errorf("term exponent must be non-negative, skipping t^%d", t.I)
			continue
		}
		p.c[t.I] += t.C
	}
	return p.trim()
}

// Polynomial is a type for polynomials in a single variable t
//
//	c.0 + c.1 t + c.2 t² + ... c.n tⁿ .
//
// We store the coefficients only, densely. Index 0 is the constant term.
// The zero value is the zero polynomial. Polynomials are values: no
// operation modifies its receiver.
type Polynomial struct {
	c []float64
}

// FromCoefficients creates a polynomial from coefficients in ascending order
// of exponents. The slice is copied.
func FromCoefficients(c []float64) Polynomial {
	p := Polynomial{c: make([]float64, len(c))}
	copy(p.c, c)
	return p.trim()
}

// Constant creates a polynomial consisting of just a constant term.
func Constant(c float64) Polynomial {
	return Polynomial{c: []float64{c}}.trim()
}

func (p Polynomial) trim() Polynomial {
	n := len(p.c)
	for n > 0 && p.c[n-1] == 0 {
		n--
	}
	p.c = p.c[:n]
	return p
}

// Degree returns the highest exponent with a non-zero coefficient. The zero
// polynomial has degree 0.
func (p Polynomial) Degree() int {
	if len(p.c) == 0 {
		return 0
	}
	return len(p.c) - 1
}

// Coeff returns the coefficient of tⁱ.
func (p Polynomial) Coeff(i int) float64 {
	if i < 0 || i >= len(p.c) {
		return 0
	}
	return p.c[i]
}

// Coefficients returns a copy of the coefficients in ascending order.
func (p Polynomial) Coefficients() []float64 {
	c := make([]float64, len(p.c))
	copy(c, p.c)
	return c
}

// IsConstant is a predicate: is p of degree 0? Returns the constant term.
func (p Polynomial) IsConstant() (float64, bool) {
	return p.Coeff(0), len(p.c) <= 1
}

// Eval evaluates p at t (Horner scheme).
func (p Polynomial) Eval(t float64) float64 {
	var v float64
	for i := len(p.c) - 1; i >= 0; i-- {
		v = v*t + p.c[i]
	}
	return v
}

// Derivative returns dp/dt.
func (p Polynomial) Derivative() Polynomial {
	if len(p.c) <= 1 {
		return Polynomial{}
	}
	d := Polynomial{c: make([]float64, len(p.c)-1)}
	for i := 1; i < len(p.c); i++ {
		d.c[i-1] = float64(i) * p.c[i]
	}
	return d.trim()
}

// NthDerivative returns the n-th derivative of p. n = 0 returns p.
func (p Polynomial) NthDerivative(n int) Polynomial {
	for ; n > 0; n-- {
		p = p.Derivative()
	}
	return p
}

// Antiderivative returns the primitive of p with constant term 0.
func (p Polynomial) Antiderivative() Polynomial {
	a := Polynomial{c: make([]float64, len(p.c)+1)}
	for i, c := range p.c {
		a.c[i+1] = c / float64(i+1)
	}
	return a.trim()
}

// Integral returns the definite integral of p over [a, b].
func (p Polynomial) Integral(a, b float64) float64 {
	P := p.Antiderivative()
	return P.Eval(b) - P.Eval(a)
}

// Add returns p + q.
func (p Polynomial) Add(q Polynomial) Polynomial {
	n := max(len(p.c), len(q.c))
	s := Polynomial{c: make([]float64, n)}
	for i := 0; i < n; i++ {
		s.c[i] = p.Coeff(i) + q.Coeff(i)
	}
	return s.trim()
}

// Scale returns a⋅p.
func (p Polynomial) Scale(a float64) Polynomial {
	s := Polynomial{c: make([]float64, len(p.c))}
	for i, c := range p.c {
		s.c[i] = a * c
	}
	return s.trim()
}

// Multiply returns p⋅q.
func (p Polynomial) Multiply(q Polynomial) Polynomial {
	if len(p.c) == 0 || len(q.c) == 0 {
		return Polynomial{}
	}
	m := Polynomial{c: make([]float64, len(p.c)+len(q.c)-1)}
	for i, a := range p.c {
		for j, b := range q.c {
			m.c[i+j] += a * b
		}
	}
	return m.trim()
}

// Zap sets all coefficients which "mean" to be zero to 0.
func (p Polynomial) Zap() Polynomial {
	z := Polynomial{c: make([]float64, len(p.c))}
	for i, c := range p.c {
		z.c[i] = kinoplan.Zap(c)
	}
	return z.trim()
}

// Equal compares two polynomials coefficient-wise within kinoplan.Epsilon.
func (p Polynomial) Equal(q Polynomial) bool {
	n := max(len(p.c), len(q.c))
	for i := 0; i < n; i++ {
		if !kinoplan.Is0(p.Coeff(i) - q.Coeff(i)) {
			return false
		}
	}
	return true
}

// String is the Stringer for a polynomial, highest exponent last.
func (p Polynomial) String() string {
	if len(p.c) == 0 {
		return "0"
	}
	var s bytes.Buffer
	for i, c := range p.c {
		if c == 0 && i > 0 {
			continue
		}
		if s.Len() > 0 {
			if c < 0 {
				s.WriteString(" - ")
				c = -c
			} else {
				s.WriteString(" + ")
			}
		}
		switch i {
		case 0:
			s.WriteString(fmt.Sprintf("%g", c))
		case 1:
			s.WriteString(fmt.Sprintf("%gt", c))
		default:
			s.WriteString(fmt.Sprintf("%gt^%d", c, i))
		}
	}
	return s.String()
}

// === Extrema ===============================================================

// MaxAbs returns the maximum of |p(t)| for t in [a, b], and the t where it is
// attained. Candidates are the interval ends and the real roots of dp/dt.
func (p Polynomial) MaxAbs(a, b float64) (float64, float64) {
	if a > b {
		a, b = b, a
	}
	best, arg := math.Abs(p.Eval(a)), a
	if v := math.Abs(p.Eval(b)); v > best {
		best, arg = v, b
	}
	for _, t := range p.Derivative().RootsIn(a, b) {
		if v := math.Abs(p.Eval(t)); v > best {
			best, arg = v, t
		}
	}
	return best, arg
}
