package polyn

import (
	"math"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
)

func TestNewAndEval(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.polyn")
	defer teardown()
	//
	p := New(8, X{2, 5}, X{1, 2.0 / 3})
	t.Logf("p = %s", p)
	assert.Equal(t, 2, p.Degree())
	assert.InDelta(t, 8.0, p.Eval(0), 1e-12)
	assert.InDelta(t, 8+2.0/3*2+5*4, p.Eval(2), 1e-12)
	q := New(1, X{-1, 3})
	assert.Equal(t, 0, q.Degree(), "negative exponents must be skipped")
}

func TestDerivativeAndIntegral(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.polyn")
	defer teardown()
	//
	p := FromCoefficients([]float64{1, 2, 3, 4}) // 1 + 2t + 3t² + 4t³
	d := p.Derivative()
	assert.True(t, d.Equal(FromCoefficients([]float64{2, 6, 12})), "d = %s", d)
	assert.True(t, p.NthDerivative(3).Equal(Constant(24)))
	assert.Equal(t, 0, p.NthDerivative(4).Degree())
	assert.InDelta(t, 1+1+1+1, p.Integral(0, 1), 1e-12)
	assert.InDelta(t, -p.Integral(0, 1), p.Integral(1, 0), 1e-12)
}

func TestArithmetic(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.polyn")
	defer teardown()
	//
	p := FromCoefficients([]float64{1, 1})  // 1 + t
	q := FromCoefficients([]float64{-1, 1}) // -1 + t
	assert.True(t, p.Multiply(q).Equal(FromCoefficients([]float64{-1, 0, 1})))
	assert.True(t, p.Add(q).Equal(FromCoefficients([]float64{0, 2})))
	assert.True(t, p.Add(p.Scale(-1)).Equal(Polynomial{}))
	c, ok := p.Add(p.Scale(-1)).IsConstant()
	assert.True(t, ok)
	assert.Equal(t, 0.0, c)
}

func TestRealRoots(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.polyn")
	defer teardown()
	//
	lin := FromCoefficients([]float64{-3, 2})
	assert.InDeltaSlice(t, []float64{1.5}, lin.RealRoots(), 1e-12)
	quad := FromCoefficients([]float64{-1, 0, 1})
	assert.InDeltaSlice(t, []float64{-1, 1}, quad.RealRoots(), 1e-12)
	assert.Empty(t, FromCoefficients([]float64{1, 0, 1}).RealRoots())
	// (t-1)(t-2)(t-3) = t³ - 6t² + 11t - 6
	cub := FromCoefficients([]float64{-6, 11, -6, 1})
	assert.InDeltaSlice(t, []float64{1, 2, 3}, cub.RealRoots(), 1e-9)
	// t³ - 1 has a single real root
	assert.InDeltaSlice(t, []float64{1}, FromCoefficients([]float64{-1, 0, 0, 1}).RealRoots(), 1e-9)
}

func TestRootsInHighDegree(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.polyn")
	defer teardown()
	//
	// (t-0.5)(t-1.5)(t+1)(t-4)(t²+1) has roots 0.5 and 1.5 in [0,2]
	p := FromCoefficients([]float64{-0.5, 1}).
		Multiply(FromCoefficients([]float64{-1.5, 1})).
		Multiply(FromCoefficients([]float64{1, 1})).
		Multiply(FromCoefficients([]float64{-4, 1})).
		Multiply(FromCoefficients([]float64{1, 0, 1}))
	assert.Equal(t, 6, p.Degree())
	assert.Nil(t, p.RealRoots())
	assert.InDeltaSlice(t, []float64{0.5, 1.5}, p.RootsIn(0, 2), 1e-7)
}

func TestMaxAbs(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.polyn")
	defer teardown()
	//
	// v(t) = t - t², maximum 0.25 at t = 0.5
	v := FromCoefficients([]float64{0, 1, -1})
	m, arg := v.MaxAbs(0, 1)
	assert.InDelta(t, 0.25, m, 1e-12)
	assert.InDelta(t, 0.5, arg, 1e-12)
	m, arg = v.MaxAbs(0, 3)
	assert.InDelta(t, 6.0, m, 1e-12)
	assert.InDelta(t, 3.0, arg, 1e-12)
	m, _ = Constant(-2).MaxAbs(0, 1)
	assert.InDelta(t, 2.0, m, 1e-12)
	assert.False(t, math.IsNaN(m))
}
