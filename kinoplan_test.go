package kinoplan

import (
	"math"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
)

func TestNumericBasic(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	a := 0.0000000008
	if !Is0(a) {
		t.Errorf("Expected a to be zero, is not")
	}
	assert.Equal(t, 0.0, Zap(-1e-12))
	assert.Equal(t, int64(3), Quantize(0.74, 0.25))
	assert.Equal(t, int64(-4), Quantize(-1.0, 0.25))
	assert.Equal(t, 1.0, Clamp(3, -1, 1))
	assert.False(t, IsFinite(math.NaN()))
	assert.False(t, IsFinite(math.Inf(-1)))
}

func TestVectorArithmetic(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	p, q := V2(3, 2), V2(-3, -2)
	if !IsZero(Add(p, q)) {
		t.Errorf("Expected p + q to be (0,0), is %v", Add(p, q))
	}
	assert.Equal(t, 2, Dim[Vec2]())
	assert.Equal(t, 3, Dim[Vec3]())
	assert.Equal(t, V3(1, 1, 1), Uniform[Vec3](1))
	a, b := V3(1, 2, 2), V3(0, -1, 4)
	assert.Equal(t, 3.0, Norm(a))
	assert.Equal(t, 4.0, NormInf(b))
	assert.Equal(t, 6.0, Dot(a, b))
	assert.Equal(t, V3(1, 1, 6), AddScaled(a, b, 1))
	assert.Equal(t, V3(0.5, 0.5, 3), Lerp(a, b, 0.5))
	assert.Equal(t, V3(0, 1, 4), Abs(b))
	assert.True(t, Equal(Sub(a, a), Vec3{}))
	assert.Equal(t, []float64{1, 2, 2}, Slice(a))
	assert.Equal(t, V2(1, 0), FromSlice[Vec2]([]float64{1}))
	assert.Equal(t, "(1,2,2)", Format(a))
}

func TestTransforms(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	if !IsZero(Translation(V2(-1, -1)).Apply(V2(1, 1))) {
		t.Errorf("Expected (1,1) shifted (-1,-1) to be origin, is not")
	}
	m := Rotation(180 * Deg2Rad).Then(Translation(V2(1, 0)))
	if !IsZero(m.Apply(V2(1, 0))) {
		t.Errorf("Expected result to be origin, is %v", m.Apply(V2(1, 0)))
	}
	assert.Equal(t, V2(4, 5), Identity().Apply(V2(4, 5)))
}
