package polygon

import (
	"testing"

	"github.com/npillmayer/kinoplan"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
)

func TestBuilder(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.polygon")
	defer teardown()
	pg := NullPolygon().Knot(kinoplan.V2(0, 0)).Knot(kinoplan.V2(1, 3)).Knot(kinoplan.V2(3, 0)).Cycle()
	L().Infof("pg = %s", AsString(pg))
	if pg.N() != 3 {
		t.Fail()
	}
	closed := NullPolygon().Knot(kinoplan.V2(0, 0)).Knot(kinoplan.V2(1, 3)).
		Knot(kinoplan.V2(1, 3)).Knot(kinoplan.V2(3, 0)).Knot(kinoplan.V2(0, 0)).Cycle()
	assert.Equal(t, 3, closed.N(), "duplicate knots must be dropped")
}

func TestBox(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.polygon")
	defer teardown()
	box := Box(kinoplan.V2(0, 5), kinoplan.V2(4, 1))
	L().Infof("box = %s", AsString(box))
	if box.N() != 4 {
		t.Fail()
	}
	assert.True(t, box.Contains(kinoplan.V2(2, 3)))
	assert.False(t, box.Contains(kinoplan.V2(5, 3)))
	n := 0
	box.Edges(func(a, b kinoplan.Vec2) { n++ })
	assert.Equal(t, 4, n)
}

func TestTransformed(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.polygon")
	defer teardown()
	box := Box(kinoplan.V2(-1, -0.2), kinoplan.V2(1, 0.2))
	m := kinoplan.Rotation(90 * kinoplan.Deg2Rad).Then(kinoplan.Translation(kinoplan.V2(5, 5)))
	bar := box.Transformed(m)
	assert.True(t, bar.Contains(kinoplan.V2(5, 5.8)))
	assert.False(t, bar.Contains(kinoplan.V2(5.8, 5)))
}

func TestSetUnion(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.polygon")
	defer teardown()
	var s Set
	assert.True(t, s.Empty())
	s.Add(Box(kinoplan.V2(0, 0), kinoplan.V2(2, 2)))
	s.Add(Box(kinoplan.V2(1, 1), kinoplan.V2(3, 3)))
	s.Add(NullPolygon().Knot(kinoplan.V2(0, 0)).Cycle())
	assert.False(t, s.Empty())
	assert.True(t, s.Contains(kinoplan.V2(0.5, 0.5)))
	assert.True(t, s.Contains(kinoplan.V2(2.5, 2.5)))
	assert.True(t, s.Contains(kinoplan.V2(1.5, 1.5)))
	assert.False(t, s.Contains(kinoplan.V2(2.5, 0.5)))
	assert.NotEmpty(t, s.Contours())
}
