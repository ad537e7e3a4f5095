package oracle

import (
	"math"
	"testing"

	"github.com/npillmayer/kinoplan"
	"github.com/npillmayer/kinoplan/polygon"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ DistanceField[kinoplan.Vec2] = (*Grid[kinoplan.Vec2])(nil)
	_ DistanceField[kinoplan.Vec3] = (*Grid[kinoplan.Vec3])(nil)
	_ DistanceField[kinoplan.Vec2] = (*PolygonMap)(nil)
	_ CloudProvider[kinoplan.Vec2] = (*PolygonMap)(nil)
)

func TestGridOccupancy(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.oracle")
	defer teardown()
	//
	g, err := NewGrid(kinoplan.V2(-1, -1), kinoplan.V2(4, 2), 0.5)
	require.NoError(t, err)
	assert.Equal(t, []int{8, 4}, g.Dims())
	assert.True(t, g.IsFree(kinoplan.V2(0, 0)))
	assert.False(t, g.IsFree(kinoplan.V2(3.5, 0)), "outside of grid")
	g.Occupy(kinoplan.V2(0.1, 0.1))
	assert.False(t, g.IsFree(kinoplan.V2(0.4, 0.4)))
	assert.True(t, g.IsFree(kinoplan.V2(0.6, 0.4)))
	g.OccupyBox(kinoplan.V2(1, -1), kinoplan.V2(1.5, 1))
	assert.False(t, g.IsFree(kinoplan.V2(1.2, 0.7)))
	assert.Len(t, g.Cloud(), 1+4)
	lo, hi := g.Bounds()
	assert.Equal(t, kinoplan.V2(-1, -1), lo)
	assert.Equal(t, kinoplan.V2(3, 1), hi)
	_, err = NewGrid(kinoplan.V2(0, 0), kinoplan.V2(1, 1), 0)
	assert.ErrorIs(t, err, ErrInvalidGrid)
}

func TestGridDistanceMap(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.oracle")
	defer teardown()
	//
	g, err := NewGrid(kinoplan.V2(0, 0), kinoplan.V2(5, 5), 0.25)
	require.NoError(t, err)
	obstacle := kinoplan.V2(2.6, 2.6)
	g.Occupy(obstacle)
	phi, _ := g.Potential(kinoplan.V2(1, 1))
	assert.Equal(t, 0.0, phi, "no potential before update")
	g.UpdatePotential(1.0)
	require.True(t, g.HasPotential())
	assert.InDelta(t, 0.0, g.Distance(obstacle), 1e-12)
	assert.InDelta(t, 0.5, g.Distance(kinoplan.V2(3.1, 2.6)), 1e-9)
	assert.True(t, math.IsInf(g.Distance(kinoplan.V2(0.2, 0.2)), 1))
	phi, grad := g.Potential(kinoplan.V2(3.1, 2.6))
	assert.InDelta(t, 0.25, phi, 1e-9)
	assert.Less(t, grad[0], 0.0, "potential grows towards the obstacle")
	far, _ := g.Potential(kinoplan.V2(0.2, 0.2))
	assert.Equal(t, 0.0, far)
	g.Occupy(kinoplan.V2(0.1, 0.1))
	assert.False(t, g.HasPotential(), "occupancy change invalidates the distance map")
}

func TestGrid3D(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.oracle")
	defer teardown()
	//
	g, err := NewGrid(kinoplan.V3(0, 0, 0), kinoplan.V3(2, 2, 2), 0.5)
	require.NoError(t, err)
	g.Occupy(kinoplan.V3(1.2, 1.2, 1.2))
	g.UpdatePotential(1)
	assert.InDelta(t, 0.5*math.Sqrt(3), g.Distance(kinoplan.V3(0.7, 0.7, 0.7)), 1e-9)
	assert.Len(t, neighbourOffsets(3), 26)
}

func TestPolygonMap(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.oracle")
	defer teardown()
	//
	m := NewPolygonMap(kinoplan.V2(0, 0), kinoplan.V2(10, 10), 0.5)
	m.Add(polygon.Box(kinoplan.V2(4, 4), kinoplan.V2(6, 6)))
	assert.True(t, m.IsFree(kinoplan.V2(1, 1)))
	assert.False(t, m.IsFree(kinoplan.V2(5, 5)))
	assert.False(t, m.IsFree(kinoplan.V2(-1, 5)))
	phi, _ := m.Potential(kinoplan.V2(3, 5))
	assert.Equal(t, 0.0, phi, "potential is off by default")
	m.SetPotentialRadius(2)
	phi, grad := m.Potential(kinoplan.V2(3, 5))
	assert.InDelta(t, 0.25, phi, 1e-9)
	assert.Greater(t, grad[0], 0.0)
	assert.InDelta(t, 0.0, grad[1], 1e-9)
	assert.Len(t, m.Cloud(), 16)
}
