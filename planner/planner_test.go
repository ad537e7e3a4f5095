package planner

import (
	"math"
	"testing"
	"time"

	"github.com/npillmayer/kinoplan"
	"github.com/npillmayer/kinoplan/oracle"
	"github.com/npillmayer/kinoplan/polysolver"
	"github.com/npillmayer/kinoplan/primitive"
	"github.com/npillmayer/schuko/schukonf/testconfig"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// accelerations {-0.5, 0, 0.5}²
func gridInputs() []kinoplan.Vec2 {
	var U []kinoplan.Vec2
	for _, x := range []float64{-0.5, 0, 0.5} {
		for _, y := range []float64{-0.5, 0, 0.5} {
			U = append(U, kinoplan.V2(x, y))
		}
	}
	return U
}

func openMap(t *testing.T) *oracle.Grid[kinoplan.Vec2] {
	t.Helper()
	g, err := oracle.NewGrid(kinoplan.V2(-3, -3), kinoplan.V2(11, 6), 0.25)
	require.NoError(t, err)
	return g
}

func atRest(x, y float64) primitive.State[kinoplan.Vec2] {
	return primitive.NewState(kinoplan.V2(x, y), primitive.ACC)
}

func TestPlanOpenSpace(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.planner")
	defer teardown()
	//
	g := openMap(t)
	p, err := New[kinoplan.Vec2](g, gridInputs(), WithDt(1), WithVmax(1), WithAmax(1))
	require.NoError(t, err)
	goal := primitive.NewState(kinoplan.V2(5, 0), primitive.VEL)
	require.NoError(t, p.Plan(atRest(0, 0), goal))
	tr := p.Traj()
	require.NotNil(t, tr)
	// accelerating by 0.5 to vmax=1 needs 2 steps for 1 unit, then 1 unit per step
	assert.Equal(t, 6, tr.Len())
	assert.InDelta(t, 6.0, p.Cost(), 1e-9)
	assert.InDelta(t, 6.0, tr.TotalTime(), 1e-9)
	end, err := tr.Evaluate(tr.TotalTime())
	require.NoError(t, err)
	assert.LessOrEqual(t, kinoplan.NormInf(kinoplan.Sub(end.Pos, goal.Pos)), 0.5)
	for i, pr := range tr.Segments() {
		assert.LessOrEqual(t, pr.MaxVel(), 1+1e-9, "segment %d breaks velocity limit", i)
		assert.LessOrEqual(t, pr.MaxAcc(), 1+1e-9, "segment %d breaks acceleration limit", i)
	}
	for _, s := range tr.Sample(100) {
		assert.True(t, g.IsFree(s.Pos), "sample %s is not free", kinoplan.Format(s.Pos))
	}
	assert.Equal(t, p.Expansions(), len(p.CloseSet()))
	assert.NotEmpty(t, p.OpenSet())
}

func TestPlanEnclosedGoal(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.planner")
	defer teardown()
	//
	g, err := oracle.NewGrid(kinoplan.V2(-1, -1), kinoplan.V2(8, 8), 0.25)
	require.NoError(t, err)
	g.OccupyBox(kinoplan.V2(2, 2), kinoplan.V2(2.5, 6))
	g.OccupyBox(kinoplan.V2(5.5, 2), kinoplan.V2(6, 6))
	g.OccupyBox(kinoplan.V2(2, 2), kinoplan.V2(6, 2.5))
	g.OccupyBox(kinoplan.V2(2, 5.5), kinoplan.V2(6, 6))
	p, err := New[kinoplan.Vec2](g, gridInputs())
	require.NoError(t, err)
	err = p.Plan(atRest(0, 0), primitive.NewState(kinoplan.V2(4, 4), primitive.VEL))
	assert.ErrorIs(t, err, ErrNoPathFound)
	assert.Nil(t, p.Traj())
	assert.Greater(t, p.Expansions(), 100)
	assert.Empty(t, p.OpenSet())
}

func TestEpsilonBound(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.planner")
	defer teardown()
	//
	g := openMap(t)
	g.OccupyBox(kinoplan.V2(2, -1), kinoplan.V2(2.5, 1))
	goal := primitive.NewState(kinoplan.V2(5, 0), primitive.VEL)
	cost := func(eps float64) (float64, int) {
		p, err := New[kinoplan.Vec2](g, gridInputs(), WithEpsilon(eps))
		require.NoError(t, err)
		require.NoError(t, p.Plan(atRest(0, 0), goal))
		return p.Cost(), p.Expansions()
	}
	optimal, nUniform := cost(0)
	astar, nAstar := cost(1)
	weighted, _ := cost(2)
	assert.InDelta(t, optimal, astar, 1e-9, "A* with a consistent heuristic is optimal")
	assert.LessOrEqual(t, nAstar, nUniform)
	assert.LessOrEqual(t, weighted, 2*optimal+1e-9)
	assert.GreaterOrEqual(t, weighted, optimal-1e-9)
}

func TestExpansionLimit(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.planner")
	defer teardown()
	//
	p, err := New[kinoplan.Vec2](openMap(t), gridInputs(), WithMaxExpansions(5))
	require.NoError(t, err)
	err = p.Plan(atRest(0, 0), primitive.NewState(kinoplan.V2(5, 0), primitive.VEL))
	assert.ErrorIs(t, err, ErrExpansionLimit)
	assert.Equal(t, 5, p.Expansions())
	require.NotNil(t, p.Traj(), "partial trajectory")
	assert.GreaterOrEqual(t, p.Traj().Len(), 1)
	//
	p, err = New[kinoplan.Vec2](openMap(t), gridInputs(), WithTimeout(time.Nanosecond))
	require.NoError(t, err)
	err = p.Plan(atRest(0, 0), primitive.NewState(kinoplan.V2(5, 0), primitive.VEL))
	assert.ErrorIs(t, err, ErrExpansionLimit)
}

func TestStartInGoal(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.planner")
	defer teardown()
	//
	p, err := New[kinoplan.Vec2](openMap(t), gridInputs())
	require.NoError(t, err)
	require.NoError(t, p.Plan(atRest(1, 1), primitive.NewState(kinoplan.V2(1.2, 1), primitive.VEL)))
	require.NotNil(t, p.Traj())
	assert.Equal(t, 0.0, p.Traj().TotalTime())
	assert.Equal(t, 0.0, p.Cost())
	assert.Equal(t, 0, p.Expansions())
}

func TestInvalidQueries(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.planner")
	defer teardown()
	//
	_, err := New[kinoplan.Vec2](nil, gridInputs())
	assert.ErrorIs(t, err, ErrInvalidOption)
	_, err = New[kinoplan.Vec2](openMap(t), nil)
	assert.ErrorIs(t, err, ErrInvalidOption)
	_, err = New[kinoplan.Vec2](openMap(t), gridInputs(), WithEpsilon(-1))
	assert.ErrorIs(t, err, ErrInvalidOption)
	g := openMap(t)
	g.Occupy(kinoplan.V2(0, 0))
	p, err := New[kinoplan.Vec2](g, gridInputs())
	require.NoError(t, err)
	goal := primitive.NewState(kinoplan.V2(5, 0), primitive.VEL)
	assert.ErrorIs(t, p.Plan(atRest(0, 0), goal), ErrInvalidQuery)
	nopos := primitive.State[kinoplan.Vec2]{Pos: kinoplan.V2(1, 1)}
	assert.ErrorIs(t, p.Plan(nopos, goal), ErrInvalidQuery)
}

func TestPlanVelocityControl3D(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.planner")
	defer teardown()
	//
	g, err := oracle.NewGrid(kinoplan.V3(-1, -1, -1), kinoplan.V3(6, 6, 6), 0.5)
	require.NoError(t, err)
	g.OccupyBox(kinoplan.V3(1, -1, -1), kinoplan.V3(1.5, 1.5, 5))
	U := []kinoplan.Vec3{
		kinoplan.V3(1, 0, 0), kinoplan.V3(-1, 0, 0),
		kinoplan.V3(0, 1, 0), kinoplan.V3(0, -1, 0),
		kinoplan.V3(0, 0, 1), kinoplan.V3(0, 0, -1),
	}
	p, err := New[kinoplan.Vec3](g, U)
	require.NoError(t, err)
	start := primitive.NewState(kinoplan.V3(0, 0, 0), primitive.VEL)
	goal := primitive.NewState(kinoplan.V3(3, 0, 1), primitive.VEL)
	require.NoError(t, p.Plan(start, goal))
	tr := p.Traj()
	for _, s := range tr.Sample(200) {
		assert.True(t, g.IsFree(s.Pos), "sample %s is not free", kinoplan.Format(s.Pos))
	}
	// detour: around the wall in y, which is blocked up to 1.5
	assert.Greater(t, p.Cost(), 4.0)
}

func TestTwoPassCorridor(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.planner")
	defer teardown()
	//
	g := openMap(t)
	g.OccupyBox(kinoplan.V2(2, -0.5), kinoplan.V2(3, 0.5))
	g.UpdatePotential(1.0)
	goal := primitive.NewState(kinoplan.V2(5, 0), primitive.VEL)
	coarse, err := New[kinoplan.Vec2](g, gridInputs(), WithEpsilon(2))
	require.NoError(t, err)
	require.NoError(t, coarse.Plan(atRest(0, 0), goal))
	//
	fine, err := New[kinoplan.Vec2](g, gridInputs(), WithPotentialWeight(1), WithGradientWeight(0.5))
	require.NoError(t, err)
	fine.SetSearchRegion(coarse.Traj().Positions(), kinoplan.V2(1, 1))
	assert.NotEmpty(t, fine.SearchRegion())
	require.NoError(t, fine.Plan(atRest(0, 0), goal))
	assert.GreaterOrEqual(t, fine.Cost(), fine.Traj().TotalTime()-1e-9)
	for _, pos := range fine.Traj().Positions() {
		assert.True(t, fine.region.contains(pos), "%s left the corridor", kinoplan.Format(pos))
		assert.True(t, g.IsFree(pos))
	}
	fine.SetSearchRegion(nil, kinoplan.Vec2{})
	assert.Nil(t, fine.SearchRegion())
}

func TestPotentialWeighting(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.planner")
	defer teardown()
	//
	// walls above and below leave a corridor of width 2 along y=0
	g := openMap(t)
	g.OccupyBox(kinoplan.V2(1, 1), kinoplan.V2(4, 3))
	g.OccupyBox(kinoplan.V2(1, -3), kinoplan.V2(4, -1))
	g.UpdatePotential(1.5)
	goal := primitive.NewState(kinoplan.V2(5, 0), primitive.VEL)
	plain, err := New[kinoplan.Vec2](g, gridInputs())
	require.NoError(t, err)
	require.NoError(t, plain.Plan(atRest(0, 0), goal))
	weighted, err := New[kinoplan.Vec2](g, gridInputs(), WithPotentialWeight(10))
	require.NoError(t, err)
	require.NoError(t, weighted.Plan(atRest(0, 0), goal))
	//
	assert.InDelta(t, plain.Traj().TotalTime(), plain.Cost(), 1e-9)
	assert.GreaterOrEqual(t, weighted.Traj().TotalTime(), plain.Traj().TotalTime()-1e-9)
	assert.Greater(t, weighted.Cost(), weighted.Traj().TotalTime(), "potential adds to the cost")
	assert.Greater(t, weighted.Cost(), plain.Cost())
	clearance := math.Inf(1)
	for _, s := range weighted.Traj().Sample(200) {
		clearance = math.Min(clearance, g.Distance(s.Pos))
	}
	assert.GreaterOrEqual(t, clearance, 0.5, "weighted path must keep to the middle of the corridor")
}

func TestHeuristicSelection(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.planner")
	defer teardown()
	//
	g := openMap(t)
	g.OccupyBox(kinoplan.V2(2, -1), kinoplan.V2(2.5, 1))
	goal := primitive.NewState(kinoplan.V2(5, 0), primitive.VEL)
	costs := map[string]float64{}
	for _, name := range []string{"", HeuristicMinTime, HeuristicMinTimeAcc, HeuristicEuclidean, HeuristicZero} {
		p, err := New[kinoplan.Vec2](g, gridInputs(), WithHeuristic(name))
		require.NoError(t, err)
		require.NoError(t, p.Plan(atRest(0, 0), goal), "heuristic %q", name)
		costs[name] = p.Cost()
	}
	for name, c := range costs {
		assert.InDelta(t, costs[HeuristicZero], c, 1e-9, "heuristic %q is not admissible", name)
	}
	_, err := New[kinoplan.Vec2](g, gridInputs(), WithHeuristic("manhattan"))
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestGoalSnap(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.planner")
	defer teardown()
	//
	var U []kinoplan.Vec2
	for _, x := range []float64{-1, 0, 1} {
		for _, y := range []float64{-1, 0, 1} {
			U = append(U, kinoplan.V2(x, y))
		}
	}
	start := primitive.NewState(kinoplan.V2(0, 0), primitive.VEL)
	goal := primitive.NewState(kinoplan.V2(4.3, 0.2), primitive.VEL)
	plain, err := New[kinoplan.Vec2](openMap(t), U)
	require.NoError(t, err)
	require.NoError(t, plain.Plan(start, goal))
	snapped, err := New[kinoplan.Vec2](openMap(t), U, WithGoalSnap(true))
	require.NoError(t, err)
	require.NoError(t, snapped.Plan(start, goal))
	//
	end := func(p *Planner[kinoplan.Vec2]) kinoplan.Vec2 {
		pos := p.Traj().Positions()
		return pos[len(pos)-1]
	}
	assert.False(t, kinoplan.Equal(goal.Pos, end(plain)))
	assert.InDelta(t, 4.3, end(snapped)[0], 1e-9)
	assert.InDelta(t, 0.2, end(snapped)[1], 1e-9)
	assert.Equal(t, plain.Traj().Len()+1, snapped.Traj().Len())
	assert.InDelta(t, plain.Cost()+1, snapped.Cost(), 1e-9)
}

func TestRefine(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.planner", "kinoplan.polysolver")
	defer teardown()
	//
	g := openMap(t)
	g.OccupyBox(kinoplan.V2(2, -2), kinoplan.V2(2.5, 0.5))
	p, err := New[kinoplan.Vec2](g, gridInputs())
	require.NoError(t, err)
	require.NoError(t, p.Plan(atRest(0, 0), primitive.NewState(kinoplan.V2(5, 0), primitive.VEL)))
	solver, err := polysolver.New[kinoplan.Vec2](2, 2, polysolver.WithObstacleRadius(0.75))
	require.NoError(t, err)
	tr, err := Refine(p.Traj(), g, solver, 8)
	if err != nil {
		assert.ErrorIs(t, err, polysolver.ErrRefinementNonConvergence)
	}
	require.NotNil(t, tr)
	assert.Equal(t, p.Traj().Len(), tr.Len())
	assert.InDelta(t, p.Traj().TotalTime(), tr.TotalTime(), 1e-9)
	from, _ := p.Traj().Evaluate(p.Traj().TotalTime())
	to, _ := tr.Evaluate(tr.TotalTime())
	assert.InDelta(t, from.Pos[0], to.Pos[0], 1e-6)
	assert.InDelta(t, from.Pos[1], to.Pos[1], 1e-6)
	_, err = Refine(nil, g, solver, 8)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestOptionsFromConfig(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.planner")
	defer teardown()
	//
	conf := testconfig.Conf{
		"planner.vmax":           "2",
		"planner.epsilon":        1.5,
		"planner.tol_vel":        "0.1",
		"planner.max_expansions": 100,
		"planner.timeout":        "2s",
		"planner.heuristic":      "Euclidean",
		"planner.snap_goal":      true,
	}
	opts, err := OptionsFromConfig(conf)
	require.NoError(t, err)
	p, err := New[kinoplan.Vec2](openMap(t), gridInputs(), opts...)
	require.NoError(t, err)
	o := p.Options()
	assert.Equal(t, 2.0, o.Vmax)
	assert.Equal(t, 1.5, o.Epsilon)
	assert.Equal(t, 0.1, o.TolVel)
	assert.Equal(t, 0.5, o.TolPos)
	assert.Equal(t, 100, o.MaxExpansions)
	assert.Equal(t, 2*time.Second, o.Timeout)
	assert.Equal(t, HeuristicEuclidean, o.Heuristic)
	assert.True(t, o.SnapGoal)
	//
	_, err = OptionsFromConfig(testconfig.Conf{"planner.vmax": "fast"})
	assert.ErrorIs(t, err, ErrInvalidOption)
	opts, err = OptionsFromConfig(testconfig.Conf{"planner.dt": "-1"})
	require.NoError(t, err)
	_, err = New[kinoplan.Vec2](openMap(t), gridInputs(), opts...)
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestRegion(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "kinoplan.planner")
	defer teardown()
	//
	r := newRegion([]kinoplan.Vec2{kinoplan.V2(0, 0), kinoplan.V2(2, 0)}, kinoplan.V2(0.5, 0.5), 0.5)
	assert.True(t, r.contains(kinoplan.V2(1, 0.4)))
	assert.True(t, r.contains(kinoplan.V2(2.4, -0.4)))
	assert.False(t, r.contains(kinoplan.V2(1, 1.2)))
	assert.False(t, r.contains(kinoplan.V2(3.2, 0)))
	assert.Equal(t, len(r.centers()), r.size())
}
