package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/npillmayer/kinoplan"
	"github.com/npillmayer/kinoplan/oracle"
	"github.com/npillmayer/kinoplan/polygon"
	"github.com/npillmayer/kinoplan/primitive"
	"github.com/npillmayer/schuko/schukonf/koanfadapter"
	"gopkg.in/yaml.v3"
)

// errScenario flags malformed scenario files.
var errScenario = errors.New("invalid scenario")

// Scenario is a planning problem as read from a YAML file.
//
//	dim: 2
//	map: { origin: [-3, -3], size: [11, 6], resolution: 0.25, potential_radius: 1 }
//	obstacles:
//	  - { lo: [2, -1], hi: [2.5, 1] }
//	start: { pos: [0, 0], control: ACC }
//	goal:  { pos: [5, 0], control: VEL }
//	input_grid: [-0.5, 0, 0.5]
//	planner: { vmax: 1, amax: 1, dt: 1 }
//	solver:  { continuity: 2, minimize: 2, samples: 8 }
//
// Polygons, if present, switch a 2D scenario from a grid map to a polygon
// map:
//
//	polygons:
//	  - { knots: [[-1, -0.2], [1, -0.2], [1, 0.2], [-1, 0.2]], rotate: 90, translate: [3, 0] }
//
// Knots are rotated counter-clockwise around the origin by 'rotate' degrees,
// then moved by 'translate'. Entries of 'planner' and 'solver' are configuration keys below
// "planner." and "solver.".
type Scenario struct {
	Dim       int                    `yaml:"dim"`
	Map       MapSpec                `yaml:"map"`
	Obstacles []BoxSpec              `yaml:"obstacles"`
	Polygons  []PolygonSpec          `yaml:"polygons"`
	Start     StateSpec              `yaml:"start"`
	Goal      StateSpec              `yaml:"goal"`
	Inputs    [][]float64            `yaml:"inputs"`
	InputGrid []float64              `yaml:"input_grid"`
	Planner   map[string]interface{} `yaml:"planner"`
	Solver    map[string]interface{} `yaml:"solver"`
}

// MapSpec describes the map's extent and resolution.
type MapSpec struct {
	Origin          []float64 `yaml:"origin"`
	Size            []float64 `yaml:"size"`
	Resolution      float64   `yaml:"resolution"`
	PotentialRadius float64   `yaml:"potential_radius"`
}

// BoxSpec is an axis-aligned obstacle.
type BoxSpec struct {
	Lo []float64 `yaml:"lo"`
	Hi []float64 `yaml:"hi"`
}

// PolygonSpec is a polygon obstacle and its placement.
type PolygonSpec struct {
	Knots     [][]float64 `yaml:"knots"`
	Rotate    float64     `yaml:"rotate"`
	Translate []float64   `yaml:"translate"`
}

// placement returns the transform which places the polygon's knots.
func (ps PolygonSpec) placement() kinoplan.AT {
	m := kinoplan.Identity()
	if ps.Rotate != 0 {
		m = m.Then(kinoplan.Rotation(ps.Rotate * kinoplan.Deg2Rad))
	}
	if len(ps.Translate) == 2 {
		m = m.Then(kinoplan.Translation(kinoplan.V2(ps.Translate[0], ps.Translate[1])))
	}
	return m
}

// StateSpec is a start or goal state. Derivatives not mentioned are 0.
type StateSpec struct {
	Pos     []float64 `yaml:"pos"`
	Vel     []float64 `yaml:"vel"`
	Acc     []float64 `yaml:"acc"`
	Jrk     []float64 `yaml:"jrk"`
	Yaw     float64   `yaml:"yaw"`
	Control string    `yaml:"control"`
}

// LoadScenario decodes and checks a scenario. Unknown fields are an error.
func LoadScenario(r io.Reader) (*Scenario, error) {
	sc := &Scenario{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(sc); err != nil {
		return nil, fmt.Errorf("%w: %v", errScenario, err)
	}
	if err := sc.check(); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *Scenario) check() error {
	if sc.Dim != 2 && sc.Dim != 3 {
		return fmt.Errorf("%w: dimension must be 2 or 3, is %d", errScenario, sc.Dim)
	}
	vecs := map[string][]float64{
		"map.origin": sc.Map.Origin, "map.size": sc.Map.Size,
		"start.pos": sc.Start.Pos, "goal.pos": sc.Goal.Pos,
	}
	for i, b := range sc.Obstacles {
		vecs[fmt.Sprintf("obstacles[%d].lo", i)] = b.Lo
		vecs[fmt.Sprintf("obstacles[%d].hi", i)] = b.Hi
	}
	for i, u := range sc.Inputs {
		vecs[fmt.Sprintf("inputs[%d]", i)] = u
	}
	for i, ps := range sc.Polygons {
		if len(ps.Knots) < 3 {
			return fmt.Errorf("%w: polygon %d needs at least 3 knots, has %d", errScenario, i, len(ps.Knots))
		}
		for j, k := range ps.Knots {
			if len(k) != 2 {
				return fmt.Errorf("%w: knot %d of polygon %d has %d components", errScenario, j, i, len(k))
			}
		}
		if ps.Translate != nil && len(ps.Translate) != 2 {
			return fmt.Errorf("%w: translation of polygon %d has %d components", errScenario, i, len(ps.Translate))
		}
	}
	for _, s := range []struct {
		name string
		spec StateSpec
	}{{"start", sc.Start}, {"goal", sc.Goal}} {
		for k, v := range [][]float64{s.spec.Vel, s.spec.Acc, s.spec.Jrk} {
			if v != nil {
				vecs[fmt.Sprintf("%s derivative %d", s.name, k+1)] = v
			}
		}
	}
	for name, v := range vecs {
		if len(v) != sc.Dim {
			return fmt.Errorf("%w: %s needs %d components, has %d", errScenario, name, sc.Dim, len(v))
		}
	}
	if !(sc.Map.Resolution > 0) {
		return fmt.Errorf("%w: map resolution must be positive", errScenario)
	}
	if len(sc.Inputs) == 0 && len(sc.InputGrid) == 0 {
		return fmt.Errorf("%w: no control inputs", errScenario)
	}
	if len(sc.Polygons) > 0 && sc.Dim != 2 {
		return fmt.Errorf("%w: polygons need dimension 2", errScenario)
	}
	return nil
}

// Configure transfers the planner and solver settings into a configuration.
func (sc *Scenario) Configure(conf *koanfadapter.KConf) {
	for k, v := range sc.Planner {
		conf.Set("planner."+k, v)
	}
	for k, v := range sc.Solver {
		conf.Set("solver."+k, v)
	}
}

// controlInputs returns the explicit inputs or the product grid of
// InputGrid in every dimension.
func controlInputs[V kinoplan.Vector](sc *Scenario) []V {
	if len(sc.Inputs) > 0 {
		U := make([]V, len(sc.Inputs))
		for i, u := range sc.Inputs {
			U[i] = kinoplan.FromSlice[V](u)
		}
		return U
	}
	var U []V
	var u V
	var fill func(d int)
	fill = func(d int) {
		if d == len(u) {
			U = append(U, u)
			return
		}
		for _, x := range sc.InputGrid {
			u[d] = x
			fill(d + 1)
		}
	}
	fill(0)
	return U
}

func buildState[V kinoplan.Vector](s StateSpec) (primitive.State[V], error) {
	c, err := primitive.ParseControl(s.Control)
	if err != nil {
		return primitive.State[V]{}, err
	}
	st := primitive.NewState(kinoplan.FromSlice[V](s.Pos), c)
	for k, v := range [][]float64{s.Vel, s.Acc, s.Jrk} {
		if v != nil {
			st.SetDerivative(k+1, kinoplan.FromSlice[V](v))
		}
	}
	st.Yaw = s.Yaw
	return st, st.Validate()
}

// buildOracle creates a grid map, or a polygon map if the scenario has
// polygons.
func buildOracle[V kinoplan.Vector](sc *Scenario) (oracle.Oracle[V], error) {
	origin := kinoplan.FromSlice[V](sc.Map.Origin)
	size := kinoplan.FromSlice[V](sc.Map.Size)
	if len(sc.Polygons) > 0 {
		lo := kinoplan.FromSlice[kinoplan.Vec2](sc.Map.Origin)
		hi := kinoplan.Add(lo, kinoplan.FromSlice[kinoplan.Vec2](sc.Map.Size))
		m := oracle.NewPolygonMap(lo, hi, sc.Map.Resolution)
		for _, ps := range sc.Polygons {
			b := polygon.NullPolygon()
			for _, k := range ps.Knots {
				b = b.Knot(kinoplan.V2(k[0], k[1]))
			}
			m.Add(b.Cycle().Transformed(ps.placement()))
		}
		for _, box := range sc.Obstacles {
			m.Add(polygon.Box(kinoplan.FromSlice[kinoplan.Vec2](box.Lo), kinoplan.FromSlice[kinoplan.Vec2](box.Hi)))
		}
		if sc.Map.PotentialRadius > 0 {
			m.SetPotentialRadius(sc.Map.PotentialRadius)
		}
		o, ok := any(m).(oracle.Oracle[V])
		if !ok {
			return nil, fmt.Errorf("%w: polygon map in dimension %d", errScenario, sc.Dim)
		}
		return o, nil
	}
	g, err := oracle.NewGrid(origin, size, sc.Map.Resolution)
	if err != nil {
		return nil, err
	}
	for _, box := range sc.Obstacles {
		g.OccupyBox(kinoplan.FromSlice[V](box.Lo), kinoplan.FromSlice[V](box.Hi))
	}
	if sc.Map.PotentialRadius > 0 {
		g.UpdatePotential(sc.Map.PotentialRadius)
	}
	return g, nil
}
