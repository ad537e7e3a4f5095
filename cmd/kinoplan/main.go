/*
Kinoplan plans a kinodynamic trajectory for a scenario file and prints its
waypoints.

Usage:

	kinoplan [-trace level] [-refine] scenario.yaml

With -refine the planned trajectory is smoothed by the polynomial solver and
pushed away from nearby obstacles. Settings for the planner and solver are
read from the scenario, see Scenario.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/npillmayer/kinoplan"
	"github.com/npillmayer/kinoplan/planner"
	"github.com/npillmayer/kinoplan/polysolver"
	"github.com/npillmayer/kinoplan/traj"
	"github.com/npillmayer/schuko/schukonf/koanfadapter"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/npillmayer/schuko/tracing/trace2go"
)

// tracer writes to trace with key 'kinoplan.cmd'
func tracer() tracing.Trace {
	return tracing.Select("kinoplan.cmd")
}

var packages = []string{"cmd", "planner", "polysolver", "primitive", "oracle", "traj", "polygon", "polyn"}

func main() {
	level := flag.String("trace", "Error", "trace level: Error, Info or Debug")
	refine := flag.Bool("refine", false, "smooth the planned trajectory")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: kinoplan [-trace level] [-refine] scenario.yaml")
		os.Exit(2)
	}
	f, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	sc, err := LoadScenario(f)
	f.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	conf := koanfadapter.New(nil, "", nil)
	conf.InitDefaults()
	sc.Configure(conf)
	conf.Set("trace.root", *level)
	for _, p := range packages {
		conf.Set("trace.kinoplan."+p, *level)
	}
	tracing.RegisterTraceAdapter("go", gologadapter.GetAdapter(), false)
	if err := trace2go.ConfigureRoot(conf, "trace", trace2go.ReplaceTracers(true)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	tracing.SetTraceSelector(trace2go.Selector())
	//
	if sc.Dim == 3 {
		err = run[kinoplan.Vec3](sc, conf, *refine, os.Stdout)
	} else {
		err = run[kinoplan.Vec2](sc, conf, *refine, os.Stdout)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run plans (and optionally refines) the scenario and prints the result to w.
func run[V kinoplan.Vector](sc *Scenario, conf *koanfadapter.KConf, refine bool, w io.Writer) error {
	o, err := buildOracle[V](sc)
	if err != nil {
		return err
	}
	start, err := buildState[V](sc.Start)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	goal, err := buildState[V](sc.Goal)
	if err != nil {
		return fmt.Errorf("goal: %w", err)
	}
	opts, err := planner.OptionsFromConfig(conf)
	if err != nil {
		return err
	}
	p, err := planner.New(o, controlInputs[V](sc), opts...)
	if err != nil {
		return err
	}
	h := p.Options().Heuristic
	if h == "" {
		h = "auto"
	}
	fmt.Fprintf(w, "# lattice: %d control inputs, dt %g, heuristic %s\n",
		len(p.ControlInputs()), p.Options().Dt, h)
	err = p.Plan(start, goal)
	switch {
	case errors.Is(err, planner.ErrExpansionLimit) && p.Traj() != nil:
		fmt.Fprintf(w, "# partial trajectory: %v\n", err)
	case err != nil:
		return err
	}
	fmt.Fprintf(w, "# planned: %d primitives, cost %.4g, %d expansions\n",
		p.Traj().Len(), p.Cost(), p.Expansions())
	printTrajectory(w, p.Traj())
	if !refine {
		return nil
	}
	sopts, err := polysolver.OptionsFromConfig(conf)
	if err != nil {
		return err
	}
	solver, err := polysolver.New[V](intOr(conf, "solver.continuity", 2),
		intOr(conf, "solver.minimize", 2), sopts...)
	if err != nil {
		return err
	}
	tr, err := planner.Refine(p.Traj(), o, solver, intOr(conf, "solver.samples", 8))
	switch {
	case errors.Is(err, polysolver.ErrRefinementNonConvergence):
		tracer().Infof("refinement: %v", err)
	case err != nil:
		return err
	}
	fmt.Fprintf(w, "# refined: cost %.4g\n", solver.Cost())
	printTrajectory(w, tr)
	return nil
}

func intOr(conf *koanfadapter.KConf, key string, dflt int) int {
	if !conf.IsSet(key) {
		return dflt
	}
	return conf.GetInt(key)
}

func printTrajectory[V kinoplan.Vector](w io.Writer, tr *traj.Trajectory[V]) {
	for i, wp := range tr.Waypoints() {
		t := tr.TotalTime()
		if i < tr.Len() {
			t = tr.StartTime(i)
		}
		fmt.Fprintf(w, "%8.3f  %s\n", t, wp)
	}
}
