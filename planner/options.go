package planner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/npillmayer/schuko"
)

// ErrInvalidOption flags a configuration value outside of its domain.
var ErrInvalidOption = errors.New("planner: invalid option")

// Options configure a planner. Zero limits are not checked.
type Options struct {
	Dt      float64 // duration of every primitive
	Vmax    float64 // per-axis velocity limit
	Amax    float64 // per-axis acceleration limit
	Jmax    float64 // per-axis jerk limit
	YawMax  float64 // yaw change limit per primitive
	Epsilon float64 // heuristic inflation; 0 switches the heuristic off

	// Heuristic names the lower bound on the cost-to-go, one of "mintime",
	// "mintimeacc", "euclidean" or "zero". Empty selects by the start's
	// control mode.
	Heuristic string
	// SnapGoal appends a boundary-value segment from the reached goal box
	// state to the exact goal position.
	SnapGoal bool

	W               float64 // weight of time in the edge cost
	EffortWeight    float64 // weight of the control effort ∫|u|²
	PotentialWeight float64 // weight of the obstacle potential (distance-map mode)
	GradientWeight  float64 // weight of motion up the potential (distance-map mode)

	TolPos float64 // goal box half-size for position
	TolVel float64 // goal tolerance for velocity, if the goal uses velocity
	TolAcc float64 // goal tolerance for acceleration, if the goal uses acceleration

	KeyResolution float64       // quantization of states for duplicate detection
	MaxExpansions int           // expansion cap
	Timeout       time.Duration // wall-clock cap
}

// DefaultOptions returns the defaults: unit duration, unit velocity and
// acceleration limits, optimal A* and a goal box of half-size 0.5.
func DefaultOptions() Options {
	return Options{
		Dt:            1.0,
		Vmax:          1.0,
		Amax:          1.0,
		Epsilon:       1.0,
		W:             1.0,
		TolPos:        0.5,
		TolVel:        0.5,
		TolAcc:        0.5,
		KeyResolution: 1e-3,
	}
}

// Validate checks the options for consistency.
func (o Options) Validate() error {
	switch {
	case !(o.Dt > 0):
		return fmt.Errorf("%w: dt must be positive, is %g", ErrInvalidOption, o.Dt)
	case o.Epsilon < 0:
		return fmt.Errorf("%w: epsilon must not be negative, is %g", ErrInvalidOption, o.Epsilon)
	case o.W < 0 || o.EffortWeight < 0 || o.PotentialWeight < 0 || o.GradientWeight < 0:
		return fmt.Errorf("%w: cost weights must not be negative", ErrInvalidOption)
	case o.W == 0 && o.EffortWeight == 0:
		return fmt.Errorf("%w: either time or effort must be weighted", ErrInvalidOption)
	case !(o.KeyResolution > 0):
		return fmt.Errorf("%w: key resolution must be positive", ErrInvalidOption)
	case o.TolPos < 0 || o.TolVel < 0 || o.TolAcc < 0:
		return fmt.Errorf("%w: goal tolerances must not be negative", ErrInvalidOption)
	}
	switch o.Heuristic {
	case "", HeuristicMinTime, HeuristicMinTimeAcc, HeuristicEuclidean, HeuristicZero:
	default:
		return fmt.Errorf("%w: unknown heuristic %q", ErrInvalidOption, o.Heuristic)
	}
	return nil
}

// Heuristic names for Options.Heuristic.
const (
	HeuristicMinTime    = "mintime"
	HeuristicMinTimeAcc = "mintimeacc"
	HeuristicEuclidean  = "euclidean"
	HeuristicZero       = "zero"
)

// Option is a functional option for New.
type Option func(*Options)

// WithDt sets the duration of every primitive.
func WithDt(dt float64) Option { return func(o *Options) { o.Dt = dt } }

// WithVmax sets the per-axis velocity limit.
func WithVmax(v float64) Option { return func(o *Options) { o.Vmax = v } }

// WithAmax sets the per-axis acceleration limit.
func WithAmax(a float64) Option { return func(o *Options) { o.Amax = a } }

// WithJmax sets the per-axis jerk limit.
func WithJmax(j float64) Option { return func(o *Options) { o.Jmax = j } }

// WithYawMax sets the limit for yaw change within one primitive.
func WithYawMax(y float64) Option { return func(o *Options) { o.YawMax = y } }

// WithEpsilon sets the heuristic inflation.
func WithEpsilon(eps float64) Option { return func(o *Options) { o.Epsilon = eps } }

// WithHeuristic selects the heuristic by name.
func WithHeuristic(name string) Option { return func(o *Options) { o.Heuristic = name } }

// WithGoalSnap switches snapping to the exact goal on or off.
func WithGoalSnap(snap bool) Option { return func(o *Options) { o.SnapGoal = snap } }

// WithTimeWeight sets the weight of primitive durations in the edge cost.
func WithTimeWeight(w float64) Option { return func(o *Options) { o.W = w } }

// WithEffortWeight sets the weight of control effort in the edge cost.
func WithEffortWeight(w float64) Option { return func(o *Options) { o.EffortWeight = w } }

// WithPotentialWeight sets the weight of the obstacle potential.
func WithPotentialWeight(w float64) Option { return func(o *Options) { o.PotentialWeight = w } }

// WithGradientWeight sets the weight of moving against the potential gradient.
func WithGradientWeight(w float64) Option { return func(o *Options) { o.GradientWeight = w } }

// WithGoalTolerance sets the goal tolerances for position, velocity and
// acceleration.
func WithGoalTolerance(pos, vel, acc float64) Option {
	return func(o *Options) { o.TolPos, o.TolVel, o.TolAcc = pos, vel, acc }
}

// WithKeyResolution sets the state quantization for duplicate detection.
func WithKeyResolution(r float64) Option { return func(o *Options) { o.KeyResolution = r } }

// WithMaxExpansions caps the number of node expansions.
func WithMaxExpansions(n int) Option { return func(o *Options) { o.MaxExpansions = n } }

// WithTimeout caps the wall-clock time of a single search.
func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }

// === Configuration =========================================================

// OptionsFromConfig reads planner options from a configuration. Keys are
// prefixed by "planner.", e.g. "planner.vmax". Unset keys keep their
// defaults.
func OptionsFromConfig(conf schuko.Configuration) ([]Option, error) {
	var opts []Option
	floats := []struct {
		key string
		opt func(float64) Option
	}{
		{"dt", WithDt}, {"vmax", WithVmax}, {"amax", WithAmax}, {"jmax", WithJmax},
		{"yawmax", WithYawMax}, {"epsilon", WithEpsilon}, {"w", WithTimeWeight},
		{"effort_weight", WithEffortWeight}, {"potential_weight", WithPotentialWeight},
		{"gradient_weight", WithGradientWeight}, {"key_resolution", WithKeyResolution},
	}
	for _, f := range floats {
		key := "planner." + f.key
		if !conf.IsSet(key) {
			continue
		}
		x, err := strconv.ParseFloat(conf.GetString(key), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidOption, key, err)
		}
		opts = append(opts, f.opt(x))
	}
	tols := [3]float64{-1, -1, -1}
	for i, key := range []string{"planner.tol_pos", "planner.tol_vel", "planner.tol_acc"} {
		if !conf.IsSet(key) {
			continue
		}
		x, err := strconv.ParseFloat(conf.GetString(key), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidOption, key, err)
		}
		tols[i] = x
	}
	if tols != [3]float64{-1, -1, -1} {
		opts = append(opts, func(o *Options) {
			for i, t := range tols {
				if t < 0 {
					continue
				}
				switch i {
				case 0:
					o.TolPos = t
				case 1:
					o.TolVel = t
				case 2:
					o.TolAcc = t
				}
			}
		})
	}
	if conf.IsSet("planner.heuristic") {
		opts = append(opts, WithHeuristic(strings.ToLower(conf.GetString("planner.heuristic"))))
	}
	if conf.IsSet("planner.snap_goal") {
		opts = append(opts, WithGoalSnap(conf.GetBool("planner.snap_goal")))
	}
	if conf.IsSet("planner.max_expansions") {
		opts = append(opts, WithMaxExpansions(conf.GetInt("planner.max_expansions")))
	}
	if conf.IsSet("planner.timeout") {
		d, err := time.ParseDuration(conf.GetString("planner.timeout"))
		if err != nil {
			return nil, fmt.Errorf("%w: planner.timeout: %v", ErrInvalidOption, err)
		}
		opts = append(opts, WithTimeout(d))
	}
	return opts, nil
}
