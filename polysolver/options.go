package polysolver

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/npillmayer/schuko"
)

// ErrInvalidOption flags a solver option outside of its domain.
var ErrInvalidOption = errors.New("polysolver: invalid option")

// Options configure the gradient refinement of a solver.
type Options struct {
	ObstacleRadius float64 // obstacles farther away than this do not repel
	ObstacleWeight float64 // weight of the obstacle term against smoothness
	StepSize       float64 // initial step of every descent iteration
	Tolerance      float64 // convergence threshold on waypoint movement
	MaxIterations  int
}

// DefaultOptions returns the default refinement options.
func DefaultOptions() Options {
	return Options{
		ObstacleRadius: 1.0,
		ObstacleWeight: 10.0,
		StepSize:       0.1,
		Tolerance:      1e-4,
		MaxIterations:  100,
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	switch {
	case !(o.ObstacleRadius > 0):
		return fmt.Errorf("%w: obstacle radius must be positive, is %g", ErrInvalidOption, o.ObstacleRadius)
	case o.ObstacleWeight < 0:
		return fmt.Errorf("%w: obstacle weight must not be negative, is %g", ErrInvalidOption, o.ObstacleWeight)
	case !(o.StepSize > 0):
		return fmt.Errorf("%w: step size must be positive, is %g", ErrInvalidOption, o.StepSize)
	case !(o.Tolerance > 0):
		return fmt.Errorf("%w: tolerance must be positive, is %g", ErrInvalidOption, o.Tolerance)
	case o.MaxIterations < 1:
		return fmt.Errorf("%w: need at least one iteration, have %d", ErrInvalidOption, o.MaxIterations)
	}
	return nil
}

// Option is a functional option for New.
type Option func(*Options)

// WithObstacleRadius sets the distance beyond which obstacles do not repel.
func WithObstacleRadius(r float64) Option {
	return func(o *Options) { o.ObstacleRadius = r }
}

// WithObstacleWeight weights the obstacle term against smoothness.
func WithObstacleWeight(w float64) Option {
	return func(o *Options) { o.ObstacleWeight = w }
}

// WithStepSize sets the initial step of every descent iteration.
func WithStepSize(a float64) Option {
	return func(o *Options) { o.StepSize = a }
}

// WithTolerance sets the convergence threshold on waypoint movement.
func WithTolerance(tol float64) Option {
	return func(o *Options) { o.Tolerance = tol }
}

// WithMaxIterations caps the number of descent iterations.
func WithMaxIterations(n int) Option {
	return func(o *Options) { o.MaxIterations = n }
}

// OptionsFromConfig reads keys 'solver.obstacle_radius', 'solver.obstacle_weight',
// 'solver.step_size', 'solver.tolerance' and 'solver.max_iterations'.
// Unset keys are skipped.
func OptionsFromConfig(conf schuko.Configuration) ([]Option, error) {
	var opts []Option
	floats := []struct {
		key string
		opt func(float64) Option
	}{
		{"obstacle_radius", WithObstacleRadius}, {"obstacle_weight", WithObstacleWeight},
		{"step_size", WithStepSize}, {"tolerance", WithTolerance},
	}
	for _, f := range floats {
		key := "solver." + f.key
		if !conf.IsSet(key) {
			continue
		}
		x, err := strconv.ParseFloat(conf.GetString(key), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidOption, key, err)
		}
		opts = append(opts, f.opt(x))
	}
	if conf.IsSet("solver.max_iterations") {
		opts = append(opts, WithMaxIterations(conf.GetInt("solver.max_iterations")))
	}
	return opts, nil
}
