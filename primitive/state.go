/*
Package primitive models kinematic states and motion primitives.

A motion primitive is a short closed-form polynomial segment, one polynomial
per spatial dimension, which starts at a given state and applies a constant
control input for a fixed duration. The derivative the input acts on is
determined by the state's control mode: with velocity and position active,
the input is an acceleration; with acceleration active as well, it is a jerk.

Primitives are generated without any validity checks. Checking against
velocity, acceleration and jerk limits is a separate step (see Bounds).

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package primitive

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/npillmayer/kinoplan"
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'kinoplan.primitive'
func tracer() tracing.Trace {
	return tracing.Select("kinoplan.primitive")
}

var (
	// ErrInvalidState flags a state whose constraint flags are inconsistent.
	ErrInvalidState = errors.New("primitive: invalid state")
	// ErrInfeasibleBoundary flags boundary conditions no primitive can connect.
	ErrInfeasibleBoundary = errors.New("primitive: infeasible boundary conditions")
)

// Control is a set of flags telling which derivatives of a state are active
// constraints. The flag set doubles as the control mode: the control input
// acts on the first derivative which is not active.
type Control uint8

// Derivative flags.
const (
	UsePos Control = 1 << iota
	UseVel
	UseAcc
	UseJrk
	UseYaw
)

// Control modes. The name states what the control input is.
const (
	VEL     = UsePos                   // input is a velocity
	ACC     = UsePos | UseVel          // input is an acceleration
	JRK     = UsePos | UseVel | UseAcc // input is a jerk
	SNP     = JRK | UseJrk             // input is a snap
	VELxYAW = VEL | UseYaw
	ACCxYAW = ACC | UseYaw
	JRKxYAW = JRK | UseYaw
	SNPxYAW = SNP | UseYaw
)

// MaxOrder is the highest derivative a state carries (jerk).
const MaxOrder = 3

// Has is a predicate: are all flags of f set in c?
func (c Control) Has(f Control) bool {
	return c&f == f
}

// Order returns the number of consecutive active derivatives, starting with
// position. This is the derivative order the control input acts on.
func (c Control) Order() int {
	n := 0
	for _, f := range []Control{UsePos, UseVel, UseAcc, UseJrk} {
		if !c.Has(f) {
			break
		}
		n++
	}
	return n
}

// Validate checks that position is active and that active derivatives form
// a gap-free prefix (no acceleration constraint without velocity, …).
func (c Control) Validate() error {
	if !c.Has(UsePos) {
		return fmt.Errorf("%w: position must always be active", ErrInvalidState)
	}
	if c&^UseYaw != Control(1<<c.Order()-1) {
		return fmt.Errorf("%w: flags %s are not a gap-free prefix", ErrInvalidState, c)
	}
	return nil
}

// ParseControl parses a control mode name, one of VEL, ACC, JRK or SNP,
// optionally suffixed by "xYAW". Case is ignored.
func ParseControl(name string) (Control, error) {
	mode := strings.ToUpper(strings.TrimSpace(name))
	var c Control
	if m, ok := strings.CutSuffix(mode, "XYAW"); ok {
		mode, c = m, UseYaw
	}
	switch mode {
	case "VEL":
		return c | VEL, nil
	case "ACC":
		return c | ACC, nil
	case "JRK":
		return c | JRK, nil
	case "SNP":
		return c | SNP, nil
	}
	return 0, fmt.Errorf("%w: unknown control mode %q", ErrInvalidState, name)
}

func (c Control) String() string {
	var names []string
	for i, n := range []string{"pos", "vel", "acc", "jrk", "yaw"} {
		if c.Has(Control(1 << i)) {
			names = append(names, n)
		}
	}
	return "[" + strings.Join(names, ",") + "]"
}

// State is a kinematic state of the agent. Which of its derivatives are
// meaningful constraints is told by the control flags.
type State[V kinoplan.Vector] struct {
	Pos, Vel, Acc, Jrk V
	Yaw                float64
	Control            Control
}

// Waypoint is a state used as input for the polynomial solver. Active flags
// denote fixed derivatives, all other derivatives are free.
type Waypoint[V kinoplan.Vector] = State[V]

// NewState creates a state at rest at position pos.
func NewState[V kinoplan.Vector](pos V, c Control) State[V] {
	return State[V]{Pos: pos, Control: c}
}

// Validate checks the state's control flags and its values for NaNs.
func (s State[V]) Validate() error {
	if err := s.Control.Validate(); err != nil {
		return err
	}
	for k := 0; k <= MaxOrder; k++ {
		d := s.Derivative(k)
		for i := 0; i < len(d); i++ {
			if !kinoplan.IsFinite(d[i]) {
				return fmt.Errorf("%w: derivative %d is not finite", ErrInvalidState, k)
			}
		}
	}
	if !kinoplan.IsFinite(s.Yaw) {
		return fmt.Errorf("%w: yaw is not finite", ErrInvalidState)
	}
	return nil
}

// Derivative returns the k-th derivative of position: 0=pos, 1=vel, 2=acc,
// 3=jrk. Higher orders are zero.
func (s State[V]) Derivative(k int) V {
	switch k {
	case 0:
		return s.Pos
	case 1:
		return s.Vel
	case 2:
		return s.Acc
	case 3:
		return s.Jrk
	}
	var zero V
	return zero
}

// SetDerivative sets the k-th derivative, see Derivative. Orders above jerk
// are ignored.
func (s *State[V]) SetDerivative(k int, v V) {
	switch k {
	case 0:
		s.Pos = v
	case 1:
		s.Vel = v
	case 2:
		s.Acc = v
	case 3:
		s.Jrk = v
	}
}

// Uses tells whether derivative k (0=pos … 3=jrk) is active.
func (s State[V]) Uses(k int) bool {
	if k < 0 || k > MaxOrder {
		return false
	}
	return s.Control.Has(Control(1 << k))
}

func (s State[V]) String() string {
	var b strings.Builder
	b.WriteString("p=" + kinoplan.Format(s.Pos))
	if s.Control.Has(UseVel) {
		b.WriteString(" v=" + kinoplan.Format(s.Vel))
	}
	if s.Control.Has(UseAcc) {
		b.WriteString(" a=" + kinoplan.Format(s.Acc))
	}
	if s.Control.Has(UseJrk) {
		b.WriteString(" j=" + kinoplan.Format(s.Jrk))
	}
	if s.Control.Has(UseYaw) {
		fmt.Fprintf(&b, " yaw=%.3g", s.Yaw)
	}
	return b.String()
}

// normalizeAngle maps an angle to (-π, π].
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a > math.Pi {
		a -= 2 * math.Pi
	} else if a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
