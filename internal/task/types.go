package task

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// Observation is one reading from the environment.
type Observation struct {
	Object      r3.Vector
	EndEffector r3.Vector
	// ContactForce is nil when the touch sensor is absent.
	ContactForce []float64
}

// HasContactSensor reports whether a force reading is present.
func (o Observation) HasContactSensor() bool {
	return o.ContactForce != nil
}

// Validate rejects observations whose positions are not finite.
func (o Observation) Validate() error {
	if !finite(o.Object) {
		return fmt.Errorf("%w: object %v", ErrInvalidObservation, o.Object)
	}
	if !finite(o.EndEffector) {
		return fmt.Errorf("%w: end-effector %v", ErrInvalidObservation, o.EndEffector)
	}
	return nil
}

// Clone returns a deep copy so environments can reuse their buffers.
func (o Observation) Clone() Observation {
	c := o
	if o.ContactForce != nil {
		c.ContactForce = make([]float64, len(o.ContactForce))
		copy(c.ContactForce, o.ContactForce)
	}
	return c
}

func finite(v r3.Vector) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Goal is the planar target. XY.Z is ignored; the object rests at TableZ.
type Goal struct {
	XY     r3.Vector
	TableZ float64
}

// NewGoal places the goal at a fixed planar offset from the object's
// starting position. The object's starting height becomes the table height.
func NewGoal(initialObject r3.Vector, offsetX, offsetY float64) Goal {
	return Goal{
		XY:     r3.Vector{X: initialObject.X + offsetX, Y: initialObject.Y + offsetY},
		TableZ: initialObject.Z,
	}
}

// Position returns the goal as a 3-D point at table height.
func (g Goal) Position() r3.Vector {
	return r3.Vector{X: g.XY.X, Y: g.XY.Y, Z: g.TableZ}
}

const directionEps = 1e-9

// ErrorState is the planar tracking error for one tick.
type ErrorState struct {
	Vector    r3.Vector
	Magnitude float64
}

// ComputeError returns goal.xy - object.xy and its norm.
func ComputeError(g Goal, obs Observation) ErrorState {
	v := r3.Vector{X: g.XY.X - obs.Object.X, Y: g.XY.Y - obs.Object.Y}
	return ErrorState{Vector: v, Magnitude: v.Norm()}
}

// Direction is the unit vector from the object toward the goal. It is
// close to zero when the object sits on the goal.
func (e ErrorState) Direction() r3.Vector {
	return e.Vector.Mul(1 / (e.Magnitude + directionEps))
}

// Planar drops the Z component.
func Planar(v r3.Vector) r3.Vector {
	return r3.Vector{X: v.X, Y: v.Y}
}

// Status is the terminal outcome of a trial.
type Status int

const (
	StatusTimeout Status = iota
	StatusSuccess
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusTimeout:
		return "timeout"
	case StatusFailure:
		return "failure"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "success":
		return StatusSuccess, nil
	case "timeout":
		return StatusTimeout, nil
	case "failure":
		return StatusFailure, nil
	}
	return StatusTimeout, fmt.Errorf("task: unknown status %q", s)
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Action is the fixed-length command vector. The first three components are
// a position delta; one component drives the gripper.
type Action []float64

// NewAction builds an action of length dim with the given position delta and
// the gripper component held at engaged.
func NewAction(dim, gripperIndex int, engaged float64, delta r3.Vector) (Action, error) {
	if dim < 3 {
		return nil, fmt.Errorf("%w: action dim %d", ErrActionLayout, dim)
	}
	if gripperIndex < 3 || gripperIndex >= dim {
		return nil, fmt.Errorf("%w: gripper index %d outside [3,%d)", ErrActionLayout, gripperIndex, dim)
	}
	a := make(Action, dim)
	a[0], a[1], a[2] = delta.X, delta.Y, delta.Z
	a[gripperIndex] = engaged
	return a, nil
}

// Delta returns the position-delta part of the action.
func (a Action) Delta() r3.Vector {
	if len(a) < 3 {
		return r3.Vector{}
	}
	return r3.Vector{X: a[0], Y: a[1], Z: a[2]}
}
