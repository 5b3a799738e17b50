// Package primitive computes per-phase motion targets and velocity commands
// for the end-effector. Every command leaving this package is clipped per
// axis to the configured step limits.
package primitive

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/san-kum/pushctl/internal/task"
)

// Limits bounds each component of a position delta.
type Limits struct {
	XY float64
	Z  float64
}

// Clip clamps x and y to ±XY and z to ±Z.
func (l Limits) Clip(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: clamp(v.X, -l.XY, l.XY),
		Y: clamp(v.Y, -l.XY, l.XY),
		Z: clamp(v.Z, -l.Z, l.Z),
	}
}

// Within reports whether every component of v respects the limits.
func (l Limits) Within(v r3.Vector) bool {
	return math.Abs(v.X) <= l.XY && math.Abs(v.Y) <= l.XY && math.Abs(v.Z) <= l.Z
}

// BackPose is the standoff pose behind the object on the far side from the
// goal, height above the table.
func BackPose(object r3.Vector, e task.ErrorState, standoff, tableZ, height float64) r3.Vector {
	back := task.Planar(object).Sub(e.Direction().Mul(standoff))
	back.Z = tableZ + height
	return back
}

// LowerTarget holds the lateral position and moves to workZ.
func LowerTarget(ee r3.Vector, workZ float64) r3.Vector {
	return r3.Vector{X: ee.X, Y: ee.Y, Z: workZ}
}

// Toward is the clipped delta from ee to target.
func Toward(target, ee r3.Vector, lim Limits) r3.Vector {
	return lim.Clip(target.Sub(ee))
}

// Reached reports whether ee is within tol of target.
func Reached(target, ee r3.Vector, tol float64) bool {
	return target.Sub(ee).Norm() < tol
}

// PushParams shapes the proportional push.
type PushParams struct {
	VMax        float64
	VMin        float64
	FadeDist    float64
	Exponent    float64
	Floor       float64
	LateralGain float64
}

// Fade scales the forward speed down as the remaining distance shrinks.
func (p PushParams) Fade(dist float64) float64 {
	if p.FadeDist <= 0 {
		return 1
	}
	return clamp(math.Pow(dist/p.FadeDist, p.Exponent)+p.Floor, 0, 1)
}

// Forward is the faded forward speed, floored at VMin while the object is
// farther than FadeDist from the goal.
func (p PushParams) Forward(dist float64) float64 {
	fwd := p.VMax * p.Fade(dist)
	if dist > p.FadeDist {
		return math.Max(fwd, p.VMin)
	}
	return math.Max(fwd, 0)
}

// PushVelocity drives along the goal direction while pulling the
// end-effector back toward the object's current line, pressing down to wristZ.
func PushVelocity(p PushParams, e task.ErrorState, object, ee r3.Vector, wristZ float64, lim Limits) r3.Vector {
	fwd := e.Direction().Mul(p.Forward(e.Magnitude))
	pull := task.Planar(object).Sub(task.Planar(ee)).Mul(p.LateralGain)
	d := fwd.Sub(pull)
	d.Z = clamp(wristZ-ee.Z, -lim.Z, lim.Z)
	return lim.Clip(d)
}

// Lateral is the distance between the object and the point one standoff ahead
// of the end-effector along the goal direction.
func Lateral(e task.ErrorState, object, ee r3.Vector, standoff float64) float64 {
	ahead := task.Planar(ee).Add(e.Direction().Mul(standoff))
	return task.Planar(object).Sub(ahead).Norm()
}

// SeekVelocity slides toward the goal at a constant speed, holding wristZ.
func SeekVelocity(e task.ErrorState, speed float64, ee r3.Vector, wristZ float64, lim Limits) r3.Vector {
	d := e.Direction().Mul(speed)
	d.Z = wristZ - ee.Z
	return lim.Clip(d)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
