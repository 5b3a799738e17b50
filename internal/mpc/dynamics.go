package mpc

import "github.com/golang/geo/r3"

// Rollout integrates the double integrator with explicit Euler:
//
//	x[k+1] = x[k] + v[k]·dt
//	v[k+1] = v[k] + a[k]·dt
//
// It returns len(accel)+1 positions and velocities, starting with x0 and v0.
func Rollout(x0, v0 r3.Vector, accel []r3.Vector, dt float64) ([]r3.Vector, []r3.Vector) {
	pos := make([]r3.Vector, len(accel)+1)
	vel := make([]r3.Vector, len(accel)+1)
	pos[0], vel[0] = x0, v0
	for k, a := range accel {
		pos[k+1] = pos[k].Add(vel[k].Mul(dt))
		vel[k+1] = vel[k].Add(a.Mul(dt))
	}
	return pos, vel
}

// VelocityEstimator differentiates consecutive planar positions.
type VelocityEstimator struct {
	dt   float64
	prev r3.Vector
	set  bool
}

func NewVelocityEstimator(dt float64) *VelocityEstimator {
	return &VelocityEstimator{dt: dt}
}

// Reset anchors the estimator at p so the next Update sees a zero baseline.
func (v *VelocityEstimator) Reset(p r3.Vector) {
	v.prev = r3.Vector{X: p.X, Y: p.Y}
	v.set = true
}

// Update returns (p - prev)/dt and stores p. The first call returns zero.
func (v *VelocityEstimator) Update(p r3.Vector) r3.Vector {
	p = r3.Vector{X: p.X, Y: p.Y}
	if !v.set {
		v.Reset(p)
		return r3.Vector{}
	}
	vel := p.Sub(v.prev).Mul(1 / v.dt)
	v.prev = p
	return vel
}
