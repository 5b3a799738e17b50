package mpc

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrUnbound indicates Solve before the first Update.
var ErrUnbound = errors.New("mpc: parameters not bound")

// Status reports how a solve ended, in increasing order of severity.
type Status int

const (
	StatusSolved Status = iota
	StatusSolvedInaccurate
	StatusMaxIterations
	StatusInfeasible
)

func (s Status) String() string {
	switch s {
	case StatusSolved:
		return "solved"
	case StatusSolvedInaccurate:
		return "solved_inaccurate"
	case StatusMaxIterations:
		return "max_iterations"
	case StatusInfeasible:
		return "infeasible"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Usable reports whether the solution may drive the actuator.
func (s Status) Usable() bool {
	return s == StatusSolved || s == StatusSolvedInaccurate
}

// Solution is the planar trajectory for one solve.
type Solution struct {
	Status     Status
	Iterations int
	Position   []r3.Vector // H+1 entries
	Velocity   []r3.Vector // H+1 entries
	Accel      []r3.Vector // H entries
}

// Command is the first-step velocity v[1].
func (s Solution) Command() r3.Vector {
	if len(s.Velocity) < 2 {
		return r3.Vector{}
	}
	return s.Velocity[1]
}

type axis struct {
	x, z, y *mat.VecDense
	q, l, u []float64
	warm    bool

	// scratch
	rhs, xt, zt, tmp, px, aty *mat.VecDense
}

func newAxis(n, m int) *axis {
	return &axis{
		x:   mat.NewVecDense(n, nil),
		z:   mat.NewVecDense(m, nil),
		y:   mat.NewVecDense(m, nil),
		q:   make([]float64, n),
		l:   make([]float64, m),
		u:   make([]float64, m),
		rhs: mat.NewVecDense(n, nil),
		xt:  mat.NewVecDense(n, nil),
		zt:  mat.NewVecDense(m, nil),
		tmp: mat.NewVecDense(m, nil),
		px:  mat.NewVecDense(n, nil),
		aty: mat.NewVecDense(n, nil),
	}
}

func (ax *axis) cold() {
	ax.x.Zero()
	ax.z.Zero()
	ax.y.Zero()
	ax.warm = false
}

// Session is an owned, mutable solver resource: update the parameters, then
// solve. The previous solution seeds the next one.
type Session struct {
	prob  *Problem
	axes  [2]*axis
	x0    r3.Vector
	v0    r3.Vector
	goal  r3.Vector
	bound bool
}

func NewSession(prob *Problem) *Session {
	s := &Session{prob: prob}
	for i := range s.axes {
		s.axes[i] = newAxis(prob.n, prob.m)
	}
	return s
}

// Problem exposes the fixed structure the session solves.
func (s *Session) Problem() *Problem { return s.prob }

// Update rebinds the initial position, initial velocity and goal. Only the
// planar components are used.
func (s *Session) Update(x0, v0, goal r3.Vector) {
	s.x0 = r3.Vector{X: x0.X, Y: x0.Y}
	s.v0 = r3.Vector{X: v0.X, Y: v0.Y}
	s.goal = r3.Vector{X: goal.X, Y: goal.Y}
	comps := [2][3]float64{{s.x0.X, s.v0.X, s.goal.X}, {s.x0.Y, s.v0.Y, s.goal.Y}}
	for i, ax := range s.axes {
		s.prob.linear(ax.q, comps[i][0], comps[i][1], comps[i][2])
		s.prob.bounds(ax.l, ax.u, comps[i][1])
	}
	s.bound = true
}

// Reset drops the warm start.
func (s *Session) Reset() {
	for _, ax := range s.axes {
		ax.cold()
	}
}

// Solve runs ADMM on both axes and rolls the accelerations out into a
// trajectory. A status that is not usable clears the warm start.
func (s *Session) Solve() (Solution, error) {
	if !s.bound {
		return Solution{}, ErrUnbound
	}
	sol := Solution{Status: StatusSolved}
	v0 := [2]float64{s.v0.X, s.v0.Y}
	for i, ax := range s.axes {
		if !s.prob.reachable(v0[i]) {
			sol.Status = StatusInfeasible
			continue
		}
		st, iters := s.solveAxis(ax)
		if st > sol.Status {
			sol.Status = st
		}
		if iters > sol.Iterations {
			sol.Iterations = iters
		}
	}

	if !sol.Status.Usable() {
		s.Reset()
		return sol, nil
	}

	umax := s.prob.params.UMax
	sol.Accel = make([]r3.Vector, s.prob.n)
	for k := range sol.Accel {
		sol.Accel[k] = r3.Vector{
			X: clamp(s.axes[0].x.AtVec(k), -umax, umax),
			Y: clamp(s.axes[1].x.AtVec(k), -umax, umax),
		}
	}
	sol.Position, sol.Velocity = Rollout(s.x0, s.v0, sol.Accel, s.prob.params.Dt)
	return sol, nil
}

func (s *Session) solveAxis(ax *axis) (Status, int) {
	pr := s.prob
	set := pr.settings
	rho, sigma, alpha := pr.rho, set.Sigma, set.Alpha
	if !ax.warm {
		ax.cold()
	}

	x := ax.x.RawVector().Data
	z := ax.z.RawVector().Data
	y := ax.y.RawVector().Data
	xt := ax.xt.RawVector().Data
	zt := ax.zt.RawVector().Data
	tmp := ax.tmp.RawVector().Data
	rhs := ax.rhs.RawVector().Data

	var rPrim, epsPrim float64
	for iter := 1; iter <= set.MaxIter; iter++ {
		for j := range tmp {
			tmp[j] = rho*z[j] - y[j]
		}
		ax.rhs.MulVec(pr.a.T(), ax.tmp)
		for i := range rhs {
			rhs[i] += sigma*x[i] - ax.q[i]
		}
		if err := pr.chol.SolveVecTo(ax.xt, ax.rhs); err != nil {
			return StatusMaxIterations, iter
		}
		ax.zt.MulVec(pr.a, ax.xt)

		for i := range x {
			x[i] = alpha*xt[i] + (1-alpha)*x[i]
		}
		for j := range z {
			relaxed := alpha*zt[j] + (1-alpha)*z[j]
			next := clamp(relaxed+y[j]/rho, ax.l[j], ax.u[j])
			y[j] += rho * (relaxed - next)
			z[j] = next
		}

		var ok bool
		ok, rPrim, epsPrim = s.converged(ax)
		if ok {
			ax.warm = true
			return StatusSolved, iter
		}
	}

	if rPrim <= 10*epsPrim {
		ax.warm = true
		return StatusSolvedInaccurate, set.MaxIter
	}
	return StatusMaxIterations, set.MaxIter
}

// converged evaluates the primal and dual residuals at the current iterate.
func (s *Session) converged(ax *axis) (bool, float64, float64) {
	pr := s.prob
	set := pr.settings
	inf := math.Inf(1)

	ax.tmp.MulVec(pr.a, ax.x)
	axv := ax.tmp.RawVector().Data
	z := ax.z.RawVector().Data
	rPrim := 0.0
	for j := range z {
		rPrim = math.Max(rPrim, math.Abs(axv[j]-z[j]))
	}
	epsPrim := set.EpsAbs + set.EpsRel*math.Max(floats.Norm(axv, inf), floats.Norm(z, inf))

	ax.px.MulVec(pr.p, ax.x)
	ax.aty.MulVec(pr.a.T(), ax.y)
	px := ax.px.RawVector().Data
	aty := ax.aty.RawVector().Data
	rDual := 0.0
	for i := range px {
		rDual = math.Max(rDual, math.Abs(px[i]+ax.q[i]+aty[i]))
	}
	epsDual := set.EpsAbs + set.EpsRel*math.Max(
		math.Max(floats.Norm(px, inf), floats.Norm(aty, inf)),
		floats.Norm(ax.q, inf),
	)

	return rPrim <= epsPrim && rDual <= epsDual, rPrim, epsPrim
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
