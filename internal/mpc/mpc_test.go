package mpc

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r3"
)

func newSession(t *testing.T, p Params) *Session {
	t.Helper()
	prob, err := NewProblem(p)
	if err != nil {
		t.Fatalf("NewProblem failed: %v", err)
	}
	return NewSession(prob)
}

func TestRolloutConstantAccel(t *testing.T) {
	dt := 0.1
	accel := make([]r3.Vector, 5)
	for i := range accel {
		accel[i] = r3.Vector{X: 2}
	}
	pos, vel := Rollout(r3.Vector{X: 1}, r3.Vector{X: 0.5}, accel, dt)

	if len(pos) != 6 || len(vel) != 6 {
		t.Fatalf("expected 6 states, got %d/%d", len(pos), len(vel))
	}
	for k := range pos {
		kf := float64(k)
		wantX := 1 + kf*dt*0.5 + dt*dt*2*kf*(kf-1)/2
		wantV := 0.5 + kf*dt*2
		if math.Abs(pos[k].X-wantX) > 1e-12 {
			t.Errorf("pos[%d] = %f, want %f", k, pos[k].X, wantX)
		}
		if math.Abs(vel[k].X-wantV) > 1e-12 {
			t.Errorf("vel[%d] = %f, want %f", k, vel[k].X, wantV)
		}
	}
}

// axisCost evaluates the horizon cost directly from a rollout.
func axisCost(p Params, x0, v0, goal float64, a []float64) float64 {
	accel := make([]r3.Vector, len(a))
	for i, v := range a {
		accel[i] = r3.Vector{X: v}
	}
	pos, _ := Rollout(r3.Vector{X: x0}, r3.Vector{X: v0}, accel, p.Dt)
	cost := 0.0
	for k := 0; k < p.Horizon; k++ {
		d := pos[k].X - goal
		cost += d*d + p.LambdaU*a[k]*a[k]
	}
	d := pos[p.Horizon].X - goal
	return cost + p.LambdaT*d*d
}

func TestCondensedCostMatchesRollout(t *testing.T) {
	p := DefaultParams()
	prob, err := NewProblem(p)
	if err != nil {
		t.Fatalf("NewProblem failed: %v", err)
	}

	x0, v0, goal := 0.1, 0.05, 0.3
	a := make([]float64, p.Horizon)
	for i := range a {
		a[i] = math.Sin(float64(i)) * 2
	}
	q := make([]float64, p.Horizon)
	prob.linear(q, x0, v0, goal)

	quad := 0.0
	for i := range a {
		quad += q[i] * a[i]
		for j := range a {
			quad += 0.5 * a[i] * prob.p.At(i, j) * a[j]
		}
	}

	zero := make([]float64, p.Horizon)
	want := axisCost(p, x0, v0, goal, a) - axisCost(p, x0, v0, goal, zero)
	if math.Abs(quad-want) > 1e-9*math.Max(1, math.Abs(want)) {
		t.Errorf("condensed cost %g, rollout cost %g", quad, want)
	}
}

func TestSolveMakesProgress(t *testing.T) {
	s := newSession(t, DefaultParams())
	x0 := r3.Vector{}
	goal := r3.Vector{X: 0.15, Y: -0.10}
	s.Update(x0, r3.Vector{}, goal)

	sol, err := s.Solve()
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if !sol.Status.Usable() {
		t.Fatalf("expected usable solution, got %s after %d iterations", sol.Status, sol.Iterations)
	}

	start := x0.Distance(goal)
	end := sol.Position[len(sol.Position)-1].Distance(goal)
	if end >= start {
		t.Errorf("terminal distance %.4f not closer than initial %.4f", end, start)
	}
	if sol.Command().Dot(goal.Sub(x0)) <= 0 {
		t.Errorf("first velocity %v should point toward goal", sol.Command())
	}
}

func TestSolveRespectsBounds(t *testing.T) {
	p := DefaultParams()
	s := newSession(t, p)
	s.Update(r3.Vector{}, r3.Vector{X: 0.1}, r3.Vector{X: 2, Y: 2})

	sol, err := s.Solve()
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if !sol.Status.Usable() {
		t.Fatalf("expected usable solution, got %s", sol.Status)
	}
	for k, a := range sol.Accel {
		if math.Abs(a.X) > p.UMax || math.Abs(a.Y) > p.UMax {
			t.Errorf("accel[%d] = %v exceeds %g", k, a, p.UMax)
		}
	}
	for k, v := range sol.Velocity {
		if math.Abs(v.X) > p.VMax+1e-3 || math.Abs(v.Y) > p.VMax+1e-3 {
			t.Errorf("vel[%d] = %v exceeds %g", k, v, p.VMax)
		}
	}
}

func TestWarmStartReducesWork(t *testing.T) {
	s := newSession(t, DefaultParams())
	goal := r3.Vector{X: 0.15, Y: -0.10}

	s.Update(r3.Vector{}, r3.Vector{}, goal)
	first, err := s.Solve()
	if err != nil || !first.Status.Usable() {
		t.Fatalf("first solve: %v %s", err, first.Status)
	}

	s.Update(r3.Vector{}, r3.Vector{}, goal)
	second, err := s.Solve()
	if err != nil || !second.Status.Usable() {
		t.Fatalf("second solve: %v %s", err, second.Status)
	}
	if second.Iterations > first.Iterations {
		t.Errorf("warm start took %d iterations, cold took %d", second.Iterations, first.Iterations)
	}
}

func TestSolveAtGoalHolds(t *testing.T) {
	s := newSession(t, DefaultParams())
	goal := r3.Vector{X: 0.4, Y: 0.1}
	s.Update(goal, r3.Vector{}, goal)

	sol, err := s.Solve()
	if err != nil || !sol.Status.Usable() {
		t.Fatalf("solve: %v %s", err, sol.Status)
	}
	if v := sol.Command().Norm(); v > 1e-3 {
		t.Errorf("expected near-zero command at goal, got %g", v)
	}
}

func TestSolveInfeasible(t *testing.T) {
	s := newSession(t, DefaultParams())
	s.Update(r3.Vector{}, r3.Vector{X: 2}, r3.Vector{X: 0.1})

	sol, err := s.Solve()
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}
	if sol.Status != StatusInfeasible {
		t.Errorf("expected infeasible, got %s", sol.Status)
	}
	if sol.Status.Usable() {
		t.Error("infeasible solution must not be usable")
	}
	if sol.Command() != (r3.Vector{}) {
		t.Errorf("infeasible solution should carry no command, got %v", sol.Command())
	}
}

func TestSolveUnbound(t *testing.T) {
	s := newSession(t, DefaultParams())
	if _, err := s.Solve(); !errors.Is(err, ErrUnbound) {
		t.Errorf("expected ErrUnbound, got %v", err)
	}
}

func TestNewProblemRejectsBadParams(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero horizon", func(p *Params) { p.Horizon = 0 }},
		{"zero dt", func(p *Params) { p.Dt = 0 }},
		{"zero u_max", func(p *Params) { p.UMax = 0 }},
		{"negative v_max", func(p *Params) { p.VMax = -1 }},
		{"zero lambda_u", func(p *Params) { p.LambdaU = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			if _, err := NewProblem(p); !errors.Is(err, ErrBadParams) {
				t.Errorf("expected ErrBadParams, got %v", err)
			}
		})
	}
}

func TestVelocityEstimator(t *testing.T) {
	est := NewVelocityEstimator(0.5)
	if v := est.Update(r3.Vector{X: 1, Y: 1, Z: 9}); v != (r3.Vector{}) {
		t.Errorf("first update should be zero, got %v", v)
	}
	v := est.Update(r3.Vector{X: 2, Y: 0.5, Z: 3})
	if math.Abs(v.X-2) > 1e-12 || math.Abs(v.Y+1) > 1e-12 || v.Z != 0 {
		t.Errorf("unexpected velocity %v", v)
	}

	est.Reset(r3.Vector{X: 5})
	if v := est.Update(r3.Vector{X: 5}); v.Norm() != 0 {
		t.Errorf("expected zero after Reset at same point, got %v", v)
	}
}

func TestStatusString(t *testing.T) {
	if StatusSolvedInaccurate.String() != "solved_inaccurate" {
		t.Errorf("unexpected %q", StatusSolvedInaccurate.String())
	}
	if !StatusSolvedInaccurate.Usable() || StatusMaxIterations.Usable() {
		t.Error("usability mismatch")
	}
}
