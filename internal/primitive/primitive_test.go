package primitive

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/san-kum/pushctl/internal/task"
)

var lim = Limits{XY: 0.1, Z: 0.1}

func errorTo(goal, object r3.Vector) task.ErrorState {
	return task.ComputeError(task.Goal{XY: goal}, task.Observation{Object: object})
}

func TestClip(t *testing.T) {
	l := Limits{XY: 0.1, Z: 0.05}
	got := l.Clip(r3.Vector{X: 0.5, Y: -0.3, Z: -0.2})
	if got.X != 0.1 || got.Y != -0.1 || got.Z != -0.05 {
		t.Errorf("Clip() = %v", got)
	}
	if !l.Within(got) {
		t.Error("clipped vector should be within limits")
	}
}

func TestBackPose(t *testing.T) {
	object := r3.Vector{X: 0, Y: 0, Z: 0.82}
	e := errorTo(r3.Vector{X: 1, Y: 0}, object)

	p := BackPose(object, e, 0.05, 0.82, 0.15)
	if math.Abs(p.X+0.05) > 1e-6 || math.Abs(p.Y) > 1e-9 {
		t.Errorf("expected pose 5 cm behind object, got %v", p)
	}
	if math.Abs(p.Z-0.97) > 1e-12 {
		t.Errorf("expected height 0.97, got %f", p.Z)
	}
}

func TestTowardClipsAndReaches(t *testing.T) {
	ee := r3.Vector{}
	target := r3.Vector{X: 0.2, Y: -0.01, Z: 0.05}

	d := Toward(target, ee, lim)
	if d.X != 0.1 || d.Y != -0.01 || d.Z != 0.05 {
		t.Errorf("Toward() = %v", d)
	}
	if Reached(target, ee, 0.004) {
		t.Error("should not be reached from 20 cm")
	}
	if !Reached(target, target.Add(r3.Vector{X: 0.003}), 0.004) {
		t.Error("3 mm offset should count as reached with 4 mm tolerance")
	}
}

func TestLowerTarget(t *testing.T) {
	got := LowerTarget(r3.Vector{X: 1, Y: 2, Z: 3}, 0.8)
	if got.X != 1 || got.Y != 2 || got.Z != 0.8 {
		t.Errorf("LowerTarget() = %v", got)
	}
}

func TestFade(t *testing.T) {
	p := PushParams{VMax: 0.15, VMin: 0.05, FadeDist: 0.001, Exponent: 2, Floor: 0.15}

	if got := p.Fade(0.01); got != 1 {
		t.Errorf("far from goal fade should saturate at 1, got %f", got)
	}
	if got := p.Fade(0); math.Abs(got-0.15) > 1e-12 {
		t.Errorf("fade at goal should equal floor, got %f", got)
	}
	if got := p.Forward(0.5); got != 0.15 {
		t.Errorf("Forward far away = %f, want vmax", got)
	}
	if got := p.Forward(0.0002); got >= 0.05 {
		t.Errorf("Forward inside fade distance should drop below vmin, got %f", got)
	}
}

func TestPushVelocityBounded(t *testing.T) {
	p := PushParams{VMax: 0.15, VMin: 0.05, FadeDist: 0.001, Exponent: 2, Floor: 0.15, LateralGain: 0.5}
	object := r3.Vector{X: 0, Y: 0, Z: 0.82}
	ee := r3.Vector{X: -0.05, Y: 0.02, Z: 0.9}
	e := errorTo(r3.Vector{X: 0.15, Y: -0.10}, object)

	d := PushVelocity(p, e, object, ee, 0.821, lim)
	if !lim.Within(d) {
		t.Errorf("push command %v exceeds limits", d)
	}
	if d.Z >= 0 {
		t.Errorf("expected downward press, got dz=%f", d.Z)
	}
	if d.Dot(e.Direction()) <= 0 {
		t.Errorf("push command %v should have a forward component", d)
	}
}

func TestLateral(t *testing.T) {
	object := r3.Vector{X: 0, Y: 0}
	e := errorTo(r3.Vector{X: 1}, object)

	onLine := Lateral(e, object, r3.Vector{X: -0.05}, 0.05)
	if onLine > 1e-6 {
		t.Errorf("end-effector directly behind should have zero lateral, got %f", onLine)
	}
	off := Lateral(e, object, r3.Vector{X: -0.05, Y: 0.2}, 0.05)
	if math.Abs(off-0.2) > 1e-6 {
		t.Errorf("expected lateral 0.2, got %f", off)
	}
}

func TestSeekVelocity(t *testing.T) {
	object := r3.Vector{}
	e := errorTo(r3.Vector{X: 0, Y: 1}, object)
	d := SeekVelocity(e, 0.03, r3.Vector{Z: 0.85}, 0.818, lim)

	if math.Abs(d.Y-0.03) > 1e-6 || math.Abs(d.X) > 1e-9 {
		t.Errorf("expected 3 cm slide toward goal, got %v", d)
	}
	if math.Abs(d.Z+0.032) > 1e-9 {
		t.Errorf("expected dz=-0.032, got %f", d.Z)
	}
}
