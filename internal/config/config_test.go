package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	pid := DefaultConfig(VariantPID)
	if pid.Task.Timeout != 180 || pid.Motion.ApproachTolerance != 0.005 || pid.Motion.LowerTolerance != 0.0008 {
		t.Errorf("pid timing: %+v %+v", pid.Task, pid.Motion)
	}
	mpc := DefaultConfig(VariantMPC)
	if mpc.Task.Timeout != 30 || mpc.Motion.ApproachTolerance != 0.004 || mpc.Motion.LowerTolerance != 0.002 {
		t.Errorf("mpc timing: %+v %+v", mpc.Task, mpc.Motion)
	}
	if mpc.MPC.Params.Horizon != 15 || mpc.MPC.Params.LambdaT != 5 {
		t.Errorf("mpc params: %+v", mpc.MPC.Params)
	}
	for _, c := range []*Config{pid, mpc} {
		if err := c.Validate(); err != nil {
			t.Errorf("%s defaults invalid: %v", c.Variant, err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"variant", func(c *Config) { c.Variant = "lqr" }},
		{"env", func(c *Config) { c.Env = "mujoco" }},
		{"rate", func(c *Config) { c.Rate = 0 }},
		{"timeout", func(c *Config) { c.Task.Timeout = -1 }},
		{"speed", func(c *Config) { c.Motion.SpeedXY = 0 }},
		{"vmin above vmax", func(c *Config) { c.PID.VMin = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig(VariantPID)
			tt.mutate(c)
			if err := c.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}

	c := DefaultConfig(VariantMPC)
	c.MPC.Params.LambdaU = 0
	if err := c.Validate(); !errors.Is(err, ErrInvalid) {
		t.Errorf("lambda_u = 0 accepted: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "push.yaml")
	want := DefaultConfig(VariantMPC)
	want.Trial = 7
	want.MPC.Params.Horizon = 20
	if err := Save(path, want); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if *got != *want {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestLoadPartialUsesVariantDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("variant: mpc\ntask:\n  timeout: 45\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Task.Timeout != 45 {
		t.Errorf("timeout = %v", cfg.Task.Timeout)
	}
	if cfg.Motion.ApproachTolerance != 0.004 || cfg.Task.FineTolerance != DefaultFineTolerance {
		t.Errorf("defaults lost: %+v %+v", cfg.Motion, cfg.Task)
	}
	if math.Abs(cfg.MPC.Params.Dt-1.0/60) > 1e-15 {
		t.Errorf("dt = %v", cfg.MPC.Params.Dt)
	}
}

func TestOverride(t *testing.T) {
	base := DefaultConfig(VariantPID)
	got, err := base.Override(map[string]any{
		"pid.vmax":     0.2,
		"task.timeout": 60,
		"mpc.horizon":  25,
		"scene.jitter": 0.01,
		"trial":        4,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.PID.VMax != 0.2 || got.Task.Timeout != 60 || got.MPC.Params.Horizon != 25 || got.Scene.Jitter != 0.01 || got.Trial != 4 {
		t.Errorf("override not applied: %+v", got)
	}
	if base.PID.VMax != 0.15 {
		t.Error("override mutated the base config")
	}
	if got.Timeout() != time.Minute {
		t.Errorf("Timeout() = %v", got.Timeout())
	}

	for _, bad := range []string{"pid.nope", "pid", "task.timeout.seconds"} {
		if _, err := base.Override(map[string]any{bad: 1}); !errors.Is(err, ErrInvalid) {
			t.Errorf("override %q: expected ErrInvalid, got %v", bad, err)
		}
	}
}

func TestConversions(t *testing.T) {
	c := DefaultConfig(VariantMPC)
	pc := c.PredictiveConfig()
	if pc.Limits.XY != 0.1 || pc.PalmOffset != -0.002 || pc.ActionScale != c.Scene.ActionScale {
		t.Errorf("predictive config: %+v", pc)
	}
	s := c.TrialSettings()
	if s.Timeout != 30*time.Second || s.GoalOffset.X != 0.15 || s.GoalOffset.Y != -0.10 || s.GripperIndex != 6 {
		t.Errorf("trial settings: %+v", s)
	}
	pp := DefaultConfig(VariantPID).PusherConfig()
	if pp.Push.Floor != 0.15 || pp.Rate != 60 || pp.StallWindow != 1 {
		t.Errorf("pusher config: %+v", pp)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset(VariantPID, "fast")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.PID.VMax != 0.25 {
		t.Errorf("expected vmax 0.25, got %f", cfg.PID.VMax)
	}
	if again := GetPreset(VariantPID, "fast"); again == cfg {
		t.Error("presets must return fresh configs")
	}
	if GetPreset(VariantMPC, "blind").Scene.NoContactSensor != true {
		t.Error("blind preset keeps the sensor")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset(VariantPID, "nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if cfg := GetPreset("nonexistent", "fast"); cfg != nil {
		t.Error("expected nil for nonexistent variant")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets(VariantMPC)
	if len(presets) == 0 || presets[0] != "blind" {
		t.Errorf("expected sorted mpc presets, got %v", presets)
	}
	if ListPresets("nonexistent") != nil {
		t.Error("expected nil for nonexistent variant")
	}
	for variant := range Presets {
		for _, name := range ListPresets(variant) {
			if err := GetPreset(variant, name).Validate(); err != nil {
				t.Errorf("%s/%s invalid: %v", variant, name, err)
			}
		}
	}
}
