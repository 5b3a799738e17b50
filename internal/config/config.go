package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang/geo/r3"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pushctl/internal/controller"
	"github.com/san-kum/pushctl/internal/env"
	"github.com/san-kum/pushctl/internal/mpc"
	"github.com/san-kum/pushctl/internal/primitive"
	"github.com/san-kum/pushctl/internal/trial"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

const (
	VariantPID = "pid"
	VariantMPC = "mpc"

	EnvKinematic = "kinematic"

	DefaultRate           = 60.0
	DefaultGoalOffsetX    = 0.15
	DefaultGoalOffsetY    = -0.10
	DefaultStandoff       = 0.05
	DefaultApproachHeight = 0.15
	DefaultSpeed          = 0.10
	DefaultFineTolerance  = 0.015
	DefaultFinishTol      = 0.01
	DefaultRenderEvery    = 100
)

type Config struct {
	Variant  string  `yaml:"variant"`
	Env      string  `yaml:"env"`
	Trial    int     `yaml:"trial"`
	Rate     float64 `yaml:"rate"`
	Realtime bool    `yaml:"realtime"`

	Task   TaskConfig   `yaml:"task"`
	Motion MotionConfig `yaml:"motion"`
	PID    PIDConfig    `yaml:"pid"`
	MPC    MPCConfig    `yaml:"mpc"`
	Scene  env.Config   `yaml:"scene"`
}

type TaskConfig struct {
	GoalOffsetX     float64 `yaml:"goal_offset_x"`
	GoalOffsetY     float64 `yaml:"goal_offset_y"`
	Timeout         float64 `yaml:"timeout"`
	FineTolerance   float64 `yaml:"fine_tolerance"`
	FinishTolerance float64 `yaml:"finish_tolerance"`
	SamplePeriod    float64 `yaml:"sample_period"`
	RenderEvery     int     `yaml:"render_every"`
	GripperIndex    int     `yaml:"gripper_index"`
	GripperEngaged  float64 `yaml:"gripper_engaged"`
}

type MotionConfig struct {
	Standoff          float64 `yaml:"standoff"`
	ApproachHeight    float64 `yaml:"approach_height"`
	SpeedXY           float64 `yaml:"speed_xy"`
	SpeedZ            float64 `yaml:"speed_z"`
	ApproachTolerance float64 `yaml:"approach_tolerance"`
	LowerTolerance    float64 `yaml:"lower_tolerance"`
}

type PIDConfig struct {
	WristOffset    float64 `yaml:"wrist_offset"`
	LowerOffset    float64 `yaml:"lower_offset"`
	VMax           float64 `yaml:"vmax"`
	VMin           float64 `yaml:"vmin"`
	FadeDist       float64 `yaml:"fade_dist"`
	FadeExponent   float64 `yaml:"fade_exponent"`
	FadeFloor      float64 `yaml:"fade_floor"`
	LateralGain    float64 `yaml:"lateral_gain"`
	StallWindow    float64 `yaml:"stall_window"`
	StallThreshold float64 `yaml:"stall_threshold"`
	ReapproachDist float64 `yaml:"reapproach_dist"`
}

type MPCConfig struct {
	LiftHeight        float64    `yaml:"lift_height"`
	PalmOffset        float64    `yaml:"palm_offset"`
	SeekSpeed         float64    `yaml:"seek_speed"`
	ContactThreshold  float64    `yaml:"contact_threshold"`
	MaxSolverFailures int        `yaml:"max_solver_failures"`
	Params            mpc.Params `yaml:",inline"`
}

// DefaultConfig returns the tuned constants for variant ("pid" or "mpc").
// Unknown variants get the pid timing with Variant left as given, so
// Validate reports them.
func DefaultConfig(variant string) *Config {
	cfg := &Config{
		Variant: variant,
		Env:     EnvKinematic,
		Rate:    DefaultRate,
		Task: TaskConfig{
			GoalOffsetX:     DefaultGoalOffsetX,
			GoalOffsetY:     DefaultGoalOffsetY,
			Timeout:         180,
			FineTolerance:   DefaultFineTolerance,
			FinishTolerance: DefaultFinishTol,
			SamplePeriod:    1,
			RenderEvery:     DefaultRenderEvery,
			GripperIndex:    6,
			GripperEngaged:  1,
		},
		Motion: MotionConfig{
			Standoff:          DefaultStandoff,
			ApproachHeight:    DefaultApproachHeight,
			SpeedXY:           DefaultSpeed,
			SpeedZ:            DefaultSpeed,
			ApproachTolerance: 0.005,
			LowerTolerance:    0.0008,
		},
		PID: PIDConfig{
			WristOffset:    0.001,
			LowerOffset:    0.001,
			VMax:           0.15,
			VMin:           0.05,
			FadeDist:       0.001,
			FadeExponent:   2,
			FadeFloor:      0.15,
			LateralGain:    0.5,
			StallWindow:    1,
			StallThreshold: 0.002,
			ReapproachDist: 0.15,
		},
		MPC: MPCConfig{
			LiftHeight:        0.06,
			PalmOffset:        -0.002,
			SeekSpeed:         0.03,
			ContactThreshold:  1e-4,
			MaxSolverFailures: 5,
			Params:            mpc.DefaultParams(),
		},
		Scene: env.DefaultConfig(),
	}
	if variant == VariantMPC {
		cfg.Task.Timeout = 30
		cfg.Motion.ApproachTolerance = 0.004
		cfg.Motion.LowerTolerance = 0.002
	}
	return cfg
}

// Load reads path over the defaults of the variant named in the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var head struct {
		Variant string `yaml:"variant"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	if head.Variant == "" {
		head.Variant = VariantPID
	}
	cfg := DefaultConfig(head.Variant)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	return &out
}

func (c *Config) Validate() error {
	switch c.Variant {
	case VariantPID, VariantMPC:
	default:
		return fmt.Errorf("%w: unknown variant %q", ErrInvalid, c.Variant)
	}
	if c.Env != EnvKinematic {
		return fmt.Errorf("%w: unknown env %q", ErrInvalid, c.Env)
	}
	positive := []struct {
		name string
		v    float64
	}{
		{"rate", c.Rate},
		{"task.timeout", c.Task.Timeout},
		{"task.fine_tolerance", c.Task.FineTolerance},
		{"task.sample_period", c.Task.SamplePeriod},
		{"motion.standoff", c.Motion.Standoff},
		{"motion.speed_xy", c.Motion.SpeedXY},
		{"motion.speed_z", c.Motion.SpeedZ},
		{"motion.approach_tolerance", c.Motion.ApproachTolerance},
		{"motion.lower_tolerance", c.Motion.LowerTolerance},
	}
	if c.Variant == VariantPID {
		positive = append(positive, []struct {
			name string
			v    float64
		}{
			{"pid.vmax", c.PID.VMax},
			{"pid.stall_window", c.PID.StallWindow},
			{"pid.reapproach_dist", c.PID.ReapproachDist},
		}...)
	}
	for _, p := range positive {
		if p.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalid, p.name, p.v)
		}
	}
	if c.Task.FinishTolerance < 0 {
		return fmt.Errorf("%w: task.finish_tolerance is negative", ErrInvalid)
	}
	if c.Variant == VariantPID && c.PID.VMin > c.PID.VMax {
		return fmt.Errorf("%w: pid.vmin %g above vmax %g", ErrInvalid, c.PID.VMin, c.PID.VMax)
	}
	if c.Variant == VariantMPC {
		if c.MPC.MaxSolverFailures < 0 {
			return fmt.Errorf("%w: mpc.max_solver_failures is negative", ErrInvalid)
		}
		if err := c.MPC.Params.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	return nil
}

func (c *Config) Limits() primitive.Limits {
	return primitive.Limits{XY: c.Motion.SpeedXY, Z: c.Motion.SpeedZ}
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Task.Timeout * float64(time.Second))
}

func (c *Config) PusherConfig() controller.PusherConfig {
	return controller.PusherConfig{
		Limits:         c.Limits(),
		Standoff:       c.Motion.Standoff,
		ApproachHeight: c.Motion.ApproachHeight,
		ApproachTol:    c.Motion.ApproachTolerance,
		LowerTol:       c.Motion.LowerTolerance,
		WristOffset:    c.PID.WristOffset,
		LowerOffset:    c.PID.LowerOffset,
		Push: primitive.PushParams{
			VMax:        c.PID.VMax,
			VMin:        c.PID.VMin,
			FadeDist:    c.PID.FadeDist,
			Exponent:    c.PID.FadeExponent,
			Floor:       c.PID.FadeFloor,
			LateralGain: c.PID.LateralGain,
		},
		ReapproachDist: c.PID.ReapproachDist,
		StallWindow:    c.PID.StallWindow,
		StallThreshold: c.PID.StallThreshold,
		Rate:           c.Rate,
	}
}

func (c *Config) PredictiveConfig() controller.PredictiveConfig {
	return controller.PredictiveConfig{
		Limits:            c.Limits(),
		Standoff:          c.Motion.Standoff,
		ApproachHeight:    c.Motion.ApproachHeight,
		LiftHeight:        c.MPC.LiftHeight,
		ApproachTol:       c.Motion.ApproachTolerance,
		LowerTol:          c.Motion.LowerTolerance,
		PalmOffset:        c.MPC.PalmOffset,
		SeekSpeed:         c.MPC.SeekSpeed,
		ContactThreshold:  c.MPC.ContactThreshold,
		ActionScale:       c.Scene.ActionScale,
		MaxSolverFailures: c.MPC.MaxSolverFailures,
		MPC:               c.MPC.Params,
	}
}

func (c *Config) TrialSettings() trial.Settings {
	return trial.Settings{
		Index:            c.Trial,
		GoalOffset:       r3.Vector{X: c.Task.GoalOffsetX, Y: c.Task.GoalOffsetY},
		Timeout:          c.Timeout(),
		FineTolerance:    c.Task.FineTolerance,
		FinishTolerance:  c.Task.FinishTolerance,
		SamplePeriod:     c.Task.SamplePeriod,
		RenderEvery:      c.Task.RenderEvery,
		GripperIndex:     c.Task.GripperIndex,
		GripperEngaged:   c.Task.GripperEngaged,
		ContactThreshold: c.MPC.ContactThreshold,
	}
}
