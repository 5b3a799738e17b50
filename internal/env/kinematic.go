// Package env provides a kinematic stand-in for the simulation: the
// end-effector goes where it is told, and a square object slides out of
// its way when penetrated below the object's top face. There is no
// dynamics, friction or rendering.
package env

import (
	"context"
	"errors"
	"math"
	"math/rand"

	"github.com/golang/geo/r3"
	"go.uber.org/zap"

	"github.com/san-kum/pushctl/internal/task"
)

// ErrClosed indicates use after Close.
var ErrClosed = errors.New("env: closed")

// Config describes the reference scene.
type Config struct {
	// ActionScale is metres of travel per action unit.
	ActionScale float64 `yaml:"action_scale"`
	ActionDim   int     `yaml:"action_dim"`

	ObjectX        float64   `yaml:"object_x"`
	ObjectY        float64   `yaml:"object_y"`
	ObjectZ        float64   `yaml:"object_z"`
	ObjectHalfSize float64   `yaml:"object_half_size"`
	EffectorX      float64   `yaml:"effector_x"`
	EffectorY      float64   `yaml:"effector_y"`
	EffectorZ      float64   `yaml:"effector_z"`
	FingerRadius   float64   `yaml:"finger_radius"`

	// Stiffness converts penetration into reported force.
	Stiffness float64 `yaml:"stiffness"`
	// Skin is the gap within which touching still reports force.
	Skin float64 `yaml:"skin"`
	// NoContactSensor removes the force reading from observations.
	NoContactSensor bool `yaml:"no_contact_sensor"`

	// Jitter randomises the object's starting xy within ±Jitter.
	Jitter float64 `yaml:"jitter"`
	Seed   int64   `yaml:"seed"`
}

func DefaultConfig() Config {
	return Config{
		ActionScale:    0.05,
		ActionDim:      7,
		ObjectX:        0,
		ObjectY:        0,
		ObjectZ:        0.83,
		ObjectHalfSize: 0.02,
		EffectorX:      -0.10,
		EffectorY:      0,
		EffectorZ:      1.0,
		FingerRadius:   0.01,
		Stiffness:      100,
		Skin:           0.0005,
	}
}

// Kinematic implements task.Environment.
type Kinematic struct {
	cfg Config
	rng *rand.Rand
	log *zap.SugaredLogger

	object r3.Vector
	ee     r3.Vector
	force  r3.Vector
	steps  int
	closed bool
}

// NewKinematic builds the scene; trial offsets the jitter seed so every
// trial gets its own start.
func NewKinematic(cfg Config, trial int, log *zap.SugaredLogger) *Kinematic {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.ActionScale <= 0 {
		cfg.ActionScale = 1
	}
	return &Kinematic{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed + int64(trial))),
		log: log,
	}
}

func (k *Kinematic) ActionDim() int { return k.cfg.ActionDim }

func (k *Kinematic) Reset(ctx context.Context) (task.Observation, error) {
	if k.closed {
		return task.Observation{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return task.Observation{}, err
	}
	k.object = r3.Vector{X: k.cfg.ObjectX, Y: k.cfg.ObjectY, Z: k.cfg.ObjectZ}
	if j := k.cfg.Jitter; j > 0 {
		k.object.X += (2*k.rng.Float64() - 1) * j
		k.object.Y += (2*k.rng.Float64() - 1) * j
	}
	k.ee = r3.Vector{X: k.cfg.EffectorX, Y: k.cfg.EffectorY, Z: k.cfg.EffectorZ}
	k.force = r3.Vector{}
	k.steps = 0
	return k.observe(), nil
}

// Step moves the end-effector by the scaled delta and resolves contact.
func (k *Kinematic) Step(ctx context.Context, a task.Action) (task.Observation, error) {
	if k.closed {
		return task.Observation{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return task.Observation{}, err
	}
	k.ee = k.ee.Add(a.Delta().Mul(k.cfg.ActionScale))
	if floor := k.cfg.ObjectZ - k.cfg.ObjectHalfSize; k.ee.Z < floor {
		k.ee.Z = floor
	}
	k.force = k.resolve()
	k.steps++
	return k.observe(), nil
}

// resolve pushes the object out along the axis of least penetration and
// returns the contact force on it.
func (k *Kinematic) resolve() r3.Vector {
	if k.ee.Z >= k.object.Z+k.cfg.ObjectHalfSize {
		return r3.Vector{}
	}
	ext := k.cfg.ObjectHalfSize + k.cfg.FingerRadius
	rel := k.ee.Sub(k.object)
	px := ext - math.Abs(rel.X)
	py := ext - math.Abs(rel.Y)
	skin := k.cfg.Skin
	if px <= -skin || py <= -skin {
		return r3.Vector{}
	}

	var n r3.Vector
	pen := px
	if px < py {
		n = r3.Vector{X: -math.Copysign(1, rel.X)}
	} else {
		n = r3.Vector{Y: -math.Copysign(1, rel.Y)}
		pen = py
	}
	if pen > 0 {
		k.object = k.object.Add(n.Mul(pen))
	}
	return n.Mul(k.cfg.Stiffness * (pen + skin))
}

func (k *Kinematic) observe() task.Observation {
	obs := task.Observation{Object: k.object, EndEffector: k.ee}
	if !k.cfg.NoContactSensor {
		obs.ContactForce = []float64{k.force.X, k.force.Y, k.force.Z}
	}
	return obs
}

// Render logs the scene at debug level.
func (k *Kinematic) Render() error {
	if k.closed {
		return ErrClosed
	}
	k.log.Debugw("scene", "step", k.steps, "object", k.object, "effector", k.ee, "force", k.force.Norm())
	return nil
}

func (k *Kinematic) Close() error {
	k.closed = true
	return nil
}

var _ task.Environment = (*Kinematic)(nil)
