package controller

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"go.uber.org/zap"

	"github.com/san-kum/pushctl/internal/contact"
	"github.com/san-kum/pushctl/internal/mpc"
	"github.com/san-kum/pushctl/internal/primitive"
	"github.com/san-kum/pushctl/internal/task"
)

// PredictiveConfig parameterises the contact-triggered MPC variant.
type PredictiveConfig struct {
	Limits           primitive.Limits
	Standoff         float64
	ApproachHeight   float64
	LiftHeight       float64
	ApproachTol      float64
	LowerTol         float64
	PalmOffset       float64
	SeekSpeed        float64
	ContactThreshold float64
	// ActionScale is metres of end-effector travel per action unit. Planned
	// velocities are divided by it when converted to a delta.
	ActionScale float64
	// MaxSolverFailures is how many consecutive unusable solves are held
	// through before the trial fails.
	MaxSolverFailures int
	MPC               mpc.Params
}

// PredictivePhases is the phase set the MPC variant dispatches over.
var PredictivePhases = []Phase{PhaseApproach, PhaseLower, PhaseSeek, PhaseSeekLift, PhaseMPC}

// Predictive finds contact by sliding toward the goal and then tracks the
// goal with a receding-horizon plan of the object's motion.
type Predictive struct {
	cfg     PredictiveConfig
	m       *Machine
	contact *contact.Monitor
	session *mpc.Session
	vel     *mpc.VelocityEstimator
	log     *zap.SugaredLogger

	failures int
	last     mpc.Solution
	solved   bool

	// prevObject is the object position seen on the previous tick.
	prevObject r3.Vector
	seen       bool
}

func NewPredictive(cfg PredictiveConfig, opts ...Option) (*Predictive, error) {
	prob, err := mpc.NewProblem(cfg.MPC)
	if err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	p := &Predictive{
		cfg:     cfg,
		contact: contact.NewMonitor(cfg.ContactThreshold),
		session: mpc.NewSession(prob),
		vel:     mpc.NewVelocityEstimator(prob.Params().Dt),
		log:     o.logger,
	}
	m, err := NewMachine(PhaseApproach, PredictivePhases, map[Phase]Handler{
		PhaseApproach: p.approach,
		PhaseLower:    p.lower,
		PhaseSeek:     p.seek,
		PhaseSeekLift: p.seekLift,
		PhaseMPC:      p.track,
	})
	if err != nil {
		return nil, err
	}
	m.OnEnter(PhaseMPC, func(in TickInput) {
		if p.seen {
			p.vel.Reset(p.prevObject)
		} else {
			p.vel.Reset(in.Obs.Object)
		}
		p.failures = 0
	})
	logTransitions(m, p.Name(), p.log)
	p.m = m
	return p, nil
}

func (p *Predictive) Name() string                   { return "push_mpc" }
func (p *Predictive) Phase() Phase                   { return p.m.Phase() }
func (p *Predictive) OnTransition(fn TransitionFunc) { p.m.OnTransition(fn) }

// LastSolve returns the most recent solver result, if any.
func (p *Predictive) LastSolve() (mpc.Solution, bool) { return p.last, p.solved }

// Act applies contact-driven transitions on the current observation, then
// dispatches. The first solve after entering mpc differences against the
// previous tick's object position.
func (p *Predictive) Act(in TickInput) (Command, error) {
	defer func() { p.prevObject, p.seen = in.Obs.Object, true }()
	switch p.m.Phase() {
	case PhaseSeek, PhaseSeekLift:
		if p.contact.Established(in.Obs) {
			p.m.Force(PhaseMPC, in, "contact")
		}
	case PhaseMPC:
		if p.contact.Lost(in.Obs) {
			p.m.Force(PhaseSeekLift, in, "contact lost")
		}
	}
	return p.m.Dispatch(in)
}

func (p *Predictive) wristZ(in TickInput) float64 {
	return in.Goal.TableZ + p.cfg.PalmOffset
}

func (p *Predictive) backPose(in TickInput, height float64, phase, next Phase, reason string) Step {
	ee := in.Obs.EndEffector
	tgt := primitive.BackPose(in.Obs.Object, in.Error, p.cfg.Standoff, in.Goal.TableZ, height)
	step := Step{Delta: primitive.Toward(tgt, ee, p.cfg.Limits), Next: phase}
	if primitive.Reached(tgt, ee, p.cfg.ApproachTol) {
		step.Next, step.Reason = next, reason
	}
	return step
}

func (p *Predictive) approach(in TickInput) (Step, error) {
	return p.backPose(in, p.cfg.ApproachHeight, PhaseApproach, PhaseLower, "above back pose"), nil
}

func (p *Predictive) seekLift(in TickInput) (Step, error) {
	return p.backPose(in, p.cfg.LiftHeight, PhaseSeekLift, PhaseSeek, "re-aligned"), nil
}

func (p *Predictive) lower(in TickInput) (Step, error) {
	ee := in.Obs.EndEffector
	tgt := primitive.LowerTarget(ee, p.wristZ(in))
	step := Step{Delta: primitive.Toward(tgt, ee, p.cfg.Limits), Next: PhaseLower}
	if math.Abs(ee.Z-tgt.Z) < p.cfg.LowerTol {
		step.Next, step.Reason = PhaseSeek, "at palm height"
	}
	return step, nil
}

func (p *Predictive) seek(in TickInput) (Step, error) {
	d := primitive.SeekVelocity(in.Error, p.cfg.SeekSpeed, in.Obs.EndEffector, p.wristZ(in), p.cfg.Limits)
	return Step{Delta: d, Next: PhaseSeek}, nil
}

// track solves for the object's next velocity and converts it to a delta.
// Unusable solves hold position; too many in a row end the trial.
func (p *Predictive) track(in TickInput) (Step, error) {
	obj, ee := in.Obs.Object, in.Obs.EndEffector
	v0 := p.vel.Update(obj)
	p.session.Update(task.Planar(obj), v0, in.Goal.XY)
	sol, err := p.session.Solve()
	if err != nil {
		return Step{}, err
	}
	p.last, p.solved = sol, true

	dz := p.wristZ(in) - ee.Z
	if !sol.Status.Usable() {
		p.failures++
		p.log.Warnw("solver result unusable", "status", sol.Status.String(), "consecutive", p.failures)
		if p.failures > p.cfg.MaxSolverFailures {
			return Step{}, fmt.Errorf("%w: %d consecutive %s results", task.ErrSolverFailed, p.failures, sol.Status)
		}
		return Step{Delta: p.cfg.Limits.Clip(r3.Vector{Z: dz}), Next: PhaseMPC}, nil
	}
	p.failures = 0
	scale := p.cfg.ActionScale
	if scale <= 0 {
		scale = 1
	}
	d := sol.Command().Mul(p.session.Problem().Params().Dt / scale)
	d.Z = dz
	return Step{Delta: p.cfg.Limits.Clip(d), Next: PhaseMPC}, nil
}

var _ Controller = (*Predictive)(nil)
var _ SolverReporter = (*Predictive)(nil)
