package controller

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/pushctl/internal/primitive"
	"github.com/san-kum/pushctl/internal/stall"
)

// PusherConfig parameterises the proportional push variant.
type PusherConfig struct {
	Limits         primitive.Limits
	Standoff       float64
	ApproachHeight float64
	ApproachTol    float64
	LowerTol       float64
	// WristOffset is the wrist height above the table during the push.
	WristOffset float64
	// LowerOffset is added on top of the wrist height for the lower target.
	LowerOffset float64
	Push        primitive.PushParams

	ReapproachDist float64
	StallWindow    float64
	StallThreshold float64
	Rate           float64
}

// PusherPhases is the phase set the proportional variant dispatches over.
var PusherPhases = []Phase{PhaseApproach, PhaseLower, PhasePush}

// Pusher is the approach → lower → push controller.
type Pusher struct {
	cfg   PusherConfig
	m     *Machine
	guard *stall.Guard
	log   *zap.SugaredLogger

	reapproaches int
}

func NewPusher(cfg PusherConfig, opts ...Option) (*Pusher, error) {
	if cfg.Rate <= 0 || cfg.StallWindow <= 0 {
		return nil, fmt.Errorf("controller: stall window %.3gs at %.3g Hz", cfg.StallWindow, cfg.Rate)
	}
	o := buildOptions(opts)
	p := &Pusher{
		cfg:   cfg,
		guard: stall.NewGuard(cfg.StallWindow, cfg.Rate, cfg.StallThreshold),
		log:   o.logger,
	}
	m, err := NewMachine(PhaseApproach, PusherPhases, map[Phase]Handler{
		PhaseApproach: p.approach,
		PhaseLower:    p.lower,
		PhasePush:     p.push,
	})
	if err != nil {
		return nil, err
	}
	m.OnEnter(PhasePush, func(TickInput) { p.guard.Reset() })
	m.OnEnter(PhaseApproach, func(TickInput) { p.reapproaches++ })
	logTransitions(m, p.Name(), p.log)
	p.m = m
	return p, nil
}

func (p *Pusher) Name() string                   { return "push_pid" }
func (p *Pusher) Phase() Phase                   { return p.m.Phase() }
func (p *Pusher) OnTransition(fn TransitionFunc) { p.m.OnTransition(fn) }

// Reapproaches counts forced returns to approach from push.
func (p *Pusher) Reapproaches() int { return p.reapproaches }

// Act records the error in the stall window and dispatches the current phase.
func (p *Pusher) Act(in TickInput) (Command, error) {
	p.guard.Push(in.Error.Magnitude)
	return p.m.Dispatch(in)
}

func (p *Pusher) wristZ(in TickInput) float64 {
	return in.Goal.TableZ + p.cfg.WristOffset
}

func (p *Pusher) approach(in TickInput) (Step, error) {
	ee := in.Obs.EndEffector
	tgt := primitive.BackPose(in.Obs.Object, in.Error, p.cfg.Standoff, in.Goal.TableZ, p.cfg.ApproachHeight)
	step := Step{Delta: primitive.Toward(tgt, ee, p.cfg.Limits), Next: PhaseApproach}
	if primitive.Reached(tgt, ee, p.cfg.ApproachTol) {
		step.Next, step.Reason = PhaseLower, "above back pose"
	}
	return step, nil
}

func (p *Pusher) lower(in TickInput) (Step, error) {
	ee := in.Obs.EndEffector
	tgt := primitive.LowerTarget(ee, p.wristZ(in)+p.cfg.LowerOffset)
	step := Step{Delta: primitive.Toward(tgt, ee, p.cfg.Limits), Next: PhaseLower}
	if math.Abs(ee.Z-tgt.Z) < p.cfg.LowerTol {
		step.Next, step.Reason = PhasePush, "at working height"
	}
	return step, nil
}

func (p *Pusher) push(in TickInput) (Step, error) {
	obj, ee := in.Obs.Object, in.Obs.EndEffector
	if lat := primitive.Lateral(in.Error, obj, ee, p.cfg.Standoff); lat > p.cfg.ReapproachDist {
		return Step{Next: PhaseApproach, Redispatch: true, Reason: fmt.Sprintf("lateral offset %.3f", lat)}, nil
	}
	if p.guard.Stalled(in.Error.Magnitude) {
		return Step{Next: PhaseApproach, Redispatch: true, Reason: "stalled"}, nil
	}
	d := primitive.PushVelocity(p.cfg.Push, in.Error, obj, ee, p.wristZ(in), p.cfg.Limits)
	return Step{Delta: d, Next: PhasePush}, nil
}

var _ Controller = (*Pusher)(nil)
