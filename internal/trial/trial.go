package trial

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"go.uber.org/zap"

	"github.com/san-kum/pushctl/internal/contact"
	"github.com/san-kum/pushctl/internal/controller"
	"github.com/san-kum/pushctl/internal/metrics"
	"github.com/san-kum/pushctl/internal/recorder"
	"github.com/san-kum/pushctl/internal/task"
)

// Settings are the per-trial limits and bookkeeping parameters.
type Settings struct {
	Index           int
	GoalOffset      r3.Vector
	Timeout         time.Duration
	FineTolerance   float64
	FinishTolerance float64
	SamplePeriod    float64
	RenderEvery     int
	GripperIndex    int
	GripperEngaged  float64
	// ContactThreshold is only used for reporting contact in TickInfo.
	ContactThreshold float64
}

func (s Settings) validate() error {
	if s.Timeout <= 0 {
		return fmt.Errorf("trial: timeout must be positive, got %s", s.Timeout)
	}
	if s.FineTolerance <= 0 {
		return fmt.Errorf("trial: fine tolerance must be positive, got %g", s.FineTolerance)
	}
	return nil
}

type Observer interface {
	OnTick(info metrics.TickInfo)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(info metrics.TickInfo)

func (f ObserverFunc) OnTick(info metrics.TickInfo) { f(info) }

type Option func(*Trial)

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option { return func(t *Trial) { t.clock = c } }

func WithLogger(l *zap.SugaredLogger) Option { return func(t *Trial) { t.log = l } }

// WithMetrics replaces the standard metric set.
func WithMetrics(set metrics.Set) Option { return func(t *Trial) { t.metrics = set } }

func WithObserver(o Observer) Option {
	return func(t *Trial) { t.observers = append(t.observers, o) }
}

// Trial is the per-trial context. It is not safe for concurrent use.
type Trial struct {
	env       task.Environment
	ctrl      controller.Controller
	settings  Settings
	rec       *recorder.Recorder
	contact   *contact.Monitor
	metrics   metrics.Set
	observers []Observer
	clock     clock.Clock
	log       *zap.SugaredLogger

	started bool
	done    bool
	start   time.Time
	goal    task.Goal
	obs     task.Observation
	last    task.ErrorState
	tick    int
	record  recorder.TrialRecord
}

func New(env task.Environment, ctrl controller.Controller, s Settings, opts ...Option) (*Trial, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if _, err := task.NewAction(env.ActionDim(), s.GripperIndex, s.GripperEngaged, r3.Vector{}); err != nil {
		return nil, err
	}
	t := &Trial{
		env:      env,
		ctrl:     ctrl,
		settings: s,
		rec:      recorder.New(s.SamplePeriod, s.FinishTolerance),
		contact:  contact.NewMonitor(s.ContactThreshold),
		clock:    clock.New(),
		log:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.metrics == nil {
		phases := controller.PusherPhases
		if _, ok := ctrl.(controller.SolverReporter); ok {
			phases = controller.PredictivePhases
		}
		t.metrics = metrics.Standard(phases, s.ContactThreshold)
	}
	return t, nil
}

func (t *Trial) Controller() controller.Controller { return t.ctrl }
func (t *Trial) Settings() Settings                { return t.settings }
func (t *Trial) Goal() task.Goal                   { return t.goal }
func (t *Trial) Observation() task.Observation     { return t.obs }
func (t *Trial) Error() task.ErrorState            { return t.last }
func (t *Trial) Ticks() int                        { return t.tick }
func (t *Trial) Done() bool                        { return t.done }

// Elapsed is wall time since Start.
func (t *Trial) Elapsed() time.Duration {
	if !t.started {
		return 0
	}
	return t.clock.Since(t.start)
}

// Samples exposes the periodic error samples recorded so far.
func (t *Trial) Samples() []recorder.Sample { return t.rec.Samples() }

// Record returns the final record once the trial is done.
func (t *Trial) Record() (recorder.TrialRecord, bool) { return t.record, t.done }

func (t *Trial) Metrics() map[string]float64 { return t.metrics.Values() }

// Start resets the environment, fixes the goal and starts the clock.
func (t *Trial) Start(ctx context.Context) error {
	obs, err := t.env.Reset(ctx)
	if err != nil {
		return &TickError{Phase: t.ctrl.Phase().String(), Wrapped: err}
	}
	if err := obs.Validate(); err != nil {
		return &TickError{Phase: t.ctrl.Phase().String(), Wrapped: err}
	}
	t.obs = obs.Clone()
	t.goal = task.NewGoal(obs.Object, t.settings.GoalOffset.X, t.settings.GoalOffset.Y)
	t.last = task.ComputeError(t.goal, t.obs)
	t.rec.Reset()
	t.metrics.Reset()
	t.tick = 0
	t.done = false
	t.record = recorder.TrialRecord{}
	t.start = t.clock.Now()
	t.started = true

	t.log.Infow("trial started",
		"impl", t.ctrl.Name(), "trial", t.settings.Index,
		"object", t.obs.Object, "goal", t.goal.XY, "error", t.last.Magnitude)
	return nil
}

// Tick runs one control iteration and reports whether the trial is over.
func (t *Trial) Tick(ctx context.Context) (bool, error) {
	if !t.started {
		return false, task.ErrNotStarted
	}
	if t.done {
		return true, nil
	}

	elapsed := t.Elapsed().Seconds()
	e := task.ComputeError(t.goal, t.obs)
	t.last = e
	t.rec.Observe(elapsed, e.Magnitude)

	if e.Magnitude < t.settings.FineTolerance {
		t.finish(task.StatusSuccess)
		return true, nil
	}
	if elapsed > t.settings.Timeout.Seconds() {
		t.finish(task.StatusTimeout)
		return true, nil
	}

	from := t.ctrl.Phase()
	cmd, err := t.ctrl.Act(controller.TickInput{Obs: t.obs, Error: e, Goal: t.goal})
	if err != nil {
		if errors.Is(err, task.ErrSolverFailed) {
			t.log.Warnw("controller gave up", "trial", t.settings.Index, "error", err)
			t.finish(task.StatusFailure)
			return true, nil
		}
		return false, t.wrap(elapsed, err)
	}

	action, err := task.NewAction(t.env.ActionDim(), t.settings.GripperIndex, t.settings.GripperEngaged, cmd.Delta)
	if err != nil {
		return false, t.wrap(elapsed, err)
	}
	next, err := t.env.Step(ctx, action)
	if err != nil {
		return false, t.wrap(elapsed, err)
	}
	if err := next.Validate(); err != nil {
		return false, t.wrap(elapsed, err)
	}

	info := metrics.TickInfo{
		Tick:    t.tick,
		Elapsed: elapsed,
		Obs:     t.obs,
		Error:   e,
		Delta:   cmd.Delta,
		From:    from,
		Phase:   t.ctrl.Phase(),
		Contact: t.contact.Magnitude(t.obs),
	}
	if sr, ok := t.ctrl.(controller.SolverReporter); ok && cmd.Phase == controller.PhaseMPC {
		if sol, ok := sr.LastSolve(); ok {
			info.SolverIterations = sol.Iterations
		}
	}

	t.obs = next.Clone()
	t.tick++

	if n := t.settings.RenderEvery; n > 0 && t.tick%n == 0 {
		if err := t.env.Render(); err != nil {
			t.log.Debugw("render failed", "error", err)
		}
	}

	t.metrics.Observe(info)
	for _, o := range t.observers {
		o.OnTick(info)
	}
	return false, nil
}

// Close releases the environment.
func (t *Trial) Close() error {
	return t.env.Close()
}

func (t *Trial) wrap(elapsed float64, err error) error {
	return &TickError{Tick: t.tick, Elapsed: elapsed, Phase: t.ctrl.Phase().String(), Wrapped: err}
}

func (t *Trial) finish(status task.Status) {
	total := t.Elapsed().Seconds()
	t.record = t.rec.Finalize(t.ctrl.Name(), t.settings.Index, total, status)
	t.done = true
	t.log.Infow("trial finished",
		"impl", t.record.Impl, "trial", t.record.Trial, "status", status.String(),
		"total", total, "ticks", t.tick, "error", t.last.Magnitude)
}
