// Package experiment turns a config into runnable trials and runs them one
// at a time or in batches.
package experiment

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/san-kum/pushctl/internal/config"
	"github.com/san-kum/pushctl/internal/metrics"
	"github.com/san-kum/pushctl/internal/recorder"
	"github.com/san-kum/pushctl/internal/storage"
	"github.com/san-kum/pushctl/internal/trial"
)

type Experiment struct {
	registry *Registry
	clock    clock.Clock
	log      *zap.SugaredLogger
	opts     []trial.Option
	// simulated gives each trial its own mock clock advanced one control
	// period per tick.
	simulated bool
}

type Option func(*Experiment)

func WithClock(c clock.Clock) Option { return func(e *Experiment) { e.clock = c } }

func WithLogger(l *zap.SugaredLogger) Option { return func(e *Experiment) { e.log = l } }

// WithSimulatedTime runs trials on simulated time: elapsed is ticks over
// rate, independent of how fast the environment steps.
func WithSimulatedTime() Option { return func(e *Experiment) { e.simulated = true } }

// WithTrialOptions appends options to every trial built.
func WithTrialOptions(opts ...trial.Option) Option {
	return func(e *Experiment) { e.opts = append(e.opts, opts...) }
}

func New(reg *Registry, opts ...Option) *Experiment {
	e := &Experiment{
		registry: reg,
		clock:    clock.New(),
		log:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Experiment) Registry() *Registry { return e.registry }

// Build validates cfg and assembles a trial for cfg.Trial.
func (e *Experiment) Build(cfg *config.Config, opts ...trial.Option) (*trial.Trial, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctrl, err := e.registry.GetController(cfg, e.log)
	if err != nil {
		return nil, err
	}
	environment, err := e.registry.GetEnv(cfg, e.log)
	if err != nil {
		return nil, err
	}

	clk := e.clock
	var sim []trial.Option
	if e.simulated {
		mock := clock.NewMock()
		period := time.Duration(float64(time.Second) / cfg.Rate)
		clk = mock
		sim = append(sim, trial.WithObserver(trial.ObserverFunc(func(metrics.TickInfo) { mock.Add(period) })))
	}

	all := []trial.Option{trial.WithClock(clk), trial.WithLogger(e.log)}
	all = append(all, sim...)
	all = append(all, e.opts...)
	all = append(all, opts...)
	t, err := trial.New(environment, ctrl, cfg.TrialSettings(), all...)
	if err != nil {
		environment.Close()
		return nil, err
	}
	return t, nil
}

// Runner paces at the control rate when cfg.Realtime is set and time is not
// simulated.
func (e *Experiment) Runner(cfg *config.Config) *trial.Runner {
	r := &trial.Runner{Clock: e.clock}
	if cfg.Realtime && !e.simulated {
		r.Rate = cfg.Rate
	}
	return r
}

// Outcome is a finished trial with its metrics and, when kept, its ticks.
type Outcome struct {
	Config  *config.Config
	Record  recorder.TrialRecord
	Metrics map[string]float64
	Ticks   []metrics.TickInfo
}

// StorageRun adapts the outcome for storage.Store.Save.
func (o Outcome) StorageRun() storage.Run {
	return storage.Run{Record: o.Record, Config: o.Config, Metrics: o.Metrics, Ticks: o.Ticks}
}

// Run builds and runs a single trial.
func (e *Experiment) Run(ctx context.Context, cfg *config.Config, keepTicks bool) (Outcome, error) {
	out, err := e.Batch(ctx, cfg, 1, 1, keepTicks, nil)
	if err != nil {
		return Outcome{}, err
	}
	return out[0], nil
}

// Batch runs n trials numbered from cfg.Trial. emit, if set, sees every
// outcome as its trial ends.
func (e *Experiment) Batch(ctx context.Context, cfg *config.Config, n, workers int, keepTicks bool, emit func(Outcome)) ([]Outcome, error) {
	outcomes := make([]Outcome, n)
	logs := make([]*storage.TickLog, n)
	cfgs := make([]*config.Config, n)

	build := func(index int) (*trial.Trial, error) {
		i := index - cfg.Trial
		c := cfg.Clone()
		c.Trial = index
		cfgs[i] = c
		var opts []trial.Option
		if keepTicks {
			logs[i] = &storage.TickLog{}
			opts = append(opts, trial.WithObserver(logs[i]))
		}
		return e.Build(c, opts...)
	}

	b := &trial.Batch{
		Runner:  e.Runner(cfg),
		Workers: workers,
		Emit: func(t *trial.Trial, rec recorder.TrialRecord) {
			i := rec.Trial - cfg.Trial
			outcomes[i] = Outcome{Config: cfgs[i], Record: rec, Metrics: t.Metrics()}
			if logs[i] != nil {
				outcomes[i].Ticks = logs[i].Rows
			}
			if emit != nil {
				emit(outcomes[i])
			}
		},
	}
	records, err := b.Run(ctx, cfg.Trial, n, build)
	if err != nil {
		return outcomes[:len(records)], err
	}
	return outcomes, nil
}
