package controller

import (
	"go.uber.org/zap"

	"github.com/san-kum/pushctl/internal/mpc"
)

// Controller produces one bounded command per tick.
type Controller interface {
	Name() string
	Phase() Phase
	Act(in TickInput) (Command, error)
	OnTransition(fn TransitionFunc)
}

// SolverReporter is implemented by controllers that run an optimiser.
type SolverReporter interface {
	LastSolve() (mpc.Solution, bool)
}

// Option configures a controller.
type Option func(*options)

type options struct {
	logger *zap.SugaredLogger
}

// WithLogger routes transition and solver logs to l.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop().Sugar()
	}
	return o
}

func logTransitions(m *Machine, name string, l *zap.SugaredLogger) {
	m.OnTransition(func(from, to Phase, reason string) {
		l.Debugw("phase transition", "controller", name, "from", from.String(), "to", to.String(), "reason", reason)
	})
}
