package controller

import (
	"errors"
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/san-kum/pushctl/internal/task"
)

var (
	// ErrUnhandledPhase indicates a dispatch table that does not cover the
	// variant's phases exactly.
	ErrUnhandledPhase = errors.New("controller: unhandled phase")

	// ErrRedispatchLoop indicates handlers that kept handing the tick to
	// each other without producing a command.
	ErrRedispatchLoop = errors.New("controller: redispatch loop")
)

// TickInput is everything a handler may read on one tick.
type TickInput struct {
	Obs   task.Observation
	Error task.ErrorState
	Goal  task.Goal
}

// Command is the clipped position delta for one tick and the phase whose
// handler produced it.
type Command struct {
	Delta r3.Vector
	Phase Phase
}

// Step is a handler's verdict: the delta to issue and the phase for the next
// tick. With Redispatch set, Delta is ignored and Next handles this tick.
type Step struct {
	Delta      r3.Vector
	Next       Phase
	Redispatch bool
	Reason     string
}

// Handler computes one tick for one phase.
type Handler func(in TickInput) (Step, error)

// TransitionFunc observes phase changes.
type TransitionFunc func(from, to Phase, reason string)

// Machine owns the current phase. Only its transition rules mutate it.
type Machine struct {
	phase     Phase
	phases    []Phase
	handlers  map[Phase]Handler
	enter     map[Phase][]func(TickInput)
	listeners []TransitionFunc
}

// NewMachine checks that handlers covers phases exactly and that initial is
// one of them.
func NewMachine(initial Phase, phases []Phase, handlers map[Phase]Handler) (*Machine, error) {
	known := make(map[Phase]bool, len(phases))
	for _, p := range phases {
		known[p] = true
		if handlers[p] == nil {
			return nil, fmt.Errorf("%w: no handler for %s", ErrUnhandledPhase, p)
		}
	}
	for p := range handlers {
		if !known[p] {
			return nil, fmt.Errorf("%w: handler for foreign phase %s", ErrUnhandledPhase, p)
		}
	}
	if !known[initial] {
		return nil, fmt.Errorf("%w: initial phase %s", ErrUnhandledPhase, initial)
	}
	return &Machine{
		phase:    initial,
		phases:   phases,
		handlers: handlers,
		enter:    make(map[Phase][]func(TickInput)),
	}, nil
}

func (m *Machine) Phase() Phase     { return m.phase }
func (m *Machine) Phases() []Phase  { return m.phases }
func (m *Machine) Has(p Phase) bool { return m.handlers[p] != nil }

// OnEnter registers fn to run whenever the machine enters p.
func (m *Machine) OnEnter(p Phase, fn func(TickInput)) {
	m.enter[p] = append(m.enter[p], fn)
}

func (m *Machine) OnTransition(fn TransitionFunc) {
	m.listeners = append(m.listeners, fn)
}

// Force moves to p outside of a handler, for signal-driven transitions that
// must take effect before dispatch.
func (m *Machine) Force(p Phase, in TickInput, reason string) {
	if p == m.phase {
		return
	}
	m.transition(p, in, reason)
}

func (m *Machine) transition(to Phase, in TickInput, reason string) {
	from := m.phase
	m.phase = to
	for _, fn := range m.enter[to] {
		fn(in)
	}
	for _, fn := range m.listeners {
		fn(from, to, reason)
	}
}

// Dispatch runs the current phase's handler and applies its transition.
func (m *Machine) Dispatch(in TickInput) (Command, error) {
	for hops := 0; hops <= len(m.phases); hops++ {
		from := m.phase
		step, err := m.handlers[from](in)
		if err != nil {
			return Command{Phase: from}, err
		}
		if !m.Has(step.Next) {
			return Command{Phase: from}, fmt.Errorf("%w: %s -> %s", ErrUnhandledPhase, from, step.Next)
		}
		if step.Next != from {
			m.transition(step.Next, in, step.Reason)
		}
		if !step.Redispatch {
			return Command{Delta: step.Delta, Phase: from}, nil
		}
	}
	return Command{Phase: m.phase}, fmt.Errorf("%w at %s", ErrRedispatchLoop, m.phase)
}
