// Package metrics accumulates per-tick trial statistics.
package metrics

import (
	"github.com/golang/geo/r3"

	"github.com/san-kum/pushctl/internal/controller"
	"github.com/san-kum/pushctl/internal/task"
)

// TickInfo describes one completed tick.
type TickInfo struct {
	Tick    int
	Elapsed float64
	Obs     task.Observation
	Error   task.ErrorState
	Delta   r3.Vector
	// From is the phase before dispatch, Phase the phase after it.
	From    controller.Phase
	Phase   controller.Phase
	Contact float64
	// SolverIterations is zero on ticks without a solve.
	SolverIterations int
}

type Metric interface {
	Name() string
	Observe(info TickInfo)
	Value() float64
	Reset()
}

// Set fans ticks out to several metrics.
type Set []Metric

func (s Set) Observe(info TickInfo) {
	for _, m := range s {
		m.Observe(info)
	}
}

func (s Set) Values() map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, m := range s {
		out[m.Name()] = m.Value()
	}
	return out
}

func (s Set) Reset() {
	for _, m := range s {
		m.Reset()
	}
}

// Standard returns the metrics recorded for every trial over the given
// phase set.
func Standard(phases []controller.Phase, contactThreshold float64) Set {
	set := Set{
		NewControlEffort(),
		NewContactRatio(contactThreshold),
		NewReapproaches(),
		NewSolverIterations(),
		NewFinalError(),
	}
	for _, p := range phases {
		set = append(set, NewPhaseTicks(p))
	}
	return set
}
