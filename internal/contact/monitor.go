// Package contact turns raw touch-force readings into a binary contact signal.
package contact

import (
	"math"

	"github.com/san-kum/pushctl/internal/task"
)

// DefaultThreshold separates sensor noise from real contact.
const DefaultThreshold = 1e-4

// Monitor applies a single magnitude threshold with no hysteresis band.
type Monitor struct {
	Threshold float64
}

func NewMonitor(threshold float64) *Monitor {
	return &Monitor{Threshold: threshold}
}

// Magnitude is the Euclidean norm of the force reading. Absent readings and
// non-finite components count as zero.
func (m *Monitor) Magnitude(obs task.Observation) float64 {
	if obs.ContactForce == nil {
		return 0
	}
	sum := 0.0
	for _, f := range obs.ContactForce {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		sum += f * f
	}
	return math.Sqrt(sum)
}

// Established reports magnitude strictly above the threshold.
func (m *Monitor) Established(obs task.Observation) bool {
	return m.Magnitude(obs) > m.Threshold
}

// Lost reports magnitude strictly below the threshold. A reading exactly at
// the threshold is neither established nor lost.
func (m *Monitor) Lost(obs task.Observation) bool {
	return m.Magnitude(obs) < m.Threshold
}
