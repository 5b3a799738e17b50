// Package stall detects a push that has stopped making progress.
package stall

import "math"

// Guard keeps a fixed window of recent error magnitudes. Once full, the push
// is stalled when the error improved by less than Threshold across the window.
type Guard struct {
	buf       []float64
	head      int
	size      int
	Threshold float64
}

// NewGuard sizes the window to cover window seconds at rate ticks per second.
func NewGuard(window, rate, threshold float64) *Guard {
	capacity := int(math.Round(window * rate))
	if capacity < 1 {
		capacity = 1
	}
	return &Guard{
		buf:       make([]float64, capacity),
		Threshold: threshold,
	}
}

func (g *Guard) Cap() int   { return len(g.buf) }
func (g *Guard) Len() int   { return g.size }
func (g *Guard) Full() bool { return g.size == len(g.buf) }

// Push appends a sample, evicting the oldest when full.
func (g *Guard) Push(err float64) {
	idx := (g.head + g.size) % len(g.buf)
	if g.Full() {
		g.buf[g.head] = err
		g.head = (g.head + 1) % len(g.buf)
		return
	}
	g.buf[idx] = err
	g.size++
}

// Oldest returns the oldest retained sample.
func (g *Guard) Oldest() (float64, bool) {
	if g.size == 0 {
		return 0, false
	}
	return g.buf[g.head], true
}

// Stalled compares the oldest sample against current. It never fires before
// the window has filled.
func (g *Guard) Stalled(current float64) bool {
	if !g.Full() {
		return false
	}
	oldest, _ := g.Oldest()
	return oldest-current < g.Threshold
}

func (g *Guard) Reset() {
	g.head = 0
	g.size = 0
}
