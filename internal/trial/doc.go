// Package trial runs one push attempt: the per-trial context that owns the
// controller, recorder and metrics, and the loop that ticks it.
//
// A tick is: observation → error → sampling and finish bookkeeping →
// success check → timeout check → controller dispatch → environment step.
// Rendering happens every RenderEvery ticks and never feeds back into
// control.
package trial
