// Package controller sequences motion primitives with a phase state machine.
//
// Two variants share the same [Machine]:
//
//   - [Pusher]: approach → lower → push, with a proportional push and a stall
//     guard that forces a re-approach when the object stops moving
//   - [Predictive]: approach → lower → seek → mpc, re-engaging through
//     seek_lift whenever contact is lost during mpc
//
// Each tick the trial calls [Controller.Act] with the current observation and
// error; the controller returns a clipped position delta. Success and timeout
// are decided by the trial, not here.
package controller
