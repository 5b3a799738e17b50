// Package mpc implements the receding-horizon controller that regulates the
// pushed object's planar position.
//
// The object is modelled as a double integrator in each horizontal axis with
// state (position, velocity) and control acceleration, discretised with
// explicit Euler at a fixed timestep. The predicted states are eliminated
// (condensed) so each axis becomes a small box-constrained QP over the
// horizon's accelerations:
//
//	minimise   ½ aᵀPa + qᵀa
//	subject to l ≤ Aa ≤ u
//
// P and A depend only on [Params] and are factorised once by [NewProblem].
// A [Session] owns the factorisation together with the previous solution,
// rebinds the three per-tick parameters (initial position, initial velocity,
// goal) through [Session.Update] and re-solves with warm start through
// [Session.Solve]. Reusing the session every tick is a performance measure:
// nothing is shared between trials.
package mpc
