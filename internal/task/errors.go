package task

import "errors"

var (
	// ErrInvalidObservation indicates NaN or Inf in an observed position.
	ErrInvalidObservation = errors.New("task: invalid observation")

	// ErrActionLayout indicates an action dimension or gripper index that
	// cannot hold a position delta and a gripper command.
	ErrActionLayout = errors.New("task: invalid action layout")

	// ErrSolverFailed ends a trial with status failure after the predictive
	// controller could not produce a usable command.
	ErrSolverFailed = errors.New("task: solver failed")

	// ErrNotStarted indicates a tick before the trial was reset.
	ErrNotStarted = errors.New("task: trial not started")
)
