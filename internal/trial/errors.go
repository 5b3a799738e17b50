package trial

import "fmt"

// TickError wraps an error that aborted a trial with the tick's context.
type TickError struct {
	Tick    int
	Elapsed float64
	Phase   string
	Wrapped error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("trial: tick %d (%.2fs, %s): %v", e.Tick, e.Elapsed, e.Phase, e.Wrapped)
}

func (e *TickError) Unwrap() error {
	return e.Wrapped
}
