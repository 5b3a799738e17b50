package metrics

// SolverIterations is the mean iteration count over ticks that solved.
type SolverIterations struct {
	sum    int
	solves int
}

func NewSolverIterations() *SolverIterations { return &SolverIterations{} }

func (s *SolverIterations) Name() string { return "solver_iterations" }

func (s *SolverIterations) Observe(info TickInfo) {
	if info.SolverIterations > 0 {
		s.sum += info.SolverIterations
		s.solves++
	}
}

func (s *SolverIterations) Value() float64 {
	if s.solves == 0 {
		return 0
	}
	return float64(s.sum) / float64(s.solves)
}

func (s *SolverIterations) Reset() { s.sum, s.solves = 0, 0 }

// FinalError is the error magnitude on the last observed tick.
type FinalError struct {
	last float64
}

func NewFinalError() *FinalError { return &FinalError{} }

func (f *FinalError) Name() string          { return "final_error" }
func (f *FinalError) Observe(info TickInfo) { f.last = info.Error.Magnitude }
func (f *FinalError) Value() float64        { return f.last }
func (f *FinalError) Reset()                { f.last = 0 }
