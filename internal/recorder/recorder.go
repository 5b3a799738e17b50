// Package recorder keeps per-trial wall-clock bookkeeping: periodic error
// samples, the first-passage finish time and the final trial record.
package recorder

import (
	"math"

	"github.com/san-kum/pushctl/internal/task"
)

// Sample is the error magnitude recorded when elapsed time crossed At seconds.
type Sample struct {
	At    float64 `json:"at"`
	Error float64 `json:"error"`
}

// TrialRecord is the finalized outcome of one trial.
type TrialRecord struct {
	Impl     string      `json:"impl"`
	Trial    int         `json:"trial"`
	Total    float64     `json:"total"`
	Status   task.Status `json:"status"`
	Finished bool        `json:"finished"`
	Finish   float64     `json:"finish"`
	Samples  []Sample    `json:"samples"`
}

// FinishTime returns the first-passage time or NaN.
func (r TrialRecord) FinishTime() float64 {
	if !r.Finished {
		return math.NaN()
	}
	return r.Finish
}

// Recorder samples the error on every period boundary and remembers the
// first time it fell to the finish tolerance.
type Recorder struct {
	period    float64
	finishTol float64

	next     float64
	samples  []Sample
	finish   float64
	finished bool
	last     float64
}

func New(period, finishTol float64) *Recorder {
	if period <= 0 {
		period = 1
	}
	return &Recorder{period: period, finishTol: finishTol, next: period}
}

// Observe records one tick. A slow tick that crosses several boundaries
// appends one sample per boundary, all carrying the current error.
func (r *Recorder) Observe(elapsed, err float64) {
	r.last = elapsed
	for elapsed >= r.next {
		r.samples = append(r.samples, Sample{At: r.next, Error: err})
		r.next += r.period
	}
	if !r.finished && err <= r.finishTol {
		r.finish, r.finished = elapsed, true
	}
}

// FinishTime reports the first-passage time, if any.
func (r *Recorder) FinishTime() (float64, bool) { return r.finish, r.finished }

func (r *Recorder) Samples() []Sample { return r.samples }

// Elapsed is the time passed to the most recent Observe.
func (r *Recorder) Elapsed() float64 { return r.last }

// Finalize freezes the record.
func (r *Recorder) Finalize(impl string, trial int, total float64, status task.Status) TrialRecord {
	samples := make([]Sample, len(r.samples))
	copy(samples, r.samples)
	return TrialRecord{
		Impl:     impl,
		Trial:    trial,
		Total:    total,
		Status:   status,
		Finished: r.finished,
		Finish:   r.finish,
		Samples:  samples,
	}
}

func (r *Recorder) Reset() {
	r.next = r.period
	r.samples = nil
	r.finish, r.finished = 0, false
	r.last = 0
}
