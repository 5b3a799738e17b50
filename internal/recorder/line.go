package recorder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/san-kum/pushctl/internal/task"
)

// ErrMalformedLine indicates a log line that is not a trial record.
var ErrMalformedLine = errors.New("recorder: malformed line")

// Format renders the canonical log line:
//
//	impl,trial,total,status,finish,1s:err,2s:err,...
//
// Times use two decimals, errors three; a missing finish time is "NaN".
// Sampling runs before the timeout check, so a timed-out trial can end with a
// sample at the timeout boundary itself (30s:... for a 30 s budget).
func Format(r TrialRecord) string {
	var b strings.Builder
	b.WriteString(r.Impl)
	fmt.Fprintf(&b, ",%d,%.2f,%s,", r.Trial, r.Total, r.Status)
	if r.Finished {
		fmt.Fprintf(&b, "%.2f", r.Finish)
	} else {
		b.WriteString("NaN")
	}
	for _, s := range r.Samples {
		fmt.Fprintf(&b, ",%ss:%.3f", strconv.FormatFloat(s.At, 'f', -1, 64), s.Error)
	}
	return b.String()
}

// ParseLine reads a canonical line, or a legacy one with finish time
// before status.
func ParseLine(line string) (TrialRecord, error) {
	f := strings.Split(strings.TrimSpace(line), ",")
	if len(f) < 5 {
		return TrialRecord{}, fmt.Errorf("%w: %d fields", ErrMalformedLine, len(f))
	}
	var (
		rec TrialRecord
		err error
	)
	rec.Impl = f[0]
	if rec.Trial, err = strconv.Atoi(f[1]); err != nil {
		return TrialRecord{}, fmt.Errorf("%w: trial %q", ErrMalformedLine, f[1])
	}
	if rec.Total, err = strconv.ParseFloat(f[2], 64); err != nil {
		return TrialRecord{}, fmt.Errorf("%w: total %q", ErrMalformedLine, f[2])
	}

	statusField, finishField := f[3], f[4]
	if _, err := task.ParseStatus(statusField); err != nil {
		statusField, finishField = f[4], f[3]
	}
	if rec.Status, err = task.ParseStatus(statusField); err != nil {
		return TrialRecord{}, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}
	if finishField != "NaN" {
		if rec.Finish, err = strconv.ParseFloat(finishField, 64); err != nil {
			return TrialRecord{}, fmt.Errorf("%w: finish %q", ErrMalformedLine, finishField)
		}
		rec.Finished = true
	}

	for _, cell := range f[5:] {
		at, e, ok := strings.Cut(cell, "s:")
		if !ok {
			return TrialRecord{}, fmt.Errorf("%w: sample %q", ErrMalformedLine, cell)
		}
		var s Sample
		if s.At, err = strconv.ParseFloat(at, 64); err != nil {
			return TrialRecord{}, fmt.Errorf("%w: sample %q", ErrMalformedLine, cell)
		}
		if s.Error, err = strconv.ParseFloat(e, 64); err != nil {
			return TrialRecord{}, fmt.Errorf("%w: sample %q", ErrMalformedLine, cell)
		}
		rec.Samples = append(rec.Samples, s)
	}
	return rec, nil
}
