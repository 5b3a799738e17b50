package experiment

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/pushctl/internal/task"
)

// Summary aggregates a batch of outcomes.
type Summary struct {
	Trials      int     `json:"trials"`
	Success     int     `json:"success"`
	Timeout     int     `json:"timeout"`
	Failure     int     `json:"failure"`
	SuccessRate float64 `json:"success_rate"`
	// MeanTotal and StdTotal cover successful trials only.
	MeanTotal float64 `json:"mean_total"`
	StdTotal  float64 `json:"std_total"`
	// Finished counts trials that reached the finish tolerance, whatever
	// their status. MedianFinish is NaN when none did.
	Finished     int     `json:"finished"`
	MedianFinish float64 `json:"median_finish"`
}

func Summarize(outcomes []Outcome) Summary {
	s := Summary{Trials: len(outcomes), MeanTotal: math.NaN(), StdTotal: math.NaN(), MedianFinish: math.NaN()}
	var totals, finishes []float64
	for _, o := range outcomes {
		switch o.Record.Status {
		case task.StatusSuccess:
			s.Success++
			totals = append(totals, o.Record.Total)
		case task.StatusTimeout:
			s.Timeout++
		case task.StatusFailure:
			s.Failure++
		}
		if o.Record.Finished {
			finishes = append(finishes, o.Record.Finish)
		}
	}
	s.Finished = len(finishes)
	if s.Trials > 0 {
		s.SuccessRate = float64(s.Success) / float64(s.Trials)
	}
	if len(totals) > 0 {
		s.MeanTotal, s.StdTotal = stat.MeanStdDev(totals, nil)
		if len(totals) == 1 {
			s.StdTotal = 0
		}
	}
	if len(finishes) > 0 {
		sort.Float64s(finishes)
		s.MedianFinish = stat.Quantile(0.5, stat.Empirical, finishes, nil)
	}
	return s
}
