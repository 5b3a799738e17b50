package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/pushctl/internal/recorder"
)

type ExportData struct {
	Impl    string             `json:"impl"`
	Trial   int                `json:"trial"`
	Status  string             `json:"status"`
	Total   float64            `json:"total"`
	Finish  *float64           `json:"finish"`
	Line    string             `json:"line"`
	Samples []recorder.Sample  `json:"samples"`
	Metrics map[string]float64 `json:"metrics"`
}

// ExportJSON writes a self-contained summary of one trial.
func ExportJSON(w io.Writer, rec recorder.TrialRecord, metrics map[string]float64) error {
	data := ExportData{
		Impl:    rec.Impl,
		Trial:   rec.Trial,
		Status:  rec.Status.String(),
		Total:   rec.Total,
		Line:    recorder.Format(rec),
		Samples: rec.Samples,
		Metrics: metrics,
	}
	if rec.Finished {
		f := rec.Finish
		data.Finish = &f
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
