package storage

import "github.com/san-kum/pushctl/internal/metrics"

// TickLog collects every tick of a trial for Save. It satisfies
// trial.Observer.
type TickLog struct {
	Rows []metrics.TickInfo
}

func (l *TickLog) OnTick(info metrics.TickInfo) {
	info.Obs = info.Obs.Clone()
	l.Rows = append(l.Rows, info)
}
