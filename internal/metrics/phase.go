package metrics

import "github.com/san-kum/pushctl/internal/controller"

// ContactRatio is the fraction of ticks with contact above threshold.
type ContactRatio struct {
	threshold float64
	contact   int
	samples   int
}

func NewContactRatio(threshold float64) *ContactRatio {
	return &ContactRatio{threshold: threshold}
}

func (c *ContactRatio) Name() string { return "contact_ratio" }

func (c *ContactRatio) Observe(info TickInfo) {
	c.samples++
	if info.Contact > c.threshold {
		c.contact++
	}
}

func (c *ContactRatio) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return float64(c.contact) / float64(c.samples)
}

func (c *ContactRatio) Reset() { c.contact, c.samples = 0, 0 }

// Reapproaches counts ticks that fell back into approach.
type Reapproaches struct {
	count int
}

func NewReapproaches() *Reapproaches { return &Reapproaches{} }

func (r *Reapproaches) Name() string { return "reapproaches" }

func (r *Reapproaches) Observe(info TickInfo) {
	if info.Phase == controller.PhaseApproach && info.From != controller.PhaseApproach {
		r.count++
	}
}

func (r *Reapproaches) Value() float64 { return float64(r.count) }
func (r *Reapproaches) Reset()         { r.count = 0 }

// PhaseTicks counts ticks that ended in one phase.
type PhaseTicks struct {
	phase controller.Phase
	count int
}

func NewPhaseTicks(p controller.Phase) *PhaseTicks { return &PhaseTicks{phase: p} }

func (p *PhaseTicks) Name() string { return "ticks_" + p.phase.String() }

func (p *PhaseTicks) Observe(info TickInfo) {
	if info.Phase == p.phase {
		p.count++
	}
}

func (p *PhaseTicks) Value() float64 { return float64(p.count) }
func (p *PhaseTicks) Reset()         { p.count = 0 }
