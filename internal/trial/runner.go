package trial

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/san-kum/pushctl/internal/recorder"
)

// Runner drives trials to completion.
type Runner struct {
	// Rate paces ticks at this frequency when positive; otherwise the loop
	// runs as fast as the environment steps.
	Rate  float64
	Clock clock.Clock
}

func NewRunner(rate float64) *Runner {
	return &Runner{Rate: rate, Clock: clock.New()}
}

// Run starts t, ticks it until done and closes it.
func (r *Runner) Run(ctx context.Context, t *Trial) (recorder.TrialRecord, error) {
	defer t.Close()

	if err := t.Start(ctx); err != nil {
		return recorder.TrialRecord{}, err
	}

	var pace <-chan time.Time
	if r.Rate > 0 {
		clk := r.Clock
		if clk == nil {
			clk = clock.New()
		}
		ticker := clk.Ticker(time.Duration(float64(time.Second) / r.Rate))
		defer ticker.Stop()
		pace = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return recorder.TrialRecord{}, ctx.Err()
		default:
		}

		done, err := t.Tick(ctx)
		if err != nil {
			return recorder.TrialRecord{}, err
		}
		if done {
			rec, _ := t.Record()
			return rec, nil
		}

		if pace != nil {
			select {
			case <-ctx.Done():
				return recorder.TrialRecord{}, ctx.Err()
			case <-pace:
			}
		}
	}
}

// BuildFunc constructs the trial with the given index.
type BuildFunc func(index int) (*Trial, error)

// Batch runs n trials starting at index first. Trials share no state; with
// workers > 1 they run concurrently, which also shares the machine's wall
// clock between them.
type Batch struct {
	Runner  *Runner
	Workers int
	// Emit receives each finished trial and its record.
	Emit func(*Trial, recorder.TrialRecord)
}

func (b *Batch) Run(ctx context.Context, first, n int, build BuildFunc) ([]recorder.TrialRecord, error) {
	records := make([]recorder.TrialRecord, n)
	errs := make([]error, n)

	var emitMu sync.Mutex
	runOne := func(i int) {
		t, err := build(first + i)
		if err != nil {
			errs[i] = fmt.Errorf("trial %d: %w", first+i, err)
			return
		}
		records[i], errs[i] = b.Runner.Run(ctx, t)
		if errs[i] == nil && b.Emit != nil {
			emitMu.Lock()
			b.Emit(t, records[i])
			emitMu.Unlock()
		}
	}

	if b.Workers <= 1 {
		for i := 0; i < n; i++ {
			runOne(i)
			if errs[i] != nil {
				return records[:i], errs[i]
			}
		}
		return records, nil
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < b.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				runOne(i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}
