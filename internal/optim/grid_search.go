// Package optim tunes controller parameters by exhaustive grid search over
// config paths.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/pushctl/internal/config"
	"github.com/san-kum/pushctl/internal/experiment"
	"github.com/san-kum/pushctl/internal/task"
)

// DefaultPenalty multiplies the timeout for trials that do not succeed.
const DefaultPenalty = 2.0

var ErrNoParams = errors.New("optim: grid has no parameters")

// Point is one evaluated grid cell.
type Point struct {
	Params  map[string]float64
	Summary experiment.Summary
	Score   float64
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64

	// Trials per point, numbered from the base config's trial.
	Trials  int
	Workers int
	// Penalty scales the timeout charged to timed out or failed trials.
	Penalty float64
}

// NewGridSearch searches the product of ranges; params are dotted config
// paths such as "pid.vmax".
func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) == 0 {
		return nil, ErrNoParams
	}
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d params but %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("optim: no values for %q", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges, Trials: 1, Penalty: DefaultPenalty}, nil
}

// Score is the mean charged time of a batch: total time for successes and
// Penalty times the timeout otherwise. Lower is better.
func (g *GridSearch) Score(cfg *config.Config, outcomes []experiment.Outcome) float64 {
	if len(outcomes) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for _, o := range outcomes {
		if o.Record.Status == task.StatusSuccess {
			sum += o.Record.Total
		} else {
			sum += g.Penalty * cfg.Task.Timeout
		}
	}
	return sum / float64(len(outcomes))
}

// Search evaluates every point and returns the best one along with all of
// them in grid order. Points whose config is invalid are skipped.
func (g *GridSearch) Search(
	ctx context.Context,
	base *config.Config,
	exp *experiment.Experiment,
	onPoint func(Point),
) (Point, []Point, error) {
	best := Point{Score: math.Inf(1)}
	var all []Point

	err := g.searchRecursive(ctx, 0, make(map[string]float64), base, exp, func(p Point) {
		all = append(all, p)
		if p.Score < best.Score {
			best = p
		}
		if onPoint != nil {
			onPoint(p)
		}
	})
	if err != nil {
		return best, all, err
	}
	if best.Params == nil {
		return best, all, errors.New("optim: no valid grid point")
	}
	return best, all, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	exp *experiment.Experiment,
	record func(Point),
) error {
	if depth == len(g.paramNames) {
		overrides := make(map[string]any, len(current))
		for k, v := range current {
			overrides[k] = v
		}
		cfg, err := base.Override(overrides)
		if err != nil {
			return err
		}
		if cfg.Validate() != nil {
			return nil
		}

		trials := g.Trials
		if trials <= 0 {
			trials = 1
		}
		outcomes, err := exp.Batch(ctx, cfg, trials, g.Workers, false, nil)
		if err != nil {
			return err
		}
		record(Point{
			Params:  current,
			Summary: experiment.Summarize(outcomes),
			Score:   g.Score(cfg, outcomes),
		})
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, base, exp, record); err != nil {
			return err
		}
	}
	return nil
}
