package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/pushctl/internal/automation"
	"github.com/san-kum/pushctl/internal/experiment"
	"github.com/san-kum/pushctl/internal/logging"
	"github.com/san-kum/pushctl/internal/optim"
	"github.com/san-kum/pushctl/internal/recorder"
	"github.com/san-kum/pushctl/internal/storage"
	"github.com/san-kum/pushctl/internal/trial"
	"github.com/san-kum/pushctl/internal/viz"
)

func runTrial(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signalContext()
	defer stop()

	out, err := newExperiment(cfg, log).Run(ctx, cfg, save && keepTicks)
	if err != nil {
		return err
	}
	fmt.Println(recorder.Format(out.Record))

	if save {
		runID, err := storage.New(dataDir).Save(out.StorageRun())
		if err != nil {
			return err
		}
		log.Infow("saved run", "id", runID)
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signalContext()
	defer stop()

	st := storage.New(dataDir)
	var saveErr error
	outcomes, err := newExperiment(cfg, log).Batch(ctx, cfg, trials, workers, save, func(o experiment.Outcome) {
		fmt.Println(recorder.Format(o.Record))
		if save && saveErr == nil {
			_, saveErr = st.Save(o.StorageRun())
		}
	})
	if err != nil {
		return err
	}
	if saveErr != nil {
		return saveErr
	}

	s := experiment.Summarize(outcomes)
	log.Infow("batch done",
		"trials", s.Trials, "success", s.Success, "timeout", s.Timeout, "failure", s.Failure,
		"mean_total", s.MeanTotal, "median_finish", s.MedianFinish)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	// Log output would tear the alternate screen.
	exp := experiment.New(experiment.NewRegistry(), experiment.WithLogger(logging.Nop()))
	title := fmt.Sprintf("%s trial %d", cfg.Variant, cfg.Trial)
	return viz.Run(ctx, title, cfg.Rate, func() (*trial.Trial, error) { return exp.Build(cfg) })
}

func runCampaign(cmd *cobra.Command, args []string) error {
	campaign, err := automation.LoadCampaign(args[0])
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signalContext()
	defer stop()

	opts := []experiment.Option{experiment.WithLogger(log)}
	if !realtime {
		opts = append(opts, experiment.WithSimulatedTime())
	}
	exp := experiment.New(experiment.NewRegistry(), opts...)

	results, err := automation.RunCampaign(ctx, campaign, exp, storage.New(dataDir), log,
		func(step string, o experiment.Outcome) { fmt.Println(recorder.Format(o.Record)) })
	for _, r := range results {
		log.Infow("step summary", "step", r.Step,
			"success_rate", r.Summary.SuccessRate, "mean_total", r.Summary.MeanTotal, "saved", len(r.RunIDs))
	}
	return err
}

// parseAxis reads path=v1,v2,...
func parseAxis(s string) (string, []float64, error) {
	path, list, ok := strings.Cut(s, "=")
	if !ok || path == "" || list == "" {
		return "", nil, fmt.Errorf("bad --param %q, want path=v1,v2,...", s)
	}
	var values []float64
	for _, f := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("--param %s: %w", path, err)
		}
		values = append(values, v)
	}
	return path, values, nil
}

func formatParams(p map[string]float64) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, p[k])
	}
	return strings.Join(parts, " ")
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	names := make([]string, len(params))
	ranges := make([][]float64, len(params))
	for i, p := range params {
		if names[i], ranges[i], err = parseAxis(p); err != nil {
			return err
		}
	}
	grid, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}
	grid.Trials, grid.Workers = gridTrials, workers

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signalContext()
	defer stop()

	best, _, err := grid.Search(ctx, cfg, newExperiment(cfg, log), func(p optim.Point) {
		fmt.Printf("%s score=%.3f success=%d/%d\n", formatParams(p.Params), p.Score, p.Summary.Success, p.Summary.Trials)
	})
	if err != nil {
		return err
	}
	fmt.Printf("best: %s score=%.3f\n", formatParams(best.Params), best.Score)
	return nil
}
