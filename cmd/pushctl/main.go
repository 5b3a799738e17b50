package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pushctl/internal/config"
	"github.com/san-kum/pushctl/internal/experiment"
	"github.com/san-kum/pushctl/internal/logging"
	"github.com/san-kum/pushctl/internal/viz"
)

var (
	dataDir    string
	logLevel   string
	configFile string
	variant    string
	preset     string
	trialIndex int
	realtime   bool
	timeout    float64
	overrides  []string
	save       bool
	keepTicks  bool
	trials     int
	gridTrials int
	workers    int
	jsonOut    bool
	params     []string
	svgSize    int
)

// main registers the commands and exits with status 1 on error. With no
// subcommand it opens the interactive preset picker.
func main() {
	rootCmd := &cobra.Command{
		Use:           "pushctl",
		Short:         "closed-loop push controller",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()
			exp := experiment.New(experiment.NewRegistry(), experiment.WithLogger(logging.Nop()))
			return viz.RunInteractive(ctx, exp)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".pushctl", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run one trial and print its record line",
		RunE:  runTrial,
	}
	addTrialFlags(runCmd)
	runCmd.Flags().BoolVar(&save, "save", false, "save the run to the data directory")
	runCmd.Flags().BoolVar(&keepTicks, "ticks", true, "save per-tick rows with the run")

	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "run consecutive trials and print one record line each",
		RunE:  runBatch,
	}
	addTrialFlags(batchCmd)
	batchCmd.Flags().IntVar(&trials, "trials", 10, "number of trials")
	batchCmd.Flags().IntVar(&workers, "workers", 1, "concurrent trials")
	batchCmd.Flags().BoolVar(&save, "save", false, "save every run")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run one trial with live visualization",
		RunE:  runLive,
	}
	addTrialFlags(liveCmd)

	campaignCmd := &cobra.Command{
		Use:   "campaign [file]",
		Short: "run the batches listed in a campaign file",
		Args:  cobra.ExactArgs(1),
		RunE:  runCampaign,
	}
	campaignCmd.Flags().BoolVar(&realtime, "realtime", false, "pace trials at the control rate")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "grid search over config parameters",
		RunE:  runSweep,
	}
	addTrialFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&params, "param", nil, "grid axis as path=v1,v2,... (repeatable)")
	sweepCmd.Flags().IntVar(&gridTrials, "trials", 3, "trials per grid point")
	sweepCmd.Flags().IntVar(&workers, "workers", 1, "concurrent trials")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().BoolVar(&jsonOut, "json", false, "print as JSON")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id] [file]",
		Short: "draw a saved run from above as SVG",
		Args:  cobra.ExactArgs(2),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().IntVar(&svgSize, "size", 600, "image size in pixels")

	configCmd := &cobra.Command{
		Use:   "config [file]",
		Short: "print the resolved config, or write it to file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showConfig,
	}
	addTrialFlags(configCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list presets per variant",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, v := range experiment.NewRegistry().ListVariants() {
				fmt.Printf("%s: %s\n", v, strings.Join(config.ListPresets(v), ", "))
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, batchCmd, liveCmd, campaignCmd, sweepCmd, listCmd, showCmd, plotCmd, exportSVGCmd, configCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addTrialFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&variant, "variant", config.VariantMPC, "controller variant (pid|mpc)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().IntVar(&trialIndex, "trial", 0, "trial index")
	cmd.Flags().BoolVar(&realtime, "realtime", false, "pace ticks at the control rate on the wall clock")
	cmd.Flags().Float64Var(&timeout, "timeout", 0, "trial timeout in seconds")
	cmd.Flags().StringArrayVar(&overrides, "set", nil, "override a config value as path=value (repeatable)")
}

// resolveConfig builds the config from --config or --preset or the variant
// defaults, then applies explicitly set flags.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if cmd.Flags().Changed("variant") && loaded.Variant != variant {
			return nil, fmt.Errorf("config %s is for variant %q, not %q", configFile, loaded.Variant, variant)
		}
		cfg = loaded
	case preset != "":
		cfg = config.GetPreset(variant, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(variant))
		}
	default:
		cfg = config.DefaultConfig(variant)
	}

	if cmd.Flags().Changed("trial") {
		cfg.Trial = trialIndex
	}
	if cmd.Flags().Changed("realtime") {
		cfg.Realtime = realtime
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Task.Timeout = timeout
	}

	values, err := parseOverrides(overrides)
	if err != nil {
		return nil, err
	}
	if cfg, err = cfg.Override(values); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// parseOverrides reads path=value pairs; values are decoded as YAML scalars.
func parseOverrides(pairs []string) (map[string]any, error) {
	values := make(map[string]any, len(pairs))
	for _, p := range pairs {
		path, raw, ok := strings.Cut(p, "=")
		if !ok || path == "" {
			return nil, fmt.Errorf("bad override %q, want path=value", p)
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("override %s: %w", path, err)
		}
		values[path] = v
	}
	return values, nil
}

func newLogger() (*zap.SugaredLogger, error) {
	return logging.New("pushctl", logLevel)
}

// newExperiment uses simulated time unless the config asks for real-time
// pacing.
func newExperiment(cfg *config.Config, log *zap.SugaredLogger) *experiment.Experiment {
	opts := []experiment.Option{experiment.WithLogger(log)}
	if !cfg.Realtime {
		opts = append(opts, experiment.WithSimulatedTime())
	}
	return experiment.New(experiment.NewRegistry(), opts...)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
