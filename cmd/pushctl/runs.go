package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pushctl/internal/config"
	"github.com/san-kum/pushctl/internal/export"
	"github.com/san-kum/pushctl/internal/storage"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tIMPL\tTRIAL\tTIME\tSTATUS\tTOTAL\tFINISH")

	for _, run := range runs {
		finish := "NaN"
		if run.Finished {
			finish = fmt.Sprintf("%.2fs", run.Finish)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%.2fs\t%s\n",
			run.ID,
			run.Impl,
			run.Trial,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Status,
			run.Total,
			finish,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}
	rec := meta.Record(samples)

	if jsonOut {
		return storage.ExportJSON(os.Stdout, rec, meta.Metrics)
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("variant: %s\n", meta.Variant)
	fmt.Printf("saved: %s\n", meta.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("ticks: %d\n", meta.Ticks)
	fmt.Printf("line: %s\n", meta.Line)

	names := make([]string, 0, len(meta.Metrics))
	for k := range meta.Metrics {
		names = append(names, k)
	}
	sort.Strings(names)
	fmt.Println("\nmetrics:")
	for _, k := range names {
		fmt.Printf("  %s: %.6f\n", k, meta.Metrics[k])
	}
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	ticks, err := st.LoadTicks(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("line: %s\n\n", meta.Line)

	if len(ticks) == 0 {
		samples, err := st.LoadSamples(runID)
		if err != nil {
			return err
		}
		if len(samples) < 2 {
			return fmt.Errorf("no data to plot")
		}
		data := make([]float64, len(samples))
		for i, s := range samples {
			data[i] = s.Error
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("error (m) per sample period"),
		))
		return nil
	}

	series := []struct {
		caption string
		value   func(storage.TickRow) float64
	}{
		{"error (m)", func(r storage.TickRow) float64 { return r.Error }},
		{"contact force", func(r storage.TickRow) float64 { return r.Contact }},
		{"end-effector height (m)", func(r storage.TickRow) float64 { return r.Effector[2] }},
	}
	for _, s := range series {
		data := make([]float64, len(ticks))
		for i, r := range ticks {
			data[i] = s.value(r)
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		))
		fmt.Println()
	}
	return nil
}

func showConfig(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		if err := config.Save(args[0], cfg); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", args[0])
		return nil
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	runID, out := args[0], args[1]

	st := storage.New(dataDir)
	cfg, err := st.LoadConfig(runID)
	if err != nil {
		return err
	}
	ticks, err := st.LoadTicks(runID)
	if err != nil {
		return err
	}
	scene := export.SceneFromTicks(ticks, export.Point{X: cfg.Task.GoalOffsetX, Y: cfg.Task.GoalOffsetY})
	svg := scene.SVG(svgSize)
	if svg == "" {
		return fmt.Errorf("run %s has no saved ticks", runID)
	}
	if err := os.WriteFile(out, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", out)
	return nil
}
