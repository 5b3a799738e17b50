package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"

	"github.com/san-kum/pushctl/internal/config"
	"github.com/san-kum/pushctl/internal/controller"
	"github.com/san-kum/pushctl/internal/metrics"
	"github.com/san-kum/pushctl/internal/recorder"
	"github.com/san-kum/pushctl/internal/task"
)

func testRun() Run {
	log := &TickLog{}
	for i := 0; i < 3; i++ {
		log.OnTick(metrics.TickInfo{
			Tick:    i,
			Elapsed: float64(i) / 60,
			Obs: task.Observation{
				Object:      r3.Vector{X: 0.01 * float64(i), Z: 0.83},
				EndEffector: r3.Vector{X: -0.05, Z: 0.832},
			},
			Error:            task.ErrorState{Magnitude: 0.18 - 0.01*float64(i)},
			Delta:            r3.Vector{X: 0.1},
			Phase:            controller.PhaseMPC,
			Contact:          0.5,
			SolverIterations: 25,
		})
	}
	return Run{
		Record: recorder.TrialRecord{
			Impl: "push_mpc", Trial: 2, Total: 12.5, Status: task.StatusSuccess,
			Finished: true, Finish: 12.1,
			Samples: []recorder.Sample{{At: 1, Error: 0.17}, {At: 2, Error: 0.12}},
		},
		Config:  config.DefaultConfig(config.VariantMPC),
		Metrics: map[string]float64{"contact_ratio": 0.75},
		Ticks:   log.Rows,
	}
}

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(testRun())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(runID, "push_mpc_2_") || len(runID) != len("push_mpc_2_")+8 {
		t.Errorf("unexpected run id %q", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Status != task.StatusSuccess || meta.Variant != "mpc" || meta.Ticks != 3 {
		t.Errorf("metadata %+v", meta)
	}
	if meta.Metrics["contact_ratio"] != 0.75 {
		t.Errorf("expected contact_ratio 0.75, got %f", meta.Metrics["contact_ratio"])
	}
	if meta.Line != "push_mpc,2,12.50,success,12.10,1s:0.170,2s:0.120" {
		t.Errorf("line %q", meta.Line)
	}

	samples, err := st.LoadSamples(runID)
	if err != nil {
		t.Fatalf("load samples failed: %v", err)
	}
	if len(samples) != 2 || samples[1].At != 2 || samples[1].Error != 0.12 {
		t.Errorf("samples %v", samples)
	}
	if got := recorder.Format(meta.Record(samples)); got != meta.Line {
		t.Errorf("rebuilt record formats as %q", got)
	}

	ticks, err := st.LoadTicks(runID)
	if err != nil {
		t.Fatalf("load ticks failed: %v", err)
	}
	if len(ticks) != 3 {
		t.Fatalf("expected 3 ticks, got %d", len(ticks))
	}
	if ticks[2].Phase != "mpc" || ticks[2].Object[0] != 0.02 || ticks[2].Solver != 25 {
		t.Errorf("tick row %+v", ticks[2])
	}

	cfg, err := st.LoadConfig(runID)
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if cfg.Task.Timeout != 30 {
		t.Errorf("config snapshot timeout %v", cfg.Task.Timeout)
	}
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := st.Save(testRun()); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	os.MkdirAll(filepath.Join(tmpDir, "junk"), 0755)

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)
	st.Init()

	run := testRun()
	run.Config = nil
	runID, err := st.Save(run)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	for _, name := range []string{"metadata.json", "samples.csv", "ticks.csv"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
	if _, err := os.Stat(filepath.Join(runDir, "config.yaml")); !os.IsNotExist(err) {
		t.Error("config.yaml written without a config")
	}
}

func TestLoadUnknownRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	run := testRun()
	run.Record.Finished = false
	if err := ExportJSON(&buf, run.Record, run.Metrics); err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["status"] != "success" || got["finish"] != nil {
		t.Errorf("export %v", got)
	}
}
