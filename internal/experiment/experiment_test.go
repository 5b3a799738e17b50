package experiment

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/san-kum/pushctl/internal/config"
	"github.com/san-kum/pushctl/internal/controller"
	"github.com/san-kum/pushctl/internal/metrics"
	"github.com/san-kum/pushctl/internal/task"
	"github.com/san-kum/pushctl/internal/trial"
)

// simulated returns an experiment whose clock moves one control period per
// tick, so trials run in simulated wall time.
func simulated(rate float64) *Experiment {
	clk := clock.NewMock()
	period := time.Duration(float64(time.Second) / rate)
	return New(NewRegistry(),
		WithClock(clk),
		WithTrialOptions(trial.WithObserver(trial.ObserverFunc(func(metrics.TickInfo) {
			clk.Add(period)
		}))),
	)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if got := r.ListVariants(); len(got) != 2 || got[0] != "mpc" || got[1] != "pid" {
		t.Errorf("variants %v", got)
	}
	if got := r.ListEnvs(); len(got) != 1 || got[0] != "kinematic" {
		t.Errorf("envs %v", got)
	}

	cfg := config.DefaultConfig(config.VariantMPC)
	ctrl, err := r.GetController(cfg, zap.NewNop().Sugar())
	if err != nil {
		t.Fatal(err)
	}
	if ctrl.Name() != "push_mpc" {
		t.Errorf("name %q", ctrl.Name())
	}
	cfg.Variant = "lqr"
	if _, err := r.GetController(cfg, nil); err == nil {
		t.Error("expected error for unknown variant")
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig(config.VariantPID)
	cfg.Rate = 0
	if _, err := New(NewRegistry()).Build(cfg); err == nil {
		t.Error("expected validation error")
	}
}

func checkTicks(t *testing.T, cfg *config.Config, ticks []metrics.TickInfo) {
	t.Helper()
	lim := cfg.Limits()
	for _, info := range ticks {
		if !lim.Within(info.Delta) {
			t.Fatalf("tick %d: delta %v exceeds limits", info.Tick, info.Delta)
		}
	}
	first, last := ticks[0].Obs.Object, ticks[len(ticks)-1].Obs.Object
	if moved := last.Sub(first).Norm(); moved < 0.01 {
		t.Errorf("object moved only %.4f m", moved)
	}
}

func TestPusherInReferenceScene(t *testing.T) {
	cfg := config.DefaultConfig(config.VariantPID)
	cfg.Task.Timeout = 60
	out, err := simulated(cfg.Rate).Run(context.Background(), cfg, true)
	if err != nil {
		t.Fatal(err)
	}
	if out.Record.Status == task.StatusFailure {
		t.Fatalf("unexpected failure: %+v", out.Record)
	}
	if out.Record.Impl != "push_pid" || len(out.Ticks) == 0 {
		t.Fatalf("record %+v with %d ticks", out.Record, len(out.Ticks))
	}
	if out.Metrics["ticks_push"] == 0 || out.Metrics["contact_ratio"] == 0 {
		t.Errorf("never pushed: %v", out.Metrics)
	}
	checkTicks(t, cfg, out.Ticks)
}

func TestPredictiveInReferenceScene(t *testing.T) {
	cfg := config.DefaultConfig(config.VariantMPC)
	out, err := simulated(cfg.Rate).Run(context.Background(), cfg, true)
	if err != nil {
		t.Fatal(err)
	}
	if out.Record.Impl != "push_mpc" {
		t.Fatalf("record %+v", out.Record)
	}
	if out.Metrics["ticks_mpc"] == 0 || out.Metrics["solver_iterations"] == 0 {
		t.Errorf("never tracked with the solver: %v", out.Metrics)
	}
	var sawSeekBeforeMPC bool
	for i := 1; i < len(out.Ticks); i++ {
		if out.Ticks[i].Phase == controller.PhaseMPC && out.Ticks[i-1].Phase == controller.PhaseSeek {
			sawSeekBeforeMPC = true
			if out.Ticks[i].Contact <= cfg.MPC.ContactThreshold {
				t.Errorf("entered mpc at tick %d without contact", out.Ticks[i].Tick)
			}
		}
	}
	if !sawSeekBeforeMPC {
		t.Error("mpc never entered from seek")
	}
	checkTicks(t, cfg, out.Ticks)
}

func TestBatchNumbersTrials(t *testing.T) {
	cfg := config.DefaultConfig(config.VariantPID)
	cfg.Task.Timeout = 2
	cfg.Trial = 10

	var seen []int
	outs, err := simulated(cfg.Rate).Batch(context.Background(), cfg, 3, 1, false, func(o Outcome) {
		seen = append(seen, o.Record.Trial)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(outs) != 3 || len(seen) != 3 {
		t.Fatalf("got %d outcomes, %d emitted", len(outs), len(seen))
	}
	for i, o := range outs {
		if o.Record.Trial != 10+i || o.Config.Trial != 10+i || seen[i] != 10+i {
			t.Errorf("slot %d: record %d config %d", i, o.Record.Trial, o.Config.Trial)
		}
		if o.Ticks != nil {
			t.Error("ticks kept without asking")
		}
	}
	if cfg.Trial != 10 {
		t.Error("batch mutated the base config")
	}
}

func TestSimulatedTimePerTrial(t *testing.T) {
	cfg := config.DefaultConfig(config.VariantPID)
	cfg.Task.Timeout = 1

	exp := New(NewRegistry(), WithSimulatedTime())
	outs, err := exp.Batch(context.Background(), cfg, 4, 4, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, o := range outs {
		if o.Record.Status != task.StatusTimeout {
			t.Errorf("trial %d: %v", o.Record.Trial, o.Record.Status)
		}
		// 61 periods of 1/60 s, whatever the other workers did.
		if o.Record.Total < 1 || o.Record.Total > 1.05 {
			t.Errorf("trial %d total %.3f", o.Record.Trial, o.Record.Total)
		}
	}
}
