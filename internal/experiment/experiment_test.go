package experiment

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/san-kum/orbitsim/internal/config"
	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/metrics"
)

func shortScenario(t *testing.T, reg *Registry, name string) *config.Config {
	t.Helper()
	cfg, err := reg.GetScenario(name)
	if err != nil {
		t.Fatal(err)
	}
	cfg.FinalTime = 8880
	cfg.Dt = 60
	cfg.BaselineDt = 10
	cfg.SweepDts = []float64{240, 120, 60}
	return cfg
}

func TestRegistryScenarios(t *testing.T) {
	reg := NewRegistry()

	for _, name := range reg.ListScenarios() {
		if _, err := reg.GetScenario(name); err != nil {
			t.Errorf("scenario %s: %v", name, err)
		}
	}

	if _, err := reg.GetScenario("pluto"); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
	if _, err := reg.GetIntegrator("verlet"); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
	if len(reg.ListIntegrators()) != 5 {
		t.Errorf("expected 5 integrators, got %v", reg.ListIntegrators())
	}
}

func TestRegistryLoadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	cfg := config.GetPreset("mars-sun")
	cfg.Name = "custom"
	if err := config.Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry()
	loaded, err := reg.GetScenario(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Name != "custom" || len(loaded.Bodies) != 3 {
		t.Errorf("unexpected scenario %+v", loaded)
	}
}

func TestRegistryRegister(t *testing.T) {
	reg := NewRegistry()
	reg.Register("tiny", func() *config.Config {
		cfg := config.DefaultConfig()
		cfg.Name = "tiny"
		return cfg
	})
	cfg, err := reg.GetScenario("tiny")
	if err != nil || cfg.Name != "tiny" {
		t.Errorf("registered scenario not found: %v", err)
	}
}

func TestRunReportsMetrics(t *testing.T) {
	reg := NewRegistry()
	cfg := shortScenario(t, reg, "mars-2body")
	inst := metrics.NewInstrumentation()

	exp, err := New(reg, cfg, Options{Instrumentation: inst})
	if err != nil {
		t.Fatal(err)
	}

	report, err := exp.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	steps := int(8880/60) + 1
	if report.Trajectory.Len() != steps {
		t.Errorf("expected %d states, got %d", steps, report.Trajectory.Len())
	}
	for _, name := range []string{"energy_drift", "angular_momentum_drift", "radius_band"} {
		if _, ok := report.Metrics[name]; !ok {
			t.Errorf("missing metric %s", name)
		}
	}
	if drift := report.Metrics["energy_drift"]; drift > 1e-6 {
		t.Errorf("energy drift %g", drift)
	}

	if got := testutil.ToFloat64(inst.Steps("yoshida")); got != float64(steps-1) {
		t.Errorf("steps_total = %g, want %d", got, steps-1)
	}
	if got := testutil.ToFloat64(inst.ForceEvaluations()); got != float64(3*(steps-1)) {
		t.Errorf("force_evaluations_total = %g, want %d", got, 3*(steps-1))
	}
}

func TestRunWithoutMars(t *testing.T) {
	reg := NewRegistry()
	reg.Register("pair", func() *config.Config {
		cfg := config.DefaultConfig()
		cfg.Name = "pair"
		cfg.Bodies[1].Name = "planet"
		return cfg
	})
	cfg := shortScenario(t, reg, "pair")

	exp, err := New(reg, cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	report, err := exp.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := report.Metrics["radius_band"]; ok {
		t.Error("radius band should need a satellite and mars")
	}
}

func TestNewRejectsBadScenario(t *testing.T) {
	reg := NewRegistry()

	cfg := config.DefaultConfig()
	cfg.Integrator = "adams"
	if _, err := New(reg, cfg, Options{}); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("unknown integrator: expected ErrInvalidParameter, got %v", err)
	}

	cfg = config.DefaultConfig()
	cfg.Dt = 0
	if _, err := New(reg, cfg, Options{}); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("zero dt: expected ErrInvalidParameter, got %v", err)
	}
}

func TestMemoryGuard(t *testing.T) {
	reg := NewRegistry()
	cfg := shortScenario(t, reg, "mars-all")

	exp, err := New(reg, cfg, Options{MaxBytes: 1024})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := exp.Run(context.Background()); !errors.Is(err, dynamo.ErrTrajectoryTooLarge) {
		t.Errorf("expected ErrTrajectoryTooLarge, got %v", err)
	}

	visited := 0
	if err := exp.Stream(context.Background(), func(int, float64, dynamo.State) bool {
		visited++
		return true
	}); err != nil {
		t.Fatalf("stream should not be bounded: %v", err)
	}
	if want := int(cfg.FinalTime/cfg.Dt) + 1; visited != want {
		t.Errorf("visited %d states, want %d", visited, want)
	}
}

func TestEstimate(t *testing.T) {
	reg := NewRegistry()
	cfg := shortScenario(t, reg, "mars-2body")
	cfg.Integrator = "rk4"

	exp, err := New(reg, cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	res, err := exp.Estimate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Norm != dynamo.NormFullState {
		t.Errorf("rk4 should use the full state, got %v", res.Norm)
	}
	if res.Error <= 0 || res.Error > 1e-6 {
		t.Errorf("relative error %g out of range", res.Error)
	}
}

func TestSweepStudy(t *testing.T) {
	reg := NewRegistry()
	cfg := shortScenario(t, reg, "mars-2body")

	exp, err := New(reg, cfg, Options{Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	study, err := exp.Sweep(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(study.Points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(study.Points))
	}
	if study.Meta.Norm != "positions" || study.Meta.Integrator != "yoshida" || study.Meta.Bodies != 2 {
		t.Errorf("unexpected metadata %+v", study.Meta)
	}
	if study.Meta.Order < 3.5 || study.Meta.Order > 4.5 {
		t.Errorf("observed order %g, want about 4", study.Meta.Order)
	}
}

func TestPropagateAtBaseline(t *testing.T) {
	reg := NewRegistry()
	cfg := shortScenario(t, reg, "mars-2body")

	exp, err := New(reg, cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	traj, err := exp.Propagate(context.Background(), cfg.BaselineDt)
	if err != nil {
		t.Fatal(err)
	}
	if want := int(cfg.FinalTime/cfg.BaselineDt) + 1; traj.Len() != want {
		t.Errorf("got %d states, want %d", traj.Len(), want)
	}
	if traj.Dt != cfg.BaselineDt {
		t.Errorf("trajectory dt %g, want %g", traj.Dt, cfg.BaselineDt)
	}
}
