package automation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/orbitsim/internal/config"
	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/experiment"
	"github.com/san-kum/orbitsim/internal/storage"
)

const planYAML = `name: short
description: yoshida against rk4 on a short arc
studies:
  - scenario: mars-2body
    integrator: yoshida
    final_time: 8880
    baseline_dt: 10
    sweep_dts: [240, 120, 60]
  - scenario: mars-2body
    integrator: rk4
    final_time: 8880
    baseline_dt: 10
    sweep_dts: [240, 120]
    norm: positions
`

func writePlan(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPlan(t *testing.T) {
	plan, err := LoadPlan(writePlan(t, planYAML))
	if err != nil {
		t.Fatal(err)
	}
	if plan.Name != "short" || len(plan.Studies) != 2 {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if got := plan.Studies[0].SweepDts; len(got) != 3 || got[2] != 60 {
		t.Errorf("sweep steps %v", got)
	}

	if _, err := LoadPlan(writePlan(t, "name: empty\n")); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("empty plan: expected ErrInvalidParameter, got %v", err)
	}
	if _, err := LoadPlan(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestStudyApply(t *testing.T) {
	base := config.GetPreset("mars-moons")
	cfg := Study{Integrator: "rk4", SweepDts: []float64{30}}.Apply(base)

	if cfg.Integrator != "rk4" || len(cfg.SweepDts) != 1 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.FinalTime != base.FinalTime || cfg.BaselineDt != base.BaselineDt {
		t.Error("zero fields should keep the scenario values")
	}
	if base.Integrator == "rk4" {
		t.Error("Apply modified its input")
	}
}

func TestRunnerSavesStudies(t *testing.T) {
	plan, err := LoadPlan(writePlan(t, planYAML))
	if err != nil {
		t.Fatal(err)
	}
	st := storage.New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}

	r := &Runner{Registry: experiment.NewRegistry(), Options: experiment.Options{Workers: 2}, Store: st}
	studies, err := r.Run(context.Background(), plan)
	if err != nil {
		t.Fatal(err)
	}
	if len(studies) != 2 {
		t.Fatalf("ran %d studies, want 2", len(studies))
	}
	if studies[0].Meta.Order < 3.5 || studies[0].Meta.Order > 4.5 {
		t.Errorf("yoshida order %g", studies[0].Meta.Order)
	}
	if studies[1].Meta.Norm != "positions" || len(studies[1].Points) != 2 {
		t.Errorf("rk4 study %+v", studies[1].Meta)
	}

	saved, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 2 {
		t.Errorf("stored %d studies, want 2", len(saved))
	}
	for _, s := range studies {
		if s.Meta.ID == "" {
			t.Error("study id not filled in")
		}
	}
}

func TestRunnerStopsAtFailure(t *testing.T) {
	plan := &Plan{Name: "bad", Studies: []Study{
		{Scenario: "mars-2body", FinalTime: 8880, BaselineDt: 10, SweepDts: []float64{240, 120}},
		{Scenario: "venus"},
		{Scenario: "mars-2body"},
	}}

	r := &Runner{Registry: experiment.NewRegistry()}
	done, err := r.Run(context.Background(), plan)
	if !errors.Is(err, dynamo.ErrInvalidParameter) || !strings.Contains(err.Error(), "study 2") {
		t.Errorf("expected failure at study 2, got %v", err)
	}
	if len(done) != 1 {
		t.Errorf("expected 1 finished study, got %d", len(done))
	}
}
