// Package automation runs scripted batches of convergence studies.
package automation

import (
	"context"
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/san-kum/orbitsim/internal/config"
	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/experiment"
	"github.com/san-kum/orbitsim/internal/logging"
	"github.com/san-kum/orbitsim/internal/storage"
	"gopkg.in/yaml.v3"
)

// Plan is a named list of studies, usually read from yaml:
//
//	name: yoshida-vs-rk4
//	studies:
//	  - scenario: mars-2body
//	    integrator: yoshida
//	    sweep_dts: [100, 250, 500]
//	  - scenario: mars-2body
//	    integrator: rk4
type Plan struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Studies     []Study `yaml:"studies"`
}

// Study overrides a scenario for one sweep. Zero fields keep the scenario's value.
type Study struct {
	Scenario   string    `yaml:"scenario"`
	Integrator string    `yaml:"integrator"`
	FinalTime  float64   `yaml:"final_time"`
	BaselineDt float64   `yaml:"baseline_dt"`
	SweepDts   []float64 `yaml:"sweep_dts,flow"`
	Norm       string    `yaml:"norm"`
}

func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(plan.Studies) == 0 {
		return nil, dynamo.Invalid("plan %s has no studies", path)
	}
	return &plan, nil
}

// Apply returns a copy of cfg with the study's overrides.
func (s Study) Apply(cfg *config.Config) *config.Config {
	out := cfg.Clone()
	if s.Integrator != "" {
		out.Integrator = s.Integrator
	}
	if s.FinalTime != 0 {
		out.FinalTime = s.FinalTime
	}
	if s.BaselineDt != 0 {
		out.BaselineDt = s.BaselineDt
	}
	if len(s.SweepDts) > 0 {
		out.SweepDts = append([]float64(nil), s.SweepDts...)
	}
	return out
}

// Runner executes plans one study at a time. Each sweep still fans out over
// Options.Workers.
type Runner struct {
	Registry *experiment.Registry
	Options  experiment.Options
	// Store, when set, receives every finished study.
	Store  *storage.Store
	Logger log.Logger
}

// Run executes every study in order and stops at the first failure,
// returning the studies finished so far.
func (r *Runner) Run(ctx context.Context, plan *Plan) ([]*experiment.Study, error) {
	logger := log.With(logging.OrNop(r.Logger), "plan", plan.Name)
	done := make([]*experiment.Study, 0, len(plan.Studies))

	for i, s := range plan.Studies {
		study, err := r.runOne(ctx, s)
		if err != nil {
			return done, fmt.Errorf("study %d (%s): %w", i+1, s.Scenario, err)
		}
		level.Info(logger).Log("msg", "study done", "n", i+1, "of", len(plan.Studies),
			"scenario", study.Meta.Scenario, "integrator", study.Meta.Integrator, "order", study.Meta.Order, "id", study.Meta.ID)
		done = append(done, study)
	}
	return done, nil
}

func (r *Runner) runOne(ctx context.Context, s Study) (*experiment.Study, error) {
	base, err := r.Registry.GetScenario(s.Scenario)
	if err != nil {
		return nil, err
	}
	cfg := s.Apply(base)

	opts := r.Options
	if s.Norm != "" {
		if opts.Norm, err = dynamo.ParseErrorNorm(s.Norm); err != nil {
			return nil, err
		}
	}

	exp, err := experiment.New(r.Registry, cfg, opts)
	if err != nil {
		return nil, err
	}
	study, err := exp.Sweep(ctx)
	if err != nil {
		return nil, err
	}

	if r.Store != nil {
		id, err := r.Store.Save(study.Meta, study.Points)
		if err != nil {
			return nil, err
		}
		study.Meta.ID = id
	}
	return study, nil
}
