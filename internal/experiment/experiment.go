package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/san-kum/orbitsim/internal/config"
	"github.com/san-kum/orbitsim/internal/convergence"
	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/logging"
	"github.com/san-kum/orbitsim/internal/metrics"
	"github.com/san-kum/orbitsim/internal/physics"
	"github.com/san-kum/orbitsim/internal/sim"
	"github.com/san-kum/orbitsim/internal/storage"
)

type Options struct {
	Logger          log.Logger
	Instrumentation *metrics.Instrumentation
	MaxBytes        int64
	Workers         int
	Strict          bool
	Norm            dynamo.ErrorNorm
	MinSeparation   float64
}

// Experiment binds a scenario to a force model and stepper.
type Experiment struct {
	cfg     *config.Config
	nb      *physics.NBody
	sys     dynamo.System
	stepper dynamo.Stepper
	opts    Options
	logger  log.Logger
	reg     *Registry
}

func New(reg *Registry, cfg *config.Config, opts Options) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var physOpts []physics.Option
	if opts.MinSeparation > 0 {
		physOpts = append(physOpts, physics.WithMinSeparation(opts.MinSeparation))
	}
	nb, err := cfg.System(physOpts...)
	if err != nil {
		return nil, err
	}

	stepper, err := reg.GetIntegrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}

	e := &Experiment{
		cfg:     cfg,
		nb:      nb,
		sys:     nb,
		stepper: stepper,
		opts:    opts,
		reg:     reg,
		logger:  log.With(logging.OrNop(opts.Logger), "scenario", cfg.Name, "integrator", stepper.Name()),
	}
	if opts.Instrumentation != nil {
		e.sys = opts.Instrumentation.Instrument(nb)
	}
	return e, nil
}

func (e *Experiment) Config() *config.Config     { return e.cfg }
func (e *Experiment) Stepper() dynamo.Stepper    { return e.stepper }
func (e *Experiment) System() *physics.NBody     { return e.nb }
func (e *Experiment) InitialState() dynamo.State { return e.cfg.InitialState() }

func (e *Experiment) simConfig(dt float64) sim.Config {
	cfg := sim.DefaultConfig()
	cfg.FinalTime = e.cfg.FinalTime
	cfg.Dt = dt
	if e.opts.MaxBytes != 0 {
		cfg.MaxBytes = e.opts.MaxBytes
	}
	return cfg
}

// Report is the outcome of a single propagation.
type Report struct {
	Trajectory *dynamo.Trajectory
	Metrics    map[string]float64
	Elapsed    time.Duration
}

// Run propagates the scenario once at its dt with the default metrics attached.
func (e *Experiment) Run(ctx context.Context) (*Report, error) {
	driver := sim.New(e.sys, e.stepper)
	ms := e.reg.DefaultMetrics(e.cfg, e.nb)
	for _, m := range ms {
		driver.AddObserver(m)
	}
	if e.opts.Instrumentation != nil {
		driver.AddObserver(e.opts.Instrumentation.StepCounter(e.stepper.Name()))
	}

	cfg := e.simConfig(e.cfg.Dt)
	level.Info(e.logger).Log("msg", "propagating", "dt", cfg.Dt, "final_time", cfg.FinalTime, "steps", cfg.Steps())

	start := time.Now()
	var traj *dynamo.Trajectory
	run := func() error {
		var err error
		traj, err = driver.Run(ctx, e.InitialState(), cfg)
		return err
	}
	var err error
	if e.opts.Instrumentation != nil {
		err = e.opts.Instrumentation.Time(e.stepper.Name(), run)
	} else {
		err = run()
	}
	if err != nil {
		return nil, fmt.Errorf("%s with %s: %w", e.cfg.Name, e.stepper.Name(), err)
	}

	report := &Report{
		Trajectory: traj,
		Metrics:    make(map[string]float64, len(ms)),
		Elapsed:    time.Since(start),
	}
	for _, m := range ms {
		report.Metrics[m.Name()] = m.Value()
	}
	level.Debug(e.logger).Log("msg", "propagation done", "elapsed", report.Elapsed)
	return report, nil
}

// Propagate materializes the scenario at an arbitrary step, without metrics.
func (e *Experiment) Propagate(ctx context.Context, dt float64) (*dynamo.Trajectory, error) {
	return sim.Propagate(ctx, e.sys, e.stepper, e.InitialState(), e.simConfig(dt))
}

// Stream propagates without keeping the trajectory; see sim.Stream.
func (e *Experiment) Stream(ctx context.Context, fn func(k int, t float64, x dynamo.State) bool) error {
	return sim.Stream(ctx, e.sys, e.stepper, e.InitialState(), e.simConfig(e.cfg.Dt), fn)
}

func (e *Experiment) estimator() *convergence.Estimator {
	return &convergence.Estimator{
		Logger:  e.logger,
		Norm:    e.opts.Norm,
		Strict:  e.opts.Strict,
		Workers: e.opts.Workers,
		Config:  sim.DefaultConfig(),
	}
}

// Estimate compares the scenario's dt against its baseline dt.
func (e *Experiment) Estimate(ctx context.Context) (*convergence.Result, error) {
	return e.estimator().RelativeFinalStateError(ctx, e.sys, e.stepper, e.InitialState(), e.cfg.FinalTime, e.cfg.Dt, e.cfg.BaselineDt)
}

// Study is a finished step-size sweep ready to store or plot.
type Study struct {
	Meta   storage.StudyMetadata
	Points []convergence.Point
}

// Sweep runs the scenario's sweep steps against its baseline and fits the
// observed order when possible.
func (e *Experiment) Sweep(ctx context.Context) (*Study, error) {
	est := e.estimator()
	points, err := est.Sweep(ctx, e.sys, e.stepper, e.InitialState(), e.cfg.FinalTime, e.cfg.SweepDts, e.cfg.BaselineDt)
	if err != nil {
		return nil, err
	}

	norm := e.opts.Norm
	if norm == dynamo.NormDefault {
		norm = e.stepper.DefaultNorm()
	}

	study := &Study{
		Meta: storage.StudyMetadata{
			Scenario:   e.cfg.Name,
			Integrator: e.stepper.Name(),
			Norm:       norm.String(),
			Bodies:     len(e.cfg.Bodies),
			FinalTime:  e.cfg.FinalTime,
			BaselineDt: e.cfg.BaselineDt,
		},
		Points: points,
	}

	if order, err := convergence.ObservedOrder(points); err == nil {
		study.Meta.Order = order
	} else {
		level.Warn(e.logger).Log("msg", "cannot fit observed order", "err", err)
	}
	return study, nil
}
