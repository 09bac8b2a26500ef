package convergence

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/logging"
	"github.com/san-kum/orbitsim/internal/sim"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// Estimator measures how far a run at some step size lands from a run at a
// finer baseline step.
type Estimator struct {
	Logger log.Logger

	// Norm selects the compared slice of the final state. NormDefault uses
	// the stepper's convention: positions for symplectic compositions, the
	// full state for Runge-Kutta and Euler.
	Norm dynamo.ErrorNorm

	// Strict turns the baseline-not-finer warning into an error.
	Strict bool

	// Workers bounds concurrent propagations in a sweep. Zero means GOMAXPROCS.
	Workers int

	// Config supplies ValidateState for every run. FinalTime and Dt are set
	// per call.
	Config sim.Config
}

// Result is one relative final-state error measurement.
type Result struct {
	Dt         float64
	BaselineDt float64
	Norm       dynamo.ErrorNorm
	Error      float64

	// Horizon and BaselineHorizon are the times each run actually reached.
	Horizon         float64
	BaselineHorizon float64

	Final    dynamo.State
	Baseline dynamo.State

	// Warnings holds non-fatal conditions that make the number suspect.
	Warnings []error
}

func (e *Estimator) logger() log.Logger { return logging.OrNop(e.Logger) }

func (e *Estimator) norm(stepper dynamo.Stepper) dynamo.ErrorNorm {
	if e.Norm != dynamo.NormDefault {
		return e.Norm
	}
	return stepper.DefaultNorm()
}

func (e *Estimator) workers() int {
	if e.Workers > 0 {
		return e.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (e *Estimator) config(finalTime, dt float64) sim.Config {
	cfg := e.Config
	cfg.FinalTime = finalTime
	cfg.Dt = dt
	return cfg
}

// RelativeFinalStateError integrates x0 to finalTime at dt and at dtBaseline
// and returns |x_dt - x_base| / |x_base| over the selected slice. The two runs
// are independent and execute concurrently.
func (e *Estimator) RelativeFinalStateError(ctx context.Context, sys dynamo.System, stepper dynamo.Stepper, x0 dynamo.State, finalTime, dt, dtBaseline float64) (*Result, error) {
	warnings, err := e.checkSteps(finalTime, dt, dtBaseline)
	if err != nil {
		return nil, err
	}

	var final, baseline dynamo.State
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		final, err = sim.FinalState(gctx, sys, stepper, x0, e.config(finalTime, dt))
		return err
	})
	g.Go(func() error {
		var err error
		baseline, err = sim.FinalState(gctx, sys, stepper, x0, e.config(finalTime, dtBaseline))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res, err := e.compare(stepper, final, baseline, finalTime, dt, dtBaseline)
	if err != nil {
		return nil, err
	}
	res.Warnings = append(warnings, res.Warnings...)
	return res, nil
}

// Point is one entry of a step-size sweep.
type Point struct {
	Dt       float64
	Error    float64
	Horizon  float64
	Warnings []error
}

// Sweep evaluates the relative error for each step in dts against a single
// baseline run. Points are returned in the order given.
func (e *Estimator) Sweep(ctx context.Context, sys dynamo.System, stepper dynamo.Stepper, x0 dynamo.State, finalTime float64, dts []float64, dtBaseline float64) ([]Point, error) {
	if len(dts) == 0 {
		return nil, dynamo.Invalid("sweep needs at least one step size")
	}

	logger := log.With(e.logger(), "integrator", stepper.Name())

	baseline, err := sim.FinalState(ctx, sys, stepper, x0, e.config(finalTime, dtBaseline))
	if err != nil {
		return nil, fmt.Errorf("baseline run at dt=%g: %w", dtBaseline, err)
	}
	level.Debug(logger).Log("msg", "baseline done", "dt", dtBaseline, "steps", e.config(finalTime, dtBaseline).Steps())

	points := make([]Point, len(dts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())

	for i, dt := range dts {
		i, dt := i, dt
		g.Go(func() error {
			warnings, err := e.checkSteps(finalTime, dt, dtBaseline)
			if err != nil {
				return err
			}

			final, err := sim.FinalState(gctx, sys, stepper, x0, e.config(finalTime, dt))
			if err != nil {
				return fmt.Errorf("run at dt=%g: %w", dt, err)
			}

			res, err := e.compare(stepper, final, baseline, finalTime, dt, dtBaseline)
			if err != nil {
				return err
			}
			points[i] = Point{
				Dt:       dt,
				Error:    res.Error,
				Horizon:  res.Horizon,
				Warnings: append(warnings, res.Warnings...),
			}
			level.Debug(logger).Log("msg", "sweep point", "dt", dt, "error", res.Error)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

// checkSteps validates the step pair and reports the ambiguity warning.
func (e *Estimator) checkSteps(finalTime, dt, dtBaseline float64) ([]error, error) {
	for _, v := range []float64{finalTime, dt, dtBaseline} {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, dynamo.Invalid("final time and steps must be positive and finite, got T=%g dt=%g baseline=%g", finalTime, dt, dtBaseline)
		}
	}

	if dtBaseline < dt {
		return nil, nil
	}

	warn := fmt.Errorf("%w: baseline dt=%g, tested dt=%g", dynamo.ErrBaselineNotFiner, dtBaseline, dt)
	if e.Strict {
		return nil, warn
	}
	level.Warn(e.logger()).Log("msg", "baseline step is not finer than tested step", "dt", dt, "baseline_dt", dtBaseline)
	return []error{warn}, nil
}

func (e *Estimator) compare(stepper dynamo.Stepper, final, baseline dynamo.State, finalTime, dt, dtBaseline float64) (*Result, error) {
	norm := e.norm(stepper)
	a, b := Slice(final, norm), Slice(baseline, norm)

	base := floats.Norm(b, 2)
	if base == 0 {
		return nil, dynamo.Invalid("baseline final state has zero %s norm", norm)
	}

	res := &Result{
		Dt:              dt,
		BaselineDt:      dtBaseline,
		Norm:            norm,
		Error:           floats.Distance(a, b, 2) / base,
		Horizon:         e.config(finalTime, dt).Horizon(),
		BaselineHorizon: e.config(finalTime, dtBaseline).Horizon(),
		Final:           final,
		Baseline:        baseline,
	}

	if math.Abs(res.Horizon-res.BaselineHorizon) > 1e-9*finalTime {
		level.Warn(e.logger()).Log("msg", "runs end at different times", "dt", dt, "horizon", res.Horizon, "baseline_horizon", res.BaselineHorizon)
		res.Warnings = append(res.Warnings, fmt.Errorf("%w: dt=%g reaches t=%g, baseline reaches t=%g",
			dynamo.ErrHorizonMismatch, dt, res.Horizon, res.BaselineHorizon))
	}

	return res, nil
}

// Slice returns the part of x compared under norm. NormDefault compares the
// full state.
func Slice(x dynamo.State, norm dynamo.ErrorNorm) []float64 {
	if norm == dynamo.NormPositions {
		return x.Positions()
	}
	return x
}
