package sim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/orbitsim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// DefaultMaxBytes bounds a materialized trajectory at 2 GiB.
const DefaultMaxBytes = 2 << 30

type Config struct {
	FinalTime float64
	Dt        float64
	// MaxBytes caps the estimated size of a materialized trajectory.
	// Zero means DefaultMaxBytes; negative disables the check.
	MaxBytes int64
	// ValidateState fails the run on the first non-finite state.
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		FinalTime:     88642,
		Dt:            15,
		MaxBytes:      DefaultMaxBytes,
		ValidateState: true,
	}
}

// Steps returns K = floor(T/dt) + 1, the number of stored states.
func (c Config) Steps() int {
	return int(c.FinalTime/c.Dt) + 1
}

// Horizon is the time actually reached by integration, (K-1)*dt. It can fall
// short of FinalTime when dt does not divide it.
func (c Config) Horizon() float64 {
	return float64(c.Steps()-1) * c.Dt
}

// EstimatedBytes is the payload size of a trajectory of n-value states.
func (c Config) EstimatedBytes(n int) int64 {
	return int64(c.Steps()) * int64(n+1) * 8
}

func (c Config) Validate() error {
	if math.IsNaN(c.Dt) || math.IsInf(c.Dt, 0) || c.Dt <= 0 {
		return dynamo.Invalid("dt must be positive and finite, got %g", c.Dt)
	}
	if math.IsNaN(c.FinalTime) || math.IsInf(c.FinalTime, 0) || c.FinalTime <= 0 {
		return dynamo.Invalid("final time must be positive and finite, got %g", c.FinalTime)
	}
	if c.FinalTime/c.Dt >= math.MaxInt32 {
		return dynamo.Invalid("final time %g over dt %g needs too many steps", c.FinalTime, c.Dt)
	}
	return nil
}

func validateInputs(sys dynamo.System, x0 dynamo.State, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(x0) == 0 {
		return dynamo.Invalid("initial state is empty")
	}
	if len(x0)%dynamo.RowLen != 0 {
		return dynamo.Invalid("initial state length %d is not a multiple of %d", len(x0), dynamo.RowLen)
	}
	if x0.Bodies() != sys.Bodies() {
		return dynamo.Invalid("initial state has %d bodies, system has %d masses", x0.Bodies(), sys.Bodies())
	}
	if !x0.IsValid() {
		return dynamo.Invalid("initial state contains NaN or Inf")
	}
	return nil
}

// Times returns k uniformly spaced values from 0 to T inclusive.
func Times(k int, finalTime float64) []float64 {
	times := make([]float64, k)
	if k == 1 {
		return times
	}
	floats.Span(times, 0, finalTime)
	times[k-1] = finalTime
	return times
}

type Simulator struct {
	dyn       dynamo.System
	stepper   dynamo.Stepper
	observers []dynamo.Observer
}

func New(dyn dynamo.System, stepper dynamo.Stepper) *Simulator {
	return &Simulator{
		dyn:       dyn,
		stepper:   stepper,
		observers: make([]dynamo.Observer, 0),
	}
}

func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

// Run materializes the full trajectory of K states. States[0] is a copy of x0.
// Either every state is produced or an error is returned with no trajectory.
func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, cfg Config) (*dynamo.Trajectory, error) {
	if err := validateInputs(s.dyn, x0, cfg); err != nil {
		return nil, err
	}

	maxBytes := cfg.MaxBytes
	if maxBytes == 0 {
		maxBytes = DefaultMaxBytes
	}
	if size := cfg.EstimatedBytes(len(x0)); maxBytes > 0 && size > maxBytes {
		return nil, fmt.Errorf("%w: %d steps need ~%d bytes, limit %d", dynamo.ErrTrajectoryTooLarge, cfg.Steps(), size, maxBytes)
	}

	steps := cfg.Steps()
	traj := &dynamo.Trajectory{
		States: make([]dynamo.State, 0, steps),
		Times:  Times(steps, cfg.FinalTime),
		Dt:     cfg.Dt,
	}

	err := s.walk(ctx, x0, cfg, func(k int, t float64, x dynamo.State) bool {
		traj.States = append(traj.States, x)
		return true
	})
	if err != nil {
		return nil, err
	}

	return traj, nil
}

// Stream visits the same K states as Run without keeping them. fn returning
// false stops early without error. States passed to fn are never reused.
func (s *Simulator) Stream(ctx context.Context, x0 dynamo.State, cfg Config, fn func(k int, t float64, x dynamo.State) bool) error {
	if err := validateInputs(s.dyn, x0, cfg); err != nil {
		return err
	}
	return s.walk(ctx, x0, cfg, fn)
}

func (s *Simulator) walk(ctx context.Context, x0 dynamo.State, cfg Config, fn func(k int, t float64, x dynamo.State) bool) error {
	steps := cfg.Steps()
	span := cfg.FinalTime / float64(max(steps-1, 1))

	x := x0.Clone()
	if !s.emit(0, 0, x, fn) {
		return nil
	}

	for k := 1; k < steps; k++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		newX, err := s.stepper.Step(s.dyn, x, cfg.Dt)
		if err != nil {
			return located(err, k, float64(k-1)*cfg.Dt)
		}

		if cfg.ValidateState && !newX.IsValid() {
			return &dynamo.SimulationError{Step: k, Time: float64(k) * cfg.Dt, Wrapped: dynamo.ErrDivergentState}
		}

		x = newX
		t := span * float64(k)
		if k == steps-1 {
			t = cfg.FinalTime
		}
		if !s.emit(k, t, x, fn) {
			return nil
		}
	}

	return nil
}

func (s *Simulator) emit(k int, t float64, x dynamo.State, fn func(int, float64, dynamo.State) bool) bool {
	for _, obs := range s.observers {
		obs.OnStep(k, t, x)
	}
	return fn(k, t, x)
}

// located stamps the step and time onto err, keeping any body pair the
// force model already recorded.
func located(err error, step int, t float64) error {
	var simErr *dynamo.SimulationError
	if errors.As(err, &simErr) {
		stamped := *simErr
		stamped.Step, stamped.Time = step, t
		return &stamped
	}
	return &dynamo.SimulationError{Step: step, Time: t, Wrapped: err}
}

// Propagate integrates x0 over cfg with the given stepper and returns the full trajectory.
func Propagate(ctx context.Context, sys dynamo.System, stepper dynamo.Stepper, x0 dynamo.State, cfg Config) (*dynamo.Trajectory, error) {
	return New(sys, stepper).Run(ctx, x0, cfg)
}

// Stream is the non-materializing counterpart of Propagate.
func Stream(ctx context.Context, sys dynamo.System, stepper dynamo.Stepper, x0 dynamo.State, cfg Config, fn func(k int, t float64, x dynamo.State) bool) error {
	return New(sys, stepper).Stream(ctx, x0, cfg, fn)
}

// FinalState returns only the last of the K states, in constant memory.
func FinalState(ctx context.Context, sys dynamo.System, stepper dynamo.Stepper, x0 dynamo.State, cfg Config) (dynamo.State, error) {
	var last dynamo.State
	err := Stream(ctx, sys, stepper, x0, cfg, func(_ int, _ float64, x dynamo.State) bool {
		last = x
		return true
	})
	if err != nil {
		return nil, err
	}
	return last, nil
}
