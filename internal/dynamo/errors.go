package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for integration.
var (
	// ErrInvalidParameter indicates a rejected input: non-positive T or dt,
	// mismatched body count and masses, or an empty state.
	ErrInvalidParameter = errors.New("dynamo: invalid parameter")

	// ErrTrajectoryTooLarge indicates the materialized trajectory would exceed the memory limit.
	ErrTrajectoryTooLarge = fmt.Errorf("%w: trajectory exceeds memory limit", ErrInvalidParameter)

	// ErrDivergentState indicates coincident bodies or a non-finite value during integration.
	ErrDivergentState = errors.New("dynamo: divergent state (singular separation, NaN or Inf)")

	// ErrBaselineNotFiner is the convergence ambiguity warning: the baseline step
	// is not smaller than the step under test.
	ErrBaselineNotFiner = errors.New("dynamo: baseline step is not finer than tested step")

	// ErrHorizonMismatch warns that two runs stopped at different integrated
	// times because a step does not divide the final time.
	ErrHorizonMismatch = errors.New("dynamo: compared runs end at different times")
)

// SimulationError wraps an error with integration context.
type SimulationError struct {
	Step    int
	Time    float64
	Bodies  [2]int
	Wrapped error
}

func (e *SimulationError) Error() string {
	if e.Bodies[0] != e.Bodies[1] {
		return fmt.Sprintf("step %d (t=%.4f) bodies %d/%d: %v", e.Step, e.Time, e.Bodies[0], e.Bodies[1], e.Wrapped)
	}
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// Invalid wraps ErrInvalidParameter with a formatted reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}
