// Package dynamo provides the core primitives for n-body integration.
//
// The package defines the shared types every other package builds on:
//
//   - [State]: n bodies row-major, six scalars per body (position, velocity)
//   - [System]: the equations of motion, dX/dt = f(X)
//   - [Stepper]: a fixed-step single-step integrator
//   - [Trajectory]: a materialized time history indexable by step and body
//   - [Observer] and [Metric]: per-step hooks used by the trajectory driver
//
// # Errors
//
// Validation failures wrap [ErrInvalidParameter]; numerical blow-ups wrap
// [ErrDivergentState] inside a [SimulationError] carrying the step and time.
// Use errors.Is to classify.
//
// # Aliasing
//
// States are plain slices. Steppers allocate a new State for every result and
// never write into their input, so a Trajectory's rows are never shared.
package dynamo
