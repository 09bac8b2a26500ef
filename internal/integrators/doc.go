// Package integrators provides fixed-step single-step integrators.
//
// All steppers implement [dynamo.Stepper]. They are stateless and safe to
// share between goroutines; every call allocates the states it returns.
//
//   - [NewYoshida]: fourth-order symmetric composition, 3 force evaluations
//   - [NewRK4]: classical Runge-Kutta, 4 force evaluations
//   - [NewRuth3]: third-order symplectic composition, 3 force evaluations
//   - [NewLeapfrog]: second-order drift-kick-drift, 1 force evaluation
//   - [NewEuler]: first-order explicit Euler, 1 force evaluation
//
// The composition family assumes the [dynamo.State] row layout and only
// drifts positions and kicks velocities; RK4 and Euler treat the state as a
// flat vector.
package integrators
