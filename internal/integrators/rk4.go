package integrators

import (
	"github.com/san-kum/orbitsim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// RK4 is the classical four-stage Runge-Kutta method. The whole state,
// positions and velocities alike, advances through the same stages.
type RK4 struct{}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Name() string                  { return "rk4" }
func (r *RK4) Order() int                    { return 4 }
func (r *RK4) Evaluations() int              { return 4 }
func (r *RK4) DefaultNorm() dynamo.ErrorNorm { return dynamo.NormFullState }

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, dt float64) (dynamo.State, error) {
	n := len(x)

	k1, err := dyn.Derive(x)
	if err != nil {
		return nil, err
	}

	// Stage inputs are fresh buffers.
	k2, err := dyn.Derive(floats.AddScaledTo(make(dynamo.State, n), x, dt/2, k1))
	if err != nil {
		return nil, err
	}
	k3, err := dyn.Derive(floats.AddScaledTo(make(dynamo.State, n), x, dt/2, k2))
	if err != nil {
		return nil, err
	}
	k4, err := dyn.Derive(floats.AddScaledTo(make(dynamo.State, n), x, dt, k3))
	if err != nil {
		return nil, err
	}

	result := make(dynamo.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
	}
	return result, nil
}
