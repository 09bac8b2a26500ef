package integrators

import (
	"github.com/san-kum/orbitsim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// Euler is the explicit first-order method, kept as a convergence reference.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Name() string                  { return "euler" }
func (e *Euler) Order() int                    { return 1 }
func (e *Euler) Evaluations() int              { return 1 }
func (e *Euler) DefaultNorm() dynamo.ErrorNorm { return dynamo.NormFullState }

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, dt float64) (dynamo.State, error) {
	dx, err := dyn.Derive(x)
	if err != nil {
		return nil, err
	}
	return floats.AddScaledTo(make(dynamo.State, len(x)), x, dt, dx), nil
}
