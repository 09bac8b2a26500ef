package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/orbitsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// Gravitational constants for the two unit conventions in use.
// Never mix them: positions in km need GKilometers, positions in m need GMeters.
const (
	GKilometers = 6.67e-20 // km^3 kg^-1 s^-2
	GMeters     = 6.67e-11 // m^3 kg^-1 s^-2
)

// GravityFor maps a length unit ("km" or "m") to its gravitational constant.
func GravityFor(units string) (float64, error) {
	switch units {
	case "km", "kilometers":
		return GKilometers, nil
	case "m", "meters":
		return GMeters, nil
	}
	return 0, dynamo.Invalid("unknown length unit %q", units)
}

// NBody is the direct-summation Newtonian gravity model for any number of bodies.
// Masses are index-aligned with the rows of the state.
type NBody struct {
	Masses []float64
	G      float64
	// MinSeparation, when positive, fails the evaluation if any pair of bodies
	// is closer than this distance.
	MinSeparation float64
}

type Option func(*NBody)

// WithMinSeparation rejects states with any pairwise distance below eps.
func WithMinSeparation(eps float64) Option {
	return func(nb *NBody) { nb.MinSeparation = eps }
}

// NewNBody returns a gravity model over the given masses. The slice is copied.
func NewNBody(masses []float64, g float64, opts ...Option) (*NBody, error) {
	if len(masses) == 0 {
		return nil, dynamo.Invalid("mass list is empty")
	}
	for i, m := range masses {
		if m < 0 || math.IsNaN(m) || math.IsInf(m, 0) {
			return nil, dynamo.Invalid("mass %d is %g", i, m)
		}
	}
	if g <= 0 || math.IsInf(g, 0) || math.IsNaN(g) {
		return nil, dynamo.Invalid("gravitational constant must be positive and finite, got %g", g)
	}

	nb := &NBody{
		Masses: append([]float64(nil), masses...),
		G:      g,
	}
	for _, opt := range opts {
		opt(nb)
	}
	if nb.MinSeparation < 0 {
		return nil, dynamo.Invalid("minimum separation must be non-negative, got %g", nb.MinSeparation)
	}
	return nb, nil
}

func (nb *NBody) Bodies() int { return len(nb.Masses) }

// Derive returns [v, a] for every body.
func (nb *NBody) Derive(x dynamo.State) (dynamo.State, error) {
	n := nb.Bodies()
	if len(x) != n*dynamo.RowLen {
		return nil, dynamo.Invalid("state has %d values, want %d for %d bodies", len(x), n*dynamo.RowLen, n)
	}

	acc, err := nb.Accelerations(x)
	if err != nil {
		return nil, err
	}

	dx := make(dynamo.State, len(x))
	for i := 0; i < n; i++ {
		row := x.Body(i)
		d := dx.Body(i)
		d[0], d[1], d[2] = row[3], row[4], row[5]
		d[3], d[4], d[5] = acc[i].X, acc[i].Y, acc[i].Z
	}
	return dx, nil
}

// Accelerations sums G m_j (r_j - r_i) / |r_j - r_i|^3 over j != i.
// A single body gets exactly zero.
func (nb *NBody) Accelerations(x dynamo.State) ([]r3.Vec, error) {
	n := nb.Bodies()
	acc := make([]r3.Vec, n)
	minSep2 := nb.MinSeparation * nb.MinSeparation

	for i := 0; i < n; i++ {
		ri := x.Position(i)

		for j := i + 1; j < n; j++ {
			rij := r3.Sub(x.Position(j), ri)
			d2 := r3.Norm2(rij)

			if d2 == 0 || (minSep2 > 0 && d2 < minSep2) {
				return nil, &dynamo.SimulationError{
					Bodies:  [2]int{i, j},
					Wrapped: fmt.Errorf("%w: separation %g", dynamo.ErrDivergentState, math.Sqrt(d2)),
				}
			}

			r3Inv := 1.0 / (d2 * math.Sqrt(d2))

			acc[i] = r3.Add(acc[i], r3.Scale(nb.G*nb.Masses[j]*r3Inv, rij))
			acc[j] = r3.Sub(acc[j], r3.Scale(nb.G*nb.Masses[i]*r3Inv, rij))
		}
	}

	for i, a := range acc {
		if !finite(a) {
			return nil, &dynamo.SimulationError{
				Bodies:  [2]int{i, i},
				Wrapped: fmt.Errorf("%w: acceleration of body %d is %v", dynamo.ErrDivergentState, i, a),
			}
		}
	}

	return acc, nil
}

// Energy returns kinetic plus pairwise potential energy.
func (nb *NBody) Energy(x dynamo.State) float64 {
	n := nb.Bodies()
	ke := 0.0
	pe := 0.0

	for i := 0; i < n; i++ {
		ke += 0.5 * nb.Masses[i] * r3.Norm2(x.Velocity(i))

		for j := i + 1; j < n; j++ {
			r := r3.Norm(r3.Sub(x.Position(j), x.Position(i)))
			pe -= nb.G * nb.Masses[i] * nb.Masses[j] / r
		}
	}

	return ke + pe
}

func (nb *NBody) Momentum(x dynamo.State) r3.Vec {
	var p r3.Vec
	for i, m := range nb.Masses {
		p = r3.Add(p, r3.Scale(m, x.Velocity(i)))
	}
	return p
}

func (nb *NBody) AngularMomentum(x dynamo.State) r3.Vec {
	var L r3.Vec
	for i, m := range nb.Masses {
		L = r3.Add(L, r3.Scale(m, r3.Cross(x.Position(i), x.Velocity(i))))
	}
	return L
}

func finite(v r3.Vec) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
