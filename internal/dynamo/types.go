package dynamo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// RowLen is the number of scalars per body: position then velocity.
const RowLen = 6

// State holds n bodies row-major, each row [rx, ry, rz, vx, vy, vz].
// A Derivative uses the same layout with [vx, vy, vz, ax, ay, az].
type State []float64

// NewState builds a state with exactly one row per body.
func NewState(rows ...[RowLen]float64) State {
	s := make(State, 0, len(rows)*RowLen)
	for _, r := range rows {
		s = append(s, r[:]...)
	}
	return s
}

// Zero returns an all-zero state for n bodies.
func Zero(n int) State {
	return make(State, n*RowLen)
}

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

// Bodies returns the number of rows in s.
func (s State) Bodies() int {
	return len(s) / RowLen
}

// Body returns a view of row i. Writes through the view modify s.
func (s State) Body(i int) []float64 {
	return s[i*RowLen : (i+1)*RowLen : (i+1)*RowLen]
}

func (s State) Position(i int) r3.Vec {
	b := s.Body(i)
	return r3.Vec{X: b[0], Y: b[1], Z: b[2]}
}

func (s State) Velocity(i int) r3.Vec {
	b := s.Body(i)
	return r3.Vec{X: b[3], Y: b[4], Z: b[5]}
}

// SetPosition overwrites the position part of row i.
func (s State) SetPosition(i int, p r3.Vec) {
	b := s.Body(i)
	b[0], b[1], b[2] = p.X, p.Y, p.Z
}

// SetVelocity overwrites the velocity part of row i.
func (s State) SetVelocity(i int, v r3.Vec) {
	b := s.Body(i)
	b[3], b[4], b[5] = v.X, v.Y, v.Z
}

// Positions copies the position columns of every body into a 3n vector.
func (s State) Positions() []float64 {
	n := s.Bodies()
	out := make([]float64, 0, n*3)
	for i := 0; i < n; i++ {
		out = append(out, s.Body(i)[:3]...)
	}
	return out
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Equal reports exact element-wise equality.
func (s State) Equal(other State) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// System is the right-hand side of the equations of motion.
type System interface {
	Bodies() int
	Derive(x State) (State, error)
}

// Hamiltonian systems expose a conserved energy for drift checks.
type Hamiltonian interface {
	Energy(x State) float64
}

// ErrorNorm selects which slice of the final state the error estimator compares.
type ErrorNorm int

const (
	// NormDefault defers to the stepper's own convention.
	NormDefault ErrorNorm = iota
	NormPositions
	NormFullState
)

func (n ErrorNorm) String() string {
	switch n {
	case NormDefault:
		return "default"
	case NormPositions:
		return "positions"
	case NormFullState:
		return "full"
	default:
		return fmt.Sprintf("ErrorNorm(%d)", int(n))
	}
}

// ParseErrorNorm accepts "positions", "full" or "default".
func ParseErrorNorm(s string) (ErrorNorm, error) {
	switch s {
	case "", "default", "auto":
		return NormDefault, nil
	case "positions", "position", "pos":
		return NormPositions, nil
	case "full", "state":
		return NormFullState, nil
	}
	return 0, fmt.Errorf("%w: unknown error norm %q", ErrInvalidParameter, s)
}

// Stepper advances a full state by one fixed increment.
// Implementations must return a freshly allocated state and never modify x.
type Stepper interface {
	Name() string
	Order() int
	Evaluations() int
	DefaultNorm() ErrorNorm
	Step(sys System, x State, dt float64) (State, error)
}

// Observer is notified of every stored state of a trajectory.
type Observer interface {
	OnStep(k int, t float64, x State)
}

type Metric interface {
	Observer
	Name() string
	Value() float64
	Reset()
}
