package integrators

import (
	"math"

	"github.com/san-kum/orbitsim/internal/dynamo"
)

// Yoshida fourth-order coefficients.
var (
	cbrt2 = math.Cbrt(2)

	yoshidaW0 = -cbrt2 / (2 - cbrt2)
	yoshidaW1 = 1 / (2 - cbrt2)

	yoshidaC = []float64{yoshidaW1 / 2, (yoshidaW0 + yoshidaW1) / 2, (yoshidaW0 + yoshidaW1) / 2, yoshidaW1 / 2}
	yoshidaD = []float64{yoshidaW1, yoshidaW0, yoshidaW1}
)

// Ruth third-order coefficients, drift first.
var (
	ruthC = []float64{1, -2.0 / 3.0, 2.0 / 3.0}
	ruthD = []float64{-1.0 / 24.0, 3.0 / 4.0, 7.0 / 24.0}
)

var (
	leapfrogC = []float64{0.5, 0.5}
	leapfrogD = []float64{1}
)

// Composition is a drift/kick splitting integrator. Stage i drifts positions
// by c[i]*v*dt and, when d[i] exists, kicks velocities by d[i]*a*dt with the
// acceleration evaluated at the drifted positions. len(c) is len(d) or len(d)+1;
// the extra coefficient is a trailing drift with no paired force evaluation.
type Composition struct {
	name  string
	order int
	c, d  []float64
}

// NewYoshida returns the fourth-order symmetric Yoshida composition:
// r1 v1 r2 v2 r3 v3 r4, three force evaluations per step.
func NewYoshida() *Composition {
	return &Composition{name: "yoshida", order: 4, c: yoshidaC, d: yoshidaD}
}

// NewRuth3 returns Ruth's third-order symplectic scheme, three evaluations per step.
func NewRuth3() *Composition {
	return &Composition{name: "ruth3", order: 3, c: ruthC, d: ruthD}
}

// NewLeapfrog returns drift-kick-drift leapfrog, one evaluation per step.
func NewLeapfrog() *Composition {
	return &Composition{name: "leapfrog", order: 2, c: leapfrogC, d: leapfrogD}
}

func (c *Composition) Name() string                  { return c.name }
func (c *Composition) Order() int                    { return c.order }
func (c *Composition) Evaluations() int              { return len(c.d) }
func (c *Composition) DefaultNorm() dynamo.ErrorNorm { return dynamo.NormPositions }

// Coefficients returns copies of the drift and kick coefficients.
func (c *Composition) Coefficients() (drift, kick []float64) {
	return append([]float64(nil), c.c...), append([]float64(nil), c.d...)
}

func (c *Composition) Step(dyn dynamo.System, x dynamo.State, dt float64) (dynamo.State, error) {
	n := x.Bodies()
	cur := x

	for i, ci := range c.c {
		next := cur.Clone()
		for b := 0; b < n; b++ {
			row := next.Body(b)
			row[0] += ci * row[3] * dt
			row[1] += ci * row[4] * dt
			row[2] += ci * row[5] * dt
		}

		if i < len(c.d) {
			dx, err := dyn.Derive(next)
			if err != nil {
				return nil, err
			}
			di := c.d[i]
			for b := 0; b < n; b++ {
				row := next.Body(b)
				acc := dx.Body(b)
				row[3] += di * acc[3] * dt
				row[4] += di * acc[4] * dt
				row[5] += di * acc[5] * dt
			}
		}

		cur = next
	}

	return cur, nil
}
