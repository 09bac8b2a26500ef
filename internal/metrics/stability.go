package metrics

import (
	"math"

	"github.com/san-kum/orbitsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// RadiusBand measures how far the distance between two bodies strays from its
// initial value, as a fraction of that value. A circular orbit should keep it
// near zero.
type RadiusBand struct {
	body, ref int
	r0        float64
	min, max  float64
	samples   int
}

func NewRadiusBand(body, ref int) *RadiusBand {
	return &RadiusBand{body: body, ref: ref}
}

func (r *RadiusBand) Name() string { return "radius_band" }

func (r *RadiusBand) OnStep(k int, t float64, x dynamo.State) {
	d := r3.Norm(r3.Sub(x.Position(r.body), x.Position(r.ref)))
	if r.samples == 0 {
		r.r0, r.min, r.max = d, d, d
	}
	r.samples++
	r.min = math.Min(r.min, d)
	r.max = math.Max(r.max, d)
}

// Value is max(|r - r0|) / r0 over the observed states.
func (r *RadiusBand) Value() float64 {
	if r.samples == 0 || r.r0 == 0 {
		return 0
	}
	return math.Max(r.max-r.r0, r.r0-r.min) / r.r0
}

// Range returns the smallest and largest observed separation.
func (r *RadiusBand) Range() (lo, hi float64) { return r.min, r.max }

func (r *RadiusBand) Reset() {
	r.r0, r.min, r.max = 0, 0, 0
	r.samples = 0
}
