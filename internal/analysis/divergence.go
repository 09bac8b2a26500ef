package analysis

import (
	"math"

	"github.com/san-kum/orbitsim/internal/convergence"
	"github.com/san-kum/orbitsim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// Divergence compares a coarse trajectory with a finer reference over time.
// The coarse step must be an integer multiple of the reference step; entry k is
// the relative distance at coarse step k, measured over positions or the full
// state.
func Divergence(ref, coarse *dynamo.Trajectory, norm dynamo.ErrorNorm) ([]float64, error) {
	if ref.Dt <= 0 || coarse.Dt <= 0 {
		return nil, dynamo.Invalid("trajectories need positive steps")
	}
	ratio := coarse.Dt / ref.Dt
	stride := int(math.Round(ratio))
	if stride < 1 || math.Abs(ratio-float64(stride)) > 1e-9*ratio {
		return nil, dynamo.Invalid("coarse step %g is not a multiple of reference step %g", coarse.Dt, ref.Dt)
	}

	n := coarse.Len()
	if (n-1)*stride >= ref.Len() {
		n = (ref.Len()-1)/stride + 1
	}

	out := make([]float64, n)
	for k := 0; k < n; k++ {
		a, b := convergence.Slice(coarse.At(k), norm), convergence.Slice(ref.At(k*stride), norm)
		if len(a) != len(b) {
			return nil, dynamo.Invalid("state sizes differ: %d vs %d", len(a), len(b))
		}
		base := floats.Norm(b, 2)
		if base == 0 {
			return nil, dynamo.Invalid("reference state %d has zero norm", k*stride)
		}
		out[k] = floats.Distance(a, b, 2) / base
	}
	return out, nil
}
