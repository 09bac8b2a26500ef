package analysis

import (
	"github.com/san-kum/orbitsim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Separation returns |r_i - r_j| at every stored state.
func Separation(traj *dynamo.Trajectory, i, j int) []float64 {
	out := make([]float64, traj.Len())
	for k, x := range traj.States {
		out[k] = r3.Norm(r3.Sub(x.Position(i), x.Position(j)))
	}
	return out
}

// RelativePath returns the positions of body i in a frame centred on body ref.
func RelativePath(traj *dynamo.Trajectory, i, ref int) []r3.Vec {
	out := make([]r3.Vec, traj.Len())
	for k, x := range traj.States {
		out[k] = r3.Sub(x.Position(i), x.Position(ref))
	}
	return out
}

// Apsides returns the smallest and largest separation between bodies i and j.
func Apsides(traj *dynamo.Trajectory, i, j int) (periapsis, apoapsis float64) {
	sep := Separation(traj, i, j)
	if len(sep) == 0 {
		return 0, 0
	}
	return floats.Min(sep), floats.Max(sep)
}
