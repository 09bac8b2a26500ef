package convergence

import (
	"math"

	"github.com/san-kum/orbitsim/internal/dynamo"
	"gonum.org/v1/gonum/stat"
)

// ObservedOrder fits log(error) = a + p*log(dt) by least squares and returns p.
// Points with a zero error are skipped; at least two distinct step sizes must
// remain.
func ObservedOrder(points []Point) (float64, error) {
	xs := make([]float64, 0, len(points))
	ys := make([]float64, 0, len(points))
	for _, p := range points {
		if p.Error <= 0 || p.Dt <= 0 {
			continue
		}
		xs = append(xs, math.Log(p.Dt))
		ys = append(ys, math.Log(p.Error))
	}

	if len(xs) < 2 {
		return 0, dynamo.Invalid("need two points with positive error, have %d", len(xs))
	}
	if stat.Variance(xs, nil) == 0 {
		return 0, dynamo.Invalid("all points share one step size")
	}

	_, slope := stat.LinearRegression(xs, ys, nil, false)
	return slope, nil
}

// Ratios returns error[i]/error[i+1] for consecutive points. Halving the step
// of a p-th order method should give ratios near 2^p.
func Ratios(points []Point) []float64 {
	if len(points) < 2 {
		return nil
	}
	out := make([]float64, len(points)-1)
	for i := range out {
		if points[i+1].Error == 0 {
			out[i] = math.Inf(1)
			continue
		}
		out[i] = points[i].Error / points[i+1].Error
	}
	return out
}
