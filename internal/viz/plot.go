package viz

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/orbitsim/internal/convergence"
)

// LineChart plots a series in the terminal, thinned to width points.
func LineChart(series []float64, caption string, width, height int) string {
	if len(series) < 2 {
		return ""
	}
	return asciigraph.Plot(Downsample(series, width),
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption))
}

// ErrorChart plots log10(error) against the sweep steps in the given order.
func ErrorChart(points []convergence.Point, height int) string {
	logs := make([]float64, 0, len(points))
	for _, p := range points {
		if p.Error > 0 {
			logs = append(logs, math.Log10(p.Error))
		}
	}
	if len(logs) < 2 {
		return ""
	}
	return asciigraph.Plot(logs,
		asciigraph.Height(height),
		asciigraph.Caption(fmt.Sprintf("log10 relative error, dt %g .. %g", points[0].Dt, points[len(points)-1].Dt)))
}

// Downsample keeps at most n evenly spaced values, always including the last.
func Downsample(series []float64, n int) []float64 {
	if n <= 1 || len(series) <= n {
		return series
	}
	out := make([]float64, n)
	stride := float64(len(series)-1) / float64(n-1)
	for i := range out {
		out[i] = series[int(math.Round(float64(i)*stride))]
	}
	return out
}
