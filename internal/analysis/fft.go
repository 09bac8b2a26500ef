package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/san-kum/orbitsim/internal/dynamo"
	"gonum.org/v1/gonum/stat"
)

// PowerSpectrum returns the one-sided magnitude spectrum of data with its mean
// removed. Bin b corresponds to b cycles over the whole series.
func PowerSpectrum(data []float64) []float64 {
	mean := stat.Mean(data, nil)
	centred := make([]float64, len(data))
	for i, v := range data {
		centred[i] = v - mean
	}

	spectrum := fft.FFTReal(centred)
	ps := make([]float64, len(spectrum)/2+1)
	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}
	return ps
}

// DominantPeriod estimates the period of the strongest oscillation in a
// uniformly sampled series. The peak bin is refined by parabolic
// interpolation. At least two full cycles must be present.
func DominantPeriod(times, series []float64) (float64, error) {
	n := len(series)
	if n != len(times) {
		return 0, dynamo.Invalid("%d samples but %d times", n, len(times))
	}
	if n < 8 {
		return 0, dynamo.Invalid("need at least 8 samples, got %d", n)
	}

	span := times[n-1] - times[0]
	if span <= 0 {
		return 0, dynamo.Invalid("time span must be positive, got %g", span)
	}
	dt := span / float64(n-1)

	ps := PowerSpectrum(series)
	peak := 1
	for b := 2; b < len(ps); b++ {
		if ps[b] > ps[peak] {
			peak = b
		}
	}
	if ps[peak] == 0 {
		return 0, dynamo.Invalid("series is constant")
	}
	if peak < 2 {
		return 0, dynamo.Invalid("fewer than two cycles in %g time units", span)
	}

	bin := float64(peak)
	if peak+1 < len(ps) {
		l, c, r := ps[peak-1], ps[peak], ps[peak+1]
		if den := l - 2*c + r; den != 0 {
			bin += 0.5 * (l - r) / den
		}
	}

	period := float64(n) * dt / bin
	if math.IsNaN(period) || math.IsInf(period, 0) {
		return 0, dynamo.Invalid("no dominant frequency")
	}
	return period, nil
}
