// Package analysis post-processes materialized trajectories.
//
//   - [Separation] and [RelativePath]: distances and paths of one body seen from another
//   - [Apsides]: periapsis and apoapsis distances of a relative orbit
//   - [PowerSpectrum] and [DominantPeriod]: orbital period from the separation signal
//   - [Divergence]: error growth of a coarse trajectory against a finer one
//
// Estimating the period of a satellite around Mars:
//
//	sep := analysis.Separation(traj, 0, 1)
//	period, err := analysis.DominantPeriod(traj.Times, sep)
package analysis
