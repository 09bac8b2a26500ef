// Package convergence estimates integration error by comparing final states
// against a finer baseline run.
//
// A typical study halves the step a few times against one fine baseline and
// fits the slope of log(error) over log(dt):
//
//	est := &convergence.Estimator{Logger: logger}
//	points, err := est.Sweep(ctx, sys, integrators.NewYoshida(), x0, 88800, []float64{800, 400, 200}, 10)
//	order, err := convergence.ObservedOrder(points)
//
// The estimator is a measurement. It does not assume the error shrinks
// monotonically with dt. When a tested step does not divide the final time,
// the runs stop at different integrated times and the result carries a
// horizon warning; that mismatch usually dominates the reported error.
package convergence
