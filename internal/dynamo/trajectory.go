package dynamo

import "gonum.org/v1/gonum/spatial/r3"

// Trajectory is a fully materialized time history. States[0] is the seed
// state and Times holds len(States) values spread uniformly over [0, T].
type Trajectory struct {
	States []State
	Times  []float64
	Dt     float64
}

func (tr *Trajectory) Len() int { return len(tr.States) }

func (tr *Trajectory) At(k int) State { return tr.States[k] }

func (tr *Trajectory) Final() State { return tr.States[len(tr.States)-1] }

// Body returns a view of body i at step k.
func (tr *Trajectory) Body(k, i int) []float64 { return tr.States[k].Body(i) }

// Path returns a read-through view of one body's positions.
func (tr *Trajectory) Path(i int) BodyPath {
	return BodyPath{tr: tr, body: i}
}

// BodyPath indexes a single body's position over a trajectory without copying it.
type BodyPath struct {
	tr   *Trajectory
	body int
}

func (p BodyPath) Len() int { return p.tr.Len() }

func (p BodyPath) At(k int) r3.Vec { return p.tr.States[k].Position(p.body) }

// XY returns the in-plane position at step k, which makes BodyPath a plotter.XYer.
func (p BodyPath) XY(k int) (float64, float64) {
	b := p.tr.States[k].Body(p.body)
	return b[0], b[1]
}
