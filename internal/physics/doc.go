// Package physics provides the gravitational force model.
//
// [NBody] implements [dynamo.System] for any number of point masses. A
// scenario (satellite plus planet, planet plus moons, plus the Sun) is just a
// different mass list; there is one code path for every body count.
//
// Units are explicit: pick [GKilometers] for km/kg/s states or [GMeters] for
// m/kg/s states and pass it to [NewNBody].
//
// [NBody] also implements [dynamo.Hamiltonian] for drift monitoring:
//
//	nb, _ := physics.NewNBody([]float64{3300, 6.39e23}, physics.GKilometers)
//	e0 := nb.Energy(x0)
package physics
