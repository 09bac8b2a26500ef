package physics

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/orbitsim/internal/dynamo"
)

func twoBodyState() dynamo.State {
	return dynamo.NewState(
		[6]float64{20428, 0, 0, 0, 1.448, 0},
		[6]float64{0, 0, 0, 0, 0, 0},
	)
}

func TestNewNBodyValidation(t *testing.T) {
	tests := []struct {
		name   string
		masses []float64
		g      float64
		opts   []Option
	}{
		{"empty masses", nil, GKilometers, nil},
		{"negative mass", []float64{1, -1}, GKilometers, nil},
		{"NaN mass", []float64{math.NaN()}, GKilometers, nil},
		{"zero G", []float64{1}, 0, nil},
		{"infinite G", []float64{1}, math.Inf(1), nil},
		{"negative separation", []float64{1, 1}, GKilometers, []Option{WithMinSeparation(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewNBody(tt.masses, tt.g, tt.opts...)
			if !errors.Is(err, dynamo.ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}

func TestNewNBodyCopiesMasses(t *testing.T) {
	masses := []float64{1, 2}
	nb, err := NewNBody(masses, 1)
	if err != nil {
		t.Fatal(err)
	}
	masses[0] = 99
	if nb.Masses[0] != 1 {
		t.Error("NewNBody kept a reference to the caller's mass slice")
	}
}

func TestDeriveTwoBody(t *testing.T) {
	nb, err := NewNBody([]float64{3300, 6.39e23}, GKilometers)
	if err != nil {
		t.Fatal(err)
	}
	x := twoBodyState()

	dx, err := nb.Derive(x)
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}

	if dx[0] != 0 || dx[1] != 1.448 || dx[2] != 0 {
		t.Errorf("velocity rows not copied: got %v", dx[:3])
	}

	r := 20428.0
	want := -GKilometers * 6.39e23 / (r * r)
	if math.Abs(dx[3]-want) > 1e-12*math.Abs(want) {
		t.Errorf("satellite ax = %g, want %g", dx[3], want)
	}
	if dx[4] != 0 || dx[5] != 0 {
		t.Errorf("satellite ay, az should be zero, got %g, %g", dx[4], dx[5])
	}

	wantPlanet := GKilometers * 3300 / (r * r)
	if math.Abs(dx[9]-wantPlanet) > 1e-12*wantPlanet {
		t.Errorf("planet ax = %g, want %g", dx[9], wantPlanet)
	}
}

func TestDeriveDoesNotModifyInput(t *testing.T) {
	nb, _ := NewNBody([]float64{3300, 6.39e23}, GKilometers)
	x := twoBodyState()
	before := x.Clone()

	if _, err := nb.Derive(x); err != nil {
		t.Fatal(err)
	}
	if !x.Equal(before) {
		t.Error("Derive modified its input")
	}
}

func TestDeriveSingleBodyHasZeroAcceleration(t *testing.T) {
	nb, _ := NewNBody([]float64{5.0e24}, GKilometers)
	x := dynamo.NewState([6]float64{100, -3, 7, 1, 2, 3})

	dx, err := nb.Derive(x)
	if err != nil {
		t.Fatal(err)
	}
	want := dynamo.State{1, 2, 3, 0, 0, 0}
	if !dx.Equal(want) {
		t.Errorf("single body derivative = %v, want %v", dx, want)
	}
}

func TestDeriveDimensionMismatch(t *testing.T) {
	nb, _ := NewNBody([]float64{1, 1, 1}, 1)
	_, err := nb.Derive(twoBodyState())
	if !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestDeriveCoincidentBodies(t *testing.T) {
	nb, _ := NewNBody([]float64{1, 1}, 1)
	x := dynamo.NewState(
		[6]float64{1, 1, 1, 0, 0, 0},
		[6]float64{1, 1, 1, 0, 0, 0},
	)

	_, err := nb.Derive(x)
	if !errors.Is(err, dynamo.ErrDivergentState) {
		t.Fatalf("expected ErrDivergentState, got %v", err)
	}

	var simErr *dynamo.SimulationError
	if !errors.As(err, &simErr) {
		t.Fatal("expected a SimulationError")
	}
	if simErr.Bodies != [2]int{0, 1} {
		t.Errorf("expected bodies 0/1, got %v", simErr.Bodies)
	}
}

func TestDeriveMinSeparation(t *testing.T) {
	nb, _ := NewNBody([]float64{1, 1}, 1, WithMinSeparation(10))
	x := dynamo.NewState(
		[6]float64{0, 0, 0, 0, 0, 0},
		[6]float64{5, 0, 0, 0, 0, 0},
	)
	if _, err := nb.Derive(x); !errors.Is(err, dynamo.ErrDivergentState) {
		t.Errorf("expected ErrDivergentState below minimum separation, got %v", err)
	}

	x.Body(1)[0] = 50
	if _, err := nb.Derive(x); err != nil {
		t.Errorf("unexpected error above minimum separation: %v", err)
	}
}

func TestDeriveMomentumBalance(t *testing.T) {
	masses := []float64{3300, 6.39e23, 10.8e15, 1.8, 1.9891e30}
	nb, _ := NewNBody(masses, GKilometers)
	x := dynamo.NewState(
		[6]float64{20428, 0, 0, 0, 1.448, 0},
		[6]float64{0, 0, 0, 0, 0, 0},
		[6]float64{-3.3407e3, -8.6799e3, 9.6013e2, 1.7860, -0.75438, -0.91419},
		[6]float64{2.1332e4, 2.5385e3, -9.4214e3, -0.092389, 1.3394, 0.15256},
		[6]float64{1.1299e8, 1.9818e8, 1.3819e6, -2.1959e1, 9.9224, 0.74659},
	)

	acc, err := nb.Accelerations(x)
	if err != nil {
		t.Fatal(err)
	}

	var fx, fy, fz, scale float64
	for i, a := range acc {
		fx += masses[i] * a.X
		fy += masses[i] * a.Y
		fz += masses[i] * a.Z
		scale += masses[i] * math.Sqrt(a.X*a.X+a.Y*a.Y+a.Z*a.Z)
	}
	if net := math.Sqrt(fx*fx + fy*fy + fz*fz); net > 1e-9*scale {
		t.Errorf("internal forces do not cancel: net %g vs scale %g", net, scale)
	}
}

func TestGravityFor(t *testing.T) {
	tests := []struct {
		units string
		want  float64
		ok    bool
	}{
		{"km", GKilometers, true},
		{"m", GMeters, true},
		{"kilometers", GKilometers, true},
		{"furlongs", 0, false},
	}

	for _, tt := range tests {
		got, err := GravityFor(tt.units)
		if (err == nil) != tt.ok {
			t.Errorf("GravityFor(%q) error = %v", tt.units, err)
		}
		if got != tt.want {
			t.Errorf("GravityFor(%q) = %g, want %g", tt.units, got, tt.want)
		}
	}
}

func TestEnergyAndAngularMomentum(t *testing.T) {
	nb, _ := NewNBody([]float64{1, 1}, 1)
	x := dynamo.NewState(
		[6]float64{-1, 0, 0, 0, -0.5, 0},
		[6]float64{1, 0, 0, 0, 0.5, 0},
	)

	wantE := 2*0.5*0.25 - 1.0/2.0
	if e := nb.Energy(x); math.Abs(e-wantE) > 1e-15 {
		t.Errorf("energy = %g, want %g", e, wantE)
	}

	L := nb.AngularMomentum(x)
	if math.Abs(L.Z-1.0) > 1e-15 || L.X != 0 || L.Y != 0 {
		t.Errorf("angular momentum = %v, want (0, 0, 1)", L)
	}

	p := nb.Momentum(x)
	if p.X != 0 || p.Y != 0 || p.Z != 0 {
		t.Errorf("momentum = %v, want zero", p)
	}
}
