package dynamo

import (
	"errors"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0, 4.0, 5.0, 6.0}, true},
		{"zeros", Zero(2), true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Norm(t *testing.T) {
	tests := []struct {
		state    State
		expected float64
	}{
		{State{3, 4}, 5.0},
		{State{1, 0}, 1.0},
		{State{0, 0}, 0.0},
		{State{1, 1, 1, 1}, 2.0},
	}

	for _, tt := range tests {
		if got := tt.state.Norm(); math.Abs(got-tt.expected) > 1e-10 {
			t.Errorf("Norm(%v) = %v, want %v", tt.state, got, tt.expected)
		}
	}
}

func TestState_Sub(t *testing.T) {
	a := State{1, 2, 3}
	b := State{4, 5, 6}

	diff := b.Sub(a)
	if diff[0] != 3 || diff[1] != 3 || diff[2] != 3 {
		t.Errorf("Sub failed: got %v", diff)
	}
	if a[0] != 1 || b[0] != 4 {
		t.Error("Sub modified its operands")
	}
}

func TestState_Rows(t *testing.T) {
	s := NewState(
		[6]float64{1, 2, 3, 4, 5, 6},
		[6]float64{7, 8, 9, 10, 11, 12},
	)

	if s.Bodies() != 2 || len(s) != 12 {
		t.Fatalf("expected 2 bodies in 12 values, got %d in %d", s.Bodies(), len(s))
	}
	if got := s.Position(1); got != (r3.Vec{X: 7, Y: 8, Z: 9}) {
		t.Errorf("Position(1) = %v", got)
	}
	if got := s.Velocity(0); got != (r3.Vec{X: 4, Y: 5, Z: 6}) {
		t.Errorf("Velocity(0) = %v", got)
	}

	row := s.Body(0)
	row[2] = -3
	if s[2] != -3 {
		t.Error("Body view does not write through")
	}
	if cap(row) != RowLen {
		t.Errorf("Body view has capacity %d, appends could clobber the next row", cap(row))
	}

	s.SetPosition(1, r3.Vec{X: -1, Y: -2, Z: -3})
	s.SetVelocity(1, r3.Vec{X: 0.5})
	want := State{1, 2, -3, 4, 5, 6, -1, -2, -3, 0.5, 0, 0}
	if !s.Equal(want) {
		t.Errorf("got %v, want %v", s, want)
	}

	pos := s.Positions()
	if len(pos) != 6 || pos[3] != -1 || pos[5] != -3 {
		t.Errorf("Positions() = %v", pos)
	}
	pos[0] = 100
	if s[0] == 100 {
		t.Error("Positions() aliases the state")
	}
}

func TestState_Clone(t *testing.T) {
	s := NewState([6]float64{1, 2, 3, 4, 5, 6})
	c := s.Clone()
	c[0] = 42
	if s[0] != 1 {
		t.Error("Clone shares storage with the original")
	}
}

func TestTrajectory_Path(t *testing.T) {
	tr := &Trajectory{
		States: []State{
			NewState([6]float64{1, 2, 3, 0, 0, 0}, [6]float64{}),
			NewState([6]float64{4, 5, 6, 0, 0, 0}, [6]float64{}),
		},
		Times: []float64{0, 1},
		Dt:    1,
	}

	p := tr.Path(0)
	if p.Len() != 2 {
		t.Fatalf("path length %d, want 2", p.Len())
	}
	if got := p.At(1); got != (r3.Vec{X: 4, Y: 5, Z: 6}) {
		t.Errorf("At(1) = %v", got)
	}
	if x, y := p.XY(0); x != 1 || y != 2 {
		t.Errorf("XY(0) = %g, %g", x, y)
	}

	tr.Body(1, 0)[0] = 9
	if p.At(1).X != 9 {
		t.Error("path does not read through to the trajectory")
	}
	if !tr.Final().Equal(tr.At(1)) {
		t.Error("Final is not the last state")
	}
}

func TestParseErrorNorm(t *testing.T) {
	tests := []struct {
		in   string
		want ErrorNorm
		ok   bool
	}{
		{"positions", NormPositions, true},
		{"pos", NormPositions, true},
		{"full", NormFullState, true},
		{"state", NormFullState, true},
		{"", NormDefault, true},
		{"velocity", 0, false},
	}

	for _, tt := range tests {
		got, err := ParseErrorNorm(tt.in)
		if tt.ok {
			if err != nil || got != tt.want {
				t.Errorf("ParseErrorNorm(%q) = %v, %v", tt.in, got, err)
			}
			if got.String() == "" {
				t.Errorf("empty name for %v", got)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("ParseErrorNorm(%q) error = %v, want ErrInvalidParameter", tt.in, err)
		}
	}
}

func TestSimulationError(t *testing.T) {
	err := &SimulationError{Step: 12, Time: 180, Bodies: [2]int{0, 3}, Wrapped: ErrDivergentState}

	if !errors.Is(err, ErrDivergentState) {
		t.Error("SimulationError does not unwrap to its cause")
	}
	if msg := err.Error(); !strings.Contains(msg, "step 12") || !strings.Contains(msg, "bodies 0/3") {
		t.Errorf("unexpected message %q", msg)
	}

	plain := &SimulationError{Step: 1, Wrapped: ErrDivergentState}
	if strings.Contains(plain.Error(), "bodies") {
		t.Errorf("message names bodies when none were recorded: %q", plain.Error())
	}
}

func TestErrorTaxonomy(t *testing.T) {
	if !errors.Is(ErrTrajectoryTooLarge, ErrInvalidParameter) {
		t.Error("ErrTrajectoryTooLarge should be an ErrInvalidParameter")
	}
	if errors.Is(ErrDivergentState, ErrInvalidParameter) {
		t.Error("ErrDivergentState should not be an ErrInvalidParameter")
	}
	if err := Invalid("dt is %g", -1.0); !errors.Is(err, ErrInvalidParameter) || !strings.Contains(err.Error(), "dt is -1") {
		t.Errorf("Invalid() = %v", err)
	}
}
