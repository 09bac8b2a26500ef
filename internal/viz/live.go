package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	canvasWidth     = 60
	canvasHeight    = 24
	trailCapacity   = 400
	historyCapacity = 600
	maxStepsFrame   = 1 << 12
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(46)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// LiveOptions configures a live propagation.
type LiveOptions struct {
	Title         string
	Names         []string
	Units         string
	Dt            float64
	FinalTime     float64
	StepsPerFrame int
	// Reference is the body the view is centred on.
	Reference int
}

// Model integrates a system a few steps per frame and draws every body
// relative to a reference body.
type Model struct {
	sys     dynamo.System
	stepper dynamo.Stepper
	opts    LiveOptions

	x0    dynamo.State
	state dynamo.State
	k     int
	steps int
	times []float64

	running bool
	err     error

	trails  [][]r3.Vec
	energy0 float64
	drift   []float64
}

func NewModel(sys dynamo.System, stepper dynamo.Stepper, x0 dynamo.State, opts LiveOptions) (Model, error) {
	cfg := sim.Config{FinalTime: opts.FinalTime, Dt: opts.Dt}
	if err := cfg.Validate(); err != nil {
		return Model{}, err
	}
	if x0.Bodies() != sys.Bodies() {
		return Model{}, dynamo.Invalid("initial state has %d bodies, system has %d", x0.Bodies(), sys.Bodies())
	}
	if opts.Units == "" {
		opts.Units = "km"
	}
	if opts.StepsPerFrame < 1 {
		opts.StepsPerFrame = 1
	}
	if opts.Reference < 0 || opts.Reference >= sys.Bodies() {
		opts.Reference = 0
	}

	m := Model{
		sys:     sys,
		stepper: stepper,
		opts:    opts,
		x0:      x0.Clone(),
		steps:   cfg.Steps(),
		times:   sim.Times(cfg.Steps(), opts.FinalTime),
		running: true,
	}
	m.reset()
	return m, nil
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "+", "=":
			m.opts.StepsPerFrame = min(m.opts.StepsPerFrame*2, maxStepsFrame)
		case "-", "_":
			m.opts.StepsPerFrame = max(m.opts.StepsPerFrame/2, 1)
		case "f":
			m.opts.Reference = (m.opts.Reference + 1) % m.sys.Bodies()
			m.clearTrails()
		}
	case TickMsg:
		if m.running && !m.Done() {
			m.advance(m.opts.StepsPerFrame)
		}
		return m, tick()
	}
	return m, nil
}

// Done reports whether the final time was reached or the run failed.
func (m Model) Done() bool { return m.err != nil || m.k >= m.steps-1 }

func (m Model) Err() error { return m.err }

func (m Model) Time() float64 { return m.times[m.k] }

func (m Model) State() dynamo.State { return m.state }

// advance takes up to n steps and stops at the last stored state.
func (m *Model) advance(n int) {
	for i := 0; i < n; i++ {
		if m.Done() {
			return
		}
		next, err := m.stepper.Step(m.sys, m.state, m.opts.Dt)
		if err == nil && !next.IsValid() {
			err = dynamo.ErrDivergentState
		}
		if err != nil {
			m.err = &dynamo.SimulationError{Step: m.k + 1, Time: m.times[m.k+1], Wrapped: err}
			m.running = false
			return
		}
		m.state = next
		m.k++
		m.record()
	}
}

func (m *Model) record() {
	ref := m.state.Position(m.opts.Reference)
	for i := range m.trails {
		m.trails[i] = appendRing(m.trails[i], r3.Sub(m.state.Position(i), ref), trailCapacity)
	}
	if h, ok := m.sys.(dynamo.Hamiltonian); ok && m.energy0 != 0 {
		d := math.Abs((h.Energy(m.state) - m.energy0) / m.energy0)
		m.drift = appendRing(m.drift, d, historyCapacity)
	}
}

func appendRing[T any](s []T, v T, capacity int) []T {
	if len(s) == capacity {
		copy(s, s[1:])
		s = s[:capacity-1]
	}
	return append(s, v)
}

func (m *Model) clearTrails() {
	m.trails = make([][]r3.Vec, m.sys.Bodies())
	for i := range m.trails {
		m.trails[i] = make([]r3.Vec, 0, trailCapacity)
	}
	ref := m.state.Position(m.opts.Reference)
	for i := range m.trails {
		m.trails[i] = append(m.trails[i], r3.Sub(m.state.Position(i), ref))
	}
}

func (m *Model) reset() {
	m.state = m.x0.Clone()
	m.k = 0
	m.err = nil
	m.drift = m.drift[:0]
	m.energy0 = 0
	if h, ok := m.sys.(dynamo.Hamiltonian); ok {
		m.energy0 = h.Energy(m.state)
	}
	m.clearTrails()
}

func (m Model) name(i int) string {
	if i < len(m.opts.Names) && m.opts.Names[i] != "" {
		return m.opts.Names[i]
	}
	return fmt.Sprintf("body %d", i)
}

func (m Model) draw() string {
	c := NewCanvas(canvasWidth, canvasHeight)
	var all []r3.Vec
	for _, tr := range m.trails {
		all = append(all, tr...)
	}
	f := FitFrame(c, all)
	for i, tr := range m.trails {
		c.DrawPath(f, tr)
		if len(tr) > 0 {
			x, y := f.Project(tr[len(tr)-1])
			r := 0
			if i == m.opts.Reference {
				r = 1
			}
			c.Blob(x, y, r)
		}
	}
	return c.String()
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(Title.Render(strings.ToUpper(m.opts.Title)) + "\n")

	switch {
	case m.err != nil:
		s.WriteString(Warning.Render("FAILED: "+m.err.Error()) + "\n\n")
	case m.Done():
		s.WriteString(StatusPaused.Render("DONE") + "\n\n")
	case m.running:
		s.WriteString(StatusRunning.Render("RUNNING") + "\n\n")
	default:
		s.WriteString(StatusPaused.Render("PAUSED") + "\n\n")
	}

	if chart := LineChart(m.drift, "relative energy drift", 30, 4); chart != "" {
		s.WriteString(chart + "\n\n")
	}

	s.WriteString(Metric("integrator", m.stepper.Name()) + "\n")
	s.WriteString(Metric("time [s]", fmt.Sprintf("%.1f / %.1f", m.Time(), m.opts.FinalTime)) + "\n")
	s.WriteString(Metric("step", fmt.Sprintf("%d / %d", m.k, m.steps-1)) + "\n")
	s.WriteString(Metric("steps per frame", m.opts.StepsPerFrame) + "\n")
	s.WriteString(Metric("centred on", m.name(m.opts.Reference)) + "\n")
	if len(m.drift) > 0 {
		s.WriteString(Metric("energy drift", m.drift[len(m.drift)-1]) + "\n")
	}
	s.WriteString("\n" + ProgressBar(float64(m.k)/float64(max(m.steps-1, 1)), 30) + "\n")

	for i := range m.trails {
		if i == m.opts.Reference {
			continue
		}
		r := r3.Sub(m.state.Position(i), m.state.Position(m.opts.Reference))
		s.WriteString(Metric("|r| "+m.name(i)+" ["+m.opts.Units+"]", r3.Norm(r)) + "\n")
	}

	s.WriteString(helpStyle.Render("SP:Pause R:Reset Q:Quit\n+/-:Speed F:Centre"))
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasStyle.Render(m.draw()), statsStyle.Render(s.String()))
}
