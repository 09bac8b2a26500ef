package config

import (
	"fmt"
	"math"
	"os"

	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/physics"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt         = 15.0
	DefaultFinalTime  = 88642.0
	DefaultBaselineDt = 1.0
	DefaultUnits      = "km"
)

var DefaultSweepDts = []float64{100, 250, 500, 1000}

// Config is a scenario: bodies, units, stepper choice and time grid.
type Config struct {
	Name       string       `yaml:"name"`
	Units      string       `yaml:"units"`
	G          float64      `yaml:"g,omitempty"`
	Integrator string       `yaml:"integrator"`
	Dt         float64      `yaml:"dt"`
	FinalTime  float64      `yaml:"final_time"`
	BaselineDt float64      `yaml:"baseline_dt"`
	SweepDts   []float64    `yaml:"sweep_dts,flow"`
	Bodies     []BodyConfig `yaml:"bodies"`
}

type BodyConfig struct {
	Name     string     `yaml:"name"`
	Mass     float64    `yaml:"mass"`
	Position [3]float64 `yaml:"position,flow"`
	Velocity [3]float64 `yaml:"velocity,flow"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:       "mars-2body",
		Units:      DefaultUnits,
		Integrator: "yoshida",
		Dt:         DefaultDt,
		FinalTime:  DefaultFinalTime,
		BaselineDt: DefaultBaselineDt,
		SweepDts:   append([]float64(nil), DefaultSweepDts...),
		Bodies:     []BodyConfig{satellite, mars},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks everything the core would otherwise reject mid-run.
func (c *Config) Validate() error {
	if len(c.Bodies) == 0 {
		return dynamo.Invalid("scenario %q has no bodies", c.Name)
	}
	for i, b := range c.Bodies {
		if b.Mass < 0 || !finite(b.Mass) {
			return dynamo.Invalid("body %d (%s) has mass %g", i, b.Name, b.Mass)
		}
		for _, v := range append(b.Position[:], b.Velocity[:]...) {
			if !finite(v) {
				return dynamo.Invalid("body %d (%s) has a non-finite coordinate", i, b.Name)
			}
		}
	}
	if _, err := c.Gravity(); err != nil {
		return err
	}
	if c.Dt <= 0 || !finite(c.Dt) {
		return dynamo.Invalid("dt must be positive, got %g", c.Dt)
	}
	if c.FinalTime <= 0 || !finite(c.FinalTime) {
		return dynamo.Invalid("final_time must be positive, got %g", c.FinalTime)
	}
	if c.BaselineDt <= 0 || !finite(c.BaselineDt) {
		return dynamo.Invalid("baseline_dt must be positive, got %g", c.BaselineDt)
	}
	for _, dt := range c.SweepDts {
		if dt <= 0 || !finite(dt) {
			return dynamo.Invalid("sweep step %g is not positive", dt)
		}
	}
	return nil
}

// Gravity returns G, preferring an explicit value over the unit convention.
func (c *Config) Gravity() (float64, error) {
	if c.G != 0 {
		if c.G < 0 || !finite(c.G) {
			return 0, dynamo.Invalid("g must be positive, got %g", c.G)
		}
		return c.G, nil
	}
	units := c.Units
	if units == "" {
		units = DefaultUnits
	}
	return physics.GravityFor(units)
}

func (c *Config) Masses() []float64 {
	m := make([]float64, len(c.Bodies))
	for i, b := range c.Bodies {
		m[i] = b.Mass
	}
	return m
}

func (c *Config) InitialState() dynamo.State {
	x := dynamo.Zero(len(c.Bodies))
	for i, b := range c.Bodies {
		row := x.Body(i)
		copy(row[:3], b.Position[:])
		copy(row[3:], b.Velocity[:])
	}
	return x
}

// BodyIndex returns the index of the named body, or -1.
func (c *Config) BodyIndex(name string) int {
	for i, b := range c.Bodies {
		if b.Name == name {
			return i
		}
	}
	return -1
}

// System builds the gravity model for the scenario.
func (c *Config) System(opts ...physics.Option) (*physics.NBody, error) {
	g, err := c.Gravity()
	if err != nil {
		return nil, err
	}
	return physics.NewNBody(c.Masses(), g, opts...)
}

// Clone returns a deep copy, so presets can be edited without touching the table.
func (c *Config) Clone() *Config {
	out := *c
	out.SweepDts = append([]float64(nil), c.SweepDts...)
	out.Bodies = append([]BodyConfig(nil), c.Bodies...)
	return &out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
