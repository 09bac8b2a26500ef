package config

import "sort"

// Initial conditions in km and km/s, Mars-centred.
var (
	satellite = BodyConfig{Name: "satellite", Mass: 3300, Position: [3]float64{20428, 0, 0}, Velocity: [3]float64{0, 1.448, 0}}
	mars      = BodyConfig{Name: "mars", Mass: 6.39e23}
	phobos    = BodyConfig{
		Name:     "phobos",
		Mass:     10.8e15,
		Position: [3]float64{-3.3407e3, -8.6799e3, 9.6013e2},
		Velocity: [3]float64{1.7860, -0.75438, -0.91419},
	}
	deimos = BodyConfig{
		Name:     "deimos",
		Mass:     1.8,
		Position: [3]float64{2.1332e4, 2.5385e3, -9.4214e3},
		Velocity: [3]float64{-0.092389, 1.3394, 0.15256},
	}
	sun = BodyConfig{
		Name:     "sun",
		Mass:     1.9891e30,
		Position: [3]float64{1.1299e8, 1.9818e8, 1.3819e6},
		Velocity: [3]float64{-2.1959e1, 9.9224, 0.74659},
	}
)

func scenario(name string, bodies ...BodyConfig) *Config {
	cfg := DefaultConfig()
	cfg.Name = name
	cfg.Bodies = bodies
	return cfg
}

var Presets = map[string]*Config{
	"mars-2body": scenario("mars-2body", satellite, mars),
	"mars-moons": scenario("mars-moons", satellite, mars, phobos, deimos),
	"mars-sun":   scenario("mars-sun", satellite, mars, sun),
	"mars-all":   scenario("mars-all", satellite, mars, phobos, deimos, sun),
}

// GetPreset returns a copy of the named scenario, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
