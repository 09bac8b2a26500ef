package experiment

import (
	"fmt"
	"os"
	"strings"

	"github.com/san-kum/orbitsim/internal/config"
	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/integrators"
	"github.com/san-kum/orbitsim/internal/metrics"
	"github.com/san-kum/orbitsim/internal/physics"
)

// Registry resolves scenario and integrator names given on the command line.
type Registry struct {
	scenarios map[string]func() *config.Config
}

func NewRegistry() *Registry {
	r := &Registry{
		scenarios: make(map[string]func() *config.Config),
	}
	for _, name := range config.ListPresets() {
		name := name
		r.scenarios[name] = func() *config.Config { return config.GetPreset(name) }
	}
	return r
}

// Register adds or replaces a named scenario.
func (r *Registry) Register(name string, fn func() *config.Config) {
	r.scenarios[name] = fn
}

// GetScenario returns a named scenario, or loads a yaml file when name looks
// like a path.
func (r *Registry) GetScenario(name string) (*config.Config, error) {
	if fn, ok := r.scenarios[name]; ok {
		return fn(), nil
	}
	if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
		if _, err := os.Stat(name); err == nil {
			return config.Load(name)
		}
	}
	return nil, fmt.Errorf("%w: unknown scenario %q (presets: %s)", dynamo.ErrInvalidParameter, name, strings.Join(r.ListScenarios(), ", "))
}

func (r *Registry) GetIntegrator(name string) (dynamo.Stepper, error) {
	return integrators.Lookup(name)
}

func (r *Registry) ListScenarios() []string {
	return config.ListPresets()
}

func (r *Registry) ListIntegrators() []string {
	return integrators.Names()
}

// DefaultMetrics tracks conservation and, when the scenario has one, the
// satellite's distance from mars.
func (r *Registry) DefaultMetrics(cfg *config.Config, nb *physics.NBody) []dynamo.Metric {
	ms := []dynamo.Metric{
		metrics.NewEnergyDrift(nb),
		metrics.NewAngularMomentumDrift(nb),
	}
	if sat, planet := cfg.BodyIndex("satellite"), cfg.BodyIndex("mars"); sat >= 0 && planet >= 0 {
		ms = append(ms, metrics.NewRadiusBand(sat, planet))
	}
	return ms
}
