package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/san-kum/orbitsim/internal/dynamo"
)

// Instrumentation counts integration work on its own registry so that
// independent runs and tests never share counters.
type Instrumentation struct {
	Registry *prometheus.Registry

	forceEvaluations prometheus.Counter
	steps            *prometheus.CounterVec
	propagation      *prometheus.HistogramVec
}

func NewInstrumentation() *Instrumentation {
	in := &Instrumentation{
		Registry: prometheus.NewRegistry(),
		forceEvaluations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "orbitsim_force_evaluations_total",
				Help: "Total number of gravity derivative evaluations.",
			},
		),
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orbitsim_steps_total",
				Help: "Total number of integration steps taken.",
			},
			[]string{"integrator"},
		),
		propagation: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orbitsim_propagation_seconds",
				Help:    "Wall time of a full propagation in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"integrator"},
		),
	}
	in.Registry.MustRegister(in.forceEvaluations, in.steps, in.propagation)
	return in
}

// Handler serves the registry in the Prometheus text format.
func (in *Instrumentation) Handler() http.Handler {
	return promhttp.HandlerFor(in.Registry, promhttp.HandlerOpts{})
}

// Instrument wraps sys so every Derive call increments the evaluation counter.
// Energy is forwarded when sys has one.
func (in *Instrumentation) Instrument(sys dynamo.System) dynamo.System {
	c := &countedSystem{System: sys, evals: in.forceEvaluations}
	if h, ok := sys.(dynamo.Hamiltonian); ok {
		return &countedHamiltonian{countedSystem: c, h: h}
	}
	return c
}

// StepCounter returns an observer that counts every state after the seed.
func (in *Instrumentation) StepCounter(integrator string) dynamo.Observer {
	return stepCounter{c: in.steps.WithLabelValues(integrator)}
}

// Time records the duration of fn under the integrator label.
func (in *Instrumentation) Time(integrator string, fn func() error) error {
	start := time.Now()
	err := fn()
	in.propagation.WithLabelValues(integrator).Observe(time.Since(start).Seconds())
	return err
}

// ForceEvaluations and Steps expose the counters for tests and summaries.
func (in *Instrumentation) ForceEvaluations() prometheus.Counter { return in.forceEvaluations }

func (in *Instrumentation) Steps(integrator string) prometheus.Counter {
	return in.steps.WithLabelValues(integrator)
}

type countedSystem struct {
	dynamo.System
	evals prometheus.Counter
}

func (c *countedSystem) Derive(x dynamo.State) (dynamo.State, error) {
	c.evals.Inc()
	return c.System.Derive(x)
}

type countedHamiltonian struct {
	*countedSystem
	h dynamo.Hamiltonian
}

func (c *countedHamiltonian) Energy(x dynamo.State) float64 { return c.h.Energy(x) }

type stepCounter struct {
	c prometheus.Counter
}

func (s stepCounter) OnStep(k int, t float64, x dynamo.State) {
	if k > 0 {
		s.c.Inc()
	}
}
