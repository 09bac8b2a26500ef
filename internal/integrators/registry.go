package integrators

import (
	"sort"

	"github.com/san-kum/orbitsim/internal/dynamo"
)

var registry = map[string]func() dynamo.Stepper{
	"yoshida":  func() dynamo.Stepper { return NewYoshida() },
	"rk4":      func() dynamo.Stepper { return NewRK4() },
	"ruth3":    func() dynamo.Stepper { return NewRuth3() },
	"leapfrog": func() dynamo.Stepper { return NewLeapfrog() },
	"euler":    func() dynamo.Stepper { return NewEuler() },
}

// Lookup returns the stepper registered under name.
func Lookup(name string) (dynamo.Stepper, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, dynamo.Invalid("unknown integrator %q (available: %v)", name, Names())
	}
	return fn(), nil
}

// Names lists registered integrators in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
