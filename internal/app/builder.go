package app

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.trai.ch/conduit/flow"
	"go.trai.ch/conduit/internal/core/domain"
	"go.trai.ch/conduit/internal/core/ports"
)

// Components contains all the initialized application components.
// This struct provides controlled access to components needed by the CLI layer.
type Components struct {
	App    *App
	Logger ports.Logger
}

// NewComponents creates a new Components struct from dependencies.
func NewComponents(app *App, logger ports.Logger) *Components {
	return &Components{
		App:    app,
		Logger: logger,
	}
}

// simulatedComponent is the instance shared by the entrypoints of one manifest component.
type simulatedComponent struct {
	name string
}

// BuildContainer turns a manifest into a container whose entrypoints fill their
// exports with synthetic values after the declared delay. Optional exports listed
// as absent are left empty.
func BuildContainer(m *domain.Manifest, clock clockwork.Clock, opts ...flow.ContainerOption) (*flow.Container, error) {
	components := make(map[string]*flow.Component)
	entrypoints := make([]*flow.Entrypoint, 0, len(m.Entrypoints))

	for i := range m.Entrypoints {
		spec := &m.Entrypoints[i]

		epOpts := []flow.EntrypointOption{
			flow.Imports(portsOf(spec.Imports)...),
			flow.Exports(portsOf(spec.Exports)...),
		}
		if spec.Priority != 0 {
			epOpts = append(epOpts, flow.WithPriority(flow.Priority(spec.Priority)))
		}
		for _, c := range spec.Constraints {
			t := flow.NewType[any](c.Type.String())
			if c.RequiresAbsent {
				epOpts = append(epOpts, flow.Unless(t))
			} else {
				epOpts = append(epOpts, flow.When(t))
			}
		}
		if spec.Async {
			epOpts = append(epOpts, flow.Async())
		}
		if spec.Component != "" {
			c, ok := components[spec.Component]
			if !ok {
				c = newSimulatedComponent(spec.Component, spec.Lifetime)
				components[spec.Component] = c
			}
			epOpts = append(epOpts, flow.OwnedBy(c))
		}

		entrypoints = append(entrypoints, flow.NewEntrypoint(spec.Name, simulate(spec, clock), epOpts...))
	}

	opts = append([]flow.ContainerOption{
		flow.WithInputs(portsOf(m.Inputs)...),
		flow.WithResults(portsOf(m.Results)...),
	}, opts...)
	for _, d := range m.Domains {
		opts = append(opts, flow.WithDomain(d.Name, typesOf(d.Keys), typesOf(d.Values)))
	}
	return flow.NewContainer(entrypoints, opts...)
}

func newSimulatedComponent(name string, lifetime domain.Lifetime) *flow.Component {
	var opts []flow.ComponentOption
	if lifetime == domain.LifetimeSingleton {
		opts = append(opts, flow.Singleton())
	}
	return flow.NewComponent(name, func(flow.Args) (*simulatedComponent, error) {
		return &simulatedComponent{name: name}, nil
	}, opts...)
}

type export struct {
	t      flow.Type[any]
	absent bool
}

func simulate(spec *domain.EntrypointSpec, clock clockwork.Clock) flow.Handler {
	exports := make([]export, len(spec.Exports))
	for i, p := range spec.Exports {
		exports[i] = export{t: flow.NewType[any](p.Type.String())}
		for _, a := range spec.Absent {
			if a == p.Type {
				exports[i].absent = true
			}
		}
	}
	name := spec.Name
	delay := spec.Delay

	return func(ctx context.Context, call *flow.Call) error {
		if err := wait(ctx, clock, delay); err != nil {
			return err
		}
		for _, e := range exports {
			if !e.absent {
				flow.Set[any](call, e.t, name)
			}
		}
		return nil
	}
}

func wait(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func portsOf(ps []domain.Port) []flow.Port {
	out := make([]flow.Port, len(ps))
	for i, p := range ps {
		t := flow.NewType[any](p.Type.String())
		if p.Optional {
			out[i] = t.Optional()
		} else {
			out[i] = t
		}
	}
	return out
}

func typesOf(types []domain.InternedString) []flow.Port {
	out := make([]flow.Port, len(types))
	for i, t := range types {
		out[i] = flow.NewType[any](t.String())
	}
	return out
}
