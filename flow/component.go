package flow

import (
	"slices"

	"go.trai.ch/conduit/internal/core/domain"
)

// Component is the owning-instance type of one or more entrypoints. Entrypoints
// owned by the same Component share one instance per run, or one instance overall
// for singletons.
type Component struct {
	c *domain.Component
}

// Args holds the resolved constructor arguments of a component.
type Args struct {
	types  []domain.InternedString
	values []any
}

// Arg returns the argument of type t. A type the component does not need yields
// the zero value.
func Arg[T any](a Args, t Type[T]) T {
	i := slices.Index(a.types, t.id)
	if i < 0 || i >= len(a.values) {
		var zero T
		return zero
	}
	v, _ := a.values[i].(T)
	return v
}

// ComponentOption configures a Component.
type ComponentOption func(*componentConfig)

type componentConfig struct {
	lifetime    domain.Lifetime
	args        []domain.InternedString
	perInstance bool
	init        func(Args) error
	constraints []domain.Constraint
}

// Singleton creates one instance shared by every run. Singletons are disposed by
// Container.Close.
func Singleton() ComponentOption {
	return func(c *componentConfig) {
		c.lifetime = domain.LifetimeSingleton
	}
}

// Needs declares the constructor arguments, resolved by type through the container's resolver.
func Needs(types ...Port) ComponentOption {
	return func(c *componentConfig) {
		for _, p := range types {
			c.args = append(c.args, p.port().Type)
		}
	}
}

// ResolvePerInstance resolves the arguments again for every instance, through the
// run's resolver scope.
func ResolvePerInstance() ComponentOption {
	return func(c *componentConfig) {
		c.perInstance = true
	}
}

// OnInit registers a hook that runs once, when a container is built, before any
// instance is created.
func OnInit(fn func(Args) error) ComponentOption {
	return func(c *componentConfig) {
		c.init = fn
	}
}

// ComponentWhen gates every entrypoint of the component on the presence of types.
func ComponentWhen(ports ...Port) ComponentOption {
	return func(c *componentConfig) {
		c.constraints = appendConstraints(c.constraints, ports, false)
	}
}

// ComponentUnless gates every entrypoint of the component on the absence of types.
func ComponentUnless(ports ...Port) ComponentOption {
	return func(c *componentConfig) {
		c.constraints = appendConstraints(c.constraints, ports, true)
	}
}

// NewComponent registers a component built by construct. Instances implementing
// io.Closer are closed when their lifetime ends.
func NewComponent[C any](name string, construct func(Args) (C, error), opts ...ComponentOption) *Component {
	var cfg componentConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	types := cfg.args
	c := &domain.Component{
		Name:               name,
		Lifetime:           cfg.lifetime,
		Args:               types,
		ResolvePerInstance: cfg.perInstance,
		Constraints:        cfg.constraints,
		New: func(values []any) (any, error) {
			instance, err := construct(Args{types: types, values: values})
			if err != nil {
				return nil, err
			}
			return instance, nil
		},
	}
	if cfg.init != nil {
		c.Init = func(values []any) error {
			return cfg.init(Args{types: types, values: values})
		}
	}
	return &Component{c: c}
}

// Name returns the component name.
func (c *Component) Name() string {
	return c.c.Name
}
