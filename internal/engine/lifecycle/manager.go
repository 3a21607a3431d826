// Package lifecycle creates, shares and disposes the instances that own entrypoints.
package lifecycle

import (
	"errors"
	"io"
	"slices"
	"sync"

	"go.trai.ch/conduit/internal/core/domain"
	"go.trai.ch/conduit/internal/core/ports"
	"go.trai.ch/zerr"
)

// factory creates the instances of one component.
type factory struct {
	component *domain.Component
	// args are resolved once at build time unless the component resolves per instance.
	args      []any
	singleton any
}

func (f *factory) create(r ports.Resolver) (any, error) {
	args := f.args
	if f.component.ResolvePerInstance {
		var err error
		if args, err = resolveArgs(r, f.component); err != nil {
			return nil, err
		}
	}
	instance, err := f.component.New(args)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to construct component"), "component", f.component.Name)
	}
	return instance, nil
}

// Manager owns one factory per distinct component of a graph.
// Singletons are created when the manager is built; scoped instances are created
// lazily by the Scope of each run.
type Manager struct {
	resolver ports.Resolver

	factories []*factory
	// owner maps an entrypoint index to its factory, or -1 for static entrypoints.
	owner []int

	scopes sync.Pool

	closeOnce sync.Once
	closeErr  error
}

// NewManager prepares the factories for every component owning an entrypoint of g.
// Reusable constructor arguments are resolved here, Init hooks run here, and
// singletons are constructed here.
func NewManager(g *domain.Graph, resolver ports.Resolver) (*Manager, error) {
	m := &Manager{
		resolver: resolver,
		owner:    make([]int, g.Len()),
	}

	byComponent := make(map[*domain.Component]int)
	for idx := range g.Len() {
		c := g.Entrypoint(idx).Owner
		if c == nil {
			m.owner[idx] = -1
			continue
		}
		fi, ok := byComponent[c]
		if !ok {
			f, err := m.prepare(c)
			if err != nil {
				if cerr := m.Close(); cerr != nil {
					err = errors.Join(err, cerr)
				}
				return nil, err
			}
			fi = len(m.factories)
			m.factories = append(m.factories, f)
			byComponent[c] = fi
		}
		m.owner[idx] = fi
	}

	m.scopes.New = func() any {
		return &Scope{
			m:         m,
			instances: make([]any, len(m.factories)),
			created:   make([]bool, len(m.factories)),
		}
	}
	return m, nil
}

func (m *Manager) prepare(c *domain.Component) (*factory, error) {
	f := &factory{component: c}

	needArgs := !c.ResolvePerInstance || c.Init != nil
	var args []any
	if needArgs {
		var err error
		if args, err = resolveArgs(m.resolver, c); err != nil {
			return nil, err
		}
	}
	if !c.ResolvePerInstance {
		f.args = args
	}

	if c.Init != nil {
		if err := c.Init(args); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "component init failed"), "component", c.Name)
		}
	}

	if c.Lifetime == domain.LifetimeSingleton {
		instance, err := f.create(m.resolver)
		if err != nil {
			return nil, err
		}
		f.singleton = instance
	}
	return f, nil
}

func resolveArgs(r ports.Resolver, c *domain.Component) ([]any, error) {
	if len(c.Args) == 0 {
		return nil, nil
	}
	if r == nil {
		return nil, zerr.With(zerr.With(domain.ErrResolveFailed, "component", c.Name), "type", c.Args[0].String())
	}
	args := make([]any, len(c.Args))
	for i, t := range c.Args {
		v, err := r.Resolve(t)
		if err != nil {
			return nil, errors.Join(domain.ErrResolveFailed,
				zerr.With(zerr.With(zerr.Wrap(err, "resolver failed"), "component", c.Name), "type", t.String()))
		}
		args[i] = v
	}
	return args, nil
}

// ComponentCount returns the number of distinct components.
func (m *Manager) ComponentCount() int {
	return len(m.factories)
}

// NewScope returns an empty scope for one run. When the resolver implements
// ports.ScopeFactory, the scope opens a scoped resolver for per-instance arguments.
func (m *Manager) NewScope() (*Scope, error) {
	s := m.scopes.Get().(*Scope) //nolint:forcetypeassert // pool only holds scopes
	s.resolver = m.resolver
	if sf, ok := m.resolver.(ports.ScopeFactory); ok {
		scoped, err := sf.CreateScope()
		if err != nil {
			m.scopes.Put(s)
			return nil, zerr.Wrap(err, "failed to create resolver scope")
		}
		s.scoped = scoped
		s.resolver = scoped
	}
	return s, nil
}

// Close disposes every singleton implementing io.Closer. It is safe to call more than once.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		var errs []error
		for _, f := range slices.Backward(m.factories) {
			if err := dispose(f.component, f.singleton); err != nil {
				errs = append(errs, err)
			}
			f.singleton = nil
		}
		if len(errs) > 0 {
			m.closeErr = errors.Join(domain.ErrDisposeFailed, errors.Join(errs...))
		}
	})
	return m.closeErr
}

func dispose(c *domain.Component, instance any) error {
	closer, ok := instance.(io.Closer)
	if !ok {
		return nil
	}
	if err := closer.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, "dispose failed"), "component", c.Name)
	}
	return nil
}
