package lifecycle

import (
	"errors"
	"slices"

	"go.trai.ch/conduit/internal/core/domain"
	"go.trai.ch/conduit/internal/core/ports"
	"go.trai.ch/zerr"
)

// Scope holds the scoped instances of one run. It is not safe for concurrent use.
type Scope struct {
	m        *Manager
	resolver ports.Resolver
	scoped   ports.ScopedResolver

	instances []any
	created   []bool
	// order records creation order so disposal runs in reverse.
	order []int
}

// Instance returns the instance owning the entrypoint at idx, creating it on first
// use within the run. Static entrypoints have no instance.
func (s *Scope) Instance(idx int) (any, error) {
	fi := s.m.owner[idx]
	if fi < 0 {
		return nil, nil
	}
	f := s.m.factories[fi]
	if f.component.Lifetime == domain.LifetimeSingleton {
		return f.singleton, nil
	}
	if s.created[fi] {
		return s.instances[fi], nil
	}

	instance, err := f.create(s.resolver)
	if err != nil {
		return nil, err
	}
	s.instances[fi] = instance
	s.created[fi] = true
	s.order = append(s.order, fi)
	return instance, nil
}

// Close disposes every scoped instance created during the run, releases the scoped
// resolver and returns the scope to its manager. Every instance gets a disposal
// attempt; failures are aggregated under domain.ErrDisposeFailed.
func (s *Scope) Close() error {
	var errs []error
	for _, fi := range slices.Backward(s.order) {
		if err := dispose(s.m.factories[fi].component, s.instances[fi]); err != nil {
			errs = append(errs, err)
		}
		s.instances[fi] = nil
		s.created[fi] = false
	}
	if s.scoped != nil {
		if err := s.scoped.Release(); err != nil {
			errs = append(errs, zerr.Wrap(err, "failed to release resolver scope"))
		}
	}

	s.order = s.order[:0]
	s.scoped = nil
	s.resolver = nil
	s.m.scopes.Put(s)

	if len(errs) > 0 {
		return errors.Join(domain.ErrDisposeFailed, errors.Join(errs...))
	}
	return nil
}
