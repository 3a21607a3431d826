// Package resolver implements the default map-backed constructor argument resolver.
package resolver

import (
	"errors"
	"io"
	"slices"
	"sync"

	"go.trai.ch/conduit/internal/core/domain"
	"go.trai.ch/conduit/internal/core/ports"
	"go.trai.ch/zerr"
)

// Factory creates a scoped instance. It is called at most once per scope.
type Factory func() (any, error)

// Map resolves types to registered values. Factories registered with
// RegisterFactory produce one instance per scope; outside a scope they produce a
// fresh instance on every call.
type Map struct {
	mu        sync.RWMutex
	values    map[domain.InternedString]any
	factories map[domain.InternedString]Factory
}

var (
	_ ports.Resolver     = (*Map)(nil)
	_ ports.ScopeFactory = (*Map)(nil)
)

// NewMap creates an empty resolver.
func NewMap() *Map {
	return &Map{
		values:    make(map[domain.InternedString]any),
		factories: make(map[domain.InternedString]Factory),
	}
}

// Register binds t to a shared value.
func (m *Map) Register(t domain.InternedString, v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.factories, t)
	m.values[t] = v
}

// RegisterFactory binds t to a factory invoked once per scope.
func (m *Map) RegisterFactory(t domain.InternedString, fn Factory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, t)
	m.factories[t] = fn
}

// Resolve returns the value registered for t.
func (m *Map) Resolve(t domain.InternedString) (any, error) {
	m.mu.RLock()
	v, ok := m.values[t]
	fn, isFactory := m.factories[t]
	m.mu.RUnlock()

	switch {
	case ok:
		return v, nil
	case isFactory:
		return build(t, fn)
	default:
		return nil, zerr.With(domain.ErrResolveFailed, "type", t.String())
	}
}

// CreateScope opens a scope that memoizes factory results until Release.
func (m *Map) CreateScope() (ports.ScopedResolver, error) {
	return &scope{parent: m}, nil
}

func build(t domain.InternedString, fn Factory) (any, error) {
	v, err := fn()
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "factory failed"), "type", t.String())
	}
	return v, nil
}

type scoped struct {
	t domain.InternedString
	v any
}

// scope is used by a single run at a time.
type scope struct {
	parent  *Map
	created []scoped
}

func (s *scope) Resolve(t domain.InternedString) (any, error) {
	s.parent.mu.RLock()
	v, ok := s.parent.values[t]
	fn, isFactory := s.parent.factories[t]
	s.parent.mu.RUnlock()

	if ok {
		return v, nil
	}
	if !isFactory {
		return nil, zerr.With(domain.ErrResolveFailed, "type", t.String())
	}

	for _, c := range s.created {
		if c.t == t {
			return c.v, nil
		}
	}
	v, err := build(t, fn)
	if err != nil {
		return nil, err
	}
	s.created = append(s.created, scoped{t: t, v: v})
	return v, nil
}

// Release closes every scoped value implementing io.Closer, newest first.
func (s *scope) Release() error {
	var errs []error
	for _, c := range slices.Backward(s.created) {
		closer, ok := c.v.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, zerr.With(zerr.Wrap(err, "release failed"), "type", c.t.String()))
		}
	}
	s.created = nil
	return errors.Join(errs...)
}
