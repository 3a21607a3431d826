package flow

import (
	"go.trai.ch/conduit/internal/adapters/resolver"
)

// Resolver supplies component constructor arguments by type.
type Resolver struct {
	m *resolver.Map
}

// NewResolver creates an empty Resolver.
func NewResolver() *Resolver {
	return &Resolver{m: resolver.NewMap()}
}

// Provide binds t to a value shared by every component.
func Provide[T any](r *Resolver, t Type[T], v T) {
	r.m.Register(t.id, v)
}

// ProvideFactory binds t to a factory called once per run scope. Values implementing
// io.Closer are closed when the run ends.
func ProvideFactory[T any](r *Resolver, t Type[T], fn func() (T, error)) {
	r.m.RegisterFactory(t.id, func() (any, error) {
		return fn()
	})
}
