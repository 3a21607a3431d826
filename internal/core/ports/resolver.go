package ports

import "go.trai.ch/conduit/internal/core/domain"

// Resolver supplies component constructor arguments by type.
//
//go:generate go run go.uber.org/mock/mockgen -source=resolver.go -destination=mocks/mock_resolver.go -package=mocks
type Resolver interface {
	// Resolve returns the instance registered for t.
	Resolve(t domain.InternedString) (any, error)
}

// ScopeFactory is implemented by resolvers that can open a per-run scope.
type ScopeFactory interface {
	// CreateScope opens a scope whose instances live until Release.
	CreateScope() (ScopedResolver, error)
}

// ScopedResolver resolves arguments within one run.
type ScopedResolver interface {
	Resolver
	// Release disposes everything the scope created.
	Release() error
}
