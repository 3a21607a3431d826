package domain

import (
	"context"
	"math"
)

// ContextType is the slot type carrying the run's context.Context.
// The initial entrypoint always exports it, so any entrypoint may import it to observe
// cancellation. It is exempt from unused-export validation.
var ContextType = NewInternedString("context.Context")

// Priority is a coarse ordering hint. Lower values are scheduled first; ties are
// broken by dependency order only.
type Priority int

const (
	// PriorityInitial is reserved for the built-in initial entrypoint.
	PriorityInitial Priority = math.MinInt
	// PriorityHigh schedules an entrypoint before medium and low priority ones.
	PriorityHigh Priority = 1
	// PriorityMedium is the default priority.
	PriorityMedium Priority = 2
	// PriorityLow schedules an entrypoint after high and medium priority ones.
	PriorityLow Priority = 3
	// PriorityResult is reserved for the built-in result entrypoint.
	PriorityResult Priority = math.MaxInt
)

// Kind distinguishes user entrypoints from the built-in boundary entrypoints.
type Kind int

const (
	// KindComponent is an ordinary registered entrypoint.
	KindComponent Kind = iota
	// KindInitial exports the run's initial inputs.
	KindInitial
	// KindResult imports the run's result values.
	KindResult
)

// Port declares one imported or exported type.
type Port struct {
	Type     InternedString
	Optional bool
}

// Constraint gates an entrypoint on the presence or absence of a slot without
// consuming its value.
type Constraint struct {
	Type           InternedString
	RequiresAbsent bool
}

// InvokeFunc executes an entrypoint. in holds one Value per import, in declaration
// order; required imports are always present. The function fills out with one Value
// per export; Present is only honoured for optional exports.
type InvokeFunc func(ctx context.Context, instance any, in []Value, out []Value) error

// Entrypoint is the immutable descriptor of a unit of work.
type Entrypoint struct {
	Name        string
	Kind        Kind
	Imports     []Port
	Exports     []Port
	Constraints []Constraint
	Priority    Priority
	Async       bool
	Owner       *Component
	Invoke      InvokeFunc
}

// NewInitialEntrypoint creates the built-in entrypoint that exports the run's
// initial inputs followed by the context slot.
func NewInitialEntrypoint(inputs []Port) *Entrypoint {
	exports := make([]Port, 0, len(inputs)+1)
	exports = append(exports, inputs...)
	exports = append(exports, Port{Type: ContextType})
	return &Entrypoint{
		Name:     "initial",
		Kind:     KindInitial,
		Exports:  exports,
		Priority: PriorityInitial,
	}
}

// NewResultEntrypoint creates the built-in entrypoint whose loaded inputs form the
// run's result.
func NewResultEntrypoint(results []Port) *Entrypoint {
	return &Entrypoint{
		Name:     "result",
		Kind:     KindResult,
		Imports:  append([]Port(nil), results...),
		Priority: PriorityResult,
	}
}

// Lifetime controls how long a component instance lives.
type Lifetime int

const (
	// LifetimeScoped instances are created once per run and disposed when it ends.
	LifetimeScoped Lifetime = iota
	// LifetimeSingleton instances are created once and shared by every run.
	LifetimeSingleton
)

// String returns the lifetime name.
func (l Lifetime) String() string {
	if l == LifetimeSingleton {
		return "singleton"
	}
	return "scoped"
}

// Component describes the owning-instance type of one or more entrypoints.
// Entrypoints share an instance when they point at the same *Component.
type Component struct {
	Name     string
	Lifetime Lifetime
	// Args are the types resolved through the resolver and passed to New.
	Args []InternedString
	// ResolvePerInstance defers argument resolution to every instance creation.
	ResolvePerInstance bool
	New                func(args []any) (any, error)
	// Init runs once when the graph's instances are prepared.
	Init func(args []any) error
	// Constraints apply to every entrypoint owned by the component.
	Constraints []Constraint
}
