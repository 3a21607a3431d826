package flow

import (
	"context"
	"slices"

	"go.trai.ch/conduit/internal/core/domain"
)

// Priority orders entrypoints that do not depend on each other.
type Priority int

// Entrypoint priorities. Dependencies always run first regardless of priority.
const (
	PriorityHigh   = Priority(domain.PriorityHigh)
	PriorityMedium = Priority(domain.PriorityMedium)
	PriorityLow    = Priority(domain.PriorityLow)
)

// Handler executes an entrypoint. Imports are read and exports written through call.
type Handler func(ctx context.Context, call *Call) error

// Entrypoint is a registered unit of work. An Entrypoint is immutable and may be
// used by any number of containers.
type Entrypoint struct {
	name        string
	imports     []domain.Port
	exports     []domain.Port
	constraints []domain.Constraint
	priority    domain.Priority
	async       bool
	owner       *Component
	handler     Handler
}

// EntrypointOption configures an Entrypoint.
type EntrypointOption func(*Entrypoint)

// Imports declares the types the entrypoint consumes.
func Imports(ports ...Port) EntrypointOption {
	return func(e *Entrypoint) {
		for _, p := range ports {
			e.imports = append(e.imports, p.port())
		}
	}
}

// Exports declares the types the entrypoint produces.
func Exports(ports ...Port) EntrypointOption {
	return func(e *Entrypoint) {
		for _, p := range ports {
			e.exports = append(e.exports, p.port())
		}
	}
}

// When runs the entrypoint only if every type is present. The values are not read.
func When(ports ...Port) EntrypointOption {
	return func(e *Entrypoint) {
		e.constraints = appendConstraints(e.constraints, ports, false)
	}
}

// Unless runs the entrypoint only if every type is absent.
func Unless(ports ...Port) EntrypointOption {
	return func(e *Entrypoint) {
		e.constraints = appendConstraints(e.constraints, ports, true)
	}
}

func appendConstraints(dst []domain.Constraint, ports []Port, absent bool) []domain.Constraint {
	for _, p := range ports {
		dst = append(dst, domain.Constraint{Type: p.port().Type, RequiresAbsent: absent})
	}
	return dst
}

// WithPriority sets the entrypoint priority. The default is PriorityMedium.
func WithPriority(p Priority) EntrypointOption {
	return func(e *Entrypoint) {
		e.priority = domain.Priority(p)
	}
}

// Async marks an entrypoint whose handler waits on external work.
func Async() EntrypointOption {
	return func(e *Entrypoint) {
		e.async = true
	}
}

// OwnedBy makes the entrypoint a method of c: the handler receives the component
// instance through Call.Instance.
func OwnedBy(c *Component) EntrypointOption {
	return func(e *Entrypoint) {
		e.owner = c
	}
}

// NewEntrypoint registers handler under name. A nil handler leaves every export absent.
func NewEntrypoint(name string, handler Handler, opts ...EntrypointOption) *Entrypoint {
	e := &Entrypoint{
		name:     name,
		priority: domain.PriorityMedium,
		handler:  handler,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the entrypoint name.
func (e *Entrypoint) Name() string {
	return e.name
}

func (e *Entrypoint) descriptor() *domain.Entrypoint {
	d := &domain.Entrypoint{
		Name:        e.name,
		Kind:        domain.KindComponent,
		Imports:     e.imports,
		Exports:     e.exports,
		Constraints: e.constraints,
		Priority:    e.priority,
		Async:       e.async,
	}
	if e.owner != nil {
		d.Owner = e.owner.c
	}
	if e.handler != nil {
		d.Invoke = func(ctx context.Context, instance any, in, out []domain.Value) error {
			call := Call{ep: e, instance: instance, in: in, out: out}
			return e.handler(ctx, &call)
		}
	}
	return d
}

// Call is the view of one invocation. It is valid only until the handler returns.
type Call struct {
	ep       *Entrypoint
	instance any
	in       []domain.Value
	out      []domain.Value
}

// Instance returns the owning component instance, or nil for static entrypoints.
func (c *Call) Instance() any {
	return c.instance
}

// Name returns the entrypoint name.
func (c *Call) Name() string {
	return c.ep.name
}

func (c *Call) importIndex(t domain.InternedString) int {
	i := slices.IndexFunc(c.ep.imports, func(p domain.Port) bool { return p.Type == t })
	if i < 0 {
		panic("flow: " + t.String() + " is not an import of entrypoint " + c.ep.name)
	}
	return i
}

func (c *Call) exportIndex(t domain.InternedString) int {
	i := slices.IndexFunc(c.ep.exports, func(p domain.Port) bool { return p.Type == t })
	if i < 0 {
		panic("flow: " + t.String() + " is not an export of entrypoint " + c.ep.name)
	}
	return i
}

// Get returns the value of an import. An absent optional import yields the zero value;
// use Lookup to tell absence apart. Get panics if t is not an import of the entrypoint.
func Get[T any](c *Call, t Type[T]) T {
	v, _ := Lookup(c, t).Get()
	return v
}

// Lookup returns the value of an import as an Option. Lookup panics if t is not an
// import of the entrypoint or the import holds a value of another Go type.
func Lookup[T any](c *Call, t Type[T]) Option[T] {
	return optionOf[T](t.id, c.in[c.importIndex(t.id)])
}

// Set writes a present value to an export. Set panics if t is not an export of the entrypoint.
func Set[T any](c *Call, t Type[T], v T) {
	c.out[c.exportIndex(t.id)] = domain.Some(v)
}

// SetOption writes an optional export. An absent option leaves the slot empty.
func SetOption[T any](c *Call, t OptionalType[T], v Option[T]) {
	c.out[c.exportIndex(t.t.id)] = v.value()
}

// InstanceOf returns the owning component instance as C.
func InstanceOf[C any](c *Call) C {
	instance, _ := c.instance.(C)
	return instance
}

// Produce registers an entrypoint that exports one value.
func Produce[T any](
	name string,
	out Type[T],
	fn func(ctx context.Context) (T, error),
	opts ...EntrypointOption,
) *Entrypoint {
	handler := func(ctx context.Context, call *Call) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		Set(call, out, v)
		return nil
	}
	return NewEntrypoint(name, handler, append([]EntrypointOption{Exports(out)}, opts...)...)
}

// Map registers an entrypoint that turns one value into another.
func Map[A, B any](
	name string,
	in Type[A],
	out Type[B],
	fn func(ctx context.Context, a A) (B, error),
	opts ...EntrypointOption,
) *Entrypoint {
	handler := func(ctx context.Context, call *Call) error {
		v, err := fn(ctx, Get(call, in))
		if err != nil {
			return err
		}
		Set(call, out, v)
		return nil
	}
	return NewEntrypoint(name, handler, append([]EntrypointOption{Imports(in), Exports(out)}, opts...)...)
}

// Consume registers an entrypoint that imports one value and exports nothing.
func Consume[A any](
	name string,
	in Type[A],
	fn func(ctx context.Context, a A) error,
	opts ...EntrypointOption,
) *Entrypoint {
	handler := func(ctx context.Context, call *Call) error {
		return fn(ctx, Get(call, in))
	}
	return NewEntrypoint(name, handler, append([]EntrypointOption{Imports(in)}, opts...)...)
}
