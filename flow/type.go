// Package flow is the public API of conduit: typed registration of entrypoints and
// components, containers that run them as one pipeline per invocation, and cached
// containers that memoize whole-pipeline results.
package flow

import (
	"context"
	"fmt"
	"reflect"

	"go.trai.ch/conduit/internal/core/domain"
	"go.trai.ch/zerr"
)

// Port is an imported or exported type reference: a Type or an OptionalType.
type Port interface {
	port() domain.Port
}

// Type identifies the values of one slot. Two Types with the same name refer to the
// same slot whatever their T, so NewType[int]("x") and NewType[string]("x") collide.
// Reading a slot through a Type of the wrong T is a wiring error, not an absence.
type Type[T any] struct {
	id domain.InternedString
}

// NewType creates a Type named name. An empty name uses the Go type name of T.
// Names must be unique per Go type within a container.
func NewType[T any](name string) Type[T] {
	if name == "" {
		name = reflect.TypeFor[T]().String()
	}
	return Type[T]{id: domain.NewInternedString(name)}
}

// Context is the type of the run's context.Context. Every container exports it.
var Context = Type[context.Context]{id: domain.ContextType}

// Name returns the type name.
func (t Type[T]) Name() string {
	return t.id.String()
}

// Optional returns the optional form of t, for imports that accept absence and
// exports that may be left empty.
func (t Type[T]) Optional() OptionalType[T] {
	return OptionalType[T]{t: t}
}

func (t Type[T]) port() domain.Port {
	return domain.Port{Type: t.id}
}

// OptionalType is a Type whose value may be absent.
type OptionalType[T any] struct {
	t Type[T]
}

// Type returns the underlying type.
func (o OptionalType[T]) Type() Type[T] {
	return o.t
}

func (o OptionalType[T]) port() domain.Port {
	return domain.Port{Type: o.t.id, Optional: true}
}

// Option holds a value that may be absent.
type Option[T any] struct {
	v  T
	ok bool
}

// Some returns a present Option.
func Some[T any](v T) Option[T] {
	return Option[T]{v: v, ok: true}
}

// None returns an absent Option.
func None[T any]() Option[T] {
	return Option[T]{}
}

// Get returns the value and whether it is present.
func (o Option[T]) Get() (T, bool) {
	return o.v, o.ok
}

// IsPresent reports whether the value is present.
func (o Option[T]) IsPresent() bool {
	return o.ok
}

// OrElse returns the value, or def when it is absent.
func (o Option[T]) OrElse(def T) T {
	if !o.ok {
		return def
	}
	return o.v
}

func (o Option[T]) value() domain.Value {
	if !o.ok {
		return domain.None()
	}
	return domain.Some(o.v)
}

// typedOption converts a slot value. A present value of another Go type than T fails
// with domain.ErrTypeMismatch.
func typedOption[T any](id domain.InternedString, v domain.Value) (Option[T], error) {
	if !v.Present {
		return Option[T]{}, nil
	}
	t, ok := v.V.(T)
	if !ok {
		return Option[T]{}, zerr.With(zerr.With(zerr.With(domain.ErrTypeMismatch,
			"type", id.String()),
			"want", reflect.TypeFor[T]().String()),
			"got", fmt.Sprintf("%T", v.V))
	}
	return Option[T]{v: t, ok: true}, nil
}

// optionOf is typedOption for callers where a mismatch is a programming error; it panics.
func optionOf[T any](id domain.InternedString, v domain.Value) Option[T] {
	o, err := typedOption[T](id, v)
	if err != nil {
		panic("flow: " + err.Error())
	}
	return o
}

// valuer is implemented by every Option instantiation.
type valuer interface {
	value() domain.Value
}
