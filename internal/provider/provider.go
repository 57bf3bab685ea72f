// Package provider implements lazily resolved values. A Provider does not
// compute anything until Get is called, and it always knows which tasks
// must run before its value is meaningful.
package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingValue is returned when a property is resolved before any
	// source was set on it.
	ErrMissingValue = errors.New("provider: no value")

	// ErrBindingViolation is returned when a sealed property is mutated.
	ErrBindingViolation = errors.New("provider: binding violation")
)

// Provider is a deferred value together with the names of the tasks that
// produce it.
type Provider[T any] interface {
	// Get resolves the value. It may be called many times and must return
	// the same value as long as nothing upstream was re-pointed.
	Get() (T, error)

	// Producers lists the tasks whose outputs this value reads, in the order
	// they were first seen. It never resolves anything.
	Producers() []string
}

// BindingViolationError reports a write to a sealed property.
type BindingViolationError struct {
	Property string
}

func (e *BindingViolationError) Error() string {
	return fmt.Sprintf("provider: property %q is sealed", e.Property)
}

func (e *BindingViolationError) Unwrap() error { return ErrBindingViolation }

// ---------- Constructors ----------

type fixed[T any] struct {
	value T
}

// Of returns a provider that always resolves to v and has no producers.
func Of[T any](v T) Provider[T] {
	return fixed[T]{value: v}
}

func (f fixed[T]) Get() (T, error)     { return f.value, nil }
func (f fixed[T]) Producers() []string { return nil }

type thunk[T any] struct {
	fn        func() (T, error)
	producers []string
}

// New returns a provider backed by fn, which is called on every Get.
func New[T any](fn func() (T, error), producers ...string) Provider[T] {
	return &thunk[T]{fn: fn, producers: producers}
}

func (t *thunk[T]) Get() (T, error) { return t.fn() }

func (t *thunk[T]) Producers() []string { return t.producers }

type mapped[T, U any] struct {
	src Provider[T]
	fn  func(T) U
}

// Map derives a provider whose value is fn applied to the value of p.
func Map[T, U any](p Provider[T], fn func(T) U) Provider[U] {
	return &mapped[T, U]{src: p, fn: fn}
}

func (m *mapped[T, U]) Get() (U, error) {
	v, err := m.src.Get()
	if err != nil {
		var zero U
		return zero, err
	}
	return m.fn(v), nil
}

func (m *mapped[T, U]) Producers() []string { return m.src.Producers() }

type flatMapped[T, U any] struct {
	src Provider[T]
	fn  func(T) (Provider[U], error)
}

// FlatMap derives a provider by resolving p and then resolving the provider
// fn returns for it. The producers are those of p; the second hop is
// expected to be owned by whatever p resolves to (typically a task and one
// of its output fields).
func FlatMap[T, U any](p Provider[T], fn func(T) (Provider[U], error)) Provider[U] {
	return &flatMapped[T, U]{src: p, fn: fn}
}

func (f *flatMapped[T, U]) Get() (U, error) {
	var zero U
	v, err := f.src.Get()
	if err != nil {
		return zero, err
	}
	next, err := f.fn(v)
	if err != nil {
		return zero, err
	}
	return next.Get()
}

func (f *flatMapped[T, U]) Producers() []string { return f.src.Producers() }

type readOnly[T any] struct {
	src Provider[T]
}

// ReadOnly hides any setter p has. The view still reads through to p.
func ReadOnly[T any](p Provider[T]) Provider[T] {
	return readOnly[T]{src: p}
}

func (r readOnly[T]) Get() (T, error)     { return r.src.Get() }
func (r readOnly[T]) Producers() []string { return r.src.Producers() }

// mergeProducers concatenates producer lists, dropping repeats.
func mergeProducers(lists ...[]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, l := range lists {
		for _, name := range l {
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
