package provider

import (
	"fmt"
	"sync"
)

// Option configures a Property.
type Option func(*options)

type options struct {
	missing func() error
}

// WithMissing sets the error a property reports when it is resolved without
// a source.
func WithMissing(fn func() error) Option {
	return func(o *options) { o.missing = fn }
}

// Property is a settable cell that reads through to its current source.
// Re-pointing the source is visible to everyone who already holds the
// property. Once sealed, the source can no longer change.
type Property[T any] struct {
	mu      sync.RWMutex
	name    string
	source  Provider[T]
	sealed  bool
	missing func() error
}

var _ Provider[int] = (*Property[int])(nil)

// NewProperty returns an empty property.
func NewProperty[T any](name string, opts ...Option) *Property[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Property[T]{name: name, missing: o.missing}
}

// Name returns the property name used in errors and tracked inputs.
func (p *Property[T]) Name() string { return p.name }

// Set points the property at src.
func (p *Property[T]) Set(src Provider[T]) error {
	if src == Provider[T](p) {
		return fmt.Errorf("provider: property %q cannot read from itself", p.name)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sealed {
		return &BindingViolationError{Property: p.name}
	}
	p.source = src
	return nil
}

// SetValue points the property at a fixed value.
func (p *Property[T]) SetValue(v T) error {
	return p.Set(Of(v))
}

// Seal forbids any further Set. Sealing twice is a no-op.
func (p *Property[T]) Seal() {
	p.mu.Lock()
	p.sealed = true
	p.mu.Unlock()
}

// Sealed reports whether Seal was called.
func (p *Property[T]) Sealed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sealed
}

// IsPresent reports whether a source was set. It does not resolve it.
func (p *Property[T]) IsPresent() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.source != nil
}

// Get resolves the current source.
func (p *Property[T]) Get() (T, error) {
	p.mu.RLock()
	src := p.source
	p.mu.RUnlock()

	if src == nil {
		var zero T
		if p.missing != nil {
			return zero, p.missing()
		}
		return zero, fmt.Errorf("%w: %s", ErrMissingValue, p.name)
	}
	return src.Get()
}

// Producers returns the producers of the current source.
func (p *Property[T]) Producers() []string {
	p.mu.RLock()
	src := p.source
	p.mu.RUnlock()
	if src == nil {
		return nil
	}
	return src.Producers()
}

// ListProperty is an ordered list assembled from element and sub-list
// providers. Get concatenates them in the order they were added.
type ListProperty[T any] struct {
	mu      sync.RWMutex
	name    string
	sources []Provider[[]T]
	sealed  bool
}

var _ Provider[[]int] = (*ListProperty[int])(nil)

// NewListProperty returns an empty list. An empty list resolves to a
// zero-length slice, not an error.
func NewListProperty[T any](name string) *ListProperty[T] {
	return &ListProperty[T]{name: name}
}

// Name returns the property name.
func (l *ListProperty[T]) Name() string { return l.name }

// Add appends a single element.
func (l *ListProperty[T]) Add(p Provider[T]) error {
	return l.AddAll(Map(p, func(v T) []T { return []T{v} }))
}

// AddAll appends every element p resolves to.
func (l *ListProperty[T]) AddAll(p Provider[[]T]) error {
	if p == Provider[[]T](l) {
		return fmt.Errorf("provider: list %q cannot contain itself", l.name)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sealed {
		return &BindingViolationError{Property: l.name}
	}
	l.sources = append(l.sources, p)
	return nil
}

// Set discards previous contributions and reads everything from p.
func (l *ListProperty[T]) Set(p Provider[[]T]) error {
	if p == Provider[[]T](l) {
		return fmt.Errorf("provider: list %q cannot contain itself", l.name)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sealed {
		return &BindingViolationError{Property: l.name}
	}
	l.sources = []Provider[[]T]{p}
	return nil
}

// Len returns the number of contributions, not the resolved length.
func (l *ListProperty[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.sources)
}

// Seal forbids further Add, AddAll and Set calls.
func (l *ListProperty[T]) Seal() {
	l.mu.Lock()
	l.sealed = true
	l.mu.Unlock()
}

// Sealed reports whether Seal was called.
func (l *ListProperty[T]) Sealed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sealed
}

// Get resolves every contribution and concatenates the results.
func (l *ListProperty[T]) Get() ([]T, error) {
	l.mu.RLock()
	sources := append([]Provider[[]T](nil), l.sources...)
	l.mu.RUnlock()

	out := make([]T, 0, len(sources))
	for _, src := range sources {
		vs, err := src.Get()
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", l.name, err)
		}
		out = append(out, vs...)
	}
	return out, nil
}

// Producers returns the union of the contributions' producers.
func (l *ListProperty[T]) Producers() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	lists := make([][]string, 0, len(l.sources))
	for _, src := range l.sources {
		lists = append(lists, src.Producers())
	}
	return mergeProducers(lists...)
}
