// Package task is the host-side task model the artifact registry wires into.
// Tasks are registered by name with a factory, realized lazily the first time
// something needs them, and configured by deferred actions applied in
// registration order at realization.
package task

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dusk-indust/buildgraph/internal/artifact"
)

var (
	ErrDuplicateTask = errors.New("task already registered")
	ErrUnknownTask   = errors.New("unknown task")
)

// Task is a unit of work that the executor runs at most once per build.
type Task interface {
	Name() string
	Execute(ctx context.Context) error

	// TaskBase exposes the tracked inputs, outputs and explicit
	// dependencies. Embedding Base provides it.
	TaskBase() *Base
}

// Value is anything that can be tracked as a task input or output.
type Value interface {
	Producers() []string
	Locations() ([]artifact.Location, error)
}

// Dependency is anything that names the tasks producing it.
type Dependency interface {
	Producers() []string
}

// Input is a tracked input field with the comparison metadata the executor
// uses for invalidation.
type Input struct {
	Name        string
	Value       Value
	Sensitivity artifact.Sensitivity
	Normalizer  artifact.Normalizer
}

// Output is a tracked output field.
type Output struct {
	Name  string
	Value Value
}

// Base carries the bookkeeping shared by every task. Embed it by value and
// initialize it with NewBase.
type Base struct {
	name    string
	inputs  []Input
	outputs []Output
	deps    []Dependency
}

// NewBase returns the base for a task called name.
func NewBase(name string) Base {
	return Base{name: name}
}

func (b *Base) Name() string { return b.name }

func (b *Base) TaskBase() *Base { return b }

// TrackInput registers a tracked input. Registering the same field name
// twice is an error.
func (b *Base) TrackInput(in Input) error {
	for _, existing := range b.inputs {
		if existing.Name == in.Name {
			return fmt.Errorf("task %s: input %q already tracked", b.name, in.Name)
		}
	}
	b.inputs = append(b.inputs, in)
	return nil
}

// TrackOutput registers a tracked output.
func (b *Base) TrackOutput(out Output) error {
	for _, existing := range b.outputs {
		if existing.Name == out.Name {
			return fmt.Errorf("task %s: output %q already tracked", b.name, out.Name)
		}
	}
	b.outputs = append(b.outputs, out)
	return nil
}

// DependsOn adds explicit ordering dependencies that are not inputs.
func (b *Base) DependsOn(deps ...Dependency) {
	b.deps = append(b.deps, deps...)
}

// Inputs returns the tracked inputs in registration order.
func (b *Base) Inputs() []Input { return slices.Clone(b.inputs) }

// Outputs returns the tracked outputs in registration order.
func (b *Base) Outputs() []Output { return slices.Clone(b.outputs) }

// Dependencies returns the names of every task that must run before this
// one: producers of tracked inputs followed by explicit dependencies. The
// task itself is never listed.
func (b *Base) Dependencies() []string {
	var out []string
	seen := map[string]bool{b.name: true}
	add := func(names []string) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	for _, in := range b.inputs {
		add(in.Value.Producers())
	}
	for _, d := range b.deps {
		add(d.Producers())
	}
	return out
}
