package holder

import (
	"fmt"

	"github.com/dusk-indust/buildgraph/internal/artifact"
	"github.com/dusk-indust/buildgraph/internal/provider"
	"github.com/dusk-indust/buildgraph/internal/task"
)

// Field accessors name which field of a task is the input or the output.
// They are called at realization time, once per task.
type (
	FieldFunc[T task.Task]     func(T) *artifact.LocationProperty
	ListFieldFunc[T task.Task] func(T) *artifact.LocationListProperty
)

// Produces registers th as the origin of k, writing through output.
//
// For single-value kinds this is the sole origin and a second call fails
// with AlreadyInitializedError. For multi-value kinds th becomes one of the
// origin contributions the first transform reads; HasAppend stays false.
func Produces[T task.Task](h *Holder, k artifact.Kind, th *task.Handle[T], output FieldFunc[T]) error {
	s, m, err := h.slotFor(k)
	if err != nil {
		return err
	}
	if m != nil {
		if err := m.addOrigin(th.Name(), outputOf(th, output)); err != nil {
			return err
		}
		h.record(k, th.Name(), RoleOrigin)
		return bindOutput(th, k, output, h.scratch(k, th.Name()))
	}
	return produceSingle(h, s, RoleOrigin, th, output)
}

// Replace registers th as the origin of k in place of the default producer.
// The single-origin rule is shared with Produces.
func Replace[T task.Task](h *Holder, k artifact.SingleKind, th *task.Handle[T], output FieldFunc[T]) error {
	s, err := h.single(k)
	if err != nil {
		return err
	}
	return produceSingle(h, s, RoleReplace, th, output)
}

func produceSingle[T task.Task](h *Holder, s *singleSlot, role Role, th *task.Handle[T], output FieldFunc[T]) error {
	// An origin registered after transforms is not the newest stage.
	latest := !s.hasTransforms()
	if err := s.produce(th.Name(), role, outputOf(th, output)); err != nil {
		return err
	}
	loc := s.stageLocation(h.layout, th.Name(), latest)
	h.record(s.kind, th.Name(), role)
	return bindOutput(th, s.kind, output, fixedLocation(loc))
}

// Append adds th's output to the list the next transform of k reads.
func Append[T task.Task](h *Holder, k artifact.MultiKind, th *task.Handle[T], output FieldFunc[T]) error {
	m, err := h.multi(k)
	if err != nil {
		return err
	}
	if err := m.append(th.Name(), outputOf(th, output)); err != nil {
		return err
	}
	h.record(k, th.Name(), RoleAppend)
	return bindOutput(th, k, output, h.scratch(k, th.Name()))
}

// Transform inserts th as the newest stage of a single-value kind. input is
// bound to the value before this call, output becomes the new final value.
func Transform[T task.Task](h *Holder, k artifact.SingleKind, th *task.Handle[T], input, output FieldFunc[T]) error {
	s, err := h.single(k)
	if err != nil {
		return err
	}
	prior, err := s.transform(th.Name(), outputOf(th, output))
	if err != nil {
		return err
	}
	loc := s.stageLocation(h.layout, th.Name(), true)
	h.record(k, th.Name(), RoleTransform)
	if err := bindInput(th, k, input, prior); err != nil {
		return err
	}
	return bindOutput(th, k, output, fixedLocation(loc))
}

// TransformList inserts th as the newest stage of a multi-value kind. input
// receives every contribution registered since the previous transform (or
// since the start), output becomes the single base element of the list.
func TransformList[T task.Task](h *Holder, k artifact.MultiKind, th *task.Handle[T], input ListFieldFunc[T], output FieldFunc[T]) error {
	m, err := h.multi(k)
	if err != nil {
		return err
	}
	prior, err := m.transform(th.Name(), outputOf(th, output))
	if err != nil {
		return err
	}
	h.record(k, th.Name(), RoleTransform)
	if err := bindListInput(th, k, input, prior); err != nil {
		return err
	}
	return bindOutput(th, k, output, h.scratch(k, th.Name()))
}

// Consume binds input to the final value of a single-value kind.
func Consume[T task.Task](h *Holder, k artifact.SingleKind, th *task.Handle[T], input FieldFunc[T]) error {
	s, err := h.single(k)
	if err != nil {
		return err
	}
	h.record(k, th.Name(), RoleConsume)
	return bindInput(th, k, input, s.get())
}

// ConsumeList binds a list field to the final value of k. A single-value
// kind is presented as a one-element list.
func ConsumeList[T task.Task](h *Holder, k artifact.Kind, th *task.Handle[T], input ListFieldFunc[T]) error {
	s, m, err := h.slotFor(k)
	if err != nil {
		return err
	}
	var src provider.Provider[[]artifact.Location]
	if m != nil {
		src = m.get()
	} else {
		src = provider.Map(s.get(), func(l artifact.Location) []artifact.Location {
			return []artifact.Location{l}
		})
	}
	h.record(k, th.Name(), RoleConsume)
	return bindListInput(th, k, input, src)
}

// ---------- Adapter ----------

func (h *Holder) scratch(k artifact.Kind, taskName string) func(artifact.Shape) provider.Provider[artifact.Location] {
	return func(shape artifact.Shape) provider.Provider[artifact.Location] {
		return provider.Of(h.layout.Intermediate(k, taskName, shape))
	}
}

func fixedLocation(loc provider.Provider[artifact.Location]) func(artifact.Shape) provider.Provider[artifact.Location] {
	return func(artifact.Shape) provider.Provider[artifact.Location] { return loc }
}

// outputOf is the value a task's output field will hold, as seen by readers.
// Its producer is the task itself.
func outputOf[T task.Task](th *task.Handle[T], output FieldFunc[T]) provider.Provider[artifact.Location] {
	return provider.FlatMap[T, artifact.Location](th, func(t T) (provider.Provider[artifact.Location], error) {
		f := output(t)
		if f == nil {
			return nil, fmt.Errorf("task %s: output field is nil", th.Name())
		}
		return f, nil
	})
}

// bindOutput queues, for realization time, binding the output field to its
// location, sealing it and tracking it as an output.
func bindOutput[T task.Task](th *task.Handle[T], k artifact.Kind, output FieldFunc[T], location func(artifact.Shape) provider.Provider[artifact.Location]) error {
	return th.Configure(func(t T) error {
		f := output(t)
		if f == nil {
			return fmt.Errorf("task %s: output field for %s is nil", th.Name(), k)
		}
		if !artifact.Accepts(k.Shape(), f.Shape()) {
			return &artifact.UnexpectedValueShapeError{Kind: k, Task: th.Name(), Field: f.Name(), Want: k.Shape(), Got: f.Shape()}
		}
		if err := f.Set(location(f.Shape())); err != nil {
			return err
		}
		f.Seal()
		return t.TaskBase().TrackOutput(task.Output{Name: f.Name(), Value: f})
	})
}

// bindInput queues binding a single input field to src and tracking it with
// k's comparison metadata.
func bindInput[T task.Task](th *task.Handle[T], k artifact.Kind, input FieldFunc[T], src provider.Provider[artifact.Location]) error {
	return th.Configure(func(t T) error {
		f := input(t)
		if f == nil {
			return fmt.Errorf("task %s: input field for %s is nil", th.Name(), k)
		}
		if !artifact.Accepts(f.Shape(), k.Shape()) {
			return &artifact.UnexpectedValueShapeError{Kind: k, Task: th.Name(), Field: f.Name(), Want: k.Shape(), Got: f.Shape()}
		}
		if err := f.Set(src); err != nil {
			return err
		}
		f.Seal()
		return t.TaskBase().TrackInput(trackedInput(k, f.Name(), f))
	})
}

// bindListInput is bindInput for list fields.
func bindListInput[T task.Task](th *task.Handle[T], k artifact.Kind, input ListFieldFunc[T], src provider.Provider[[]artifact.Location]) error {
	return th.Configure(func(t T) error {
		f := input(t)
		if f == nil {
			return fmt.Errorf("task %s: input field for %s is nil", th.Name(), k)
		}
		if !artifact.Accepts(f.Shape(), k.Shape()) {
			return &artifact.UnexpectedValueShapeError{Kind: k, Task: th.Name(), Field: f.Name(), Want: k.Shape(), Got: f.Shape()}
		}
		if err := f.Set(src); err != nil {
			return err
		}
		f.Seal()
		return t.TaskBase().TrackInput(trackedInput(k, f.Name(), f))
	})
}

func trackedInput(k artifact.Kind, name string, v task.Value) task.Input {
	return task.Input{
		Name:        name,
		Value:       v,
		Sensitivity: k.Sensitivity(),
		Normalizer:  k.Normalizer(),
	}
}
