package holder

import (
	"github.com/dusk-indust/buildgraph/internal/artifact"
	"github.com/dusk-indust/buildgraph/internal/task"
)

// Handler builds a replacement task that reads several artifacts at once.
// The first error sticks; later calls are no-ops and Finish returns it.
//
//	th, err := holder.ReplaceTask(h, artifact.Package, "newPackager", newPackager, packagerOutput).
//		Input(artifact.MergedManifest, packagerManifest).
//		InputList(artifact.Bytecode, packagerBytecode).
//		Finish(nil)
type Handler[T task.Task] struct {
	holder *Holder
	handle *task.Handle[T]
	err    error
}

// ReplaceTask registers a new task called name as the sole origin of k.
func ReplaceTask[T task.Task](h *Holder, k artifact.SingleKind, name string, newTask func(name string) T, output FieldFunc[T]) *Handler[T] {
	th, err := task.Register(h.tasks, name, newTask)
	if err != nil {
		return &Handler[T]{holder: h, err: err}
	}
	return &Handler[T]{holder: h, handle: th, err: Replace(h, k, th, output)}
}

// Input binds a single field of the replacement to the final value of k and
// tracks it with k's metadata.
func (hd *Handler[T]) Input(k artifact.SingleKind, field FieldFunc[T]) *Handler[T] {
	if hd.err == nil {
		hd.err = Consume(hd.holder, k, hd.handle, field)
	}
	return hd
}

// InputList binds a list field of the replacement to the final value of k.
func (hd *Handler[T]) InputList(k artifact.Kind, field ListFieldFunc[T]) *Handler[T] {
	if hd.err == nil {
		hd.err = ConsumeList(hd.holder, k, hd.handle, field)
	}
	return hd
}

// Finish queues configure, if any, and returns the task handle.
func (hd *Handler[T]) Finish(configure func(T) error) (*task.Handle[T], error) {
	if hd.err != nil {
		return nil, hd.err
	}
	if configure != nil {
		if err := hd.handle.Configure(configure); err != nil {
			return nil, err
		}
	}
	return hd.handle, nil
}
