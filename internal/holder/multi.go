package holder

import (
	"github.com/dusk-indust/buildgraph/internal/artifact"
	"github.com/dusk-indust/buildgraph/internal/provider"
)

// multiSlot tracks one list-valued artifact.
//
// Origins always land in first, which is what the first transform reads.
// Appends land in tail: the list the next transform will read, or the
// final value if no transform follows. Each transform seals off the current
// tail as its input and starts a new tail holding only its own output, so an
// append is seen only by transforms registered after it.
type multiSlot struct {
	kind  artifact.MultiKind
	first *provider.ListProperty[artifact.Location]
	tail  *provider.ListProperty[artifact.Location]
	final *provider.Property[[]artifact.Location]

	members    map[string]Role
	origins    []string
	appends    []string
	transforms []string
}

func newMultiSlot(k artifact.MultiKind) *multiSlot {
	first := provider.NewListProperty[artifact.Location](k.ID())
	final := provider.NewProperty[[]artifact.Location](k.ID() + ".final")
	_ = final.Set(first)
	return &multiSlot{
		kind:    k,
		first:   first,
		tail:    first,
		final:   final,
		members: make(map[string]Role),
	}
}

func (m *multiSlot) admit(taskName string, role Role) error {
	if existing, ok := m.members[taskName]; ok {
		return &artifact.ConflictingStageError{Kind: m.kind, Task: taskName, Existing: string(existing), Rejected: string(role)}
	}
	m.members[taskName] = role
	return nil
}

// addOrigin registers a first-party contribution read by the first
// transform, regardless of how many transforms were registered already.
func (m *multiSlot) addOrigin(taskName string, value provider.Provider[artifact.Location]) error {
	if err := m.admit(taskName, RoleOrigin); err != nil {
		return err
	}
	if err := m.first.Add(value); err != nil {
		return err
	}
	m.origins = append(m.origins, taskName)
	return nil
}

func (m *multiSlot) append(taskName string, value provider.Provider[artifact.Location]) error {
	if err := m.admit(taskName, RoleAppend); err != nil {
		return err
	}
	if err := m.tail.Add(value); err != nil {
		return err
	}
	m.appends = append(m.appends, taskName)
	return nil
}

// transform returns the list the stage must read and makes its single
// output the base of everything registered afterwards.
func (m *multiSlot) transform(taskName string, output provider.Provider[artifact.Location]) (provider.Provider[[]artifact.Location], error) {
	if err := m.admit(taskName, RoleTransform); err != nil {
		return nil, err
	}
	next := provider.NewListProperty[artifact.Location](m.kind.ID() + "." + taskName)
	if err := next.Add(output); err != nil {
		return nil, err
	}
	if err := m.final.Set(next); err != nil {
		return nil, err
	}
	prior := m.tail
	if prior != m.first {
		prior.Seal()
	}
	m.tail = next
	m.transforms = append(m.transforms, taskName)
	return provider.ReadOnly[[]artifact.Location](prior), nil
}

func (m *multiSlot) get() provider.Provider[[]artifact.Location] {
	return provider.ReadOnly[[]artifact.Location](m.final)
}

func (m *multiSlot) hasAppend() bool     { return len(m.appends) > 0 }
func (m *multiSlot) hasTransforms() bool { return len(m.transforms) > 0 }
