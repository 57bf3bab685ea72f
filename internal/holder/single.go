package holder

import (
	"slices"

	"github.com/dusk-indust/buildgraph/internal/artifact"
	"github.com/dusk-indust/buildgraph/internal/provider"
)

// singleSlot tracks one single-value artifact.
//
// first is the origin's output; it stays empty (and resolves to
// UnresolvedArtifactError) until produce is called. current is the newest
// stage's output and final reads through to it. Transforms capture current
// before replacing it, so each stage reads exactly the stage before it even
// when the origin is registered after the transforms.
type singleSlot struct {
	kind    artifact.SingleKind
	first   *provider.Property[artifact.Location]
	current provider.Provider[artifact.Location]
	final   *provider.Property[artifact.Location]

	initialized bool
	origin      string
	originRole  Role
	transforms  []string

	// lastLocation is the placeholder the newest stage writes to. Only
	// output kinds have one; finalize retargets it to the canonical path.
	lastLocation *provider.Property[artifact.Location]
}

func newSingleSlot(k artifact.SingleKind) *singleSlot {
	first := provider.NewProperty[artifact.Location](k.ID(), provider.WithMissing(func() error {
		return &artifact.UnresolvedArtifactError{Kind: k}
	}))
	final := provider.NewProperty[artifact.Location](k.ID() + ".final")
	_ = final.Set(first)
	return &singleSlot{kind: k, first: first, current: first, final: final}
}

func (s *singleSlot) roleOf(taskName string) (Role, bool) {
	if s.initialized && s.origin == taskName {
		return s.originRole, true
	}
	if slices.Contains(s.transforms, taskName) {
		return RoleTransform, true
	}
	return "", false
}

// produce registers the origin. role is RoleOrigin or RoleReplace; both are
// bound by the same single-origin rule.
func (s *singleSlot) produce(taskName string, role Role, value provider.Provider[artifact.Location]) error {
	if s.initialized {
		return &artifact.AlreadyInitializedError{Kind: s.kind, Origin: s.origin, Rejected: taskName}
	}
	if existing, ok := s.roleOf(taskName); ok {
		return &artifact.ConflictingStageError{Kind: s.kind, Task: taskName, Existing: string(existing), Rejected: string(role)}
	}
	if err := s.first.Set(value); err != nil {
		return err
	}
	s.initialized = true
	s.origin = taskName
	s.originRole = role
	return nil
}

// transform makes output the new current value and returns the value the
// stage must read.
func (s *singleSlot) transform(taskName string, output provider.Provider[artifact.Location]) (provider.Provider[artifact.Location], error) {
	if existing, ok := s.roleOf(taskName); ok {
		return nil, &artifact.ConflictingStageError{Kind: s.kind, Task: taskName, Existing: string(existing), Rejected: string(RoleTransform)}
	}
	if err := s.final.Set(output); err != nil {
		return nil, err
	}
	prior := s.current
	s.current = output
	s.transforms = append(s.transforms, taskName)
	return prior, nil
}

// stageLocation returns where a stage registered by taskName writes. Non
// output kinds always write to scratch. For output kinds the location is a
// placeholder; when latest is set it becomes the one finalize retargets.
func (s *singleSlot) stageLocation(layout Layout, taskName string, latest bool) provider.Provider[artifact.Location] {
	scratch := layout.Intermediate(s.kind, taskName, s.kind.Shape())
	if !s.kind.IsOutput() {
		return provider.Of(scratch)
	}
	loc := provider.NewProperty[artifact.Location](s.kind.ID() + "." + taskName + ".location")
	_ = loc.SetValue(scratch)
	if latest {
		s.lastLocation = loc
	}
	return loc
}

// finalizeOutputLocation points the newest stage at the canonical output
// path. Calling it again is harmless; calling it before the last transform
// is registered leaves that transform in scratch.
func (s *singleSlot) finalizeOutputLocation(layout Layout) bool {
	if !s.kind.IsOutput() || s.lastLocation == nil {
		return false
	}
	_ = s.lastLocation.SetValue(layout.Output(s.kind, s.kind.Shape()))
	return true
}

func (s *singleSlot) get() provider.Provider[artifact.Location] {
	return provider.ReadOnly[artifact.Location](s.final)
}

func (s *singleSlot) hasTransforms() bool { return len(s.transforms) > 0 }
