// Package holder is the artifact registry. One Holder is built per
// configuration pass; task-creation code registers origins, appends and
// transforms against it, consumers read the always-current final value, and
// FinalizeLocations runs once at the end to move the last stage of every
// output kind into the canonical output directory.
//
// Registration is single-threaded. Resolution of the providers the holder
// hands out may happen later and concurrently.
package holder

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/dusk-indust/buildgraph/internal/artifact"
	"github.com/dusk-indust/buildgraph/internal/provider"
	"github.com/dusk-indust/buildgraph/internal/task"
)

// Holder aggregates one slot per artifact kind.
type Holder struct {
	layout Layout
	tasks  *task.Container
	logger *slog.Logger

	singles map[artifact.Kind]*singleSlot
	multis  map[artifact.Kind]*multiSlot

	stages    []Stage
	finalized bool
}

// New returns a holder with an empty slot for every declared kind. Tasks
// registered through the holder go into tasks.
func New(layout Layout, tasks *task.Container, logger *slog.Logger) *Holder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &Holder{
		layout:  layout,
		tasks:   tasks,
		logger:  logger,
		singles: make(map[artifact.Kind]*singleSlot),
		multis:  make(map[artifact.Kind]*multiSlot),
	}
	for _, k := range artifact.All() {
		switch k := k.(type) {
		case artifact.SingleKind:
			h.singles[k] = newSingleSlot(k)
		case artifact.MultiKind:
			h.multis[k] = newMultiSlot(k)
		}
	}
	return h
}

// Layout returns the location layout used for every stage.
func (h *Holder) Layout() Layout { return h.layout }

// Tasks returns the container the holder registers tasks into.
func (h *Holder) Tasks() *task.Container { return h.tasks }

// ---------- Dispatch ----------

func (h *Holder) slotFor(k artifact.Kind) (*singleSlot, *multiSlot, error) {
	if !artifact.Known(k) {
		return nil, nil, &artifact.UnsupportedArtifactKindError{Kind: k}
	}
	switch k.(type) {
	case artifact.SingleKind:
		if s, ok := h.singles[k]; ok {
			return s, nil, nil
		}
	case artifact.MultiKind:
		if m, ok := h.multis[k]; ok {
			return nil, m, nil
		}
	}
	return nil, nil, &artifact.UnsupportedArtifactKindError{Kind: k}
}

func (h *Holder) single(k artifact.SingleKind) (*singleSlot, error) {
	s, _, err := h.slotFor(k)
	return s, err
}

func (h *Holder) multi(k artifact.MultiKind) (*multiSlot, error) {
	_, m, err := h.slotFor(k)
	return m, err
}

// ---------- Reads ----------

// Single returns the final value of a single-value kind. The provider reads
// through: stages registered after this call are still reflected. Resolving
// it fails with UnresolvedArtifactError if no origin is ever registered.
func (h *Holder) Single(k artifact.SingleKind) (provider.Provider[artifact.Location], error) {
	s, err := h.single(k)
	if err != nil {
		return nil, err
	}
	return s.get(), nil
}

// Multi returns the final list of a multi-value kind. An artifact nobody
// contributed to resolves to an empty list.
func (h *Holder) Multi(k artifact.MultiKind) (provider.Provider[[]artifact.Location], error) {
	m, err := h.multi(k)
	if err != nil {
		return nil, err
	}
	return m.get(), nil
}

// Resolve resolves the final value of any kind as a list.
func (h *Holder) Resolve(k artifact.Kind) ([]artifact.Location, error) {
	s, m, err := h.slotFor(k)
	if err != nil {
		return nil, err
	}
	if m != nil {
		return m.get().Get()
	}
	loc, err := s.get().Get()
	if err != nil {
		return nil, err
	}
	return []artifact.Location{loc}, nil
}

// HasProducer reports whether an origin was registered for k.
func (h *Holder) HasProducer(k artifact.SingleKind) (bool, error) {
	s, err := h.single(k)
	if err != nil {
		return false, err
	}
	return s.initialized, nil
}

// HasTransforms reports whether any transform was registered for k.
func (h *Holder) HasTransforms(k artifact.Kind) (bool, error) {
	s, m, err := h.slotFor(k)
	if err != nil {
		return false, err
	}
	if m != nil {
		return m.hasTransforms(), nil
	}
	return s.hasTransforms(), nil
}

// HasAppend reports whether anything was appended to k. Origins registered
// with Produces do not count.
func (h *Holder) HasAppend(k artifact.MultiKind) (bool, error) {
	m, err := h.multi(k)
	if err != nil {
		return false, err
	}
	return m.hasAppend(), nil
}

// ---------- Finalization ----------

// FinalizeLocations retargets the newest stage of every output kind to the
// canonical output location. It must run after all task creation for the
// pass. Registrations after it are accepted but logged, since they leave
// the new stage in scratch.
func (h *Holder) FinalizeLocations() error {
	for _, k := range artifact.All() {
		if !k.IsOutput() {
			continue
		}
		sk, ok := k.(artifact.SingleKind)
		if !ok {
			return fmt.Errorf("holder: output kind %s is not single-valued", k)
		}
		s, err := h.single(sk)
		if err != nil {
			return err
		}
		if s.finalizeOutputLocation(h.layout) {
			h.logger.Debug("output location finalized", "kind", k.ID(),
				"path", h.layout.Output(k, k.Shape()).Path)
		}
	}
	h.finalized = true
	return nil
}

// Finalized reports whether FinalizeLocations ran.
func (h *Holder) Finalized() bool { return h.finalized }

// ---------- Introspection ----------

// Stages returns every registration in call order.
func (h *Holder) Stages() []Stage { return slices.Clone(h.stages) }

// SlotState summarizes one slot for reporting.
type SlotState struct {
	Kind        string   `json:"kind"`
	Cardinality string   `json:"cardinality"`
	Shape       string   `json:"shape"`
	IsOutput    bool     `json:"isOutput"`
	Sensitivity string   `json:"sensitivity"`
	Normalizer  string   `json:"normalizer"`
	Initialized bool     `json:"initialized"`
	Origins     []string `json:"origins,omitempty"`
	Appends     []string `json:"appends,omitempty"`
	Transforms  []string `json:"transforms,omitempty"`
	Consumers   []string `json:"consumers,omitempty"`
}

// State describes the slot of k.
func (h *Holder) State(k artifact.Kind) (SlotState, error) {
	s, m, err := h.slotFor(k)
	if err != nil {
		return SlotState{}, err
	}
	st := SlotState{
		Kind:        k.ID(),
		Cardinality: k.Cardinality().String(),
		Shape:       k.Shape().String(),
		IsOutput:    k.IsOutput(),
		Sensitivity: k.Sensitivity().String(),
		Normalizer:  k.Normalizer().String(),
	}
	if m != nil {
		st.Initialized = len(m.origins) > 0 || len(m.appends) > 0
		st.Origins = slices.Clone(m.origins)
		st.Appends = slices.Clone(m.appends)
		st.Transforms = slices.Clone(m.transforms)
	} else {
		st.Initialized = s.initialized
		if s.initialized {
			st.Origins = []string{s.origin}
		}
		st.Transforms = slices.Clone(s.transforms)
	}
	for _, stage := range h.stages {
		if stage.Role == RoleConsume && stage.Kind == k {
			st.Consumers = append(st.Consumers, stage.Task)
		}
	}
	return st, nil
}

func (h *Holder) record(k artifact.Kind, taskName string, role Role) {
	if h.finalized && role.writes() {
		h.logger.Warn("artifact registered after output locations were finalized",
			"kind", k.ID(), "task", taskName, "role", string(role))
	}
	h.stages = append(h.stages, Stage{Seq: len(h.stages) + 1, Kind: k, Task: taskName, Role: role})
	h.logger.Debug("artifact stage registered", "kind", k.ID(), "task", taskName, "role", string(role))
}
