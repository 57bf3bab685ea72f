package graph

import (
	"context"
	"fmt"

	"github.com/dusk-indust/buildgraph/internal/artifact"
	"github.com/dusk-indust/buildgraph/internal/holder"
)

// Populate writes a configured holder into s: one node per artifact kind,
// one node per registered task, the stage log as PRODUCES and CONSUMES
// edges, and task dependencies as DEPENDS_ON edges. levels places tasks at
// their execution level; tasks missing from it get level -1.
//
// Every registered task is realized so its dependencies are known.
func Populate(ctx context.Context, s Store, h *holder.Holder, levels [][]string) error {
	if err := s.InitSchema(ctx); err != nil {
		return err
	}

	for _, k := range artifact.All() {
		node, err := artifactNode(h, k)
		if err != nil {
			return err
		}
		if err := s.AddArtifact(ctx, node); err != nil {
			return fmt.Errorf("graph: add artifact %s: %w", k, err)
		}
	}

	levelOf := make(map[string]int)
	for i, names := range levels {
		for _, name := range names {
			levelOf[name] = i
		}
	}

	tasks := h.Tasks()
	names := tasks.Names()
	deps := make(map[string][]string, len(names))
	for _, name := range names {
		t, err := tasks.Realize(name)
		if err != nil {
			return fmt.Errorf("graph: %w", err)
		}
		deps[name] = t.TaskBase().Dependencies()

		typeName, _ := tasks.TypeName(name)
		level, ok := levelOf[name]
		if !ok {
			level = -1
		}
		if err := s.AddTask(ctx, TaskNode{Name: name, Type: typeName, Level: level}); err != nil {
			return fmt.Errorf("graph: add task %s: %w", name, err)
		}
	}

	for _, st := range h.Stages() {
		for _, e := range stageEdges(st) {
			if err := s.AddEdge(ctx, e); err != nil {
				return fmt.Errorf("graph: add %s edge %s -> %s: %w", e.Kind, e.SourceID, e.TargetID, err)
			}
		}
	}

	for _, name := range names {
		for _, dep := range deps[name] {
			e := Edge{SourceID: name, TargetID: dep, Kind: EdgeKindDependsOn}
			if err := s.AddEdge(ctx, e); err != nil {
				return fmt.Errorf("graph: add dependency %s -> %s: %w", name, dep, err)
			}
		}
	}
	return nil
}

func artifactNode(h *holder.Holder, k artifact.Kind) (ArtifactNode, error) {
	st, err := h.State(k)
	if err != nil {
		return ArtifactNode{}, err
	}
	node := ArtifactNode{
		ID:          st.Kind,
		Cardinality: st.Cardinality,
		Shape:       st.Shape,
		IsOutput:    st.IsOutput,
		Sensitivity: st.Sensitivity,
		Normalizer:  st.Normalizer,
	}
	// A kind nobody produced has no locations; that is not an error here.
	if locs, err := h.Resolve(k); err == nil {
		for _, loc := range locs {
			node.Locations = append(node.Locations, loc.Path)
		}
	}
	return node, nil
}

func stageEdges(st holder.Stage) []Edge {
	edge := func(kind EdgeKind) Edge {
		return Edge{SourceID: st.Task, TargetID: st.KindID(), Kind: kind, Role: string(st.Role), Seq: st.Seq}
	}
	switch st.Role {
	case holder.RoleConsume:
		return []Edge{edge(EdgeKindConsumes)}
	case holder.RoleTransform:
		return []Edge{edge(EdgeKindConsumes), edge(EdgeKindProduces)}
	default:
		return []Edge{edge(EdgeKindProduces)}
	}
}
