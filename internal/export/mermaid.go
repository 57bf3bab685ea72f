package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/buildgraph/internal/graph"
)

// MermaidOptions controls what GenerateMermaid draws.
type MermaidOptions struct {
	// Artifacts draws artifact nodes with PRODUCES and CONSUMES arrows.
	// Otherwise tasks are linked directly by their dependencies.
	Artifacts bool
}

// GenerateMermaid produces a Mermaid graph TD diagram from a graph store.
// Tasks are grouped by execution level; tasks no target needs go into an
// "unused" group.
func GenerateMermaid(ctx context.Context, store graph.Store, opts MermaidOptions) (string, error) {
	tasks, err := store.ListTasks(ctx)
	if err != nil {
		return "", fmt.Errorf("list tasks: %w", err)
	}
	edges, err := store.GetAllEdges(ctx)
	if err != nil {
		return "", fmt.Errorf("get edges: %w", err)
	}

	// Mermaid IDs must be alphanumeric; task names and kind IDs are not.
	nodeIDs := make(map[string]string)
	getID := func(prefix, key string) string {
		k := prefix + key
		if id, ok := nodeIDs[k]; ok {
			return id
		}
		id := fmt.Sprintf("%s%d", prefix, len(nodeIDs))
		nodeIDs[k] = id
		return id
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	// Tasks come back ordered by level, so groups are contiguous.
	open := false
	current := 0
	for i, t := range tasks {
		if i == 0 || t.Level != current {
			if open {
				sb.WriteString("  end\n")
			}
			current = t.Level
			label := fmt.Sprintf("level %d", t.Level)
			if t.Level < 0 {
				label = "unused"
			}
			sb.WriteString(fmt.Sprintf("  subgraph %s[\"%s\"]\n", getID("L", label), label))
			open = true
		}
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", getID("T", t.Name), t.Name))
	}
	if open {
		sb.WriteString("  end\n")
	}

	if !opts.Artifacts {
		for _, e := range edges {
			if e.Kind != graph.EdgeKindDependsOn {
				continue
			}
			// Arrows point in execution order.
			sb.WriteString(fmt.Sprintf("  %s --> %s\n", getID("T", e.TargetID), getID("T", e.SourceID)))
		}
		return sb.String(), nil
	}

	drawn := make(map[string]bool)
	for _, e := range edges {
		if e.Kind == graph.EdgeKindDependsOn {
			continue
		}
		aid := getID("A", e.TargetID)
		if !drawn[aid] {
			drawn[aid] = true
			sb.WriteString(fmt.Sprintf("  %s([\"%s\"])\n", aid, e.TargetID))
		}
		tid := getID("T", e.SourceID)
		if e.Kind == graph.EdgeKindProduces {
			sb.WriteString(fmt.Sprintf("  %s -->|%s| %s\n", tid, e.Role, aid))
		} else {
			sb.WriteString(fmt.Sprintf("  %s -.->|%s| %s\n", aid, e.Role, tid))
		}
	}
	return sb.String(), nil
}
