package graph

import (
	"math"
	"slices"
)

// computeImpact walks the edge list from the changed nodes. A changed task
// affects the tasks that depend on it; a changed artifact affects the tasks
// that read it. Both stores share it so their answers agree.
func computeImpact(edges []Edge, totalTasks int, changed []string) *ImpactResult {
	changedSet := make(map[string]bool, len(changed))
	for _, id := range changed {
		changedSet[id] = true
	}

	directSet := make(map[string]bool)
	for _, e := range edges {
		switch e.Kind {
		case EdgeKindDependsOn, EdgeKindConsumes:
			if changedSet[e.TargetID] && !changedSet[e.SourceID] {
				directSet[e.SourceID] = true
			}
		}
	}

	allAffected := make(map[string]bool, len(directSet))
	frontier := make(map[string]bool, len(directSet))
	for k := range directSet {
		allAffected[k] = true
		frontier[k] = true
	}
	for len(frontier) > 0 {
		next := make(map[string]bool)
		for _, e := range edges {
			if e.Kind != EdgeKindDependsOn {
				continue
			}
			if frontier[e.TargetID] && !changedSet[e.SourceID] && !allAffected[e.SourceID] {
				allAffected[e.SourceID] = true
				next[e.SourceID] = true
			}
		}
		frontier = next
	}

	artifacts := make(map[string]bool)
	for _, e := range edges {
		if e.Kind == EdgeKindProduces && (allAffected[e.SourceID] || changedSet[e.SourceID]) {
			artifacts[e.TargetID] = true
		}
	}

	risk := 0.0
	if totalTasks > 0 {
		risk = math.Min(1.0, float64(len(allAffected))/float64(totalTasks))
	}
	return &ImpactResult{
		DirectlyAffected:     sortedKeys(directSet),
		TransitivelyAffected: sortedKeys(allAffected),
		AffectedArtifacts:    sortedKeys(artifacts),
		RiskScore:            risk,
	}
}

// sortedKeys converts a string bool map to a sorted slice.
func sortedKeys(s map[string]bool) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// stageOrder sorts PRODUCES and CONSUMES edges by registration order.
func stageOrder(a, b Edge) int {
	if a.Seq != b.Seq {
		return a.Seq - b.Seq
	}
	// A transform writes and reads under one seq; list the read first.
	if a.Kind != b.Kind {
		if a.Kind == EdgeKindConsumes {
			return -1
		}
		return 1
	}
	return 0
}

func sortStages(edges []Edge) { slices.SortStableFunc(edges, stageOrder) }
