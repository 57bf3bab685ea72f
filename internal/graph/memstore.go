package graph

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu        sync.RWMutex
	tasks     map[string]TaskNode
	artifacts map[string]ArtifactNode
	edges     []Edge
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		tasks:     make(map[string]TaskNode),
		artifacts: make(map[string]ArtifactNode),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// AddTask stores a task node keyed by its name.
func (m *MemStore) AddTask(_ context.Context, node TaskNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[node.Name] = node
	return nil
}

// AddArtifact stores an artifact node keyed by its kind ID.
func (m *MemStore) AddArtifact(_ context.Context, node ArtifactNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	node.Locations = slices.Clone(node.Locations)
	m.artifacts[node.ID] = node
	return nil
}

// AddEdge appends an edge to the internal slice.
func (m *MemStore) AddEdge(_ context.Context, edge Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges = append(m.edges, edge)
	return nil
}

// GetTask returns the task with the given name, or nil if not found.
func (m *MemStore) GetTask(_ context.Context, name string) (*TaskNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[name]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// GetArtifact returns the artifact with the given ID, or nil if not found.
// IDs are matched case-insensitively.
func (m *MemStore) GetArtifact(_ context.Context, id string) (*ArtifactNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.artifacts[strings.ToUpper(id)]
	if !ok {
		return nil, nil
	}
	a.Locations = slices.Clone(a.Locations)
	return &a, nil
}

// ListTasks returns every task ordered by level, then name.
func (m *MemStore) ListTasks(_ context.Context) ([]TaskNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]TaskNode, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b TaskNode) int {
		if a.Level != b.Level {
			return a.Level - b.Level
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

// ListArtifacts returns every artifact ordered by ID.
func (m *MemStore) ListArtifacts(_ context.Context) ([]ArtifactNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ArtifactNode, 0, len(m.artifacts))
	for _, a := range m.artifacts {
		a.Locations = slices.Clone(a.Locations)
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b ArtifactNode) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

// GetAllEdges returns a copy of all edges in the store.
func (m *MemStore) GetAllEdges(_ context.Context) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.edges), nil
}

// GetStages returns the PRODUCES and CONSUMES edges of an artifact.
func (m *MemStore) GetStages(_ context.Context, artifactID string) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id := strings.ToUpper(artifactID)
	var out []Edge
	for _, e := range m.edges {
		if e.Kind != EdgeKindDependsOn && e.TargetID == id {
			out = append(out, e)
		}
	}
	sortStages(out)
	return out, nil
}

// GetDependencies performs a BFS on DEPENDS_ON edges from taskName in the
// given direction, up to maxDepth hops. It returns one DependencyChain per
// reachable task.
func (m *MemStore) GetDependencies(_ context.Context, taskName string, direction Direction, maxDepth int) ([]DependencyChain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}

	// BFS state: each entry tracks the path from taskName to the current node.
	type bfsEntry struct {
		id   string
		path []string
	}

	visited := map[string]bool{taskName: true}
	queue := []bfsEntry{{id: taskName, path: []string{taskName}}}
	var chains []DependencyChain

	for depth := 0; depth < maxDepth && len(queue) > 0; depth++ {
		var nextQueue []bfsEntry
		for _, entry := range queue {
			for _, nb := range m.neighbors(entry.id, direction) {
				if visited[nb] {
					continue
				}
				visited[nb] = true
				newPath := make([]string, len(entry.path), len(entry.path)+1)
				copy(newPath, entry.path)
				newPath = append(newPath, nb)
				chains = append(chains, DependencyChain{
					Nodes: newPath,
					Depth: len(newPath) - 1,
				})
				nextQueue = append(nextQueue, bfsEntry{id: nb, path: newPath})
			}
		}
		queue = nextQueue
	}

	return chains, nil
}

// neighbors returns tasks one DEPENDS_ON hop away from id.
func (m *MemStore) neighbors(id string, direction Direction) []string {
	var result []string
	for _, e := range m.edges {
		if e.Kind != EdgeKindDependsOn {
			continue
		}
		switch direction {
		case DirectionUpstream:
			// Source depends on Target.
			if e.SourceID == id {
				result = append(result, e.TargetID)
			}
		case DirectionDownstream:
			if e.TargetID == id {
				result = append(result, e.SourceID)
			}
		}
	}
	return result
}

// AssessImpact computes which tasks rerun when the given tasks or artifacts
// change.
func (m *MemStore) AssessImpact(_ context.Context, changed []string) (*ImpactResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, len(changed))
	for i, id := range changed {
		ids[i] = id
		if _, ok := m.tasks[id]; ok {
			continue
		}
		if _, ok := m.artifacts[strings.ToUpper(id)]; ok {
			ids[i] = strings.ToUpper(id)
		}
	}
	return computeImpact(m.edges, len(m.tasks), ids), nil
}

// Stats returns counts of all node and edge types in the graph.
func (m *MemStore) Stats(_ context.Context) (*GraphStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &GraphStats{
		TaskCount:     len(m.tasks),
		ArtifactCount: len(m.artifacts),
		EdgeCount:     len(m.edges),
	}, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}
