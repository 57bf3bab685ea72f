package graph

import (
	"context"
	"io"
)

// Store is the interface for the build-plan graph backend.
// Implementations: KuzuStore (embedded graph DB), MemStore (in-process).
type Store interface {
	io.Closer

	// Schema setup, called once before any data is inserted.
	InitSchema(ctx context.Context) error

	// Write operations.
	AddTask(ctx context.Context, node TaskNode) error
	AddArtifact(ctx context.Context, node ArtifactNode) error
	AddEdge(ctx context.Context, edge Edge) error

	// Read operations. Missing nodes are returned as nil without error.
	GetTask(ctx context.Context, name string) (*TaskNode, error)
	GetArtifact(ctx context.Context, id string) (*ArtifactNode, error)
	ListTasks(ctx context.Context) ([]TaskNode, error)
	ListArtifacts(ctx context.Context) ([]ArtifactNode, error)
	GetAllEdges(ctx context.Context) ([]Edge, error)

	// GetStages returns the PRODUCES and CONSUMES edges of an artifact in
	// registration order.
	GetStages(ctx context.Context, artifactID string) ([]Edge, error)

	// Graph traversal over DEPENDS_ON edges.
	GetDependencies(ctx context.Context, taskName string, direction Direction, maxDepth int) ([]DependencyChain, error)
	AssessImpact(ctx context.Context, changed []string) (*ImpactResult, error)

	// Stats.
	Stats(ctx context.Context) (*GraphStats, error)
}

// Direction controls dependency traversal direction.
type Direction string

const (
	DirectionUpstream   Direction = "upstream"   // what does this depend on?
	DirectionDownstream Direction = "downstream" // what depends on this?
)

// defaultMaxDepth bounds traversals when the caller passes no depth.
const defaultMaxDepth = 10
