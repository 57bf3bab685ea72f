package graph

// --- Enums ---

// NodeKind classifies nodes in the build-plan graph.
type NodeKind string

const (
	NodeKindTask     NodeKind = "task"
	NodeKindArtifact NodeKind = "artifact"
)

// EdgeKind classifies relationships between nodes.
type EdgeKind string

const (
	// EdgeKindProduces links a task to an artifact it writes (origin,
	// replace, append or transform).
	EdgeKindProduces EdgeKind = "PRODUCES"
	// EdgeKindConsumes links a task to an artifact it reads (consume or
	// transform).
	EdgeKindConsumes EdgeKind = "CONSUMES"
	// EdgeKindDependsOn links a task to a task that must run before it.
	EdgeKindDependsOn EdgeKind = "DEPENDS_ON"
)

// --- Models ---

// TaskNode is a registered task.
type TaskNode struct {
	Name string `json:"name"`
	Type string `json:"type"`
	// Level is the task's execution level, or -1 when no target needs it.
	Level int `json:"level"`
}

// ArtifactNode is one artifact kind and where its final value lives.
type ArtifactNode struct {
	ID          string   `json:"id"`
	Cardinality string   `json:"cardinality"`
	Shape       string   `json:"shape"`
	IsOutput    bool     `json:"isOutput"`
	Sensitivity string   `json:"sensitivity"`
	Normalizer  string   `json:"normalizer"`
	Locations   []string `json:"locations,omitempty"`
}

// Edge represents a relationship between two nodes. Role and Seq are set on
// PRODUCES and CONSUMES edges and mirror the holder's stage log.
type Edge struct {
	SourceID string   `json:"sourceId"`
	TargetID string   `json:"targetId"`
	Kind     EdgeKind `json:"kind"`
	Role     string   `json:"role,omitempty"`
	Seq      int      `json:"seq,omitempty"`
}

// GraphStats summarizes a build-plan graph.
type GraphStats struct {
	TaskCount     int `json:"taskCount"`
	ArtifactCount int `json:"artifactCount"`
	EdgeCount     int `json:"edgeCount"`
}

// DependencyChain is an ordered sequence of tasks forming a dependency path.
type DependencyChain struct {
	Nodes []string `json:"nodes"` // task names in order
	Depth int      `json:"depth"`
}

// ImpactResult describes which tasks rerun when tasks or artifacts change.
type ImpactResult struct {
	DirectlyAffected     []string `json:"directlyAffected"`     // tasks that read a changed node
	TransitivelyAffected []string `json:"transitivelyAffected"` // full downstream closure
	AffectedArtifacts    []string `json:"affectedArtifacts"`    // artifacts written by affected tasks
	RiskScore            float64  `json:"riskScore"`            // 0.0-1.0, share of tasks affected
}
