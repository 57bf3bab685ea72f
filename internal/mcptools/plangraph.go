package mcptools

import "github.com/dusk-indust/buildgraph/internal/graph"

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// GetStatsInput is the input for the get_stats MCP tool.
type GetStatsInput struct{}

// GetStatsOutput is the result of the get_stats MCP tool.
type GetStatsOutput struct {
	Stats graph.GraphStats `json:"stats"`
}

// ListTasksInput is the input for the list_tasks MCP tool.
type ListTasksInput struct {
	IncludeUnused bool `json:"includeUnused,omitempty" jsonschema:"also list tasks no target needs (default: false)"`
}

// ListTasksOutput is the result of the list_tasks MCP tool.
type ListTasksOutput struct {
	Tasks []graph.TaskNode `json:"tasks"`
	Total int              `json:"total"`
}

// GetTaskInput is the input for the get_task MCP tool.
type GetTaskInput struct {
	Name string `json:"name" jsonschema:"task name, e.g. packageApk"`
}

// GetTaskOutput is the result of the get_task MCP tool.
type GetTaskOutput struct {
	Task     graph.TaskNode `json:"task"`
	Produces []graph.Edge   `json:"produces"`
	Consumes []graph.Edge   `json:"consumes"`

	// DependsOn lists the tasks that must run first.
	DependsOn []string `json:"dependsOn"`
}

// ListArtifactsInput is the input for the list_artifacts MCP tool.
type ListArtifactsInput struct {
	OutputsOnly bool `json:"outputsOnly,omitempty" jsonschema:"only list artifacts with a canonical output location"`
}

// ListArtifactsOutput is the result of the list_artifacts MCP tool.
type ListArtifactsOutput struct {
	Artifacts []graph.ArtifactNode `json:"artifacts"`
	Total     int                  `json:"total"`
}

// GetArtifactInput is the input for the get_artifact MCP tool.
type GetArtifactInput struct {
	ID string `json:"id" jsonschema:"artifact kind ID, case-insensitive, e.g. MERGED_MANIFEST"`
}

// GetArtifactOutput is the result of the get_artifact MCP tool.
type GetArtifactOutput struct {
	Artifact graph.ArtifactNode `json:"artifact"`
	Stages   []graph.Edge       `json:"stages"`
}

// GetDependenciesInput is the input for the get_dependencies MCP tool.
type GetDependenciesInput struct {
	TaskName  string `json:"taskName" jsonschema:"task to start from"`
	Direction string `json:"direction,omitempty" jsonschema:"upstream (what it depends on) or downstream (what depends on it). Default: downstream"`
	MaxDepth  int    `json:"maxDepth,omitempty" jsonschema:"maximum traversal depth (default: 5)"`
}

// GetDependenciesOutput is the result of the get_dependencies MCP tool.
type GetDependenciesOutput struct {
	Chains []graph.DependencyChain `json:"chains"`
}

// AssessImpactInput is the input for the assess_impact MCP tool.
type AssessImpactInput struct {
	Changed []string `json:"changed" jsonschema:"task names or artifact kind IDs that will change"`
}

// AssessImpactOutput is the result of the assess_impact MCP tool.
type AssessImpactOutput struct {
	Impact graph.ImpactResult `json:"impact"`
}
