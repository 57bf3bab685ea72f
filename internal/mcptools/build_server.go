package mcptools

import "github.com/dusk-indust/buildgraph/internal/executor"

// --- MCP Tool Types for running builds (serve-mcp --build) ---
// These tools let a client drive the configured build and read its on-disk
// status instead of shelling out.

// RunBuildInput is the input for the run_build MCP tool.
type RunBuildInput struct {
	Targets []string `json:"targets,omitempty" jsonschema:"tasks to build (default: the configured target)"`
}

// RunBuildOutput is the result of the run_build MCP tool.
type RunBuildOutput struct {
	RunID   string                `json:"runId"`
	Status  string                `json:"status"` // "completed" or "failed"
	Failed  []string              `json:"failed,omitempty"`
	Results []executor.TaskResult `json:"results"`
	Message string                `json:"message,omitempty"`
}

// GetStatusInput is the input for the get_status MCP tool.
type GetStatusInput struct {
	Targets []string `json:"targets,omitempty" jsonschema:"tasks to check (default: the configured target)"`
}

// GetStatusOutput is the result of the get_status MCP tool.
type GetStatusOutput struct {
	BuildDir string       `json:"buildDir"`
	Tasks    []TaskStatus `json:"tasks"`
	Next     string       `json:"next,omitempty"`
	Outputs  []string     `json:"outputs"`
}

// TaskStatus is a brief overview of one planned task.
type TaskStatus struct {
	Name     string   `json:"name"`
	Level    int      `json:"level"`
	Complete bool     `json:"complete"`
	Missing  []string `json:"missing,omitempty"`
}

// ExecutionOrderInput is the input for the execution_order MCP tool.
type ExecutionOrderInput struct {
	Targets []string `json:"targets,omitempty" jsonschema:"tasks to plan (default: the configured target)"`
}

// ExecutionOrderOutput is the result of the execution_order MCP tool.
type ExecutionOrderOutput struct {
	Levels [][]string `json:"levels"`
	Order  []string   `json:"order"`
}
