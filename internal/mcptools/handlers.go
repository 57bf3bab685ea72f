package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/buildgraph/internal/graph"
)

// GraphService holds the plan graph store used by MCP tool handlers.
type GraphService struct {
	store graph.Store
}

// NewGraphService creates a GraphService over a populated store.
func NewGraphService(store graph.Store) *GraphService {
	return &GraphService{store: store}
}

// GetStats returns node and edge counts.
func (s *GraphService) GetStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ GetStatsInput,
) (*mcp.CallToolResult, GetStatsOutput, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, GetStatsOutput{}, fmt.Errorf("stats: %w", err)
	}
	return nil, GetStatsOutput{Stats: *stats}, nil
}

// ListTasks returns tasks ordered by execution level.
func (s *GraphService) ListTasks(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListTasksInput,
) (*mcp.CallToolResult, ListTasksOutput, error) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return nil, ListTasksOutput{}, fmt.Errorf("list tasks: %w", err)
	}

	if !input.IncludeUnused {
		filtered := tasks[:0]
		for _, t := range tasks {
			if t.Level >= 0 {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}
	if tasks == nil {
		tasks = []graph.TaskNode{}
	}

	return nil, ListTasksOutput{Tasks: tasks, Total: len(tasks)}, nil
}

// GetTask returns one task with its artifact edges and direct dependencies.
func (s *GraphService) GetTask(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetTaskInput,
) (*mcp.CallToolResult, GetTaskOutput, error) {
	if input.Name == "" {
		return nil, GetTaskOutput{}, fmt.Errorf("name is required")
	}

	t, err := s.store.GetTask(ctx, input.Name)
	if err != nil {
		return nil, GetTaskOutput{}, fmt.Errorf("get task: %w", err)
	}
	if t == nil {
		return nil, GetTaskOutput{}, fmt.Errorf("task %q not found", input.Name)
	}

	edges, err := s.store.GetAllEdges(ctx)
	if err != nil {
		return nil, GetTaskOutput{}, fmt.Errorf("get edges: %w", err)
	}

	out := GetTaskOutput{Task: *t, Produces: []graph.Edge{}, Consumes: []graph.Edge{}, DependsOn: []string{}}
	for _, e := range edges {
		if e.SourceID != t.Name {
			continue
		}
		switch e.Kind {
		case graph.EdgeKindProduces:
			out.Produces = append(out.Produces, e)
		case graph.EdgeKindConsumes:
			out.Consumes = append(out.Consumes, e)
		case graph.EdgeKindDependsOn:
			out.DependsOn = append(out.DependsOn, e.TargetID)
		}
	}
	return nil, out, nil
}

// ListArtifacts returns every artifact kind in the graph.
func (s *GraphService) ListArtifacts(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListArtifactsInput,
) (*mcp.CallToolResult, ListArtifactsOutput, error) {
	artifacts, err := s.store.ListArtifacts(ctx)
	if err != nil {
		return nil, ListArtifactsOutput{}, fmt.Errorf("list artifacts: %w", err)
	}

	if input.OutputsOnly {
		filtered := artifacts[:0]
		for _, a := range artifacts {
			if a.IsOutput {
				filtered = append(filtered, a)
			}
		}
		artifacts = filtered
	}
	if artifacts == nil {
		artifacts = []graph.ArtifactNode{}
	}

	return nil, ListArtifactsOutput{Artifacts: artifacts, Total: len(artifacts)}, nil
}

// GetArtifact returns one artifact and its stages in registration order.
func (s *GraphService) GetArtifact(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetArtifactInput,
) (*mcp.CallToolResult, GetArtifactOutput, error) {
	if input.ID == "" {
		return nil, GetArtifactOutput{}, fmt.Errorf("id is required")
	}

	a, err := s.store.GetArtifact(ctx, input.ID)
	if err != nil {
		return nil, GetArtifactOutput{}, fmt.Errorf("get artifact: %w", err)
	}
	if a == nil {
		return nil, GetArtifactOutput{}, fmt.Errorf("artifact %q not found", input.ID)
	}

	stages, err := s.store.GetStages(ctx, a.ID)
	if err != nil {
		return nil, GetArtifactOutput{}, fmt.Errorf("get stages: %w", err)
	}
	if stages == nil {
		stages = []graph.Edge{}
	}
	return nil, GetArtifactOutput{Artifact: *a, Stages: stages}, nil
}

// GetDependencies traverses the task dependency graph from a given task.
func (s *GraphService) GetDependencies(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDependenciesInput,
) (*mcp.CallToolResult, GetDependenciesOutput, error) {
	if input.TaskName == "" {
		return nil, GetDependenciesOutput{}, fmt.Errorf("taskName is required")
	}

	direction := graph.DirectionDownstream
	if strings.EqualFold(input.Direction, "upstream") {
		direction = graph.DirectionUpstream
	}

	maxDepth := input.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 5
	}

	chains, err := s.store.GetDependencies(ctx, input.TaskName, direction, maxDepth)
	if err != nil {
		return nil, GetDependenciesOutput{}, fmt.Errorf("get dependencies: %w", err)
	}
	if chains == nil {
		chains = []graph.DependencyChain{}
	}

	return nil, GetDependenciesOutput{Chains: chains}, nil
}

// AssessImpact computes which tasks rerun when tasks or artifacts change.
func (s *GraphService) AssessImpact(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AssessImpactInput,
) (*mcp.CallToolResult, AssessImpactOutput, error) {
	if len(input.Changed) == 0 {
		return nil, AssessImpactOutput{}, fmt.Errorf("changed is required")
	}

	impact, err := s.store.AssessImpact(ctx, input.Changed)
	if err != nil {
		return nil, AssessImpactOutput{}, fmt.Errorf("assess impact: %w", err)
	}

	return nil, AssessImpactOutput{Impact: *impact}, nil
}
