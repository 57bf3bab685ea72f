package mcptools

import (
	"context"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/buildgraph/internal/executor"
	"github.com/dusk-indust/buildgraph/internal/holder"
	"github.com/dusk-indust/buildgraph/internal/status"
)

// Runner plans and runs tasks. *executor.Executor implements it.
type Runner interface {
	Plan(targets ...string) (*executor.Plan, error)
	Run(ctx context.Context, targets ...string) (*executor.Report, error)
}

// BuildService handles MCP tool calls that run the configured build.
// Calls are serialized: the holder's tasks are not safe for concurrent runs.
type BuildService struct {
	mu      sync.Mutex
	runner  Runner
	holder  *holder.Holder
	targets []string
}

// NewBuildService creates a BuildService. targets are used when a call
// names none.
func NewBuildService(runner Runner, h *holder.Holder, targets ...string) *BuildService {
	return &BuildService{
		runner:  runner,
		holder:  h,
		targets: targets,
	}
}

func (s *BuildService) targetsOr(in []string) ([]string, error) {
	if len(in) > 0 {
		return in, nil
	}
	if len(s.targets) == 0 {
		return nil, fmt.Errorf("targets is required")
	}
	return s.targets, nil
}

// RunBuild executes the targets and returns per-task results.
func (s *BuildService) RunBuild(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunBuildInput,
) (*mcp.CallToolResult, RunBuildOutput, error) {
	targets, err := s.targetsOr(input.Targets)
	if err != nil {
		return nil, RunBuildOutput{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.runner.Run(ctx, targets...)
	if report == nil {
		// Planning failed; nothing ran.
		return nil, RunBuildOutput{}, fmt.Errorf("run build: %w", err)
	}

	out := RunBuildOutput{
		RunID:   report.RunID,
		Status:  "completed",
		Results: report.Results,
	}
	if err != nil {
		out.Status = "failed"
		out.Failed = report.Failed()
		out.Message = err.Error()
	}
	return nil, out, nil
}

// GetStatus reports which planned tasks have their outputs on disk.
func (s *BuildService) GetStatus(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetStatusInput,
) (*mcp.CallToolResult, GetStatusOutput, error) {
	targets, err := s.targetsOr(input.Targets)
	if err != nil {
		return nil, GetStatusOutput{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := s.runner.Plan(targets...)
	if err != nil {
		return nil, GetStatusOutput{}, fmt.Errorf("plan: %w", err)
	}
	st, err := status.Check(s.holder, plan)
	if err != nil {
		return nil, GetStatusOutput{}, err
	}

	out := GetStatusOutput{
		BuildDir: st.BuildDir,
		Tasks:    make([]TaskStatus, 0, len(st.Tasks)),
		Next:     st.Next,
		Outputs:  st.Outputs,
	}
	if out.Outputs == nil {
		out.Outputs = []string{}
	}
	for _, ti := range st.Tasks {
		ts := TaskStatus{Name: ti.Name, Level: ti.Level, Complete: ti.Complete}
		for _, loc := range ti.Outputs {
			if !loc.Exists {
				ts.Missing = append(ts.Missing, loc.Path)
			}
		}
		out.Tasks = append(out.Tasks, ts)
	}
	return nil, out, nil
}

// ExecutionOrder returns the levels the targets would run in.
func (s *BuildService) ExecutionOrder(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ExecutionOrderInput,
) (*mcp.CallToolResult, ExecutionOrderOutput, error) {
	targets, err := s.targetsOr(input.Targets)
	if err != nil {
		return nil, ExecutionOrderOutput{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := s.runner.Plan(targets...)
	if err != nil {
		return nil, ExecutionOrderOutput{}, fmt.Errorf("plan: %w", err)
	}
	return nil, ExecutionOrderOutput{Levels: plan.Levels, Order: plan.Order()}, nil
}
