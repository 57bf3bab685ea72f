package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewMCPServer creates an MCP server with the plan graph tools registered.
// When build is non-nil the run_build, get_status and execution_order tools
// are registered too.
func NewMCPServer(svc *GraphService, build *BuildService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "buildgraph",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_stats",
		Description: "Return the number of tasks, artifact kinds and edges in the build plan graph.",
	}, svc.GetStats)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_tasks",
		Description: "List registered tasks ordered by execution level. Tasks no target needs are omitted unless includeUnused is set.",
	}, svc.ListTasks)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_task",
		Description: "Return one task with the artifacts it produces and consumes and the tasks it depends on.",
	}, svc.GetTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_artifacts",
		Description: "List artifact kinds with cardinality, shape, sensitivity, normalizer and final locations.",
	}, svc.ListArtifacts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_artifact",
		Description: "Return one artifact kind and every stage registered against it, in registration order.",
	}, svc.GetArtifact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_dependencies",
		Description: "Traverse the task dependency graph upstream or downstream from a task. Returns dependency chains up to the specified depth.",
	}, svc.GetDependencies)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "assess_impact",
		Description: "Compute which tasks rerun when the given tasks or artifact kinds change. Returns directly and transitively affected tasks with a risk score.",
	}, svc.AssessImpact)

	if build == nil {
		return server
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_build",
		Description: "Run the tasks the targets need, level by level. Returns per-task results.",
	}, build.RunBuild)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_status",
		Description: "Report which planned tasks have their outputs in the build directory and which task is next.",
	}, build.GetStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "execution_order",
		Description: "Return the dependency levels the targets would run in without running anything.",
	}, build.ExecutionOrder)

	return server
}

// RunMCPServer starts an HTTP server exposing the MCP tools.
func RunMCPServer(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// RunMCPServerStdio runs the MCP server on stdio transport, blocking until
// stdin is closed or the context is cancelled.
func RunMCPServerStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
