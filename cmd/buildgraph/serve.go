package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/buildgraph/internal/executor"
	"github.com/dusk-indust/buildgraph/internal/mcptools"
)

func newServeMCPCmd(a *app) *cobra.Command {
	var (
		addr    string
		noBuild bool
	)
	cmd := &cobra.Command{
		Use:   "serve-mcp [task...]",
		Short: "Serve the plan graph and build tools over MCP (stdio, or HTTP with --http)",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Over stdio, stdout carries the protocol.
			if addr == "" {
				a.console = a.stderr
			}

			ctx := cmd.Context()
			store, h, plan, err := a.populatedStore(ctx, args)
			if err != nil {
				return err
			}
			defer store.Close()

			var build *mcptools.BuildService
			if !noBuild {
				tp, err := a.tracer()
				if err != nil {
					return err
				}
				defer func() {
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = tp.Shutdown(sctx)
				}()
				runner := executor.New(h.Tasks(),
					executor.WithLogger(a.logger),
					executor.WithTracer(tp.Tracer()),
					executor.WithParallelism(a.v.GetInt("parallelism")),
				)
				build = mcptools.NewBuildService(runner, h, plan.Targets...)
			}

			server := mcptools.NewMCPServer(mcptools.NewGraphService(store), build)
			if addr != "" {
				a.logger.Info("serving MCP over HTTP", "addr", addr)
				return mcptools.RunMCPServer(ctx, server, addr)
			}
			a.logger.Info("serving MCP over stdio")
			return mcptools.RunMCPServerStdio(ctx, server)
		},
	}
	cmd.Flags().StringVar(&addr, "http", "", "listen on this address with the streamable HTTP transport")
	cmd.Flags().BoolVar(&noBuild, "no-build", false, "only expose the read-only graph tools")
	return cmd
}
