package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/buildgraph/internal/executor"
	"github.com/dusk-indust/buildgraph/internal/export"
	"github.com/dusk-indust/buildgraph/internal/graph"
	"github.com/dusk-indust/buildgraph/internal/holder"
)

func newPlanCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "plan [task...]",
		Short: "Print the configured plan as JSON without running anything",
		RunE: func(_ *cobra.Command, args []string) error {
			h, plan, err := a.plan(args)
			if err != nil {
				return err
			}
			exp, err := export.ExportPlan(h, plan, "")
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			if output == "" {
				return export.WriteJSON(a.stdout, exp)
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := export.WriteJSON(f, exp); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func newDiagramCmd(a *app) *cobra.Command {
	var (
		artifacts bool
		backend   string
	)
	cmd := &cobra.Command{
		Use:   "diagram [task...]",
		Short: "Print the plan graph as a Mermaid diagram",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("backend") {
				a.cfg.Graph.Backend = backend
			}
			ctx := cmd.Context()
			store, _, _, err := a.populatedStore(ctx, args)
			if err != nil {
				return err
			}
			defer store.Close()

			mermaid, err := export.GenerateMermaid(ctx, store, export.MermaidOptions{Artifacts: artifacts})
			if err != nil {
				return err
			}
			fmt.Fprint(a.stdout, mermaid)
			return nil
		},
	}
	cmd.Flags().BoolVar(&artifacts, "artifacts", false, "draw artifact nodes with PRODUCES and CONSUMES arrows")
	cmd.Flags().StringVar(&backend, "backend", "", "graph backend: memory or kuzu (default from buildgraph.yml)")
	return cmd
}

// plan configures the build and computes the plan for args.
func (a *app) plan(args []string) (*holder.Holder, *executor.Plan, error) {
	h, res, err := a.configure()
	if err != nil {
		return nil, nil, err
	}
	plan, err := executor.BuildPlan(h.Tasks(), a.targets(args, res)...)
	if err != nil {
		return nil, nil, err
	}
	return h, plan, nil
}

// populatedStore opens the configured graph backend and fills it with the
// plan for args.
func (a *app) populatedStore(ctx context.Context, args []string) (graph.Store, *holder.Holder, *executor.Plan, error) {
	h, plan, err := a.plan(args)
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := openStore(a.cfg.Graph.Backend, a.graphPath())
	if err != nil {
		return nil, nil, nil, err
	}
	if err := graph.Populate(ctx, store, h, plan.Levels); err != nil {
		store.Close()
		return nil, nil, nil, err
	}
	a.logger.Debug("plan graph populated", "backend", a.cfg.Graph.Backend, "tasks", plan.Len())
	return store, h, plan, nil
}
