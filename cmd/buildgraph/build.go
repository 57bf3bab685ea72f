package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/buildgraph/internal/executor"
	"github.com/dusk-indust/buildgraph/internal/export"
	"github.com/dusk-indust/buildgraph/internal/holder"
)

func newBuildCmd(a *app) *cobra.Command {
	var (
		parallelism int
		noProgress  bool
		reportPath  string
	)
	cmd := &cobra.Command{
		Use:   "build [task...]",
		Short: "Configure the build and run the tasks the targets need",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("parallelism") {
				a.v.Set("parallelism", parallelism)
			}
			return runBuild(cmd.Context(), a, args, !noProgress, reportPath)
		},
	}
	cmd.Flags().IntVarP(&parallelism, "parallelism", "j", 0, "maximum tasks running at once in a level (0: unlimited)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "do not print task progress to stderr")
	cmd.Flags().StringVar(&reportPath, "report", "", "write the JSON plan export with the run ID to this file")
	return cmd
}

func runBuild(ctx context.Context, a *app, args []string, progress bool, reportPath string) error {
	h, res, err := a.configure()
	if err != nil {
		return err
	}

	tp, err := a.tracer()
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			a.logger.Warn("trace shutdown failed", "err", err)
		}
	}()

	opts := []executor.Option{
		executor.WithLogger(a.logger),
		executor.WithTracer(tp.Tracer()),
		executor.WithParallelism(a.v.GetInt("parallelism")),
	}

	// Task goroutines emit; one printer goroutine writes, so lines never
	// interleave.
	var done chan struct{}
	if progress {
		pr := executor.NewProgressReporter()
		done = make(chan struct{})
		go func() {
			defer close(done)
			for ev := range pr.Subscribe() {
				fmt.Fprintln(a.stderr, executor.FormatProgress(ev))
			}
		}()
		defer func() {
			pr.Close()
			<-done
		}()
		opts = append(opts, executor.WithProgress(pr.Emit))
	}

	started := time.Now()
	report, runErr := executor.New(h.Tasks(), opts...).Run(ctx, a.targets(args, res)...)
	if report == nil {
		return runErr
	}

	if reportPath != "" {
		if err := writeReport(reportPath, h, report); err != nil {
			return err
		}
	}

	elapsed := time.Since(started).Round(time.Millisecond)
	if runErr != nil {
		fmt.Fprintf(a.stdout, "BUILD FAILED in %s\n", elapsed)
		return runErr
	}
	fmt.Fprintf(a.stdout, "BUILD SUCCESSFUL in %s\n%d tasks executed (run %s)\n", elapsed, len(report.Results), report.RunID)
	return nil
}

// writeReport writes the plan export tagged with the run ID.
func writeReport(path string, h *holder.Holder, report *executor.Report) error {
	exp, err := export.ExportPlan(h, report.Plan, report.RunID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := export.WriteJSON(f, exp); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
