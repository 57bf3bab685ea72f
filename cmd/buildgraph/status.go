package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/buildgraph/internal/status"
)

func newStatusCmd(a *app) *cobra.Command {
	var scratch bool
	cmd := &cobra.Command{
		Use:   "status [task...]",
		Short: "Show which planned tasks have their outputs in the build directory",
		RunE: func(_ *cobra.Command, args []string) error {
			h, plan, err := a.plan(args)
			if err != nil {
				return err
			}
			st, err := status.Check(h, plan)
			if err != nil {
				return err
			}
			printStatus(a.stdout, st)
			if scratch {
				printIntermediates(a.stdout, status.ScanIntermediates(st.BuildDir))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&scratch, "intermediates", false, "also list scratch files under intermediates/")
	return cmd
}

func printStatus(w io.Writer, st status.BuildStatus) {
	fmt.Fprintf(w, "Build directory: %s\n", st.BuildDir)
	fmt.Fprintf(w, "Targets: %v\n\n", st.Targets)

	for _, ti := range st.Tasks {
		marker := "  "
		label := "pending"
		if ti.Complete {
			label = "complete"
		}
		if ti.Name == st.Next {
			marker = "->"
			label = "next"
		}
		fmt.Fprintf(w, "  %s Level %d: %-26s [%s]\n", marker, ti.Level, ti.Name, label)
	}

	if st.Next == "" {
		fmt.Fprintln(w, "  All tasks complete.")
	}
	if len(st.Outputs) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Outputs:")
		for _, o := range st.Outputs {
			fmt.Fprintf(w, "  %s\n", o)
		}
	}
}

func printIntermediates(w io.Writer, scratch map[string][]string) {
	if len(scratch) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Intermediates:")
	names := make([]string, 0, len(scratch))
	for name := range scratch {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %v\n", name, scratch[name])
	}
}
