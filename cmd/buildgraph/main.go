package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// version is overridden with -ldflags "-X main.version=..." in release builds.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := newApp(stdout, stderr)

	root := &cobra.Command{
		Use:   "buildgraph",
		Short: "Typed artifact wiring for a simulated Android build",
		Long: `buildgraph configures a build by wiring tasks through typed artifact slots,
then plans, runs, inspects and serves the resulting task graph.

Third-party registrations are switched on with properties:

  buildgraph build -P add.dex=true -P transform.all=true
  BUILDGRAPH_REPLACE_DEXER=true buildgraph plan

Properties may also be listed under "properties:" in buildgraph.yml.
Command-line values win over the environment, which wins over the file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error { return a.load(cmd) }
	root.PersistentPostRunE = func(*cobra.Command, []string) error { return a.close() }
	root.SetOut(stdout)
	root.SetErr(stderr)

	f := root.PersistentFlags()
	f.StringVarP(&a.dir, "dir", "C", ".", "project directory holding buildgraph.yml")
	f.String("build-dir", "", "build directory (default: <dir>/build)")
	f.StringArrayVarP(&a.props, "property", "P", nil, "build property as key=value (repeatable)")
	f.String("log-level", "", "log level: debug, info, warn, error")
	f.String("log-format", "", "log format: text or json")
	f.Bool("trace", false, "record OpenTelemetry spans for task execution")
	_ = a.v.BindPFlag("buildDir", f.Lookup("build-dir"))
	_ = a.v.BindPFlag("logging.level", f.Lookup("log-level"))
	_ = a.v.BindPFlag("logging.format", f.Lookup("log-format"))
	_ = a.v.BindPFlag("tracing.enabled", f.Lookup("trace"))

	root.AddCommand(
		newBuildCmd(a),
		newPlanCmd(a),
		newDiagramCmd(a),
		newStatusCmd(a),
		newServeMCPCmd(a),
	)
	return root
}
