package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dusk-indust/buildgraph/internal/config"
	"github.com/dusk-indust/buildgraph/internal/extension"
	"github.com/dusk-indust/buildgraph/internal/holder"
	"github.com/dusk-indust/buildgraph/internal/logging"
	"github.com/dusk-indust/buildgraph/internal/pipeline"
	"github.com/dusk-indust/buildgraph/internal/task"
	"github.com/dusk-indust/buildgraph/internal/tracing"
)

// app carries the state every subcommand shares.
type app struct {
	v      *viper.Viper
	cfg    *config.ProjectConfig
	dir    string
	props  []string
	stdout io.Writer
	stderr io.Writer

	// console receives task reports. It is stdout except when stdout
	// carries a protocol.
	console io.Writer

	logger   *slog.Logger
	closeLog func() error
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		v:       viper.New(),
		stdout:  stdout,
		stderr:  stderr,
		console: stdout,
		logger:  logging.Discard(),
	}
}

// load reads buildgraph.yml, layers environment and -P properties on top and
// builds the logger.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.dir)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.v.SetEnvPrefix("BUILDGRAPH")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	a.v.SetDefault("buildDir", cfg.BuildDir)
	a.v.SetDefault("target", cfg.Target)
	a.v.SetDefault("parallelism", cfg.Parallelism)
	a.v.SetDefault("logging.level", cfg.Logging.Level)
	a.v.SetDefault("logging.format", cfg.Logging.Format)
	a.v.SetDefault("tracing.enabled", cfg.Tracing.Enabled)
	for k, val := range cfg.Properties {
		a.v.SetDefault(k, val)
	}
	for _, p := range a.props {
		k, val, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return fmt.Errorf("invalid property %q: want key=value", p)
		}
		a.v.Set(k, val)
	}

	logCfg := cfg.Logging
	logCfg.Level = a.v.GetString("logging.level")
	logCfg.Format = a.v.GetString("logging.format")
	switch strings.ToLower(logCfg.Output) {
	case "", "stderr", "stdout":
		// Stdout belongs to command output.
		a.logger = slog.New(logging.NewHandler(a.stderr, logCfg))
	default:
		logger, release, err := logging.New(logCfg)
		if err != nil {
			return err
		}
		a.logger = logger
		a.closeLog = release
	}
	a.logger = a.logger.With("cmd", cmd.Name())
	return nil
}

func (a *app) close() error {
	if a.closeLog != nil {
		return a.closeLog()
	}
	return nil
}

// buildDir resolves the build directory against the project directory.
func (a *app) buildDir() string {
	dir := a.v.GetString("buildDir")
	if dir == "" {
		dir = "build"
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(a.dir, dir)
}

// targets returns args, or the configured target, or the pipeline's own.
func (a *app) targets(args []string, res pipeline.Result) []string {
	if len(args) > 0 {
		return args
	}
	if t := a.v.GetString("target"); t != "" {
		return []string{t}
	}
	return []string{res.Target}
}

// configure runs one configuration pass with the extension enabled by the
// current properties.
func (a *app) configure() (*holder.Holder, pipeline.Result, error) {
	console := pipeline.NewConsole(a.console)
	h := holder.New(holder.NewLayout(a.buildDir()), task.NewContainer(a.logger), a.logger)

	core := pipeline.New(pipeline.NewEnv(console, a.logger, ""), a.logger)
	ext := extension.New(a.v, pipeline.NewEnv(console, a.logger, extension.Label), a.logger)
	ext.Apply(core)

	res, err := core.Configure(h)
	if err != nil {
		return nil, pipeline.Result{}, err
	}
	return h, res, nil
}

// tracer builds the tracing provider from buildgraph.yml and --trace. With
// --trace and no exporter configured, spans go to a JSONL file in the build
// directory so stdout stays clean.
func (a *app) tracer() (*tracing.Provider, error) {
	cfg := a.cfg.Tracing
	cfg.Enabled = a.v.GetBool("tracing.enabled")
	if cfg.Enabled && cfg.Exporter == "" {
		cfg.Exporter = "file"
		cfg.FilePath = filepath.Join(a.buildDir(), "traces.jsonl")
	}
	return tracing.NewProvider(cfg)
}
