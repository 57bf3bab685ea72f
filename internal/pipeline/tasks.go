package pipeline

import (
	"context"
	"log/slog"

	"github.com/dusk-indust/buildgraph/internal/artifact"
	"github.com/dusk-indust/buildgraph/internal/task"
)

// Placeholder content written to every output.
const placeholder = "foo\n"

// Env is shared by every placeholder task of one plugin. Its New* methods
// are task factories suitable for task.Register.
type Env struct {
	Console *Console
	Logger  *slog.Logger

	// Label is appended to the task name in report headers, e.g.
	// "(CustomPlugin)" for third-party tasks.
	Label string
}

// NewEnv returns an env printing to console. A nil logger discards output.
func NewEnv(console *Console, logger *slog.Logger, label string) *Env {
	if console == nil {
		console = NewConsole(nil)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Env{Console: console, Logger: logger, Label: label}
}

// Report starts the report of a task run.
func (e *Env) Report(name string) *Report {
	return NewReport(name + e.Label)
}

// Finish prints r and records the outputs that were written.
func (e *Env) Finish(ctx context.Context, name string, r *Report, outputs ...artifact.Location) error {
	if err := e.Console.Print(r); err != nil {
		return err
	}
	for _, out := range outputs {
		e.Logger.DebugContext(ctx, "task output written", "task", name, "path", out.Path, "shape", out.Shape.String())
	}
	return nil
}

// ---------- Producers ----------

// FileProducer creates one file from nothing.
type FileProducer struct {
	task.Base
	env            *Env
	OutputArtifact *artifact.LocationProperty
}

func (e *Env) NewFileProducer(name string) *FileProducer {
	return &FileProducer{Base: task.NewBase(name), env: e, OutputArtifact: artifact.NewFileProperty("outputArtifact")}
}

func (t *FileProducer) Execute(ctx context.Context) error {
	out, err := t.OutputArtifact.Get()
	if err != nil {
		return err
	}
	r := t.env.Report(t.Name()).Line("Output: %s", out.Path)
	if err := WriteOutput(out, placeholder); err != nil {
		return err
	}
	return t.env.Finish(ctx, t.Name(), r, out)
}

// DirectoryProducer creates one directory from nothing.
type DirectoryProducer struct {
	task.Base
	env            *Env
	OutputArtifact *artifact.LocationProperty
}

func (e *Env) NewDirectoryProducer(name string) *DirectoryProducer {
	return &DirectoryProducer{Base: task.NewBase(name), env: e, OutputArtifact: artifact.NewDirectoryProperty("outputArtifact")}
}

func (t *DirectoryProducer) Execute(ctx context.Context) error {
	out, err := t.OutputArtifact.Get()
	if err != nil {
		return err
	}
	r := t.env.Report(t.Name()).Line("Output: %s", out.Path)
	if err := WriteOutput(out, placeholder); err != nil {
		return err
	}
	return t.env.Finish(ctx, t.Name(), r, out)
}

// ---------- List transformers ----------

// MultiToSingleFile reads a list of files and writes one file.
type MultiToSingleFile struct {
	task.Base
	env            *Env
	InputArtifacts *artifact.LocationListProperty
	OutputArtifact *artifact.LocationProperty
}

func (e *Env) NewMultiToSingleFile(name string) *MultiToSingleFile {
	return &MultiToSingleFile{
		Base:           task.NewBase(name),
		env:            e,
		InputArtifacts: artifact.NewFileListProperty("inputArtifacts"),
		OutputArtifact: artifact.NewFileProperty("outputArtifact"),
	}
}

func (t *MultiToSingleFile) Execute(ctx context.Context) error {
	return runListTransform(ctx, t.env, t.Name(), t.InputArtifacts, t.OutputArtifact, false)
}

// MultiToSingleDirectory reads a list of directories and writes one.
type MultiToSingleDirectory struct {
	task.Base
	env            *Env
	InputArtifacts *artifact.LocationListProperty
	OutputArtifact *artifact.LocationProperty
}

func (e *Env) NewMultiToSingleDirectory(name string) *MultiToSingleDirectory {
	return &MultiToSingleDirectory{
		Base:           task.NewBase(name),
		env:            e,
		InputArtifacts: artifact.NewDirectoryListProperty("inputArtifacts"),
		OutputArtifact: artifact.NewDirectoryProperty("outputArtifact"),
	}
}

func (t *MultiToSingleDirectory) Execute(ctx context.Context) error {
	return runListTransform(ctx, t.env, t.Name(), t.InputArtifacts, t.OutputArtifact, false)
}

// MixedToSingleFile reads files and directories and writes one file.
type MixedToSingleFile struct {
	task.Base
	env            *Env
	InputArtifacts *artifact.LocationListProperty
	OutputArtifact *artifact.LocationProperty
}

func (e *Env) NewMixedToSingleFile(name string) *MixedToSingleFile {
	return &MixedToSingleFile{
		Base:           task.NewBase(name),
		env:            e,
		InputArtifacts: artifact.NewMixedListProperty("inputArtifacts"),
		OutputArtifact: artifact.NewFileProperty("outputArtifact"),
	}
}

func (t *MixedToSingleFile) Execute(ctx context.Context) error {
	return runListTransform(ctx, t.env, t.Name(), t.InputArtifacts, t.OutputArtifact, true)
}

func runListTransform(ctx context.Context, env *Env, name string, in *artifact.LocationListProperty, out *artifact.LocationProperty, withShape bool) error {
	inputs, err := in.Get()
	if err != nil {
		return err
	}
	dst, err := out.Get()
	if err != nil {
		return err
	}
	r := env.Report(name).Inputs("Input", inputs, withShape).Separator().Line("Output: %s", dst.Path)
	if err := WriteOutput(dst, placeholder); err != nil {
		return err
	}
	return env.Finish(ctx, name, r, dst)
}

// ---------- Packaging ----------

// Packager builds the final package from the merged manifest, the dex files
// and the merged resources.
type Packager struct {
	task.Base
	env             *Env
	Manifest        *artifact.LocationProperty
	DexFiles        *artifact.LocationListProperty
	MergedResources *artifact.LocationProperty
	OutputApk       *artifact.LocationProperty
}

func (e *Env) NewPackager(name string) *Packager {
	return &Packager{
		Base:            task.NewBase(name),
		env:             e,
		Manifest:        artifact.NewFileProperty("manifest"),
		DexFiles:        artifact.NewFileListProperty("dexFiles"),
		MergedResources: artifact.NewDirectoryProperty("mergedResources"),
		OutputApk:       artifact.NewFileProperty("outputApk"),
	}
}

func (t *Packager) Execute(ctx context.Context) error {
	manifest, err := t.Manifest.Get()
	if err != nil {
		return err
	}
	dex, err := t.DexFiles.Get()
	if err != nil {
		return err
	}
	res, err := t.MergedResources.Get()
	if err != nil {
		return err
	}
	out, err := t.OutputApk.Get()
	if err != nil {
		return err
	}

	r := t.env.Report(t.Name()).Line("manifest: %s", manifest.Path)
	for _, d := range dex {
		r.Line("dexFiles: %s", d.Path)
	}
	r.Line("mergedResources: %s", res.Path).Separator().Line("Output: %s", out.Path)
	if err := WriteOutput(out, placeholder); err != nil {
		return err
	}
	return t.env.Finish(ctx, t.Name(), r, out)
}

// Lifecycle has no inputs or outputs of its own; it exists to depend on
// other tasks.
type Lifecycle struct {
	task.Base
	env *Env
}

func (e *Env) NewLifecycle(name string) *Lifecycle {
	return &Lifecycle{Base: task.NewBase(name), env: e}
}

func (t *Lifecycle) Execute(ctx context.Context) error {
	return t.env.Finish(ctx, t.Name(), t.env.Report(t.Name()))
}
