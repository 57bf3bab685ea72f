package extension

import (
	"context"
	"fmt"
	"os"

	"github.com/dusk-indust/buildgraph/internal/artifact"
	"github.com/dusk-indust/buildgraph/internal/pipeline"
	"github.com/dusk-indust/buildgraph/internal/task"
)

// FileTransformer rewrites one file, appending a marker line to its input.
type FileTransformer struct {
	task.Base
	env            *pipeline.Env
	InputArtifact  *artifact.LocationProperty
	OutputArtifact *artifact.LocationProperty
}

func newFileTransformer(env *pipeline.Env) func(string) *FileTransformer {
	return func(name string) *FileTransformer {
		return &FileTransformer{
			Base:           task.NewBase(name),
			env:            env,
			InputArtifact:  artifact.NewFileProperty("inputArtifact"),
			OutputArtifact: artifact.NewFileProperty("outputArtifact"),
		}
	}
}

func (t *FileTransformer) Execute(ctx context.Context) error {
	in, err := t.InputArtifact.Get()
	if err != nil {
		return err
	}
	out, err := t.OutputArtifact.Get()
	if err != nil {
		return err
	}
	r := t.env.Report(t.Name()).Line("Input: %s", in.Path).Separator().Line("Output: %s", out.Path)

	content, err := os.ReadFile(in.Path)
	if err != nil {
		return fmt.Errorf("read input of %s: %w", t.Name(), err)
	}
	if err := pipeline.WriteOutput(out, string(content)+"new content\n"); err != nil {
		return err
	}
	return t.env.Finish(ctx, t.Name(), r, out)
}

// DirectoryTransformer rewrites one directory.
type DirectoryTransformer struct {
	task.Base
	env            *pipeline.Env
	InputArtifact  *artifact.LocationProperty
	OutputArtifact *artifact.LocationProperty
}

func newDirectoryTransformer(env *pipeline.Env) func(string) *DirectoryTransformer {
	return func(name string) *DirectoryTransformer {
		return &DirectoryTransformer{
			Base:           task.NewBase(name),
			env:            env,
			InputArtifact:  artifact.NewDirectoryProperty("inputArtifact"),
			OutputArtifact: artifact.NewDirectoryProperty("outputArtifact"),
		}
	}
}

func (t *DirectoryTransformer) Execute(ctx context.Context) error {
	in, err := t.InputArtifact.Get()
	if err != nil {
		return err
	}
	out, err := t.OutputArtifact.Get()
	if err != nil {
		return err
	}
	r := t.env.Report(t.Name()).Line("Input: %s", in.Path).Separator().Line("Output: %s", out.Path)
	if err := pipeline.WriteOutput(out, "foo\n"); err != nil {
		return err
	}
	return t.env.Finish(ctx, t.Name(), r, out)
}

// DirectoryListTransformer collapses a list of directories into one.
type DirectoryListTransformer struct {
	task.Base
	env            *pipeline.Env
	InputArtifacts *artifact.LocationListProperty
	OutputArtifact *artifact.LocationProperty
}

func newDirectoryListTransformer(env *pipeline.Env) func(string) *DirectoryListTransformer {
	return func(name string) *DirectoryListTransformer {
		return &DirectoryListTransformer{
			Base:           task.NewBase(name),
			env:            env,
			InputArtifacts: artifact.NewDirectoryListProperty("inputArtifacts"),
			OutputArtifact: artifact.NewDirectoryProperty("outputArtifact"),
		}
	}
}

func (t *DirectoryListTransformer) Execute(ctx context.Context) error {
	in, err := t.InputArtifacts.Get()
	if err != nil {
		return err
	}
	out, err := t.OutputArtifact.Get()
	if err != nil {
		return err
	}
	r := t.env.Report(t.Name()).Inputs("Input", in, false).Separator().Line("Output: %s", out.Path)
	if err := pipeline.WriteOutput(out, "foo2\n"); err != nil {
		return err
	}
	return t.env.Finish(ctx, t.Name(), r, out)
}

// Packager replaces both the dexer and the default packager: it builds the
// package straight from bytecode.
type Packager struct {
	task.Base
	env             *pipeline.Env
	Manifest        *artifact.LocationProperty
	BytecodeFiles   *artifact.LocationListProperty
	MergedResources *artifact.LocationProperty
	OutputArtifact  *artifact.LocationProperty
}

func newPackager(env *pipeline.Env) func(string) *Packager {
	return func(name string) *Packager {
		return &Packager{
			Base:            task.NewBase(name),
			env:             env,
			Manifest:        artifact.NewFileProperty("manifest"),
			BytecodeFiles:   artifact.NewMixedListProperty("bytecodeFiles"),
			MergedResources: artifact.NewDirectoryProperty("mergedResources"),
			OutputArtifact:  artifact.NewFileProperty("outputArtifact"),
		}
	}
}

func (t *Packager) Execute(ctx context.Context) error {
	manifest, err := t.Manifest.Get()
	if err != nil {
		return err
	}
	code, err := t.BytecodeFiles.Get()
	if err != nil {
		return err
	}
	res, err := t.MergedResources.Get()
	if err != nil {
		return err
	}
	out, err := t.OutputArtifact.Get()
	if err != nil {
		return err
	}
	r := t.env.Report(t.Name()).
		Line("manifest: %s", manifest.Path).
		Inputs("bytecodeFiles", code, true).
		Line("mergedResources: %s", res.Path).
		Separator().
		Line("Output: %s", out.Path)
	if err := pipeline.WriteOutput(out, "foo\n"); err != nil {
		return err
	}
	return t.env.Finish(ctx, t.Name(), r, out)
}

func fileOutput(t *pipeline.FileProducer) *artifact.LocationProperty { return t.OutputArtifact }
func dirOutput(t *pipeline.DirectoryProducer) *artifact.LocationProperty { return t.OutputArtifact }
func dexerInputs(t *pipeline.MixedToSingleFile) *artifact.LocationListProperty { return t.InputArtifacts }
func dexerOutput(t *pipeline.MixedToSingleFile) *artifact.LocationProperty { return t.OutputArtifact }
func fileTransformIn(t *FileTransformer) *artifact.LocationProperty { return t.InputArtifact }
func fileTransformOut(t *FileTransformer) *artifact.LocationProperty { return t.OutputArtifact }
func dirTransformIn(t *DirectoryTransformer) *artifact.LocationProperty { return t.InputArtifact }
func dirTransformOut(t *DirectoryTransformer) *artifact.LocationProperty { return t.OutputArtifact }
func dirListIn(t *DirectoryListTransformer) *artifact.LocationListProperty { return t.InputArtifacts }
func dirListOut(t *DirectoryListTransformer) *artifact.LocationProperty { return t.OutputArtifact }
func packagerManifest(t *Packager) *artifact.LocationProperty { return t.Manifest }
func packagerBytecode(t *Packager) *artifact.LocationListProperty { return t.BytecodeFiles }
func packagerResources(t *Packager) *artifact.LocationProperty { return t.MergedResources }
func packagerOutput(t *Packager) *artifact.LocationProperty { return t.OutputArtifact }
