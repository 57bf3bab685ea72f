// Package pipeline creates the first-party tasks of a build against the
// artifact holder. Extensions registered with HandleArtifacts run first, so
// the default tasks can see what third-party code already produced,
// appended or replaced and adapt to it.
package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/dusk-indust/buildgraph/internal/artifact"
	"github.com/dusk-indust/buildgraph/internal/holder"
	"github.com/dusk-indust/buildgraph/internal/task"
)

// Default task names.
const (
	TaskManifestMerger = "manifestMerger"
	TaskResources      = "resources"
	TaskResourceMerger = "resourceMerger"
	TaskCompileCode    = "compileCode"
	TaskDexer          = "dexer"
	TaskDexMerger      = "dexMerger"
	TaskPackageApk     = "packageApk"
	TaskAssemble       = "assemble"
)

// Extension receives the holder before any first-party task exists.
type Extension func(h *holder.Holder) error

// Plugin owns the registered extensions and the default pipeline.
type Plugin struct {
	env        *Env
	logger     *slog.Logger
	extensions []Extension
}

// New returns a plugin whose tasks print to env's console.
func New(env *Env, logger *slog.Logger) *Plugin {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Plugin{env: env, logger: logger}
}

// HandleArtifacts registers ext. Extensions run in registration order.
func (p *Plugin) HandleArtifacts(ext Extension) {
	p.extensions = append(p.extensions, ext)
}

// Result describes the decisions Configure took.
type Result struct {
	// Target is the lifecycle task that builds everything.
	Target string

	// UseDexMerger is set when the packager reads MERGED_DEX instead of the
	// DEX list.
	UseDexMerger bool

	// Skipped lists default tasks that were not created because an
	// extension already produced their artifact.
	Skipped []string
}

// Configure runs one configuration pass: extensions, then the default
// tasks, then FinalizeLocations.
func (p *Plugin) Configure(h *holder.Holder) (Result, error) {
	for i, ext := range p.extensions {
		if err := ext(h); err != nil {
			return Result{}, fmt.Errorf("pipeline: extension %d: %w", i+1, err)
		}
	}

	var res Result
	steps := []func(*holder.Holder, *Result) error{
		p.createManifestMerger,
		p.createResourceMerger,
		p.createCompilerAndDexer,
		p.createDexMerger,
		p.createPackager,
		p.createAssemble,
	}
	for _, step := range steps {
		if err := step(h, &res); err != nil {
			return Result{}, fmt.Errorf("pipeline: %w", err)
		}
	}

	if err := h.FinalizeLocations(); err != nil {
		return Result{}, fmt.Errorf("pipeline: %w", err)
	}
	p.logger.Info("build configured",
		"tasks", len(h.Tasks().Names()),
		"dex_merger", res.UseDexMerger,
		"skipped", res.Skipped)
	return res, nil
}

func (p *Plugin) createManifestMerger(h *holder.Holder, res *Result) error {
	has, err := h.HasProducer(artifact.MergedManifest)
	if err != nil {
		return err
	}
	if has {
		res.Skipped = append(res.Skipped, TaskManifestMerger)
		return nil
	}
	th, err := task.Register(h.Tasks(), TaskManifestMerger, p.env.NewFileProducer)
	if err != nil {
		return err
	}
	return holder.Produces(h, artifact.MergedManifest, th, fileOutput)
}

func (p *Plugin) createResourceMerger(h *holder.Holder, _ *Result) error {
	resources, err := task.Register(h.Tasks(), TaskResources, p.env.NewDirectoryProducer)
	if err != nil {
		return err
	}
	if err := holder.Produces(h, artifact.Resources, resources, dirOutput); err != nil {
		return err
	}

	merger, err := task.Register(h.Tasks(), TaskResourceMerger, p.env.NewMultiToSingleDirectory)
	if err != nil {
		return err
	}
	if err := holder.ConsumeList(h, artifact.Resources, merger, dirMergerInputs); err != nil {
		return err
	}
	return holder.Produces(h, artifact.MergedResources, merger, dirMergerOutput)
}

func (p *Plugin) createCompilerAndDexer(h *holder.Holder, _ *Result) error {
	compiler, err := task.Register(h.Tasks(), TaskCompileCode, p.env.NewFileProducer)
	if err != nil {
		return err
	}
	if err := holder.Produces(h, artifact.Bytecode, compiler, fileOutput); err != nil {
		return err
	}

	dexer, err := task.Register(h.Tasks(), TaskDexer, p.env.NewMixedToSingleFile)
	if err != nil {
		return err
	}
	if err := holder.ConsumeList(h, artifact.Bytecode, dexer, mixedInputs); err != nil {
		return err
	}
	return holder.Produces(h, artifact.Dex, dexer, mixedOutput)
}

// createDexMerger merges the dex list when something appended to it, unless
// an extension already produces MERGED_DEX.
func (p *Plugin) createDexMerger(h *holder.Holder, res *Result) error {
	has, err := h.HasProducer(artifact.MergedDex)
	if err != nil {
		return err
	}
	if has {
		res.UseDexMerger = true
		res.Skipped = append(res.Skipped, TaskDexMerger)
		return nil
	}
	appended, err := h.HasAppend(artifact.Dex)
	if err != nil || !appended {
		return err
	}

	merger, err := task.Register(h.Tasks(), TaskDexMerger, p.env.NewMultiToSingleFile)
	if err != nil {
		return err
	}
	if err := holder.ConsumeList(h, artifact.Dex, merger, fileMergerInputs); err != nil {
		return err
	}
	if err := holder.Produces(h, artifact.MergedDex, merger, fileMergerOutput); err != nil {
		return err
	}
	res.UseDexMerger = true
	return nil
}

func (p *Plugin) createPackager(h *holder.Holder, res *Result) error {
	has, err := h.HasProducer(artifact.Package)
	if err != nil {
		return err
	}
	if has {
		res.Skipped = append(res.Skipped, TaskPackageApk)
		return nil
	}

	packager, err := task.Register(h.Tasks(), TaskPackageApk, p.env.NewPackager)
	if err != nil {
		return err
	}
	if err := holder.Consume(h, artifact.MergedManifest, packager, packagerManifest); err != nil {
		return err
	}
	if err := holder.Consume(h, artifact.MergedResources, packager, packagerResources); err != nil {
		return err
	}
	// The merged dex is presented to the packager as a one-element list.
	var dex artifact.Kind = artifact.Dex
	if res.UseDexMerger {
		dex = artifact.MergedDex
	}
	if err := holder.ConsumeList(h, dex, packager, packagerDexFiles); err != nil {
		return err
	}
	return holder.Produces(h, artifact.Package, packager, packagerOutput)
}

func (p *Plugin) createAssemble(h *holder.Holder, res *Result) error {
	pkg, err := h.Single(artifact.Package)
	if err != nil {
		return err
	}
	assemble, err := task.Register(h.Tasks(), TaskAssemble, p.env.NewLifecycle)
	if err != nil {
		return err
	}
	res.Target = TaskAssemble
	return assemble.Configure(func(t *Lifecycle) error {
		t.DependsOn(pkg)
		return nil
	})
}

func fileOutput(t *FileProducer) *artifact.LocationProperty { return t.OutputArtifact }
func dirOutput(t *DirectoryProducer) *artifact.LocationProperty { return t.OutputArtifact }
func dirMergerInputs(t *MultiToSingleDirectory) *artifact.LocationListProperty { return t.InputArtifacts }
func dirMergerOutput(t *MultiToSingleDirectory) *artifact.LocationProperty { return t.OutputArtifact }
func mixedInputs(t *MixedToSingleFile) *artifact.LocationListProperty { return t.InputArtifacts }
func mixedOutput(t *MixedToSingleFile) *artifact.LocationProperty { return t.OutputArtifact }
func fileMergerInputs(t *MultiToSingleFile) *artifact.LocationListProperty { return t.InputArtifacts }
func fileMergerOutput(t *MultiToSingleFile) *artifact.LocationProperty { return t.OutputArtifact }
func packagerManifest(t *Packager) *artifact.LocationProperty { return t.Manifest }
func packagerResources(t *Packager) *artifact.LocationProperty { return t.MergedResources }
func packagerDexFiles(t *Packager) *artifact.LocationListProperty { return t.DexFiles }
func packagerOutput(t *Packager) *artifact.LocationProperty { return t.OutputApk }
