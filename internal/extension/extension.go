// Package extension is a third-party plugin built only on the holder API.
// Each group of registrations is switched on by a boolean property:
//
//	add.code  add.dex                                    (or add.all)
//	transform.manifest  transform.resources  transform.package  (or transform.all)
//	replace.dexer  replace.dexerAndPackager              (or replace.all)
package extension

import (
	"log/slog"

	"github.com/dusk-indust/buildgraph/internal/artifact"
	"github.com/dusk-indust/buildgraph/internal/holder"
	"github.com/dusk-indust/buildgraph/internal/pipeline"
	"github.com/dusk-indust/buildgraph/internal/task"
)

// Label is appended to the name of every task this plugin prints.
const Label = "(CustomPlugin)"

// Properties is the read side of the build's property set. *viper.Viper
// satisfies it.
type Properties interface {
	GetBool(key string) bool
}

// Toggles lists every property the plugin reads.
var Toggles = []string{
	"add.all", "add.code", "add.dex",
	"transform.all", "transform.manifest", "transform.resources", "transform.package",
	"replace.all", "replace.dexer", "replace.dexerAndPackager",
}

// Plugin registers the enabled third-party tasks.
type Plugin struct {
	props  Properties
	env    *pipeline.Env
	logger *slog.Logger
}

// New returns the plugin. Its tasks print through env, whose label should
// normally be Label.
func New(props Properties, env *pipeline.Env, logger *slog.Logger) *Plugin {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Plugin{props: props, env: env, logger: logger}
}

// Apply hooks the plugin into core so it runs before the default tasks.
func (p *Plugin) Apply(core *pipeline.Plugin) {
	core.HandleArtifacts(p.Register)
}

// Register issues every enabled registration against h.
func (p *Plugin) Register(h *holder.Holder) error {
	steps := []struct {
		name    string
		enabled bool
		run     func(*holder.Holder) error
	}{
		{"transform.resources", p.mustTransform("resources"), p.processResources},
		{"transform.manifest", p.mustTransform("manifest"), p.processManifest},
		{"add.code", p.mustAdd("code"), p.addCode},
		{"add.dex", p.mustAdd("dex"), p.addDex},
		{"transform.package", p.mustTransform("package"), p.processPackage},
		{"replace.dexer", p.mustReplace("dexer"), p.replaceDexer},
		{"replace.dexerAndPackager", p.mustReplace("dexerAndPackager"), p.replaceDexerAndPackager},
	}
	for _, s := range steps {
		if !s.enabled {
			continue
		}
		p.logger.Debug("extension step enabled", "property", s.name)
		if err := s.run(h); err != nil {
			return err
		}
	}
	return nil
}

func (p *Plugin) processResources(h *holder.Holder) error {
	gen, err := task.Register(h.Tasks(), "generateResources", p.env.NewDirectoryProducer)
	if err != nil {
		return err
	}
	if err := holder.Append(h, artifact.Resources, gen, dirOutput); err != nil {
		return err
	}

	tr, err := task.Register(h.Tasks(), "transformResources", newDirectoryListTransformer(p.env))
	if err != nil {
		return err
	}
	if err := holder.TransformList(h, artifact.Resources, tr, dirListIn, dirListOut); err != nil {
		return err
	}

	more, err := task.Register(h.Tasks(), "generateMoreResources", p.env.NewDirectoryProducer)
	if err != nil {
		return err
	}
	if err := holder.Append(h, artifact.Resources, more, dirOutput); err != nil {
		return err
	}

	merged, err := task.Register(h.Tasks(), "transformMergedResources", newDirectoryTransformer(p.env))
	if err != nil {
		return err
	}
	return holder.Transform(h, artifact.MergedResources, merged, dirTransformIn, dirTransformOut)
}

func (p *Plugin) processManifest(h *holder.Holder) error {
	th, err := task.Register(h.Tasks(), "transformManifest", newFileTransformer(p.env))
	if err != nil {
		return err
	}
	return holder.Transform(h, artifact.MergedManifest, th, fileTransformIn, fileTransformOut)
}

func (p *Plugin) addCode(h *holder.Holder) error {
	code1, err := task.Register(h.Tasks(), "generateCode1", p.env.NewFileProducer)
	if err != nil {
		return err
	}
	if err := holder.Append(h, artifact.Bytecode, code1, fileOutput); err != nil {
		return err
	}
	code2, err := task.Register(h.Tasks(), "generateCode2", p.env.NewDirectoryProducer)
	if err != nil {
		return err
	}
	return holder.Append(h, artifact.Bytecode, code2, dirOutput)
}

func (p *Plugin) addDex(h *holder.Holder) error {
	th, err := task.Register(h.Tasks(), "generateDex", p.env.NewFileProducer)
	if err != nil {
		return err
	}
	return holder.Append(h, artifact.Dex, th, fileOutput)
}

func (p *Plugin) processPackage(h *holder.Holder) error {
	th, err := task.Register(h.Tasks(), "transformPackage", newFileTransformer(p.env))
	if err != nil {
		return err
	}
	return holder.Transform(h, artifact.Package, th, fileTransformIn, fileTransformOut)
}

func (p *Plugin) replaceDexer(h *holder.Holder) error {
	th, err := task.Register(h.Tasks(), "newDexer", p.env.NewMixedToSingleFile)
	if err != nil {
		return err
	}
	if err := holder.ConsumeList(h, artifact.Bytecode, th, dexerInputs); err != nil {
		return err
	}
	return holder.Replace(h, artifact.MergedDex, th, dexerOutput)
}

func (p *Plugin) replaceDexerAndPackager(h *holder.Holder) error {
	_, err := holder.ReplaceTask(h, artifact.Package, "newPackager", newPackager(p.env), packagerOutput).
		Input(artifact.MergedManifest, packagerManifest).
		InputList(artifact.Bytecode, packagerBytecode).
		Input(artifact.MergedResources, packagerResources).
		Finish(nil)
	return err
}

func (p *Plugin) mustAdd(name string) bool {
	return p.props.GetBool("add."+name) || p.props.GetBool("add.all")
}

func (p *Plugin) mustTransform(name string) bool {
	return p.props.GetBool("transform."+name) || p.props.GetBool("transform.all")
}

func (p *Plugin) mustReplace(name string) bool {
	return p.props.GetBool("replace."+name) || p.props.GetBool("replace.all")
}
