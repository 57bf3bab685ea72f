package extension

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dusk-indust/buildgraph/internal/artifact"
	"github.com/dusk-indust/buildgraph/internal/holder"
	"github.com/dusk-indust/buildgraph/internal/pipeline"
	"github.com/dusk-indust/buildgraph/internal/task"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	h      *holder.Holder
	result pipeline.Result
	out    *bytes.Buffer
}

func configure(t *testing.T, buildDir string, props map[string]any) fixture {
	t.Helper()
	v := viper.New()
	for k, val := range props {
		v.Set(k, val)
	}

	var out bytes.Buffer
	console := pipeline.NewConsole(&out)
	h := holder.New(holder.NewLayout(buildDir), task.NewContainer(nil), nil)
	core := pipeline.New(pipeline.NewEnv(console, nil, ""), nil)
	New(v, pipeline.NewEnv(console, nil, Label), nil).Apply(core)

	res, err := core.Configure(h)
	require.NoError(t, err)
	return fixture{h: h, result: res, out: &out}
}

func (f fixture) realize(t *testing.T, name string) task.Task {
	t.Helper()
	tk, err := f.h.Tasks().Realize(name)
	require.NoError(t, err)
	return tk
}

func TestRegister_NothingEnabled(t *testing.T) {
	f := configure(t, "/build", nil)
	assert.Equal(t, []string{
		"manifestMerger", "resources", "resourceMerger",
		"compileCode", "dexer", "packageApk", "assemble",
	}, f.h.Tasks().Names())
}

func TestRegister_TransformResources(t *testing.T) {
	f := configure(t, "/build", map[string]any{"transform.resources": true})

	tr := f.realize(t, "transformResources").(*DirectoryListTransformer)
	in, err := tr.InputArtifacts.Get()
	require.NoError(t, err)
	assert.Equal(t, []artifact.Location{
		artifact.Dir("/build/intermediates/generateResources/RESOURCES"),
		artifact.Dir("/build/intermediates/resources/RESOURCES"),
	}, in, "the first-party producer still feeds the first transform")

	merger := f.realize(t, "resourceMerger").(*pipeline.MultiToSingleDirectory)
	in, err = merger.InputArtifacts.Get()
	require.NoError(t, err)
	assert.Equal(t, []artifact.Location{
		artifact.Dir("/build/intermediates/transformResources/RESOURCES"),
		artifact.Dir("/build/intermediates/generateMoreResources/RESOURCES"),
	}, in)

	merged := f.realize(t, "transformMergedResources").(*DirectoryTransformer)
	src, err := merged.InputArtifact.Get()
	require.NoError(t, err)
	assert.Equal(t, artifact.Dir("/build/intermediates/resourceMerger/MERGED_RESOURCES"), src)

	pkg := f.realize(t, "packageApk").(*pipeline.Packager)
	res, err := pkg.MergedResources.Get()
	require.NoError(t, err)
	assert.Equal(t, artifact.Dir("/build/intermediates/transformMergedResources/MERGED_RESOURCES"), res)
}

func TestRegister_AddAll(t *testing.T) {
	f := configure(t, "/build", map[string]any{"add.all": true})
	assert.True(t, f.result.UseDexMerger)

	dexer := f.realize(t, "dexer").(*pipeline.MixedToSingleFile)
	in, err := dexer.InputArtifacts.Get()
	require.NoError(t, err)
	assert.Equal(t, []artifact.Location{
		artifact.File("/build/intermediates/generateCode1/BYTECODE.txt"),
		artifact.Dir("/build/intermediates/generateCode2/BYTECODE"),
		artifact.File("/build/intermediates/compileCode/BYTECODE.txt"),
	}, in)

	merger := f.realize(t, "dexMerger").(*pipeline.MultiToSingleFile)
	assert.ElementsMatch(t, []string{"generateDex", "dexer"}, merger.Dependencies())
}

func TestRegister_TransformManifestAndPackage(t *testing.T) {
	f := configure(t, "/build", map[string]any{
		"transform.manifest": true,
		"transform.package":  true,
	})

	manifest := f.realize(t, "transformManifest").(*FileTransformer)
	in, err := manifest.InputArtifact.Get()
	require.NoError(t, err)
	assert.Equal(t, artifact.File("/build/intermediates/manifestMerger/MERGED_MANIFEST.txt"), in)
	out, err := manifest.OutputArtifact.Get()
	require.NoError(t, err)
	assert.Equal(t, artifact.File("/build/outputs/merged_manifest.txt"), out)

	apk := f.realize(t, "packageApk").(*pipeline.Packager)
	apkOut, err := apk.OutputApk.Get()
	require.NoError(t, err)
	assert.Equal(t, artifact.File("/build/intermediates/packageApk/PACKAGE.txt"), apkOut)
	apkManifest, err := apk.Manifest.Get()
	require.NoError(t, err)
	assert.Equal(t, out, apkManifest, "the packager reads the transformed manifest")

	pkg := f.realize(t, "transformPackage").(*FileTransformer)
	pkgOut, err := pkg.OutputArtifact.Get()
	require.NoError(t, err)
	assert.Equal(t, artifact.File("/build/outputs/package.txt"), pkgOut)

	assemble := f.realize(t, "assemble")
	assert.Equal(t, []string{"transformPackage"}, assemble.TaskBase().Dependencies())
}

func TestRegister_ReplaceAll(t *testing.T) {
	f := configure(t, "/build", map[string]any{"replace.all": true})

	assert.True(t, f.result.UseDexMerger)
	assert.ElementsMatch(t, []string{"dexMerger", "packageApk"}, f.result.Skipped)
	assert.False(t, f.h.Tasks().Has("packageApk"))
	assert.False(t, f.h.Tasks().Has("dexMerger"))

	pkg := f.realize(t, "newPackager").(*Packager)
	assert.Equal(t, []string{"manifestMerger", "compileCode", "resourceMerger"}, pkg.Dependencies())

	inputs := pkg.Inputs()
	require.Len(t, inputs, 3)
	assert.Equal(t, "bytecodeFiles", inputs[1].Name)
	assert.Equal(t, artifact.SensitivityContent, inputs[1].Sensitivity)

	assemble := f.realize(t, "assemble")
	assert.Equal(t, []string{"newPackager"}, assemble.TaskBase().Dependencies())

	got, err := f.h.Resolve(artifact.MergedDex)
	require.NoError(t, err)
	assert.Equal(t, []artifact.Location{artifact.File("/build/intermediates/newDexer/MERGED_DEX.txt")}, got)
}

func TestRegister_ReplaceDexerOnly(t *testing.T) {
	f := configure(t, "/build", map[string]any{"replace.dexer": true})

	pkg := f.realize(t, "packageApk").(*pipeline.Packager)
	dex, err := pkg.DexFiles.Get()
	require.NoError(t, err)
	assert.Equal(t, []artifact.Location{artifact.File("/build/intermediates/newDexer/MERGED_DEX.txt")}, dex)
}

func TestRegister_StringProperties(t *testing.T) {
	// Properties arrive as strings from -P flags and the environment.
	f := configure(t, "/build", map[string]any{"add.dex": "true", "add.code": "false"})
	assert.True(t, f.h.Tasks().Has("generateDex"))
	assert.False(t, f.h.Tasks().Has("generateCode1"))
}

func TestFileTransformer_AppendsMarker(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(in, []byte("foo\n"), 0o644))

	var out bytes.Buffer
	tr := newFileTransformer(pipeline.NewEnv(pipeline.NewConsole(&out), nil, Label))("transformManifest")
	require.NoError(t, tr.InputArtifact.SetValue(artifact.File(in)))
	require.NoError(t, tr.OutputArtifact.SetValue(artifact.File(filepath.Join(dir, "out", "out.txt"))))

	require.NoError(t, tr.Execute(context.Background()))

	data, err := os.ReadFile(filepath.Join(dir, "out", "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "foo\nnew content\n", string(data))
	assert.Contains(t, out.String(), "transformManifest(CustomPlugin)\n\tInput: "+in+"\n\t---\n")
}
