package holder

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/dusk-indust/buildgraph/internal/artifact"
	"github.com/dusk-indust/buildgraph/internal/provider"
	"github.com/dusk-indust/buildgraph/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const buildDir = "/build"

// stageTask has one field of every contract shape: single input, list
// input and single output.
type stageTask struct {
	task.Base
	In     *artifact.LocationProperty
	InList *artifact.LocationListProperty
	Out    *artifact.LocationProperty
}

func (*stageTask) Execute(context.Context) error { return nil }

func newFileStage(name string) *stageTask {
	return &stageTask{
		Base:   task.NewBase(name),
		In:     artifact.NewFileProperty("inputArtifact"),
		InList: artifact.NewMixedListProperty("inputArtifacts"),
		Out:    artifact.NewFileProperty("outputArtifact"),
	}
}

func newDirStage(name string) *stageTask {
	return &stageTask{
		Base:   task.NewBase(name),
		In:     artifact.NewDirectoryProperty("inputArtifact"),
		InList: artifact.NewDirectoryListProperty("inputArtifacts"),
		Out:    artifact.NewDirectoryProperty("outputArtifact"),
	}
}

func in(t *stageTask) *artifact.LocationProperty          { return t.In }
func inList(t *stageTask) *artifact.LocationListProperty { return t.InList }
func out(t *stageTask) *artifact.LocationProperty         { return t.Out }

func newTestHolder(t *testing.T) *Holder {
	t.Helper()
	return New(NewLayout(buildDir), task.NewContainer(nil), nil)
}

func register(t testing.TB, h *Holder, name string, newTask func(string) *stageTask) *task.Handle[*stageTask] {
	t.Helper()
	th, err := task.Register(h.Tasks(), name, newTask)
	require.NoError(t, err)
	return th
}

func realize(t testing.TB, th *task.Handle[*stageTask]) *stageTask {
	t.Helper()
	st, err := th.Get()
	require.NoError(t, err)
	return st
}

func scratchFile(taskName string, k artifact.Kind) artifact.Location {
	return artifact.File(filepath.Join(buildDir, "intermediates", taskName, k.ID()) + ".txt")
}

func scratchDir(taskName string, k artifact.Kind) artifact.Location {
	return artifact.Dir(filepath.Join(buildDir, "intermediates", taskName, k.ID()))
}

func resolveSingle(t testing.TB, h *Holder, k artifact.SingleKind) artifact.Location {
	t.Helper()
	p, err := h.Single(k)
	require.NoError(t, err)
	loc, err := p.Get()
	require.NoError(t, err)
	return loc
}

// ---------- Single-value slots ----------

func TestProduce_ManifestGoesToOutputsAfterFinalize(t *testing.T) {
	h := newTestHolder(t)
	taskM := register(t, h, "taskM", newFileStage)
	require.NoError(t, Produces(h, artifact.MergedManifest, taskM, out))

	assert.Equal(t, scratchFile("taskM", artifact.MergedManifest), resolveSingle(t, h, artifact.MergedManifest),
		"before finalize the origin writes to scratch")

	require.NoError(t, h.FinalizeLocations())
	assert.True(t, h.Finalized())

	want := artifact.File(filepath.Join(buildDir, "outputs", "merged_manifest.txt"))
	assert.Equal(t, want, resolveSingle(t, h, artifact.MergedManifest))

	st := realize(t, taskM)
	loc, err := st.Out.Get()
	require.NoError(t, err)
	assert.Equal(t, want, loc, "the task's own field sees the canonical path")
	assert.True(t, st.Out.Sealed())
}

func TestProduce_TwiceFails(t *testing.T) {
	h := newTestHolder(t)
	taskA := register(t, h, "taskA", newFileStage)
	taskB := register(t, h, "taskB", newFileStage)

	require.NoError(t, Produces(h, artifact.MergedDex, taskA, out))
	err := Produces(h, artifact.MergedDex, taskB, out)
	require.ErrorIs(t, err, artifact.ErrAlreadyInitialized)

	var already *artifact.AlreadyInitializedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, "taskA", already.Origin)
	assert.Equal(t, "taskB", already.Rejected)

	assert.Equal(t, scratchFile("taskA", artifact.MergedDex), resolveSingle(t, h, artifact.MergedDex),
		"the first origin is unaffected")

	err = Replace(h, artifact.MergedDex, taskB, out)
	assert.ErrorIs(t, err, artifact.ErrAlreadyInitialized, "replace shares the single-origin rule")
}

func TestTransform_Chains(t *testing.T) {
	h := newTestHolder(t)
	origin := register(t, h, "merge", newFileStage)
	t1 := register(t, h, "t1", newFileStage)
	t2 := register(t, h, "t2", newFileStage)

	require.NoError(t, Produces(h, artifact.MergedDex, origin, out))
	final, err := h.Single(artifact.MergedDex)
	require.NoError(t, err)

	require.NoError(t, Transform(h, artifact.MergedDex, t1, in, out))
	require.NoError(t, Transform(h, artifact.MergedDex, t2, in, out))

	s1, s2 := realize(t, t1), realize(t, t2)

	in1, err := s1.In.Get()
	require.NoError(t, err)
	assert.Equal(t, scratchFile("merge", artifact.MergedDex), in1)

	in2, err := s2.In.Get()
	require.NoError(t, err)
	out1, err := s1.Out.Get()
	require.NoError(t, err)
	assert.Equal(t, out1, in2, "t2 reads exactly t1's output")

	got, err := final.Get()
	require.NoError(t, err)
	out2, err := s2.Out.Get()
	require.NoError(t, err)
	assert.Equal(t, out2, got, "a provider fetched before the transforms reads through to the last one")

	assert.Equal(t, []string{"t1"}, s2.Dependencies())
	assert.Equal(t, []string{"merge"}, s1.Dependencies())
	assert.Equal(t, []string{"t2"}, final.Producers())

	has, err := h.HasTransforms(artifact.MergedDex)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestTransform_BeforeOrigin(t *testing.T) {
	h := newTestHolder(t)
	t1 := register(t, h, "transformManifest", newFileStage)
	origin := register(t, h, "manifestMerger", newFileStage)

	// Extensions register transforms before first-party code creates the
	// origin.
	require.NoError(t, Transform(h, artifact.MergedManifest, t1, in, out))
	require.NoError(t, Produces(h, artifact.MergedManifest, origin, out))
	require.NoError(t, h.FinalizeLocations())

	st := realize(t, t1)
	got, err := st.In.Get()
	require.NoError(t, err)
	assert.Equal(t, scratchFile("manifestMerger", artifact.MergedManifest), got,
		"the origin stays in scratch because a transform follows it")

	assert.Equal(t, artifact.File(filepath.Join(buildDir, "outputs", "merged_manifest.txt")),
		resolveSingle(t, h, artifact.MergedManifest))
}

func TestOutputLocation_OnlyLastTransformIsCanonical(t *testing.T) {
	h := newTestHolder(t)
	origin := register(t, h, "packageApk", newFileStage)
	t1 := register(t, h, "sign", newFileStage)
	t2 := register(t, h, "align", newFileStage)

	require.NoError(t, Produces(h, artifact.Package, origin, out))
	require.NoError(t, Transform(h, artifact.Package, t1, in, out))
	require.NoError(t, Transform(h, artifact.Package, t2, in, out))
	require.NoError(t, h.FinalizeLocations())

	canonical := artifact.File(filepath.Join(buildDir, "outputs", "package.txt"))

	o0, err := realize(t, origin).Out.Get()
	require.NoError(t, err)
	o1, err := realize(t, t1).Out.Get()
	require.NoError(t, err)
	o2, err := realize(t, t2).Out.Get()
	require.NoError(t, err)

	assert.Equal(t, scratchFile("packageApk", artifact.Package), o0)
	assert.Equal(t, scratchFile("sign", artifact.Package), o1)
	assert.Equal(t, canonical, o2)
	assert.NotEqual(t, o1, o2)
}

func TestFinalize_TooEarlyLeavesScratchAndWarns(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	h := New(NewLayout(buildDir), task.NewContainer(nil), logger)

	origin := register(t, h, "packageApk", newFileStage)
	late := register(t, h, "late", newFileStage)

	require.NoError(t, Produces(h, artifact.Package, origin, out))
	require.NoError(t, h.FinalizeLocations())
	require.NoError(t, Transform(h, artifact.Package, late, in, out))

	assert.Equal(t, scratchFile("late", artifact.Package), resolveSingle(t, h, artifact.Package),
		"finalizing before the last transform is not rejected, it leaves the newest stage in scratch")
	assert.Contains(t, buf.String(), "after output locations were finalized")
	assert.Contains(t, buf.String(), "task=late")
}

func TestSingle_UnresolvedIsDeferred(t *testing.T) {
	h := newTestHolder(t)

	p, err := h.Single(artifact.MergedDex)
	require.NoError(t, err, "getting an empty slot succeeds")

	_, err = p.Get()
	require.ErrorIs(t, err, artifact.ErrUnresolvedArtifact)
	var unresolved *artifact.UnresolvedArtifactError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, artifact.MergedDex, unresolved.Kind)

	has, err := h.HasProducer(artifact.MergedDex)
	require.NoError(t, err)
	assert.False(t, has)

	// Registering the origin later fixes the provider already handed out.
	origin := register(t, h, "dexMerger", newFileStage)
	require.NoError(t, Produces(h, artifact.MergedDex, origin, out))
	got, err := p.Get()
	require.NoError(t, err)
	assert.Equal(t, scratchFile("dexMerger", artifact.MergedDex), got)
}

func TestGet_IsIdempotent(t *testing.T) {
	h := newTestHolder(t)
	origin := register(t, h, "o", newFileStage)
	require.NoError(t, Produces(h, artifact.MergedManifest, origin, out))

	a, err := h.Single(artifact.MergedManifest)
	require.NoError(t, err)
	b, err := h.Single(artifact.MergedManifest)
	require.NoError(t, err)

	va, err := a.Get()
	require.NoError(t, err)
	vb, err := b.Get()
	require.NoError(t, err)
	va2, err := a.Get()
	require.NoError(t, err)
	assert.Equal(t, va, vb)
	assert.Equal(t, va, va2)

	_, isProperty := a.(*provider.Property[artifact.Location])
	assert.False(t, isProperty, "consumers never get the mutable cell")
}

// ---------- Multi-value slots ----------

func TestMulti_AppendTransformAppend(t *testing.T) {
	h := newTestHolder(t)
	gen1 := register(t, h, "genDex1", newFileStage)
	merge := register(t, h, "mergeDex", newFileStage)
	gen2 := register(t, h, "genDex2", newFileStage)

	require.NoError(t, Append(h, artifact.Dex, gen1, out))
	require.NoError(t, TransformList(h, artifact.Dex, merge, inList, out))
	require.NoError(t, Append(h, artifact.Dex, gen2, out))

	mergeInput, err := realize(t, merge).InList.Get()
	require.NoError(t, err)
	assert.Equal(t, []artifact.Location{scratchFile("genDex1", artifact.Dex)}, mergeInput)

	final, err := h.Multi(artifact.Dex)
	require.NoError(t, err)
	got, err := final.Get()
	require.NoError(t, err)
	assert.Equal(t, []artifact.Location{
		scratchFile("mergeDex", artifact.Dex),
		scratchFile("genDex2", artifact.Dex),
	}, got)
	assert.Equal(t, []string{"mergeDex", "genDex2"}, final.Producers())

	has, err := h.HasAppend(artifact.Dex)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestMulti_OriginsFeedFirstTransform(t *testing.T) {
	h := newTestHolder(t)
	gen := register(t, h, "generateResources", newDirStage)
	tr := register(t, h, "transformResources", newDirStage)
	more := register(t, h, "generateMoreResources", newDirStage)
	res := register(t, h, "resources", newDirStage)

	require.NoError(t, Append(h, artifact.Resources, gen, out))
	require.NoError(t, TransformList(h, artifact.Resources, tr, inList, out))
	require.NoError(t, Append(h, artifact.Resources, more, out))
	require.NoError(t, Produces(h, artifact.Resources, res, out))

	trInput, err := realize(t, tr).InList.Get()
	require.NoError(t, err)
	assert.Equal(t, []artifact.Location{
		scratchDir("generateResources", artifact.Resources),
		scratchDir("resources", artifact.Resources),
	}, trInput, "origins registered after the transform still feed it")

	got, err := h.Resolve(artifact.Resources)
	require.NoError(t, err)
	assert.Equal(t, []artifact.Location{
		scratchDir("transformResources", artifact.Resources),
		scratchDir("generateMoreResources", artifact.Resources),
	}, got)
}

func TestMulti_EmptyAndOriginOnly(t *testing.T) {
	h := newTestHolder(t)

	got, err := h.Resolve(artifact.Jar)
	require.NoError(t, err)
	assert.Empty(t, got, "no contributions is an empty list")

	compile := register(t, h, "compileCode", newFileStage)
	require.NoError(t, Produces(h, artifact.Bytecode, compile, out))

	has, err := h.HasAppend(artifact.Bytecode)
	require.NoError(t, err)
	assert.False(t, has, "origins are not appends")

	got, err = h.Resolve(artifact.Bytecode)
	require.NoError(t, err)
	assert.Equal(t, []artifact.Location{scratchFile("compileCode", artifact.Bytecode)}, got)
}

func TestMulti_MixedAcceptsFilesAndDirectories(t *testing.T) {
	h := newTestHolder(t)
	code1 := register(t, h, "generateCode1", newFileStage)
	code2 := register(t, h, "generateCode2", newDirStage)
	dexer := register(t, h, "dexer", newFileStage)

	require.NoError(t, Append(h, artifact.Bytecode, code1, out))
	require.NoError(t, Append(h, artifact.Bytecode, code2, out))
	require.NoError(t, ConsumeList(h, artifact.Bytecode, dexer, inList))

	got, err := realize(t, dexer).InList.Get()
	require.NoError(t, err)
	assert.Equal(t, []artifact.Location{
		scratchFile("generateCode1", artifact.Bytecode),
		scratchDir("generateCode2", artifact.Bytecode),
	}, got)
}

// ---------- Wiring adapter ----------

func TestWiring_TracksInputsWithKindMetadata(t *testing.T) {
	h := newTestHolder(t)
	origin := register(t, h, "merge", newFileStage)
	tr := register(t, h, "transformManifest", newFileStage)

	require.NoError(t, Produces(h, artifact.MergedManifest, origin, out))
	require.NoError(t, Transform(h, artifact.MergedManifest, tr, in, out))

	st := realize(t, tr)
	inputs := st.Inputs()
	require.Len(t, inputs, 1)
	assert.Equal(t, "inputArtifact", inputs[0].Name)
	assert.Equal(t, artifact.SensitivityNameOnly, inputs[0].Sensitivity)
	assert.Equal(t, artifact.NormalizerNone, inputs[0].Normalizer)

	outputs := st.Outputs()
	require.Len(t, outputs, 1)
	assert.Equal(t, "outputArtifact", outputs[0].Name)
}

func TestWiring_ClasspathNormalizer(t *testing.T) {
	h := newTestHolder(t)
	c := register(t, h, "compileAgainstR", newFileStage)
	require.NoError(t, ConsumeList(h, artifact.CompileRJar, c, inList))

	inputs := realize(t, c).Inputs()
	require.Len(t, inputs, 1)
	assert.Equal(t, artifact.NormalizerClasspath, inputs[0].Normalizer)
}

func TestWiring_FieldsAreSealed(t *testing.T) {
	h := newTestHolder(t)
	origin := register(t, h, "merge", newFileStage)
	tr := register(t, h, "tr", newFileStage)
	require.NoError(t, Produces(h, artifact.MergedDex, origin, out))
	require.NoError(t, Transform(h, artifact.MergedDex, tr, in, out))

	st := realize(t, tr)
	assert.ErrorIs(t, st.In.SetValue(artifact.File("elsewhere")), provider.ErrBindingViolation)
	assert.ErrorIs(t, st.Out.SetValue(artifact.File("elsewhere")), provider.ErrBindingViolation)
}

func TestWiring_UnexpectedShape(t *testing.T) {
	h := newTestHolder(t)
	wrong := register(t, h, "wrong", newFileStage)
	require.NoError(t, Produces(h, artifact.MergedResources, wrong, out))

	_, err := wrong.Get()
	require.ErrorIs(t, err, artifact.ErrUnexpectedShape)

	var shapeErr *artifact.UnexpectedValueShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, artifact.ShapeDirectory, shapeErr.Want)
	assert.Equal(t, artifact.ShapeFile, shapeErr.Got)
	assert.Equal(t, "outputArtifact", shapeErr.Field)
}

func TestWiring_NilField(t *testing.T) {
	h := newTestHolder(t)
	th := register(t, h, "nil", newFileStage)
	require.NoError(t, Produces(h, artifact.MergedDex, th, func(*stageTask) *artifact.LocationProperty { return nil }))

	_, err := th.Get()
	assert.Error(t, err)
}

// ---------- Registry dispatch ----------

func TestUnsupportedKind(t *testing.T) {
	h := newTestHolder(t)
	bogus := artifact.SingleFileKind(42)
	th := register(t, h, "t", newFileStage)

	_, err := h.Single(bogus)
	assert.ErrorIs(t, err, artifact.ErrUnsupportedKind)
	_, err = h.Multi(artifact.MultiFileKind(9))
	assert.ErrorIs(t, err, artifact.ErrUnsupportedKind)
	_, err = h.HasProducer(bogus)
	assert.ErrorIs(t, err, artifact.ErrUnsupportedKind)
	_, err = h.HasTransforms(nil)
	assert.ErrorIs(t, err, artifact.ErrUnsupportedKind)
	_, err = h.Resolve(bogus)
	assert.ErrorIs(t, err, artifact.ErrUnsupportedKind)
	_, err = h.State(bogus)
	assert.ErrorIs(t, err, artifact.ErrUnsupportedKind)

	assert.ErrorIs(t, Produces(h, bogus, th, out), artifact.ErrUnsupportedKind)
	assert.ErrorIs(t, Transform(h, bogus, th, in, out), artifact.ErrUnsupportedKind)
	assert.ErrorIs(t, Append(h, artifact.MultiMixedKind(3), th, out), artifact.ErrUnsupportedKind)
	assert.Empty(t, h.Stages(), "failed registrations are not recorded")
}

func TestConflictingStage(t *testing.T) {
	h := newTestHolder(t)
	th := register(t, h, "both", newFileStage)

	require.NoError(t, Produces(h, artifact.MergedDex, th, out))
	err := Transform(h, artifact.MergedDex, th, in, out)
	require.ErrorIs(t, err, artifact.ErrConflictingStage)

	var conflict *artifact.ConflictingStageError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "origin", conflict.Existing)
	assert.Equal(t, "transform", conflict.Rejected)

	multi := register(t, h, "appendThenTransform", newFileStage)
	require.NoError(t, Append(h, artifact.Dex, multi, out))
	assert.ErrorIs(t, TransformList(h, artifact.Dex, multi, inList, out), artifact.ErrConflictingStage)
}

func TestStagesAndState(t *testing.T) {
	h := newTestHolder(t)
	gen := register(t, h, "generateDex", newFileStage)
	dexer := register(t, h, "dexer", newFileStage)
	merger := register(t, h, "dexMerger", newFileStage)

	require.NoError(t, Append(h, artifact.Dex, gen, out))
	require.NoError(t, Produces(h, artifact.Dex, dexer, out))
	require.NoError(t, ConsumeList(h, artifact.Dex, merger, inList))

	stages := h.Stages()
	require.Len(t, stages, 3)
	assert.Equal(t, Stage{Seq: 1, Kind: artifact.Dex, Task: "generateDex", Role: RoleAppend}, stages[0])
	assert.Equal(t, Stage{Seq: 2, Kind: artifact.Dex, Task: "dexer", Role: RoleOrigin}, stages[1])
	assert.Equal(t, Stage{Seq: 3, Kind: artifact.Dex, Task: "dexMerger", Role: RoleConsume}, stages[2])
	assert.Equal(t, "DEX", stages[0].KindID())

	st, err := h.State(artifact.Dex)
	require.NoError(t, err)
	assert.Equal(t, "multi", st.Cardinality)
	assert.Equal(t, "file", st.Shape)
	assert.True(t, st.Initialized)
	assert.Equal(t, []string{"dexer"}, st.Origins)
	assert.Equal(t, []string{"generateDex"}, st.Appends)
	assert.Equal(t, []string{"dexMerger"}, st.Consumers)
}

// ---------- Replacement handler ----------

func TestReplaceTask_WithInputs(t *testing.T) {
	h := newTestHolder(t)
	manifest := register(t, h, "manifestMerger", newFileStage)
	code := register(t, h, "compileCode", newDirStage)
	require.NoError(t, Produces(h, artifact.MergedManifest, manifest, out))
	require.NoError(t, Produces(h, artifact.Bytecode, code, out))

	th, err := ReplaceTask(h, artifact.Package, "newPackager", newFileStage, out).
		Input(artifact.MergedManifest, in).
		InputList(artifact.Bytecode, inList).
		Finish(func(st *stageTask) error {
			st.DependsOn(provider.New(func() (int, error) { return 0, nil }, "lint"))
			return nil
		})
	require.NoError(t, err)
	require.NoError(t, h.FinalizeLocations())

	has, err := h.HasProducer(artifact.Package)
	require.NoError(t, err)
	assert.True(t, has)

	assert.Equal(t, artifact.File(filepath.Join(buildDir, "outputs", "package.txt")),
		resolveSingle(t, h, artifact.Package))

	st := realize(t, th)
	inputs := st.Inputs()
	require.Len(t, inputs, 2)
	assert.Equal(t, artifact.SensitivityNameOnly, inputs[0].Sensitivity, "manifest metadata")
	assert.Equal(t, artifact.SensitivityContent, inputs[1].Sensitivity, "bytecode metadata")
	assert.Equal(t, []string{"manifestMerger", "compileCode", "lint"}, st.Dependencies())

	state, err := h.State(artifact.MergedManifest)
	require.NoError(t, err)
	assert.Equal(t, []string{"newPackager"}, state.Consumers)

	stages := h.Stages()
	assert.Equal(t, RoleReplace, stages[2].Role)
}

func TestReplaceTask_ErrorsStick(t *testing.T) {
	h := newTestHolder(t)
	first := register(t, h, "packageApk", newFileStage)
	require.NoError(t, Produces(h, artifact.Package, first, out))

	th, err := ReplaceTask(h, artifact.Package, "newPackager", newFileStage, out).
		Input(artifact.MergedManifest, in).
		Finish(nil)
	assert.Nil(t, th)
	assert.ErrorIs(t, err, artifact.ErrAlreadyInitialized)

	_, err = ReplaceTask(h, artifact.MergedDex, "packageApk", newFileStage, out).Finish(nil)
	assert.ErrorIs(t, err, task.ErrDuplicateTask)
}
