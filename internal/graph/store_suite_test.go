package graph

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/buildgraph/internal/executor"
	"github.com/dusk-indust/buildgraph/internal/holder"
	"github.com/dusk-indust/buildgraph/internal/pipeline"
	"github.com/dusk-indust/buildgraph/internal/task"
)

// sorted returns a sorted copy of the given string slice so that assertions
// are deterministic regardless of map iteration order.
func sorted(ss []string) []string {
	out := make([]string, len(ss))
	copy(out, ss)
	sort.Strings(out)
	return out
}

// populateDefault configures the default pipeline under /build and writes it
// into s.
func populateDefault(t *testing.T, s Store) {
	t.Helper()
	h := holder.New(holder.NewLayout("/build"), task.NewContainer(nil), nil)
	p := pipeline.New(pipeline.NewEnv(nil, nil, ""), nil)
	res, err := p.Configure(h)
	require.NoError(t, err)

	plan, err := executor.BuildPlan(h.Tasks(), res.Target)
	require.NoError(t, err)
	require.NoError(t, Populate(context.Background(), s, h, plan.Levels))
}

func lastNodes(chains []DependencyChain) []string {
	out := make([]string, 0, len(chains))
	for _, c := range chains {
		out = append(out, c.Nodes[len(c.Nodes)-1])
	}
	return sorted(out)
}

// runStoreSuite checks the behavior every Store must share, using the
// default pipeline as data.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("Stats", func(t *testing.T) {
		s := newStore(t)
		populateDefault(t, s)

		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 7, stats.TaskCount)
		assert.Equal(t, 10, stats.ArtifactCount)
		// 11 stage edges and 6 task dependencies.
		assert.Equal(t, 17, stats.EdgeCount)
	})

	t.Run("Tasks", func(t *testing.T) {
		s := newStore(t)
		populateDefault(t, s)

		tk, err := s.GetTask(ctx, pipeline.TaskPackageApk)
		require.NoError(t, err)
		require.NotNil(t, tk)
		assert.Equal(t, "*pipeline.Packager", tk.Type)
		assert.Equal(t, 2, tk.Level)

		missing, err := s.GetTask(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, missing)

		tasks, err := s.ListTasks(ctx)
		require.NoError(t, err)
		var names []string
		for _, tk := range tasks {
			names = append(names, tk.Name)
		}
		assert.Equal(t, []string{
			pipeline.TaskCompileCode, pipeline.TaskManifestMerger, pipeline.TaskResources,
			pipeline.TaskDexer, pipeline.TaskResourceMerger,
			pipeline.TaskPackageApk,
			pipeline.TaskAssemble,
		}, names)
	})

	t.Run("Artifacts", func(t *testing.T) {
		s := newStore(t)
		populateDefault(t, s)

		manifest, err := s.GetArtifact(ctx, "merged_manifest")
		require.NoError(t, err)
		require.NotNil(t, manifest)
		assert.Equal(t, "MERGED_MANIFEST", manifest.ID)
		assert.True(t, manifest.IsOutput)
		assert.Equal(t, "single", manifest.Cardinality)
		assert.Equal(t, "file", manifest.Shape)
		assert.Equal(t, []string{"/build/outputs/merged_manifest.txt"}, manifest.Locations)

		jar, err := s.GetArtifact(ctx, "JAR")
		require.NoError(t, err)
		require.NotNil(t, jar)
		assert.Empty(t, jar.Locations)

		all, err := s.ListArtifacts(ctx)
		require.NoError(t, err)
		require.Len(t, all, 10)
		assert.Equal(t, "BYTECODE", all[0].ID)
	})

	t.Run("Stages", func(t *testing.T) {
		s := newStore(t)
		populateDefault(t, s)

		stages, err := s.GetStages(ctx, "MERGED_MANIFEST")
		require.NoError(t, err)
		require.Len(t, stages, 2)
		assert.Equal(t, Edge{SourceID: pipeline.TaskManifestMerger, TargetID: "MERGED_MANIFEST", Kind: EdgeKindProduces, Role: "origin", Seq: 1}, stages[0])
		assert.Equal(t, Edge{SourceID: pipeline.TaskPackageApk, TargetID: "MERGED_MANIFEST", Kind: EdgeKindConsumes, Role: "consume", Seq: 8}, stages[1])
	})

	t.Run("Dependencies", func(t *testing.T) {
		s := newStore(t)
		populateDefault(t, s)

		up, err := s.GetDependencies(ctx, pipeline.TaskPackageApk, DirectionUpstream, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{pipeline.TaskDexer, pipeline.TaskManifestMerger, pipeline.TaskResourceMerger}, lastNodes(up))

		all, err := s.GetDependencies(ctx, pipeline.TaskPackageApk, DirectionUpstream, 0)
		require.NoError(t, err)
		assert.Len(t, all, 5)

		down, err := s.GetDependencies(ctx, pipeline.TaskCompileCode, DirectionDownstream, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{pipeline.TaskAssemble, pipeline.TaskDexer, pipeline.TaskPackageApk}, lastNodes(down))
		for _, c := range down {
			if c.Nodes[len(c.Nodes)-1] == pipeline.TaskAssemble {
				assert.Equal(t, 3, c.Depth)
				assert.Equal(t, []string{pipeline.TaskCompileCode, pipeline.TaskDexer, pipeline.TaskPackageApk, pipeline.TaskAssemble}, c.Nodes)
			}
		}
	})

	t.Run("ImpactOfTask", func(t *testing.T) {
		s := newStore(t)
		populateDefault(t, s)

		impact, err := s.AssessImpact(ctx, []string{pipeline.TaskCompileCode})
		require.NoError(t, err)
		assert.Equal(t, []string{pipeline.TaskDexer}, impact.DirectlyAffected)
		assert.Equal(t, []string{pipeline.TaskAssemble, pipeline.TaskDexer, pipeline.TaskPackageApk}, impact.TransitivelyAffected)
		assert.Equal(t, []string{"BYTECODE", "DEX", "PACKAGE"}, impact.AffectedArtifacts)
		assert.InDelta(t, 3.0/7.0, impact.RiskScore, 1e-9)
	})

	t.Run("ImpactOfArtifact", func(t *testing.T) {
		s := newStore(t)
		populateDefault(t, s)

		impact, err := s.AssessImpact(ctx, []string{"dex"})
		require.NoError(t, err)
		assert.Equal(t, []string{pipeline.TaskPackageApk}, impact.DirectlyAffected)
		assert.Equal(t, []string{pipeline.TaskAssemble, pipeline.TaskPackageApk}, impact.TransitivelyAffected)
		assert.Equal(t, []string{"PACKAGE"}, impact.AffectedArtifacts)
	})

	t.Run("AllEdges", func(t *testing.T) {
		s := newStore(t)
		populateDefault(t, s)

		edges, err := s.GetAllEdges(ctx)
		require.NoError(t, err)
		assert.Contains(t, edges, Edge{SourceID: pipeline.TaskAssemble, TargetID: pipeline.TaskPackageApk, Kind: EdgeKindDependsOn})
		assert.Contains(t, edges, Edge{SourceID: pipeline.TaskDexer, TargetID: "BYTECODE", Kind: EdgeKindConsumes, Role: "consume", Seq: 6})
	})
}
