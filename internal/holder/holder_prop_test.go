package holder

import (
	"fmt"
	"path/filepath"
	"slices"
	"testing"

	"github.com/dusk-indust/buildgraph/internal/artifact"
	"github.com/dusk-indust/buildgraph/internal/task"
	"pgregory.net/rapid"
)

// TestProperty_MultiVisibility checks that for any interleaving of origins,
// appends and transforms on a list kind, every transform reads exactly what
// was registered since the previous transform (plus all origins for the
// first one), and the final value is the last transform followed by later
// appends.
func TestProperty_MultiVisibility(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := New(NewLayout(buildDir), task.NewContainer(nil), nil)
		numOps := rapid.IntRange(1, 40).Draw(t, "numOps")

		var (
			first      []string
			tail       []string
			transforms []string
			inputs     = map[string][]string{}
			handles    = map[string]*task.Handle[*stageTask]{}
		)

		for i := range numOps {
			op := rapid.SampledFrom([]string{"origin", "append", "transform"}).Draw(t, fmt.Sprintf("op%d", i))
			name := fmt.Sprintf("%s%d", op, i)
			th, err := task.Register(h.Tasks(), name, newFileStage)
			if err != nil {
				t.Fatalf("register %s: %v", name, err)
			}
			handles[name] = th

			switch op {
			case "origin":
				err = Produces(h, artifact.Dex, th, out)
				first = append(first, name)
			case "append":
				err = Append(h, artifact.Dex, th, out)
				if len(transforms) == 0 {
					first = append(first, name)
				} else {
					tail = append(tail, name)
				}
			case "transform":
				err = TransformList(h, artifact.Dex, th, inList, out)
				if len(transforms) > 0 {
					inputs[name] = slices.Clone(tail)
				}
				transforms = append(transforms, name)
				tail = []string{name}
			}
			if err != nil {
				t.Fatalf("%s: %v", name, err)
			}
		}
		if len(transforms) > 0 {
			inputs[transforms[0]] = first
		}

		for _, name := range transforms {
			st, err := handles[name].Get()
			if err != nil {
				t.Fatalf("realize %s: %v", name, err)
			}
			got, err := st.InList.Get()
			if err != nil {
				t.Fatalf("resolve input of %s: %v", name, err)
			}
			if want := scratchFiles(inputs[name]); !slices.Equal(got, want) {
				t.Fatalf("%s input = %v, want %v", name, got, want)
			}
		}

		want := first
		if len(transforms) > 0 {
			want = tail
		}
		got, err := h.Resolve(artifact.Dex)
		if err != nil {
			t.Fatalf("resolve final: %v", err)
		}
		if !slices.Equal(got, scratchFiles(want)) {
			t.Fatalf("final = %v, want %v", got, scratchFiles(want))
		}
	})
}

// TestProperty_SingleChain checks that an origin plus any number of
// transforms, with the origin registered at any point, forms one chain and
// only its last stage writes to the canonical output.
func TestProperty_SingleChain(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := New(NewLayout(buildDir), task.NewContainer(nil), nil)
		numTransforms := rapid.IntRange(0, 8).Draw(t, "numTransforms")
		originAt := rapid.IntRange(0, numTransforms).Draw(t, "originAt")

		var transforms []*task.Handle[*stageTask]
		var origin *task.Handle[*stageTask]
		for i := 0; i <= numTransforms; i++ {
			if i == originAt {
				th, err := task.Register(h.Tasks(), "origin", newFileStage)
				if err != nil {
					t.Fatalf("register origin: %v", err)
				}
				if err := Produces(h, artifact.Package, th, out); err != nil {
					t.Fatalf("produce: %v", err)
				}
				origin = th
			}
			if i == numTransforms {
				break
			}
			name := fmt.Sprintf("t%d", i)
			th, err := task.Register(h.Tasks(), name, newFileStage)
			if err != nil {
				t.Fatalf("register %s: %v", name, err)
			}
			if err := Transform(h, artifact.Package, th, in, out); err != nil {
				t.Fatalf("transform %s: %v", name, err)
			}
			transforms = append(transforms, th)
		}
		if err := h.FinalizeLocations(); err != nil {
			t.Fatalf("finalize: %v", err)
		}

		chain := append([]*task.Handle[*stageTask]{origin}, transforms...)
		canonical := artifact.File(filepath.Join(buildDir, "outputs", "package.txt"))
		for i, th := range chain {
			st, err := th.Get()
			if err != nil {
				t.Fatalf("realize %s: %v", th.Name(), err)
			}
			loc, err := st.Out.Get()
			if err != nil {
				t.Fatalf("output of %s: %v", th.Name(), err)
			}
			last := i == len(chain)-1
			if last && loc != canonical {
				t.Fatalf("last stage %s writes %v, want %v", th.Name(), loc, canonical)
			}
			if !last && loc != scratchFile(th.Name(), artifact.Package) {
				t.Fatalf("stage %s writes %v, want scratch", th.Name(), loc)
			}
			if i == 0 {
				continue
			}
			prev, err := chain[i-1].Get()
			if err != nil {
				t.Fatalf("realize %s: %v", chain[i-1].Name(), err)
			}
			got, err := st.In.Get()
			if err != nil {
				t.Fatalf("input of %s: %v", th.Name(), err)
			}
			want, err := prev.Out.Get()
			if err != nil {
				t.Fatalf("output of %s: %v", prev.Name(), err)
			}
			if got != want {
				t.Fatalf("%s reads %v, want %v", th.Name(), got, want)
			}
		}

		final := resolveSingleRapid(t, h)
		if final != canonical {
			t.Fatalf("final = %v, want %v", final, canonical)
		}
	})
}

func resolveSingleRapid(t *rapid.T, h *Holder) artifact.Location {
	locs, err := h.Resolve(artifact.Package)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(locs) != 1 {
		t.Fatalf("resolve returned %d locations", len(locs))
	}
	return locs[0]
}

func scratchFiles(names []string) []artifact.Location {
	out := make([]artifact.Location, 0, len(names))
	for _, n := range names {
		out = append(out, scratchFile(n, artifact.Dex))
	}
	return out
}
