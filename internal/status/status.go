package status

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dusk-indust/buildgraph/internal/artifact"
	"github.com/dusk-indust/buildgraph/internal/executor"
	"github.com/dusk-indust/buildgraph/internal/holder"
)

// LocationInfo describes one expected output location on disk.
type LocationInfo struct {
	Path   string
	Shape  string // "file" or "directory"
	Exists bool
}

// TaskInfo describes the completion state of a single planned task.
type TaskInfo struct {
	Name     string
	Level    int
	Complete bool
	Outputs  []LocationInfo
}

// BuildStatus holds the on-disk status of one build directory.
type BuildStatus struct {
	BuildDir string
	Targets  []string
	Tasks    []TaskInfo
	Next     string // empty if all complete

	// Outputs lists the entries found under <build>/outputs.
	Outputs []string
}

// Check compares the locations each planned task writes against the build
// directory. A task without tracked outputs is complete when all of its
// dependencies are.
func Check(h *holder.Holder, plan *executor.Plan) (BuildStatus, error) {
	layout := h.Layout()
	st := BuildStatus{
		BuildDir: layout.BuildDir,
		Targets:  plan.Targets,
		Outputs:  ScanOutputs(layout.BuildDir),
	}

	complete := make(map[string]bool)
	tasks := h.Tasks()
	for level, names := range plan.Levels {
		for _, name := range names {
			t, err := tasks.Realize(name)
			if err != nil {
				return BuildStatus{}, fmt.Errorf("status: %w", err)
			}
			info := TaskInfo{Name: name, Level: level}
			outs := t.TaskBase().Outputs()
			done := true
			for _, out := range outs {
				locs, err := out.Value.Locations()
				if err != nil {
					return BuildStatus{}, fmt.Errorf("status: task %s output %s: %w", name, out.Name, err)
				}
				for _, loc := range locs {
					li := locationInfo(loc)
					done = done && li.Exists
					info.Outputs = append(info.Outputs, li)
				}
			}
			if len(outs) == 0 {
				for _, dep := range plan.Deps[name] {
					done = done && complete[dep]
				}
			}
			info.Complete = done
			complete[name] = done
			if !done && st.Next == "" {
				st.Next = name
			}
			st.Tasks = append(st.Tasks, info)
		}
	}
	return st, nil
}

func locationInfo(loc artifact.Location) LocationInfo {
	li := LocationInfo{Path: loc.Path, Shape: loc.Shape.String()}
	fi, err := os.Stat(loc.Path)
	if err == nil {
		li.Exists = fi.IsDir() == (loc.Shape == artifact.ShapeDirectory)
	}
	return li
}

// ScanOutputs returns the sorted entry names under <buildDir>/outputs.
// A missing directory yields nil.
func ScanOutputs(buildDir string) []string {
	entries, err := os.ReadDir(holder.NewLayout(buildDir).OutputsRoot())
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

// ScanIntermediates returns the scratch entries under
// <buildDir>/intermediates grouped by the task directory that holds them.
func ScanIntermediates(buildDir string) map[string][]string {
	root := holder.NewLayout(buildDir).IntermediatesRoot()
	taskDirs, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	out := make(map[string][]string)
	for _, td := range taskDirs {
		if !td.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(root, td.Name()))
		if err != nil {
			continue
		}
		for _, e := range entries {
			out[td.Name()] = append(out[td.Name()], e.Name())
		}
		sort.Strings(out[td.Name()])
	}
	return out
}
