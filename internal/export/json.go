package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dusk-indust/buildgraph/internal/artifact"
	"github.com/dusk-indust/buildgraph/internal/executor"
	"github.com/dusk-indust/buildgraph/internal/holder"
	"github.com/dusk-indust/buildgraph/internal/task"
)

// PlanExport is the top-level JSON export structure.
type PlanExport struct {
	RunID      string           `json:"runId,omitempty"`
	Targets    []string         `json:"targets"`
	BuildDir   string           `json:"buildDir"`
	ExportedAt string           `json:"exportedAt"`
	Levels     [][]string       `json:"levels"`
	Tasks      []TaskExport     `json:"tasks"`
	Artifacts  []ArtifactExport `json:"artifacts"`
}

// TaskExport describes one task the targets need.
type TaskExport struct {
	Name         string        `json:"name"`
	Type         string        `json:"type"`
	Level        int           `json:"level"`
	Dependencies []string      `json:"dependencies,omitempty"`
	Inputs       []FieldExport `json:"inputs,omitempty"`
	Outputs      []FieldExport `json:"outputs,omitempty"`
}

// FieldExport is one tracked task field and the locations it resolves to.
type FieldExport struct {
	Name        string   `json:"name"`
	Sensitivity string   `json:"sensitivity,omitempty"`
	Normalizer  string   `json:"normalizer,omitempty"`
	Locations   []string `json:"locations"`
	Error       string   `json:"error,omitempty"`
}

// ArtifactExport is one artifact slot with its stages in registration order.
type ArtifactExport struct {
	holder.SlotState
	Locations []string      `json:"locations,omitempty"`
	Stages    []StageExport `json:"stages,omitempty"`
}

// StageExport is one registration against an artifact.
type StageExport struct {
	Seq  int    `json:"seq"`
	Task string `json:"task"`
	Role string `json:"role"`
}

// ExportPlan builds a PlanExport from a configured holder and the plan the
// executor computed for it. runID may be empty when nothing ran.
func ExportPlan(h *holder.Holder, plan *executor.Plan, runID string) (*PlanExport, error) {
	exp := &PlanExport{
		RunID:      runID,
		Targets:    plan.Targets,
		BuildDir:   h.Layout().BuildDir,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Levels:     plan.Levels,
	}

	tasks := h.Tasks()
	for level, names := range plan.Levels {
		for _, name := range names {
			t, err := tasks.Realize(name)
			if err != nil {
				return nil, fmt.Errorf("export: %w", err)
			}
			typeName, _ := tasks.TypeName(name)
			exp.Tasks = append(exp.Tasks, taskExport(t, typeName, level, plan.Deps[name]))
		}
	}

	stages := h.Stages()
	for _, k := range artifact.All() {
		st, err := h.State(k)
		if err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
		ae := ArtifactExport{SlotState: st}
		if locs, err := h.Resolve(k); err == nil {
			ae.Locations = paths(locs)
		}
		for _, s := range stages {
			if s.Kind == k {
				ae.Stages = append(ae.Stages, StageExport{Seq: s.Seq, Task: s.Task, Role: string(s.Role)})
			}
		}
		exp.Artifacts = append(exp.Artifacts, ae)
	}
	return exp, nil
}

func taskExport(t task.Task, typeName string, level int, deps []string) TaskExport {
	te := TaskExport{Name: t.Name(), Type: typeName, Level: level, Dependencies: deps}
	base := t.TaskBase()
	for _, in := range base.Inputs() {
		fe := field(in.Name, in.Value)
		fe.Sensitivity = in.Sensitivity.String()
		fe.Normalizer = in.Normalizer.String()
		te.Inputs = append(te.Inputs, fe)
	}
	for _, out := range base.Outputs() {
		te.Outputs = append(te.Outputs, field(out.Name, out.Value))
	}
	return te
}

func field(name string, v task.Value) FieldExport {
	fe := FieldExport{Name: name, Locations: []string{}}
	locs, err := v.Locations()
	if err != nil {
		fe.Error = err.Error()
		return fe
	}
	fe.Locations = paths(locs)
	return fe
}

func paths(locs []artifact.Location) []string {
	out := make([]string, len(locs))
	for i, l := range locs {
		out[i] = l.Path
	}
	return out
}

// WriteJSON writes exp as indented JSON followed by a newline.
func WriteJSON(w io.Writer, exp *PlanExport) error {
	out, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = w.Write(append(out, '\n'))
	return err
}
