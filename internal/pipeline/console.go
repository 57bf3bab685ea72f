package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dusk-indust/buildgraph/internal/artifact"
)

// Console serializes the report blocks tasks print, so parallel tasks never
// interleave their lines.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole wraps w. A nil writer discards output.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = io.Discard
	}
	return &Console{w: w}
}

// Report accumulates the lines of one task run.
type Report struct {
	b strings.Builder
}

// NewReport starts a report headed by title.
func NewReport(title string) *Report {
	r := &Report{}
	r.b.WriteString(title)
	r.b.WriteByte('\n')
	return r
}

// Line adds one indented line.
func (r *Report) Line(format string, args ...any) *Report {
	r.b.WriteByte('\t')
	fmt.Fprintf(&r.b, format, args...)
	r.b.WriteByte('\n')
	return r
}

// Inputs adds one numbered line per location, prefixed by label.
func (r *Report) Inputs(label string, locs []artifact.Location, withShape bool) *Report {
	for i, loc := range locs {
		if withShape {
			r.Line("%s%d: %s (%s)", label, i+1, loc.Path, ShapeName(loc))
		} else {
			r.Line("%s%d: %s", label, i+1, loc.Path)
		}
	}
	return r
}

// Separator adds the line between inputs and outputs.
func (r *Report) Separator() *Report { return r.Line("---") }

func (r *Report) String() string { return r.b.String() }

// Print writes the whole report at once.
func (c *Console) Print(r *Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.w, r.String())
	return err
}

// ShapeName is "File" or "Directory", as printed next to mixed inputs.
func ShapeName(loc artifact.Location) string {
	if loc.Shape == artifact.ShapeDirectory {
		return "Directory"
	}
	return "File"
}

// WriteOutput writes content to loc. Files are created with their parent
// directories; directories receive a single foo.txt.
func WriteOutput(loc artifact.Location, content string) error {
	path := loc.Path
	if loc.Shape == artifact.ShapeDirectory {
		path = filepath.Join(loc.Path, "foo.txt")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", loc.Path, err)
	}
	return nil
}
