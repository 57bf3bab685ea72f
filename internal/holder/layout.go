package holder

import (
	"path/filepath"
	"strings"

	"github.com/dusk-indust/buildgraph/internal/artifact"
)

const (
	intermediatesDir = "intermediates"
	outputsDir       = "outputs"
	fileSuffix       = ".txt"
)

// Layout maps artifacts to paths under a build directory.
//
//	<build>/intermediates/<task>/<KIND>[.txt]   scratch, one per stage
//	<build>/outputs/<kind>[.txt]                canonical, output kinds only
type Layout struct {
	BuildDir string
}

// NewLayout returns the layout rooted at buildDir.
func NewLayout(buildDir string) Layout {
	return Layout{BuildDir: buildDir}
}

// Intermediate returns the scratch location a stage writes k to.
func (l Layout) Intermediate(k artifact.Kind, taskName string, shape artifact.Shape) artifact.Location {
	return l.location(shape, intermediatesDir, taskName, k.ID())
}

// Output returns the canonical location of k.
func (l Layout) Output(k artifact.Kind, shape artifact.Shape) artifact.Location {
	return l.location(shape, outputsDir, strings.ToLower(k.ID()))
}

// IntermediatesRoot returns the scratch root.
func (l Layout) IntermediatesRoot() string { return filepath.Join(l.BuildDir, intermediatesDir) }

// OutputsRoot returns the canonical output root.
func (l Layout) OutputsRoot() string { return filepath.Join(l.BuildDir, outputsDir) }

func (l Layout) location(shape artifact.Shape, elem ...string) artifact.Location {
	path := filepath.Join(append([]string{l.BuildDir}, elem...)...)
	if shape == artifact.ShapeDirectory {
		return artifact.Dir(path)
	}
	return artifact.File(path + fileSuffix)
}
