// Package artifact defines the closed set of build artifact kinds and the
// metadata the registry and the executor need about each of them.
//
// Kinds come in five families, one per combination of cardinality and value
// shape. Each family is its own Go type, so a function that only makes sense
// for single files can say so in its signature. Every family implements Kind,
// which cannot be implemented outside this package.
package artifact

import (
	"fmt"
	"strings"
)

// Cardinality says whether a kind holds one location or a list of them.
type Cardinality int

const (
	Single Cardinality = iota
	Multi
)

func (c Cardinality) String() string {
	if c == Multi {
		return "multi"
	}
	return "single"
}

// Shape is the kind of filesystem location a value occupies.
type Shape int

const (
	ShapeFile Shape = iota
	ShapeDirectory
	ShapeMixed
)

var shapeNames = [...]string{
	ShapeFile:      "file",
	ShapeDirectory: "directory",
	ShapeMixed:     "mixed",
}

func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Shape) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Shape) UnmarshalText(b []byte) error {
	for i, name := range shapeNames {
		if name == string(b) {
			*s = Shape(i)
			return nil
		}
	}
	return fmt.Errorf("artifact: unknown shape %q", b)
}

// Sensitivity is how the executor compares input locations when deciding
// whether a task is out of date.
type Sensitivity int

const (
	// SensitivityContent compares full content and relative paths.
	SensitivityContent Sensitivity = iota
	// SensitivityNameOnly compares content and file names only.
	SensitivityNameOnly
	// SensitivityNone ignores paths entirely.
	SensitivityNone
)

func (s Sensitivity) String() string {
	switch s {
	case SensitivityNameOnly:
		return "name-only"
	case SensitivityNone:
		return "none"
	default:
		return "content"
	}
}

// Normalizer is an alternative comparison strategy. A kind with a normalizer
// other than NormalizerNone does not use its Sensitivity.
type Normalizer int

const (
	NormalizerNone Normalizer = iota
	// NormalizerClasspath ignores entry order and timestamps inside archives.
	NormalizerClasspath
)

func (n Normalizer) String() string {
	if n == NormalizerClasspath {
		return "classpath"
	}
	return "none"
}

// Kind describes one artifact kind. The set of implementations is closed.
type Kind interface {
	ID() string
	Cardinality() Cardinality
	Shape() Shape
	IsOutput() bool
	Sensitivity() Sensitivity
	Normalizer() Normalizer
	String() string

	sealed()
}

// SingleKind is a kind whose value is one location.
type SingleKind interface {
	Kind
	single()
}

// MultiKind is a kind whose value is an ordered list of locations.
type MultiKind interface {
	Kind
	multi()
}

type info struct {
	id          string
	isOutput    bool
	sensitivity Sensitivity
	normalizer  Normalizer
}

// ---------- Single file ----------

// SingleFileKind is a kind holding exactly one file.
type SingleFileKind uint8

const (
	MergedManifest SingleFileKind = iota
	MergedDex
	Package
)

var singleFileKinds = [...]info{
	MergedManifest: {id: "MERGED_MANIFEST", isOutput: true, sensitivity: SensitivityNameOnly},
	MergedDex:      {id: "MERGED_DEX", sensitivity: SensitivityNameOnly},
	Package:        {id: "PACKAGE", isOutput: true, sensitivity: SensitivityNone},
}

func (k SingleFileKind) meta() info {
	if k.valid() {
		return singleFileKinds[k]
	}
	return info{id: fmt.Sprintf("SingleFileKind(%d)", k)}
}

func (k SingleFileKind) valid() bool { return int(k) < len(singleFileKinds) }

func (k SingleFileKind) ID() string { return k.meta().id }
func (k SingleFileKind) Cardinality() Cardinality { return Single }
func (k SingleFileKind) Shape() Shape { return ShapeFile }
func (k SingleFileKind) IsOutput() bool { return k.meta().isOutput }
func (k SingleFileKind) Sensitivity() Sensitivity { return k.meta().sensitivity }
func (k SingleFileKind) Normalizer() Normalizer { return k.meta().normalizer }
func (k SingleFileKind) String() string { return k.ID() }
func (SingleFileKind) sealed() {}
func (SingleFileKind) single() {}

// ---------- Single directory ----------

// SingleDirectoryKind is a kind holding exactly one directory.
type SingleDirectoryKind uint8

const (
	MergedResources SingleDirectoryKind = iota
)

var singleDirectoryKinds = [...]info{
	MergedResources: {id: "MERGED_RESOURCES", sensitivity: SensitivityNone},
}

func (k SingleDirectoryKind) meta() info {
	if k.valid() {
		return singleDirectoryKinds[k]
	}
	return info{id: fmt.Sprintf("SingleDirectoryKind(%d)", k)}
}

func (k SingleDirectoryKind) valid() bool { return int(k) < len(singleDirectoryKinds) }

func (k SingleDirectoryKind) ID() string { return k.meta().id }
func (k SingleDirectoryKind) Cardinality() Cardinality { return Single }
func (k SingleDirectoryKind) Shape() Shape { return ShapeDirectory }
func (k SingleDirectoryKind) IsOutput() bool { return k.meta().isOutput }
func (k SingleDirectoryKind) Sensitivity() Sensitivity { return k.meta().sensitivity }
func (k SingleDirectoryKind) Normalizer() Normalizer { return k.meta().normalizer }
func (k SingleDirectoryKind) String() string { return k.ID() }
func (SingleDirectoryKind) sealed() {}
func (SingleDirectoryKind) single() {}

// ---------- Multi file ----------

// MultiFileKind is a kind holding a list of files.
type MultiFileKind uint8

const (
	CompileRJar MultiFileKind = iota
	RuntimeRJar
	Jar
	Dex
)

var multiFileKinds = [...]info{
	CompileRJar: {id: "COMPILE_R_JAR", normalizer: NormalizerClasspath},
	RuntimeRJar: {id: "RUNTIME_R_JAR", normalizer: NormalizerClasspath},
	Jar:         {id: "JAR", normalizer: NormalizerClasspath},
	Dex:         {id: "DEX", sensitivity: SensitivityNone},
}

func (k MultiFileKind) meta() info {
	if k.valid() {
		return multiFileKinds[k]
	}
	return info{id: fmt.Sprintf("MultiFileKind(%d)", k)}
}

func (k MultiFileKind) valid() bool { return int(k) < len(multiFileKinds) }

func (k MultiFileKind) ID() string { return k.meta().id }
func (k MultiFileKind) Cardinality() Cardinality { return Multi }
func (k MultiFileKind) Shape() Shape { return ShapeFile }
func (k MultiFileKind) IsOutput() bool { return false }
func (k MultiFileKind) Sensitivity() Sensitivity { return k.meta().sensitivity }
func (k MultiFileKind) Normalizer() Normalizer { return k.meta().normalizer }
func (k MultiFileKind) String() string { return k.ID() }
func (MultiFileKind) sealed() {}
func (MultiFileKind) multi() {}

// ---------- Multi directory ----------

// MultiDirectoryKind is a kind holding a list of directories.
type MultiDirectoryKind uint8

const (
	Resources MultiDirectoryKind = iota
)

var multiDirectoryKinds = [...]info{
	Resources: {id: "RESOURCES"},
}

func (k MultiDirectoryKind) meta() info {
	if k.valid() {
		return multiDirectoryKinds[k]
	}
	return info{id: fmt.Sprintf("MultiDirectoryKind(%d)", k)}
}

func (k MultiDirectoryKind) valid() bool { return int(k) < len(multiDirectoryKinds) }

func (k MultiDirectoryKind) ID() string { return k.meta().id }
func (k MultiDirectoryKind) Cardinality() Cardinality { return Multi }
func (k MultiDirectoryKind) Shape() Shape { return ShapeDirectory }
func (k MultiDirectoryKind) IsOutput() bool { return false }
func (k MultiDirectoryKind) Sensitivity() Sensitivity { return k.meta().sensitivity }
func (k MultiDirectoryKind) Normalizer() Normalizer { return k.meta().normalizer }
func (k MultiDirectoryKind) String() string { return k.ID() }
func (MultiDirectoryKind) sealed() {}
func (MultiDirectoryKind) multi() {}

// ---------- Multi mixed ----------

// MultiMixedKind is a kind holding a list where each element is either a
// file or a directory.
type MultiMixedKind uint8

const (
	Bytecode MultiMixedKind = iota
)

var multiMixedKinds = [...]info{
	Bytecode: {id: "BYTECODE"},
}

func (k MultiMixedKind) meta() info {
	if k.valid() {
		return multiMixedKinds[k]
	}
	return info{id: fmt.Sprintf("MultiMixedKind(%d)", k)}
}

func (k MultiMixedKind) valid() bool { return int(k) < len(multiMixedKinds) }

func (k MultiMixedKind) ID() string { return k.meta().id }
func (k MultiMixedKind) Cardinality() Cardinality { return Multi }
func (k MultiMixedKind) Shape() Shape { return ShapeMixed }
func (k MultiMixedKind) IsOutput() bool { return false }
func (k MultiMixedKind) Sensitivity() Sensitivity { return k.meta().sensitivity }
func (k MultiMixedKind) Normalizer() Normalizer { return k.meta().normalizer }
func (k MultiMixedKind) String() string { return k.ID() }
func (MultiMixedKind) sealed() {}
func (MultiMixedKind) multi() {}

// ---------- Lookup ----------

// Known reports whether k is one of the declared kinds. A nil kind or an
// out-of-range value of a family type is not known.
func Known(k Kind) bool {
	switch k := k.(type) {
	case SingleFileKind:
		return k.valid()
	case SingleDirectoryKind:
		return k.valid()
	case MultiFileKind:
		return k.valid()
	case MultiDirectoryKind:
		return k.valid()
	case MultiMixedKind:
		return k.valid()
	default:
		return false
	}
}

// All returns every declared kind, single kinds first.
func All() []Kind {
	var out []Kind
	for i := range singleFileKinds {
		out = append(out, SingleFileKind(i))
	}
	for i := range singleDirectoryKinds {
		out = append(out, SingleDirectoryKind(i))
	}
	for i := range multiFileKinds {
		out = append(out, MultiFileKind(i))
	}
	for i := range multiDirectoryKinds {
		out = append(out, MultiDirectoryKind(i))
	}
	for i := range multiMixedKinds {
		out = append(out, MultiMixedKind(i))
	}
	return out
}

// Lookup finds a kind by ID, ignoring case.
func Lookup(id string) (Kind, bool) {
	for _, k := range All() {
		if strings.EqualFold(k.ID(), id) {
			return k, true
		}
	}
	return nil, false
}
