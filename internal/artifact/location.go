package artifact

import (
	"github.com/dusk-indust/buildgraph/internal/provider"
)

// Location is a file or directory on disk.
type Location struct {
	Path  string `json:"path"`
	Shape Shape  `json:"shape"`
}

// File returns a file location.
func File(path string) Location { return Location{Path: path, Shape: ShapeFile} }

// Dir returns a directory location.
func Dir(path string) Location { return Location{Path: path, Shape: ShapeDirectory} }

func (l Location) String() string { return l.Path }

// Accepts reports whether a field declared with shape field can be bound to
// values of shape v. Mixed fields accept anything.
func Accepts(field, v Shape) bool {
	return field == ShapeMixed || field == v
}

// LocationProperty is a task field holding one file or one directory.
type LocationProperty struct {
	*provider.Property[Location]
	shape Shape
}

// NewFileProperty returns an empty field that holds a file.
func NewFileProperty(name string) *LocationProperty {
	return &LocationProperty{Property: provider.NewProperty[Location](name), shape: ShapeFile}
}

// NewDirectoryProperty returns an empty field that holds a directory.
func NewDirectoryProperty(name string) *LocationProperty {
	return &LocationProperty{Property: provider.NewProperty[Location](name), shape: ShapeDirectory}
}

// Shape returns the declared shape of the field.
func (p *LocationProperty) Shape() Shape { return p.shape }

// Locations resolves the field as a one-element list.
func (p *LocationProperty) Locations() ([]Location, error) {
	v, err := p.Get()
	if err != nil {
		return nil, err
	}
	return []Location{v}, nil
}

// LocationListProperty is a task field holding an ordered list of
// locations.
type LocationListProperty struct {
	*provider.ListProperty[Location]
	shape Shape
}

// NewFileListProperty returns an empty list field of files.
func NewFileListProperty(name string) *LocationListProperty {
	return &LocationListProperty{ListProperty: provider.NewListProperty[Location](name), shape: ShapeFile}
}

// NewDirectoryListProperty returns an empty list field of directories.
func NewDirectoryListProperty(name string) *LocationListProperty {
	return &LocationListProperty{ListProperty: provider.NewListProperty[Location](name), shape: ShapeDirectory}
}

// NewMixedListProperty returns an empty list field accepting files and
// directories.
func NewMixedListProperty(name string) *LocationListProperty {
	return &LocationListProperty{ListProperty: provider.NewListProperty[Location](name), shape: ShapeMixed}
}

// Shape returns the declared element shape of the field.
func (p *LocationListProperty) Shape() Shape { return p.shape }

// Locations resolves the list.
func (p *LocationListProperty) Locations() ([]Location, error) { return p.Get() }
