package artifact

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every typed error below unwraps to one of these, so
// callers can use errors.Is without caring about the details.
var (
	ErrAlreadyInitialized = errors.New("artifact already initialized")
	ErrUnresolvedArtifact = errors.New("artifact has no origin")
	ErrUnsupportedKind    = errors.New("unsupported artifact kind")
	ErrUnexpectedShape    = errors.New("unexpected value shape")
	ErrConflictingStage   = errors.New("conflicting artifact stage")
)

// AlreadyInitializedError is returned when a second origin is registered for
// a single-value kind.
type AlreadyInitializedError struct {
	Kind     Kind
	Origin   string // task already registered as origin
	Rejected string // task whose registration failed
}

func (e *AlreadyInitializedError) Error() string {
	return fmt.Sprintf("artifact %s: origin already set by task %q, cannot register %q",
		e.Kind, e.Origin, e.Rejected)
}

func (e *AlreadyInitializedError) Unwrap() error { return ErrAlreadyInitialized }

// UnresolvedArtifactError is returned when a single-value kind is resolved
// but no origin was ever registered.
type UnresolvedArtifactError struct {
	Kind Kind
}

func (e *UnresolvedArtifactError) Error() string {
	return fmt.Sprintf("artifact %s: no producer registered", e.Kind)
}

func (e *UnresolvedArtifactError) Unwrap() error { return ErrUnresolvedArtifact }

// UnsupportedArtifactKindError is returned when a kind outside the declared
// set reaches the registry.
type UnsupportedArtifactKindError struct {
	Kind Kind
}

func (e *UnsupportedArtifactKindError) Error() string {
	if e.Kind == nil {
		return "artifact: nil kind"
	}
	return fmt.Sprintf("artifact: unsupported kind %s", e.Kind)
}

func (e *UnsupportedArtifactKindError) Unwrap() error { return ErrUnsupportedKind }

// UnexpectedValueShapeError is returned when a task field's declared shape
// does not match what the kind carries.
type UnexpectedValueShapeError struct {
	Kind  Kind
	Task  string
	Field string
	Want  Shape
	Got   Shape
}

func (e *UnexpectedValueShapeError) Error() string {
	field := e.Field
	if field == "" {
		field = "<nil>"
	}
	return fmt.Sprintf("artifact %s: task %q field %s is a %s, want %s",
		e.Kind, e.Task, field, e.Got, e.Want)
}

func (e *UnexpectedValueShapeError) Unwrap() error { return ErrUnexpectedShape }

// ConflictingStageError is returned when one task is registered on the same
// kind twice, for example as both its origin and one of its transforms.
type ConflictingStageError struct {
	Kind     Kind
	Task     string
	Existing string // role already held
	Rejected string // role that was refused
}

func (e *ConflictingStageError) Error() string {
	return fmt.Sprintf("artifact %s: task %q is already registered as %s, cannot register it as %s",
		e.Kind, e.Task, e.Existing, e.Rejected)
}

func (e *ConflictingStageError) Unwrap() error { return ErrConflictingStage }
