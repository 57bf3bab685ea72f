package holder

import "github.com/dusk-indust/buildgraph/internal/artifact"

// Role is how a task participates in an artifact's pipeline.
type Role string

const (
	RoleOrigin    Role = "origin"
	RoleReplace   Role = "replace"
	RoleAppend    Role = "append"
	RoleTransform Role = "transform"
	RoleConsume   Role = "consume"
)

// Stage is one registration against the holder, kept in call order. The
// stage log is the plan's dependency graph: a task with role transform or
// consume reads the output of the stages registered before it on the same
// kind.
type Stage struct {
	Seq  int           `json:"seq"`
	Kind artifact.Kind `json:"-"`
	Task string        `json:"task"`
	Role Role          `json:"role"`
}

// KindID returns the ID of the stage's kind.
func (s Stage) KindID() string { return s.Kind.ID() }

// writes reports whether the role contributes a value to the kind.
func (r Role) writes() bool {
	return r != RoleConsume
}
