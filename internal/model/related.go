package model

import "fmt"

// RelatedKind tags the target of a RelatedRef.
type RelatedKind string

const (
	RelatedProject RelatedKind = "project"
	RelatedTask    RelatedKind = "task"
)

// ParseRelatedKind validates a raw kind string.
func ParseRelatedKind(s string) (RelatedKind, error) {
	switch RelatedKind(s) {
	case RelatedProject, RelatedTask:
		return RelatedKind(s), nil
	default:
		return "", fmt.Errorf("unknown related kind %q", s)
	}
}

// RelatedRef is a weak reference to a project or a task. It carries no
// ownership; the target is looked up explicitly by kind.
type RelatedRef struct {
	Kind RelatedKind `json:"kind" validate:"required,oneof=project task"`
	ID   string      `json:"id" validate:"required,uuid"`
}

// Reference is a pointer from a record, or from a patch, to a project or a
// task. Field is the JSON field that carries it.
type Reference struct {
	Field string
	Kind  RelatedKind
	ID    string
}

// Referrer is implemented by records and patches that point at other records.
// A patch reports only the references it sets.
type Referrer interface {
	References() []Reference
}
