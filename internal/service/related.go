package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"pmapi/internal/access"
	"pmapi/internal/model"
	"pmapi/internal/repository"
)

// RelatedLookup resolves RelatedRef values and checks record references. There is one explicit lookup per
// kind; a reference never dispatches through the target type itself.
type RelatedLookup struct {
	projects repository.RecordRepository[*model.Project]
	tasks    repository.RecordRepository[*model.Task]
}

// NewRelatedLookup constructs a RelatedLookup.
func NewRelatedLookup(projects repository.RecordRepository[*model.Project], tasks repository.RecordRepository[*model.Task]) *RelatedLookup {
	return &RelatedLookup{projects: projects, tasks: tasks}
}

// Project returns an active project visible to caller.
func (l *RelatedLookup) Project(ctx context.Context, caller access.Caller, id string) (*model.Project, error) {
	p, err := l.projects.FindActive(ctx, id, access.Resolve(caller, access.ViewActive, ""))
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

// Task returns an active task visible to caller.
func (l *RelatedLookup) Task(ctx context.Context, caller access.Caller, id string) (*model.Task, error) {
	t, err := l.tasks.FindActive(ctx, id, access.Resolve(caller, access.ViewActive, ""))
	if err != nil {
		return nil, translate(err)
	}
	return t, nil
}

// Resolve looks ref up with the lookup matching its kind.
func (l *RelatedLookup) Resolve(ctx context.Context, caller access.Caller, ref model.RelatedRef) (model.Entity, error) {
	switch ref.Kind {
	case model.RelatedProject:
		p, err := l.Project(ctx, caller, ref.ID)
		if err != nil {
			return nil, err
		}
		return p, nil
	case model.RelatedTask:
		t, err := l.Task(ctx, caller, ref.ID)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown related kind %q", ref.Kind)
	}
}

// CheckReferences rejects references whose target is missing, deleted or not
// visible to caller. Malformed ids are left to struct validation.
func (l *RelatedLookup) CheckReferences(ctx context.Context, caller access.Caller, refs []model.Reference) error {
	for _, ref := range refs {
		if uuid.Validate(ref.ID) != nil {
			continue
		}
		_, err := l.Resolve(ctx, caller, model.RelatedRef{Kind: ref.Kind, ID: ref.ID})
		if errors.Is(err, ErrNotFound) {
			return fieldError(ref.Field, string(ref.Kind)+" not found")
		}
		if err != nil {
			return err
		}
	}
	return nil
}

var _ ReferenceChecker = (*RelatedLookup)(nil)
