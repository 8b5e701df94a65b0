package repository

import (
	"context"
	"errors"

	"pmapi/internal/model"
)

// ErrInvalidReference is returned when a write points at a row that does not exist
// (foreign key violation). Field names the offending column.
type ErrInvalidReference struct {
	Field string
}

func (e *ErrInvalidReference) Error() string {
	return "invalid reference: " + e.Field
}

// ErrConflict is returned when a write violates a uniqueness constraint.
var ErrConflict = errors.New("conflicting record")

// Mode selects which ownership predicate a Scope renders to.
type Mode int

const (
	// ModePublic selects published, active records only.
	ModePublic Mode = iota
	// ModeOwner selects records owned by OwnerID, directly or through a project it owns.
	ModeOwner
	// ModeUnrestricted applies no ownership predicate.
	ModeUnrestricted
)

// View selects records by soft-delete state.
type View int

const (
	ViewActive View = iota
	ViewDeleted
	ViewAll
)

// Scope is the storage-agnostic predicate produced for a caller.
// Implementations AND together the mode predicate, the view and the search filter.
type Scope struct {
	Mode    Mode
	OwnerID string
	View    View
	Search  string
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// RecordRepository is the persistence contract shared by every resource.
// Reads and writes are always filtered by a Scope; there is no unscoped accessor.
// Missing or out-of-scope rows are reported as sql.ErrNoRows.
type RecordRepository[T model.Entity] interface {
	// Create inserts a fully populated record and returns the stored row.
	Create(ctx context.Context, item T) (T, error)

	// FindActive returns an active record matching scope.
	FindActive(ctx context.Context, id string, scope Scope) (T, error)

	// FindAll returns a record matching scope regardless of its delete state.
	FindAll(ctx context.Context, id string, scope Scope) (T, error)

	// Count returns the number of records matching scope.
	Count(ctx context.Context, scope Scope) (int, error)

	// List returns records matching scope, newest first. A nil page returns every match.
	List(ctx context.Context, scope Scope, page *PageQuery) ([]T, error)

	// ListPublic returns the id and display name of records matching scope, newest first.
	ListPublic(ctx context.Context, scope Scope, page *PageQuery) ([]model.PublicRecord, error)

	// Mutate locks the record matching scope, hands it to fn and persists the result,
	// all inside one transaction. When fn fails nothing is written.
	Mutate(ctx context.Context, id string, scope Scope, fn func(T) error) (T, error)
}
