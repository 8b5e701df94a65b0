package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"pmapi/internal/access"
	"pmapi/internal/model"
	"pmapi/internal/pagination"
	"pmapi/internal/repository"
)

// Publish status sentinels accepted by SetPublished.
const (
	StatusUnpublished = 0
	StatusPublished   = 1
)

// Patch merges the supplied fields of an update payload onto a record.
type Patch[T any] interface {
	Apply(T)
}

// ListQuery describes a list request. Page is only honoured when Paged is set.
type ListQuery struct {
	View   access.View
	Search string
	Page   int
	Paged  bool
}

// ListResult is the service-level DTO for list operations. Count and NumPages
// are only meaningful when Paged is true.
type ListResult[T any] struct {
	Records  []T
	Count    int
	NumPages int
	Paged    bool
}

// RecordService defines the lifecycle use cases shared by every resource.
type RecordService[T model.Entity] interface {
	// Kind names the resource the service manages.
	Kind() model.Kind

	// Create validates item, assigns id, owner and timestamps, and stores it.
	Create(ctx context.Context, caller access.Caller, item T) (T, error)

	// List returns the records visible to caller, newest first.
	List(ctx context.Context, caller access.Caller, q ListQuery) (*ListResult[T], error)

	// ListPublic returns id and display name of published records.
	ListPublic(ctx context.Context, q ListQuery) (*ListResult[model.PublicRecord], error)

	// Detail returns one record visible to caller.
	Detail(ctx context.Context, caller access.Caller, id string, view access.View) (T, error)

	// Update merges patch onto the record; only the owner or an administrator may do so.
	Update(ctx context.Context, caller access.Caller, id string, patch Patch[T]) (T, error)

	// SetPublished publishes (1) or unpublishes (0) a record. Administrator only.
	SetPublished(ctx context.Context, caller access.Caller, id string, status int) (T, error)

	// Delete soft-deletes an active record. Administrator only.
	Delete(ctx context.Context, caller access.Caller, id string) (T, error)

	// Restore brings a soft-deleted record back. Administrator only.
	Restore(ctx context.Context, caller access.Caller, id string) (T, error)
}

// ReferenceChecker verifies that referenced records exist and are visible to caller.
type ReferenceChecker interface {
	CheckReferences(ctx context.Context, caller access.Caller, refs []model.Reference) error
}

// Option configures a Lifecycle.
type Option[T model.Entity] func(*Lifecycle[T])

// WithClock overrides the time source used for record timestamps.
func WithClock[T model.Entity](now func() time.Time) Option[T] {
	return func(l *Lifecycle[T]) { l.now = now }
}

// WithPageSize overrides the pagination page size.
func WithPageSize[T model.Entity](size int) Option[T] {
	return func(l *Lifecycle[T]) { l.pageSize = size }
}

// WithReferences checks the references records and patches carry. On update
// only the references the patch sets are checked, before the row is locked.
func WithReferences[T model.Entity](rc ReferenceChecker) Option[T] {
	return func(l *Lifecycle[T]) { l.refs = rc }
}

// Lifecycle is the generic RecordService implementation.
type Lifecycle[T model.Entity] struct {
	kind     model.Kind
	repo     repository.RecordRepository[T]
	now      func() time.Time
	pageSize int
	refs     ReferenceChecker
}

var _ RecordService[*model.Project] = (*Lifecycle[*model.Project])(nil)

// NewLifecycle constructs the lifecycle service for one resource kind.
func NewLifecycle[T model.Entity](kind model.Kind, repo repository.RecordRepository[T], opts ...Option[T]) *Lifecycle[T] {
	l := &Lifecycle[T]{
		kind:     kind,
		repo:     repo,
		now:      func() time.Time { return time.Now().UTC() },
		pageSize: pagination.DefaultSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Lifecycle[T]) Kind() model.Kind { return l.kind }

func (l *Lifecycle[T]) Create(ctx context.Context, caller access.Caller, item T) (T, error) {
	var zero T
	if caller.IsAnonymous() {
		return zero, ErrForbidden
	}

	l.stamp(caller, item)
	if err := l.checkNew(ctx, caller, item); err != nil {
		return zero, err
	}
	return l.insert(ctx, item)
}

// stamp assigns identity, ownership and creation timestamps, discarding any
// values the client supplied for them.
func (l *Lifecycle[T]) stamp(caller access.Caller, item T) {
	now := l.now()
	base := item.Base()
	base.ID = uuid.NewString()
	base.OwnerID = caller.ID
	base.CreatedAt = now
	base.UpdatedAt = now
	base.DeletedAt = nil
	base.PublishedAt = nil
}

func (l *Lifecycle[T]) checkNew(ctx context.Context, caller access.Caller, item T) error {
	if err := validateStruct(item); err != nil {
		return err
	}
	return l.checkRefs(ctx, caller, item)
}

func (l *Lifecycle[T]) insert(ctx context.Context, item T) (T, error) {
	stored, err := l.repo.Create(ctx, item)
	if err != nil {
		var zero T
		return zero, translate(err)
	}
	return stored, nil
}

func (l *Lifecycle[T]) List(ctx context.Context, caller access.Caller, q ListQuery) (*ListResult[T], error) {
	scope := access.Resolve(caller, q.View, q.Search)
	return paginate(ctx, l.pageSize, q,
		func(ctx context.Context) (int, error) { return l.repo.Count(ctx, scope) },
		func(ctx context.Context, page *repository.PageQuery) ([]T, error) { return l.repo.List(ctx, scope, page) },
	)
}

func (l *Lifecycle[T]) ListPublic(ctx context.Context, q ListQuery) (*ListResult[model.PublicRecord], error) {
	scope := access.Public(q.Search)
	return paginate(ctx, l.pageSize, q,
		func(ctx context.Context) (int, error) { return l.repo.Count(ctx, scope) },
		func(ctx context.Context, page *repository.PageQuery) ([]model.PublicRecord, error) {
			return l.repo.ListPublic(ctx, scope, page)
		},
	)
}

func (l *Lifecycle[T]) Detail(ctx context.Context, caller access.Caller, id string, view access.View) (T, error) {
	var zero T
	if id == "" {
		return zero, ErrIDRequired
	}
	item, err := l.repo.FindAll(ctx, id, access.Resolve(caller, view, ""))
	if err != nil {
		return zero, translate(err)
	}
	return item, nil
}

func (l *Lifecycle[T]) Update(ctx context.Context, caller access.Caller, id string, patch Patch[T]) (T, error) {
	var zero T
	if id == "" {
		return zero, ErrIDRequired
	}
	if caller.IsAnonymous() {
		return zero, ErrForbidden
	}

	// references are resolved outside the row-locking transaction
	if err := l.checkRefs(ctx, caller, patch); err != nil {
		return zero, err
	}

	return l.mutate(ctx, id, access.Resolve(caller, access.ViewActive, ""), func(item T) error {
		base := item.Base()
		if !caller.CanModify(base.OwnerID) {
			return ErrForbidden
		}
		patch.Apply(item)
		if err := validateStruct(item); err != nil {
			return err
		}
		base.Touch(l.now())
		return nil
	})
}

func (l *Lifecycle[T]) SetPublished(ctx context.Context, caller access.Caller, id string, status int) (T, error) {
	var zero T
	if id == "" {
		return zero, ErrIDRequired
	}
	if !caller.IsAdmin() {
		return zero, ErrForbidden
	}
	if status != StatusPublished && status != StatusUnpublished {
		return zero, ErrInvalidStatus
	}

	return l.mutate(ctx, id, access.Resolve(caller, access.ViewActive, ""), func(item T) error {
		base := item.Base()
		switch {
		case status == StatusPublished && base.PublishedAt == nil:
			now := l.now()
			base.PublishedAt = &now
			base.Touch(now)
		case status == StatusUnpublished && base.PublishedAt != nil:
			base.PublishedAt = nil
			base.Touch(l.now())
		}
		return nil
	})
}

func (l *Lifecycle[T]) Delete(ctx context.Context, caller access.Caller, id string) (T, error) {
	var zero T
	if id == "" {
		return zero, ErrIDRequired
	}
	if !caller.IsAdmin() {
		return zero, ErrForbidden
	}

	return l.mutate(ctx, id, access.Resolve(caller, access.ViewActive, ""), func(item T) error {
		now := l.now()
		base := item.Base()
		base.DeletedAt = &now
		base.Touch(now)
		return nil
	})
}

func (l *Lifecycle[T]) Restore(ctx context.Context, caller access.Caller, id string) (T, error) {
	var zero T
	if id == "" {
		return zero, ErrIDRequired
	}
	if !caller.IsAdmin() {
		return zero, ErrForbidden
	}

	return l.mutate(ctx, id, access.Resolve(caller, access.ViewDeleted, ""), func(item T) error {
		base := item.Base()
		base.DeletedAt = nil
		base.Touch(l.now())
		return nil
	})
}

func (l *Lifecycle[T]) mutate(ctx context.Context, id string, scope repository.Scope, fn func(T) error) (T, error) {
	item, err := l.repo.Mutate(ctx, id, scope, fn)
	if err != nil {
		var zero T
		return zero, translate(err)
	}
	return item, nil
}

// checkRefs verifies the references v reports, if it reports any.
func (l *Lifecycle[T]) checkRefs(ctx context.Context, caller access.Caller, v any) error {
	r, ok := v.(model.Referrer)
	if !ok || l.refs == nil {
		return nil
	}
	refs := r.References()
	if len(refs) == 0 {
		return nil
	}
	return l.refs.CheckReferences(ctx, caller, refs)
}

// translate maps repository errors onto service errors.
func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var ref *repository.ErrInvalidReference
	if errors.As(err, &ref) {
		return fieldError(ref.Field, "referenced record does not exist")
	}
	return err
}

// paginate returns every match when q is not paged, otherwise the clamped page
// together with the total count and page count.
func paginate[E any](
	ctx context.Context,
	size int,
	q ListQuery,
	count func(context.Context) (int, error),
	fetch func(context.Context, *repository.PageQuery) ([]E, error),
) (*ListResult[E], error) {
	if !q.Paged {
		items, err := fetch(ctx, nil)
		if err != nil {
			return nil, err
		}
		return &ListResult[E]{Records: items, Count: len(items)}, nil
	}

	total, err := count(ctx)
	if err != nil {
		return nil, err
	}
	page := pagination.Resolve(q.Page, size, total)
	items, err := fetch(ctx, &repository.PageQuery{Limit: page.Limit(), Offset: page.Offset()})
	if err != nil {
		return nil, err
	}
	return &ListResult[E]{
		Records:  items,
		Count:    page.Total,
		NumPages: page.NumPages,
		Paged:    true,
	}, nil
}
