package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"pmapi/internal/database"
	"pmapi/internal/model"
	"pmapi/internal/repository"
)

// baseColumns are shared by every lifecycle table, in scan order.
var baseColumns = []string{"id", "owner_id", "created_at", "updated_at", "deleted_at", "published_at"}

// table describes how one resource maps onto its SQL table.
type table[T model.Entity] struct {
	name       string
	nameColumn string
	columns    []string
	newItem    func() T
	values     func(T) []any
	// scan returns payload scan targets and an optional hook run after a successful Scan.
	scan func(T) ([]any, func())
	// ownedVia renders the "belongs to a project owned by the caller" clause.
	// It receives the placeholder bound to the caller id; nil means owner_id only.
	ownedVia func(p string) string
}

// Store is a PostgreSQL implementation of repository.RecordRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type Store[T model.Entity] struct {
	db *sql.DB
	t  table[T]
}

func newStore[T model.Entity](db *sql.DB, t table[T]) *Store[T] {
	return &Store[T]{db: db, t: t}
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// args collects positional parameters and hands out their placeholders.
type args []any

func (a *args) add(v any) string {
	*a = append(*a, v)
	return "$" + strconv.Itoa(len(*a))
}

func (s *Store[T]) selectList() string {
	return strings.Join(append(append([]string{}, baseColumns...), s.t.columns...), ", ")
}

// where renders scope as SQL conditions joined with AND. It returns "" when
// scope is unrestricted over every record.
func (s *Store[T]) where(scope repository.Scope, a *args) string {
	var conds []string

	view := scope.View
	if scope.Mode == repository.ModePublic {
		view = repository.ViewActive
		conds = append(conds, "published_at IS NOT NULL")
	}
	switch view {
	case repository.ViewActive:
		conds = append(conds, "deleted_at IS NULL")
	case repository.ViewDeleted:
		conds = append(conds, "deleted_at IS NOT NULL")
	}

	if scope.Mode == repository.ModeOwner {
		p := a.add(scope.OwnerID)
		if s.t.ownedVia == nil {
			conds = append(conds, "owner_id = "+p)
		} else {
			conds = append(conds, "(owner_id = "+p+" OR "+s.t.ownedVia(p)+")")
		}
	}

	if q := strings.TrimSpace(scope.Search); q != "" {
		conds = append(conds, s.t.nameColumn+" ILIKE "+a.add("%"+escapeLike(q)+"%"))
	}

	return strings.Join(conds, " AND ")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *Store[T]) scanItem(row rowScanner) (T, error) {
	item := s.t.newItem()
	base := item.Base()
	dest := []any{&base.ID, &base.OwnerID, &base.CreatedAt, &base.UpdatedAt, &base.DeletedAt, &base.PublishedAt}
	payload, done := s.t.scan(item)
	if err := row.Scan(append(dest, payload...)...); err != nil {
		var zero T
		return zero, err
	}
	if done != nil {
		done()
	}
	return item, nil
}

// Create inserts a new row and returns the stored record.
func (s *Store[T]) Create(ctx context.Context, item T) (T, error) {
	base := item.Base()
	a := args{base.ID, base.OwnerID, base.CreatedAt, base.UpdatedAt, base.DeletedAt, base.PublishedAt}
	a = append(a, s.t.values(item)...)

	placeholders := make([]string, len(a))
	for i := range a {
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		s.t.name, s.selectList(), strings.Join(placeholders, ", "), s.selectList())

	out, err := s.scanItem(s.db.QueryRowContext(ctx, q, a...))
	if err != nil {
		return out, s.translate(err)
	}
	return out, nil
}

// FindActive fetches an active record by id within scope.
func (s *Store[T]) FindActive(ctx context.Context, id string, scope repository.Scope) (T, error) {
	return s.find(ctx, s.db, id, scope, false, false)
}

// FindAll fetches a record by id within scope, honouring scope.View for deleted rows.
func (s *Store[T]) FindAll(ctx context.Context, id string, scope repository.Scope) (T, error) {
	return s.find(ctx, s.db, id, scope, true, false)
}

func (s *Store[T]) find(ctx context.Context, q queryer, id string, scope repository.Scope, includeDeleted, lock bool) (T, error) {
	if !includeDeleted {
		scope.View = repository.ViewActive
	}
	a := args{id}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", s.selectList(), s.t.name)
	if w := s.where(scope, &a); w != "" {
		query += " AND " + w
	}
	if lock {
		query += " FOR UPDATE"
	}
	return s.scanItem(q.QueryRowContext(ctx, query, a...))
}

// Count returns the number of rows matching scope.
func (s *Store[T]) Count(ctx context.Context, scope repository.Scope) (int, error) {
	var a args
	query := "SELECT COUNT(*) FROM " + s.t.name
	if w := s.where(scope, &a); w != "" {
		query += " WHERE " + w
	}
	var total int
	if err := s.db.QueryRowContext(ctx, query, a...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store[T]) listQuery(columns string, scope repository.Scope, page *repository.PageQuery) (string, args) {
	var a args
	query := fmt.Sprintf("SELECT %s FROM %s", columns, s.t.name)
	if w := s.where(scope, &a); w != "" {
		query += " WHERE " + w
	}
	query += " ORDER BY created_at DESC, id DESC"
	if page != nil {
		query += " LIMIT " + a.add(page.Limit) + " OFFSET " + a.add(page.Offset)
	}
	return query, a
}

// List returns rows matching scope, newest first.
func (s *Store[T]) List(ctx context.Context, scope repository.Scope, page *repository.PageQuery) ([]T, error) {
	query, a := s.listQuery(s.selectList(), scope, page)
	rows, err := s.db.QueryContext(ctx, query, a...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		item, err := s.scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ListPublic returns only the id and display name of rows matching scope.
func (s *Store[T]) ListPublic(ctx context.Context, scope repository.Scope, page *repository.PageQuery) ([]model.PublicRecord, error) {
	query, a := s.listQuery("id, "+s.t.nameColumn, scope, page)
	rows, err := s.db.QueryContext(ctx, query, a...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.PublicRecord, 0)
	for rows.Next() {
		var p model.PublicRecord
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Mutate runs a locked read-modify-write of one row inside a transaction.
func (s *Store[T]) Mutate(ctx context.Context, id string, scope repository.Scope, fn func(T) error) (T, error) {
	var out T
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		item, err := s.find(ctx, tx, id, scope, true, true)
		if err != nil {
			return err
		}
		if err := fn(item); err != nil {
			return err
		}

		base := item.Base()
		a := args{base.ID}
		sets := []string{
			"updated_at = " + a.add(base.UpdatedAt),
			"deleted_at = " + a.add(base.DeletedAt),
			"published_at = " + a.add(base.PublishedAt),
		}
		for i, v := range s.t.values(item) {
			sets = append(sets, s.t.columns[i]+" = "+a.add(v))
		}
		query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1 RETURNING %s",
			s.t.name, strings.Join(sets, ", "), s.selectList())

		out, err = s.scanItem(tx.QueryRowContext(ctx, query, a...))
		return err
	})
	if err != nil {
		var zero T
		return zero, s.translate(err)
	}
	return out, nil
}

// translate maps constraint violations reported by PostgreSQL onto repository errors.
func (s *Store[T]) translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23503":
		field := strings.TrimSuffix(strings.TrimPrefix(pgErr.ConstraintName, s.t.name+"_"), "_fkey")
		return &repository.ErrInvalidReference{Field: field}
	case "23505":
		return fmt.Errorf("%w: %s", repository.ErrConflict, pgErr.ConstraintName)
	default:
		return err
	}
}
