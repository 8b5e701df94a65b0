package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pmapi/internal/model"
	"pmapi/internal/repository"
)

const (
	departmentCols = "id, owner_id, created_at, updated_at, deleted_at, published_at, name, description"
	taskCols       = "id, owner_id, created_at, updated_at, deleted_at, published_at, project_id, name, description, status"
	attachmentCols = "id, owner_id, created_at, updated_at, deleted_at, published_at, filename, storage_path, size, content_type, related_kind, related_id"
)

var departmentColumns = []string{"id", "owner_id", "created_at", "updated_at", "deleted_at", "published_at", "name", "description"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err, "an error was not expected when opening a stub database connection")
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestStore_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDepartments(db)
	ctx := context.Background()

	now := time.Now().UTC()
	dep := &model.Department{
		Record: model.Record{ID: "dep-1", OwnerID: "user-1", CreatedAt: now, UpdatedAt: now},
		Name:   "Finance",
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO departments (" + departmentCols + ") VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING " + departmentCols)).
		WithArgs("dep-1", "user-1", now, now, nil, nil, "Finance", "").
		WillReturnRows(sqlmock.NewRows(departmentColumns).
			AddRow("dep-1", "user-1", now, now, nil, nil, "Finance", ""))

	out, err := repo.Create(ctx, dep)

	require.NoError(t, err)
	assert.Equal(t, "dep-1", out.ID)
	assert.Equal(t, "Finance", out.Name)
	assert.Nil(t, out.DeletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateForeignKeyViolation(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTasks(db)

	mock.ExpectQuery("INSERT INTO tasks").
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "tasks_project_id_fkey"})

	_, err := repo.Create(context.Background(), &model.Task{Record: model.Record{ID: "t-1"}, ProjectID: "missing"})

	var ref *repository.ErrInvalidReference
	require.True(t, errors.As(err, &ref))
	assert.Equal(t, "project_id", ref.Field)
}

func TestStore_CreateUniqueViolation(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAttachments(db)

	mock.ExpectQuery("INSERT INTO attachments").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "attachments_storage_path_key"})

	_, err := repo.Create(context.Background(), &model.Attachment{Record: model.Record{ID: "a-1"}})

	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestStore_FindActiveOwnerScope(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTasks(db)
	ctx := context.Background()
	scope := repository.Scope{Mode: repository.ModeOwner, OwnerID: "user-1", View: repository.ViewAll}

	query := regexp.QuoteMeta("SELECT " + taskCols + " FROM tasks WHERE id = $1 AND deleted_at IS NULL AND " +
		"(owner_id = $2 OR project_id IN (SELECT id FROM projects WHERE owner_id = $2))")

	t.Run("found", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery(query).
			WithArgs("task-1", "user-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "created_at", "updated_at", "deleted_at", "published_at", "project_id", "name", "description", "status"}).
				AddRow("task-1", "someone-else", now, now, nil, now, "proj-1", "Write docs", "", "todo"))

		task, err := repo.FindActive(ctx, "task-1", scope)

		require.NoError(t, err)
		assert.Equal(t, "proj-1", task.ProjectID)
		assert.NotNil(t, task.PublishedAt)
		assert.Nil(t, task.DeletedAt)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("missing", "user-1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		task, err := repo.FindActive(ctx, "missing", scope)

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, task)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FindAllDeletedView(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDepartments(db)
	deleted := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + departmentCols + " FROM departments WHERE id = $1 AND deleted_at IS NOT NULL")).
		WithArgs("dep-1").
		WillReturnRows(sqlmock.NewRows(departmentColumns).
			AddRow("dep-1", "user-1", deleted, deleted, deleted, nil, "Legal", ""))

	dep, err := repo.FindAll(context.Background(), "dep-1", repository.Scope{Mode: repository.ModeUnrestricted, View: repository.ViewDeleted})

	require.NoError(t, err)
	assert.True(t, dep.IsDeleted())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CountPublicSearch(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProjects(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM projects WHERE published_at IS NOT NULL AND deleted_at IS NULL AND name ILIKE $1")).
		WithArgs(`%50\%%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	// a public scope never sees deleted rows, whatever view is requested
	total, err := repo.Count(context.Background(), repository.Scope{Mode: repository.ModePublic, View: repository.ViewAll, Search: " 50% "})

	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListPaged(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDepartments(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + departmentCols + " FROM departments ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2")).
		WithArgs(10, 20).
		WillReturnRows(sqlmock.NewRows(departmentColumns).
			AddRow("dep-2", "user-1", now, now, nil, nil, "B", "").
			AddRow("dep-1", "user-1", now.Add(-time.Hour), now, now, nil, "A", ""))

	items, err := repo.List(context.Background(), repository.Scope{Mode: repository.ModeUnrestricted, View: repository.ViewAll}, &repository.PageQuery{Limit: 10, Offset: 20})

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "dep-2", items[0].ID)
	assert.True(t, items[1].IsDeleted())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListAttachmentsRelated(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAttachments(db)
	now := time.Now()

	query := regexp.QuoteMeta("SELECT " + attachmentCols + " FROM attachments WHERE deleted_at IS NULL AND " +
		"(owner_id = $1 OR ((related_kind = 'project' AND related_id IN (SELECT id FROM projects WHERE owner_id = $1))" +
		" OR (related_kind = 'task' AND related_id IN (SELECT t.id FROM tasks t JOIN projects p ON p.id = t.project_id WHERE p.owner_id = $1)))) " +
		"ORDER BY created_at DESC, id DESC")

	mock.ExpectQuery(query).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "created_at", "updated_at", "deleted_at", "published_at", "filename", "storage_path", "size", "content_type", "related_kind", "related_id"}).
			AddRow("a-1", "user-1", now, now, nil, nil, "brief.pdf", "attachments/a.pdf", 10, "application/pdf", "task", "task-1").
			AddRow("a-2", "user-1", now, now, nil, nil, "logo.png", "attachments/b.png", 20, "image/png", nil, nil))

	items, err := repo.List(context.Background(), repository.Scope{Mode: repository.ModeOwner, OwnerID: "user-1"}, nil)

	require.NoError(t, err)
	require.Len(t, items, 2)
	require.NotNil(t, items[0].Related)
	assert.Equal(t, model.RelatedTask, items[0].Related.Kind)
	assert.Equal(t, "task-1", items[0].Related.ID)
	assert.Nil(t, items[1].Related)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListPublic(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAttachments(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, filename FROM attachments WHERE published_at IS NOT NULL AND deleted_at IS NULL ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2")).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "filename"}).AddRow("a-1", "brochure.pdf"))

	items, err := repo.ListPublic(context.Background(), repository.Scope{Mode: repository.ModePublic}, &repository.PageQuery{Limit: 10})

	require.NoError(t, err)
	assert.Equal(t, []model.PublicRecord{{ID: "a-1", Name: "brochure.pdf"}}, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Mutate(t *testing.T) {
	ctx := context.Background()
	scope := repository.Scope{Mode: repository.ModeUnrestricted, View: repository.ViewActive}
	lockQuery := regexp.QuoteMeta("SELECT " + departmentCols + " FROM departments WHERE id = $1 AND deleted_at IS NULL FOR UPDATE")
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("commits the modified row", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewDepartments(db)
		deletedAt := created.Add(time.Hour)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).
			WithArgs("dep-1").
			WillReturnRows(sqlmock.NewRows(departmentColumns).
				AddRow("dep-1", "user-1", created, created, nil, nil, "Ops", "desc"))
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE departments SET updated_at = $2, deleted_at = $3, published_at = $4, name = $5, description = $6 WHERE id = $1 RETURNING " + departmentCols)).
			WithArgs("dep-1", deletedAt, deletedAt, nil, "Ops", "desc").
			WillReturnRows(sqlmock.NewRows(departmentColumns).
				AddRow("dep-1", "user-1", created, deletedAt, deletedAt, nil, "Ops", "desc"))
		mock.ExpectCommit()

		out, err := repo.Mutate(ctx, "dep-1", scope, func(d *model.Department) error {
			d.DeletedAt = &deletedAt
			d.Touch(deletedAt)
			return nil
		})

		require.NoError(t, err)
		assert.True(t, out.IsDeleted())
		assert.Equal(t, created, out.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewDepartments(db)
		boom := errors.New("rejected")

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).
			WithArgs("dep-1").
			WillReturnRows(sqlmock.NewRows(departmentColumns).
				AddRow("dep-1", "user-1", created, created, nil, nil, "Ops", ""))
		mock.ExpectRollback()

		_, err := repo.Mutate(ctx, "dep-1", scope, func(d *model.Department) error { return boom })

		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewDepartments(db)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).
			WithArgs("dep-9").
			WillReturnRows(sqlmock.NewRows(departmentColumns))
		mock.ExpectRollback()

		called := false
		_, err := repo.Mutate(ctx, "dep-9", scope, func(d *model.Department) error {
			called = true
			return nil
		})

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.False(t, called)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\%b\_c\\d`, escapeLike(`a%b_c\d`))
}
