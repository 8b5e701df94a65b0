package postgres

import (
	"database/sql"

	"pmapi/internal/model"
)

func ownedProjects(p string) string {
	return "SELECT id FROM projects WHERE owner_id = " + p
}

func ownedTasks(p string) string {
	return "SELECT t.id FROM tasks t JOIN projects p ON p.id = t.project_id WHERE p.owner_id = " + p
}

// NewDepartments returns the departments store.
func NewDepartments(db *sql.DB) *Store[*model.Department] {
	return newStore(db, table[*model.Department]{
		name:       "departments",
		nameColumn: "name",
		columns:    []string{"name", "description"},
		newItem:    func() *model.Department { return &model.Department{} },
		values: func(d *model.Department) []any {
			return []any{d.Name, d.Description}
		},
		scan: func(d *model.Department) ([]any, func()) {
			return []any{&d.Name, &d.Description}, nil
		},
	})
}

// NewProjects returns the projects store.
func NewProjects(db *sql.DB) *Store[*model.Project] {
	return newStore(db, table[*model.Project]{
		name:       "projects",
		nameColumn: "name",
		columns:    []string{"name", "description", "department_id"},
		newItem:    func() *model.Project { return &model.Project{} },
		values: func(p *model.Project) []any {
			return []any{p.Name, p.Description, p.DepartmentID}
		},
		scan: func(p *model.Project) ([]any, func()) {
			return []any{&p.Name, &p.Description, &p.DepartmentID}, nil
		},
	})
}

// NewTasks returns the tasks store. A task is visible to the owner of its project.
func NewTasks(db *sql.DB) *Store[*model.Task] {
	return newStore(db, table[*model.Task]{
		name:       "tasks",
		nameColumn: "name",
		columns:    []string{"project_id", "name", "description", "status"},
		newItem:    func() *model.Task { return &model.Task{} },
		values: func(t *model.Task) []any {
			return []any{t.ProjectID, t.Name, t.Description, t.Status}
		},
		scan: func(t *model.Task) ([]any, func()) {
			return []any{&t.ProjectID, &t.Name, &t.Description, &t.Status}, nil
		},
		ownedVia: func(p string) string {
			return "project_id IN (" + ownedProjects(p) + ")"
		},
	})
}

// NewTimeEntries returns the time entries store. An entry is visible to the
// owner of the project its task belongs to.
func NewTimeEntries(db *sql.DB) *Store[*model.TimeEntry] {
	return newStore(db, table[*model.TimeEntry]{
		name:       "time_entries",
		nameColumn: "description",
		columns:    []string{"task_id", "work_date", "duration_minutes", "description"},
		newItem:    func() *model.TimeEntry { return &model.TimeEntry{} },
		values: func(e *model.TimeEntry) []any {
			return []any{e.TaskID, e.WorkDate, e.DurationMinutes, e.Description}
		},
		scan: func(e *model.TimeEntry) ([]any, func()) {
			return []any{&e.TaskID, &e.WorkDate, &e.DurationMinutes, &e.Description}, nil
		},
		ownedVia: func(p string) string {
			return "task_id IN (" + ownedTasks(p) + ")"
		},
	})
}

// NewAttachments returns the attachments store. An attachment is visible to
// the owner of the project it relates to, directly or through a task.
func NewAttachments(db *sql.DB) *Store[*model.Attachment] {
	return newStore(db, table[*model.Attachment]{
		name:       "attachments",
		nameColumn: "filename",
		columns:    []string{"filename", "storage_path", "size", "content_type", "related_kind", "related_id"},
		newItem:    func() *model.Attachment { return &model.Attachment{} },
		values: func(a *model.Attachment) []any {
			var kind, id any
			if a.Related != nil {
				kind, id = string(a.Related.Kind), a.Related.ID
			}
			return []any{a.Filename, a.StoragePath, a.Size, a.ContentType, kind, id}
		},
		scan: func(a *model.Attachment) ([]any, func()) {
			var kind, id sql.NullString
			return []any{&a.Filename, &a.StoragePath, &a.Size, &a.ContentType, &kind, &id}, func() {
				if kind.Valid && id.Valid {
					a.Related = &model.RelatedRef{Kind: model.RelatedKind(kind.String), ID: id.String}
				}
			}
		},
		ownedVia: func(p string) string {
			return "((related_kind = 'project' AND related_id IN (" + ownedProjects(p) + "))" +
				" OR (related_kind = 'task' AND related_id IN (" + ownedTasks(p) + ")))"
		},
	})
}
