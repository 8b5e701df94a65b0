package model

// Task statuses.
const (
	TaskTodo       = "todo"
	TaskInProgress = "in_progress"
	TaskDone       = "done"
)

// Task belongs to exactly one project.
type Task struct {
	Record
	ProjectID   string `json:"project_id" validate:"required,uuid"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Status      string `json:"status" validate:"required,oneof=todo in_progress done"`
}

func (t *Task) DisplayName() string { return t.Name }

func (t *Task) References() []Reference {
	return []Reference{{Field: "project_id", Kind: RelatedProject, ID: t.ProjectID}}
}

// TaskPatch carries the fields supplied on update; nil means untouched.
type TaskPatch struct {
	ProjectID   *string `json:"project_id"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

func (p TaskPatch) Apply(t *Task) {
	if p.ProjectID != nil {
		t.ProjectID = *p.ProjectID
	}
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
}

func (p TaskPatch) References() []Reference {
	if p.ProjectID == nil {
		return nil
	}
	return []Reference{{Field: "project_id", Kind: RelatedProject, ID: *p.ProjectID}}
}
