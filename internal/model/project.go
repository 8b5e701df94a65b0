package model

// Project is the unit of ownership that tasks, time entries and attachments hang off.
type Project struct {
	Record
	Name         string  `json:"name" validate:"required,max=200"`
	Description  string  `json:"description" validate:"max=2000"`
	DepartmentID *string `json:"department_id" validate:"omitempty,uuid"`
}

func (p *Project) DisplayName() string { return p.Name }

// ProjectPatch carries the fields supplied on update; nil means untouched.
// An empty DepartmentID detaches the project from its department.
type ProjectPatch struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	DepartmentID *string `json:"department_id"`
}

func (p ProjectPatch) Apply(pr *Project) {
	if p.Name != nil {
		pr.Name = *p.Name
	}
	if p.Description != nil {
		pr.Description = *p.Description
	}
	if p.DepartmentID != nil {
		if *p.DepartmentID == "" {
			pr.DepartmentID = nil
		} else {
			id := *p.DepartmentID
			pr.DepartmentID = &id
		}
	}
}
