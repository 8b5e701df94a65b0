package model

// Department groups projects.
type Department struct {
	Record
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

func (d *Department) DisplayName() string { return d.Name }

// DepartmentPatch carries the fields supplied on update; nil means untouched.
type DepartmentPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (p DepartmentPatch) Apply(d *Department) {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
}
