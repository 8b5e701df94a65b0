package model

import (
	"encoding/json"
	"time"
)

// DateLayout is the wire format of TimeEntry.WorkDate.
const DateLayout = "2006-01-02"

// TimeEntry books minutes of work against a task on a calendar day.
type TimeEntry struct {
	Record
	TaskID          string    `json:"task_id" validate:"required,uuid"`
	WorkDate        time.Time `json:"work_date" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"min=1,max=1440"`
	Description     string    `json:"description" validate:"max=2000"`
}

func (e *TimeEntry) DisplayName() string { return e.Description }

func (e *TimeEntry) References() []Reference {
	return []Reference{{Field: "task_id", Kind: RelatedTask, ID: e.TaskID}}
}

// MarshalJSON renders work_date as a calendar day.
func (e TimeEntry) MarshalJSON() ([]byte, error) {
	type plain TimeEntry
	return json.Marshal(struct {
		plain
		WorkDate string `json:"work_date"`
	}{plain(e), e.WorkDate.Format(DateLayout)})
}

// TimeEntryPatch carries the fields supplied on update; nil means untouched.
type TimeEntryPatch struct {
	TaskID          *string    `json:"task_id"`
	WorkDate        *time.Time `json:"work_date"`
	DurationMinutes *int       `json:"duration_minutes"`
	Description     *string    `json:"description"`
}

func (p TimeEntryPatch) Apply(e *TimeEntry) {
	if p.TaskID != nil {
		e.TaskID = *p.TaskID
	}
	if p.WorkDate != nil {
		e.WorkDate = *p.WorkDate
	}
	if p.DurationMinutes != nil {
		e.DurationMinutes = *p.DurationMinutes
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
}

func (p TimeEntryPatch) References() []Reference {
	if p.TaskID == nil {
		return nil
	}
	return []Reference{{Field: "task_id", Kind: RelatedTask, ID: *p.TaskID}}
}
