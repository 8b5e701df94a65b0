package model

import "time"

// Record is the lifecycle header shared by every resource.
// DeletedAt decides active vs soft-deleted; PublishedAt gates anonymous reads.
// The two are independent of each other.
type Record struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at"`
	PublishedAt *time.Time `json:"published_at"`
}

// Base returns the record header itself, so embedding types satisfy Entity.
func (r *Record) Base() *Record { return r }

// IsDeleted reports whether the record is in the soft-deleted set.
func (r *Record) IsDeleted() bool { return r.DeletedAt != nil }

// IsPublished reports whether the record is visible to anonymous callers.
func (r *Record) IsPublished() bool { return r.PublishedAt != nil }

// Touch moves UpdatedAt forward to now. It never moves backwards and never
// goes below CreatedAt.
func (r *Record) Touch(now time.Time) {
	if now.Before(r.UpdatedAt) {
		return
	}
	if now.Before(r.CreatedAt) {
		now = r.CreatedAt
	}
	r.UpdatedAt = now
}

// Entity is implemented by every resource type via its embedded Record.
type Entity interface {
	Base() *Record
	DisplayName() string
}

// PublicRecord is the only projection handed to anonymous callers.
type PublicRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Kind names a resource type.
type Kind string

const (
	KindAttachment Kind = "attachment"
	KindDepartment Kind = "department"
	KindProject    Kind = "project"
	KindTask       Kind = "task"
	KindTimeEntry  Kind = "time_entry"
)

// Label is the human readable name used in response messages.
func (k Kind) Label() string {
	switch k {
	case KindTimeEntry:
		return "time entry"
	default:
		return string(k)
	}
}
