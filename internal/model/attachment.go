package model

// Attachment is an uploaded file. The blob lives in object storage under
// StoragePath; only metadata is kept in the database.
type Attachment struct {
	Record
	Filename    string      `json:"filename" validate:"required,max=255"`
	StoragePath string      `json:"storage_path" validate:"required"`
	Size        int64       `json:"size" validate:"min=0"`
	ContentType string      `json:"content_type" validate:"required"`
	Related     *RelatedRef `json:"related_object"`
}

func (a *Attachment) DisplayName() string { return a.Filename }

func (a *Attachment) References() []Reference {
	if a.Related == nil {
		return nil
	}
	return []Reference{{Field: "related_object", Kind: a.Related.Kind, ID: a.Related.ID}}
}

// AttachmentPatch carries the metadata fields supplied on update.
// ClearRelated drops the related object reference.
type AttachmentPatch struct {
	Filename     *string
	Related      *RelatedRef
	ClearRelated bool
}

func (p AttachmentPatch) Apply(a *Attachment) {
	if p.Filename != nil {
		a.Filename = *p.Filename
	}
	switch {
	case p.ClearRelated:
		a.Related = nil
	case p.Related != nil:
		ref := *p.Related
		a.Related = &ref
	}
}

func (p AttachmentPatch) References() []Reference {
	if p.ClearRelated || p.Related == nil {
		return nil
	}
	return []Reference{{Field: "related_object", Kind: p.Related.Kind, ID: p.Related.ID}}
}
