package handler

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"

	"pmapi/internal/model"
	"pmapi/internal/service"
)

// decodeJSON reads the request body with the app's JSON decoder.
func decodeJSON(c *fiber.Ctx, v any) error {
	body := c.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return errInvalidBody
	}
	if err := c.App().Config().JSONDecoder(body, v); err != nil {
		return errInvalidBody
	}
	return nil
}

// jsonBinding decodes create bodies straight into the model and update
// bodies into its patch type.
func jsonBinding[T model.Entity, P service.Patch[T]](newItem func() T) Binding[T] {
	return Binding[T]{
		Create: func(c *fiber.Ctx) (T, error) {
			item := newItem()
			if err := decodeJSON(c, item); err != nil {
				var zero T
				return zero, err
			}
			return item, nil
		},
		Update: func(c *fiber.Ctx) (service.Patch[T], error) {
			var patch P
			if err := decodeJSON(c, &patch); err != nil {
				return nil, err
			}
			return patch, nil
		},
	}
}

var (
	departmentBinding = jsonBinding[*model.Department, model.DepartmentPatch](func() *model.Department { return &model.Department{} })
	projectBinding    = jsonBinding[*model.Project, model.ProjectPatch](func() *model.Project { return &model.Project{} })
	taskBinding       = jsonBinding[*model.Task, model.TaskPatch](func() *model.Task { return &model.Task{Status: model.TaskTodo} })
)

// timeEntryPayload carries work_date as a calendar day string.
type timeEntryPayload struct {
	TaskID          *string `json:"task_id"`
	WorkDate        *string `json:"work_date"`
	DurationMinutes *int    `json:"duration_minutes"`
	Description     *string `json:"description"`
}

func (p timeEntryPayload) patch() (model.TimeEntryPatch, error) {
	out := model.TimeEntryPatch{
		TaskID:          p.TaskID,
		DurationMinutes: p.DurationMinutes,
		Description:     p.Description,
	}
	if p.WorkDate != nil {
		d, err := time.Parse(model.DateLayout, *p.WorkDate)
		if err != nil {
			return out, &service.ValidationError{Fields: map[string]string{"work_date": "must be a date in YYYY-MM-DD format"}}
		}
		out.WorkDate = &d
	}
	return out, nil
}

var timeEntryBinding = Binding[*model.TimeEntry]{
	Create: func(c *fiber.Ctx) (*model.TimeEntry, error) {
		var p timeEntryPayload
		if err := decodeJSON(c, &p); err != nil {
			return nil, err
		}
		patch, err := p.patch()
		if err != nil {
			return nil, err
		}
		e := &model.TimeEntry{}
		patch.Apply(e)
		return e, nil
	},
	Update: func(c *fiber.Ctx) (service.Patch[*model.TimeEntry], error) {
		var p timeEntryPayload
		if err := decodeJSON(c, &p); err != nil {
			return nil, err
		}
		return p.patch()
	},
}

// attachmentPatchPayload tells an explicit "related_object": null apart from
// an absent key.
type attachmentPatchPayload struct {
	Filename *string         `json:"filename"`
	Related  json.RawMessage `json:"related_object"`
}

var attachmentBinding = Binding[*model.Attachment]{
	Update: func(c *fiber.Ctx) (service.Patch[*model.Attachment], error) {
		var p attachmentPatchPayload
		if err := decodeJSON(c, &p); err != nil {
			return nil, err
		}
		patch := model.AttachmentPatch{Filename: p.Filename}

		switch raw := bytes.TrimSpace(p.Related); {
		case len(raw) == 0:
		case bytes.Equal(raw, []byte("null")):
			patch.ClearRelated = true
		default:
			var ref model.RelatedRef
			if err := json.Unmarshal(raw, &ref); err != nil {
				return nil, errInvalidBody
			}
			patch.Related = &ref
		}
		return patch, nil
	},
}
