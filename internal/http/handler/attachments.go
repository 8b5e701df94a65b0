package handler

import (
	"fmt"
	"mime"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"pmapi/internal/http/middleware"
	"pmapi/internal/model"
	"pmapi/internal/service"
)

// Attachments adds the blob routes on top of the generic record handlers.
type Attachments struct {
	*Records[*model.Attachment]
	svc service.AttachmentService
}

// NewAttachments builds the attachment handlers.
func NewAttachments(svc service.AttachmentService, log zerolog.Logger) *Attachments {
	return &Attachments{
		Records: NewRecords[*model.Attachment](svc, attachmentBinding, log),
		svc:     svc,
	}
}

// Upload serves POST / as multipart/form-data. Field "file" is required;
// "filename" overrides the uploaded name; "related_kind" and "related_id"
// attach the file to a project or task.
func (h *Attachments) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return h.fail(c, &service.ValidationError{Fields: map[string]string{"file": "this field is required"}})
	}

	related, err := relatedFromForm(c.FormValue("related_kind"), c.FormValue("related_id"))
	if err != nil {
		return h.fail(c, err)
	}

	f, err := fh.Open()
	if err != nil {
		return h.fail(c, fmt.Errorf("open uploaded file: %w", err))
	}
	defer f.Close()

	filename := strings.TrimSpace(c.FormValue("filename"))
	if filename == "" {
		filename = fh.Filename
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}

	item, err := h.svc.Upload(c.UserContext(), middleware.CallerFrom(c), service.UploadInput{
		Reader:      f,
		Filename:    filename,
		ContentType: ct,
		Size:        fh.Size,
		Related:     related,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, fiber.StatusCreated, envelope{Status: true, Message: h.label() + " created", Records: item})
}

func relatedFromForm(kind, id string) (*model.RelatedRef, error) {
	kind, id = strings.TrimSpace(kind), strings.TrimSpace(id)
	switch {
	case kind == "" && id == "":
		return nil, nil
	case kind == "" || id == "":
		return nil, &service.ValidationError{Fields: map[string]string{"related_object": "related_kind and related_id must be given together"}}
	}
	k, err := model.ParseRelatedKind(kind)
	if err != nil {
		return nil, &service.ValidationError{Fields: map[string]string{"related_object.kind": "must be one of: project, task"}}
	}
	return &model.RelatedRef{Kind: k, ID: id}, nil
}

type downloadLink struct {
	URL string `json:"url"`
}

// Download serves GET /:id/download with a presigned URL.
func (h *Attachments) Download(c *fiber.Ctx) error {
	id, err := recordID(c)
	if err != nil {
		return h.fail(c, err)
	}
	u, err := h.svc.DownloadURL(c.UserContext(), middleware.CallerFrom(c), id)
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, fiber.StatusOK, envelope{Status: true, Records: downloadLink{URL: u}})
}

// Content serves GET /:id/content by streaming the blob through the API.
func (h *Attachments) Content(c *fiber.Ctx) error {
	id, err := recordID(c)
	if err != nil {
		return h.fail(c, err)
	}
	rc, a, err := h.svc.Open(c.UserContext(), middleware.CallerFrom(c), id)
	if err != nil {
		return h.fail(c, err)
	}

	c.Set(fiber.HeaderContentType, a.ContentType)
	c.Set(fiber.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))
	// fasthttp closes rc once the body has been written
	return c.SendStream(rc, int(a.Size))
}
