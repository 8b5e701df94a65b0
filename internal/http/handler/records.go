package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pmapi/internal/access"
	"pmapi/internal/http/middleware"
	"pmapi/internal/model"
	"pmapi/internal/pagination"
	"pmapi/internal/service"
)

// Binding decodes the create and update bodies of one resource.
type Binding[T model.Entity] struct {
	Create func(c *fiber.Ctx) (T, error)
	Update func(c *fiber.Ctx) (service.Patch[T], error)
}

// Records serves the lifecycle routes shared by every resource.
type Records[T model.Entity] struct {
	svc  service.RecordService[T]
	bind Binding[T]
	log  zerolog.Logger
}

// NewRecords builds the handlers for svc.
func NewRecords[T model.Entity](svc service.RecordService[T], bind Binding[T], log zerolog.Logger) *Records[T] {
	return &Records[T]{svc: svc, bind: bind, log: log}
}

func (h *Records[T]) label() string { return h.svc.Kind().Label() }

func (h *Records[T]) fail(c *fiber.Ctx, err error) error {
	return writeError(c, h.log, h.svc.Kind(), err)
}

// ListPublic serves GET /public: published records as id and name.
func (h *Records[T]) ListPublic(c *fiber.Ctx) error {
	res, err := h.svc.ListPublic(c.UserContext(), listQuery(c, access.ViewActive))
	if err != nil {
		return h.fail(c, err)
	}
	return writeList(c, res)
}

// List serves GET /: records visible to the caller.
func (h *Records[T]) List(c *fiber.Ctx) error {
	res, err := h.svc.List(c.UserContext(), middleware.CallerFrom(c), listQuery(c, access.View(c.Query("view"))))
	if err != nil {
		return h.fail(c, err)
	}
	return writeList(c, res)
}

// Deleted serves GET /deleted: the soft-deleted view.
func (h *Records[T]) Deleted(c *fiber.Ctx) error {
	res, err := h.svc.List(c.UserContext(), middleware.CallerFrom(c), listQuery(c, access.ViewDeleted))
	if err != nil {
		return h.fail(c, err)
	}
	return writeList(c, res)
}

// Detail serves GET /:id.
func (h *Records[T]) Detail(c *fiber.Ctx) error {
	id, err := recordID(c)
	if err != nil {
		return h.fail(c, err)
	}
	item, err := h.svc.Detail(c.UserContext(), middleware.CallerFrom(c), id, access.View(c.Query("view")))
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, fiber.StatusOK, envelope{Status: true, Records: item})
}

// Create serves POST /.
func (h *Records[T]) Create(c *fiber.Ctx) error {
	item, err := h.bind.Create(c)
	if err != nil {
		return h.fail(c, err)
	}
	created, err := h.svc.Create(c.UserContext(), middleware.CallerFrom(c), item)
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, fiber.StatusCreated, envelope{Status: true, Message: h.label() + " created", Records: created})
}

// Update serves PATCH /:id with a partial body.
func (h *Records[T]) Update(c *fiber.Ctx) error {
	id, err := recordID(c)
	if err != nil {
		return h.fail(c, err)
	}
	patch, err := h.bind.Update(c)
	if err != nil {
		return h.fail(c, err)
	}
	item, err := h.svc.Update(c.UserContext(), middleware.CallerFrom(c), id, patch)
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, fiber.StatusOK, envelope{Status: true, Message: h.label() + " updated", Records: item})
}

type publishRequest struct {
	Status *int `json:"status"`
}

// Publish serves POST /:id/publish with body {"status": 0|1}.
func (h *Records[T]) Publish(c *fiber.Ctx) error {
	id, err := recordID(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req publishRequest
	if err := decodeJSON(c, &req); err != nil {
		return h.fail(c, err)
	}
	if req.Status == nil {
		return h.fail(c, service.ErrInvalidStatus)
	}

	item, err := h.svc.SetPublished(c.UserContext(), middleware.CallerFrom(c), id, *req.Status)
	if err != nil {
		return h.fail(c, err)
	}
	msg := h.label() + " published"
	if *req.Status == service.StatusUnpublished {
		msg = h.label() + " unpublished"
	}
	return respond(c, fiber.StatusOK, envelope{Status: true, Message: msg, Records: item})
}

// Delete serves DELETE /:id as a soft delete.
func (h *Records[T]) Delete(c *fiber.Ctx) error {
	id, err := recordID(c)
	if err != nil {
		return h.fail(c, err)
	}
	item, err := h.svc.Delete(c.UserContext(), middleware.CallerFrom(c), id)
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, fiber.StatusOK, envelope{Status: true, Message: h.label() + " deleted", Records: item})
}

// Restore serves POST /:id/restore.
func (h *Records[T]) Restore(c *fiber.Ctx) error {
	id, err := recordID(c)
	if err != nil {
		return h.fail(c, err)
	}
	item, err := h.svc.Restore(c.UserContext(), middleware.CallerFrom(c), id)
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, fiber.StatusOK, envelope{Status: true, Message: h.label() + " restored", Records: item})
}

func recordID(c *fiber.Ctx) (string, error) {
	id := c.Params("id")
	if id == "" {
		return "", service.ErrIDRequired
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", errInvalidID
	}
	return id, nil
}

func listQuery(c *fiber.Ctx, view access.View) service.ListQuery {
	page, paged := pagination.ParseNumber(c.Query("page"))
	return service.ListQuery{
		View:   view,
		Search: c.Query("search"),
		Page:   page,
		Paged:  paged,
	}
}

func writeList[E any](c *fiber.Ctx, res *service.ListResult[E]) error {
	records := res.Records
	if records == nil {
		records = []E{}
	}
	env := envelope{Status: true, Records: records}
	if res.Paged {
		count, numPages := res.Count, res.NumPages
		env.Count = &count
		env.NumPages = &numPages
	}
	return respond(c, fiber.StatusOK, env)
}
