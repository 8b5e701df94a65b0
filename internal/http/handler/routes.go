package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"pmapi/internal/http/middleware"
	"pmapi/internal/model"
	"pmapi/internal/service"
	"pmapi/internal/storage"
)

// Deps are the collaborators the HTTP routes need.
type Deps struct {
	DB      *sql.DB
	Storage storage.Storage
	Auth    *middleware.Authenticator
	Log     zerolog.Logger

	Departments service.RecordService[*model.Department]
	Projects    service.RecordService[*model.Project]
	Tasks       service.RecordService[*model.Task]
	TimeEntries service.RecordService[*model.TimeEntry]
	Attachments service.AttachmentService
}

// RegisterRoutes attaches the health probes and the /api resources to app.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.DB, d.Storage))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api", d.Auth.Handler())

	mount(api.Group("/departments"), NewRecords(d.Departments, departmentBinding, d.Log), true)
	mount(api.Group("/projects"), NewRecords(d.Projects, projectBinding, d.Log), true)
	mount(api.Group("/tasks"), NewRecords(d.Tasks, taskBinding, d.Log), true)
	mount(api.Group("/time-entries"), NewRecords(d.TimeEntries, timeEntryBinding, d.Log), true)

	att := NewAttachments(d.Attachments, d.Log)
	g := api.Group("/attachments")
	g.Post("/", middleware.RequireAuth(), att.Upload)
	g.Get("/:id/download", middleware.RequireAuth(), att.Download)
	g.Get("/:id/content", middleware.RequireAuth(), att.Content)
	mount(g, att.Records, false)
}

// mount registers the lifecycle routes. Static segments go before /:id.
func mount[T model.Entity](r fiber.Router, h *Records[T], withCreate bool) {
	r.Get("/public", h.ListPublic)
	r.Get("/deleted", middleware.RequireAdmin(), h.Deleted)
	r.Get("/", middleware.RequireAuth(), h.List)
	r.Get("/:id", middleware.RequireAuth(), h.Detail)
	if withCreate {
		r.Post("/", middleware.RequireAuth(), h.Create)
	}
	r.Patch("/:id", middleware.RequireAuth(), h.Update)
	r.Post("/:id/publish", middleware.RequireAdmin(), h.Publish)
	r.Delete("/:id", middleware.RequireAdmin(), h.Delete)
	r.Post("/:id/restore", middleware.RequireAdmin(), h.Restore)
}
