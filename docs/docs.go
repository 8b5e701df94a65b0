// Package docs registers the OpenAPI description served under /swagger.
package docs

import (
	"encoding/json"
	"strings"

	"github.com/swaggo/swag"
)

type resource struct {
	path   string
	tag    string
	create string // request body schema of POST, or "multipart"
	update string
}

var resources = []resource{
	{path: "departments", tag: "departments", create: "DepartmentInput", update: "DepartmentInput"},
	{path: "projects", tag: "projects", create: "ProjectInput", update: "ProjectInput"},
	{path: "tasks", tag: "tasks", create: "TaskInput", update: "TaskInput"},
	{path: "time-entries", tag: "time entries", create: "TimeEntryInput", update: "TimeEntryInput"},
	{path: "attachments", tag: "attachments", create: "multipart", update: "AttachmentPatch"},
}

type obj = map[string]any

func ref(name string) obj { return obj{"$ref": "#/definitions/" + name} }

var (
	idParam     = obj{"name": "id", "in": "path", "required": true, "type": "string", "format": "uuid"}
	pageParam   = obj{"name": "page", "in": "query", "type": "integer", "description": "1-based page; omitted returns every record"}
	searchParam = obj{"name": "search", "in": "query", "type": "string", "description": "case-insensitive name filter"}
	viewParam   = obj{"name": "view", "in": "query", "type": "string", "enum": []string{"active", "deleted", "all"}, "description": "administrators only"}
	bearer      = []obj{{"BearerAuth": []string{}}}
)

func op(tag, summary string, secured bool, params ...obj) obj {
	o := obj{
		"tags":      []string{tag},
		"summary":   summary,
		"produces":  []string{"application/json"},
		"responses": obj{"200": obj{"description": "OK", "schema": ref("Envelope")}},
	}
	if len(params) > 0 {
		o["parameters"] = params
	}
	if secured {
		o["security"] = bearer
	}
	return o
}

func body(schema string) obj {
	return obj{"name": "body", "in": "body", "required": true, "schema": ref(schema)}
}

func paths() obj {
	p := obj{
		"/health":  obj{"get": op("health", "Database and storage readiness", false)},
		"/healthz": obj{"get": op("health", "Liveness probe", false)},
	}
	for _, r := range resources {
		base := "/api/" + r.path
		create := op(r.tag, "Create", true, body(r.create))
		if r.create == "multipart" {
			create = op(r.tag, "Upload", true,
				obj{"name": "file", "in": "formData", "required": true, "type": "file"},
				obj{"name": "filename", "in": "formData", "type": "string"},
				obj{"name": "related_kind", "in": "formData", "type": "string", "enum": []string{"project", "task"}},
				obj{"name": "related_id", "in": "formData", "type": "string", "format": "uuid"},
			)
			create["consumes"] = []string{"multipart/form-data"}
		}
		create["responses"] = obj{"201": obj{"description": "Created", "schema": ref("Envelope")}}

		p[base] = obj{
			"get":  op(r.tag, "List records visible to the caller", true, pageParam, searchParam, viewParam),
			"post": create,
		}
		p[base+"/public"] = obj{"get": op(r.tag, "List published records (id and name)", false, pageParam, searchParam)}
		p[base+"/deleted"] = obj{"get": op(r.tag, "List soft-deleted records", true, pageParam, searchParam)}
		p[base+"/{id}"] = obj{
			"get":    op(r.tag, "Detail", true, idParam, viewParam),
			"patch":  op(r.tag, "Partial update", true, idParam, body(r.update)),
			"delete": op(r.tag, "Soft delete", true, idParam),
		}
		p[base+"/{id}/publish"] = obj{"post": op(r.tag, "Publish (1) or unpublish (0)", true, idParam, body("PublishRequest"))}
		p[base+"/{id}/restore"] = obj{"post": op(r.tag, "Restore a soft-deleted record", true, idParam)}
	}
	p["/api/attachments/{id}/download"] = obj{"get": op("attachments", "Presigned download URL", true, idParam)}
	p["/api/attachments/{id}/content"] = obj{"get": op("attachments", "Stream attachment content", true, idParam)}
	return p
}

func str(extra ...string) obj {
	o := obj{"type": "string"}
	if len(extra) > 0 {
		o["format"] = extra[0]
	}
	return o
}

var definitions = obj{
	"Envelope": obj{"type": "object", "properties": obj{
		"status":     obj{"type": "boolean"},
		"message":    str(),
		"records":    obj{"type": "object"},
		"count":      obj{"type": "integer"},
		"num_pages":  obj{"type": "integer"},
		"errors":     obj{"type": "object", "additionalProperties": str()},
		"request_id": str(),
	}},
	"PublishRequest": obj{"type": "object", "required": []string{"status"}, "properties": obj{
		"status": obj{"type": "integer", "enum": []int{0, 1}},
	}},
	"DepartmentInput": obj{"type": "object", "properties": obj{"name": str(), "description": str()}},
	"ProjectInput": obj{"type": "object", "properties": obj{
		"name": str(), "description": str(), "department_id": str("uuid"),
	}},
	"TaskInput": obj{"type": "object", "properties": obj{
		"project_id": str("uuid"), "name": str(), "description": str(),
		"status": obj{"type": "string", "enum": []string{"todo", "in_progress", "done"}},
	}},
	"TimeEntryInput": obj{"type": "object", "properties": obj{
		"task_id": str("uuid"), "work_date": str("date"), "description": str(),
		"duration_minutes": obj{"type": "integer", "minimum": 1, "maximum": 1440},
	}},
	"AttachmentPatch": obj{"type": "object", "properties": obj{
		"filename": str(),
		"related_object": obj{"type": "object", "properties": obj{
			"kind": obj{"type": "string", "enum": []string{"project", "task"}},
			"id":   str("uuid"),
		}},
	}},
}

func docTemplate() string {
	doc := obj{
		"swagger":  "2.0",
		"schemes":  "{{ marshal .Schemes }}",
		"host":     "{{.Host}}",
		"basePath": "{{.BasePath}}",
		"info": obj{
			"title":       "{{.Title}}",
			"description": "{{escape .Description}}",
			"version":     "{{.Version}}",
			"contact":     obj{},
		},
		"securityDefinitions": obj{
			"BearerAuth": obj{"type": "apiKey", "name": "Authorization", "in": "header"},
		},
		"paths":       paths(),
		"definitions": definitions,
	}
	b, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		panic(err)
	}
	// schemes is a template action, not a JSON string
	return strings.Replace(string(b), `"{{ marshal .Schemes }}"`, `{{ marshal .Schemes }}`, 1)
}

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Project Management API",
	Description:      "Departments, projects, tasks, time entries and attachments with soft delete and publishing.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate(),
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
