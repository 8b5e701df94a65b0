package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"pmapi/internal/http/middleware"
	"pmapi/internal/model"
	"pmapi/internal/service"
)

// envelope is the body of every API response.
type envelope struct {
	Status    bool              `json:"status"`
	Message   string            `json:"message,omitempty"`
	Records   any               `json:"records,omitempty"`
	Count     *int              `json:"count,omitempty"`
	NumPages  *int              `json:"num_pages,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

var (
	errInvalidID   = errors.New("invalid id format")
	errInvalidBody = errors.New("invalid request body")
)

func respond(c *fiber.Ctx, status int, env envelope) error {
	env.RequestID = middleware.RequestIDFrom(c)
	return c.Status(status).JSON(env)
}

func fail(c *fiber.Ctx, status int, message string) error {
	return respond(c, status, envelope{Status: false, Message: message})
}

// writeError translates a service error into an envelope. Not-found is a
// soft failure reported with 200. Anything unexpected is logged and answered
// with a generic 400 so internals never leak.
func writeError(c *fiber.Ctx, log zerolog.Logger, kind model.Kind, err error) error {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		return respond(c, fiber.StatusBadRequest, envelope{Message: "validation failed", Errors: vErr.Fields})
	case errors.Is(err, service.ErrNotFound):
		return fail(c, fiber.StatusOK, kind.Label()+" not found")
	case errors.Is(err, service.ErrForbidden):
		return fail(c, fiber.StatusForbidden, "operation not permitted")
	case errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrIDRequired),
		errors.Is(err, service.ErrReaderNil),
		errors.Is(err, errInvalidID),
		errors.Is(err, errInvalidBody):
		return fail(c, fiber.StatusBadRequest, err.Error())
	default:
		log.Error().
			Str("request_id", middleware.RequestIDFrom(c)).
			Str("resource", string(kind)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Err(err).
			Msg("request failed")
		return fail(c, fiber.StatusBadRequest, "could not process "+kind.Label()+" request")
	}
}

// ErrorHandler returns the Fiber global error handler. Errors raised by
// routing and by the auth guards arrive here as *fiber.Error.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if !errors.As(err, &fe) {
			log.Error().
				Str("request_id", middleware.RequestIDFrom(c)).
				Str("path", c.Path()).
				Err(err).
				Msg("unhandled error")
			return fail(c, fiber.StatusInternalServerError, "internal server error")
		}

		switch {
		case fe.Code == fiber.StatusNotFound:
			return fail(c, fe.Code, "resource not found")
		case fe.Code == fiber.StatusMethodNotAllowed:
			return fail(c, fe.Code, "method not allowed")
		case fe.Code >= fiber.StatusInternalServerError:
			return fail(c, fe.Code, "internal server error")
		default:
			return fail(c, fe.Code, fe.Message)
		}
	}
}
