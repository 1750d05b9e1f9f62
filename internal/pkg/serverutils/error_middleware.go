// FILE: internal/pkg/serverutils/error_middleware.go
package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"voicepilot-be/pkg/blobstore"
	"voicepilot-be/pkg/retrieval"
	"voicepilot-be/pkg/voice/session"
)

// ErrorHandlerMiddleware maps domain errors escaping controllers onto HTTP
// statuses so handlers can just `return err`.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var verr *ValidationError
		var ferr *fiber.Error

		switch {
		case errors.As(err, &verr):
			return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(fiber.StatusBadRequest, verr.Error()))
		case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, blobstore.ErrSnapshotNotFound):
			return ctx.Status(fiber.StatusNotFound).JSON(ErrorResponse(fiber.StatusNotFound, err.Error()))
		case errors.Is(err, session.ErrSessionAlreadyExists):
			return ctx.Status(fiber.StatusConflict).JSON(ErrorResponse(fiber.StatusConflict, err.Error()))
		case errors.Is(err, session.ErrSessionEnded):
			return ctx.Status(fiber.StatusGone).JSON(ErrorResponse(fiber.StatusGone, err.Error()))
		case errors.Is(err, retrieval.ErrDimensionMismatch):
			return ctx.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse(fiber.StatusUnprocessableEntity, err.Error()))
		case errors.As(err, &ferr):
			return ctx.Status(ferr.Code).JSON(ErrorResponse(ferr.Code, ferr.Message))
		default:
			return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, "Internal server error"))
		}
	}
}
