package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"gridgame/internal/apperr"
)

// newErrorHandler maps apperr.Kind to the HTTP status table in
// spec §7 and renders the uniform {message, code, details?} body,
// grounded on the teacher's customErrorHandler but dispatching on the
// engine's tagged error kind instead of *fiber.Error status codes.
func newErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if appErr, ok := apperr.As(err); ok {
			status := statusForKind(appErr.Kind)
			if appErr.Kind == apperr.KindInternal {
				logger.Error("internal error", zap.Error(err), zap.String("path", c.Path()))
			}
			return c.Status(status).JSON(errorResponse{
				Message: appErr.Message,
				Code:    appErr.Code,
			})
		}

		if fe, ok := err.(*fiber.Error); ok {
			return c.Status(fe.Code).JSON(errorResponse{Message: fe.Message})
		}

		logger.Error("unhandled error", zap.Error(err), zap.String("path", c.Path()))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{
			Message: "internal server error",
			Code:    apperr.CodeInternal,
		})
	}
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return fiber.StatusBadRequest
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
