package routes

import (
	"errors"

	apperrors "custody/internal/errors"
	"custody/internal/logger"
	"custody/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler answers errors no handler turned into a response: unknown
// routes, recovered panics and anything else that escaped.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			switch {
			case fe.Code == fiber.StatusNotFound:
				return utils.NotFound(c, fe.Message)
			case fe.Code == fiber.StatusBadRequest:
				return utils.BadRequest(c, fe.Message)
			case fe.Code < fiber.StatusInternalServerError:
				return utils.Respond(c, fe.Code, fiber.Map{"error": fe.Message})
			}
		}
		log.Error("unhandled request error", "method", c.Method(), "path", c.Path(), "error", err)
		return utils.InternalError(c, apperrors.ErrInternal.Message)
	}
}
