package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"u-tutor-be/pkg/chat"
	"u-tutor-be/pkg/tts"
)

// ErrorHandlerMiddleware converts service errors returned by controllers
// into JSON responses.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return ErrorHandler(ctx, err)
	}
}

// ErrorHandler maps domain errors onto HTTP responses.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	var (
		validationErr  *chat.ValidationError
		persistenceErr *chat.PersistenceError
		completionErr  *chat.CompletionError
		synthesisErr   *tts.SynthesisError
		fiberErr       *fiber.Error
	)

	switch {
	case errors.As(err, &fiberErr):
		return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
	case errors.As(err, &validationErr):
		return ctx.Status(fiber.StatusBadRequest).
			JSON(ErrorResponse(fiber.StatusBadRequest, validationErr.Error()))
	case errors.Is(err, chat.ErrGenerationInProgress):
		return ctx.Status(fiber.StatusConflict).
			JSON(ErrorResponse(fiber.StatusConflict, err.Error()))
	case errors.As(err, &completionErr):
		body := ErrorResponse(fiber.StatusBadGateway, completionErr.UserMessage())
		body.Kind = string(completionErr.Kind)
		return ctx.Status(fiber.StatusBadGateway).JSON(body)
	case errors.As(err, &synthesisErr):
		return ctx.Status(fiber.StatusServiceUnavailable).
			JSON(ErrorResponse(fiber.StatusServiceUnavailable, "Speech synthesis is currently unavailable"))
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ctx.Status(fiber.StatusNotFound).
			JSON(ErrorResponse(fiber.StatusNotFound, "Resource not found"))
	case errors.As(err, &persistenceErr):
		return ctx.Status(fiber.StatusInternalServerError).
			JSON(ErrorResponse(fiber.StatusInternalServerError, "Storage operation failed"))
	default:
		return ctx.Status(fiber.StatusInternalServerError).
			JSON(ErrorResponse(fiber.StatusInternalServerError, "Internal server error"))
	}
}
