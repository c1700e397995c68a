package services

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Typed errors returned by the workflow layer. Controllers translate these to
// transport-level responses with errors.Is; nothing here crosses the HTTP
// boundary as a panic or ambient exception.
var (
	ErrNotFound          = errors.New("application not found")
	ErrInvalidStatus     = errors.New("requested status is not a known application status")
	ErrInvalidTransition = errors.New("transition not allowed from the current status")
	ErrForbidden         = errors.New("role not permitted to perform this transition")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("write conflict, temporarily unavailable")
)

// HTTPStatus maps a workflow error to the response code controllers emit.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidTransition):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, ErrConflict):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
