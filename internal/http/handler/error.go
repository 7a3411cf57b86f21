package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"dochub/internal/http/middleware"
)

// successPayload is the envelope for successful API responses.
type successPayload struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// errorPayload is the envelope for failed API responses.
type errorPayload struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Code      string `json:"code"`
	Message   string `json:"message,omitempty"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id"`
}

func writeSuccess(c *fiber.Ctx, status int, data any, message string) error {
	return c.Status(status).JSON(successPayload{
		Success:   true,
		Data:      data,
		Message:   message,
		RequestID: middleware.GetRequestID(c),
	})
}

// writeError writes the error envelope. errMsg is the short safe summary;
// message and details are optional context for the caller.
func writeError(c *fiber.Ctx, status int, code, errMsg, message string, details any) error {
	return c.Status(status).JSON(errorPayload{
		Success:   false,
		Error:     errMsg,
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: middleware.GetRequestID(c),
	})
}

// ErrorHandler renders router-level and unhandled errors in the error envelope.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request", "", nil)
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found", "", nil)
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed", "", nil)
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large", "", nil)
		case fiber.StatusTooManyRequests:
			return writeError(c, status, "RATE_LIMITED", "too many requests", fe.Message, nil)
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error", "", nil)
		}
	}
}
