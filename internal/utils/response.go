package utils

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// SuccessResponse sends a standard success response
func SuccessResponse(c *fiber.Ctx, data interface{}, status int) error {
	return c.Status(status).JSON(data)
}

// ErrorResponse sends a standard error response
func ErrorResponse(c *fiber.Ctx, message string, status int, errorKind string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"kind":      errorKind,
	})
}

// TransitionErrorResponse sends a refused workflow transition (409) carrying
// the approval status observed at failure time.
func TransitionErrorResponse(c *fiber.Ctx, message, currentStatus string) error {
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{
		"status":        fiber.StatusConflict,
		"message":       message,
		"ok":            false,
		"currentStatus": currentStatus,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"url":           c.OriginalURL(),
		"kind":          "invalid_state_transition",
	})
}

// NotFoundResponse sends a 404 not found response
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"status":    fiber.StatusNotFound,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"kind":      "not_found",
	})
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Status        int    `json:"status"`
	Message       string `json:"message"`
	Ok            bool   `json:"ok"`
	Timestamp     string `json:"timestamp"`
	URL           string `json:"url"`
	Kind          string `json:"kind,omitempty"`
	CurrentStatus string `json:"currentStatus,omitempty"`
}
