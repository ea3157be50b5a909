package utils

import (
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase/core"
)

// --- HTTP Response Helpers ---

// ErrorResponse returns a JSON error response with the given status code and message
func ErrorResponse(re *core.RequestEvent, status int, message string) error {
	return re.JSON(status, map[string]string{"error": message})
}

// NotFoundResponse returns a 404 JSON error response
func NotFoundResponse(re *core.RequestEvent, message string) error {
	return ErrorResponse(re, http.StatusNotFound, message)
}

// BadRequestResponse returns a 400 JSON error response
func BadRequestResponse(re *core.RequestEvent, message string) error {
	return ErrorResponse(re, http.StatusBadRequest, message)
}

// ConflictResponse returns a 409 JSON error response
func ConflictResponse(re *core.RequestEvent, message string) error {
	return ErrorResponse(re, http.StatusConflict, message)
}

// InternalErrorResponse returns a 500 JSON error response
func InternalErrorResponse(re *core.RequestEvent, message string) error {
	return ErrorResponse(re, http.StatusInternalServerError, message)
}

// --- Normalization Helpers ---

// NormalizeEmail normalizes an email address (lowercase, trimmed)
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DigitsOnly strips everything but ASCII digits from a string. Phone numbers
// are stored in this canonical form.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
