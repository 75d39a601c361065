package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies an application error for handler-boundary translation
type Kind string

const (
	KindValidation     Kind = "VALIDATION_ERROR"
	KindAuthentication Kind = "AUTHENTICATION_ERROR"
	KindAuthorization  Kind = "AUTHORIZATION_ERROR"
	KindNotFound       Kind = "NOT_FOUND"
	KindConflict       Kind = "CONFLICT"
	KindConfiguration  Kind = "CONFIGURATION_ERROR"
	KindUpstream       Kind = "UPSTREAM_ERROR"
	KindInternal       Kind = "INTERNAL_ERROR"
)

// Error is the structured application error carried from services to
// handlers. Services never return raw fiber or gorm errors across the
// operation boundary.
type Error struct {
	Kind    Kind
	Message string
	Field   string // offending field for validation errors, if known
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports bad or missing input; never retried automatically
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// ValidationField reports bad input on a specific field
func ValidationField(field, message string) *Error {
	return &Error{Kind: KindValidation, Message: message, Field: field}
}

// Authentication reports a missing/invalid token or webhook signature
func Authentication(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

// Authorization reports a valid identity with insufficient role or ownership
func Authorization(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

// NotFound reports an absent referenced entity
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Conflict reports genuine double-submission (duplicate active enrollment,
// already-processed payment where the operation is not idempotent)
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Configuration reports missing required external credentials; the operation
// aborts before any state mutation
func Configuration(message string) *Error {
	return &Error{Kind: KindConfiguration, Message: message}
}

// Upstream reports an external provider or relay failure/timeout; the local
// record is left in its pre-call state for a later retry
func Upstream(message string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}

// Internal wraps an unexpected error
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf extracts the Kind from any error chain, defaulting to internal
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// HTTPStatus maps a Kind to its HTTP status code
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return fiber.StatusBadRequest
	case KindAuthentication:
		return fiber.StatusUnauthorized
	case KindAuthorization:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	case KindConflict:
		return fiber.StatusConflict
	case KindUpstream:
		return fiber.StatusBadGateway
	case KindConfiguration, KindInternal:
		return fiber.StatusInternalServerError
	}
	return fiber.StatusInternalServerError
}
