package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestKindOf(t *testing.T) {
	if got := KindOf(NotFound("course not found")); got != KindNotFound {
		t.Errorf("expected NOT_FOUND, got %s", got)
	}

	// Kind survives wrapping
	wrapped := fmt.Errorf("while enrolling: %w", Conflict("already enrolled"))
	if got := KindOf(wrapped); got != KindConflict {
		t.Errorf("expected CONFLICT through wrap, got %s", got)
	}

	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Errorf("expected plain errors to default to INTERNAL_ERROR, got %s", got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Upstream("gateway unreachable", cause)

	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable via errors.Is")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:     fiber.StatusBadRequest,
		KindAuthentication: fiber.StatusUnauthorized,
		KindAuthorization:  fiber.StatusForbidden,
		KindNotFound:       fiber.StatusNotFound,
		KindConflict:       fiber.StatusConflict,
		KindUpstream:       fiber.StatusBadGateway,
		KindConfiguration:  fiber.StatusInternalServerError,
		KindInternal:       fiber.StatusInternalServerError,
	}

	for kind, want := range cases {
		if got := kind.HTTPStatus(); got != want {
			t.Errorf("%s: expected %d, got %d", kind, want, got)
		}
	}

	// Configuration detail must never leak to callers; only the mapping is
	// checked here, message scrubbing lives in the response package
	if Kind("SOMETHING_ELSE").HTTPStatus() != fiber.StatusInternalServerError {
		t.Error("unknown kinds must map to 500")
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("amount", "amount does not match course price")
	if err.Field != "amount" {
		t.Errorf("expected field amount, got %s", err.Field)
	}
	if err.Kind != KindValidation {
		t.Errorf("expected VALIDATION_ERROR, got %s", err.Kind)
	}
}
