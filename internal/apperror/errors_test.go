package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestSafeMessage_HidesInternalErrors(t *testing.T) {
	raw := errors.New("Error 1146: Table 'tally.expenses' doesn't exist")
	if got := SafeMessage(raw); got != "an unexpected error occurred" {
		t.Errorf("expected generic message, got %q", got)
	}
	if got := SafeCode(raw); got != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", got)
	}
}

func TestSafeMessage_WrappedAppError(t *testing.T) {
	err := fmt.Errorf("loading tag: %w", NewNotFound("tag not found"))
	if got := SafeMessage(err); got != "tag not found" {
		t.Errorf("expected tag not found, got %q", got)
	}
	if !IsNotFound(err) {
		t.Error("expected IsNotFound to see through wrapping")
	}
}

func TestNewInternal_KeepsCauseForLogs(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewInternal(cause)
	if err.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", err.Code)
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the internal cause")
	}
	if err.Message == cause.Error() {
		t.Error("internal cause must not be used as the client message")
	}
}

func TestNewValidationFields(t *testing.T) {
	err := NewValidationFields(map[string]string{"amount": "must be greater than 0"})
	if err.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", err.Code)
	}
	if err.Fields["amount"] != "must be greater than 0" {
		t.Errorf("unexpected fields: %v", err.Fields)
	}
}

func TestOrInternal(t *testing.T) {
	conflict := NewConflict("tag exists")
	if got := OrInternal(fmt.Errorf("wrapped: %w", conflict), "creating tag"); got != conflict {
		t.Errorf("expected the AppError to pass through, got %v", got)
	}

	cause := errors.New("deadlock")
	got := OrInternal(cause, "creating tag")
	if SafeCode(got) != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", SafeCode(got))
	}
	if !errors.Is(got, cause) {
		t.Error("expected cause to be preserved")
	}
}
