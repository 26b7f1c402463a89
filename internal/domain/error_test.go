package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "message only",
			err:      &Error{Code: EINVALID, Message: "invalid input"},
			expected: "invalid input",
		},
		{
			name:     "with operation",
			err:      &Error{Code: EINVALID, Op: "estimate.send", Message: "invalid input"},
			expected: "estimate.send: invalid input",
		},
		{
			name: "with wrapped error",
			err: &Error{
				Code:    EINTERNAL,
				Op:      "estimate.create",
				Message: "failed to save",
				Err:     errors.New("database connection failed"),
			},
			expected: "estimate.create: failed to save: database connection failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestError_IsMatchesSentinelWithOp(t *testing.T) {
	err := fmt.Errorf("convert: %w", WithOp(ErrInvalidState, "conversion.convert"))

	if !errors.Is(err, ErrInvalidState) {
		t.Error("errors.Is should match sentinel through WithOp")
	}
	if errors.Is(err, ErrPlanExists) {
		t.Error("errors.Is should not match a different sentinel")
	}
	if got := ErrorOp(err); got != "conversion.convert" {
		t.Errorf("ErrorOp() = %q, want %q", got, "conversion.convert")
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil error", nil, ""},
		{"domain error", &Error{Code: EINVALID, Message: "test"}, EINVALID},
		{"wrapped domain error", fmt.Errorf("wrapped: %w", &Error{Code: ENOTFOUND, Message: "test"}), ENOTFOUND},
		{"validation error", NewValidationError("estimate.send", "client_email", "required"), EINVALID},
		{"transition error", &TransitionError{From: EstimateDraft, To: EstimateInvoiced}, ECONFLICT},
		{"non-domain error", errors.New("some error"), EINTERNAL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.expected {
				t.Errorf("ErrorCode() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil error", nil, ""},
		{"domain error", &Error{Code: EINVALID, Message: "deposit percent out of range"}, "deposit percent out of range"},
		{"internal error hides details", &Error{Code: EINTERNAL, Message: "pgx: connection reset"}, "An internal error occurred. Please try again later."},
		{"transition error names both states", &TransitionError{From: EstimateDraft, To: EstimateInvoiced}, "invalid transition from draft to invoiced"},
		{"non-domain error", errors.New("boom"), "An internal error occurred. Please try again later."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorMessage(tt.err); got != tt.expected {
				t.Errorf("ErrorMessage() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestWrapError(t *testing.T) {
	t.Run("wraps non-nil error", func(t *testing.T) {
		underlying := errors.New("db error")
		err := WrapError(underlying, EINTERNAL, "estimate.save", "failed to save estimate")

		var domainErr *Error
		if !errors.As(err, &domainErr) {
			t.Fatal("WrapError should return *Error")
		}
		if domainErr.Code != EINTERNAL {
			t.Errorf("Code = %q, want %q", domainErr.Code, EINTERNAL)
		}
		if !errors.Is(err, underlying) {
			t.Error("should wrap underlying error")
		}
	})

	t.Run("returns nil for nil error", func(t *testing.T) {
		if err := WrapError(nil, EINTERNAL, "test", "test"); err != nil {
			t.Errorf("WrapError(nil) should return nil, got %v", err)
		}
	})
}

func TestValidationError(t *testing.T) {
	t.Run("single field", func(t *testing.T) {
		err := NewValidationError("estimate.send", "client_name", "is required")
		expected := "estimate.send: client_name: is required"
		if err.Error() != expected {
			t.Errorf("Error() = %q, want %q", err.Error(), expected)
		}
	})

	t.Run("multiple fields are listed in order", func(t *testing.T) {
		err := NewValidationError("estimate.send", "items", "at least one item is required")
		err = AddFieldError(err, "client_email", "is required")

		expected := "estimate.send: validation failed for client_email, items"
		if err.Error() != expected {
			t.Errorf("Error() = %q, want %q", err.Error(), expected)
		}
		if len(GetValidationFields(err)) != 2 {
			t.Errorf("expected 2 fields, got %d", len(GetValidationFields(err)))
		}
	})

	t.Run("InvalidAmount is a validation error", func(t *testing.T) {
		err := InvalidAmount("money.calculate", "tax_rate", "must not be negative")
		if !IsValidationError(err) {
			t.Error("InvalidAmount should be a ValidationError")
		}
		if GetValidationFields(err)["tax_rate"] == "" {
			t.Error("InvalidAmount should name the offending field")
		}
	})
}

func TestExternalServiceError(t *testing.T) {
	underlying := errors.New("smtp: 421 service not available")
	err := fmt.Errorf("dispatch: %w", &ExternalServiceError{Service: "mailer", Err: underlying})

	var ese *ExternalServiceError
	if !errors.As(err, &ese) {
		t.Fatal("errors.As should find ExternalServiceError")
	}
	if ese.Service != "mailer" {
		t.Errorf("Service = %q, want %q", ese.Service, "mailer")
	}
	if !errors.Is(err, underlying) {
		t.Error("ExternalServiceError should unwrap to the provider error")
	}
}

func TestConvenienceFunctions(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"NotFound", NotFound("estimate.get", "estimate", "abc-123"), ENOTFOUND},
		{"Unauthorized", Unauthorized("owner.require", "owner required"), EUNAUTHORIZED},
		{"Invalid", Invalid("milestone.plan", "at least one stage is required"), EINVALID},
		{"Conflict", Conflict("milestone.plan", "plan exists"), ECONFLICT},
		{"Internal", Internal(errors.New("x"), "estimate.save", "failed"), EINTERNAL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.code {
				t.Errorf("%s code = %q, want %q", tt.name, got, tt.code)
			}
		})
	}
}
