package email

import "fmt"

// ============================================================================
// EMAIL ERROR CODES
// ============================================================================
// These constants mirror domain error codes to avoid circular imports.

const (
	codeInternal = "internal"
	codeNotFound = "not_found"
	codeInvalid  = "invalid"
)

// EmailError represents an email-specific error with a code and message.
type EmailError struct {
	Code    string
	Message string
}

func (e *EmailError) Error() string {
	return e.Message
}

// ErrorCode returns the error code for HTTP status mapping.
func (e *EmailError) ErrorCode() string {
	return e.Code
}

func newEmailError(code, message string) *EmailError {
	return &EmailError{Code: code, Message: message}
}

var (
	// ErrInvalidFromAddress is returned when the from address is invalid.
	ErrInvalidFromAddress = newEmailError(codeInvalid, "Invalid from email address")

	// ErrInvalidToAddress is returned when the to address is invalid.
	ErrInvalidToAddress = newEmailError(codeInvalid, "Invalid to email address")

	// ErrNoRecipient is returned when a message has nobody to go to.
	ErrNoRecipient = newEmailError(codeInvalid, "Email has no recipient")
)

// ErrTemplateNotFound creates a template not found error.
func ErrTemplateNotFound(templateName string) error {
	return &EmailError{
		Code:    codeNotFound,
		Message: fmt.Sprintf("Email template %s not found", templateName),
	}
}

// ErrProvider wraps a delivery failure reported by the provider.
func ErrProvider(provider string, err error) error {
	return &EmailError{
		Code:    codeInternal,
		Message: fmt.Sprintf("%s delivery failed: %v", provider, err),
	}
}
