package integration

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Integration Errors
// ---------------------------------------------------------------------------

var (
	// Provider errors
	ErrUnknownProvider         = errors.New("integration: unknown provider")
	ErrProviderNotConfigured   = errors.New("integration: provider not configured")
	ErrPlatformUnavailable     = errors.New("integration: provider temporarily unavailable")
	ErrPlatformRequestFailed   = errors.New("integration: provider request failed")
	ErrPlatformInvalidResponse = errors.New("integration: invalid provider response")
	ErrPlatformAuthFailed      = errors.New("integration: provider authentication failed")
	ErrPlatformTokenExpired    = errors.New("integration: provider token expired")
	ErrPlatformRateLimited     = errors.New("integration: provider rate limited")

	// Local guard errors
	ErrRateLimitExceeded     = errors.New("integration: local rate limit exceeded")
	ErrRefreshNotSupported   = errors.New("integration: token refresh not supported")
	ErrOperationNotSupported = errors.New("integration: operation not supported by provider")
	ErrValidation            = errors.New("integration: validation failed")
)

// ValidationError reports a missing or invalid field detected before any
// network call is made.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for the given field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("integration: validation failed: %s", e.Message)
	}
	return fmt.Sprintf("integration: validation failed on %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrValidation
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ProviderError is a business-logic refusal reported by the remote system
type ProviderError struct {
	Provider   ProviderCode
	StatusCode int
	Code       string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: rejected (%s): %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: rejected: %s", e.Provider, e.Message)
}

// Unwrap lets errors.Is match ErrPlatformRequestFailed
func (e *ProviderError) Unwrap() error {
	return ErrPlatformRequestFailed
}

// SchemaError reports a response whose shape matched no known variant
type SchemaError struct {
	Provider ProviderCode
	Detail   string
	Raw      []byte
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: unexpected response shape: %s", e.Provider, e.Detail)
}

// Unwrap lets errors.Is match ErrPlatformInvalidResponse
func (e *SchemaError) Unwrap() error {
	return ErrPlatformInvalidResponse
}
