package integration

import (
	"context"
	"errors"
	"net"
)

// ResultKind classifies the outcome of a driver operation
type ResultKind string

const (
	ResultSuccess               ResultKind = "success"
	ResultValidationError       ResultKind = "validation_error"
	ResultAuthError             ResultKind = "auth_error"
	ResultRateLimitExceeded     ResultKind = "rate_limit_exceeded"
	ResultProviderRejected      ResultKind = "provider_rejected"
	ResultTransientNetworkError ResultKind = "transient_network_error"
	ResultSchemaMismatch        ResultKind = "schema_mismatch"
)

// String returns the string representation of ResultKind
func (k ResultKind) String() string {
	return string(k)
}

// Pagination describes a page of a paginated listing
type Pagination struct {
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}

// OperationResult is the uniform outcome of every driver operation.
// Failure results never carry Data.
type OperationResult struct {
	Success    bool        `json:"success"`
	Kind       ResultKind  `json:"kind"`
	Message    string      `json:"message"`
	Data       any         `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	ErrorCode  string      `json:"error_code,omitempty"`
	Field      string      `json:"field,omitempty"`
}

// Succeeded creates a successful result
func Succeeded(message string, data any) OperationResult {
	return OperationResult{Success: true, Kind: ResultSuccess, Message: message, Data: data}
}

// SucceededPage creates a successful result carrying pagination metadata
func SucceededPage(message string, data any, page Pagination) OperationResult {
	r := Succeeded(message, data)
	r.Pagination = &page
	return r
}

// Failed creates a failed result of the given kind
func Failed(kind ResultKind, message string) OperationResult {
	return OperationResult{Success: false, Kind: kind, Message: message}
}

// IsRetryable reports whether the caller may retry the same call later
func (r OperationResult) IsRetryable() bool {
	return r.Kind == ResultTransientNetworkError || r.Kind == ResultRateLimitExceeded
}

// Operator-facing messages
const (
	msgAuthFailed     = "Authentication failed - check credentials"
	msgRateLimited    = "Rate limit exceeded - try again later"
	msgRemoteLimited  = "Provider rate limit reached - try again later"
	msgUnavailable    = "Provider is temporarily unavailable"
	msgInvalidPayload = "Provider returned an unexpected response"
	msgNotSupported   = "Operation is not supported by this provider"
)

// ResultFromError converts any error produced inside the integration layer
// into a failed OperationResult. A nil error yields a bare success.
func ResultFromError(err error) OperationResult {
	if err == nil {
		return Succeeded("", nil)
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		r := Failed(ResultValidationError, verr.Error())
		r.Field = verr.Field
		return r
	}

	var perr *ProviderError
	if errors.As(err, &perr) {
		r := Failed(ResultProviderRejected, perr.Message)
		if r.Message == "" {
			r.Message = perr.Error()
		}
		r.ErrorCode = perr.Code
		return r
	}

	var serr *SchemaError
	if errors.As(err, &serr) {
		r := Failed(ResultSchemaMismatch, msgInvalidPayload+": "+serr.Detail)
		r.ErrorCode = "schema_mismatch"
		return r
	}

	switch {
	case errors.Is(err, ErrPlatformAuthFailed), errors.Is(err, ErrPlatformTokenExpired):
		return withCode(Failed(ResultAuthError, msgAuthFailed), "auth_failed")
	case errors.Is(err, ErrRateLimitExceeded):
		return withCode(Failed(ResultRateLimitExceeded, msgRateLimited), "rate_limited")
	case errors.Is(err, ErrPlatformRateLimited):
		return withCode(Failed(ResultRateLimitExceeded, msgRemoteLimited), "remote_rate_limited")
	case errors.Is(err, ErrOperationNotSupported):
		r := Failed(ResultValidationError, msgNotSupported)
		r.Field = "operation"
		return r
	case errors.Is(err, ErrValidation), errors.Is(err, ErrUnknownProvider), errors.Is(err, ErrProviderNotConfigured):
		return Failed(ResultValidationError, err.Error())
	case errors.Is(err, ErrPlatformInvalidResponse):
		return withCode(Failed(ResultSchemaMismatch, msgInvalidPayload), "schema_mismatch")
	case errors.Is(err, ErrPlatformRequestFailed):
		return Failed(ResultProviderRejected, err.Error())
	case errors.Is(err, ErrPlatformUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return withCode(Failed(ResultTransientNetworkError, msgUnavailable+": "+err.Error()), "transient")
	}

	var nerr net.Error
	if errors.As(err, &nerr) {
		return withCode(Failed(ResultTransientNetworkError, msgUnavailable+": "+err.Error()), "transient")
	}

	return withCode(Failed(ResultTransientNetworkError, err.Error()), "unknown")
}

func withCode(r OperationResult, code string) OperationResult {
	r.ErrorCode = code
	return r
}
