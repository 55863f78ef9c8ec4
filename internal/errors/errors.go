// Package errors categorizes failures of contract reads and writes so the
// API layer can map them onto HTTP responses.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/docustore/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryTransport covers an unreachable node, REST endpoint or signer
	CategoryTransport ErrorCategory = "transport"
	// CategoryContractRejection covers execute calls the contract reverted
	CategoryContractRejection ErrorCategory = "contract_rejection"
	// CategoryDecode covers payloads that are not the JSON we expect
	CategoryDecode ErrorCategory = "decode"
	// CategoryValidation covers rejected user input
	CategoryValidation ErrorCategory = "validation"
	// CategoryNotConnected covers actions attempted without an active wallet session
	CategoryNotConnected ErrorCategory = "not_connected"
	// CategoryNotFound covers missing documents or sessions
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryBusy covers a second action while one is in flight on the same page
	CategoryBusy ErrorCategory = "busy"
	// CategoryRateLimit covers throttled callers
	CategoryRateLimit ErrorCategory = "rate_limit"
	// CategorySystem covers everything else
	CategorySystem ErrorCategory = "system"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// Is matches on code, so sentinel values like ErrNotConnected work with errors.Is
func (e *CategorizedError) Is(target error) bool {
	t, ok := target.(*CategorizedError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ToServiceError converts to the wire representation
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// Sentinels for page-level failures. Compare with errors.Is.
var (
	ErrNotConnected = &CategorizedError{
		Category:   CategoryNotConnected,
		StatusCode: http.StatusUnauthorized,
		Code:       "NOT_CONNECTED",
		Message:    "wallet not connected",
	}
	ErrBusy = &CategorizedError{
		Category:   CategoryBusy,
		StatusCode: http.StatusConflict,
		Code:       "BUSY",
		Message:    "another action is in progress",
	}
)

// NewValidationError creates a user input error
func NewValidationError(field, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_INPUT",
		Message:    fmt.Sprintf("invalid %s: %s", field, reason),
		Details: map[string]interface{}{
			"field":  field,
			"reason": reason,
		},
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string, id string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found: %s", resource, id),
		Details: map[string]interface{}{
			"resource": resource,
			"id":       id,
		},
	}
}

// NewTransportError wraps a failure to reach a chain endpoint
func NewTransportError(endpoint string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryTransport,
		StatusCode: http.StatusBadGateway,
		Code:       "TRANSPORT_ERROR",
		Message:    fmt.Sprintf("chain endpoint unreachable: %s", endpoint),
		Cause:      cause,
		Details: map[string]interface{}{
			"endpoint": endpoint,
		},
	}
}

// NewTimeoutError reports a call that did not finish in time, such as a
// transaction that never confirmed
func NewTimeoutError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryTransport,
		StatusCode: http.StatusGatewayTimeout,
		Code:       "TIMEOUT",
		Message:    fmt.Sprintf("timed out waiting for %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewContractRejectionError reports an execute call reverted by the contract
func NewContractRejectionError(reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryContractRejection,
		StatusCode: http.StatusUnprocessableEntity,
		Code:       "CONTRACT_REJECTED",
		Message:    reason,
	}
}

// NewDecodeError reports a payload that could not be decoded
func NewDecodeError(what string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryDecode,
		StatusCode: http.StatusBadGateway,
		Code:       "DECODE_ERROR",
		Message:    fmt.Sprintf("failed to decode %s", what),
		Cause:      cause,
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(limit float64) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryRateLimit,
		StatusCode: http.StatusTooManyRequests,
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "rate limit exceeded",
		Details: map[string]interface{}{
			"limit": limit,
		},
	}
}

// NewServiceUnavailableError reports a dependency that is switched off,
// for example an open circuit breaker
func NewServiceUnavailableError(service string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryTransport,
		StatusCode: http.StatusServiceUnavailable,
		Code:       "SERVICE_UNAVAILABLE",
		Message:    fmt.Sprintf("service unavailable: %s", service),
		Cause:      cause,
		Details: map[string]interface{}{
			"service": service,
		},
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Cause:      cause,
	}
}

// Categorize finds the first CategorizedError in err's chain, defaulting to
// an internal error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr
	}

	var svcErr *types.ServiceError
	if stderrors.As(err, &svcErr) {
		return &CategorizedError{
			Category:   CategorySystem,
			StatusCode: http.StatusInternalServerError,
			Code:       svcErr.Code,
			Message:    svcErr.Message,
			Details:    svcErr.Details,
		}
	}

	return NewInternalError("unexpected error", err)
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusOK
}

// IsCategory reports whether err categorizes as the given category
func IsCategory(err error, category ErrorCategory) bool {
	catErr := Categorize(err)
	return catErr != nil && catErr.Category == category
}

// IsUserError determines if an error is a user error (4xx)
func IsUserError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}
	return catErr.StatusCode >= 400 && catErr.StatusCode < 500
}
