// Package errors provides the standardized error type surfaced by the search
// pipeline and mapped onto HTTP responses.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Adapter errors are recovered inside the orchestrator and never reach callers directly.
	ErrCodeAdapterFailed  ErrorCode = "ADAPTER_FAILED"
	ErrCodeAdapterTimeout ErrorCode = "ADAPTER_TIMEOUT"

	ErrCodeNoOffersFound      ErrorCode = "NO_OFFERS_FOUND"
	ErrCodeUnresolvedCategory ErrorCode = "UNRESOLVED_CATEGORY"
	ErrCodeConfiguration      ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"

	ErrCodeCacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"

	ErrCodeProfileNotFound       ErrorCode = "PROFILE_NOT_FOUND"
	ErrCodeDatabaseQueryFailed   ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeNotificationFailed    ErrorCode = "NOTIFICATION_PUBLISH_FAILED"
	ErrCodeArchiveFailed         ErrorCode = "ARCHIVE_INDEX_FAILED"
	ErrCodeDealSourceUnavailable ErrorCode = "DEAL_SOURCE_UNAVAILABLE"
)

// StandardError carries a machine readable code next to the human message.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
}

func (e *StandardError) Unwrap() error { return e.cause }

// Is matches any StandardError with the same code, so callers can compare
// against the exported sentinels with errors.Is.
func (e *StandardError) Is(target error) bool {
	var t *StandardError
	if !stderrors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata returns the error with one metadata key set.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Sentinels for errors.Is comparisons.
var (
	ErrNoOffersFound      = &StandardError{Code: ErrCodeNoOffersFound}
	ErrUnresolvedCategory = &StandardError{Code: ErrCodeUnresolvedCategory}
	ErrConfiguration      = &StandardError{Code: ErrCodeConfiguration}
	ErrInvalidRequest     = &StandardError{Code: ErrCodeInvalidRequest}
	ErrProfileNotFound    = &StandardError{Code: ErrCodeProfileNotFound}
	ErrAdapterFailed      = &StandardError{Code: ErrCodeAdapterFailed}
	ErrAdapterTimeout     = &StandardError{Code: ErrCodeAdapterTimeout}
	ErrCacheUnavailable   = &StandardError{Code: ErrCodeCacheUnavailable}
)

// ==========================
// 2. Constructors
// ==========================

func NewAdapterError(platform string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAdapterFailed,
		Message:   fmt.Sprintf("Adapter '%s' failed", platform),
		Details:   errText(err),
		Retryable: true,
		Metadata:  map[string]interface{}{"platform": platform},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewAdapterTimeoutError(platform string, timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeAdapterTimeout,
		Message:   fmt.Sprintf("Adapter '%s' timed out", platform),
		Details:   fmt.Sprintf("no response within %s", timeout),
		Retryable: true,
		Metadata:  map[string]interface{}{"platform": platform},
		Timestamp: time.Now().UTC(),
	}
}

// NewNoOffersFoundError reports that every adapter of a resolved category failed.
func NewNoOffersFoundError(category string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoOffersFound,
		Message:   "No offers found",
		Details:   fmt.Sprintf("no adapter for category '%s' returned offers", category),
		Retryable: true,
		Metadata:  map[string]interface{}{"category": category},
		Timestamp: time.Now().UTC(),
	}
}

func NewUnresolvedCategoryError(query string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnresolvedCategory,
		Message:   "Could not determine a search category",
		Details:   fmt.Sprintf("query %q matched no category and none was supplied", query),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewConfigurationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfiguration,
		Message:   "Invalid configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewRateLimitedError(perMinute int) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimited,
		Message:   "Too many searches",
		Details:   fmt.Sprintf("limit is %d searches per minute", perMinute),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError hides err from the caller; the cause stays in the chain for logs.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Internal error",
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Cache store unavailable",
		Details:   errText(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewProfileNotFoundError(userID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProfileNotFound,
		Message:   "Profile not found",
		Details:   fmt.Sprintf("no profile for user '%s'", userID),
		Retryable: false,
		Metadata:  map[string]interface{}{"userId": userID},
		Timestamp: time.Now().UTC(),
	}
}

func NewDatabaseQueryError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseQueryFailed,
		Message:   fmt.Sprintf("Database %s failed", operation),
		Details:   errText(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewDealSourceError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDealSourceUnavailable,
		Message:   "Deal source unavailable",
		Details:   errText(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewNotificationError(event string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationFailed,
		Message:   fmt.Sprintf("Publishing '%s' event failed", event),
		Details:   errText(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewArchiveError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeArchiveFailed,
		Message:   "Search archive indexing failed",
		Details:   errText(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 3. Utility Functions
// ==========================

// AsStandard extracts a StandardError from an error chain.
func AsStandard(err error) (*StandardError, bool) {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// CodeOf returns the code of a StandardError in the chain, or "" otherwise.
func CodeOf(err error) ErrorCode {
	if se, ok := AsStandard(err); ok {
		return se.Code
	}
	return ""
}

// HTTPStatus maps an error code onto the status returned by the API.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodeProfileNotFound:
		return http.StatusNotFound
	case ErrCodeUnresolvedCategory:
		return http.StatusUnprocessableEntity
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeNoOffersFound, ErrCodeDealSourceUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeAdapterTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeAdapterFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorCategory groups codes for metric labels.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "ADAPTER"):
		return "ADAPTER"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "PROFILE"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION") || strings.Contains(codeStr, "ARCHIVE"):
		return "SINK"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "UNRESOLVED") || strings.Contains(codeStr, "CONFIGURATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "OFFERS") || strings.Contains(codeStr, "DEAL"):
		return "SEARCH"
	default:
		return "OTHER"
	}
}
