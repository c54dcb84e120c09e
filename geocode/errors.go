// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Error represents a geocoding failure with its classification.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

// ErrorType classifies geocoding errors.
type ErrorType int

const (
	// ErrorTypeUnknown unclassified provider error.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeRateLimit too many requests.
	ErrorTypeRateLimit
	// ErrorTypeQuotaExceeded quota exhausted or access denied.
	ErrorTypeQuotaExceeded
	// ErrorTypeTimeout connection or request timeout.
	ErrorTypeTimeout
	// ErrorTypeNotFound the provider knows no such place.
	ErrorTypeNotFound
	// ErrorTypeInvalidRequest malformed request.
	ErrorTypeInvalidRequest
	// ErrorTypeNetworkError transport failure or unavailable service.
	ErrorTypeNetworkError
)

var errorTypeNames = map[ErrorType]string{
	ErrorTypeUnknown:        "unknown",
	ErrorTypeRateLimit:      "rate_limit",
	ErrorTypeQuotaExceeded:  "quota_exceeded",
	ErrorTypeTimeout:        "timeout",
	ErrorTypeNotFound:       "not_found",
	ErrorTypeInvalidRequest: "invalid_request",
	ErrorTypeNetworkError:   "network",
}

func (t ErrorType) String() string {
	if s, ok := errorTypeNames[t]; ok {
		return s
	}

	return fmt.Sprintf("ErrorType(%d)", int(t))
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrNoResults is wrapped by provider errors when a place is unknown.
var ErrNoResults = errors.New("no results")

func notFound(name string) *Error {
	return &Error{
		Type:    ErrorTypeNotFound,
		Message: fmt.Sprintf("location not found: %q", name),
		Err:     ErrNoResults,
	}
}

// ClassifyError turns a transport error into an *Error.
func ClassifyError(err error) *Error {
	var geoErr *Error
	if errors.As(err, &geoErr) {
		return geoErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Type: ErrorTypeTimeout, Message: "request timed out", Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Type: ErrorTypeTimeout, Message: "request timed out", Err: err}
	}

	return &Error{Type: ErrorTypeNetworkError, Message: "geocoding request failed", Err: err}
}

// IsRateLimitError reports whether err is due to rate limiting.
func IsRateLimitError(err error) bool {
	var geoErr *Error
	if errors.As(err, &geoErr) {
		return geoErr.Type == ErrorTypeRateLimit
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429")
}

// IsQuotaExceededError reports whether err is due to an exhausted quota.
func IsQuotaExceededError(err error) bool {
	var geoErr *Error
	if errors.As(err, &geoErr) {
		return geoErr.Type == ErrorTypeQuotaExceeded
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "over_query_limit") ||
		strings.Contains(errStr, "quota exceeded")
}

// IsTimeoutError reports whether err is a timeout.
func IsTimeoutError(err error) bool {
	var geoErr *Error
	if errors.As(err, &geoErr) {
		return geoErr.Type == ErrorTypeTimeout
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// IsNotFoundError reports whether the provider answered that the place does
// not exist.
func IsNotFoundError(err error) bool {
	var geoErr *Error
	if errors.As(err, &geoErr) {
		return geoErr.Type == ErrorTypeNotFound
	}

	return errors.Is(err, ErrNoResults)
}

// IsTransient reports whether retrying the same request may succeed:
// timeouts, rate limiting, network failures and unclassified service errors.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	switch ClassifyError(err).Type {
	case ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeNetworkError, ErrorTypeUnknown:
		return true
	default:
		return false
	}
}

// ClassifyHTTPError classifies an HTTP status code into a geocoding error.
func ClassifyHTTPError(statusCode int) *Error {
	switch statusCode {
	case http.StatusTooManyRequests: // 429
		return &Error{
			Type:    ErrorTypeRateLimit,
			Message: "rate limit reached",
		}
	case http.StatusForbidden: // 403
		return &Error{
			Type:    ErrorTypeQuotaExceeded,
			Message: "quota exceeded or access denied",
		}
	case http.StatusBadRequest: // 400
		return &Error{
			Type:    ErrorTypeInvalidRequest,
			Message: "invalid request",
		}
	case http.StatusNotFound: // 404
		return &Error{
			Type:    ErrorTypeNotFound,
			Message: "location not found",
			Err:     ErrNoResults,
		}
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return &Error{
			Type:    ErrorTypeNetworkError,
			Message: fmt.Sprintf("service unavailable (status %d)", statusCode),
		}
	default:
		return &Error{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("HTTP error %d", statusCode),
		}
	}
}
