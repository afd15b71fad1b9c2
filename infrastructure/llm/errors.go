package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ahrav/go-jury/internal/ports"
)

var (
	// ErrEmptyAPIKey indicates that a provider was configured without a key.
	ErrEmptyAPIKey = errors.New("API key cannot be empty")
	// ErrEmptyResponse indicates that the provider returned no text.
	ErrEmptyResponse = errors.New("empty response from API")
	// ErrUnknownProvider indicates a provider type with no registered factory.
	ErrUnknownProvider = errors.New("unknown provider")
)

// ErrorType classifies provider failures.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeAuthentication
	ErrorTypeRateLimit
	ErrorTypeBadRequest
	ErrorTypeNotFound
	ErrorTypeServerError
	ErrorTypeContentPolicy
	ErrorTypeNetwork
	ErrorTypeTimeout
)

var errorTypeNames = map[ErrorType]string{
	ErrorTypeAuthentication: "authentication",
	ErrorTypeRateLimit:      "rate_limit",
	ErrorTypeBadRequest:     "bad_request",
	ErrorTypeNotFound:       "not_found",
	ErrorTypeServerError:    "server_error",
	ErrorTypeContentPolicy:  "content_policy",
	ErrorTypeNetwork:        "network",
	ErrorTypeTimeout:        "timeout",
}

// String returns the snake_case name of the type, or "unknown".
func (t ErrorType) String() string {
	if s, ok := errorTypeNames[t]; ok {
		return s
	}
	return "unknown"
}

// ProviderError normalizes a provider SDK error.
type ProviderError struct {
	Type       ErrorType
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	msg := e.Provider + " error"
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Type != ErrorTypeUnknown {
		msg += " [" + e.Type.String() + "]"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the SDK error.
func (e *ProviderError) Unwrap() error { return e.Err }

// Is maps the error type onto the ports sentinels so callers outside this
// package can classify failures without importing it.
func (e *ProviderError) Is(target error) bool {
	switch e.Type {
	case ErrorTypeRateLimit:
		return target == ports.ErrRateLimited
	case ErrorTypeServerError, ErrorTypeNetwork:
		return target == ports.ErrServiceUnavailable
	case ErrorTypeTimeout:
		return target == ports.ErrTimeout
	case ErrorTypeAuthentication:
		return target == ports.ErrAuthenticationFailed
	case ErrorTypeBadRequest, ErrorTypeNotFound, ErrorTypeContentPolicy:
		return target == ports.ErrInvalidResponse
	}
	return false
}

// IsRetryable reports whether a request failing with e may succeed later.
func (e *ProviderError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeNetwork, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

// NewProviderError creates a ProviderError.
func NewProviderError(provider string, errType ErrorType, statusCode int, message string, err error) *ProviderError {
	return &ProviderError{
		Type:       errType,
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// ErrorClassifier turns SDK failures into ProviderErrors for one provider.
type ErrorClassifier struct {
	Provider string
}

// ClassifyHTTPError classifies err by the HTTP status the provider returned.
func (ec ErrorClassifier) ClassifyHTTPError(statusCode int, message string, err error) *ProviderError {
	var errType ErrorType
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		errType = ErrorTypeAuthentication
		message = ec.Provider + " authentication failed"
	case statusCode == http.StatusTooManyRequests:
		errType = ErrorTypeRateLimit
		message = ec.Provider + " rate limit exceeded"
	case statusCode == http.StatusNotFound:
		errType = ErrorTypeNotFound
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		errType = ErrorTypeTimeout
	case statusCode >= 500:
		errType = ErrorTypeServerError
		if message == "" {
			message = "server error"
		}
	case statusCode >= 400:
		errType = ErrorTypeBadRequest
	}
	return NewProviderError(ec.Provider, errType, statusCode, message, err)
}

// ClassifyContextError classifies context cancellation and deadlines.
func (ec ErrorClassifier) ClassifyContextError(err error) *ProviderError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewProviderError(ec.Provider, ErrorTypeTimeout, 0, "context deadline exceeded", err)
	case errors.Is(err, context.Canceled):
		return NewProviderError(ec.Provider, ErrorTypeUnknown, 0, "request canceled", err)
	default:
		return NewProviderError(ec.Provider, ErrorTypeUnknown, 0, "", err)
	}
}

// classify handles the context case first and otherwise defers to
// classifyAPI, which inspects the SDK-specific error type.
func (ec ErrorClassifier) classify(err error, classifyAPI func(error) (*ProviderError, bool)) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ec.ClassifyContextError(err)
	}
	if pe, ok := classifyAPI(err); ok {
		return pe
	}
	return NewProviderError(ec.Provider, ErrorTypeNetwork, 0, "request failed", err)
}
