package llm

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// Error represents a provider-neutral LLM error.
// Constructed once per failure and never mutated afterwards.
type Error struct {
	Type        ErrorType
	Message     string
	StatusCode  int
	Retryable   bool
	RetryAfter  *time.Duration
	ProviderErr error // Original provider-specific error
}

// ErrorType represents the category of error. The set is closed; every
// transport, HTTP, or SDK failure maps onto exactly one of these.
type ErrorType string

const (
	ErrorTypeNetwork        ErrorType = "network_error"
	ErrorTypeTimeout        ErrorType = "timeout"
	ErrorTypeInvalidAPIKey  ErrorType = "invalid_api_key"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeQuotaExceeded  ErrorType = "quota_exceeded"
	ErrorTypeModelNotFound  ErrorType = "model_not_found"
	ErrorTypeContextLength  ErrorType = "context_length_exceeded"
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
	ErrorTypeProvider       ErrorType = "provider" // transient server-side failure
	ErrorTypeAborted        ErrorType = "aborted"
	ErrorTypeUnknown        ErrorType = "unknown"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ProviderErr != nil {
		return e.Message + ": " + e.ProviderErr.Error()
	}
	return e.Message
}

// Unwrap returns the underlying provider error.
func (e *Error) Unwrap() error {
	return e.ProviderErr
}

// Classify maps an arbitrary failure to a normalized *Error, in priority
// order: already-classified errors pass through unchanged; cancellation
// signals become aborted; timeout signals become timeout; socket-level
// connection failures become network errors; everything else is unknown.
// Classification is advisory only: this layer never retries.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	if errors.Is(err, context.Canceled) {
		return &Error{
			Type:        ErrorTypeAborted,
			Message:     "request aborted",
			ProviderErr: err,
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{
			Type:        ErrorTypeTimeout,
			Message:     "request timed out",
			Retryable:   true,
			ProviderErr: err,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{
			Type:        ErrorTypeTimeout,
			Message:     "network timeout",
			Retryable:   true,
			ProviderErr: err,
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &Error{
			Type:        ErrorTypeNetwork,
			Message:     "network request failed",
			Retryable:   true,
			ProviderErr: err,
		}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return &Error{
			Type:        ErrorTypeNetwork,
			Message:     "connection failed",
			Retryable:   true,
			ProviderErr: err,
		}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{
			Type:        ErrorTypeNetwork,
			Message:     "DNS resolution failed",
			Retryable:   true,
			ProviderErr: err,
		}
	}

	return &Error{
		Type:        ErrorTypeUnknown,
		Message:     err.Error(),
		ProviderErr: err,
	}
}

// FromStatus maps an HTTP status to a normalized *Error. The message is
// inspected for 400 responses to distinguish context-window overflows
// from other invalid requests.
func FromStatus(status int, message string, cause error) *Error {
	e := &Error{
		Message:     message,
		StatusCode:  status,
		ProviderErr: cause,
	}
	if e.Message == "" {
		e.Message = "request failed"
	}

	switch {
	case status == 401 || status == 403:
		e.Type = ErrorTypeInvalidAPIKey
	case status == 402:
		e.Type = ErrorTypeQuotaExceeded
	case status == 404:
		e.Type = ErrorTypeModelNotFound
	case status == 429:
		e.Type = ErrorTypeRateLimit
		e.Retryable = true
	case status == 400:
		lower := strings.ToLower(message)
		if strings.Contains(lower, "context") || strings.Contains(lower, "token") {
			e.Type = ErrorTypeContextLength
		} else {
			e.Type = ErrorTypeInvalidRequest
		}
	case status == 500 || status == 502 || status == 503:
		e.Type = ErrorTypeProvider
		e.Retryable = true
	default:
		e.Type = ErrorTypeUnknown
	}
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

// IsRateLimitError checks if an error is a rate limit error.
func IsRateLimitError(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == ErrorTypeRateLimit
	}
	return false
}

// IsAborted checks if an error represents cooperative cancellation.
func IsAborted(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == ErrorTypeAborted
	}
	return errors.Is(err, context.Canceled)
}

// ExtractRetryAfter extracts the retry-after duration from an error.
func ExtractRetryAfter(err error) *time.Duration {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.RetryAfter
	}
	return nil
}
