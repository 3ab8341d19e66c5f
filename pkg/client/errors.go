package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassNetwork represents transport failures.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassClient represents 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses and other non-2xx/3xx codes.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassDecode represents malformed JSON bodies.
	ErrorClassDecode ErrorClass = "decode"

	// ErrorClassUnknown is used for errors outside the taxonomy.
	ErrorClassUnknown ErrorClass = "unknown"
)

// TransportError is a network-level failure: no HTTP response was read.
type TransportError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error for %s: %v", e.Path, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPStatusError is a response whose status is outside [200, 400).
type HTTPStatusError struct {
	Path       string
	StatusCode int
	Status     string
}

// Error implements the error interface.
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("status code %d for %s: %s", e.StatusCode, e.Path, e.Status)
}

// Class returns the error class for the status code.
func (e *HTTPStatusError) Class() ErrorClass {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return ErrorClassClient
	}
	return ErrorClassServer
}

// DecodeError is a response body that is not valid JSON.
type DecodeError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response for %s: %v", e.Path, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// RetryExhaustedError is the terminal error of FetchWithRetry. It matches
// ErrRetryExhausted with errors.Is and unwraps to the last attempt's error.
type RetryExhaustedError struct {
	Path     string
	Attempts int
	Last     error
}

// Error implements the error interface.
func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("max retries reached for %s after %d attempts: %v", e.Path, e.Attempts, e.Last)
}

// Is reports whether target is ErrRetryExhausted.
func (e *RetryExhaustedError) Is(target error) bool {
	return target == ErrRetryExhausted
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RetryExhaustedError) Unwrap() error {
	return e.Last
}

// Classify categorizes an error for observability.
func Classify(err error) ErrorClass {
	var transportErr *TransportError
	var statusErr *HTTPStatusError
	var decodeErr *DecodeError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &statusErr):
		return statusErr.Class()
	case errors.As(err, &transportErr):
		return ErrorClassNetwork
	case errors.As(err, &decodeErr):
		return ErrorClassDecode
	default:
		return ErrorClassUnknown
	}
}
