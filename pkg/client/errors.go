package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry backoff.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport failures with no response at all.
	ErrorClassNetwork ErrorClass = "network"
)

// APIError is a structured error for a response the API refused or
// failed to serve. It carries the status code and a human-readable
// message for presentation.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("api %s error (status %d): %s: %v",
			e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("api %s error (status %d): %s",
		e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// classify categorizes a completed attempt. A nil response means the
// request produced no response at all (network failure or timeout).
func classify(statusCode int, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}
	switch {
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// retryEligible reports whether a failed attempt may be reissued:
// transport failures and 5xx responses qualify, 4xx never does.
func retryEligible(class ErrorClass) bool {
	switch class {
	case ErrorClassNetwork, ErrorClassServer:
		return true
	default:
		return false
	}
}

// statusMessage maps a status code to a human-readable message for
// presentation by the UI layer.
func statusMessage(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "invalid request"
	case http.StatusUnauthorized:
		return "authentication failed"
	case http.StatusForbidden:
		return "access forbidden"
	case http.StatusNotFound:
		return "not found"
	case http.StatusTooManyRequests:
		return "rate limited"
	default:
		if statusCode >= 500 {
			return "server error"
		}
		return "request failed"
	}
}
