package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates a malformed or invalid request,
	// including validation failures such as an empty ticket description.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"

	// ErrorTypeAuthentication indicates a missing, expired, or rejected token.
	ErrorTypeAuthentication ErrorType = "authentication"

	// ErrorTypeNotFound indicates an unknown conversation or ticket id.
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeNetwork indicates the upstream API could not be reached.
	ErrorTypeNetwork ErrorType = "network"

	// ErrorTypeServer indicates an unexpected upstream or internal failure.
	ErrorTypeServer ErrorType = "server"
)

// APIError is the canonical error carried between the upstream gateway,
// the conversation engine, and the HTTP boundary.
type APIError struct {
	// Type is the category of error
	Type ErrorType `json:"type"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// StatusCode is the suggested HTTP status code
	StatusCode int `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewAPIError creates an APIError with a default status code for the type.
func NewAPIError(errType ErrorType, message string) *APIError {
	return &APIError{
		Type:       errType,
		Message:    message,
		StatusCode: statusForType(errType),
	}
}

// ErrorFromStatus maps an upstream HTTP status onto the canonical taxonomy.
func ErrorFromStatus(statusCode int, message string) *APIError {
	var errType ErrorType
	switch {
	case statusCode == http.StatusUnauthorized:
		errType = ErrorTypeAuthentication
	case statusCode == http.StatusNotFound:
		errType = ErrorTypeNotFound
	case statusCode >= 400 && statusCode < 500:
		errType = ErrorTypeInvalidRequest
	default:
		errType = ErrorTypeServer
	}
	return &APIError{Type: errType, Message: message, StatusCode: statusCode}
}

func statusForType(errType ErrorType) int {
	switch errType {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsAuthentication reports whether err is an authentication failure. The HTTP
// boundary uses this to force a session teardown instead of an in-chat error.
func IsAuthentication(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == ErrorTypeAuthentication
}
