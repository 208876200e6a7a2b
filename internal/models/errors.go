package models

import (
	"fmt"
	"net/http"
	"time"
)

// ErrorKind classifies an AppError for transport mapping
type ErrorKind string

const (
	ErrKindNotFound       ErrorKind = "not_found"
	ErrKindInternal       ErrorKind = "internal"
	ErrKindUpstream       ErrorKind = "upstream"
	ErrKindDatabase       ErrorKind = "database"
	ErrKindNotReady       ErrorKind = "not_ready"
	ErrKindValidation     ErrorKind = "validation"
	ErrKindRateLimit      ErrorKind = "rate_limit"
	ErrKindConfig         ErrorKind = "config"
	ErrKindDataProcessing ErrorKind = "data_processing"
	ErrKindUnauthorized   ErrorKind = "unauthorized"
	ErrKindForbidden      ErrorKind = "forbidden"
	ErrKindConflict       ErrorKind = "conflict"
)

// AppError is an error carrying the information needed to render an API error response
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status for the error kind
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case ErrKindNotFound:
		return http.StatusNotFound
	case ErrKindUpstream:
		return http.StatusBadGateway
	case ErrKindNotReady:
		return http.StatusServiceUnavailable
	case ErrKindValidation:
		return http.StatusBadRequest
	case ErrKindRateLimit:
		return http.StatusTooManyRequests
	case ErrKindUnauthorized:
		return http.StatusUnauthorized
	case ErrKindForbidden:
		return http.StatusForbidden
	case ErrKindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the stable machine-readable error code
func (e *AppError) Code() string {
	switch e.Kind {
	case ErrKindNotFound:
		return "NOT_FOUND"
	case ErrKindUpstream:
		return "HTTP_REQUEST_ERROR"
	case ErrKindDatabase:
		return "DATABASE_ERROR"
	case ErrKindNotReady:
		return "SERVICE_NOT_READY"
	case ErrKindValidation:
		return "VALIDATION_ERROR"
	case ErrKindRateLimit:
		return "RATE_LIMIT_EXCEEDED"
	case ErrKindConfig:
		return "CONFIGURATION_ERROR"
	case ErrKindDataProcessing:
		return "DATA_PROCESSING_ERROR"
	case ErrKindUnauthorized:
		return "UNAUTHORIZED"
	case ErrKindForbidden:
		return "FORBIDDEN"
	case ErrKindConflict:
		return "CONFLICT"
	default:
		return "INTERNAL_ERROR"
	}
}

// IsClientError reports whether the error is caused by the request or by expected absence
func (e *AppError) IsClientError() bool {
	return e.StatusCode() < http.StatusInternalServerError || e.Kind == ErrKindNotReady
}

// ErrorDetail is the body of an API error response
type ErrorDetail struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse wraps ErrorDetail under the "error" key
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// Response renders the error for an API client. Server-side causes are not exposed.
func (e *AppError) Response() ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:      e.Code(),
			Message:   e.Message,
			Status:    e.StatusCode(),
			Timestamp: time.Now().UTC(),
		},
	}
}

// NewNotFoundError creates a not-found error for a resource identifier
func NewNotFoundError(resource, identifier string) *AppError {
	return &AppError{
		Kind:    ErrKindNotFound,
		Message: fmt.Sprintf("%s not found with identifier: %s", resource, identifier),
	}
}

// NewNotReadyError creates a service-not-ready error
func NewNotReadyError(message string) *AppError {
	return &AppError{Kind: ErrKindNotReady, Message: message}
}

// NewRequestValidationError creates a validation error
func NewRequestValidationError(message string) *AppError {
	return &AppError{Kind: ErrKindValidation, Message: message}
}

// NewDatabaseError wraps a storage failure
func NewDatabaseError(operation string, err error) *AppError {
	return &AppError{Kind: ErrKindDatabase, Message: fmt.Sprintf("failed to %s", operation), Err: err}
}

// NewDataProcessingError wraps a failure while transforming feed data
func NewDataProcessingError(operation string, err error) *AppError {
	return &AppError{Kind: ErrKindDataProcessing, Message: fmt.Sprintf("failed to %s", operation), Err: err}
}

// NewUpstreamError wraps a failure talking to a remote feed host
func NewUpstreamError(operation string, err error) *AppError {
	return &AppError{Kind: ErrKindUpstream, Message: fmt.Sprintf("failed to %s", operation), Err: err}
}

// NewRateLimitError creates a rate-limit error
func NewRateLimitError(message string) *AppError {
	return &AppError{Kind: ErrKindRateLimit, Message: message}
}

// NewConfigError creates a configuration error
func NewConfigError(message string) *AppError {
	return &AppError{Kind: ErrKindConfig, Message: message}
}

// NewInternalError wraps an unexpected failure
func NewInternalError(message string, err error) *AppError {
	return &AppError{Kind: ErrKindInternal, Message: message, Err: err}
}

// NewUnauthorizedError creates an authentication error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Kind: ErrKindUnauthorized, Message: message}
}

// NewForbiddenError creates an authorization error
func NewForbiddenError(message string) *AppError {
	return &AppError{Kind: ErrKindForbidden, Message: message}
}

// NewConflictError creates a conflict error
func NewConflictError(message string) *AppError {
	return &AppError{Kind: ErrKindConflict, Message: message}
}
