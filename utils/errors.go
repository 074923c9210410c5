package utils

import "fmt"

// ServiceError is a service-level error with a stable code and optional
// wrapped cause.
type ServiceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Cause   error  `json:"-"`
}

func (e ServiceError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError creates a new service error.
func NewServiceError(code, message string) error {
	return ServiceError{Code: code, Message: message}
}

// NewServiceErrorWithDetails creates a service error with additional details.
func NewServiceErrorWithDetails(code, message, details string) error {
	return ServiceError{Code: code, Message: message, Details: details}
}

// WrapError wraps another error under a service error code.
func WrapError(err error, code, message string) error {
	return ServiceError{Code: code, Message: message, Cause: err}
}

// IsServiceError checks if an error is a service error.
func IsServiceError(err error) bool {
	_, ok := err.(ServiceError)
	return ok
}

// GetServiceError extracts a ServiceError from an error.
func GetServiceError(err error) (ServiceError, bool) {
	if serviceErr, ok := err.(ServiceError); ok {
		return serviceErr, true
	}
	return ServiceError{}, false
}

// Error code constants
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeInternal      = "INTERNAL_ERROR"
	ErrCodeDatabase      = "DATABASE_ERROR"
	ErrCodeReporter      = "REPORTER_ERROR"
	ErrCodePosition      = "POSITION_UNAVAILABLE"
	ErrCodeQueueFull     = "QUEUE_FULL"
	ErrCodeNotRunning    = "NOT_RUNNING"
	ErrCodeBadWakeMsg    = "BAD_WAKE_MESSAGE"
	ErrCodeBadGeofence   = "BAD_GEOFENCE_DEFINITION"
	ErrCodeNoOwnerFix    = "LEASH_OWNER_POSITION_MISSING"
	ErrCodeUnknownDevice = "UNKNOWN_DEVICE"
)

// Common error constructors

func NewValidationError(message string) error {
	return ServiceError{Code: ErrCodeValidation, Message: message}
}

func NewNotFoundError(resource string) error {
	return ServiceError{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

func NewDatabaseError(operation string, cause error) error {
	return ServiceError{
		Code:    ErrCodeDatabase,
		Message: fmt.Sprintf("Database operation failed: %s", operation),
		Cause:   cause,
	}
}
