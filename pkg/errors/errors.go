package errors

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// ErrorCode represents a specific error type
type ErrorCode string

const (
	ErrorCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrorCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrorCodeAmbiguous  ErrorCode = "AMBIGUOUS_RESULT"

	ErrorCodeBackend ErrorCode = "BACKEND_ERROR"
	ErrorCodeTimeout ErrorCode = "TIMEOUT_ERROR"
)

// AppError is the error returned by the service layer. Message is what a
// form banner shows; Cause keeps the wrapped chain for logging.
type AppError struct {
	Code      ErrorCode         `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Cause     error             `json:"-"`
	Timestamp time.Time         `json:"timestamp"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error wrapping
func (e *AppError) Unwrap() error {
	return e.Cause
}

// GetHTTPStatus returns the status a page carrying this error is served with
func (e *AppError) GetHTTPStatus() int {
	switch e.Code {
	case ErrorCodeValidation:
		return http.StatusUnprocessableEntity
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeAmbiguous:
		return http.StatusConflict
	case ErrorCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrorCodeBackend:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewAppErrorWithCause creates a new application error with an underlying cause
func NewAppErrorWithCause(code ErrorCode, message string, cause error) *AppError {
	e := NewAppError(code, message)
	e.Cause = cause
	return e
}

// ValidationErrorWithFields creates a validation error whose message lists
// the field messages in field order.
func ValidationErrorWithFields(fields map[string]string) *AppError {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, len(keys))
	for i, k := range keys {
		msgs[i] = fields[k]
	}

	err := NewAppError(ErrorCodeValidation, strings.Join(msgs, "; "))
	err.Fields = fields
	return err
}

// NotFoundError creates a not found error
func NotFoundError(resource string) *AppError {
	return NewAppError(ErrorCodeNotFound, fmt.Sprintf("%s not found", resource))
}

// AmbiguousError is returned when a lookup expected one row and got several
func AmbiguousError(resource string) *AppError {
	return NewAppError(ErrorCodeAmbiguous, fmt.Sprintf("more than one %s matches", resource))
}

// BackendError wraps a failure of the table backend. message is the raw text
// the backend reported.
func BackendError(message string, cause error) *AppError {
	return NewAppErrorWithCause(ErrorCodeBackend, message, cause)
}

// TimeoutError creates a timeout error
func TimeoutError(operation string, cause error) *AppError {
	return NewAppErrorWithCause(ErrorCodeTimeout, fmt.Sprintf("timeout during %s", operation), cause)
}

// AsAppError finds an AppError in err's chain
func AsAppError(err error) (*AppError, bool) {
	for err != nil {
		if appErr, ok := err.(*AppError); ok {
			return appErr, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// IsCode reports whether err carries an AppError with the given code
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
