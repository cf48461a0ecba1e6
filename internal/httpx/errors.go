package httpx

import (
	"fmt"
	"net/http"
)

// Business error codes
const (
	CodeSuccess = 0

	// Authentication (1000-1099)
	CodeUnauthorized = 1001 // Token missing or bad credentials
	CodeInvalidToken = 1002
	CodeTokenExpired = 1003

	// Parameters (2000-2099)
	CodeParamInvalid = 2002 // Body or query does not parse
	CodeParamIllegal = 2003 // Parses but the value is not allowed

	// Site state (3000-3999)
	CodeNotFound      = 3001
	CodeAlreadyExists = 3002
	CodeStateConflict = 3003 // Site state does not allow the operation
	CodeLocked        = 3004 // Another operation holds the site

	// Lifecycle failures (5000-5999)
	CodeInternalError = 5001
	CodeExternalError = 5003 // Container runtime, database or CA step failed
	CodeInterrupted   = 5004 // Signal or fatal error; rollback has run
)

// AppError is an API error with HTTP status and business code
type AppError struct {
	HTTPStatus int
	Code       int
	Message    string      // Returned to the client
	Err        error       // Logged only
	Data       interface{} // Optional details
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("code=%d, message=%s, err=%v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("code=%d, message=%s", e.Code, e.Message)
}

// WithData attaches details to the error
func (e *AppError) WithData(data interface{}) *AppError {
	e.Data = data
	return e
}

// NewAppError creates a new AppError
func NewAppError(httpStatus, code int, message string, err error) *AppError {
	return &AppError{
		HTTPStatus: httpStatus,
		Code:       code,
		Message:    message,
		Err:        err,
	}
}

func orDefault(message, def string) string {
	if message == "" {
		return def
	}
	return message
}

func ErrUnauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, orDefault(message, "unauthorized"), nil)
}

func ErrInvalidToken(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeInvalidToken, orDefault(message, "invalid token"), nil)
}

func ErrTokenExpired(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeTokenExpired, orDefault(message, "token expired"), nil)
}

func ErrParamInvalid(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeParamInvalid, orDefault(message, "parameter format error"), nil)
}

func ErrParamIllegal(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeParamIllegal, orDefault(message, "parameter value illegal"), nil)
}

func ErrNotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, orDefault(message, "site not found"), nil)
}

func ErrAlreadyExists(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeAlreadyExists, orDefault(message, "site already exists"), nil)
}

func ErrStateConflict(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeStateConflict, orDefault(message, "site state does not allow operation"), nil)
}

func ErrLocked(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeLocked, orDefault(message, "site is locked by another operation"), nil)
}

// ErrInternalError hides err from the client
func ErrInternalError(message string, err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, orDefault(message, "internal error"), err)
}

// ErrExternalError reports a failed lifecycle step
func ErrExternalError(message string, err error) *AppError {
	return NewAppError(http.StatusBadGateway, CodeExternalError, orDefault(message, "lifecycle step failed"), err)
}

// ErrInterrupted reports an operation stopped by a signal or fatal error
func ErrInterrupted(message string, err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInterrupted, orDefault(message, "operation interrupted"), err)
}
