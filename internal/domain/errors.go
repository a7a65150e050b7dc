package domain

import (
	"errors"
	"net/http"
)

// Error codes for business logic errors.
const (
	CodeNotFound = iota + 1
	CodeDuplicateKey
	CodeValidation
	CodeInternal
	CodeUnauthorized
	CodeBatchInsert
	CodeInvalidFilter
	CodeUnknownField
	CodeUnknownOperator
)

// AppError represents a business logic error with a code, message, and optional wrapped error.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the wrapped error for use with errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined business errors.
//
// To check whether an error matches one of these categories, use the
// corresponding helper function (IsNotFound, IsDuplicateKey, etc.) instead of
// errors.Is. The helpers use errors.As with error-code comparison, so they
// correctly match any *AppError that carries the same code — including
// freshly constructed instances from NewAppError and wrapped errors —
// whereas errors.Is only matches by pointer identity with the specific
// sentinel below.
var (
	ErrNotFound     = &AppError{Code: CodeNotFound, Message: "not found"}
	ErrDuplicateKey = &AppError{Code: CodeDuplicateKey, Message: "duplicate key"}
	ErrValidation   = &AppError{Code: CodeValidation, Message: "validation error"}
	ErrInternal     = &AppError{Code: CodeInternal, Message: "internal error"}
	ErrUnauthorized = &AppError{Code: CodeUnauthorized, Message: "unauthorized"}
)

// NewAppError creates a new AppError with the given code, message, and wrapped error.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsNotFound reports whether err is or wraps an AppError with CodeNotFound.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsDuplicateKey reports whether err is or wraps an AppError with CodeDuplicateKey.
func IsDuplicateKey(err error) bool {
	return hasCode(err, CodeDuplicateKey)
}

// IsValidation reports whether err is or wraps an AppError with CodeValidation.
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation)
}

// IsInternal reports whether err is or wraps an AppError with CodeInternal.
func IsInternal(err error) bool {
	return hasCode(err, CodeInternal)
}

// IsUnauthorized reports whether err is or wraps an AppError with CodeUnauthorized.
func IsUnauthorized(err error) bool {
	return hasCode(err, CodeUnauthorized)
}

// IsBatchInsert reports whether err is or wraps an AppError with CodeBatchInsert.
func IsBatchInsert(err error) bool {
	return hasCode(err, CodeBatchInsert)
}

// IsInvalidFilter reports whether err is or wraps an AppError with CodeInvalidFilter.
func IsInvalidFilter(err error) bool {
	return hasCode(err, CodeInvalidFilter)
}

// IsUnknownField reports whether err is or wraps an AppError with CodeUnknownField.
func IsUnknownField(err error) bool {
	return hasCode(err, CodeUnknownField)
}

// IsUnknownOperator reports whether err is or wraps an AppError with CodeUnknownOperator.
func IsUnknownOperator(err error) bool {
	return hasCode(err, CodeUnknownOperator)
}

// hasCode checks whether err is or wraps an *AppError with the given code.
func hasCode(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// HTTPStatusCode maps an error to an HTTP status code.
// If the error is an *AppError, the code is mapped; otherwise http.StatusInternalServerError is returned.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if err != nil && errors.As(err, &appErr) {
		switch appErr.Code {
		case CodeNotFound:
			return http.StatusNotFound
		case CodeDuplicateKey:
			return http.StatusConflict
		case CodeValidation, CodeInvalidFilter, CodeUnknownField, CodeUnknownOperator:
			return http.StatusBadRequest
		case CodeUnauthorized:
			return http.StatusUnauthorized
		case CodeBatchInsert:
			return http.StatusUnprocessableEntity
		case CodeInternal:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
