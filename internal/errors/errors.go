package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	InvalidInput      ErrorCode = "invalid_input"
	AccountExists     ErrorCode = "account_exists"
	AccountNotFound   ErrorCode = "account_not_found"
	InsufficientFunds ErrorCode = "insufficient_funds"
	RateLimited       ErrorCode = "rate_limited"
	InternalError     ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an AppError with the same code. Matching is by
// class, not identity: errors.Is(err, ErrAccountNotFound) matches copies
// carrying details, and ErrInvalidAmount matches ErrInvalidUsername because
// both are InvalidInput. Compare Message to tell sentinels of one class apart.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !stderrors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case InvalidInput, InsufficientFunds:
		return http.StatusBadRequest
	case AccountExists:
		return http.StatusConflict
	case AccountNotFound:
		return http.StatusNotFound
	case RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetails returns a copy of e carrying details. Predefined errors are shared
// between goroutines and must never be mutated.
func (e *AppError) WithDetails(details string) *AppError {
	c := *e
	c.Details = details
	return &c
}

// Storage wraps a driver or SQL failure as an internal error.
func Storage(message string, err error) *AppError {
	return NewAppError(InternalError, message).WithDetails(err.Error())
}

// As extracts an *AppError from err. Errors that are not AppErrors come back as
// a generic internal error so callers always have a status to report.
func As(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return NewAppError(InternalError, "an unexpected error occurred")
}

// Predefined errors for common cases
var (
	ErrInvalidUsername   = NewAppError(InvalidInput, "username is required")
	ErrInvalidAmount     = NewAppError(InvalidInput, "amount must be a positive number")
	ErrAccountExists     = NewAppError(AccountExists, "user already exists")
	ErrAccountNotFound   = NewAppError(AccountNotFound, "user not found")
	ErrInsufficientFunds = NewAppError(InsufficientFunds, "insufficient funds")
	ErrRateLimited       = NewAppError(RateLimited, "too many requests, please try again later")
)
