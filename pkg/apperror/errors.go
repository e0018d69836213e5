package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// NWC error codes (NIP-47) plus the admin API's own code.
const (
	CodeOther               = "OTHER"
	CodeRestricted          = "RESTRICTED"
	CodeNotImplemented      = "NOT_IMPLEMENTED"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeInternal            = "INTERNAL"
	CodeRateLimited         = "RATE_LIMITED"
	CodeUnauthorized        = "UNAUTHORIZED"
)

// AppError is a structured error. Code doubles as the NWC error code; the
// HTTP status is used by the admin API.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// From extracts an AppError from err, falling back to a generic OTHER error.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Unknown(err)
}

// ---- NWC command errors ----

func Other(message string) *AppError {
	return New(CodeOther, message, http.StatusBadRequest)
}

func Restricted() *AppError {
	return New(CodeRestricted, "This public key is not allowed to do this operation.", http.StatusForbidden)
}

func NotImplemented(message string) *AppError {
	return New(CodeNotImplemented, message, http.StatusNotImplemented)
}

func InsufficientBalance(message string) *AppError {
	return New(CodeInsufficientBalance, message, http.StatusPaymentRequired)
}

func NotFound(message string) *AppError {
	return New(CodeInternal, message, http.StatusNotFound)
}

func RateLimited() *AppError {
	return New(CodeRateLimited, "rate limit exceeded", http.StatusTooManyRequests)
}

// Unknown hides an unexpected failure behind the generic reply.
func Unknown(err error) *AppError {
	return Wrap(CodeOther, "unknown error", http.StatusInternalServerError, err)
}

// Upstream reports a mint or relay failure to the caller without details.
func Upstream(err error) *AppError {
	return Wrap(CodeOther, "mint request failed", http.StatusBadGateway, err)
}

// ---- Admin API ----

func Unauthorized() *AppError {
	return New(CodeUnauthorized, "Invalid or expired token", http.StatusUnauthorized)
}

func InvalidCredentials() *AppError {
	return New(CodeUnauthorized, "Invalid credentials", http.StatusUnauthorized)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New(CodeOther, message, http.StatusBadRequest)
}

// InternalError wraps an internal error for the admin API.
func InternalError(err error) *AppError {
	return Wrap(CodeOther, "Internal server error", http.StatusInternalServerError, err)
}
