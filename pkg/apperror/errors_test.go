package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New(CodeOther, "bad amount", http.StatusBadRequest),
			expected: "[OTHER] bad amount",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap(CodeOther, "mint request failed", http.StatusBadGateway, fmt.Errorf("connection refused")),
			expected: "[OTHER] mint request failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Upstream(inner)

	assert.True(t, errors.Is(appErr, inner))
	assert.Nil(t, Other("x").Unwrap())
}

func TestFrom(t *testing.T) {
	restricted := Restricted()
	wrapped := fmt.Errorf("dispatch: %w", restricted)
	assert.Same(t, restricted, From(wrapped))

	plain := From(errors.New("boom"))
	assert.Equal(t, CodeOther, plain.Code)
	assert.Equal(t, "unknown error", plain.Message)
}

func TestNWCErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"Other", Other("x"), "OTHER", 400},
		{"Restricted", Restricted(), "RESTRICTED", 403},
		{"NotImplemented", NotImplemented("x"), "NOT_IMPLEMENTED", 501},
		{"InsufficientBalance", InsufficientBalance("x"), "INSUFFICIENT_BALANCE", 402},
		{"NotFound", NotFound("invoice not found"), "INTERNAL", 404},
		{"RateLimited", RateLimited(), "RATE_LIMITED", 429},
		{"Unknown", Unknown(nil), "OTHER", 500},
		{"Upstream", Upstream(nil), "OTHER", 502},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestAdminErrors(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, Unauthorized().HTTPStatus)
	assert.Equal(t, http.StatusUnauthorized, InvalidCredentials().HTTPStatus)
	assert.Equal(t, http.StatusBadRequest, Validation("bad").HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, InternalError(errors.New("db")).HTTPStatus)
	assert.Equal(t, "This public key is not allowed to do this operation.", Restricted().Message)
}
