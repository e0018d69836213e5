package service

import (
	"context"
	"fmt"
	"time"

	"ecash-nwc-gateway/internal/core/ports"
	"ecash-nwc-gateway/pkg/apperror"
)

// OperatorSubject is the JWT subject issued to the wallet operator.
const OperatorSubject = "operator"

// AuthServiceImpl implements ports.AuthService for the single operator
// account configured by admin.password_hash.
type AuthServiceImpl struct {
	passwordHash string
	hashSvc      ports.HashService
	tokenSvc     ports.TokenService
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(passwordHash string, hashSvc ports.HashService, tokenSvc ports.TokenService) *AuthServiceImpl {
	return &AuthServiceImpl{
		passwordHash: passwordHash,
		hashSvc:      hashSvc,
		tokenSvc:     tokenSvc,
	}
}

// Login validates the operator password and returns a JWT token.
func (s *AuthServiceImpl) Login(_ context.Context, password string) (string, time.Time, error) {
	if s.passwordHash == "" {
		return "", time.Time{}, apperror.InvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, s.passwordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return "", time.Time{}, apperror.InvalidCredentials()
	}

	token, expiry, err := s.tokenSvc.Generate(OperatorSubject)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return token, expiry, nil
}
