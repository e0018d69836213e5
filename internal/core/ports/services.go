package ports

import (
	"context"
	"time"

	"ecash-nwc-gateway/internal/core/domain"
)

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles operator JWT tokens.
type TokenService interface {
	Generate(subject string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Subject string
}

// ReplayGuard remembers inbound event ids so a relay re-delivering an event
// does not run a command twice.
type ReplayGuard interface {
	// CheckAndSet returns true if id is new within scope, false if seen.
	CheckAndSet(ctx context.Context, scope string, id string, ttl time.Duration) (bool, error)
}

// RateLimiter counts commands in fixed windows.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// --- Service Ports (Business Logic) ---

// WalletService is the command surface shared by the NWC bridge and the
// admin API. Errors are *apperror.AppError carrying an NWC code.
type WalletService interface {
	MakeInvoice(ctx context.Context, sess *domain.Session, amountMsat int64, description string) (*domain.TxRecord, error)
	PayInvoice(ctx context.Context, sess *domain.Session, invoice string) (*domain.TxRecord, error)
	LookupInvoice(ctx context.Context, sess *domain.Session, paymentHash, invoice string) (*domain.TxRecord, error)
	ListTransactions(sess *domain.Session, filter domain.TxFilter) []domain.TxRecord
	SendToken(ctx context.Context, mintURL string, amountSat uint64) (string, error)
	Balance() WalletBalance
}

// WalletBalance summarizes the proof store.
type WalletBalance struct {
	Sats   uint64
	Proofs int
}

// SessionDirectory resolves sessions by app pubkey.
type SessionDirectory interface {
	Lookup(appPubkey string) (*domain.Session, bool)
}

// SessionOpener creates a session and brings its relay connection up.
type SessionOpener interface {
	Open(ctx context.Context, params domain.SessionParams) (*domain.Session, error)
}

// AuthService authenticates the wallet operator.
type AuthService interface {
	Login(ctx context.Context, password string) (string, time.Time, error)
}
