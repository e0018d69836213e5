package ports

import (
	"context"

	"ecash-nwc-gateway/internal/core/domain"
)

// SessionRepository persists NWC session identities and balances.
type SessionRepository interface {
	Save(ctx context.Context, snap *domain.SessionSnapshot) error
	List(ctx context.Context) ([]*domain.SessionSnapshot, error)
}

// LedgerRepository persists session ledger entries.
type LedgerRepository interface {
	// Save upserts a record keyed by payment hash.
	Save(ctx context.Context, appPubkey string, rec *domain.TxRecord) error
	ListBySession(ctx context.Context, appPubkey string) ([]domain.TxRecord, error)
}

// ProofRepository persists the wallet's unspent proofs.
type ProofRepository interface {
	// Replace swaps the stored set for proofs in one database transaction.
	Replace(ctx context.Context, proofs []domain.Proof) error
	List(ctx context.Context) ([]domain.Proof, error)
}
