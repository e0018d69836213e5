package service

import (
	"context"
	"fmt"

	"ecash-nwc-gateway/internal/core/domain"
	"ecash-nwc-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

// Journal writes wallet state through to the repositories after each
// mutation. A nil *Journal is valid and does nothing, which is how the daemon
// runs without a database.
//
// Write failures are logged, not returned: the in-memory state is
// authoritative while the process runs.
type Journal struct {
	sessions ports.SessionRepository
	ledger   ports.LedgerRepository
	proofs   ports.ProofRepository
	log      zerolog.Logger
}

// NewJournal creates a Journal over the given repositories.
func NewJournal(
	sessions ports.SessionRepository,
	ledger ports.LedgerRepository,
	proofs ports.ProofRepository,
	log zerolog.Logger,
) *Journal {
	return &Journal{
		sessions: sessions,
		ledger:   ledger,
		proofs:   proofs,
		log:      log,
	}
}

// SaveSession persists the session identity and balance, plus the ledger
// entries named by hashes.
func (j *Journal) SaveSession(ctx context.Context, sess *domain.Session, hashes ...string) {
	if j == nil {
		return
	}

	snap := sess.Snapshot()
	snap.Records = nil
	if err := j.sessions.Save(ctx, &snap); err != nil {
		j.log.Error().Err(err).Str("app_pubkey", sess.AppPubkey).Msg("Failed to save session")
	}

	for _, hash := range hashes {
		rec, ok := sess.Record(hash)
		if !ok {
			continue
		}
		if err := j.ledger.Save(ctx, sess.AppPubkey, &rec); err != nil {
			j.log.Error().Err(err).
				Str("app_pubkey", sess.AppPubkey).
				Str("payment_hash", hash).
				Msg("Failed to save ledger entry")
		}
	}
}

// SaveProofs replaces the stored proof set.
func (j *Journal) SaveProofs(ctx context.Context, proofs []domain.Proof) {
	if j == nil {
		return
	}
	if err := j.proofs.Replace(ctx, proofs); err != nil {
		j.log.Error().Err(err).Int("count", len(proofs)).Msg("Failed to save proofs")
	}
}

// Load reads every stored session with its ledger, and the proof set.
func (j *Journal) Load(ctx context.Context) ([]domain.SessionSnapshot, []domain.Proof, error) {
	if j == nil {
		return nil, nil, nil
	}

	snaps, err := j.sessions.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list sessions: %w", err)
	}

	out := make([]domain.SessionSnapshot, 0, len(snaps))
	for _, snap := range snaps {
		records, err := j.ledger.ListBySession(ctx, snap.AppPubkey)
		if err != nil {
			return nil, nil, fmt.Errorf("list ledger for %s: %w", snap.AppPubkey, err)
		}
		snap.Records = records
		out = append(out, *snap)
	}

	proofs, err := j.proofs.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list proofs: %w", err)
	}

	return out, proofs, nil
}
