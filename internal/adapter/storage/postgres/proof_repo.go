package postgres

import (
	"context"
	"fmt"

	"ecash-nwc-gateway/internal/core/domain"
	"ecash-nwc-gateway/internal/core/ports"
)

// ProofRepo implements ports.ProofRepository.
type ProofRepo struct {
	pool Pool
}

var _ ports.ProofRepository = (*ProofRepo)(nil)

// NewProofRepo creates a new ProofRepo.
func NewProofRepo(pool Pool) *ProofRepo {
	return &ProofRepo{pool: pool}
}

// Replace overwrites the stored proof set inside one transaction.
func (r *ProofRepo) Replace(ctx context.Context, proofs []domain.Proof) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin proof replace: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "DELETE FROM proofs"); err != nil {
		return fmt.Errorf("clear proofs: %w", err)
	}

	if len(proofs) > 0 {
		b := psql.Insert("proofs").Columns("secret", "keyset_id", "amount", "c", "position")
		for i, p := range proofs {
			b = b.Values(p.Secret, p.ID, int64(p.Amount), p.C, i)
		}
		query, args, err := b.ToSql()
		if err != nil {
			return fmt.Errorf("build proof insert: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert proofs: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit proof replace: %w", err)
	}
	return nil
}

// List returns the stored proofs in insertion order.
func (r *ProofRepo) List(ctx context.Context) ([]domain.Proof, error) {
	query, args, err := psql.Select("secret", "keyset_id", "amount", "c").From("proofs").OrderBy("position").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build proof select: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list proofs: %w", err)
	}
	defer rows.Close()

	var out []domain.Proof
	for rows.Next() {
		var (
			p      domain.Proof
			amount int64
		)
		if err := rows.Scan(&p.Secret, &p.ID, &amount, &p.C); err != nil {
			return nil, fmt.Errorf("scan proof: %w", err)
		}
		p.Amount = uint64(amount)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate proofs: %w", err)
	}
	return out, nil
}
