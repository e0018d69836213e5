package postgres

import (
	"context"
	"fmt"

	"ecash-nwc-gateway/internal/core/domain"
	"ecash-nwc-gateway/internal/core/ports"
)

var ledgerColumns = []string{"payment_hash", "type", "invoice", "description", "description_hash", "preimage",
	"amount_msat", "fees_paid_msat", "created_at", "expires_at", "settled_at", "paid", "err_msg", "quote_id", "minted"}

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct {
	pool Pool
}

var _ ports.LedgerRepository = (*LedgerRepo)(nil)

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Save upserts rec under (appPubkey, payment_hash). paid, minted and
// settled_at never go back once set.
func (r *LedgerRepo) Save(ctx context.Context, appPubkey string, rec *domain.TxRecord) error {
	query, args, err := psql.Insert("tx_records").
		Columns(append([]string{"app_pubkey"}, ledgerColumns...)...).
		Values(appPubkey, rec.PaymentHash, string(rec.Type), rec.Invoice, rec.Description, rec.DescriptionHash,
			rec.Preimage, rec.AmountMsat, rec.FeesPaidMsat, rec.CreatedAt, rec.ExpiresAt, rec.SettledAt,
			rec.Paid, rec.ErrMsg, rec.QuoteID, rec.Minted).
		Suffix("ON CONFLICT (app_pubkey, payment_hash) DO UPDATE SET " +
			"preimage = EXCLUDED.preimage, fees_paid_msat = EXCLUDED.fees_paid_msat, " +
			"settled_at = COALESCE(tx_records.settled_at, EXCLUDED.settled_at), " +
			"paid = tx_records.paid OR EXCLUDED.paid, minted = tx_records.minted OR EXCLUDED.minted, err_msg = EXCLUDED.err_msg, " +
			"invoice = EXCLUDED.invoice, description = EXCLUDED.description").
		ToSql()
	if err != nil {
		return fmt.Errorf("build ledger upsert: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert ledger entry: %w", err)
	}
	return nil
}

// ListBySession returns a session's ledger, newest first.
func (r *LedgerRepo) ListBySession(ctx context.Context, appPubkey string) ([]domain.TxRecord, error) {
	query, args, err := psql.Select(ledgerColumns...).
		From("tx_records").
		Where("app_pubkey = ?", appPubkey).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ledger select: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	defer rows.Close()

	var out []domain.TxRecord
	for rows.Next() {
		var (
			rec       domain.TxRecord
			direction string
		)
		if err := rows.Scan(&rec.PaymentHash, &direction, &rec.Invoice, &rec.Description, &rec.DescriptionHash,
			&rec.Preimage, &rec.AmountMsat, &rec.FeesPaidMsat, &rec.CreatedAt, &rec.ExpiresAt, &rec.SettledAt,
			&rec.Paid, &rec.ErrMsg, &rec.QuoteID, &rec.Minted); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		rec.Type = domain.Direction(direction)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger: %w", err)
	}
	return out, nil
}
