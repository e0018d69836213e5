package postgres

import (
	"context"
	"fmt"

	"ecash-nwc-gateway/internal/core/domain"
	"ecash-nwc-gateway/internal/core/ports"

	sq "github.com/Masterminds/squirrel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var sessionColumns = []string{"app_pubkey", "app_privkey", "user_secret", "user_pubkey", "relay", "mint_url", "permissions", "balance_msat"}

// SessionRepo implements ports.SessionRepository. Ledger entries are stored
// separately through LedgerRepo.
type SessionRepo struct {
	pool Pool
}

var _ ports.SessionRepository = (*SessionRepo)(nil)

// NewSessionRepo creates a new SessionRepo.
func NewSessionRepo(pool Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

// Save upserts the session identity and balance.
func (r *SessionRepo) Save(ctx context.Context, snap *domain.SessionSnapshot) error {
	perms := make([]string, len(snap.Permissions))
	for i, p := range snap.Permissions {
		perms[i] = string(p)
	}

	query, args, err := psql.Insert("sessions").
		Columns(sessionColumns...).
		Values(snap.AppPubkey, snap.AppPrivkey, snap.UserSecret, snap.UserPubkey,
			snap.Relay, snap.MintURL, perms, snap.BalanceMsat).
		Suffix("ON CONFLICT (app_pubkey) DO UPDATE SET permissions = EXCLUDED.permissions, " +
			"balance_msat = EXCLUDED.balance_msat, relay = EXCLUDED.relay, updated_at = NOW()").
		ToSql()
	if err != nil {
		return fmt.Errorf("build session upsert: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// List returns every stored session without its ledger.
func (r *SessionRepo) List(ctx context.Context) ([]*domain.SessionSnapshot, error) {
	query, args, err := psql.Select(sessionColumns...).From("sessions").OrderBy("app_pubkey").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build session select: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*domain.SessionSnapshot
	for rows.Next() {
		var (
			snap  domain.SessionSnapshot
			perms []string
		)
		if err := rows.Scan(&snap.AppPubkey, &snap.AppPrivkey, &snap.UserSecret, &snap.UserPubkey,
			&snap.Relay, &snap.MintURL, &perms, &snap.BalanceMsat); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		snap.Permissions = make([]domain.Method, len(perms))
		for i, p := range perms {
			snap.Permissions[i] = domain.Method(p)
		}
		out = append(out, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}
