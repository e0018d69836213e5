package postgres

import (
	"context"
	"errors"
	"testing"

	"ecash-nwc-gateway/config"
	"ecash-nwc-gateway/internal/core/domain"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestMigrationURL(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host: "localhost", Port: 5432, User: "u", Password: "p", DBName: "wallet", SSLMode: "disable",
	}
	assert.Equal(t, "pgx5://u:p@localhost:5432/wallet?sslmode=disable", migrationURL(cfg.DSN()))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestHealthCheck(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("SELECT 1").WillReturnResult(pgxmock.NewResult("SELECT", 1))

	hc := NewHealthCheck(mock)
	assert.Equal(t, "postgresql", hc.Name())
	assert.NoError(t, hc.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	snap := &domain.SessionSnapshot{
		AppPrivkey: "priv", AppPubkey: "pub", UserSecret: "sec", UserPubkey: "upub",
		Relay: "wss://relay", MintURL: "https://mint",
		Permissions: []domain.Method{domain.MethodGetBalance},
		BalanceMsat: 5000,
	}

	mock.ExpectExec("INSERT INTO sessions .+ ON CONFLICT \\(app_pubkey\\) DO UPDATE").
		WithArgs("pub", "priv", "sec", "upub", "wss://relay", "https://mint", []string{"get_balance"}, int64(5000)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewSessionRepo(mock).Save(context.Background(), snap))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows(sessionColumns).
		AddRow("pub", "priv", "sec", "upub", "wss://relay", "https://mint", []string{"get_info", "pay_invoice"}, int64(42000))
	mock.ExpectQuery("SELECT .+ FROM sessions ORDER BY app_pubkey").WillReturnRows(rows)

	got, err := NewSessionRepo(mock).List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "pub", got[0].AppPubkey)
	assert.Equal(t, []domain.Method{domain.MethodGetInfo, domain.MethodPayInvoice}, got[0].Permissions)
	assert.Equal(t, int64(42000), got[0].BalanceMsat)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rec := &domain.TxRecord{
		PaymentHash: "hash1", Type: domain.DirectionIncoming, Invoice: "lnbc1", AmountMsat: 100000,
		CreatedAt: 1700000000, ExpiresAt: 1700003600, QuoteID: "q1",
	}

	mock.ExpectExec("INSERT INTO tx_records .+ ON CONFLICT \\(app_pubkey, payment_hash\\)").
		WithArgs("pub", "hash1", "incoming", "lnbc1", "", "", "", int64(100000), int64(0),
			int64(1700000000), int64(1700003600), pgxmock.AnyArg(), false, "", "q1", false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewLedgerRepo(mock).Save(context.Background(), "pub", rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_ListBySession(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	settled := int64Ptr(1700000100)
	rows := pgxmock.NewRows(ledgerColumns).
		AddRow("h2", "outgoing", "lnbc2", "", "", "ff", int64(2000), int64(1000), int64(1700000050), int64(0), settled, true, "", "", false).
		AddRow("h1", "incoming", "lnbc1", "coffee", "", "", int64(1000), int64(0), int64(1700000000), int64(1700003600), (*int64)(nil), false, "", "q1", false)
	mock.ExpectQuery("SELECT .+ FROM tx_records WHERE app_pubkey = \\$1 ORDER BY created_at DESC").
		WithArgs("pub").
		WillReturnRows(rows)

	got, err := NewLedgerRepo(mock).ListBySession(context.Background(), "pub")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, domain.DirectionOutgoing, got[0].Type)
	assert.True(t, got[0].Paid)
	require.NotNil(t, got[0].SettledAt)
	assert.Equal(t, int64(1700000100), *got[0].SettledAt)

	assert.Equal(t, domain.DirectionIncoming, got[1].Type)
	assert.Nil(t, got[1].SettledAt)
	assert.Equal(t, "q1", got[1].QuoteID)
	assert.False(t, got[1].Minted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProofRepo_Replace(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	proofs := []domain.Proof{
		{ID: "00ad", Amount: 8, Secret: "s1", C: "02aa"},
		{ID: "00ad", Amount: 2, Secret: "s2", C: "02bb"},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM proofs").WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec("INSERT INTO proofs").
		WithArgs("s1", "00ad", int64(8), "02aa", 0, "s2", "00ad", int64(2), "02bb", 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	require.NoError(t, NewProofRepo(mock).Replace(context.Background(), proofs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProofRepo_ReplaceRollsBackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM proofs").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = NewProofRepo(mock).Replace(context.Background(), nil)
	assert.ErrorContains(t, err, "clear proofs")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProofRepo_ReplaceEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM proofs").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCommit()

	require.NoError(t, NewProofRepo(mock).Replace(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProofRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"secret", "keyset_id", "amount", "c"}).
		AddRow("s1", "00ad", int64(8), "02aa").
		AddRow("s2", "00ad", int64(2), "02bb")
	mock.ExpectQuery("SELECT secret, keyset_id, amount, c FROM proofs ORDER BY position").WillReturnRows(rows)

	got, err := NewProofRepo(mock).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Proof{
		{ID: "00ad", Amount: 8, Secret: "s1", C: "02aa"},
		{ID: "00ad", Amount: 2, Secret: "s2", C: "02bb"},
	}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
