package service

import (
	"context"
	"errors"
	"testing"

	"ecash-nwc-gateway/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSessions struct {
	saved []domain.SessionSnapshot
	list  []*domain.SessionSnapshot
	err   error
}

func (m *memSessions) Save(_ context.Context, snap *domain.SessionSnapshot) error {
	m.saved = append(m.saved, *snap)
	return m.err
}

func (m *memSessions) List(context.Context) ([]*domain.SessionSnapshot, error) {
	return m.list, m.err
}

type memLedger struct {
	saved map[string][]domain.TxRecord
}

func (m *memLedger) Save(_ context.Context, appPubkey string, rec *domain.TxRecord) error {
	if m.saved == nil {
		m.saved = make(map[string][]domain.TxRecord)
	}
	m.saved[appPubkey] = append(m.saved[appPubkey], *rec)
	return nil
}

func (m *memLedger) ListBySession(_ context.Context, appPubkey string) ([]domain.TxRecord, error) {
	return m.saved[appPubkey], nil
}

type memProofs struct {
	stored []domain.Proof
	err    error
}

func (m *memProofs) Replace(_ context.Context, proofs []domain.Proof) error {
	m.stored = append([]domain.Proof(nil), proofs...)
	return m.err
}

func (m *memProofs) List(context.Context) ([]domain.Proof, error) {
	return m.stored, m.err
}

func TestJournal_NilIsNoop(t *testing.T) {
	var j *Journal
	j.SaveSession(context.Background(), newTestSession(0), "x")
	j.SaveProofs(context.Background(), nil)

	snaps, proofs, err := j.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snaps)
	assert.Nil(t, proofs)
}

func TestJournal_SaveAndLoad(t *testing.T) {
	sessions := &memSessions{}
	ledger := &memLedger{}
	proofs := &memProofs{}
	j := NewJournal(sessions, ledger, proofs, zerolog.Nop())

	sess := newTestSession(5000, outgoingRecord(5000))
	j.SaveSession(context.Background(), sess, testHash, "unknown-hash")

	require.Len(t, sessions.saved, 1)
	assert.Equal(t, int64(5000), sessions.saved[0].BalanceMsat)
	assert.Nil(t, sessions.saved[0].Records)
	require.Len(t, ledger.saved["app-pubkey"], 1)
	assert.Equal(t, testHash, ledger.saved["app-pubkey"][0].PaymentHash)

	stored := []domain.Proof{{ID: testKeysetID, Amount: 8, Secret: "s", C: "c"}}
	j.SaveProofs(context.Background(), stored)

	snap := sessions.saved[0]
	sessions.list = []*domain.SessionSnapshot{&snap}

	snaps, loaded, err := j.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "app-pubkey", snaps[0].AppPubkey)
	assert.Len(t, snaps[0].Records, 1)
	assert.Equal(t, stored, loaded)
}

func TestJournal_WriteErrorsAreSwallowed(t *testing.T) {
	j := NewJournal(&memSessions{err: errors.New("db down")}, &memLedger{}, &memProofs{err: errors.New("db down")}, zerolog.Nop())

	assert.NotPanics(t, func() {
		j.SaveSession(context.Background(), newTestSession(0))
		j.SaveProofs(context.Background(), nil)
	})
}

func TestJournal_LoadError(t *testing.T) {
	j := NewJournal(&memSessions{err: errors.New("db down")}, &memLedger{}, &memProofs{}, zerolog.Nop())

	_, _, err := j.Load(context.Background())
	assert.Error(t, err)
}
