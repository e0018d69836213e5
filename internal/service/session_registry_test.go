package service

import (
	"testing"

	"ecash-nwc-gateway/internal/core/domain"
	"ecash-nwc-gateway/internal/nostr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRegistry_CreateGeneratesKeys(t *testing.T) {
	r := NewSessionRegistry()

	sess, err := r.Create(domain.SessionParams{
		MintURL: "https://mint.coinos.io",
		Relay:   "wss://nostrue.com",
	})
	require.NoError(t, err)

	assert.Len(t, sess.AppPrivkey, 64)
	assert.Len(t, sess.AppPubkey, 64)
	assert.Len(t, sess.UserSecret, 64)
	assert.Len(t, sess.UserPubkey, 64)
	assert.Equal(t, domain.KnownMethods, sess.Permissions)

	info, err := nostr.ParseConnectionString(sess.ConnectionString)
	require.NoError(t, err)
	assert.Equal(t, sess.AppPubkey, info.WalletPubkey)
	assert.Equal(t, "wss://nostrue.com", info.Relay)
	assert.Equal(t, sess.UserSecret, info.Secret)

	got, ok := r.Lookup(sess.AppPubkey)
	require.True(t, ok)
	assert.Same(t, sess, got)
	assert.Len(t, r.All(), 1)
}

func TestSessionRegistry_CreateWithKeys(t *testing.T) {
	appPriv, appPub, err := nostr.GenerateKey()
	require.NoError(t, err)
	userSecret, userPub, err := nostr.GenerateKey()
	require.NoError(t, err)

	r := NewSessionRegistry()
	sess, err := r.Create(domain.SessionParams{
		MintURL:     "https://mint.test",
		Relay:       "wss://relay.test",
		Permissions: []domain.Method{domain.MethodGetBalance},
		AppPrivkey:  appPriv,
		UserSecret:  userSecret,
	})
	require.NoError(t, err)
	assert.Equal(t, appPub, sess.AppPubkey)
	assert.Equal(t, userPub, sess.UserPubkey)
	assert.True(t, sess.Allows(domain.MethodGetBalance))
	assert.False(t, sess.Allows(domain.MethodPayInvoice))

	_, err = r.Create(domain.SessionParams{
		MintURL:    "https://mint.test",
		Relay:      "wss://relay.test",
		AppPrivkey: appPriv,
	})
	assert.ErrorIs(t, err, ErrSessionExists)
}

func TestSessionRegistry_CreateValidation(t *testing.T) {
	r := NewSessionRegistry()

	_, err := r.Create(domain.SessionParams{Relay: "wss://relay.test"})
	assert.Error(t, err)

	_, err = r.Create(domain.SessionParams{
		MintURL:     "https://mint.test",
		Relay:       "wss://relay.test",
		Permissions: []domain.Method{"pay_keysend"},
	})
	assert.Error(t, err)

	_, err = r.Create(domain.SessionParams{
		MintURL:    "https://mint.test",
		Relay:      "wss://relay.test",
		AppPrivkey: "not-hex",
	})
	assert.Error(t, err)
	assert.Empty(t, r.All())
}

func TestSessionRegistry_RestoreAndRemove(t *testing.T) {
	r := NewSessionRegistry()
	snap := domain.SessionSnapshot{
		AppPubkey:   "app",
		Relay:       "wss://relay.test",
		MintURL:     "https://mint.test",
		BalanceMsat: 4000,
		Records:     []domain.TxRecord{outgoingRecord(1000)},
	}

	sess, err := r.Restore(snap)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), sess.BalanceMsat())
	_, ok := sess.Record(testHash)
	assert.True(t, ok)

	r.Remove("app")
	_, ok = r.Lookup("app")
	assert.False(t, ok)
}
