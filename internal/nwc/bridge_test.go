package nwc

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ecash-nwc-gateway/internal/core/domain"
	"ecash-nwc-gateway/internal/core/ports"
	"ecash-nwc-gateway/internal/core/ports/mocks"
	"ecash-nwc-gateway/internal/nostr"
	"ecash-nwc-gateway/internal/service"
	"ecash-nwc-gateway/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type capture struct {
	mu     sync.Mutex
	events []*nostr.Event
}

func (c *capture) Publish(ev *nostr.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

type bridgeTestDeps struct {
	bridge     *Bridge
	wallet     *mocks.MockWalletService
	chain      *mocks.MockChainInfo
	replay     *mocks.MockReplayGuard
	limiter    *mocks.MockRateLimiter
	sess       *domain.Session
	userSecret string
	out        *capture
}

func setupBridge(t *testing.T, perms ...domain.Method) *bridgeTestDeps {
	ctrl := gomock.NewController(t)
	if len(perms) == 0 {
		perms = domain.KnownMethods
	}

	registry := service.NewSessionRegistry()
	appPriv, _, err := nostr.GenerateKey()
	require.NoError(t, err)
	userSecret, _, err := nostr.GenerateKey()
	require.NoError(t, err)
	sess, err := registry.Create(domain.SessionParams{
		MintURL:     "https://mint.test",
		Relay:       "wss://relay.test",
		Permissions: perms,
		AppPrivkey:  appPriv,
		UserSecret:  userSecret,
	})
	require.NoError(t, err)

	d := &bridgeTestDeps{
		wallet:     mocks.NewMockWalletService(ctrl),
		chain:      mocks.NewMockChainInfo(ctrl),
		replay:     mocks.NewMockReplayGuard(ctrl),
		limiter:    mocks.NewMockRateLimiter(ctrl),
		sess:       sess,
		userSecret: userSecret,
		out:        &capture{},
	}
	d.bridge = NewBridge(registry, d.wallet, d.chain, d.replay, d.limiter, Config{
		Alias:      "ecash-nwc",
		Color:      "#f7931a",
		ReplayTTL:  10 * time.Minute,
		RateLimit:  60,
		RateWindow: time.Minute,
	}, zerolog.Nop())
	d.bridge.now = func() time.Time { return time.Unix(1700000500, 0) }
	return d
}

// allowAll lets the replay guard and rate limiter pass.
func (d *bridgeTestDeps) allowAll() {
	d.replay.EXPECT().CheckAndSet(gomock.Any(), d.sess.AppPubkey, gomock.Any(), 10*time.Minute).Return(true, nil).AnyTimes()
	d.limiter.EXPECT().Allow(gomock.Any(), "nwc:"+d.sess.AppPubkey, int64(60), time.Minute).
		Return(&ports.RateLimitResult{Allowed: true}, nil).AnyTimes()
}

func (d *bridgeTestDeps) request(t *testing.T, body string) (*nostr.Event, []byte) {
	t.Helper()
	content, err := nostr.Encrypt(body, d.userSecret, d.sess.AppPubkey)
	require.NoError(t, err)
	ev := &nostr.Event{
		CreatedAt: 1700000000,
		Kind:      nostr.KindNWCRequest,
		Tags:      []nostr.Tag{{"p", d.sess.AppPubkey}},
		Content:   content,
	}
	require.NoError(t, ev.Sign(d.userSecret))
	raw, err := json.Marshal([]interface{}{"EVENT", "sub1", ev})
	require.NoError(t, err)
	return ev, raw
}

type decodedReply struct {
	ResultType string          `json:"result_type"`
	Error      *ErrorBody      `json:"error"`
	Result     json.RawMessage `json:"result"`
}

func (d *bridgeTestDeps) handle(t *testing.T, body string) decodedReply {
	t.Helper()
	req, raw := d.request(t, body)
	d.bridge.HandleFrame(context.Background(), raw, d.out)

	require.Len(t, d.out.events, 1, "expected exactly one reply")
	ev := d.out.events[0]
	assert.Equal(t, nostr.KindNWCResponse, ev.Kind)
	assert.Equal(t, d.sess.AppPubkey, ev.PubKey)
	assert.Equal(t, []nostr.Tag{{"p", d.sess.UserPubkey}, {"e", req.ID}}, ev.Tags)
	require.NoError(t, ev.Verify())

	plaintext, err := nostr.Decrypt(ev.Content, d.userSecret, d.sess.AppPubkey)
	require.NoError(t, err)
	var reply decodedReply
	require.NoError(t, json.Unmarshal([]byte(plaintext), &reply))
	return reply
}

func TestBridge_GetBalance(t *testing.T) {
	d := setupBridge(t)
	d.allowAll()
	d.sess.Credit(21000)

	reply := d.handle(t, `{"method":"get_balance","params":{}}`)
	assert.Equal(t, "get_balance", reply.ResultType)
	assert.Nil(t, reply.Error)
	assert.JSONEq(t, `{"balance":21000}`, string(reply.Result))
}

func TestBridge_GetInfo(t *testing.T) {
	d := setupBridge(t, domain.MethodGetInfo, domain.MethodGetBalance)
	d.allowAll()
	d.chain.EXPECT().Tip(gomock.Any()).Return(&domain.ChainTip{Height: 850000, Hash: "00000000000000000001"}, nil)

	reply := d.handle(t, `{"method":"get_info","params":{}}`)
	require.Nil(t, reply.Error)

	var info infoResult
	require.NoError(t, json.Unmarshal(reply.Result, &info))
	assert.Equal(t, "ecash-nwc", info.Alias)
	assert.Equal(t, "#f7931a", info.Color)
	assert.Equal(t, d.sess.AppPubkey, info.Pubkey)
	assert.Equal(t, "mainnet", info.Network)
	assert.Equal(t, int64(850000), info.BlockHeight)
	assert.Equal(t, "00000000000000000001", info.BlockHash)
	assert.Equal(t, []string{"get_info", "get_balance"}, info.Methods)
}

func TestBridge_GetInfo_ChainDown(t *testing.T) {
	d := setupBridge(t)
	d.allowAll()
	d.chain.EXPECT().Tip(gomock.Any()).Return(nil, errors.New("timeout"))

	reply := d.handle(t, `{"method":"get_info"}`)
	require.Nil(t, reply.Error)
	var info infoResult
	require.NoError(t, json.Unmarshal(reply.Result, &info))
	assert.Zero(t, info.BlockHeight)
}

func TestBridge_Restricted(t *testing.T) {
	d := setupBridge(t, domain.MethodGetBalance)
	d.allowAll()
	d.sess.Credit(5000)

	reply := d.handle(t, `{"method":"pay_invoice","params":{"invoice":"lnbc1"}}`)
	assert.Equal(t, "pay_invoice", reply.ResultType)
	require.NotNil(t, reply.Error)
	assert.Equal(t, "RESTRICTED", reply.Error.Code)
	assert.Equal(t, "This public key is not allowed to do this operation.", reply.Error.Message)
	assert.JSONEq(t, `{}`, string(reply.Result))
	assert.Equal(t, int64(5000), d.sess.BalanceMsat())
}

func TestBridge_MakeInvoice(t *testing.T) {
	d := setupBridge(t)
	d.allowAll()
	d.wallet.EXPECT().MakeInvoice(gomock.Any(), d.sess, int64(13000), "coffee").Return(&domain.TxRecord{
		PaymentHash: "hash",
		Type:        domain.DirectionIncoming,
		Invoice:     "lnbc130n1",
		Description: "coffee",
		AmountMsat:  13000,
		CreatedAt:   1700000000,
		ExpiresAt:   1700000600,
		QuoteID:     "secret-quote",
	}, nil)

	reply := d.handle(t, `{"method":"make_invoice","params":{"amount":13000,"description":"coffee"}}`)
	require.Nil(t, reply.Error)

	var view map[string]interface{}
	require.NoError(t, json.Unmarshal(reply.Result, &view))
	assert.Equal(t, "incoming", view["type"])
	assert.Equal(t, "lnbc130n1", view["bolt11"])
	assert.Equal(t, float64(13000), view["amount"])
	assert.Nil(t, view["settled_at"])
	assert.NotContains(t, view, "quote")
	assert.NotContains(t, string(reply.Result), "secret-quote")
}

func TestBridge_MakeInvoice_Error(t *testing.T) {
	d := setupBridge(t)
	d.allowAll()
	d.wallet.EXPECT().MakeInvoice(gomock.Any(), d.sess, int64(1500), "").
		Return(nil, apperror.Other("amount must end in 000 (remember, we require millisats! But they must always be zero!)"))

	reply := d.handle(t, `{"method":"make_invoice","params":{"amount":1500}}`)
	require.NotNil(t, reply.Error)
	assert.Equal(t, "OTHER", reply.Error.Code)
	assert.Contains(t, reply.Error.Message, "amount must end in 000")
}

func TestBridge_LookupInvoice(t *testing.T) {
	d := setupBridge(t)
	d.allowAll()
	d.wallet.EXPECT().LookupInvoice(gomock.Any(), d.sess, "", "lnbc1bolt").
		Return(nil, apperror.NotFound("invoice not found"))

	reply := d.handle(t, `{"method":"lookup_invoice","params":{"bolt11":"lnbc1bolt","invoice":"ignored"}}`)
	require.NotNil(t, reply.Error)
	assert.Equal(t, "INTERNAL", reply.Error.Code)
	assert.Equal(t, "invoice not found", reply.Error.Message)
}

func TestBridge_ListTransactions(t *testing.T) {
	d := setupBridge(t)
	d.allowAll()
	d.wallet.EXPECT().ListTransactions(d.sess, gomock.Any()).DoAndReturn(
		func(_ *domain.Session, f domain.TxFilter) []domain.TxRecord {
			assert.Equal(t, domain.DirectionOutgoing, f.Type)
			require.NotNil(t, f.Offset)
			assert.Equal(t, 1, *f.Offset)
			assert.True(t, f.Unpaid)
			return []domain.TxRecord{{PaymentHash: "h1", Type: domain.DirectionOutgoing}}
		})

	reply := d.handle(t, `{"method":"list_transactions","params":{"type":"outgoing","offset":1,"unpaid":true}}`)
	require.Nil(t, reply.Error)

	var res listResult
	require.NoError(t, json.Unmarshal(reply.Result, &res))
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "h1", res.Transactions[0].PaymentHash)
}

func TestBridge_ListTransactions_BadType(t *testing.T) {
	d := setupBridge(t)
	d.allowAll()

	reply := d.handle(t, `{"method":"list_transactions","params":{"type":"sideways"}}`)
	require.NotNil(t, reply.Error)
	assert.Equal(t, "OTHER", reply.Error.Code)
}

func TestBridge_PayInvoice(t *testing.T) {
	d := setupBridge(t)
	d.allowAll()
	d.wallet.EXPECT().PayInvoice(gomock.Any(), d.sess, "lnbc50n1").
		Return(&domain.TxRecord{Preimage: "00ff"}, nil)

	reply := d.handle(t, `{"method":"pay_invoice","params":{"invoice":"lnbc50n1"}}`)
	require.Nil(t, reply.Error)
	assert.JSONEq(t, `{"preimage":"00ff"}`, string(reply.Result))
}

func TestBridge_PayInvoice_MissingInvoice(t *testing.T) {
	d := setupBridge(t)
	d.allowAll()

	reply := d.handle(t, `{"method":"pay_invoice","params":{}}`)
	require.NotNil(t, reply.Error)
	assert.Equal(t, "OTHER", reply.Error.Code)
}

func TestBridge_PayInvoice_InsufficientBalance(t *testing.T) {
	d := setupBridge(t)
	d.allowAll()
	d.wallet.EXPECT().PayInvoice(gomock.Any(), d.sess, "lnbc50n1").
		Return(nil, apperror.InsufficientBalance("you must leave 1% in reserve"))

	reply := d.handle(t, `{"method":"pay_invoice","params":{"invoice":"lnbc50n1"}}`)
	require.NotNil(t, reply.Error)
	assert.Equal(t, "INSUFFICIENT_BALANCE", reply.Error.Code)
}

func TestBridge_UnexpectedErrorAndPanic(t *testing.T) {
	d := setupBridge(t)
	d.allowAll()
	d.wallet.EXPECT().PayInvoice(gomock.Any(), d.sess, "lnbc50n1").Return(nil, errors.New("boom"))

	reply := d.handle(t, `{"method":"pay_invoice","params":{"invoice":"lnbc50n1"}}`)
	require.NotNil(t, reply.Error)
	assert.Equal(t, "OTHER", reply.Error.Code)
	assert.Equal(t, "unknown error", reply.Error.Message)

	d.out.events = nil
	d.wallet.EXPECT().PayInvoice(gomock.Any(), d.sess, "lnbc50n1").DoAndReturn(
		func(context.Context, *domain.Session, string) (*domain.TxRecord, error) {
			panic("nil map")
		})

	reply = d.handle(t, `{"method":"pay_invoice","params":{"invoice":"lnbc50n1"}}`)
	require.NotNil(t, reply.Error)
	assert.Equal(t, "unknown error", reply.Error.Message)
}

func TestBridge_RateLimited(t *testing.T) {
	d := setupBridge(t)
	d.replay.EXPECT().CheckAndSet(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil)
	d.limiter.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&ports.RateLimitResult{Allowed: false}, nil)

	reply := d.handle(t, `{"method":"get_balance"}`)
	require.NotNil(t, reply.Error)
	assert.Equal(t, "RATE_LIMITED", reply.Error.Code)
}

func TestBridge_DuplicateEventDropped(t *testing.T) {
	d := setupBridge(t)
	d.replay.EXPECT().CheckAndSet(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil)

	_, raw := d.request(t, `{"method":"get_balance"}`)
	d.bridge.HandleFrame(context.Background(), raw, d.out)
	assert.Empty(t, d.out.events)
}

func TestBridge_ReplayGuardDownFailsOpen(t *testing.T) {
	d := setupBridge(t)
	d.replay.EXPECT().CheckAndSet(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(false, errors.New("redis down"))
	d.limiter.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("redis down"))

	reply := d.handle(t, `{"method":"get_balance"}`)
	assert.Nil(t, reply.Error)
}

func TestBridge_DropsWithoutReply(t *testing.T) {
	d := setupBridge(t)
	d.allowAll()

	tests := []struct {
		name  string
		frame func(t *testing.T) []byte
	}{
		{"malformed", func(*testing.T) []byte { return []byte(`not json`) }},
		{"eose", func(*testing.T) []byte { return []byte(`["EOSE","sub1"]`) }},
		{"wrong kind", func(t *testing.T) []byte {
			ev, _ := d.request(t, `{"method":"get_balance"}`)
			ev.Kind = 1
			require.NoError(t, ev.Sign(d.userSecret))
			raw, _ := json.Marshal([]interface{}{"EVENT", "sub1", ev})
			return raw
		}},
		{"unknown session", func(t *testing.T) []byte {
			ev, _ := d.request(t, `{"method":"get_balance"}`)
			ev.Tags = []nostr.Tag{{"p", "ffff"}}
			require.NoError(t, ev.Sign(d.userSecret))
			raw, _ := json.Marshal([]interface{}{"EVENT", "sub1", ev})
			return raw
		}},
		{"bad signature", func(t *testing.T) []byte {
			ev, _ := d.request(t, `{"method":"get_balance"}`)
			ev.Content = ev.Content + "x"
			raw, _ := json.Marshal([]interface{}{"EVENT", "sub1", ev})
			return raw
		}},
		{"stranger", func(t *testing.T) []byte {
			strangerPriv, _, err := nostr.GenerateKey()
			require.NoError(t, err)
			ev, _ := d.request(t, `{"method":"get_balance"}`)
			require.NoError(t, ev.Sign(strangerPriv))
			raw, _ := json.Marshal([]interface{}{"EVENT", "sub1", ev})
			return raw
		}},
		{"undecryptable", func(t *testing.T) []byte {
			ev, _ := d.request(t, `{"method":"get_balance"}`)
			ev.Content = "garbage"
			require.NoError(t, ev.Sign(d.userSecret))
			raw, _ := json.Marshal([]interface{}{"EVENT", "sub1", ev})
			return raw
		}},
		{"not a request", func(t *testing.T) []byte {
			_, raw := d.request(t, `["get_balance"]`)
			return raw
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d.out.events = nil
			d.bridge.HandleFrame(context.Background(), tt.frame(t), d.out)
			assert.Empty(t, d.out.events)
		})
	}
}
