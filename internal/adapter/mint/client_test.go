package mint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ecash-nwc-gateway/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, h http.Handler) (*Client, string) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(5*time.Second, zerolog.Nop()), srv.URL
}

func TestRequestMintQuote(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/mint/quote/bolt11", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(100), body["amount"])
		assert.Equal(t, "sat", body["unit"])
		writeJSON(w, 200, map[string]interface{}{"quote": "q1", "request": "lnbc1...", "expiry": 1700000600})
	})
	c, url := newTestClient(t, mux)

	q, err := c.RequestMintQuote(context.Background(), url, 100)
	require.NoError(t, err)
	assert.Equal(t, &domain.MintQuote{Quote: "q1", Request: "lnbc1...", Expiry: 1700000600}, q)
}

func TestMintQuotePaid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"legacy paid", `{"paid":true}`, true},
		{"legacy unpaid", `{"paid":false}`, false},
		{"state paid", `{"state":"PAID"}`, true},
		{"state issued", `{"state":"ISSUED"}`, true},
		{"state unpaid", `{"state":"UNPAID"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, url := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/mint/quote/bolt11/q1", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))

			paid, err := c.MintQuotePaid(context.Background(), url, "q1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, paid)
		})
	}
}

func TestActiveKeyset(t *testing.T) {
	c, url := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]interface{}{"keysets": []map[string]interface{}{
			{"id": "00ad268c4d1f5826", "unit": "sat", "active": false},
			{"id": "I2yN+iRYfkzT", "unit": "sat", "active": true},
			{"id": "abc", "unit": "sat", "active": true},
			{"id": "009a1f293253e41e", "unit": "sat", "active": true},
		}})
	}))

	id, err := c.ActiveKeyset(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, "009a1f293253e41e", id)
}

func TestActiveKeyset_None(t *testing.T) {
	c, url := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]interface{}{"keysets": []interface{}{}})
	}))

	_, err := c.ActiveKeyset(context.Background(), url)
	assert.ErrorIs(t, err, ErrNoActiveKeyset)
}

func TestKeys_Cached(t *testing.T) {
	var calls int32
	c, url := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/v1/keys/009a1f293253e41e", r.URL.Path)
		writeJSON(w, 200, map[string]interface{}{"keysets": []map[string]interface{}{{
			"id":   "009a1f293253e41e",
			"unit": "sat",
			"keys": map[string]string{"1": "02aa", "2": "02bb"},
		}}})
	}))

	for i := 0; i < 3; i++ {
		keys, err := c.Keys(context.Background(), url, "009a1f293253e41e")
		require.NoError(t, err)
		assert.Equal(t, map[uint64]string{1: "02aa", 2: "02bb"}, keys)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSwapAndMint(t *testing.T) {
	sigs := []domain.BlindSignature{{ID: "00", Amount: 4, C: "02cc"}}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/swap", func(w http.ResponseWriter, r *http.Request) {
		var body swapRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body.Inputs, 1)
		assert.Equal(t, "s1", body.Inputs[0].Secret)
		assert.Equal(t, "02bb", body.Outputs[0].B)
		writeJSON(w, 200, map[string]interface{}{"signatures": sigs})
	})
	mux.HandleFunc("/v1/mint/bolt11", func(w http.ResponseWriter, r *http.Request) {
		var body mintRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "q1", body.Quote)
		writeJSON(w, 200, map[string]interface{}{"signatures": sigs})
	})
	c, url := newTestClient(t, mux)

	got, err := c.Swap(context.Background(), url,
		[]domain.Proof{{ID: "00", Amount: 4, Secret: "s1", C: "02aa"}},
		[]domain.BlindedOutput{{ID: "00", Amount: 4, B: "02bb"}})
	require.NoError(t, err)
	assert.Equal(t, sigs, got)

	got, err = c.Mint(context.Background(), url, "q1", []domain.BlindedOutput{{ID: "00", Amount: 4, B: "02bb"}})
	require.NoError(t, err)
	assert.Equal(t, sigs, got)
}

func TestMelt(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/melt/quote/bolt11", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]interface{}{"quote": "m1", "amount": 100, "fee_reserve": 2})
	})
	mux.HandleFunc("/v1/melt/bolt11", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.JSONEq(t, `[]`, string(body["outputs"]))
		writeJSON(w, 200, map[string]interface{}{
			"state":            "PAID",
			"payment_preimage": "00ff",
			"change":           []domain.BlindSignature{{ID: "00", Amount: 1, C: "02dd"}},
		})
	})
	c, url := newTestClient(t, mux)

	q, err := c.RequestMeltQuote(context.Background(), url, "lnbc1...")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), q.Amount)
	assert.Equal(t, uint64(2), q.FeeReserve)

	res, err := c.Melt(context.Background(), url, "m1", []domain.Proof{{Amount: 128}}, nil)
	require.NoError(t, err)
	assert.True(t, res.Paid)
	assert.Equal(t, "00ff", res.Preimage)
	assert.Len(t, res.Change, 1)
}

func TestMintError(t *testing.T) {
	c, url := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 400, map[string]interface{}{"detail": "Token already spent.", "code": 11001})
	}))

	_, err := c.Swap(context.Background(), url, nil, nil)
	require.Error(t, err)

	var mintErr *Error
	require.ErrorAs(t, err, &mintErr)
	assert.Equal(t, 400, mintErr.Status)
	assert.Equal(t, "Token already spent.", mintErr.Detail)
}

func TestIsValidHex(t *testing.T) {
	assert.True(t, isValidHex("009a1f293253e41e"))
	assert.False(t, isValidHex(""))
	assert.False(t, isValidHex("abc"))
	assert.False(t, isValidHex("zz"))
}
