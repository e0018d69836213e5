// Package mint is the Cashu mint HTTP client (NUT-03/04/05, v1 API).
package mint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ecash-nwc-gateway/internal/core/domain"
	"ecash-nwc-gateway/internal/core/ports"

	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// ErrNoActiveKeyset is returned when the mint lists no usable keyset.
var ErrNoActiveKeyset = errors.New("mint has no active keyset")

// Error is a non-2xx answer from the mint.
type Error struct {
	Status int
	Detail string
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("mint returned %d: %s", e.Status, e.Detail)
}

// Client implements ports.MintClient. Keyset keys are immutable per id and
// are cached.
type Client struct {
	http *resty.Client
	keys *lru.Cache[string, map[uint64]string]
	log  zerolog.Logger
}

var _ ports.MintClient = (*Client)(nil)

// NewClient creates a mint client with the given request timeout.
func NewClient(timeout time.Duration, log zerolog.Logger) *Client {
	keys, err := lru.New[string, map[uint64]string](64)
	if err != nil {
		panic(err)
	}

	return &Client{
		http: resty.New().
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
		keys: keys,
		log:  log.With().Str("component", "mint_client").Logger(),
	}
}

type mintQuoteRequest struct {
	Amount uint64 `json:"amount"`
	Unit   string `json:"unit"`
}

type quoteState struct {
	Paid  *bool  `json:"paid"`
	State string `json:"state"`
}

// paid accepts both the legacy boolean and the NUT-04/05 state field.
func (q quoteState) paid() bool {
	if q.Paid != nil && *q.Paid {
		return true
	}
	return q.State == "PAID" || q.State == "ISSUED"
}

type mintRequest struct {
	Quote   string                 `json:"quote"`
	Outputs []domain.BlindedOutput `json:"outputs"`
}

type signaturesResponse struct {
	Signatures []domain.BlindSignature `json:"signatures"`
}

type keysetsResponse struct {
	Keysets []domain.Keyset `json:"keysets"`
}

type keysResponse struct {
	Keysets []struct {
		ID   string            `json:"id"`
		Unit string            `json:"unit"`
		Keys map[string]string `json:"keys"`
	} `json:"keysets"`
}

type swapRequest struct {
	Inputs  []domain.Proof         `json:"inputs"`
	Outputs []domain.BlindedOutput `json:"outputs"`
}

type meltQuoteRequest struct {
	Request string `json:"request"`
	Unit    string `json:"unit"`
}

type meltRequest struct {
	Quote   string                 `json:"quote"`
	Inputs  []domain.Proof         `json:"inputs"`
	Outputs []domain.BlindedOutput `json:"outputs"`
}

type meltResponse struct {
	quoteState
	Preimage string                  `json:"payment_preimage"`
	Change   []domain.BlindSignature `json:"change"`
}

type errorBody struct {
	Detail string `json:"detail"`
	Code   int    `json:"code"`
}

// RequestMintQuote asks for a bolt11 invoice that mints amountSat once paid (NUT-04).
func (c *Client) RequestMintQuote(ctx context.Context, mintURL string, amountSat uint64) (*domain.MintQuote, error) {
	var out domain.MintQuote
	if err := c.post(ctx, mintURL, "/v1/mint/quote/bolt11", mintQuoteRequest{Amount: amountSat, Unit: "sat"}, &out); err != nil {
		return nil, fmt.Errorf("requesting mint quote: %w", err)
	}
	return &out, nil
}

// MintQuotePaid reports whether the invoice behind a mint quote was paid.
func (c *Client) MintQuotePaid(ctx context.Context, mintURL, quoteID string) (bool, error) {
	var out quoteState
	if err := c.get(ctx, mintURL, "/v1/mint/quote/bolt11/"+quoteID, &out); err != nil {
		return false, fmt.Errorf("checking mint quote: %w", err)
	}
	return out.paid(), nil
}

// Mint exchanges a paid quote for blind signatures on outputs.
func (c *Client) Mint(ctx context.Context, mintURL, quoteID string, outputs []domain.BlindedOutput) ([]domain.BlindSignature, error) {
	var out signaturesResponse
	if err := c.post(ctx, mintURL, "/v1/mint/bolt11", mintRequest{Quote: quoteID, Outputs: outputs}, &out); err != nil {
		return nil, fmt.Errorf("minting: %w", err)
	}
	return out.Signatures, nil
}

// ActiveKeyset returns the id of the mint's active sat keyset.
func (c *Client) ActiveKeyset(ctx context.Context, mintURL string) (string, error) {
	var out keysetsResponse
	if err := c.get(ctx, mintURL, "/v1/keysets", &out); err != nil {
		return "", fmt.Errorf("listing keysets: %w", err)
	}
	for _, ks := range out.Keysets {
		if ks.Active && isValidHex(ks.ID) {
			return ks.ID, nil
		}
	}
	return "", ErrNoActiveKeyset
}

// Keys returns the public keys of a keyset by amount, cached per keyset id.
func (c *Client) Keys(ctx context.Context, mintURL, keysetID string) (map[uint64]string, error) {
	cacheKey := strings.TrimRight(mintURL, "/") + "#" + keysetID
	if keys, ok := c.keys.Get(cacheKey); ok {
		return keys, nil
	}

	var out keysResponse
	if err := c.get(ctx, mintURL, "/v1/keys/"+keysetID, &out); err != nil {
		return nil, fmt.Errorf("fetching keys: %w", err)
	}
	if len(out.Keysets) == 0 {
		return nil, fmt.Errorf("fetching keys: keyset %s not returned", keysetID)
	}

	keys := make(map[uint64]string, len(out.Keysets[0].Keys))
	for amount, pub := range out.Keysets[0].Keys {
		a, err := strconv.ParseUint(amount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("fetching keys: bad amount %q", amount)
		}
		keys[a] = pub
	}

	c.keys.Add(cacheKey, keys)
	return keys, nil
}

// Swap trades inputs for fresh signatures on outputs (NUT-03).
func (c *Client) Swap(ctx context.Context, mintURL string, inputs []domain.Proof, outputs []domain.BlindedOutput) ([]domain.BlindSignature, error) {
	var out signaturesResponse
	if err := c.post(ctx, mintURL, "/v1/swap", swapRequest{Inputs: inputs, Outputs: outputs}, &out); err != nil {
		return nil, fmt.Errorf("swapping: %w", err)
	}
	return out.Signatures, nil
}

// RequestMeltQuote asks what paying invoice will cost (NUT-05).
func (c *Client) RequestMeltQuote(ctx context.Context, mintURL, invoice string) (*domain.MeltQuote, error) {
	var out domain.MeltQuote
	if err := c.post(ctx, mintURL, "/v1/melt/quote/bolt11", meltQuoteRequest{Request: invoice, Unit: "sat"}, &out); err != nil {
		return nil, fmt.Errorf("requesting melt quote: %w", err)
	}
	return &out, nil
}

// Melt pays the quoted invoice with inputs. Outputs are NUT-08 blanks for fee change.
func (c *Client) Melt(ctx context.Context, mintURL, quoteID string, inputs []domain.Proof, outputs []domain.BlindedOutput) (*domain.MeltResult, error) {
	if outputs == nil {
		outputs = []domain.BlindedOutput{}
	}
	var out meltResponse
	if err := c.post(ctx, mintURL, "/v1/melt/bolt11", meltRequest{Quote: quoteID, Inputs: inputs, Outputs: outputs}, &out); err != nil {
		return nil, fmt.Errorf("melting: %w", err)
	}
	return &domain.MeltResult{
		Paid:     out.paid(),
		Preimage: out.Preimage,
		Change:   out.Change,
	}, nil
}

func (c *Client) get(ctx context.Context, mintURL, path string, out interface{}) error {
	return c.do(ctx, resty.MethodGet, mintURL, path, nil, out)
}

func (c *Client) post(ctx context.Context, mintURL, path string, body, out interface{}) error {
	return c.do(ctx, resty.MethodPost, mintURL, path, body, out)
}

func (c *Client) do(ctx context.Context, method, mintURL, path string, body, out interface{}) error {
	var errBody errorBody
	req := c.http.R().
		SetContext(ctx).
		SetResult(out).
		SetError(&errBody)
	if body != nil {
		req.SetBody(body)
	}

	url := strings.TrimRight(mintURL, "/") + path
	resp, err := req.Execute(method, url)
	if err != nil {
		return err
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode()).
		Dur("latency", resp.Time()).
		Msg("mint request")

	if resp.IsError() {
		detail := errBody.Detail
		if detail == "" {
			detail = resp.String()
		}
		return &Error{Status: resp.StatusCode(), Detail: detail}
	}
	return nil
}

func isValidHex(s string) bool {
	if s == "" || len(s)%2 != 0 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
