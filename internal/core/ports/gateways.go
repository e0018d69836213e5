package ports

import (
	"context"

	"ecash-nwc-gateway/internal/core/domain"
)

// MintClient talks to a Cashu mint over its v1 HTTP API.
type MintClient interface {
	RequestMintQuote(ctx context.Context, mintURL string, amountSat uint64) (*domain.MintQuote, error)
	// MintQuotePaid reports whether the invoice behind a mint quote was paid.
	MintQuotePaid(ctx context.Context, mintURL, quoteID string) (bool, error)
	Mint(ctx context.Context, mintURL, quoteID string, outputs []domain.BlindedOutput) ([]domain.BlindSignature, error)
	// ActiveKeyset returns the id of the first active keyset with a valid hex id.
	ActiveKeyset(ctx context.Context, mintURL string) (string, error)
	Keys(ctx context.Context, mintURL, keysetID string) (map[uint64]string, error)
	Swap(ctx context.Context, mintURL string, inputs []domain.Proof, outputs []domain.BlindedOutput) ([]domain.BlindSignature, error)
	RequestMeltQuote(ctx context.Context, mintURL, invoice string) (*domain.MeltQuote, error)
	Melt(ctx context.Context, mintURL, quoteID string, inputs []domain.Proof, outputs []domain.BlindedOutput) (*domain.MeltResult, error)
}

// InvoiceDecoder parses bolt11 payment requests.
type InvoiceDecoder interface {
	Decode(invoice string) (*domain.Invoice, error)
}

// ChainInfo reports the current bitcoin chain tip.
type ChainInfo interface {
	Tip(ctx context.Context) (*domain.ChainTip, error)
}
