// Package invoice decodes bolt11 payment requests.
package invoice

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"ecash-nwc-gateway/internal/core/domain"
	"ecash-nwc-gateway/internal/core/ports"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/zpay32"
)

// ErrInvalidInvoice wraps every decode failure.
var ErrInvalidInvoice = errors.New("invalid bolt11 invoice")

// Decoder implements ports.InvoiceDecoder for every network the prefix names.
type Decoder struct{}

var _ ports.InvoiceDecoder = Decoder{}

// NewDecoder returns a bolt11 Decoder.
func NewDecoder() Decoder {
	return Decoder{}
}

// Decode parses a bolt11 string, optionally with a lightning: prefix.
func (Decoder) Decode(invoice string) (*domain.Invoice, error) {
	raw := strings.ToLower(strings.TrimSpace(invoice))
	raw = strings.TrimPrefix(raw, "lightning:")

	inv, err := zpay32.Decode(raw, networkFor(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInvoice, err)
	}
	if inv.PaymentHash == nil {
		return nil, fmt.Errorf("%w: missing payment hash", ErrInvalidInvoice)
	}

	out := &domain.Invoice{
		PaymentHash: hex.EncodeToString(inv.PaymentHash[:]),
		CreatedAt:   inv.Timestamp.Unix(),
		ExpiresAt:   inv.Timestamp.Add(inv.Expiry()).Unix(),
	}
	if inv.MilliSat != nil {
		out.AmountMsat = int64(*inv.MilliSat)
	}
	if inv.Description != nil {
		out.Description = *inv.Description
	}
	if inv.DescriptionHash != nil {
		out.DescriptionHash = hex.EncodeToString(inv.DescriptionHash[:])
	}
	return out, nil
}

// networkFor picks chain params from the human-readable prefix. Longer
// prefixes are checked first since lntbs and lnbcrt extend lntb and lnbc.
func networkFor(raw string) *chaincfg.Params {
	switch {
	case strings.HasPrefix(raw, "lnbcrt"):
		return &chaincfg.RegressionNetParams
	case strings.HasPrefix(raw, "lntbs"):
		return &chaincfg.SigNetParams
	case strings.HasPrefix(raw, "lntb"):
		return &chaincfg.TestNet3Params
	case strings.HasPrefix(raw, "lnsb"):
		return &chaincfg.SimNetParams
	default:
		return &chaincfg.MainNetParams
	}
}
