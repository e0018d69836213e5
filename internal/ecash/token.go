package ecash

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"ecash-nwc-gateway/internal/core/domain"
)

const tokenPrefix = "cashuA"

type tokenEntry struct {
	Mint   string         `json:"mint"`
	Proofs []domain.Proof `json:"proofs"`
}

type tokenV3 struct {
	Token []tokenEntry `json:"token"`
}

// EncodeToken serializes proofs from one mint as a portable cashuA token.
func EncodeToken(mintURL string, proofs []domain.Proof) (string, error) {
	body, err := json.Marshal(tokenV3{Token: []tokenEntry{{Mint: mintURL, Proofs: proofs}}})
	if err != nil {
		return "", fmt.Errorf("encoding token: %w", err)
	}
	return tokenPrefix + base64.StdEncoding.EncodeToString(body), nil
}

// DecodeToken parses a cashuA token and returns the mint and its proofs.
func DecodeToken(token string) (string, []domain.Proof, error) {
	if !strings.HasPrefix(token, tokenPrefix) {
		return "", nil, fmt.Errorf("unsupported token prefix")
	}
	payload := strings.TrimPrefix(token, tokenPrefix)

	body, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some wallets emit the url-safe alphabet without padding.
		body, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return "", nil, fmt.Errorf("decoding token: %w", err)
		}
	}

	var tok tokenV3
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", nil, fmt.Errorf("parsing token: %w", err)
	}
	if len(tok.Token) != 1 {
		return "", nil, fmt.Errorf("expected a single-mint token, got %d entries", len(tok.Token))
	}
	return tok.Token[0].Mint, tok.Token[0].Proofs, nil
}
