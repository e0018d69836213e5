package ecash

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"ecash-nwc-gateway/internal/core/domain"
	"ecash-nwc-gateway/internal/ecash/bdhke"

	"github.com/btcsuite/btcd/btcec/v2"
)

// ErrProtocol is returned when a mint response does not line up with the
// request it answers.
var ErrProtocol = errors.New("ecash: mint protocol violation")

// PendingSecret is the client-held half of a BlindedOutput.
type PendingSecret struct {
	Secret string
	R      *btcec.PrivateKey
}

// Keys maps an amount to the mint's public key for that amount.
type Keys map[uint64]*btcec.PublicKey

// ParseKeys decodes a keyset's hex encoded public keys.
func ParseKeys(raw map[uint64]string) (Keys, error) {
	keys := make(Keys, len(raw))
	for amount, hexKey := range raw {
		b, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("decoding key for amount %d: %w", amount, err)
		}
		pub, err := btcec.ParsePubKey(b)
		if err != nil {
			return nil, fmt.Errorf("parsing key for amount %d: %w", amount, err)
		}
		keys[amount] = pub
	}
	return keys, nil
}

// RequestOutputs builds one blinded output per amount, in order, together
// with the secrets needed to unblind the answers.
func RequestOutputs(amounts []uint64, keysetID string) ([]domain.BlindedOutput, []PendingSecret, error) {
	outputs := make([]domain.BlindedOutput, 0, len(amounts))
	pending := make([]PendingSecret, 0, len(amounts))

	for _, amount := range amounts {
		secret, err := newSecret()
		if err != nil {
			return nil, nil, err
		}
		r, err := btcec.NewPrivateKey()
		if err != nil {
			return nil, nil, fmt.Errorf("generating blinding factor: %w", err)
		}
		blinded, err := bdhke.Blind([]byte(secret), r)
		if err != nil {
			return nil, nil, fmt.Errorf("blinding secret: %w", err)
		}

		outputs = append(outputs, domain.BlindedOutput{
			Amount: amount,
			ID:     keysetID,
			B:      hex.EncodeToString(blinded.SerializeCompressed()),
		})
		pending = append(pending, PendingSecret{Secret: secret, R: r})
	}
	return outputs, pending, nil
}

// RequestBlankOutputs builds count outputs whose amount the mint assigns
// when returning a fee refund.
func RequestBlankOutputs(count int, keysetID string) ([]domain.BlindedOutput, []PendingSecret, error) {
	amounts := make([]uint64, count)
	for i := range amounts {
		amounts[i] = 1
	}
	return RequestOutputs(amounts, keysetID)
}

// Finalize unblinds mint signatures into proofs. Signatures and pending
// secrets are paired by position.
func Finalize(sigs []domain.BlindSignature, pending []PendingSecret, keys Keys) ([]domain.Proof, error) {
	if len(sigs) != len(pending) {
		return nil, fmt.Errorf("%w: %d signatures for %d outputs", ErrProtocol, len(sigs), len(pending))
	}

	proofs := make([]domain.Proof, 0, len(sigs))
	for i, sig := range sigs {
		mintKey, ok := keys[sig.Amount]
		if !ok {
			return nil, fmt.Errorf("%w: no mint key for amount %d", ErrProtocol, sig.Amount)
		}
		raw, err := hex.DecodeString(sig.C)
		if err != nil {
			return nil, fmt.Errorf("%w: signature %d: %v", ErrProtocol, i, err)
		}
		blindSig, err := btcec.ParsePubKey(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: signature %d: %v", ErrProtocol, i, err)
		}

		c := bdhke.Unblind(blindSig, pending[i].R, mintKey)
		proofs = append(proofs, domain.Proof{
			ID:     sig.ID,
			Amount: sig.Amount,
			Secret: pending[i].Secret,
			C:      hex.EncodeToString(c.SerializeCompressed()),
		})
	}
	return proofs, nil
}

func newSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
