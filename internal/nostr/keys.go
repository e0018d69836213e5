// Package nostr implements the slice of the Nostr protocol the wallet bridge
// speaks: x-only keys, signed events, NIP-04 payload encryption, relay frames
// and the NWC connection string.
package nostr

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// GenerateKey returns a fresh hex private key and its x-only hex public key.
func GenerateKey() (priv string, pub string, err error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return "", "", fmt.Errorf("generating key: %w", err)
	}
	priv = hex.EncodeToString(key.Serialize())
	return priv, hex.EncodeToString(schnorr.SerializePubKey(key.PubKey())), nil
}

// PublicKey derives the x-only hex public key for a hex private key.
func PublicKey(privHex string) (string, error) {
	key, err := parsePrivateKey(privHex)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(schnorr.SerializePubKey(key.PubKey())), nil
}

func parsePrivateKey(privHex string) (*btcec.PrivateKey, error) {
	b, err := hex.DecodeString(privHex)
	if err != nil || len(b) != 32 {
		return nil, fmt.Errorf("invalid private key")
	}
	key, _ := btcec.PrivKeyFromBytes(b)
	return key, nil
}

func parsePublicKey(pubHex string) (*btcec.PublicKey, error) {
	b, err := hex.DecodeString(pubHex)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}
	pub, err := schnorr.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}
	return pub, nil
}
