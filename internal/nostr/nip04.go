package nostr

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
)

// ErrBadPayload is returned when content is not "<ciphertext>?iv=<iv>".
var ErrBadPayload = errors.New("malformed nip04 payload")

// SharedSecret returns the NIP-04 key: the x coordinate of priv·pub.
func SharedSecret(privHex, pubHex string) ([]byte, error) {
	priv, err := parsePrivateKey(privHex)
	if err != nil {
		return nil, err
	}
	pub, err := parsePublicKey(pubHex)
	if err != nil {
		return nil, err
	}
	return btcec.GenerateSharedSecret(priv, pub), nil
}

// Encrypt seals plaintext for pubHex as base64(ciphertext) + "?iv=" + base64(iv),
// using AES-256-CBC with PKCS#7 padding.
func Encrypt(plaintext, privHex, pubHex string) (string, error) {
	key, err := SharedSecret(privHex, pubHex)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("generating iv: %w", err)
	}

	padded := pad([]byte(plaintext))
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return base64.StdEncoding.EncodeToString(ciphertext) + "?iv=" + base64.StdEncoding.EncodeToString(iv), nil
}

// Decrypt opens a payload produced by Encrypt on the other side.
func Decrypt(payload, privHex, pubHex string) (string, error) {
	ctPart, ivPart, ok := strings.Cut(payload, "?iv=")
	if !ok {
		return "", ErrBadPayload
	}
	ciphertext, err := base64.StdEncoding.DecodeString(ctPart)
	if err != nil {
		return "", ErrBadPayload
	}
	iv, err := base64.StdEncoding.DecodeString(ivPart)
	if err != nil || len(iv) != aes.BlockSize {
		return "", ErrBadPayload
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", ErrBadPayload
	}

	key, err := SharedSecret(privHex, pubHex)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)
	out, err := unpad(plain)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, ErrBadPayload
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, ErrBadPayload
		}
	}
	return b[:len(b)-n], nil
}
