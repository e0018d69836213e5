package nostr

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// Event kinds used by Nostr Wallet Connect.
const (
	KindNWCInfo     = 13194
	KindNWCRequest  = 23194
	KindNWCResponse = 23195
)

var (
	ErrBadID        = errors.New("event id does not match content")
	ErrBadSignature = errors.New("invalid event signature")
)

// Tag is a single event tag such as ["p", "<pubkey>"].
type Tag []string

// Event is a signed Nostr event (NIP-01).
type Event struct {
	ID        string `json:"id"`
	PubKey    string `json:"pubkey"`
	CreatedAt int64  `json:"created_at"`
	Kind      int    `json:"kind"`
	Tags      []Tag  `json:"tags"`
	Content   string `json:"content"`
	Sig       string `json:"sig"`
}

// TagValue returns the first value of the first tag named name.
func (e *Event) TagValue(name string) (string, bool) {
	for _, t := range e.Tags {
		if len(t) >= 2 && t[0] == name {
			return t[1], true
		}
	}
	return "", false
}

// Serialize returns the canonical form hashed into the event id:
// [0, pubkey, created_at, kind, tags, content].
func (e *Event) Serialize() []byte {
	var b bytes.Buffer
	b.WriteString("[0,")
	writeString(&b, e.PubKey)
	b.WriteByte(',')
	b.WriteString(strconv.FormatInt(e.CreatedAt, 10))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(e.Kind))
	b.WriteString(",[")
	for i, t := range e.Tags {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('[')
		for j, v := range t {
			if j > 0 {
				b.WriteByte(',')
			}
			writeString(&b, v)
		}
		b.WriteByte(']')
	}
	b.WriteString("],")
	writeString(&b, e.Content)
	b.WriteByte(']')
	return b.Bytes()
}

// ComputeID returns the hex sha256 of the serialized event.
func (e *Event) ComputeID() string {
	sum := sha256.Sum256(e.Serialize())
	return hex.EncodeToString(sum[:])
}

// Sign sets PubKey, ID and Sig using the hex private key.
func (e *Event) Sign(privHex string) error {
	key, err := parsePrivateKey(privHex)
	if err != nil {
		return err
	}
	if e.Tags == nil {
		e.Tags = []Tag{}
	}
	e.PubKey = hex.EncodeToString(schnorr.SerializePubKey(key.PubKey()))
	e.ID = e.ComputeID()

	id, _ := hex.DecodeString(e.ID)
	sig, err := schnorr.Sign(key, id)
	if err != nil {
		return fmt.Errorf("signing event: %w", err)
	}
	e.Sig = hex.EncodeToString(sig.Serialize())
	return nil
}

// Verify checks that ID matches the content and Sig is a valid BIP-340
// signature of ID by PubKey.
func (e *Event) Verify() error {
	if e.ComputeID() != e.ID {
		return ErrBadID
	}
	pub, err := parsePublicKey(e.PubKey)
	if err != nil {
		return err
	}
	sigBytes, err := hex.DecodeString(e.Sig)
	if err != nil {
		return ErrBadSignature
	}
	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return ErrBadSignature
	}
	id, _ := hex.DecodeString(e.ID)
	if !sig.Verify(id, pub) {
		return ErrBadSignature
	}
	return nil
}

// writeString writes s as a JSON string using the NIP-01 escaping rules.
func writeString(b *bytes.Buffer, s string) {
	b.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if c < 0x20 {
				fmt.Fprintf(b, `\u%04x`, c)
				i++
				continue
			}
			if c < utf8.RuneSelf {
				b.WriteByte(c)
				i++
				continue
			}
			_, size := utf8.DecodeRuneInString(s[i:])
			b.WriteString(s[i : i+size])
			i += size
			continue
		}
		i++
	}
	b.WriteByte('"')
}
