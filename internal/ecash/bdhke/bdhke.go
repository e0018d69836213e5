// Package bdhke implements the blind Diffie-Hellman key exchange used by
// Cashu mints (NUT-00) on secp256k1.
package bdhke

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
)

const domainSeparator = "Secp256k1_HashToCurve_Cashu_"

// ErrNoValidPoint is returned when hash_to_curve exhausts its counter.
var ErrNoValidPoint = errors.New("bdhke: no valid curve point found")

// HashToCurve maps a message to a curve point Y.
func HashToCurve(message []byte) (*btcec.PublicKey, error) {
	msgHash := sha256.Sum256(append([]byte(domainSeparator), message...))

	var counter [4]byte
	buf := make([]byte, 0, len(msgHash)+len(counter))
	for i := uint32(0); i < 1<<16; i++ {
		binary.LittleEndian.PutUint32(counter[:], i)
		buf = append(append(buf[:0], msgHash[:]...), counter[:]...)
		h := sha256.Sum256(buf)

		point, err := btcec.ParsePubKey(append([]byte{0x02}, h[:]...))
		if err == nil {
			return point, nil
		}
	}
	return nil, ErrNoValidPoint
}

// Blind returns B_ = Y + rG for the given secret.
func Blind(secret []byte, r *btcec.PrivateKey) (*btcec.PublicKey, error) {
	y, err := HashToCurve(secret)
	if err != nil {
		return nil, err
	}
	return add(y, r.PubKey()), nil
}

// Sign is the mint side of the exchange: C_ = kB_.
func Sign(blinded *btcec.PublicKey, k *btcec.PrivateKey) *btcec.PublicKey {
	return mul(&k.Key, blinded)
}

// Unblind returns C = C_ - rK.
func Unblind(blindSig *btcec.PublicKey, r *btcec.PrivateKey, mintKey *btcec.PublicKey) *btcec.PublicKey {
	return add(blindSig, negate(mul(&r.Key, mintKey)))
}

// Verify checks C == kY for a secret. Only the mint can run it.
func Verify(secret []byte, k *btcec.PrivateKey, c *btcec.PublicKey) bool {
	y, err := HashToCurve(secret)
	if err != nil {
		return false
	}
	return mul(&k.Key, y).IsEqual(c)
}

func add(a, b *btcec.PublicKey) *btcec.PublicKey {
	var aj, bj, sum btcec.JacobianPoint
	a.AsJacobian(&aj)
	b.AsJacobian(&bj)
	btcec.AddNonConst(&aj, &bj, &sum)
	sum.ToAffine()
	return btcec.NewPublicKey(&sum.X, &sum.Y)
}

func mul(k *btcec.ModNScalar, p *btcec.PublicKey) *btcec.PublicKey {
	var pj, out btcec.JacobianPoint
	p.AsJacobian(&pj)
	btcec.ScalarMultNonConst(k, &pj, &out)
	out.ToAffine()
	return btcec.NewPublicKey(&out.X, &out.Y)
}

func negate(p *btcec.PublicKey) *btcec.PublicKey {
	var pj btcec.JacobianPoint
	p.AsJacobian(&pj)
	pj.Y.Negate(1)
	pj.Y.Normalize()
	return btcec.NewPublicKey(&pj.X, &pj.Y)
}
