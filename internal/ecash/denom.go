// Package ecash holds the client side of the Cashu token lifecycle:
// denomination planning, blinded issuance, the proof store and the portable
// token encoding. Nothing here performs network I/O.
package ecash

import (
	"errors"
	"fmt"
	"math/bits"
)

// ErrInvalidAmount is returned for amounts that cannot be decomposed.
var ErrInvalidAmount = errors.New("ecash: invalid amount")

// Decompose splits amount into powers of two, largest first. Zero yields an
// empty plan; the plan length is the population count of amount.
func Decompose(amount int64) ([]uint64, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}

	remaining := uint64(amount)
	plan := make([]uint64, 0, bits.OnesCount64(remaining))
	for remaining > 0 {
		largest := uint64(1) << (bits.Len64(remaining) - 1)
		plan = append(plan, largest)
		remaining -= largest
	}
	return plan, nil
}

// BlankOutputCount is the number of blank outputs to offer the mint for a
// fee reserve refund (NUT-08): max(1, ceil(log2(feeReserve))).
func BlankOutputCount(feeReserve uint64) int {
	if feeReserve <= 1 {
		return 1
	}
	return bits.Len64(feeReserve - 1)
}
