package ecash

import (
	"errors"

	"ecash-nwc-gateway/internal/core/domain"
)

// ErrInsufficientProofs is returned when the available proofs cannot cover
// the requested amount.
var ErrInsufficientProofs = errors.New("ecash: insufficient proofs")

// SpendSelector picks the proofs offered as swap or melt inputs.
type SpendSelector interface {
	Select(available []domain.Proof, amount uint64) ([]domain.Proof, error)
}

// SelectAll offers every held proof regardless of the amount. It assumes all
// proofs come from the same mint.
type SelectAll struct{}

// Select implements SpendSelector.
func (SelectAll) Select(available []domain.Proof, amount uint64) ([]domain.Proof, error) {
	if domain.SumProofs(available) < amount || len(available) == 0 {
		return nil, ErrInsufficientProofs
	}
	out := make([]domain.Proof, len(available))
	copy(out, available)
	return out, nil
}
