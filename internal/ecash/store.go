package ecash

import (
	"errors"
	"fmt"
	"sync"

	"ecash-nwc-gateway/internal/core/domain"
)

// ErrProofNotHeld is returned when removing a proof the store does not hold.
var ErrProofNotHeld = errors.New("ecash: proof not held")

// TokenStore is the wallet's set of unspent proofs. Its sum is the wallet
// balance.
type TokenStore struct {
	mu     sync.Mutex
	proofs map[string]domain.Proof
	order  []string
}

// NewTokenStore creates a store holding proofs.
func NewTokenStore(proofs ...domain.Proof) *TokenStore {
	s := &TokenStore{proofs: make(map[string]domain.Proof)}
	s.Add(proofs...)
	return s
}

// Add stores proofs. A proof whose secret is already held is ignored.
func (s *TokenStore) Add(proofs ...domain.Proof) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range proofs {
		if _, ok := s.proofs[p.Secret]; ok {
			continue
		}
		s.proofs[p.Secret] = p
		s.order = append(s.order, p.Secret)
	}
}

// Remove takes proofs out of the store. Either all of them are removed or,
// if any is missing, none.
func (s *TokenStore) Remove(proofs []domain.Proof) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[string]struct{}, len(proofs))
	for _, p := range proofs {
		if _, ok := s.proofs[p.Secret]; !ok {
			return fmt.Errorf("%w: %s", ErrProofNotHeld, p.Secret)
		}
		drop[p.Secret] = struct{}{}
	}

	kept := s.order[:0]
	for _, secret := range s.order {
		if _, ok := drop[secret]; ok {
			delete(s.proofs, secret)
			continue
		}
		kept = append(kept, secret)
	}
	s.order = kept
	return nil
}

// Proofs returns a copy of the held proofs in insertion order.
func (s *TokenStore) Proofs() []domain.Proof {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Proof, 0, len(s.order))
	for _, secret := range s.order {
		out = append(out, s.proofs[secret])
	}
	return out
}

// Balance returns the sum of held proof amounts.
func (s *TokenStore) Balance() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total uint64
	for _, p := range s.proofs {
		total += p.Amount
	}
	return total
}

// Len returns the number of held proofs.
func (s *TokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.proofs)
}
