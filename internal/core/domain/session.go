package domain

import (
	"errors"
	"sort"
	"sync"
)

// Method is an NWC command name.
type Method string

const (
	MethodGetInfo          Method = "get_info"
	MethodGetBalance       Method = "get_balance"
	MethodMakeInvoice      Method = "make_invoice"
	MethodLookupInvoice    Method = "lookup_invoice"
	MethodListTransactions Method = "list_transactions"
	MethodPayInvoice       Method = "pay_invoice"
)

// KnownMethods lists every command the bridge implements.
var KnownMethods = []Method{
	MethodPayInvoice,
	MethodGetBalance,
	MethodMakeInvoice,
	MethodLookupInvoice,
	MethodListTransactions,
	MethodGetInfo,
}

// IsKnown reports whether m is implemented.
func (m Method) IsKnown() bool {
	for _, k := range KnownMethods {
		if k == m {
			return true
		}
	}
	return false
}

// ErrAlreadyPaid is returned when a ledger entry for the hash is already paid.
var ErrAlreadyPaid = errors.New("invoice already paid")

// SessionParams describes a session to create. Empty keys are generated.
type SessionParams struct {
	MintURL     string
	Relay       string
	Permissions []Method
	AppPrivkey  string
	UserSecret  string
}

// SessionSnapshot is the persisted form of a Session.
type SessionSnapshot struct {
	AppPrivkey  string
	AppPubkey   string
	UserSecret  string
	UserPubkey  string
	Relay       string
	MintURL     string
	Permissions []Method
	BalanceMsat int64
	Records     []TxRecord
}

// Session is one app identity connected over NWC. Identity fields are
// immutable after creation; balance and ledger go through the methods.
type Session struct {
	AppPrivkey       string
	AppPubkey        string
	UserSecret       string
	UserPubkey       string
	Relay            string
	MintURL          string
	Permissions      []Method
	ConnectionString string

	op sync.Mutex

	mu          sync.Mutex
	balanceMsat int64
	ledger      map[string]*TxRecord
}

// NewSession creates a session with an empty ledger.
func NewSession(snap SessionSnapshot, connectionString string) *Session {
	s := &Session{
		AppPrivkey:       snap.AppPrivkey,
		AppPubkey:        snap.AppPubkey,
		UserSecret:       snap.UserSecret,
		UserPubkey:       snap.UserPubkey,
		Relay:            snap.Relay,
		MintURL:          snap.MintURL,
		Permissions:      append([]Method(nil), snap.Permissions...),
		ConnectionString: connectionString,
		balanceMsat:      snap.BalanceMsat,
		ledger:           make(map[string]*TxRecord, len(snap.Records)),
	}
	for i := range snap.Records {
		rec := snap.Records[i]
		s.ledger[rec.PaymentHash] = &rec
	}
	return s
}

// Exclusive runs fn while holding the session's operation lock. Every
// balance- or ledger-mutating operation goes through here; fn must not call
// Exclusive again.
func (s *Session) Exclusive(fn func() error) error {
	s.op.Lock()
	defer s.op.Unlock()
	return fn()
}

// Allows reports whether m is in the permission set.
func (s *Session) Allows(m Method) bool {
	for _, p := range s.Permissions {
		if p == m {
			return true
		}
	}
	return false
}

// BalanceMsat returns the spendable balance of the session.
func (s *Session) BalanceMsat() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balanceMsat
}

// Credit adds msat to the balance.
func (s *Session) Credit(msat int64) {
	s.mu.Lock()
	s.balanceMsat += msat
	s.mu.Unlock()
}

// Debit removes msat from the balance.
func (s *Session) Debit(msat int64) {
	s.mu.Lock()
	s.balanceMsat -= msat
	s.mu.Unlock()
}

// Record returns a copy of the ledger entry for hash.
func (s *Session) Record(hash string) (TxRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.ledger[hash]
	if !ok {
		return TxRecord{}, false
	}
	return *rec, true
}

// Register stores rec under its payment hash. An unpaid entry with the same
// hash is replaced; a paid one is never overwritten.
func (s *Session) Register(rec TxRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.ledger[rec.PaymentHash]; ok && existing.Paid {
		return ErrAlreadyPaid
	}
	s.ledger[rec.PaymentHash] = &rec
	return nil
}

// Update applies fn to the entry for hash and returns the updated copy.
func (s *Session) Update(hash string, fn func(*TxRecord)) (TxRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.ledger[hash]
	if !ok {
		return TxRecord{}, false
	}
	fn(rec)
	return *rec, true
}

// Records returns a copy of the ledger, newest first.
func (s *Session) Records() []TxRecord {
	s.mu.Lock()
	out := make([]TxRecord, 0, len(s.ledger))
	for _, rec := range s.ledger {
		out = append(out, *rec)
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt == out[j].CreatedAt {
			return out[i].PaymentHash < out[j].PaymentHash
		}
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out
}

// Snapshot returns the persisted form of the session.
func (s *Session) Snapshot() SessionSnapshot {
	return SessionSnapshot{
		AppPrivkey:  s.AppPrivkey,
		AppPubkey:   s.AppPubkey,
		UserSecret:  s.UserSecret,
		UserPubkey:  s.UserPubkey,
		Relay:       s.Relay,
		MintURL:     s.MintURL,
		Permissions: append([]Method(nil), s.Permissions...),
		BalanceMsat: s.BalanceMsat(),
		Records:     s.Records(),
	}
}
