package domain

// Direction tells whether a ledger entry moved money in or out of a session.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	return d == DirectionIncoming || d == DirectionOutgoing
}

// TxRecord is one entry of a session's ledger, keyed by payment hash.
// Timestamps are unix seconds, amounts are millisatoshis.
type TxRecord struct {
	PaymentHash     string
	Type            Direction
	Invoice         string
	Description     string
	DescriptionHash string
	Preimage        string
	AmountMsat      int64
	FeesPaidMsat    int64
	CreatedAt       int64
	ExpiresAt       int64
	SettledAt       *int64
	Paid            bool
	ErrMsg          string
	QuoteID         string
	// Minted is set once the proofs for a settled incoming entry are issued.
	Minted bool
}

// IsSettled returns true once settledAt has been recorded.
func (r *TxRecord) IsSettled() bool {
	return r.SettledAt != nil
}

// NeedsClaim reports whether a settled incoming entry still has proofs to
// claim from the mint.
func (r *TxRecord) NeedsClaim() bool {
	return r.Type == DirectionIncoming && r.QuoteID != "" && r.IsSettled() && !r.Minted
}

// Settle marks the record paid at the given time. It returns false when the
// record was already settled, leaving it untouched.
func (r *TxRecord) Settle(at int64) bool {
	if r.SettledAt != nil {
		return false
	}
	r.SettledAt = &at
	r.Paid = true
	return true
}

// TxView is the NWC wire shape of a ledger entry. The mint quote is kept out.
type TxView struct {
	Type            Direction `json:"type"`
	Invoice         string    `json:"invoice"`
	Bolt11          string    `json:"bolt11"`
	Description     string    `json:"description"`
	DescriptionHash string    `json:"description_hash"`
	Preimage        string    `json:"preimage"`
	PaymentHash     string    `json:"payment_hash"`
	Amount          int64     `json:"amount"`
	FeesPaid        int64     `json:"fees_paid"`
	CreatedAt       int64     `json:"created_at"`
	ExpiresAt       int64     `json:"expires_at"`
	SettledAt       *int64    `json:"settled_at"`
}

// View builds the wire shape of the record.
func (r TxRecord) View() TxView {
	return TxView{
		Type:            r.Type,
		Invoice:         r.Invoice,
		Bolt11:          r.Invoice,
		Description:     r.Description,
		DescriptionHash: r.DescriptionHash,
		Preimage:        r.Preimage,
		PaymentHash:     r.PaymentHash,
		Amount:          r.AmountMsat,
		FeesPaid:        r.FeesPaidMsat,
		CreatedAt:       r.CreatedAt,
		ExpiresAt:       r.ExpiresAt,
		SettledAt:       r.SettledAt,
	}
}

// TxFilter selects ledger entries for list_transactions.
type TxFilter struct {
	From   *int64
	Until  *int64
	Limit  *int
	Offset *int
	Unpaid bool
	Type   Direction
}
