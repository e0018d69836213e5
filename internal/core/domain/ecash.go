package domain

// Proof is a spendable bearer token: a mint signature over a secret.
type Proof struct {
	ID     string `json:"id"`
	Amount uint64 `json:"amount"`
	Secret string `json:"secret"`
	C      string `json:"C"`
}

// BlindedOutput is a blinded signature request sent to the mint.
type BlindedOutput struct {
	Amount uint64 `json:"amount"`
	ID     string `json:"id"`
	B      string `json:"B_"`
}

// BlindSignature is the mint's answer to a BlindedOutput.
type BlindSignature struct {
	ID     string `json:"id"`
	Amount uint64 `json:"amount"`
	C      string `json:"C_"`
}

// Keyset describes one entry of GET /v1/keysets.
type Keyset struct {
	ID     string `json:"id"`
	Unit   string `json:"unit"`
	Active bool   `json:"active"`
}

// MintQuote is the mint's answer to a bolt11 mint quote request.
type MintQuote struct {
	Quote   string `json:"quote"`
	Request string `json:"request"`
	Expiry  int64  `json:"expiry"`
}

// MeltQuote is the mint's answer to a bolt11 melt quote request.
type MeltQuote struct {
	Quote      string `json:"quote"`
	Amount     uint64 `json:"amount"`
	FeeReserve uint64 `json:"fee_reserve"`
}

// MeltResult is the outcome of paying a melt quote.
type MeltResult struct {
	Paid     bool
	Preimage string
	Change   []BlindSignature
}

// SumProofs returns the total amount held by proofs.
func SumProofs(proofs []Proof) uint64 {
	var total uint64
	for _, p := range proofs {
		total += p.Amount
	}
	return total
}
