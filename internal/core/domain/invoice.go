package domain

// Invoice holds the bolt11 fields the wallet cares about.
type Invoice struct {
	PaymentHash     string
	AmountMsat      int64 // zero for amountless invoices
	Description     string
	DescriptionHash string
	CreatedAt       int64
	ExpiresAt       int64
}

// AmountSat rounds the invoice amount up to whole sats.
func (i *Invoice) AmountSat() uint64 {
	if i.AmountMsat <= 0 {
		return 0
	}
	return uint64((i.AmountMsat + 999) / 1000)
}

// ChainTip is the latest block seen by the chain info source.
type ChainTip struct {
	Height int64
	Hash   string
}
