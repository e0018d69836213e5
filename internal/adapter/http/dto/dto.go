package dto

import "ecash-nwc-gateway/internal/core/domain"

// LoginRequest is the request body for operator login.
type LoginRequest struct {
	Password string `json:"password" binding:"required,max=128"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// CreateSessionRequest opens an NWC session. Empty fields fall back to the
// wallet defaults; supplying both keys restores an existing connection.
type CreateSessionRequest struct {
	MintURL     string   `json:"mint_url" binding:"omitempty,safe_url"`
	Relay       string   `json:"relay" binding:"omitempty,relay_url"`
	Permissions []string `json:"permissions" binding:"omitempty,dive,nwc_method"`
	AppPrivkey  string   `json:"app_privkey" binding:"omitempty,hex_key"`
	UserSecret  string   `json:"user_secret" binding:"omitempty,hex_key"`
}

// SessionResponse describes a session. NWCString is only set on creation.
type SessionResponse struct {
	AppPubkey   string   `json:"app_pubkey"`
	UserPubkey  string   `json:"user_pubkey"`
	Relay       string   `json:"relay"`
	MintURL     string   `json:"mint_url"`
	Permissions []string `json:"permissions"`
	BalanceMsat int64    `json:"balance_msat"`
	NWCString   string   `json:"nwc_string,omitempty"`
}

// InvoiceRequest is the receive-LN helper body. Amount is in msat.
type InvoiceRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Description string `json:"description" binding:"max=639"`
}

// PaymentRequest is the send-LN helper body.
type PaymentRequest struct {
	Invoice string `json:"invoice" binding:"required,max=4096"`
}

// PaymentResponse is returned after a settled outgoing payment.
type PaymentResponse struct {
	PaymentHash string `json:"payment_hash"`
	Preimage    string `json:"preimage"`
	FeesPaid    int64  `json:"fees_paid"`
}

// SendTokenRequest asks for a portable token of exactly Amount sats.
type SendTokenRequest struct {
	Amount  uint64 `json:"amount" binding:"required,gt=0"`
	MintURL string `json:"mint_url" binding:"omitempty,safe_url"`
}

// SendTokenResponse carries the serialized cashuA token.
type SendTokenResponse struct {
	Token string `json:"token"`
}

// WalletBalanceResponse is the response for the wallet balance query.
type WalletBalanceResponse struct {
	Balance uint64 `json:"balance"`
	Proofs  int    `json:"proofs"`
}

// ToSessionResponse maps a session. The connection string is included only
// when withSecret is set.
func ToSessionResponse(sess *domain.Session, withSecret bool) SessionResponse {
	perms := make([]string, len(sess.Permissions))
	for i, p := range sess.Permissions {
		perms[i] = string(p)
	}
	resp := SessionResponse{
		AppPubkey:   sess.AppPubkey,
		UserPubkey:  sess.UserPubkey,
		Relay:       sess.Relay,
		MintURL:     sess.MintURL,
		Permissions: perms,
		BalanceMsat: sess.BalanceMsat(),
	}
	if withSecret {
		resp.NWCString = sess.ConnectionString
	}
	return resp
}
