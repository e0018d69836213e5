package handler

import (
	"ecash-nwc-gateway/internal/adapter/http/dto"
	"ecash-nwc-gateway/internal/core/ports"
	"ecash-nwc-gateway/pkg/apperror"
	"ecash-nwc-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler exposes the shared proof store.
type WalletHandler struct {
	wallet  ports.WalletService
	mintURL string
}

// NewWalletHandler creates a new WalletHandler. mintURL is used when a send
// request names no mint.
func NewWalletHandler(wallet ports.WalletService, mintURL string) *WalletHandler {
	return &WalletHandler{wallet: wallet, mintURL: mintURL}
}

// GetBalance handles GET /api/v1/wallet.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	bal := h.wallet.Balance()
	response.OK(c, dto.WalletBalanceResponse{
		Balance: bal.Sats,
		Proofs:  bal.Proofs,
	})
}

// SendToken handles POST /api/v1/wallet/send.
func (h *WalletHandler) SendToken(c *gin.Context) {
	var req dto.SendTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.TrimStruct(&req)

	mintURL := req.MintURL
	if mintURL == "" {
		mintURL = h.mintURL
	}

	token, err := h.wallet.SendToken(c.Request.Context(), mintURL, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.SendTokenResponse{Token: token})
}
