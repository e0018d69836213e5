package handler

import (
	"errors"
	"net/http"

	"ecash-nwc-gateway/internal/adapter/http/dto"
	"ecash-nwc-gateway/internal/adapter/relay"
	"ecash-nwc-gateway/internal/core/domain"
	"ecash-nwc-gateway/internal/core/ports"
	"ecash-nwc-gateway/internal/service"
	"ecash-nwc-gateway/pkg/apperror"
	"ecash-nwc-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// SessionDefaults fills fields a create request leaves empty.
type SessionDefaults struct {
	MintURL     string
	Relay       string
	Permissions []domain.Method
}

// SessionHandler manages NWC sessions and their Lightning helpers.
type SessionHandler struct {
	sessions ports.SessionDirectory
	opener   ports.SessionOpener
	wallet   ports.WalletService
	defaults SessionDefaults
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(
	sessions ports.SessionDirectory,
	opener ports.SessionOpener,
	wallet ports.WalletService,
	defaults SessionDefaults,
) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		opener:   opener,
		wallet:   wallet,
		defaults: defaults,
	}
}

// Create handles POST /api/v1/sessions.
func (h *SessionHandler) Create(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.TrimStruct(&req)

	params := domain.SessionParams{
		MintURL:     req.MintURL,
		Relay:       req.Relay,
		Permissions: h.defaults.Permissions,
		AppPrivkey:  req.AppPrivkey,
		UserSecret:  req.UserSecret,
	}
	if params.MintURL == "" {
		params.MintURL = h.defaults.MintURL
	}
	if params.Relay == "" {
		params.Relay = h.defaults.Relay
	}
	if len(req.Permissions) > 0 {
		params.Permissions = make([]domain.Method, len(req.Permissions))
		for i, p := range req.Permissions {
			params.Permissions[i] = domain.Method(p)
		}
	}

	sess, err := h.opener.Open(c.Request.Context(), params)
	if err != nil {
		response.Error(c, openError(err))
		return
	}

	response.Created(c, dto.ToSessionResponse(sess, true))
}

// Get handles GET /api/v1/sessions/:pubkey.
func (h *SessionHandler) Get(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	response.OK(c, dto.ToSessionResponse(sess, false))
}

// CreateInvoice handles POST /api/v1/sessions/:pubkey/invoices.
func (h *SessionHandler) CreateInvoice(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	var req dto.InvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	rec, err := h.wallet.MakeInvoice(c.Request.Context(), sess, req.Amount, req.Description)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, rec.View())
}

// PayInvoice handles POST /api/v1/sessions/:pubkey/payments.
func (h *SessionHandler) PayInvoice(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.TrimStruct(&req)

	rec, err := h.wallet.PayInvoice(c.Request.Context(), sess, req.Invoice)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.PaymentResponse{
		PaymentHash: rec.PaymentHash,
		Preimage:    rec.Preimage,
		FeesPaid:    rec.FeesPaidMsat,
	})
}

func (h *SessionHandler) lookup(c *gin.Context) (*domain.Session, bool) {
	sess, ok := h.sessions.Lookup(c.Param("pubkey"))
	if !ok {
		response.Error(c, apperror.NotFound("session not found"))
		return nil, false
	}
	return sess, true
}

func openError(err error) error {
	switch {
	case errors.Is(err, service.ErrSessionExists):
		return apperror.New(apperror.CodeOther, err.Error(), http.StatusConflict)
	case errors.Is(err, relay.ErrPermanentFailure):
		return apperror.Wrap(apperror.CodeOther, "relay unreachable", http.StatusBadGateway, err)
	default:
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperror.Validation(err.Error())
	}
}
