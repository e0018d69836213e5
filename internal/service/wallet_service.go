package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ecash-nwc-gateway/internal/core/domain"
	"ecash-nwc-gateway/internal/core/ports"
	"ecash-nwc-gateway/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var reserveRatio = decimal.RequireFromString("0.99")

// WalletServiceImpl implements ports.WalletService on top of the payment
// service and the invoice watcher.
type WalletServiceImpl struct {
	// root bounds the lifetime of invoice watchers started by MakeInvoice.
	root     context.Context
	payments *PaymentService
	watcher  *InvoiceWatcher
	decoder  ports.InvoiceDecoder
	journal  *Journal
	log      zerolog.Logger
}

// NewWalletService creates a WalletServiceImpl. Watchers started by
// MakeInvoice stop when root is cancelled.
func NewWalletService(
	root context.Context,
	payments *PaymentService,
	watcher *InvoiceWatcher,
	decoder ports.InvoiceDecoder,
	journal *Journal,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		root:     root,
		payments: payments,
		watcher:  watcher,
		decoder:  decoder,
		journal:  journal,
		log:      log,
	}
}

// MakeInvoice requests an invoice from the session's mint, registers the
// incoming ledger entry and starts watching it.
func (s *WalletServiceImpl) MakeInvoice(ctx context.Context, sess *domain.Session, amountMsat int64, description string) (*domain.TxRecord, error) {
	if amountMsat <= 0 || amountMsat%1000 != 0 {
		return nil, apperror.Other("amount must end in 000 (remember, we require millisats! But they must always be zero!)")
	}

	var rec domain.TxRecord
	err := sess.Exclusive(func() error {
		quote, err := s.payments.Receive(ctx, sess.MintURL, uint64(amountMsat/1000))
		if err != nil {
			return upstream(err)
		}
		inv, err := s.decoder.Decode(quote.Request)
		if err != nil {
			return apperror.Upstream(fmt.Errorf("decode mint invoice: %w", err))
		}

		rec = domain.TxRecord{
			PaymentHash:     inv.PaymentHash,
			Type:            domain.DirectionIncoming,
			Invoice:         quote.Request,
			Description:     description,
			DescriptionHash: inv.DescriptionHash,
			AmountMsat:      amountMsat,
			CreatedAt:       inv.CreatedAt,
			ExpiresAt:       inv.ExpiresAt,
			QuoteID:         quote.Quote,
		}
		if err := sess.Register(rec); err != nil {
			return apperror.Other(err.Error())
		}
		s.journal.SaveSession(ctx, sess, rec.PaymentHash)
		return nil
	})
	if err != nil {
		return nil, err
	}

	go s.watcher.Watch(s.root, sess, rec.PaymentHash)

	s.log.Info().
		Str("app_pubkey", sess.AppPubkey).
		Str("payment_hash", rec.PaymentHash).
		Int64("amount_msat", amountMsat).
		Msg("Invoice created")
	return &rec, nil
}

// Resume restarts watchers for the incoming entries of a restored session
// that are unsettled or still have proofs to claim, and returns how many were
// started.
func (s *WalletServiceImpl) Resume(sess *domain.Session) int {
	n := 0
	for _, rec := range sess.Records() {
		if rec.Type != domain.DirectionIncoming || rec.QuoteID == "" {
			continue
		}
		if rec.IsSettled() && !rec.NeedsClaim() {
			continue
		}
		go s.watcher.Watch(s.root, sess, rec.PaymentHash)
		n++
	}
	return n
}

// PayInvoice pays a bolt11 invoice from the session balance, keeping 1% of
// the balance back for routing fees.
func (s *WalletServiceImpl) PayInvoice(ctx context.Context, sess *domain.Session, invoice string) (*domain.TxRecord, error) {
	inv, err := s.decoder.Decode(invoice)
	if err != nil {
		return nil, apperror.Other("invalid invoice")
	}

	var rec domain.TxRecord
	err = sess.Exclusive(func() error {
		if existing, ok := sess.Record(inv.PaymentHash); ok && existing.Paid {
			return apperror.Other(domain.ErrAlreadyPaid.Error())
		}

		rec = domain.TxRecord{
			PaymentHash:     inv.PaymentHash,
			Type:            domain.DirectionOutgoing,
			Invoice:         invoice,
			Description:     inv.Description,
			DescriptionHash: inv.DescriptionHash,
			AmountMsat:      inv.AmountMsat,
			CreatedAt:       inv.CreatedAt,
			ExpiresAt:       inv.ExpiresAt,
		}
		if err := sess.Register(rec); err != nil {
			return apperror.Other(err.Error())
		}

		if inv.AmountMsat == 0 {
			return s.reject(ctx, sess, inv.PaymentHash,
				apperror.NotImplemented("amountless invoices are not yet supported by this backend"))
		}

		invoiceSat := inv.AmountSat()
		spendable := reserveRatio.Mul(decimal.NewFromInt(sess.BalanceMsat())).Floor()
		if spendable.LessThan(decimal.NewFromInt(int64(invoiceSat) * 1000)) {
			maxSat := spendable.Div(decimal.NewFromInt(1000)).Floor().IntPart()
			return s.reject(ctx, sess, inv.PaymentHash, apperror.InsufficientBalance(fmt.Sprintf(
				"you must leave 1%% in reserve to pay routing fees so the max amount you can pay is %d sats and this invoice is for %d sats",
				maxSat, invoiceSat,
			)))
		}
		s.journal.SaveSession(ctx, sess, inv.PaymentHash)

		res, err := s.payments.Send(ctx, SendRequest{
			MintURL: sess.MintURL,
			Invoice: invoice,
			Session: sess,
		})
		if err != nil {
			return upstream(err)
		}
		if res.Failure != "" {
			return apperror.Other(res.Failure)
		}

		rec, _ = sess.Record(inv.PaymentHash)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// LookupInvoice finds a ledger entry by invoice or payment hash and refreshes
// its settlement state.
func (s *WalletServiceImpl) LookupInvoice(ctx context.Context, sess *domain.Session, paymentHash, invoice string) (*domain.TxRecord, error) {
	hash := paymentHash
	if invoice != "" {
		if inv, err := s.decoder.Decode(invoice); err == nil {
			hash = inv.PaymentHash
		}
	}
	if hash == "" {
		return nil, apperror.NotFound(ErrRecordNotFound.Error())
	}

	var rec domain.TxRecord
	err := sess.Exclusive(func() error {
		if _, err := s.watcher.check(ctx, sess, hash); err != nil {
			if errors.Is(err, ErrRecordNotFound) {
				return apperror.NotFound(err.Error())
			}
			s.log.Warn().Err(err).Str("payment_hash", hash).Msg("Invoice check failed during lookup")
		}
		var ok bool
		rec, ok = sess.Record(hash)
		if !ok {
			return apperror.NotFound(ErrRecordNotFound.Error())
		}
		if rec.ErrMsg != "" {
			return apperror.Other(rec.ErrMsg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if invoice != "" {
		rec.Invoice = invoice
	}
	return &rec, nil
}

// ListTransactions filters the session ledger, newest first, then applies
// offset and limit.
func (s *WalletServiceImpl) ListTransactions(sess *domain.Session, filter domain.TxFilter) []domain.TxRecord {
	out := make([]domain.TxRecord, 0)
	for _, rec := range sess.Records() {
		if !filter.Unpaid && !rec.Paid {
			continue
		}
		if filter.Type != "" && rec.Type != filter.Type {
			continue
		}
		if filter.From != nil && rec.CreatedAt < *filter.From {
			continue
		}
		if filter.Until != nil && rec.CreatedAt > *filter.Until {
			continue
		}
		out = append(out, rec)
	}

	if filter.Offset != nil && *filter.Offset > 0 {
		if *filter.Offset >= len(out) {
			return out[:0]
		}
		out = out[*filter.Offset:]
	}
	if filter.Limit != nil && *filter.Limit >= 0 && *filter.Limit < len(out) {
		out = out[:*filter.Limit]
	}
	return out
}

// SendToken packs amountSat of the wallet's proofs into a portable token.
func (s *WalletServiceImpl) SendToken(ctx context.Context, mintURL string, amountSat uint64) (string, error) {
	res, err := s.payments.Send(ctx, SendRequest{MintURL: mintURL, Amount: amountSat})
	if err != nil {
		return "", upstream(err)
	}
	return res.Token, nil
}

// Balance summarizes the proof store.
func (s *WalletServiceImpl) Balance() ports.WalletBalance {
	store := s.payments.Store()
	return ports.WalletBalance{
		Sats:   store.Balance(),
		Proofs: store.Len(),
	}
}

// reject records appErr on the ledger entry and returns it.
func (s *WalletServiceImpl) reject(ctx context.Context, sess *domain.Session, hash string, appErr *apperror.AppError) error {
	sess.Update(hash, func(r *domain.TxRecord) { r.ErrMsg = appErr.Message })
	s.journal.SaveSession(ctx, sess, hash)
	return appErr
}

// upstream passes AppErrors through and hides anything else behind a
// generic mint failure.
func upstream(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperror.Upstream(err)
}

// ParseDirection validates a list_transactions type filter.
func ParseDirection(v string) (domain.Direction, error) {
	d := domain.Direction(strings.ToLower(v))
	if v == "" {
		return "", nil
	}
	if !d.Valid() {
		return "", apperror.Other(fmt.Sprintf("unknown transaction type %q", v))
	}
	return d, nil
}
