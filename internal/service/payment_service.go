package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ecash-nwc-gateway/internal/core/domain"
	"ecash-nwc-gateway/internal/core/ports"
	"ecash-nwc-gateway/internal/ecash"
	"ecash-nwc-gateway/pkg/apperror"
	"ecash-nwc-gateway/pkg/metrics"

	"github.com/rs/zerolog"
)

// PaymentFailed is the Failure text of a melt the mint did not complete.
const PaymentFailed = "payment failed"

// SendRequest describes one outgoing payment. Exactly one of Invoice and
// Amount is used: a non-empty Invoice is paid over lightning, otherwise Amount
// sats are packed into a portable token.
type SendRequest struct {
	MintURL string
	Invoice string
	Amount  uint64
	// Session, when set, is debited for an invoice payment and its ledger
	// entry for the invoice hash is updated with the outcome.
	Session *domain.Session
}

// SendResult is the outcome of Send. Failure is set when the mint refused
// the melt; the wallet state has then been rolled back.
type SendResult struct {
	Preimage string
	Token    string
	Failure  string
}

// PaymentService moves value between lightning and the wallet's proofs.
type PaymentService struct {
	mint     ports.MintClient
	decoder  ports.InvoiceDecoder
	store    *ecash.TokenStore
	selector ecash.SpendSelector
	journal  *Journal
	log      zerolog.Logger
	now      func() time.Time

	// spendMu serializes input selection across sessions.
	spendMu sync.Mutex
}

// NewPaymentService creates a PaymentService spending from store.
func NewPaymentService(
	mint ports.MintClient,
	decoder ports.InvoiceDecoder,
	store *ecash.TokenStore,
	selector ecash.SpendSelector,
	journal *Journal,
	log zerolog.Logger,
) *PaymentService {
	if selector == nil {
		selector = ecash.SelectAll{}
	}
	s := &PaymentService{
		mint:     mint,
		decoder:  decoder,
		store:    store,
		selector: selector,
		journal:  journal,
		log:      log,
		now:      time.Now,
	}
	metrics.WalletBalance.Set(float64(store.Balance()))
	return s
}

// Store returns the proof store the service spends from.
func (s *PaymentService) Store() *ecash.TokenStore {
	return s.store
}

// Receive asks the mint for a lightning invoice worth amountSat. The caller
// registers the ledger entry and watches the quote.
func (s *PaymentService) Receive(ctx context.Context, mintURL string, amountSat uint64) (*domain.MintQuote, error) {
	if amountSat == 0 {
		return nil, apperror.Other("amount must be positive")
	}
	quote, err := s.mint.RequestMintQuote(ctx, mintURL, amountSat)
	if err != nil {
		return nil, fmt.Errorf("request mint quote: %w", err)
	}
	return quote, nil
}

// MintPaid claims the proofs for a paid mint quote.
func (s *PaymentService) MintPaid(ctx context.Context, mintURL, quoteID string, amountSat uint64) error {
	amounts, err := ecash.Decompose(int64(amountSat))
	if err != nil {
		return err
	}

	keysetID, err := s.mint.ActiveKeyset(ctx, mintURL)
	if err != nil {
		return fmt.Errorf("active keyset: %w", err)
	}
	keys, err := s.keys(ctx, mintURL, keysetID)
	if err != nil {
		return err
	}

	outputs, pending, err := ecash.RequestOutputs(amounts, keysetID)
	if err != nil {
		return err
	}
	sigs, err := s.mint.Mint(ctx, mintURL, quoteID, outputs)
	if err != nil {
		return fmt.Errorf("mint quote %s: %w", quoteID, err)
	}
	proofs, err := ecash.Finalize(sigs, pending, keys)
	if err != nil {
		return fmt.Errorf("finalize quote %s: %w", quoteID, err)
	}

	s.store.Add(proofs...)
	s.persistProofs(ctx)

	s.log.Info().
		Str("quote", quoteID).
		Uint64("amount_sat", amountSat).
		Int("proofs", len(proofs)).
		Msg("Minted proofs")
	return nil
}

// Send pays an invoice from the wallet's proofs or packs a literal amount
// into a portable token.
func (s *PaymentService) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	s.spendMu.Lock()
	defer s.spendMu.Unlock()

	var (
		inv    *domain.Invoice
		quote  *domain.MeltQuote
		amount = req.Amount
	)
	if req.Invoice != "" {
		var err error
		inv, err = s.decoder.Decode(req.Invoice)
		if err != nil {
			return nil, apperror.Other("invalid invoice")
		}
		quote, err = s.mint.RequestMeltQuote(ctx, req.MintURL, req.Invoice)
		if err != nil {
			return nil, fmt.Errorf("request melt quote: %w", err)
		}
		amount = quote.Amount + quote.FeeReserve
	}

	balance := s.store.Balance()
	if amount < 1 || amount > balance {
		msg := "you cannot send more than you have"
		if inv != nil {
			msg = fmt.Sprintf(
				"you cannot send this amount because you need an extra %d sats to pay for potential LN routing fees. Try sending a bit less",
				int64(amount)-int64(balance),
			)
			s.recordError(ctx, req.Session, inv.PaymentHash, msg)
		}
		return nil, apperror.Other(msg)
	}

	inputs, err := s.selector.Select(s.store.Proofs(), amount)
	if err != nil {
		if errors.Is(err, ecash.ErrInsufficientProofs) {
			return nil, apperror.Other("you cannot send more than you have")
		}
		return nil, err
	}
	if err := s.store.Remove(inputs); err != nil {
		return nil, err
	}

	keysetID := inputs[0].ID
	held, err := s.split(ctx, req.MintURL, keysetID, inputs, amount)
	if err != nil {
		return nil, err
	}

	if inv == nil {
		token, err := ecash.EncodeToken(req.MintURL, held)
		if err != nil {
			s.store.Add(held...)
			s.persistProofs(ctx)
			return nil, err
		}
		s.log.Info().Uint64("amount_sat", amount).Msg("Created ecash token")
		return &SendResult{Token: token}, nil
	}

	return s.melt(ctx, req, inv, quote, keysetID, held)
}

// split turns inputs into proofs worth exactly amount. Change goes back into
// the store. On swap failure the inputs are restored.
func (s *PaymentService) split(ctx context.Context, mintURL, keysetID string, inputs []domain.Proof, amount uint64) ([]domain.Proof, error) {
	change := domain.SumProofs(inputs) - amount
	if change == 0 {
		s.persistProofs(ctx)
		return inputs, nil
	}

	changeAmounts, err := ecash.Decompose(int64(change))
	if err != nil {
		s.store.Add(inputs...)
		return nil, err
	}
	sendAmounts, err := ecash.Decompose(int64(amount))
	if err != nil {
		s.store.Add(inputs...)
		return nil, err
	}

	outputs, pending, err := ecash.RequestOutputs(append(changeAmounts, sendAmounts...), keysetID)
	if err != nil {
		s.store.Add(inputs...)
		return nil, err
	}
	keys, err := s.keys(ctx, mintURL, keysetID)
	if err != nil {
		s.store.Add(inputs...)
		return nil, err
	}

	sigs, err := s.mint.Swap(ctx, mintURL, inputs, outputs)
	if err != nil {
		s.store.Add(inputs...)
		return nil, fmt.Errorf("swap: %w", err)
	}

	// The inputs are spent from here on.
	proofs, err := ecash.Finalize(sigs, pending, keys)
	if err != nil {
		s.persistProofs(ctx)
		return nil, fmt.Errorf("finalize swap: %w", err)
	}

	s.store.Add(proofs[:len(changeAmounts)]...)
	s.persistProofs(ctx)
	return proofs[len(changeAmounts):], nil
}

func (s *PaymentService) melt(
	ctx context.Context,
	req SendRequest,
	inv *domain.Invoice,
	quote *domain.MeltQuote,
	keysetID string,
	held []domain.Proof,
) (*SendResult, error) {
	var (
		blank        []domain.BlindedOutput
		blankPending []ecash.PendingSecret
		err          error
	)
	if quote.FeeReserve > 0 {
		blank, blankPending, err = ecash.RequestBlankOutputs(ecash.BlankOutputCount(quote.FeeReserve), keysetID)
		if err != nil {
			s.store.Add(held...)
			s.persistProofs(ctx)
			return nil, err
		}
	}

	invoiceMsat := int64(inv.AmountSat()) * 1000
	sess := req.Session
	if sess != nil {
		sess.Debit(invoiceMsat)
	}

	res, err := s.mint.Melt(ctx, req.MintURL, quote.Quote, held, blank)
	if err != nil || !res.Paid {
		s.store.Add(held...)
		s.persistProofs(ctx)
		if sess != nil {
			sess.Credit(invoiceMsat)
		}
		s.recordError(ctx, sess, inv.PaymentHash, PaymentFailed)

		ev := s.log.Warn().Str("payment_hash", inv.PaymentHash).Str("quote", quote.Quote)
		if err != nil {
			ev = ev.Err(err)
		}
		ev.Msg("Melt failed, proofs restored")
		return &SendResult{Failure: PaymentFailed}, nil
	}

	var returned uint64
	if len(res.Change) > 0 {
		refund, err := s.refund(ctx, req.MintURL, keysetID, res.Change, blankPending)
		if err != nil {
			s.log.Error().Err(err).Str("quote", quote.Quote).Msg("Failed to claim fee refund")
		} else {
			s.store.Add(refund...)
			returned = domain.SumProofs(refund)
		}
	}
	s.persistProofs(ctx)

	feesMsat := (int64(quote.Amount+quote.FeeReserve) - int64(inv.AmountSat()) - int64(returned)) * 1000
	if feesMsat < 0 {
		feesMsat = 0
	}

	if sess != nil {
		sess.Debit(feesMsat)
		now := s.now().Unix()
		sess.Update(inv.PaymentHash, func(r *domain.TxRecord) {
			r.Preimage = res.Preimage
			r.FeesPaidMsat = feesMsat
			r.ErrMsg = ""
			r.Settle(now)
		})
		s.journal.SaveSession(ctx, sess, inv.PaymentHash)
	}
	metrics.InvoicesSettled.WithLabelValues(string(domain.DirectionOutgoing)).Inc()

	s.log.Info().
		Str("payment_hash", inv.PaymentHash).
		Uint64("amount_sat", inv.AmountSat()).
		Int64("fees_msat", feesMsat).
		Msg("Invoice paid")
	return &SendResult{Preimage: res.Preimage}, nil
}

func (s *PaymentService) refund(
	ctx context.Context,
	mintURL, keysetID string,
	change []domain.BlindSignature,
	pending []ecash.PendingSecret,
) ([]domain.Proof, error) {
	if len(change) > len(pending) {
		return nil, fmt.Errorf("%w: %d refund signatures for %d blank outputs", ecash.ErrProtocol, len(change), len(pending))
	}
	keys, err := s.keys(ctx, mintURL, keysetID)
	if err != nil {
		return nil, err
	}
	return ecash.Finalize(change, pending[:len(change)], keys)
}

func (s *PaymentService) keys(ctx context.Context, mintURL, keysetID string) (ecash.Keys, error) {
	raw, err := s.mint.Keys(ctx, mintURL, keysetID)
	if err != nil {
		return nil, fmt.Errorf("keys for %s: %w", keysetID, err)
	}
	return ecash.ParseKeys(raw)
}

func (s *PaymentService) recordError(ctx context.Context, sess *domain.Session, hash, msg string) {
	if sess == nil {
		return
	}
	if _, ok := sess.Update(hash, func(r *domain.TxRecord) { r.ErrMsg = msg }); ok {
		s.journal.SaveSession(ctx, sess, hash)
	}
}

func (s *PaymentService) persistProofs(ctx context.Context) {
	metrics.WalletBalance.Set(float64(s.store.Balance()))
	s.journal.SaveProofs(ctx, s.store.Proofs())
}
