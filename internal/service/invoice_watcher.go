package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecash-nwc-gateway/internal/core/domain"
	"ecash-nwc-gateway/internal/core/ports"
	"ecash-nwc-gateway/pkg/metrics"

	"github.com/rs/zerolog"
)

// ErrRecordNotFound is returned when a session has no ledger entry for a hash.
var ErrRecordNotFound = errors.New("invoice not found")

// DefaultPollInterval is how often an unpaid incoming invoice is re-checked.
const DefaultPollInterval = 20 * time.Second

// InvoiceWatcher settles incoming invoices once the mint reports them paid.
type InvoiceWatcher struct {
	mint     ports.MintClient
	payments *PaymentService
	journal  *Journal
	interval time.Duration
	log      zerolog.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewInvoiceWatcher creates a watcher polling every interval.
func NewInvoiceWatcher(
	mint ports.MintClient,
	payments *PaymentService,
	journal *Journal,
	interval time.Duration,
	log zerolog.Logger,
) *InvoiceWatcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &InvoiceWatcher{
		mint:     mint,
		payments: payments,
		journal:  journal,
		interval: interval,
		log:      log,
		now:      time.Now,
		after:    time.After,
	}
}

// Watch polls the entry for hash until it settles and its proofs are
// claimed, it expires or ctx ends.
func (w *InvoiceWatcher) Watch(ctx context.Context, sess *domain.Session, hash string) {
	log := w.log.With().Str("payment_hash", hash).Logger()
	for {
		settled, err := w.Check(ctx, sess, hash)
		if err != nil {
			if errors.Is(err, ErrRecordNotFound) {
				return
			}
			log.Warn().Err(err).Msg("Invoice check failed")
		}
		if settled && err == nil {
			return
		}

		rec, ok := sess.Record(hash)
		if !ok {
			return
		}
		if w.now().Unix() >= rec.ExpiresAt {
			log.Debug().Msg("Invoice expired unpaid")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-w.after(w.interval):
		}
	}
}

// Check reports whether the entry for hash is settled, asking the mint for
// incoming entries that are not yet. A settled entry whose proofs were never
// issued is claimed again; the error then reports the failed claim. It holds
// the session operation lock.
func (w *InvoiceWatcher) Check(ctx context.Context, sess *domain.Session, hash string) (bool, error) {
	var settled bool
	err := sess.Exclusive(func() error {
		var err error
		settled, err = w.check(ctx, sess, hash)
		return err
	})
	return settled, err
}

// check is Check for callers already holding the session lock.
func (w *InvoiceWatcher) check(ctx context.Context, sess *domain.Session, hash string) (bool, error) {
	rec, ok := sess.Record(hash)
	if !ok {
		return false, ErrRecordNotFound
	}
	if rec.NeedsClaim() {
		return true, w.claim(ctx, sess, rec)
	}
	if rec.IsSettled() || rec.Type != domain.DirectionIncoming || rec.QuoteID == "" {
		return rec.IsSettled(), nil
	}

	paid, err := w.mint.MintQuotePaid(ctx, sess.MintURL, rec.QuoteID)
	if err != nil {
		return false, err
	}
	if !paid {
		return false, nil
	}

	var first bool
	now := w.now().Unix()
	sess.Update(hash, func(r *domain.TxRecord) {
		first = r.Settle(now)
	})
	if !first {
		return true, nil
	}

	sess.Credit(rec.AmountMsat)
	w.journal.SaveSession(ctx, sess, hash)
	metrics.InvoicesSettled.WithLabelValues(string(domain.DirectionIncoming)).Inc()
	w.log.Info().
		Str("payment_hash", hash).
		Int64("amount_msat", rec.AmountMsat).
		Msg("Invoice settled")

	return true, w.claim(ctx, sess, rec)
}

// claim mints the proofs for a settled incoming entry and marks it minted.
// On failure the entry stays claimable for the next check.
func (w *InvoiceWatcher) claim(ctx context.Context, sess *domain.Session, rec domain.TxRecord) error {
	if err := w.payments.MintPaid(ctx, sess.MintURL, rec.QuoteID, uint64(rec.AmountMsat/1000)); err != nil {
		w.log.Error().Err(err).
			Str("payment_hash", rec.PaymentHash).
			Str("quote", rec.QuoteID).
			Msg("Failed to mint proofs for paid invoice")
		return fmt.Errorf("claiming quote %s: %w", rec.QuoteID, err)
	}

	sess.Update(rec.PaymentHash, func(r *domain.TxRecord) { r.Minted = true })
	w.journal.SaveSession(ctx, sess, rec.PaymentHash)
	return nil
}
