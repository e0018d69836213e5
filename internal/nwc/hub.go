package nwc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ecash-nwc-gateway/internal/adapter/relay"
	"ecash-nwc-gateway/internal/core/domain"
	"ecash-nwc-gateway/internal/service"
	"ecash-nwc-gateway/pkg/logger"

	"github.com/rs/zerolog"
)

// Hub runs one relay Manager per session and routes its frames to the
// Bridge. It implements ports.SessionOpener.
type Hub struct {
	// root bounds the lifetime of every relay supervisor.
	root     context.Context
	registry *service.SessionRegistry
	bridge   *Bridge
	dialer   relay.Dialer
	journal  *service.Journal
	waitUnit time.Duration
	log      zerolog.Logger

	wg sync.WaitGroup
}

// NewHub creates a Hub. Supervisors stop when root is cancelled.
func NewHub(
	root context.Context,
	registry *service.SessionRegistry,
	bridge *Bridge,
	dialer relay.Dialer,
	journal *service.Journal,
	waitUnit time.Duration,
	log zerolog.Logger,
) *Hub {
	return &Hub{
		root:     root,
		registry: registry,
		bridge:   bridge,
		dialer:   dialer,
		journal:  journal,
		waitUnit: waitUnit,
		log:      logger.Component(log, "hub"),
	}
}

// Open creates a session, starts its relay supervisor and waits until the
// relay socket is open. The session is persisted only once the relay is
// reachable; on any failure its supervisor is stopped and it is unregistered.
func (h *Hub) Open(ctx context.Context, params domain.SessionParams) (*domain.Session, error) {
	sess, err := h.registry.Create(params)
	if err != nil {
		return nil, err
	}

	m, stop := h.start(sess)
	if err := m.WaitOpen(ctx); err != nil {
		stop()
		h.registry.Remove(sess.AppPubkey)
		h.log.Warn().Err(err).Str("app_pubkey", sess.AppPubkey).Str("relay", sess.Relay).Msg("NWC session abandoned")
		if errors.Is(err, relay.ErrPermanentFailure) {
			return nil, fmt.Errorf("relay %s: %w", sess.Relay, err)
		}
		return nil, err
	}
	h.journal.SaveSession(ctx, sess)

	h.log.Info().
		Str("app_pubkey", sess.AppPubkey).
		Str("relay", sess.Relay).
		Str("mint", sess.MintURL).
		Msg("NWC session open")
	return sess, nil
}

// Start launches the relay supervisor for an already registered session.
func (h *Hub) Start(sess *domain.Session) *relay.Manager {
	m, _ := h.start(sess)
	return m
}

// start launches the supervisor under its own context derived from root;
// the returned func stops it.
func (h *Hub) start(sess *domain.Session) (*relay.Manager, context.CancelFunc) {
	ctx, cancel := context.WithCancel(h.root)

	var m *relay.Manager
	m = relay.NewManager(relay.Config{
		URL:         sess.Relay,
		AppPubkey:   sess.AppPubkey,
		AppPrivkey:  sess.AppPrivkey,
		Permissions: sess.Permissions,
		WaitUnit:    h.waitUnit,
	}, h.dialer, func(ctx context.Context, frame []byte) {
		h.bridge.HandleFrame(ctx, frame, m)
	}, logger.Session(h.log, sess.AppPubkey))

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer cancel()
		err := m.Run(ctx)
		switch {
		case err == nil, errors.Is(err, context.Canceled):
		case errors.Is(err, relay.ErrPermanentFailure):
			h.log.Error().Str("app_pubkey", sess.AppPubkey).Msg("relay supervisor stopped, session offline")
		default:
			h.log.Error().Err(err).Str("app_pubkey", sess.AppPubkey).Msg("relay supervisor stopped")
		}
	}()
	return m, cancel
}

// Wait blocks until every supervisor has returned.
func (h *Hub) Wait() {
	h.wg.Wait()
}
