package relay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"ecash-nwc-gateway/internal/core/domain"
	"ecash-nwc-gateway/internal/nostr"
	"ecash-nwc-gateway/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrPermanentFailure is returned by Run when the socket stays CONNECTING
// for two consecutive checks.
var ErrPermanentFailure = errors.New("relay connection failed permanently")

// FrameHandler receives raw inbound frames. Each call runs in its own goroutine.
type FrameHandler func(ctx context.Context, frame []byte)

// Config identifies the session a Manager subscribes for.
type Config struct {
	URL         string
	AppPubkey   string
	AppPrivkey  string
	Permissions []domain.Method
	WaitUnit    time.Duration
}

// Manager owns one relay socket: it subscribes for NWC requests addressed to
// the app key, announces capabilities, and re-dials when the socket closes.
type Manager struct {
	cfg     Config
	dialer  Dialer
	handler FrameHandler
	log     zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time

	mu     sync.Mutex
	conn   Conn
	subID  string
	failed bool
}

// NewManager creates a Manager. A zero WaitUnit defaults to one second.
func NewManager(cfg Config, dialer Dialer, handler FrameHandler, log zerolog.Logger) *Manager {
	if cfg.WaitUnit <= 0 {
		cfg.WaitUnit = time.Second
	}
	return &Manager{
		cfg:     cfg,
		dialer:  dialer,
		handler: handler,
		log:     log.With().Str("component", "relay").Str("relay", cfg.URL).Logger(),
		sleep:   sleepCtx,
		now:     time.Now,
	}
}

// Run dials the relay and supervises the socket until ctx is done or the
// connection fails permanently.
func (m *Manager) Run(ctx context.Context) error {
	m.connect(ctx)

	tries := 0
	for {
		state := m.State()
		switch state {
		case StateOpen:
			tries = 0
		case StateConnecting:
			if tries > 0 {
				m.closeConn()
				m.mu.Lock()
				m.failed = true
				m.mu.Unlock()
				metrics.RelayFailures.Inc()
				m.log.Error().Msg("relay stuck connecting, giving up")
				return ErrPermanentFailure
			}
			tries++
		default:
			m.log.Warn().Str("state", state.String()).Msg("relay socket closed, reconnecting")
			m.closeConn()
			if err := m.sleep(ctx, m.cfg.WaitUnit); err != nil {
				return err
			}
			m.connect(ctx)
			metrics.RelayReconnects.Inc()
			tries = 0
			continue
		}

		if err := m.sleep(ctx, m.cfg.WaitUnit); err != nil {
			m.closeConn()
			return err
		}
	}
}

// State returns the current socket state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return StateClosed
	}
	return m.conn.State()
}

// WaitOpen blocks until the socket is open.
func (m *Manager) WaitOpen(ctx context.Context) error {
	poll := m.cfg.WaitUnit / 10
	for {
		m.mu.Lock()
		failed := m.failed
		m.mu.Unlock()
		if failed {
			return ErrPermanentFailure
		}
		if m.State() == StateOpen {
			return nil
		}
		if err := m.sleep(ctx, poll); err != nil {
			return err
		}
	}
}

// Publish sends ["EVENT", ev] on the current socket.
func (m *Manager) Publish(ev *nostr.Event) error {
	frame, err := nostr.EventFrame(ev)
	if err != nil {
		return err
	}

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return ErrNotOpen
	}
	return conn.WriteMessage(frame)
}

func (m *Manager) connect(ctx context.Context) {
	conn := m.dialer.Dial(ctx, m.cfg.URL, Callbacks{
		OnOpen: m.onOpen,
		OnMessage: func(frame []byte) {
			go m.handler(ctx, frame)
		},
	})

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()
}

func (m *Manager) closeConn() {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// onOpen subscribes for requests p-tagged to the app key and publishes the
// capabilities event.
func (m *Manager) onOpen(conn Conn) {
	subID := uuid.NewString()
	since := m.now().Unix()

	req, err := nostr.ReqFrame(subID, nostr.Filter{
		Kinds: []int{nostr.KindNWCRequest},
		Since: &since,
		P:     []string{m.cfg.AppPubkey},
	})
	if err != nil {
		m.log.Error().Err(err).Msg("encoding subscription")
		return
	}
	if err := conn.WriteMessage(req); err != nil {
		m.log.Error().Err(err).Msg("sending subscription")
		return
	}

	m.mu.Lock()
	m.subID = subID
	m.mu.Unlock()

	perms := make([]string, len(m.cfg.Permissions))
	for i, p := range m.cfg.Permissions {
		perms[i] = string(p)
	}
	info := &nostr.Event{
		CreatedAt: since,
		Kind:      nostr.KindNWCInfo,
		Tags:      []nostr.Tag{},
		Content:   strings.Join(perms, " "),
	}
	if err := info.Sign(m.cfg.AppPrivkey); err != nil {
		m.log.Error().Err(err).Msg("signing capabilities event")
		return
	}
	frame, err := nostr.EventFrame(info)
	if err != nil {
		return
	}
	if err := conn.WriteMessage(frame); err != nil {
		m.log.Error().Err(err).Msg("publishing capabilities event")
		return
	}

	m.log.Info().Str("sub_id", subID).Msg("relay subscription open")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
