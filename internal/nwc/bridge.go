package nwc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ecash-nwc-gateway/internal/core/domain"
	"ecash-nwc-gateway/internal/core/ports"
	"ecash-nwc-gateway/internal/nostr"
	"ecash-nwc-gateway/internal/service"
	"ecash-nwc-gateway/pkg/apperror"
	"ecash-nwc-gateway/pkg/logger"
	"ecash-nwc-gateway/pkg/metrics"

	"github.com/rs/zerolog"
)

// Publisher sends a signed reply on the session's relay.
type Publisher interface {
	Publish(ev *nostr.Event) error
}

// Config holds the get_info identity and abuse limits.
type Config struct {
	Alias      string
	Color      string
	ReplayTTL  time.Duration
	RateLimit  int64
	RateWindow time.Duration
}

// Response is the plaintext of a kind 23195 reply.
type Response struct {
	ResultType string      `json:"result_type"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Result     interface{} `json:"result"`
}

// ErrorBody is the NIP-47 error object.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type infoResult struct {
	Alias       string   `json:"alias"`
	Color       string   `json:"color"`
	Pubkey      string   `json:"pubkey"`
	Network     string   `json:"network"`
	BlockHeight int64    `json:"block_height"`
	BlockHash   string   `json:"block_hash"`
	Methods     []string `json:"methods"`
}

type balanceResult struct {
	Balance int64 `json:"balance"`
}

type payResult struct {
	Preimage string `json:"preimage"`
}

type listResult struct {
	Transactions []domain.TxView `json:"transactions"`
}

// Bridge turns inbound request events into wallet operations and replies.
// Replay guard, rate limiter and chain info are optional.
type Bridge struct {
	sessions ports.SessionDirectory
	wallet   ports.WalletService
	chain    ports.ChainInfo
	replay   ports.ReplayGuard
	limiter  ports.RateLimiter
	cfg      Config
	log      zerolog.Logger
	now      func() time.Time
}

// NewBridge creates a Bridge.
func NewBridge(
	sessions ports.SessionDirectory,
	wallet ports.WalletService,
	chain ports.ChainInfo,
	replay ports.ReplayGuard,
	limiter ports.RateLimiter,
	cfg Config,
	log zerolog.Logger,
) *Bridge {
	return &Bridge{
		sessions: sessions,
		wallet:   wallet,
		chain:    chain,
		replay:   replay,
		limiter:  limiter,
		cfg:      cfg,
		log:      logger.Component(log, "nwc"),
		now:      time.Now,
	}
}

// HandleFrame processes one raw relay frame. Frames that are not requests
// for a known session from its user are dropped without a reply.
func (b *Bridge) HandleFrame(ctx context.Context, raw []byte, pub Publisher) {
	frame, err := nostr.ParseFrame(raw)
	if err != nil {
		b.drop("malformed", err)
		return
	}
	if frame.Type != "EVENT" {
		if frame.Type == "NOTICE" {
			b.log.Info().Str("notice", frame.Message).Msg("relay notice")
		}
		return
	}

	ev := frame.Event
	if ev.Kind != nostr.KindNWCRequest {
		b.drop("kind", nil)
		return
	}
	target, _ := ev.TagValue("p")
	sess, ok := b.sessions.Lookup(target)
	if !ok {
		b.drop("unknown_session", nil)
		return
	}
	if err := ev.Verify(); err != nil {
		b.drop("bad_signature", err)
		return
	}
	if ev.PubKey != sess.UserPubkey {
		b.drop("unknown_sender", nil)
		return
	}

	if b.replay != nil {
		fresh, err := b.replay.CheckAndSet(ctx, sess.AppPubkey, ev.ID, b.cfg.ReplayTTL)
		if err != nil {
			b.log.Warn().Err(err).Msg("replay guard unavailable")
		} else if !fresh {
			b.drop("duplicate", nil)
			return
		}
	}

	plaintext, err := nostr.Decrypt(ev.Content, sess.AppPrivkey, ev.PubKey)
	if err != nil {
		b.drop("decrypt", err)
		return
	}
	var req Request
	if err := json.Unmarshal([]byte(plaintext), &req); err != nil || req.Method == "" {
		b.drop("parse", err)
		return
	}

	log := logger.Session(b.log, sess.AppPubkey).With().
		Str("method", req.Method).
		Str("event_id", ev.ID).
		Logger()

	resp := b.execute(ctx, sess, req, log)
	if err := b.reply(sess, ev, resp, pub); err != nil {
		log.Error().Err(err).Msg("failed to publish reply")
		return
	}

	code := "ok"
	if resp.Error != nil {
		code = resp.Error.Code
	}
	metrics.Commands.WithLabelValues(req.Method, code).Inc()
	log.Info().Str("code", code).Msg("command handled")
}

// execute runs the permission, rate limit and dispatch steps and always
// returns a response.
func (b *Bridge) execute(ctx context.Context, sess *domain.Session, req Request, log zerolog.Logger) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("command panicked")
			resp = errorResponse(req.Method, apperror.Unknown(fmt.Errorf("panic: %v", r)))
		}
	}()

	method := domain.Method(req.Method)
	if !sess.Allows(method) {
		return errorResponse(req.Method, apperror.Restricted())
	}

	if b.limiter != nil && b.cfg.RateLimit > 0 {
		res, err := b.limiter.Allow(ctx, "nwc:"+sess.AppPubkey, b.cfg.RateLimit, b.cfg.RateWindow)
		if err != nil {
			log.Warn().Err(err).Msg("rate limiter unavailable")
		} else if !res.Allowed {
			return errorResponse(req.Method, apperror.RateLimited())
		}
	}

	cmd, err := ParseCommand(method, req.Params)
	if err != nil {
		return errorResponse(req.Method, apperror.Other(err.Error()))
	}

	result, err := b.dispatch(ctx, sess, cmd)
	if err != nil {
		appErr := apperror.From(err)
		if appErr.HTTPStatus >= 500 {
			log.Error().Err(err).Msg("command failed")
		}
		return errorResponse(req.Method, appErr)
	}
	return &Response{ResultType: req.Method, Result: result}
}

func (b *Bridge) dispatch(ctx context.Context, sess *domain.Session, cmd Command) (interface{}, error) {
	switch c := cmd.(type) {
	case GetInfo:
		return b.getInfo(ctx, sess), nil

	case GetBalance:
		return balanceResult{Balance: sess.BalanceMsat()}, nil

	case MakeInvoice:
		rec, err := b.wallet.MakeInvoice(ctx, sess, c.Amount, c.Description)
		if err != nil {
			return nil, err
		}
		return rec.View(), nil

	case LookupInvoice:
		rec, err := b.wallet.LookupInvoice(ctx, sess, c.PaymentHash, c.invoice())
		if err != nil {
			return nil, err
		}
		return rec.View(), nil

	case ListTransactions:
		typ, err := service.ParseDirection(c.Type)
		if err != nil {
			return nil, err
		}
		recs := b.wallet.ListTransactions(sess, domain.TxFilter{
			From:   c.From,
			Until:  c.Until,
			Limit:  c.Limit,
			Offset: c.Offset,
			Unpaid: c.Unpaid,
			Type:   typ,
		})
		views := make([]domain.TxView, len(recs))
		for i, rec := range recs {
			views[i] = rec.View()
		}
		return listResult{Transactions: views}, nil

	case PayInvoice:
		rec, err := b.wallet.PayInvoice(ctx, sess, c.invoice())
		if err != nil {
			return nil, err
		}
		return payResult{Preimage: rec.Preimage}, nil

	default:
		return nil, apperror.NotImplemented(fmt.Sprintf("%s is not implemented", cmd.Method()))
	}
}

func (b *Bridge) getInfo(ctx context.Context, sess *domain.Session) infoResult {
	methods := make([]string, len(sess.Permissions))
	for i, m := range sess.Permissions {
		methods[i] = string(m)
	}
	info := infoResult{
		Alias:   b.cfg.Alias,
		Color:   b.cfg.Color,
		Pubkey:  sess.AppPubkey,
		Network: "mainnet",
		Methods: methods,
	}
	if b.chain != nil {
		tip, err := b.chain.Tip(ctx)
		if err != nil {
			b.log.Warn().Err(err).Msg("chain tip unavailable")
		} else {
			info.BlockHeight = tip.Height
			info.BlockHash = tip.Hash
		}
	}
	return info
}

// reply encrypts resp to the requester and publishes it as kind 23195.
func (b *Bridge) reply(sess *domain.Session, req *nostr.Event, resp *Response, pub Publisher) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}
	content, err := nostr.Encrypt(string(body), sess.AppPrivkey, req.PubKey)
	if err != nil {
		return fmt.Errorf("encrypt reply: %w", err)
	}

	ev := &nostr.Event{
		CreatedAt: b.now().Unix(),
		Kind:      nostr.KindNWCResponse,
		Tags: []nostr.Tag{
			{"p", req.PubKey},
			{"e", req.ID},
		},
		Content: content,
	}
	if err := ev.Sign(sess.AppPrivkey); err != nil {
		return fmt.Errorf("sign reply: %w", err)
	}
	return pub.Publish(ev)
}

func (b *Bridge) drop(reason string, err error) {
	metrics.DroppedFrames.WithLabelValues(reason).Inc()
	b.log.Debug().Err(err).Str("reason", reason).Msg("frame dropped")
}

func errorResponse(method string, appErr *apperror.AppError) *Response {
	return &Response{
		ResultType: method,
		Error:      &ErrorBody{Code: appErr.Code, Message: appErr.Message},
		Result:     map[string]interface{}{},
	}
}
