package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecash-nwc-gateway/config"
	"ecash-nwc-gateway/internal/adapter/chain"
	httpHandler "ecash-nwc-gateway/internal/adapter/http/handler"
	"ecash-nwc-gateway/internal/adapter/invoice"
	"ecash-nwc-gateway/internal/adapter/mint"
	"ecash-nwc-gateway/internal/adapter/relay"
	pgStorage "ecash-nwc-gateway/internal/adapter/storage/postgres"
	redisStorage "ecash-nwc-gateway/internal/adapter/storage/redis"
	"ecash-nwc-gateway/internal/core/domain"
	"ecash-nwc-gateway/internal/core/ports"
	"ecash-nwc-gateway/internal/ecash"
	"ecash-nwc-gateway/internal/nwc"
	"ecash-nwc-gateway/internal/service"
	"ecash-nwc-gateway/pkg/logger"
	"ecash-nwc-gateway/pkg/metrics"

	"github.com/carlmjohnson/versioninfo"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	opt struct {
		config string
	}

	version = "0.1.0-src"
	commit  = versioninfo.Short()
)

func main() {
	flag.StringVar(&opt.config, "config", "", "config file path")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-config path] [hash-password <password>]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.Arg(0) == "hash-password" {
		if err := hashPassword(flag.Arg(1)); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(opt.config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	log.Info().
		Str("version", version).
		Str("commit", commit).
		Str("mint", cfg.Wallet.MintURL).
		Str("relay", cfg.Wallet.Relay).
		Msg("Starting ecash NWC gateway")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("gateway exited")
		os.Exit(1)
	}
	log.Info().Msg("gateway stopped")
}

// hashPassword prints the argon2id hash to put in admin.password_hash.
func hashPassword(password string) error {
	if password == "" {
		return errors.New("usage: walletd hash-password <password>")
	}
	hash, err := service.NewArgon2HashService().Hash(password)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	var (
		journal    *service.Journal
		replay     ports.ReplayGuard
		limiter    ports.RateLimiter
		checkers   []ports.HealthChecker
		snapshots  []domain.SessionSnapshot
		proofs     []domain.Proof
		cleanupFns []func()
	)
	defer func() {
		for i := len(cleanupFns) - 1; i >= 0; i-- {
			cleanupFns[i]()
		}
	}()

	if cfg.Database.Enabled {
		if err := pgStorage.Migrate(cfg.Database, log); err != nil {
			return err
		}
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return err
		}
		cleanupFns = append(cleanupFns, pool.Close)

		journal = service.NewJournal(
			pgStorage.NewSessionRepo(pool),
			pgStorage.NewLedgerRepo(pool),
			pgStorage.NewProofRepo(pool),
			logger.Component(log, "journal"),
		)
		snapshots, proofs, err = journal.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading wallet state: %w", err)
		}
		checkers = append(checkers, pgStorage.NewHealthCheck(pool))
	}

	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return err
		}
		cleanupFns = append(cleanupFns, func() { _ = rdb.Close() })

		replay = redisStorage.NewReplayGuard(rdb)
		limiter = redisStorage.NewRateLimitStore(rdb)
		checkers = append(checkers, redisStorage.NewHealthCheck(rdb))
	}

	// Adapters
	mintClient := mint.NewClient(cfg.Wallet.MintTimeout, log)
	decoder := invoice.NewDecoder()
	chainInfo := chain.NewMempool(cfg.Chain.BaseURL, cfg.Chain.Timeout)
	dialer := relay.NewWSDialer(cfg.Relay.HandshakeTimeout)

	// Wallet core
	store := ecash.NewTokenStore(proofs...)
	metrics.WalletBalance.Set(float64(store.Balance()))

	payments := service.NewPaymentService(mintClient, decoder, store, nil, journal, logger.Component(log, "payments"))
	watcher := service.NewInvoiceWatcher(mintClient, payments, journal, cfg.Wallet.PollInterval, logger.Component(log, "watcher"))
	walletSvc := service.NewWalletService(ctx, payments, watcher, decoder, journal, logger.Component(log, "wallet"))

	// NWC
	registry := service.NewSessionRegistry()
	bridge := nwc.NewBridge(registry, walletSvc, chainInfo, replay, limiter, nwc.Config{
		Alias:      cfg.NWC.Alias,
		Color:      cfg.NWC.Color,
		ReplayTTL:  cfg.NWC.ReplayTTL,
		RateLimit:  int64(cfg.NWC.RateLimit),
		RateWindow: cfg.NWC.RateWindow,
	}, log)
	hub := nwc.NewHub(ctx, registry, bridge, dialer, journal, cfg.Relay.WaitUnit, log)

	for _, snap := range snapshots {
		sess, err := registry.Restore(snap)
		if err != nil {
			log.Error().Err(err).Str("app_pubkey", snap.AppPubkey).Msg("skipping stored session")
			continue
		}
		hub.Start(sess)
		pending := walletSvc.Resume(sess)
		log.Info().
			Str("app_pubkey", sess.AppPubkey).
			Int64("balance_msat", sess.BalanceMsat()).
			Int("pending_invoices", pending).
			Msg("NWC session restored")
	}

	// Admin API
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	authSvc := service.NewAuthService(cfg.Admin.PasswordHash, hashSvc, tokenSvc)
	if cfg.Admin.PasswordHash == "" || cfg.JWT.Secret == "" {
		log.Warn().Msg("admin.password_hash or jwt.secret not set, operator login is disabled")
	}

	gin.SetMode(cfg.Server.Mode)
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		WalletSvc:      walletSvc,
		Sessions:       registry,
		Opener:         hub,
		TokenSvc:       tokenSvc,
		RateLimitStore: limiter,
		HealthCheckers: checkers,
		Defaults: httpHandler.SessionDefaults{
			MintURL:     cfg.Wallet.MintURL,
			Relay:       cfg.Wallet.Relay,
			Permissions: cfg.Wallet.Methods(),
		},
		Logger: logger.Component(log, "http"),
	})
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if len(snapshots) == 0 {
		g.Go(func() error {
			openDefaultSession(gctx, hub, domain.SessionParams{
				MintURL:     cfg.Wallet.MintURL,
				Relay:       cfg.Wallet.Relay,
				Permissions: cfg.Wallet.Methods(),
			}, os.Stderr, log)
			return nil
		})
	}

	err := g.Wait()
	hub.Wait()
	return err
}

// openDefaultSession creates the session described by the wallet config on a
// fresh install. Failure leaves the admin API up so the operator can retry.
// The connection string carries the user secret, so it goes to out and only
// the app pubkey is logged.
func openDefaultSession(ctx context.Context, opener ports.SessionOpener, params domain.SessionParams, out io.Writer, log zerolog.Logger) {
	sess, err := opener.Open(ctx, params)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("failed to open default NWC session")
		}
		return
	}
	log.Info().
		Str("app_pubkey", sess.AppPubkey).
		Msg("Default NWC session ready, connection string written to stderr")
	fmt.Fprintf(out, "NWC connection string: %s\n", sess.ConnectionString)
}
