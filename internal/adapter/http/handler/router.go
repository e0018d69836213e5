package handler

import (
	"ecash-nwc-gateway/internal/adapter/http/middleware"
	"ecash-nwc-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	WalletSvc      ports.WalletService
	Sessions       ports.SessionDirectory
	Opener         ports.SessionOpener
	TokenSvc       ports.TokenService
	RateLimitStore ports.RateLimiter // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Defaults       SessionDefaults
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	v1.POST("/auth/login", rl("auth_login"), authHandler.Login)

	// --- JWT-authenticated routes (operator) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	sessionHandler := NewSessionHandler(deps.Sessions, deps.Opener, deps.WalletSvc, deps.Defaults)
	walletHandler := NewWalletHandler(deps.WalletSvc, deps.Defaults.MintURL)

	sessions := v1.Group("/sessions", jwtAuth)
	{
		sessions.POST("", rl("sessions"), sessionHandler.Create)
		sessions.GET("/:pubkey", rl("wallet"), sessionHandler.Get)
		sessions.POST("/:pubkey/invoices", rl("payments"), sessionHandler.CreateInvoice)
		sessions.POST("/:pubkey/payments", rl("payments"), sessionHandler.PayInvoice)
	}

	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.GET("", rl("wallet"), walletHandler.GetBalance)
		wallet.POST("/send", rl("payments"), walletHandler.SendToken)
	}

	return r
}
