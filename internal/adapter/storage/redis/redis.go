package redis

import (
	"context"
	"fmt"
	"time"

	"ecash-nwc-gateway/config"
	"ecash-nwc-gateway/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewClient creates a Redis client and verifies connectivity.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Int("db", cfg.DB).
		Msg("Redis connection established")

	return client, nil
}

// pingTimeout bounds a /health probe.
const pingTimeout = 2 * time.Second

// HealthCheck reports whether the replay guard and rate limiter backend is
// reachable.
type HealthCheck struct {
	client *goredis.Client
}

var _ ports.HealthChecker = (*HealthCheck)(nil)

// NewHealthCheck creates a Redis health checker.
func NewHealthCheck(client *goredis.Client) *HealthCheck {
	return &HealthCheck{client: client}
}

// Ping implements ports.HealthChecker.
func (h *HealthCheck) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return h.client.Ping(ctx).Err()
}

// Name implements ports.HealthChecker.
func (h *HealthCheck) Name() string { return "redis" }
