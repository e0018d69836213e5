package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecash-nwc-gateway/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

// ReplayGuard implements ports.ReplayGuard using Redis SET NX. Relays may
// deliver the same NWC request more than once; only the first delivery wins.
type ReplayGuard struct {
	client *goredis.Client
	prefix string
}

var _ ports.ReplayGuard = (*ReplayGuard)(nil)

// NewReplayGuard creates a new Redis-backed replay guard.
func NewReplayGuard(client *goredis.Client) *ReplayGuard {
	return &ReplayGuard{
		client: client,
		prefix: "nwc:seen:",
	}
}

// CheckAndSet atomically records id under scope.
// Returns true if the id is new, false if it was already seen.
func (g *ReplayGuard) CheckAndSet(ctx context.Context, scope string, id string, ttl time.Duration) (bool, error) {
	key := g.prefix + scope + ":" + id
	result, err := g.client.SetArgs(ctx, key, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis replay check: %w", err)
	}
	return result == "OK", nil
}
