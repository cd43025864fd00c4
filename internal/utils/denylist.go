package utils

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist records logged-out access tokens by jti until they would have
// expired anyway. A nil receiver or nil client disables the feature, so
// the service still runs without Redis (logout then only takes effect
// client-side).
type Denylist struct {
	RDB *redis.Client
}

const denylistPrefix = "jwt:denylist:"

// Revoke marks a token id as logged out for the given remaining lifetime.
func (d *Denylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if d == nil || d.RDB == nil || jti == "" {
		return nil
	}
	if ttl <= 0 {
		return nil // already expired, nothing to deny
	}
	return d.RDB.SetEx(ctx, denylistPrefix+jti, "1", ttl).Err()
}

// Revoked reports whether a token id has been logged out. Redis errors
// fail open: an unreachable denylist must not lock every user out.
func (d *Denylist) Revoked(ctx context.Context, jti string) bool {
	if d == nil || d.RDB == nil || jti == "" {
		return false
	}
	n, err := d.RDB.Exists(ctx, denylistPrefix+jti).Result()
	if err != nil {
		return false
	}
	return n > 0
}
