package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist records tokens that were invalidated before their natural expiry
// (logout). Entries live in Redis with a TTL equal to the remaining token
// lifetime, so the denylist stays bounded without a cleanup job.
type Denylist interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type denylist struct {
	rdb *redis.Client
}

// NewDenylist creates a Redis-backed token denylist.
func NewDenylist(rdb *redis.Client) Denylist {
	return &denylist{rdb: rdb}
}

// denylistKey builds the Redis key for a token. Tokens are hashed before use
// as keys so the raw credential never lands in Redis or its persistence files.
func denylistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "inkwell:token:revoked:" + hex.EncodeToString(sum[:])
}

func (d *denylist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		// Already expired, nothing to revoke.
		return nil
	}
	if err := d.rdb.Set(ctx, denylistKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}

func (d *denylist) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := d.rdb.Exists(ctx, denylistKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("checking token denylist: %w", err)
	}
	return n > 0, nil
}
