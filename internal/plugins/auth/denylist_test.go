package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestDenylist(t *testing.T) (Denylist, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewDenylist(rdb), mr
}

func TestDenylist_RevokeAndCheck(t *testing.T) {
	dl, _ := newTestDenylist(t)
	ctx := context.Background()

	revoked, err := dl.IsRevoked(ctx, "some-token")
	if err != nil {
		t.Fatalf("checking fresh token: %v", err)
	}
	if revoked {
		t.Error("expected fresh token to not be revoked")
	}

	if err := dl.Revoke(ctx, "some-token", time.Hour); err != nil {
		t.Fatalf("revoking token: %v", err)
	}

	revoked, err = dl.IsRevoked(ctx, "some-token")
	if err != nil {
		t.Fatalf("checking revoked token: %v", err)
	}
	if !revoked {
		t.Error("expected token to be revoked")
	}

	// Other tokens are unaffected.
	revoked, err = dl.IsRevoked(ctx, "another-token")
	if err != nil {
		t.Fatalf("checking unrelated token: %v", err)
	}
	if revoked {
		t.Error("expected unrelated token to not be revoked")
	}
}

func TestDenylist_EntryExpires(t *testing.T) {
	dl, mr := newTestDenylist(t)
	ctx := context.Background()

	if err := dl.Revoke(ctx, "some-token", time.Minute); err != nil {
		t.Fatalf("revoking token: %v", err)
	}

	// Past the TTL the entry disappears; the token itself expired too.
	mr.FastForward(2 * time.Minute)

	revoked, err := dl.IsRevoked(ctx, "some-token")
	if err != nil {
		t.Fatalf("checking expired entry: %v", err)
	}
	if revoked {
		t.Error("expected denylist entry to expire with the token")
	}
}

func TestDenylist_ZeroTTLIsNoop(t *testing.T) {
	dl, mr := newTestDenylist(t)

	if err := dl.Revoke(context.Background(), "some-token", 0); err != nil {
		t.Fatalf("revoking with zero ttl: %v", err)
	}
	if len(mr.Keys()) != 0 {
		t.Errorf("expected no keys written, got %v", mr.Keys())
	}
}

// Raw tokens are credentials; only their hash may appear as a Redis key.
func TestDenylist_KeysAreHashed(t *testing.T) {
	dl, mr := newTestDenylist(t)

	const token = "raw-bearer-token-value"
	if err := dl.Revoke(context.Background(), token, time.Hour); err != nil {
		t.Fatalf("revoking token: %v", err)
	}

	for _, key := range mr.Keys() {
		if key == token || len(key) == 0 {
			t.Errorf("raw token leaked into Redis key: %q", key)
		}
	}
}
