package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newRedisBlacklist(t *testing.T) (*RedisTokenBlacklist, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := NewRedisClientFromAddr(mr.Addr())
	t.Cleanup(func() { client.Close() })
	return NewRedisTokenBlacklist(client), mr
}

func TestRedisTokenBlacklist_RevokeAndCheck(t *testing.T) {
	bl, _ := newRedisBlacklist(t)
	ctx := context.Background()

	revoked, err := bl.IsRevoked(ctx, "some.jwt.token")
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if revoked {
		t.Fatal("unknown token reported as revoked")
	}

	if err := bl.Revoke(ctx, "some.jwt.token", time.Hour); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	revoked, err = bl.IsRevoked(ctx, "some.jwt.token")
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if !revoked {
		t.Fatal("revoked token not reported as revoked")
	}

	// A different token string stays clean.
	revoked, err = bl.IsRevoked(ctx, "other.jwt.token")
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if revoked {
		t.Fatal("unrelated token reported as revoked")
	}
}

func TestRedisTokenBlacklist_EntryExpiresWithToken(t *testing.T) {
	bl, mr := newRedisBlacklist(t)
	ctx := context.Background()

	if err := bl.Revoke(ctx, "short.lived.token", 30*time.Second); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	mr.FastForward(31 * time.Second)

	revoked, err := bl.IsRevoked(ctx, "short.lived.token")
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if revoked {
		t.Fatal("entry survived past the token's own lifetime")
	}
}

func TestRedisTokenBlacklist_NonPositiveTTLSkipsWrite(t *testing.T) {
	bl, mr := newRedisBlacklist(t)
	ctx := context.Background()

	if err := bl.Revoke(ctx, "already.expired.token", 0); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := bl.Revoke(ctx, "already.expired.token", -time.Minute); err != nil {
		t.Fatalf("Revoke negative: %v", err)
	}
	if got := len(mr.Keys()); got != 0 {
		t.Fatalf("keyspace has %d entries, want 0", got)
	}
}

func TestRedisTokenBlacklist_RawTokenNeverStored(t *testing.T) {
	bl, mr := newRedisBlacklist(t)
	ctx := context.Background()

	const token = "eyJhbGciOiJIUzI1NiJ9.sensitive.payload"
	if err := bl.Revoke(ctx, token, time.Hour); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	for _, key := range mr.Keys() {
		if key == "blacklist:"+token {
			t.Fatal("raw token used as a key")
		}
	}
}

func TestMemoryTokenBlacklist(t *testing.T) {
	bl := NewMemoryTokenBlacklist()
	ctx := context.Background()

	if err := bl.Revoke(ctx, "token-a", 50*time.Millisecond); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	revoked, err := bl.IsRevoked(ctx, "token-a")
	if err != nil || !revoked {
		t.Fatalf("IsRevoked = %v, %v; want true, nil", revoked, err)
	}

	time.Sleep(60 * time.Millisecond)

	revoked, err = bl.IsRevoked(ctx, "token-a")
	if err != nil || revoked {
		t.Fatalf("expired entry: IsRevoked = %v, %v; want false, nil", revoked, err)
	}

	// Zero TTL is a no-op.
	if err := bl.Revoke(ctx, "token-b", 0); err != nil {
		t.Fatalf("Revoke zero ttl: %v", err)
	}
	if revoked, _ := bl.IsRevoked(ctx, "token-b"); revoked {
		t.Fatal("zero-ttl revoke stored an entry")
	}
}
