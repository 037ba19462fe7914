package redisx

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/abelbrown/reelfeed/internal/persist"
)

// Live tests need a running Redis: REELFEED_REDIS_ADDR=localhost:6379 go test ./internal/redisx
func liveKV(t *testing.T) *KV {
	t.Helper()
	addr := os.Getenv("REELFEED_REDIS_ADDR")
	if addr == "" {
		t.Skip("REELFEED_REDIS_ADDR not set")
	}
	rdb, err := Open(context.Background(), addr)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })
	// Unique prefix per run so parallel runs never collide.
	return NewKV(rdb, "reelfeed-test:"+uuid.NewString()+":")
}

func TestLiveGetMissing(t *testing.T) {
	kv := liveKV(t)
	_, err := kv.Get(context.Background(), "absent")
	if !errors.Is(err, persist.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLiveRoundTrip(t *testing.T) {
	kv := liveKV(t)
	ctx := context.Background()
	p := persist.New(kv, nil)

	if err := p.SaveIDs(ctx, persist.NamespaceLiked, []string{"a", "b"}); err != nil {
		t.Fatalf("SaveIDs failed: %v", err)
	}
	got := p.LoadEngagement(ctx)
	if len(got) != 2 || !got["a"].Liked || !got["b"].Liked {
		t.Errorf("unexpected engagement after round trip: %+v", got)
	}
}
