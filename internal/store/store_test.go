package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/abelbrown/reelfeed/internal/feed"
	"github.com/abelbrown/reelfeed/internal/persist"
)

func TestOpen(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), "open.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()

	var name string
	err = st.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='kv'").Scan(&name)
	if err != nil {
		t.Fatalf("kv table not created: %v", err)
	}
	if name != "kv" {
		t.Errorf("expected table name 'kv', got %q", name)
	}
}

func TestGetMissingKey(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), "missing.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()

	_, err = st.Get(context.Background(), "nope")
	if !errors.Is(err, persist.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetOverwrites(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), "overwrite.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	if err := st.Set(ctx, "k", []byte(`["a","b"]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := st.Set(ctx, "k", []byte(`["c"]`)); err != nil {
		t.Fatalf("second Set failed: %v", err)
	}

	got, err := st.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `["c"]` {
		t.Errorf("expected full overwrite, got %s", got)
	}

	keys, err := st.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("expected 1 key, got %v", keys)
	}
}

// Engagement written through the sqlite backend must survive a reopen.
func TestEngagementSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restart.db")
	ctx := context.Background()

	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	items := []feed.Item{{ID: "item-7"}, {ID: "item-8"}}
	fs := feed.New(ctx, items, persist.New(st, nil))
	if _, err := fs.ToggleLike(ctx, "item-7"); err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}
	if _, err := fs.ToggleSave(ctx, "item-8"); err != nil {
		t.Fatalf("ToggleSave failed: %v", err)
	}
	st.Close()

	st2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer st2.Close()

	reloaded := feed.New(ctx, items, persist.New(st2, nil))
	if got := reloaded.Engagement("item-7"); got != (feed.Engagement{Liked: true}) {
		t.Errorf("item-7 engagement = %+v, want liked", got)
	}
	if got := reloaded.Engagement("item-8"); got != (feed.Engagement{Saved: true}) {
		t.Errorf("item-8 engagement = %+v, want saved", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), "concurrent.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	var wg sync.WaitGroup

	// Channel to collect errors from goroutines (testing.T methods are not goroutine-safe)
	errCh := make(chan error, 20)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := st.Set(ctx, fmt.Sprintf("key-%d", n), []byte("[]")); err != nil {
				errCh <- fmt.Errorf("Set failed for writer %d: %v", n, err)
			}
		}(i)
	}

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := st.Get(ctx, fmt.Sprintf("key-%d", n))
			if err != nil && !errors.Is(err, persist.ErrNotFound) {
				errCh <- fmt.Errorf("Get failed: %v", err)
			}
		}(i)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Error(err)
	}

	keys, err := st.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 10 {
		t.Errorf("expected 10 keys, got %d", len(keys))
	}
}
