package persist

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/abelbrown/reelfeed/internal/events"
	"github.com/abelbrown/reelfeed/internal/feed"
	"github.com/abelbrown/reelfeed/internal/history"
)

// failingKV returns err from every call.
type failingKV struct{ err error }

func (f failingKV) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingKV) Set(context.Context, string, []byte) error   { return f.err }

func TestLoadEmptyStore(t *testing.T) {
	p := New(NewMemory(), nil)
	ctx := context.Background()

	if got := p.LoadEngagement(ctx); len(got) != 0 {
		t.Errorf("expected empty engagement, got %+v", got)
	}
	if got := p.LoadWatchHistory(ctx); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil history, got %+v", got)
	}
}

func TestLoadCorruptDataIsEmpty(t *testing.T) {
	kv := NewMemory()
	ctx := context.Background()
	kv.Set(ctx, NamespaceLiked, []byte("{not json"))
	kv.Set(ctx, NamespaceSaved, []byte(`{"wrong":"shape"}`))
	kv.Set(ctx, NamespaceWatchHistory, []byte(`[1,2,3]`))

	p := New(kv, nil)
	if got := p.LoadEngagement(ctx); len(got) != 0 {
		t.Errorf("corrupt engagement should load empty, got %+v", got)
	}
	if got := p.LoadWatchHistory(ctx); len(got) != 0 {
		t.Errorf("corrupt history should load empty, got %+v", got)
	}
}

func TestLoadBackendErrorIsEmpty(t *testing.T) {
	p := New(failingKV{err: errors.New("disk gone")}, nil)
	if got := p.LoadEngagement(context.Background()); len(got) != 0 {
		t.Errorf("backend error should load empty, got %+v", got)
	}
}

func TestSaveBackendErrorReturned(t *testing.T) {
	boom := errors.New("read-only")
	p := New(failingKV{err: boom}, nil)
	err := p.SaveEngagement(context.Background(), map[string]feed.Engagement{"a": {Liked: true}})
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped backend error, got %v", err)
	}
}

func TestEngagementRoundTripIsFixedPoint(t *testing.T) {
	ctx := context.Background()
	p := New(NewMemory(), nil)

	initial := map[string]feed.Engagement{
		"a": {Liked: true},
		"b": {Saved: true},
		"c": {Liked: true, Saved: true},
	}
	if err := p.SaveEngagement(ctx, initial); err != nil {
		t.Fatalf("SaveEngagement failed: %v", err)
	}

	first := p.LoadEngagement(ctx)
	if !reflect.DeepEqual(first, initial) {
		t.Fatalf("load after save = %+v, want %+v", first, initial)
	}

	if err := p.SaveEngagement(ctx, first); err != nil {
		t.Fatalf("second SaveEngagement failed: %v", err)
	}
	second := p.LoadEngagement(ctx)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("save(load()) not a fixed point: %+v != %+v", first, second)
	}
}

func TestUnlikeDropsFromList(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	p := New(kv, nil)

	p.SaveEngagement(ctx, map[string]feed.Engagement{"a": {Liked: true}, "b": {Liked: true}})
	p.SaveEngagement(ctx, map[string]feed.Engagement{"a": {Liked: false}, "b": {Liked: true}})

	raw, _ := kv.Get(ctx, NamespaceLiked)
	if string(raw) != `["b"]` {
		t.Errorf("liked list = %s, want [\"b\"] (full replace, no stale keys)", raw)
	}
}

func TestWatchHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := New(NewMemory(), nil)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	want := map[string]history.Record{
		"v1": {LastWatchedAt: at, WatchedSeconds: 12.5, CompletionPercent: 41.6},
	}
	if err := p.SaveWatchHistory(ctx, want); err != nil {
		t.Fatalf("SaveWatchHistory failed: %v", err)
	}
	got := p.LoadWatchHistory(ctx)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("history round trip = %+v, want %+v", got, want)
	}
}

func TestPrefixIsolatesProfiles(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	alice := New(kv, nil).WithPrefix("alice")
	bob := New(kv, nil).WithPrefix("bob")

	alice.SaveEngagement(ctx, map[string]feed.Engagement{"x": {Liked: true}})

	if got := bob.LoadEngagement(ctx); len(got) != 0 {
		t.Errorf("bob sees alice's engagement: %+v", got)
	}
	if got := alice.LoadEngagement(ctx); !got["x"].Liked {
		t.Errorf("alice lost her like: %+v", got)
	}
	if _, err := kv.Get(ctx, "alice:"+NamespaceLiked); err != nil {
		t.Errorf("expected prefixed key, got %v", err)
	}
}

// toggleLike on an empty store returns and persists {liked:true, saved:false}.
func TestToggleLikeOnEmptyStorePersists(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()

	fs := feed.New(ctx, []feed.Item{{ID: "item-7"}}, New(kv, nil))
	got, err := fs.ToggleLike(ctx, "item-7")
	if err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}
	want := feed.Engagement{Liked: true, Saved: false}
	if got != want {
		t.Errorf("ToggleLike returned %+v, want %+v", got, want)
	}

	reloaded := New(kv, nil).LoadEngagement(ctx)
	if reloaded["item-7"] != want {
		t.Errorf("reloaded record = %+v, want %+v", reloaded["item-7"], want)
	}
}

// Every failed read or write on the engagement and history paths lands in
// the event log as persist.error.
func TestBackendFailuresReachEventLog(t *testing.T) {
	ctx := context.Background()
	ring := events.NewRing(16)
	evlog := events.NewNullLog()
	evlog.SetRing(ring)

	p := New(failingKV{err: errors.New("disk gone")}, nil).WithPrefix("alice").WithEvents(evlog)

	fs := feed.New(ctx, []feed.Item{{ID: "a"}}, p) // liked + saved loads
	hist := history.New(ctx, p)                    // history load
	if _, err := fs.ToggleLike(ctx, "a"); err == nil {
		t.Error("ToggleLike should surface the write failure")
	}
	hist.Record(ctx, "a", 3, 10) // history flush
	evlog.Close()

	if got := ring.Counts()[events.KindPersistError]; got != 5 {
		t.Fatalf("persist.error events = %d, want 5", got)
	}

	levels := map[events.Level]int{}
	for _, e := range ring.Last(ring.Len()) {
		levels[e.Level]++
		if e.Err != "disk gone" {
			t.Errorf("event err = %q, want backend error", e.Err)
		}
	}
	if levels[events.LevelWarn] != 3 || levels[events.LevelError] != 2 {
		t.Errorf("levels = %v, want 3 warn loads and 2 error writes", levels)
	}

	last := ring.Last(1)[0]
	if last.Msg != "write alice:"+NamespaceWatchHistory {
		t.Errorf("last msg = %q, want the prefixed history key", last.Msg)
	}
}

func TestSuccessfulCallsEmitNothing(t *testing.T) {
	ring := events.NewRing(4)
	evlog := events.NewNullLog()
	evlog.SetRing(ring)

	p := New(NewMemory(), nil).WithEvents(evlog)
	if err := p.SaveIDs(context.Background(), NamespaceLiked, []string{"a"}); err != nil {
		t.Fatalf("SaveIDs: %v", err)
	}
	p.LoadIDs(context.Background(), NamespaceSaved) // missing key is not a failure
	evlog.Close()

	if ring.Len() != 0 {
		t.Errorf("successful calls emitted %d events", ring.Len())
	}
}
