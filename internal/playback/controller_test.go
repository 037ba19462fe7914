package playback

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/abelbrown/reelfeed/internal/events"
	"github.com/abelbrown/reelfeed/internal/feed"
	"github.com/abelbrown/reelfeed/internal/history"
)

type fakeResource struct {
	id      string
	playing bool
	muted   bool
	loop    bool
	rate    float64
	pos     float64
	seeks   []float64
	plays   int
	playErr error
}

func (r *fakeResource) Play() error {
	r.plays++
	if r.playErr != nil {
		return r.playErr
	}
	r.playing = true
	return nil
}
func (r *fakeResource) Pause()               { r.playing = false }
func (r *fakeResource) Seek(s float64)       { r.pos = s; r.seeks = append(r.seeks, s) }
func (r *fakeResource) SetMuted(m bool)      { r.muted = m }
func (r *fakeResource) SetLoop(l bool)       { r.loop = l }
func (r *fakeResource) SetRate(v float64)    { r.rate = v }
func (r *fakeResource) CurrentTime() float64 { return r.pos }

type fakeBinder struct {
	bound   map[string]*fakeResource
	all     []*fakeResource
	failFor map[string]error
	playErr map[string]error
}

func newBinder() *fakeBinder {
	return &fakeBinder{
		bound:   make(map[string]*fakeResource),
		failFor: make(map[string]error),
		playErr: make(map[string]error),
	}
}

func (b *fakeBinder) Bind(item feed.Item) (Resource, error) {
	if err := b.failFor[item.ID]; err != nil {
		return nil, err
	}
	r := &fakeResource{id: item.ID, playErr: b.playErr[item.ID]}
	b.bound[item.ID] = r
	b.all = append(b.all, r)
	return r, nil
}

func (b *fakeBinder) playingCount() int {
	n := 0
	for _, r := range b.all {
		if r.playing {
			n++
		}
	}
	return n
}

type recordingSink struct{ events []events.Event }

func (s *recordingSink) Emit(e events.Event) { s.events = append(s.events, e) }

func testCatalog() *feed.Store {
	items := []feed.Item{
		{ID: "a", DurationHint: 60 * time.Second},
		{ID: "b", DurationHint: 30 * time.Second},
		{ID: "c", DurationHint: 10 * time.Second},
	}
	return feed.New(context.Background(), items, nil)
}

func newController(opts Options) (*Controller, *fakeBinder, *history.History) {
	b := newBinder()
	h := history.New(context.Background(), nil)
	return New(testCatalog(), b, h, opts), b, h
}

func TestActivateBindsAndStarts(t *testing.T) {
	c, b, _ := newController(Options{Surface: "reels"})
	ctx := context.Background()

	if err := c.Activate(ctx, "a"); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	s := c.Session()
	if s.ActiveItemID != "a" || !s.IsPlaying || s.State != Loading {
		t.Fatalf("session = %+v, want a/playing/loading", s)
	}
	if r := b.bound["a"]; !r.playing || r.rate != 1 {
		t.Errorf("resource not started with session flags: %+v", r)
	}

	c.HandleEvent(ctx, "a", Event{Kind: EventReady})
	if got := c.Session().State; got != Playing {
		t.Errorf("State after ready = %v, want playing", got)
	}
}

func TestActivateUnknownItem(t *testing.T) {
	c, _, _ := newController(Options{})
	err := c.Activate(context.Background(), "zzz")
	if !errors.Is(err, feed.ErrUnknownItem) {
		t.Errorf("expected ErrUnknownItem, got %v", err)
	}
	if c.ActiveItemID() != "" {
		t.Error("unknown item must not become active")
	}
}

func TestActivateSameItemIsNoop(t *testing.T) {
	c, b, _ := newController(Options{})
	ctx := context.Background()
	c.Activate(ctx, "a")
	c.Activate(ctx, "a")
	if len(b.all) != 1 {
		t.Errorf("re-activating bound %d resources, want 1", len(b.all))
	}
}

// At most one resource plays across any activation sequence.
func TestExclusivity(t *testing.T) {
	c, b, _ := newController(Options{})
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "a", "c", "b"} {
		c.Activate(ctx, id)
		c.HandleEvent(ctx, id, Event{Kind: EventReady})
		if n := b.playingCount(); n > 1 {
			t.Fatalf("after activating %s, %d resources playing", id, n)
		}
		if !b.bound[id].playing {
			t.Errorf("active item %s not playing", id)
		}
	}
}

// A late ready callback for a previous item must not revive it.
func TestStaleReadyIgnored(t *testing.T) {
	sink := &recordingSink{}
	c, b, _ := newController(Options{Events: sink})
	ctx := context.Background()

	c.Activate(ctx, "a")
	c.Activate(ctx, "b")
	c.HandleEvent(ctx, "a", Event{Kind: EventReady})

	s := c.Session()
	if s.ActiveItemID != "b" || s.State != Loading {
		t.Errorf("stale ready changed session: %+v", s)
	}
	if b.bound["a"].playing {
		t.Error("stale item resource is playing")
	}

	found := false
	for _, e := range sink.events {
		if e.Kind == events.KindStale && e.Item == "a" {
			found = true
		}
	}
	if !found {
		t.Error("expected a stale event for a")
	}
}

func TestErrorEventFallsBackToPaused(t *testing.T) {
	c, b, _ := newController(Options{})
	ctx := context.Background()

	c.Activate(ctx, "a")
	c.HandleEvent(ctx, "a", Event{Kind: EventPlaying})
	c.HandleEvent(ctx, "a", Event{Kind: EventError, Err: errors.New("decode stall")})

	s := c.Session()
	if s.State != Paused || s.IsPlaying || !s.NeedsTap {
		t.Errorf("session after error = %+v, want paused with tap", s)
	}
	if b.bound["a"].playing {
		t.Error("resource should be paused after error")
	}
}

func TestBlockedAutoplay(t *testing.T) {
	c, b, _ := newController(Options{})
	b.playErr["a"] = errors.New("autoplay blocked")
	ctx := context.Background()

	if err := c.Activate(ctx, "a"); err != nil {
		t.Fatalf("blocked autoplay must not be returned: %v", err)
	}
	s := c.Session()
	if s.ActiveItemID != "a" || s.IsPlaying || !s.NeedsTap || s.State != Paused {
		t.Fatalf("session = %+v", s)
	}

	// Manual tap retries.
	b.bound["a"].playErr = nil
	c.TogglePlay()
	s = c.Session()
	if !s.IsPlaying || s.NeedsTap || s.State != Loading {
		t.Errorf("after tap session = %+v", s)
	}
}

func TestBindFailureRecoversOnPlay(t *testing.T) {
	c, b, _ := newController(Options{})
	b.failFor["a"] = errors.New("no media")
	ctx := context.Background()

	c.Activate(ctx, "a")
	if s := c.Session(); !s.NeedsTap || s.IsPlaying {
		t.Fatalf("session after bind failure = %+v", s)
	}

	delete(b.failFor, "a")
	c.Play()
	if !c.IsPlaying() || b.bound["a"] == nil {
		t.Error("Play should rebind after a failed bind")
	}
}

func TestTogglePlay(t *testing.T) {
	c, b, _ := newController(Options{})
	ctx := context.Background()

	c.TogglePlay()
	if c.IsPlaying() || c.Session().State != Idle {
		t.Error("TogglePlay without an active item must be a no-op")
	}

	c.Activate(ctx, "a")
	c.HandleEvent(ctx, "a", Event{Kind: EventReady})
	c.TogglePlay()
	if c.IsPlaying() || c.Session().State != Paused || b.bound["a"].playing {
		t.Errorf("expected paused, got %+v", c.Session())
	}
	c.TogglePlay()
	if !c.IsPlaying() || c.Session().State != Playing {
		t.Errorf("expected playing, got %+v", c.Session())
	}
}

func TestMuteSticksAcrossActivate(t *testing.T) {
	c, b, _ := newController(Options{})
	ctx := context.Background()

	c.Activate(ctx, "a")
	c.ToggleMute()
	c.Activate(ctx, "b")

	if !c.Session().IsMuted || !b.bound["b"].muted {
		t.Error("mute should carry over to the next activation")
	}
}

func TestMuteAndLoopOnActivate(t *testing.T) {
	c, b, _ := newController(Options{MuteOnActivate: true, LoopOnActivate: true, ResetOnDeactivate: true})
	ctx := context.Background()

	c.Activate(ctx, "a")
	c.SetMuted(false)
	b.bound["a"].pos = 7
	c.Activate(ctx, "b")

	rb := b.bound["b"]
	if !rb.muted || !rb.loop || rb.pos != 0 {
		t.Errorf("grid activation should start muted, looping, from zero: %+v", rb)
	}
	ra := b.bound["a"]
	if ra.playing || ra.pos != 0 {
		t.Errorf("previous resource should be paused and reset: %+v", ra)
	}
}

func TestDeactivateKeepsPositionByDefault(t *testing.T) {
	c, b, _ := newController(Options{})
	ctx := context.Background()
	c.Activate(ctx, "a")
	b.bound["a"].pos = 12

	c.Deactivate()

	if c.ActiveItemID() != "" || c.IsPlaying() || c.Session().State != Idle {
		t.Errorf("session after deactivate = %+v", c.Session())
	}
	if r := b.bound["a"]; r.playing || r.pos != 12 {
		t.Errorf("resource should be paused with position kept: %+v", r)
	}
}

func TestResumeProgress(t *testing.T) {
	c, b, h := newController(Options{ResumeProgress: true})
	ctx := context.Background()
	h.Record(ctx, "b", 14, 30)

	c.Activate(ctx, "b")
	if got := b.bound["b"].pos; got != 14 {
		t.Errorf("resume position = %v, want 14", got)
	}
}

func TestTimeUpdateWritesProgressWhilePlaying(t *testing.T) {
	c, _, h := newController(Options{})
	ctx := context.Background()

	c.Activate(ctx, "a")
	c.HandleEvent(ctx, "a", Event{Kind: EventTimeUpdate, CurrentTime: 3, Duration: 60})
	if _, ok := h.Get("a"); ok {
		t.Error("progress written while still loading")
	}

	c.HandleEvent(ctx, "a", Event{Kind: EventPlaying})
	c.HandleEvent(ctx, "a", Event{Kind: EventTimeUpdate, CurrentTime: 30, Duration: 60})
	r, ok := h.Get("a")
	if !ok || r.WatchedSeconds != 30 || r.CompletionPercent != 50 {
		t.Errorf("progress = %+v,%v want 30s/50%%", r, ok)
	}
}

func TestWaitingSetsBuffering(t *testing.T) {
	c, _, _ := newController(Options{})
	ctx := context.Background()
	c.Activate(ctx, "a")
	c.HandleEvent(ctx, "a", Event{Kind: EventPlaying})
	c.HandleEvent(ctx, "a", Event{Kind: EventWaiting})

	s := c.Session()
	if !s.Buffering || s.State != Playing {
		t.Errorf("buffering should be a flag on Playing, got %+v", s)
	}
	c.HandleEvent(ctx, "a", Event{Kind: EventPlaying})
	if c.Session().Buffering {
		t.Error("playing should clear buffering")
	}
}

func TestEnded(t *testing.T) {
	c, _, h := newController(Options{})
	ctx := context.Background()
	var ended []string
	c.OnEnded(func(id string) { ended = append(ended, id) })

	c.Activate(ctx, "c")
	c.HandleEvent(ctx, "c", Event{Kind: EventPlaying})
	c.HandleEvent(ctx, "c", Event{Kind: EventEnded})

	s := c.Session()
	if s.State != Ended || s.IsPlaying || s.ActiveItemID != "c" {
		t.Errorf("session after ended = %+v", s)
	}
	if r, _ := h.Get("c"); !r.Completed() {
		t.Errorf("ended item should be marked completed: %+v", r)
	}
	if len(ended) != 1 || ended[0] != "c" {
		t.Errorf("OnEnded calls = %v", ended)
	}

	// Replay starts from the top.
	c.TogglePlay()
	if !c.IsPlaying() {
		t.Error("TogglePlay after ended should replay")
	}
}

func TestLoopingIgnoresEnded(t *testing.T) {
	c, _, _ := newController(Options{LoopOnActivate: true})
	ctx := context.Background()
	c.Activate(ctx, "a")
	c.HandleEvent(ctx, "a", Event{Kind: EventPlaying})
	c.HandleEvent(ctx, "a", Event{Kind: EventEnded})
	if c.Session().State != Playing {
		t.Errorf("looping item should keep playing, got %v", c.Session().State)
	}
}

func TestStepRate(t *testing.T) {
	c, _, _ := newController(Options{})
	c.StepRate(1)
	if got := c.Session().Rate; got != 1.25 {
		t.Errorf("rate = %v, want 1.25", got)
	}
	for i := 0; i < 10; i++ {
		c.StepRate(-1)
	}
	if got := c.Session().Rate; got != 0.25 {
		t.Errorf("rate = %v, want floor 0.25", got)
	}
	c.SetRate(9)
	if got := c.Session().Rate; got != 2 {
		t.Errorf("rate = %v, want ceiling 2", got)
	}
}

func TestSeekFraction(t *testing.T) {
	c, b, _ := newController(Options{})
	ctx := context.Background()
	c.SeekFraction(0.5)

	c.Activate(ctx, "a")
	c.SeekFraction(0.5)
	if got := b.bound["a"].pos; got != 30 {
		t.Errorf("seek 50%% of 60s = %v, want 30", got)
	}
}

func TestStateEvents(t *testing.T) {
	sink := &recordingSink{}
	c, _, _ := newController(Options{Surface: "watch", Events: sink})
	ctx := context.Background()
	c.Activate(ctx, "a")
	c.HandleEvent(ctx, "a", Event{Kind: EventReady})

	var transitions []string
	for _, e := range sink.events {
		if e.Surface != "watch" {
			t.Errorf("event missing surface: %+v", e)
		}
		if e.Kind == events.KindState {
			transitions = append(transitions, e.From+">"+e.To)
		}
	}
	want := []string{"idle>loading", "loading>playing"}
	if len(transitions) != 2 || transitions[0] != want[0] || transitions[1] != want[1] {
		t.Errorf("transitions = %v, want %v", transitions, want)
	}
}

// The Loading to Playing transition carries the time the item took to load.
func TestTimeToReadyOnStateEvent(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	sink := &recordingSink{}
	c, _, _ := newController(Options{Surface: "reels", Events: sink, Now: func() time.Time { return now }})
	ctx := context.Background()

	c.Activate(ctx, "a")
	now = now.Add(350 * time.Millisecond)
	c.HandleEvent(ctx, "a", Event{Kind: EventReady})

	c.Pause()
	c.Play() // already loaded: Paused to Playing carries no duration

	var ready []events.Event
	for _, e := range sink.events {
		if e.Kind == events.KindState && e.To == "playing" {
			ready = append(ready, e)
		}
	}
	if len(ready) != 2 || ready[0].Dur != 350*time.Millisecond || ready[1].Dur != 0 {
		t.Fatalf("playing transitions = %+v, want 350ms then none", ready)
	}

	data, err := json.Marshal(ready[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"dur_ms":350`) {
		t.Errorf("encoded event = %s, want dur_ms 350", data)
	}
}
