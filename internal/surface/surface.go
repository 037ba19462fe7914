// Package surface assembles one feed surface: a feed store view, its own
// playback session, a navigation router and an overlay coupling.
//
// Surfaces never share state. The grid feed and the full-screen viewer each
// own a Surface and may be open at the same time without cross-talk.
package surface

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/abelbrown/reelfeed/internal/events"
	"github.com/abelbrown/reelfeed/internal/feed"
	"github.com/abelbrown/reelfeed/internal/logging"
	"github.com/abelbrown/reelfeed/internal/metrics"
	"github.com/abelbrown/reelfeed/internal/nav"
	"github.com/abelbrown/reelfeed/internal/overlay"
	"github.com/abelbrown/reelfeed/internal/playback"
	"github.com/abelbrown/reelfeed/internal/visibility"
)

// Kind selects a surface's behavior.
type Kind string

const (
	// Reels is the full-screen vertical viewer.
	Reels Kind = "reels"
	// Grid is the multi-card preview feed driven by visibility.
	Grid Kind = "grid"
	// Watch is the single-item page with horizontal navigation.
	Watch Kind = "watch"
)

// Config holds per-surface settings. Zero values take package defaults.
type Config struct {
	Kind Kind

	Cooldown            time.Duration
	TouchThreshold      float64
	VisibilityThreshold float64

	// StartIndex is the item activated first on explicit-index surfaces.
	StartIndex int
	// AutoAdvance moves to the next item when one ends. The reel viewer
	// leaves it off.
	AutoAdvance bool
	// Muted is the initial mute state. Grid surfaces are always muted.
	Muted bool

	// Viewport is the grid's scroll model. Ignored for other kinds.
	Viewport visibility.Viewport

	Now     func() time.Time
	Events  events.Sink
	Metrics *metrics.Metrics
}

// Surface is one UI context owning exactly one playback session.
//
// Not safe for concurrent use; drive it from the host's event loop.
type Surface struct {
	id      string
	kind    Kind
	ctx     context.Context
	store   *feed.Store
	player  *playback.Controller
	overlay *overlay.Coupling
	router  *nav.Router
	source  ActivationSource
	viewsrc *ViewportSource // set for grid surfaces

	autoAdvance bool
	events      events.Sink
	metrics     *metrics.Metrics
	logger      *log.Logger
}

// New builds a surface over store. binder supplies playable resources;
// progress may be nil and is ignored by grid surfaces. ctx bounds persistence calls made on behalf of the
// surface for its whole lifetime.
func New(ctx context.Context, store *feed.Store, binder playback.Binder, progress playback.Progress, cfg Config) (*Surface, error) {
	if cfg.Kind == "" {
		cfg.Kind = Reels
	}

	s := &Surface{
		id:          uuid.NewString(),
		kind:        cfg.Kind,
		ctx:         ctx,
		store:       store,
		autoAdvance: cfg.AutoAdvance && cfg.Kind != Grid,
		events:      cfg.Events,
		metrics:     cfg.Metrics,
		logger:      logging.WithPrefix("surface"),
	}

	popts := playback.Options{
		Surface: string(cfg.Kind),
		Muted:   cfg.Muted,
		Now:     cfg.Now,
		Events:  cfg.Events,
		Metrics: cfg.Metrics,
	}
	layout := nav.Vertical
	switch cfg.Kind {
	case Grid:
		popts.ResetOnDeactivate = true
		popts.MuteOnActivate = true
		popts.LoopOnActivate = true
		// Previews start from zero and loop; they never touch watch history.
		progress = nil
	case Reels:
		popts.ResumeProgress = true
	case Watch:
		popts.ResumeProgress = true
		layout = nav.Horizontal
	default:
		return nil, fmt.Errorf("unknown surface kind %q", cfg.Kind)
	}

	s.player = playback.New(store, binder, progress, popts)
	s.player.OnEnded(s.ended)
	s.overlay = overlay.New(s.player)
	s.router = nav.NewRouter(s, nav.Options{
		Cooldown:       cfg.Cooldown,
		TouchThreshold: cfg.TouchThreshold,
		Layout:         layout,
		Now:            cfg.Now,
		OnDrop:         s.dropped,
	})

	if cfg.Kind == Grid {
		s.viewsrc = NewViewportSource(store, s.player, visibility.NewTracker(cfg.VisibilityThreshold), cfg.Viewport)
		s.source = s.viewsrc
	} else {
		s.source = NewExplicitIndexSource(store, s.player, cfg.StartIndex)
	}

	if err := s.source.Start(ctx); err != nil {
		return nil, fmt.Errorf("start %s surface: %w", cfg.Kind, err)
	}
	s.logger.Info("surface mounted", "kind", cfg.Kind, "id", s.id, "items", store.Len())
	return s, nil
}

// ID returns the surface's unique id.
func (s *Surface) ID() string { return s.id }

// Kind returns the surface kind.
func (s *Surface) Kind() Kind { return s.kind }

// Router exposes raw input handling (wheel, touch, keys, clicks).
func (s *Surface) Router() *nav.Router { return s.router }

// Store returns the shared feed store.
func (s *Surface) Store() *feed.Store { return s.store }

// Viewport returns the grid scroll model; ok is false for other kinds.
func (s *Surface) Viewport() (visibility.Viewport, bool) {
	if s.viewsrc == nil {
		return visibility.Viewport{}, false
	}
	return s.viewsrc.Viewport(), true
}

// CurrentIndex returns the active item's position.
func (s *Surface) CurrentIndex() (int, bool) {
	return s.source.Index()
}

// CurrentItem returns the active item.
func (s *Surface) CurrentItem() (feed.Item, bool) {
	id := s.player.ActiveItemID()
	if id == "" {
		return feed.Item{}, false
	}
	return s.store.Item(id)
}

// Session returns the playback session snapshot.
func (s *Surface) Session() playback.Session { return s.player.Session() }

func (s *Surface) IsPlaying() bool   { return s.player.Session().IsPlaying }
func (s *Surface) IsMuted() bool     { return s.player.Session().IsMuted }
func (s *Surface) IsBuffering() bool { return s.player.Session().Buffering }
func (s *Surface) NeedsTap() bool    { return s.player.Session().NeedsTap }

// Advance requests the next item. Subject to the navigation cooldown.
func (s *Surface) Advance() bool {
	return s.router.Advance(nav.SourceClick)
}

// Retreat requests the previous item. Subject to the navigation cooldown.
func (s *Surface) Retreat() bool {
	return s.router.Retreat(nav.SourceClick)
}

// JumpTo requests the item with the given id. Unknown ids are ignored.
func (s *Surface) JumpTo(id string) bool {
	i, ok := s.store.Index(id)
	if !ok {
		return false
	}
	return s.router.JumpTo(i, nav.SourceClick)
}

func (s *Surface) TogglePlay() { s.player.TogglePlay() }
func (s *Surface) ToggleMute() { s.player.ToggleMute() }

// Play starts the active item if it is paused. Hosts use it for autoplay
// when a surface comes on screen.
func (s *Surface) Play() { s.player.Play() }

// ToggleLike flips the like flag of id and persists all engagement.
func (s *Surface) ToggleLike(ctx context.Context, id string) (feed.Engagement, error) {
	e, err := s.store.ToggleLike(ctx, id)
	s.engagement(id, "like", e, err)
	return e, err
}

// ToggleSave flips the saved flag of id and persists all engagement.
func (s *Surface) ToggleSave(ctx context.Context, id string) (feed.Engagement, error) {
	e, err := s.store.ToggleSave(ctx, id)
	s.engagement(id, "save", e, err)
	return e, err
}

// OpenOverlay opens a named overlay and pauses playback.
func (s *Surface) OpenOverlay(name string) bool {
	if !s.overlay.Open(name) {
		return false
	}
	s.emit(events.Event{Kind: events.KindOverlayOpen, Msg: name, Item: s.player.ActiveItemID()})
	return true
}

// CloseOverlay closes the open overlay, resuming playback if it was playing.
func (s *Surface) CloseOverlay() bool {
	name := s.overlay.Name()
	if !s.overlay.Close() {
		return false
	}
	s.emit(events.Event{Kind: events.KindOverlayClose, Msg: name, Item: s.player.ActiveItemID()})
	return true
}

// OverlayOpen returns the open overlay's name, "" when none.
func (s *Surface) OverlayOpen() string { return s.overlay.Name() }

// HandleEvent forwards a resource callback to the playback controller.
func (s *Surface) HandleEvent(itemID string, ev playback.Event) {
	s.player.HandleEvent(s.ctx, itemID, ev)
}

// Observe feeds raw intersection ratios to a grid surface. Other kinds
// ignore it.
func (s *Surface) Observe(batch []visibility.Entry) {
	if s.viewsrc == nil {
		return
	}
	for _, e := range batch {
		s.emit(events.Event{Kind: events.KindVisibility, Item: e.RegionID, Msg: fmt.Sprintf("%.2f", e.Ratio)})
	}
	if err := s.viewsrc.Observe(s.ctx, batch); err != nil {
		s.logger.Warn("visibility activation failed", "surface", s.kind, "error", err)
	}
	s.overlay.Hold()
}

// Resize changes the visible height of a grid surface.
func (s *Surface) Resize(height float64) {
	if s.viewsrc != nil {
		s.viewsrc.Resize(s.ctx, height)
		s.overlay.Hold()
	}
}

// Close stops playback and releases observers. The surface is unusable
// afterwards.
func (s *Surface) Close() {
	s.player.Close()
	if s.viewsrc != nil {
		s.viewsrc.Close()
	}
	s.logger.Info("surface unmounted", "kind", s.kind, "id", s.id)
}

// Navigate implements nav.Handler. Only accepted commands arrive here.
func (s *Surface) Navigate(cmd nav.Command) {
	s.metrics.NavAccepted(string(s.kind), string(cmd.Source))
	from := s.player.ActiveItemID()
	defer s.overlay.Hold()
	if !s.source.Navigate(s.ctx, cmd) {
		s.emit(events.Event{Kind: events.KindNavNoop, Source: string(cmd.Source), Msg: cmd.Kind.String()})
		return
	}
	idx, _ := s.source.Index()
	s.emit(events.Event{
		Kind:   events.KindNavAccept,
		Source: string(cmd.Source),
		From:   from,
		To:     s.player.ActiveItemID(),
		Index:  idx,
		Msg:    cmd.Kind.String(),
	})
}

// Control implements nav.Handler for lock-free playback toggles.
func (s *Surface) Control(c nav.Control) {
	switch c.Kind {
	case nav.TogglePlay:
		s.player.TogglePlay()
	case nav.ToggleMute:
		s.player.ToggleMute()
	case nav.ToggleLoop:
		s.player.ToggleLoop()
	case nav.SeekFraction:
		s.player.SeekFraction(c.Fraction)
	case nav.RateUp:
		s.player.StepRate(1)
	case nav.RateDown:
		s.player.StepRate(-1)
	}
}

func (s *Surface) dropped(cmd nav.Command) {
	s.metrics.NavDropped(string(s.kind), string(cmd.Source))
	s.emit(events.Event{Kind: events.KindNavDrop, Source: string(cmd.Source), Msg: cmd.Kind.String()})
}

// ended runs when the active item finishes. Auto-advance bypasses the
// cooldown since it is not a user gesture.
func (s *Surface) ended(itemID string) {
	if !s.autoAdvance {
		return
	}
	s.logger.Debug("auto-advance", "surface", s.kind, "from", itemID)
	s.source.Navigate(s.ctx, nav.Command{Kind: nav.Advance})
	s.overlay.Hold()
}

func (s *Surface) engagement(id, action string, e feed.Engagement, err error) {
	ev := events.Event{
		Kind: events.KindEngagement,
		Item: id,
		Msg:  fmt.Sprintf("%s liked=%t saved=%t", action, e.Liked, e.Saved),
	}
	if err != nil {
		ev.Level = events.LevelWarn
		ev.Err = err.Error()
	}
	s.emit(ev)
}

func (s *Surface) emit(e events.Event) {
	if s.events == nil {
		return
	}
	e.Surface = string(s.kind)
	s.events.Emit(e)
}
