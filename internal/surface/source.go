package surface

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/abelbrown/reelfeed/internal/feed"
	"github.com/abelbrown/reelfeed/internal/logging"
	"github.com/abelbrown/reelfeed/internal/nav"
	"github.com/abelbrown/reelfeed/internal/visibility"
)

// Activator is the playback side of a surface. *playback.Controller
// implements it.
type Activator interface {
	Activate(ctx context.Context, itemID string) error
	Deactivate()
	ActiveItemID() string
}

// ActivationSource decides which item a surface activates. The controller
// never learns which source drove an activation.
type ActivationSource interface {
	// Start performs the initial activation.
	Start(ctx context.Context) error
	// Index returns the position of the active item.
	Index() (int, bool)
	// Navigate applies an accepted navigation command and reports whether
	// anything moved.
	Navigate(ctx context.Context, cmd nav.Command) bool
}

// ExplicitIndexSource tracks a current index for single-item pages. The
// item at the index is always the active one.
type ExplicitIndexSource struct {
	store   *feed.Store
	player  Activator
	index   int
	started bool
}

// NewExplicitIndexSource starts at index start (clamped).
func NewExplicitIndexSource(store *feed.Store, player Activator, start int) *ExplicitIndexSource {
	return &ExplicitIndexSource{store: store, player: player, index: start}
}

func (s *ExplicitIndexSource) Start(ctx context.Context) error {
	i, ok := s.store.ClampIndex(s.index)
	if !ok {
		return nil
	}
	return s.activate(ctx, i)
}

func (s *ExplicitIndexSource) Index() (int, bool) {
	if !s.started {
		return 0, false
	}
	return s.index, true
}

// Navigate moves the index by one or jumps. Moves past either end are
// clamped; a clamped no-op never reaches the player.
func (s *ExplicitIndexSource) Navigate(ctx context.Context, cmd nav.Command) bool {
	target := s.index
	switch cmd.Kind {
	case nav.Advance:
		target++
	case nav.Retreat:
		target--
	case nav.JumpTo:
		target = cmd.Index
	}
	i, ok := s.store.ClampIndex(target)
	if !ok || (s.started && i == s.index) {
		return false
	}
	return s.activate(ctx, i) == nil
}

func (s *ExplicitIndexSource) activate(ctx context.Context, i int) error {
	item, ok := s.store.At(i)
	if !ok {
		return nil
	}
	if err := s.player.Activate(ctx, item.ID); err != nil {
		return err
	}
	s.index = i
	s.started = true
	return nil
}

// ViewportSource activates grid regions from visibility crossings. Region
// ids are item ids; region order is feed order.
type ViewportSource struct {
	store    *feed.Store
	player   Activator
	tracker  *visibility.Tracker
	viewport visibility.Viewport
	ids      []string
	logger   *log.Logger
}

// NewViewportSource observes every item in store.
func NewViewportSource(store *feed.Store, player Activator, tracker *visibility.Tracker, vp visibility.Viewport) *ViewportSource {
	s := &ViewportSource{
		store:    store,
		player:   player,
		tracker:  tracker,
		viewport: vp,
		logger:   logging.WithPrefix("surface"),
	}
	for i, item := range store.Items() {
		tracker.Observe(item.ID, i, 0)
		s.ids = append(s.ids, item.ID)
	}
	return s
}

func (s *ViewportSource) Start(ctx context.Context) error {
	return s.Observe(ctx, s.viewport.Entries(s.ids))
}

func (s *ViewportSource) Index() (int, bool) {
	id := s.player.ActiveItemID()
	if id == "" {
		return 0, false
	}
	return s.store.Index(id)
}

// Viewport returns the current scroll model.
func (s *ViewportSource) Viewport() visibility.Viewport {
	return s.viewport
}

// Navigate scrolls one row per command. Activation follows from the
// resulting visibility changes, except for JumpTo, which activates its
// target directly.
func (s *ViewportSource) Navigate(ctx context.Context, cmd nav.Command) bool {
	before := s.viewport.Offset
	n := len(s.ids)
	switch cmd.Kind {
	case nav.Advance:
		s.viewport = s.viewport.Scroll(s.viewport.RowHeight, n)
	case nav.Retreat:
		s.viewport = s.viewport.Scroll(-s.viewport.RowHeight, n)
	case nav.JumpTo:
		return s.jumpTo(ctx, cmd.Index)
	}
	if s.viewport.Offset == before {
		return false
	}
	s.refresh(ctx)
	return true
}

// jumpTo scrolls item i's row to the top (clamped) and activates it if its
// region is visible afterwards. Cards sharing its row or revealed by the
// scroll do not compete with the target.
func (s *ViewportSource) jumpTo(ctx context.Context, i int) bool {
	if i < 0 || i >= len(s.ids) {
		return false
	}
	id := s.ids[i]
	before := s.viewport.Offset
	s.viewport = s.viewport.ScrollTo(i, len(s.ids))

	for _, ch := range s.tracker.Update(s.viewport.Entries(s.ids)) {
		if !ch.Intersecting && ch.RegionID == s.player.ActiveItemID() {
			s.player.Deactivate()
		}
	}

	if id == s.player.ActiveItemID() {
		return s.viewport.Offset != before
	}
	if !s.tracker.Intersecting(id) {
		return false
	}
	if err := s.player.Activate(ctx, id); err != nil {
		s.logger.Warn("jump activation failed", "item", id, "error", err)
		return false
	}
	return true
}

// Resize changes the visible height and re-evaluates visibility.
func (s *ViewportSource) Resize(ctx context.Context, height float64) {
	s.viewport.Height = height
	s.viewport = s.viewport.Scroll(0, len(s.ids))
	s.refresh(ctx)
}

// Observe applies a batch of raw intersection ratios from the host.
func (s *ViewportSource) Observe(ctx context.Context, batch []visibility.Entry) error {
	return s.apply(ctx, s.tracker.Update(batch))
}

// Close stops observing every region.
func (s *ViewportSource) Close() {
	for _, id := range s.ids {
		s.tracker.Unobserve(id)
	}
}

// refresh re-derives visibility from the viewport. Activation failures are
// logged; the playback controller has already recorded them.
func (s *ViewportSource) refresh(ctx context.Context) {
	if err := s.Observe(ctx, s.viewport.Entries(s.ids)); err != nil {
		s.logger.Warn("visibility activation failed", "offset", s.viewport.Offset, "error", err)
	}
}

// apply resolves one batch of crossings. Changes arrive in region order; the
// first region to become visible wins the batch, and an active region that
// leaves is deactivated without a replacement.
func (s *ViewportSource) apply(ctx context.Context, changes []visibility.Change) error {
	activated := false
	for _, ch := range changes {
		active := s.player.ActiveItemID()
		if !ch.Intersecting {
			if ch.RegionID == active {
				s.player.Deactivate()
			}
			continue
		}
		if activated || ch.RegionID == active {
			continue
		}
		if err := s.player.Activate(ctx, ch.RegionID); err != nil {
			return err
		}
		activated = true
	}
	return nil
}
