package playback

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/abelbrown/reelfeed/internal/events"
	"github.com/abelbrown/reelfeed/internal/feed"
	"github.com/abelbrown/reelfeed/internal/history"
	"github.com/abelbrown/reelfeed/internal/logging"
	"github.com/abelbrown/reelfeed/internal/metrics"
)

// Catalog resolves item ids. *feed.Store implements it.
type Catalog interface {
	Item(id string) (feed.Item, bool)
}

// Progress reads and writes watch progress. *history.History implements it.
type Progress interface {
	ResumePosition(id string) float64
	Record(ctx context.Context, id string, current, duration float64) history.Record
	MarkCompleted(ctx context.Context, id string, duration float64) history.Record
}

// Options describes how a surface treats its resources.
type Options struct {
	// Surface labels logs, events and metrics ("reels", "grid", "watch").
	Surface string

	// ResetOnDeactivate seeks the outgoing resource back to zero.
	ResetOnDeactivate bool
	// ResumeProgress seeks a newly bound resource to the persisted position.
	ResumeProgress bool
	// MuteOnActivate and LoopOnActivate force the session flags on every
	// activation (background previews).
	MuteOnActivate bool
	LoopOnActivate bool

	// Muted is the initial session mute state.
	Muted bool

	// Now stamps load start for time-to-ready. Defaults to time.Now.
	Now func() time.Time

	Events  events.Sink
	Metrics *metrics.Metrics
}

// Controller is the playback state machine of one surface.
//
// Not safe for concurrent use; resource callbacks must be delivered on the
// same goroutine that issues commands.
type Controller struct {
	catalog  Catalog
	binder   Binder
	progress Progress
	opts     Options
	logger   *log.Logger

	sess   Session
	item   feed.Item
	res    Resource
	loaded bool // current binding reported ready/playing at least once

	loadStart time.Time // entry into Loading, for the time-to-ready event

	onEnded func(itemID string)
}

// New creates a controller in the Idle state. progress may be nil.
func New(catalog Catalog, binder Binder, progress Progress, opts Options) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		catalog:  catalog,
		binder:   binder,
		progress: progress,
		opts:     opts,
		logger:   logging.WithPrefix("playback"),
		sess: Session{
			IsMuted: opts.Muted,
			Loop:    opts.LoopOnActivate,
			Rate:    1,
		},
	}
}

// OnEnded registers a callback run after the active item ends.
func (c *Controller) OnEnded(fn func(itemID string)) {
	c.onEnded = fn
}

// Session returns a copy of the current session.
func (c *Controller) Session() Session {
	s := c.sess
	if c.res != nil {
		s.Position = c.res.CurrentTime()
	}
	return s
}

// ActiveItemID returns the active item, "" when none.
func (c *Controller) ActiveItemID() string {
	return c.sess.ActiveItemID
}

// IsPlaying reports whether the active item is meant to be playing.
func (c *Controller) IsPlaying() bool {
	return c.sess.IsPlaying
}

// Activate makes itemID the active item. Re-activating the current item is
// a no-op. Playback failures are absorbed into the session (Paused with
// NeedsTap); only an unknown id returns an error.
func (c *Controller) Activate(ctx context.Context, itemID string) error {
	if itemID != "" && itemID == c.sess.ActiveItemID {
		return nil
	}
	item, ok := c.catalog.Item(itemID)
	if !ok {
		return fmt.Errorf("activate %q: %w", itemID, feed.ErrUnknownItem)
	}

	prev := c.sess.ActiveItemID
	c.release()

	c.item = item
	c.sess.ActiveItemID = itemID
	c.sess.Buffering = false
	c.sess.NeedsTap = false
	c.sess.Duration = item.DurationHint.Seconds()
	if c.opts.MuteOnActivate {
		c.sess.IsMuted = true
	}
	if c.opts.LoopOnActivate {
		c.sess.Loop = true
	}

	c.opts.Metrics.Activation(c.opts.Surface)
	c.emit(events.Event{Kind: events.KindActivate, Item: itemID, From: prev})
	c.logger.Debug("activate", "surface", c.opts.Surface, "item", itemID, "from", prev)

	if err := c.bind(); err != nil {
		c.fail(err)
		return nil
	}

	start := 0.0
	if c.opts.ResumeProgress && c.progress != nil {
		start = c.progress.ResumePosition(itemID)
	}
	c.res.Seek(start)

	c.sess.IsPlaying = true
	c.setState(Loading)
	if err := c.res.Play(); err != nil {
		c.fail(err)
	}
	return nil
}

// Deactivate stops the active resource and clears the session's item.
func (c *Controller) Deactivate() {
	if c.sess.ActiveItemID == "" {
		return
	}
	id := c.sess.ActiveItemID
	c.release()
	c.sess.ActiveItemID = ""
	c.item = feed.Item{}
	c.sess.Duration = 0
	c.setState(Idle)
	c.emit(events.Event{Kind: events.KindDeactivate, Item: id})
}

// Close stops the bound resource when the surface unmounts.
func (c *Controller) Close() {
	c.Deactivate()
}

// HandleEvent applies a resource callback. Events for any item other than
// the active one are stale and ignored.
func (c *Controller) HandleEvent(ctx context.Context, itemID string, ev Event) {
	if itemID == "" || itemID != c.sess.ActiveItemID || c.res == nil {
		c.opts.Metrics.StaleEvent(c.opts.Surface)
		c.emit(events.Event{Kind: events.KindStale, Item: itemID, Msg: ev.Kind.String()})
		c.logger.Debug("stale event ignored", "surface", c.opts.Surface, "item", itemID, "event", ev.Kind, "active", c.sess.ActiveItemID)
		return
	}

	switch ev.Kind {
	case EventReady, EventPlaying:
		c.loaded = true
		c.sess.Buffering = false
		if c.sess.IsPlaying {
			c.setState(Playing)
		}

	case EventWaiting:
		if c.sess.IsPlaying {
			c.sess.Buffering = true
		}

	case EventEnded:
		if c.sess.Loop {
			return
		}
		c.sess.IsPlaying = false
		c.sess.Buffering = false
		c.setState(Ended)
		if c.progress != nil {
			c.progress.MarkCompleted(ctx, itemID, c.duration(ev))
		}
		if c.onEnded != nil {
			c.onEnded(itemID)
		}

	case EventError:
		c.fail(ev.Err)

	case EventTimeUpdate:
		if ev.Duration > 0 {
			c.sess.Duration = ev.Duration
		}
		if c.sess.State != Playing {
			return
		}
		c.sess.Buffering = false
		if c.progress != nil {
			c.progress.Record(ctx, itemID, ev.CurrentTime, c.duration(ev))
		}
	}
}

// TogglePlay flips between playing and paused. No-op without an active item.
func (c *Controller) TogglePlay() {
	if c.sess.ActiveItemID == "" {
		return
	}
	if c.sess.IsPlaying {
		c.Pause()
		return
	}
	c.Play()
}

// Pause pauses the active item.
func (c *Controller) Pause() {
	if c.sess.ActiveItemID == "" || !c.sess.IsPlaying {
		return
	}
	if c.res != nil {
		c.res.Pause()
	}
	c.sess.IsPlaying = false
	c.sess.Buffering = false
	c.setState(Paused)
}

// Play starts or resumes the active item. It is the manual recovery path
// after a failure, so it clears NeedsTap and rebinds when needed.
func (c *Controller) Play() {
	if c.sess.ActiveItemID == "" || c.sess.IsPlaying {
		return
	}
	c.sess.NeedsTap = false

	if c.res == nil {
		if err := c.bind(); err != nil {
			c.fail(err)
			return
		}
	}
	if c.sess.State == Ended {
		c.res.Seek(0)
	}

	c.sess.IsPlaying = true
	if c.loaded {
		c.setState(Playing)
	} else {
		c.setState(Loading)
	}
	if err := c.res.Play(); err != nil {
		c.fail(err)
	}
}

// ToggleMute flips the session mute flag.
func (c *Controller) ToggleMute() {
	c.SetMuted(!c.sess.IsMuted)
}

// SetMuted sets the session mute flag and applies it to the bound resource.
func (c *Controller) SetMuted(muted bool) {
	c.sess.IsMuted = muted
	if c.res != nil {
		c.res.SetMuted(muted)
	}
}

// ToggleLoop flips the session loop flag.
func (c *Controller) ToggleLoop() {
	c.sess.Loop = !c.sess.Loop
	if c.res != nil {
		c.res.SetLoop(c.sess.Loop)
	}
}

// SetRate sets the playback rate, clamped to the Rates range.
func (c *Controller) SetRate(rate float64) {
	lo, hi := Rates[0], Rates[len(Rates)-1]
	if rate < lo {
		rate = lo
	}
	if rate > hi {
		rate = hi
	}
	c.sess.Rate = rate
	if c.res != nil {
		c.res.SetRate(rate)
	}
}

// StepRate moves to the next (+1) or previous (-1) entry in Rates.
func (c *Controller) StepRate(dir int) {
	i := 0
	for i < len(Rates)-1 && Rates[i] < c.sess.Rate {
		i++
	}
	i += dir
	if i < 0 {
		i = 0
	}
	if i >= len(Rates) {
		i = len(Rates) - 1
	}
	c.SetRate(Rates[i])
}

// SeekFraction seeks the active item to f (0..1) of its duration. Does
// nothing when the duration is unknown.
func (c *Controller) SeekFraction(f float64) {
	if c.res == nil || c.sess.Duration <= 0 {
		return
	}
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	c.res.Seek(f * c.sess.Duration)
	if c.sess.State == Ended {
		c.setState(Paused)
	}
}

func (c *Controller) bind() error {
	res, err := c.binder.Bind(c.item)
	if err != nil {
		c.res = nil
		return fmt.Errorf("bind %q: %w", c.item.ID, err)
	}
	c.res = res
	c.loaded = false
	res.SetMuted(c.sess.IsMuted)
	res.SetLoop(c.sess.Loop)
	res.SetRate(c.sess.Rate)
	return nil
}

// release stops the bound resource. Position state is left alone unless the
// surface resets on deactivate.
func (c *Controller) release() {
	if c.res != nil {
		c.res.Pause()
		if c.opts.ResetOnDeactivate {
			c.res.Seek(0)
		}
	}
	c.res = nil
	c.loaded = false
	c.sess.IsPlaying = false
	c.sess.Buffering = false
}

// fail records a recoverable playback error: Error, then Paused awaiting a
// manual tap.
func (c *Controller) fail(err error) {
	c.opts.Metrics.PlaybackError(c.opts.Surface)
	c.logger.Warn("playback failed", "surface", c.opts.Surface, "item", c.sess.ActiveItemID, "error", err)

	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	c.emit(events.Event{Kind: events.KindPlayError, Level: events.LevelWarn, Item: c.sess.ActiveItemID, Err: errMsg})

	c.setState(Error)
	if c.res != nil {
		c.res.Pause()
	}
	c.sess.IsPlaying = false
	c.sess.Buffering = false
	c.sess.NeedsTap = true
	c.setState(Paused)
}

// setState records a transition. Loading to Playing carries the time the
// item took to become ready.
func (c *Controller) setState(s State) {
	if c.sess.State == s {
		return
	}
	from := c.sess.State
	c.sess.State = s

	e := events.Event{Kind: events.KindState, Item: c.sess.ActiveItemID, From: from.String(), To: s.String()}
	if from == Loading && s == Playing && !c.loadStart.IsZero() {
		e.Dur = c.opts.Now().Sub(c.loadStart)
	}
	switch {
	case s == Loading:
		c.loadStart = c.opts.Now()
	case from == Loading:
		c.loadStart = time.Time{}
	}
	c.emit(e)
}

func (c *Controller) duration(ev Event) float64 {
	if ev.Duration > 0 {
		return ev.Duration
	}
	return c.sess.Duration
}

func (c *Controller) emit(e events.Event) {
	if c.opts.Events == nil {
		return
	}
	e.Surface = c.opts.Surface
	c.opts.Events.Emit(e)
}
