// Package nav turns raw input (wheel, touch, keyboard, click) into
// throttled advance/retreat commands for one feed surface.
package nav

import (
	"math"
	"time"

	"golang.org/x/time/rate"
)

// DefaultCooldown is the window after an accepted command during which
// further navigation is dropped.
const DefaultCooldown = 300 * time.Millisecond

// DefaultTouchThreshold is the minimum vertical swipe distance, in display
// units, that counts as a gesture.
const DefaultTouchThreshold = 50.0

// Source tags where a command came from. Diagnostics only.
type Source string

const (
	SourceWheel Source = "wheel"
	SourceTouch Source = "touch"
	SourceKey   Source = "key"
	SourceClick Source = "click"
)

// Kind is the navigation verb.
type Kind int

const (
	Advance Kind = iota
	Retreat
	JumpTo
)

func (k Kind) String() string {
	switch k {
	case Advance:
		return "advance"
	case Retreat:
		return "retreat"
	case JumpTo:
		return "jump"
	}
	return "unknown"
}

// Command is a normalized navigation request. Index is used by JumpTo only.
type Command struct {
	Kind   Kind
	Index  int
	Source Source
}

// ControlKind names the playback toggles that never change the active item.
type ControlKind int

const (
	TogglePlay ControlKind = iota
	ToggleMute
	ToggleLoop
	SeekFraction
	RateUp
	RateDown
)

// Control is a playback command that bypasses the navigation lock.
type Control struct {
	Kind     ControlKind
	Fraction float64 // SeekFraction: 0..0.9 of the active item
}

// Handler receives accepted commands. Navigate is only called for commands
// that passed the lock.
type Handler interface {
	Navigate(cmd Command)
	Control(c Control)
}

// Layout selects the key map.
type Layout int

const (
	// Vertical is the stacked reel viewer and grid: up/down navigate.
	Vertical Layout = iota
	// Horizontal is the single-item watch page: left/right navigate.
	Horizontal
)

// Options configures a Router. Zero values take the defaults.
type Options struct {
	Cooldown       time.Duration
	TouchThreshold float64
	Layout         Layout
	Now            func() time.Time

	// OnDrop is called for every command discarded by the lock.
	OnDrop func(cmd Command)
}

// Router serializes navigation for one surface. A single-token limiter is
// the navigation lock: accepting a command spends the token, and the token
// comes back after the cooldown. Dropped commands are never queued.
//
// Not safe for concurrent use; drive it from the UI loop.
type Router struct {
	handler   Handler
	limiter   *rate.Limiter
	threshold float64
	layout    Layout
	now       func() time.Time
	onDrop    func(Command)

	touchStartY float64
	touching    bool

	accepted int
	dropped  int
}

// NewRouter creates a router delivering to h.
func NewRouter(h Handler, opts Options) *Router {
	if opts.Cooldown == 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.TouchThreshold <= 0 {
		opts.TouchThreshold = DefaultTouchThreshold
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	limit := rate.Inf
	if opts.Cooldown > 0 {
		limit = rate.Every(opts.Cooldown)
	}

	return &Router{
		handler:   h,
		limiter:   rate.NewLimiter(limit, 1),
		threshold: opts.TouchThreshold,
		layout:    opts.Layout,
		now:       opts.Now,
		onDrop:    opts.OnDrop,
	}
}

// Dispatch runs cmd through the lock. Returns true when it was accepted.
func (r *Router) Dispatch(cmd Command) bool {
	if !r.limiter.AllowN(r.now(), 1) {
		r.dropped++
		if r.onDrop != nil {
			r.onDrop(cmd)
		}
		return false
	}
	r.accepted++
	r.handler.Navigate(cmd)
	return true
}

// Locked reports whether a command issued now would be dropped.
func (r *Router) Locked() bool {
	return r.limiter.TokensAt(r.now()) < 1
}

// Stats returns accepted and dropped command counts.
func (r *Router) Stats() (accepted, dropped int) {
	return r.accepted, r.dropped
}

// Advance issues an explicit advance (e.g. a "next" button).
func (r *Router) Advance(src Source) bool {
	return r.Dispatch(Command{Kind: Advance, Source: src})
}

// Retreat issues an explicit retreat.
func (r *Router) Retreat(src Source) bool {
	return r.Dispatch(Command{Kind: Retreat, Source: src})
}

// JumpTo requests a specific index. It is subject to the same lock.
func (r *Router) JumpTo(index int, src Source) bool {
	return r.Dispatch(Command{Kind: JumpTo, Index: index, Source: src})
}

// Wheel handles a pointer wheel delta. Any nonzero delta counts; positive
// (scrolling down) advances.
func (r *Router) Wheel(deltaY float64) bool {
	switch {
	case deltaY > 0:
		return r.Dispatch(Command{Kind: Advance, Source: SourceWheel})
	case deltaY < 0:
		return r.Dispatch(Command{Kind: Retreat, Source: SourceWheel})
	}
	return false
}

// TouchStart records where a touch began.
func (r *Router) TouchStart(y float64) {
	r.touchStartY = y
	r.touching = true
}

// TouchEnd completes a swipe. Moving the finger up by more than the
// threshold advances; down retreats; shorter swipes are taps and ignored.
func (r *Router) TouchEnd(y float64) bool {
	if !r.touching {
		return false
	}
	r.touching = false

	delta := r.touchStartY - y
	if math.Abs(delta) <= r.threshold {
		return false
	}
	if delta > 0 {
		return r.Dispatch(Command{Kind: Advance, Source: SourceTouch})
	}
	return r.Dispatch(Command{Kind: Retreat, Source: SourceTouch})
}

// Direction is the explicit direction of a click target.
type Direction int

const (
	Next Direction = iota
	Previous
)

// Click handles an explicit next/previous button.
func (r *Router) Click(dir Direction) bool {
	if dir == Previous {
		return r.Dispatch(Command{Kind: Retreat, Source: SourceClick})
	}
	return r.Dispatch(Command{Kind: Advance, Source: SourceClick})
}

// Key handles a key name as reported by the host (bubbletea key strings).
// It reports whether the key was recognized, not whether a navigation
// command was accepted.
func (r *Router) Key(name string) bool {
	if kind, ok := r.navKey(name); ok {
		r.Dispatch(Command{Kind: kind, Source: SourceKey})
		return true
	}
	if c, ok := r.controlKey(name); ok {
		r.handler.Control(c)
		return true
	}
	return false
}

func (r *Router) navKey(name string) (Kind, bool) {
	if r.layout == Horizontal {
		switch name {
		case "right", "n":
			return Advance, true
		case "left", "b":
			return Retreat, true
		}
		return 0, false
	}
	switch name {
	case "down", "j", "pgdown":
		return Advance, true
	case "up", "k", "pgup":
		return Retreat, true
	}
	return 0, false
}

func (r *Router) controlKey(name string) (Control, bool) {
	switch name {
	case " ", "space", "p":
		return Control{Kind: TogglePlay}, true
	case "m":
		return Control{Kind: ToggleMute}, true
	case "l":
		return Control{Kind: ToggleLoop}, true
	case ">":
		return Control{Kind: RateUp}, true
	case "<":
		return Control{Kind: RateDown}, true
	}
	if r.layout == Horizontal && name == "k" {
		return Control{Kind: TogglePlay}, true
	}
	if len(name) == 1 && name[0] >= '0' && name[0] <= '9' {
		return Control{Kind: SeekFraction, Fraction: float64(name[0]-'0') / 10}, true
	}
	return Control{}, false
}
