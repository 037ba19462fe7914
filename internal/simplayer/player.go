// Package simplayer provides simulated playable resources for hosts with no
// real media pipeline (the terminal UI, tests). Time only moves when the
// host calls Binder.Tick, and resource callbacks are returned from Tick
// rather than delivered on another goroutine.
package simplayer

import (
	"errors"
	"time"

	"github.com/abelbrown/reelfeed/internal/feed"
	"github.com/abelbrown/reelfeed/internal/playback"
)

// ErrAutoplayBlocked is returned by Play when the autoplay policy refuses an
// unmuted start.
var ErrAutoplayBlocked = errors.New("autoplay blocked")

// ErrNoMedia is returned by Bind for items without a media reference.
var ErrNoMedia = errors.New("item has no media")

// defaultDuration is used for items without a duration hint.
const defaultDuration = 15 * time.Second

// Options tunes the simulation.
type Options struct {
	// LoadDelay is the time from bind until the resource reports ready.
	LoadDelay time.Duration
	// BlockUnmutedAutoplay fails the first Play of an unmuted resource, the
	// way browsers refuse autoplay with sound.
	BlockUnmutedAutoplay bool
	// StallEvery and StallFor inject a buffering pause after every
	// StallEvery of playback. Zero disables stalls.
	StallEvery time.Duration
	StallFor   time.Duration
}

// Delivery is a resource callback addressed to an item.
type Delivery struct {
	ItemID string
	Event  playback.Event
}

// Player is one simulated resource. It implements playback.Resource.
type Player struct {
	itemID   string
	duration float64
	opts     Options

	pos     float64
	playing bool
	muted   bool
	loop    bool
	rate    float64

	ready    bool
	loadLeft float64

	stalled    bool
	stallLeft  float64
	sinceStall float64

	attempts int
}

func newPlayer(item feed.Item, opts Options) *Player {
	d := item.DurationHint
	if d <= 0 {
		d = defaultDuration
	}
	return &Player{
		itemID:   item.ID,
		duration: d.Seconds(),
		opts:     opts,
		rate:     1,
		loadLeft: opts.LoadDelay.Seconds(),
	}
}

func (p *Player) Play() error {
	p.attempts++
	if p.opts.BlockUnmutedAutoplay && !p.muted && p.attempts == 1 {
		return ErrAutoplayBlocked
	}
	p.playing = true
	return nil
}

func (p *Player) Pause() {
	p.playing = false
	p.stalled = false
}

func (p *Player) Seek(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	if seconds > p.duration {
		seconds = p.duration
	}
	p.pos = seconds
}

func (p *Player) SetMuted(muted bool)  { p.muted = muted }
func (p *Player) SetLoop(loop bool)    { p.loop = loop }
func (p *Player) SetRate(rate float64) { p.rate = rate }
func (p *Player) CurrentTime() float64 { return p.pos }

// Playing reports whether the resource is currently advancing.
func (p *Player) Playing() bool { return p.playing && p.ready && !p.stalled }

// Muted reports the resource's mute flag.
func (p *Player) Muted() bool { return p.muted }

// Duration returns the media length in seconds.
func (p *Player) Duration() float64 { return p.duration }

// tick advances the player by dt seconds and returns its callbacks.
func (p *Player) tick(dt float64) []playback.Event {
	var out []playback.Event

	if !p.ready {
		p.loadLeft -= dt
		if p.loadLeft > 0 {
			return nil
		}
		p.ready = true
		out = append(out, playback.Event{Kind: playback.EventReady})
		if p.playing {
			out = append(out, playback.Event{Kind: playback.EventPlaying})
		}
		return out
	}

	if !p.playing {
		return nil
	}

	if p.stalled {
		p.stallLeft -= dt
		if p.stallLeft > 0 {
			return nil
		}
		p.stalled = false
		return append(out, playback.Event{Kind: playback.EventPlaying})
	}

	step := dt * p.rate
	p.pos += step
	p.sinceStall += step

	if p.pos >= p.duration {
		if p.loop {
			p.pos = 0
		} else {
			p.pos = p.duration
			p.playing = false
			out = append(out, p.timeUpdate())
			return append(out, playback.Event{Kind: playback.EventEnded})
		}
	}
	out = append(out, p.timeUpdate())

	if every := p.opts.StallEvery.Seconds(); every > 0 && p.sinceStall >= every {
		p.sinceStall = 0
		p.stalled = true
		p.stallLeft = p.opts.StallFor.Seconds()
		out = append(out, playback.Event{Kind: playback.EventWaiting})
	}
	return out
}

func (p *Player) timeUpdate() playback.Event {
	return playback.Event{Kind: playback.EventTimeUpdate, CurrentTime: p.pos, Duration: p.duration}
}

// Binder creates simulated players. It implements playback.Binder. Players
// keep running after they are released, so late callbacks from an old
// binding surface as stale events, as they would on a real platform.
type Binder struct {
	opts    Options
	players []*Player
	byItem  map[string]*Player
}

// NewBinder creates a binder with the given simulation options.
func NewBinder(opts Options) *Binder {
	return &Binder{opts: opts, byItem: make(map[string]*Player)}
}

// Bind creates a fresh player for item.
func (b *Binder) Bind(item feed.Item) (playback.Resource, error) {
	if item.MediaRef == "" {
		return nil, ErrNoMedia
	}
	p := newPlayer(item, b.opts)
	if old, ok := b.byItem[item.ID]; ok {
		b.remove(old)
	}
	b.byItem[item.ID] = p
	b.players = append(b.players, p)
	return p, nil
}

// Player returns the latest player bound for itemID.
func (b *Binder) Player(itemID string) (*Player, bool) {
	p, ok := b.byItem[itemID]
	return p, ok
}

// Tick advances every player by dt and returns the callbacks in bind order.
func (b *Binder) Tick(dt time.Duration) []Delivery {
	var out []Delivery
	for _, p := range b.players {
		for _, ev := range p.tick(dt.Seconds()) {
			out = append(out, Delivery{ItemID: p.itemID, Event: ev})
		}
	}
	return out
}

func (b *Binder) remove(p *Player) {
	for i, q := range b.players {
		if q == p {
			b.players = append(b.players[:i], b.players[i+1:]...)
			return
		}
	}
}
