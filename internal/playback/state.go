// Package playback enforces single-active playback for one feed surface.
//
// A Controller owns the surface's only resource slot. Activation binds a
// resource to the new item and stops the previous one; resource callbacks
// for items that are no longer active are discarded.
package playback

import (
	"github.com/abelbrown/reelfeed/internal/feed"
)

// State is the controller's coarse playback state.
type State int

const (
	Idle State = iota
	Loading
	Playing
	Paused
	Ended
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	case Error:
		return "error"
	}
	return "unknown"
}

// Resource is the platform's playable object. Play may fail synchronously
// (e.g. autoplay blocked); later failures arrive as EventError.
type Resource interface {
	Play() error
	Pause()
	Seek(seconds float64)
	SetMuted(muted bool)
	SetLoop(loop bool)
	SetRate(rate float64)
	CurrentTime() float64
}

// Binder produces a resource for an item.
type Binder interface {
	Bind(item feed.Item) (Resource, error)
}

// EventKind is a resource callback type.
type EventKind int

const (
	EventReady EventKind = iota
	EventPlaying
	EventWaiting
	EventEnded
	EventError
	EventTimeUpdate
)

func (k EventKind) String() string {
	switch k {
	case EventReady:
		return "ready"
	case EventPlaying:
		return "playing"
	case EventWaiting:
		return "waiting"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	case EventTimeUpdate:
		return "timeupdate"
	}
	return "unknown"
}

// Event is a resource callback. CurrentTime and Duration are set for
// EventTimeUpdate; Err for EventError.
type Event struct {
	Kind        EventKind
	CurrentTime float64
	Duration    float64
	Err         error
}

// Session is the observable playback record of one surface.
type Session struct {
	ActiveItemID string // "" when nothing is active
	State        State
	IsPlaying    bool
	IsMuted      bool
	Loop         bool
	Rate         float64
	Buffering    bool
	NeedsTap     bool // playback failed; the user must start it manually
	Position     float64
	Duration     float64
}

// Rates are the playback speeds reachable with StepRate.
var Rates = []float64{0.25, 0.5, 0.75, 1, 1.25, 1.5, 2}
