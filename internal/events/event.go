// Package events records coordinator diagnostics as JSONL.
//
// Events are typed structs written asynchronously through a buffered channel
// and a background drain goroutine. An optional Ring keeps the most recent
// events in memory for the TUI debug pane.
package events

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Kind identifies the category of an event, "<subsystem>.<action>".
type Kind string

const (
	// Navigation
	KindNavAccept Kind = "nav.accept"
	KindNavDrop   Kind = "nav.drop"
	KindNavNoop   Kind = "nav.noop"

	// Playback
	KindActivate   Kind = "play.activate"
	KindDeactivate Kind = "play.deactivate"
	KindState      Kind = "play.state"
	KindStale      Kind = "play.stale"
	KindPlayError  Kind = "play.error"

	// Visibility
	KindVisibility Kind = "vis.change"

	// Overlay
	KindOverlayOpen  Kind = "overlay.open"
	KindOverlayClose Kind = "overlay.close"

	// Engagement / persistence
	KindEngagement   Kind = "feed.engagement"
	KindPersistError Kind = "persist.error"

	// System
	KindStartup  Kind = "sys.startup"
	KindShutdown Kind = "sys.shutdown"
)

// Event is one diagnostics record. Every field except Kind and Time is
// optional.
type Event struct {
	Time      time.Time     `json:"t"`
	Level     Level         `json:"level,omitempty"`
	Kind      Kind          `json:"kind"`
	Surface   string        `json:"surface,omitempty"` // surface kind: "reels", "grid", "watch"
	SessionID string        `json:"session_id,omitempty"`
	Item      string        `json:"item,omitempty"`
	Source    string        `json:"source,omitempty"` // input source for nav events
	From      string        `json:"from,omitempty"`
	To        string        `json:"to,omitempty"`
	Index     int           `json:"index,omitempty"`
	Dur       time.Duration `json:"-"`
	DurMs     float64       `json:"dur_ms,omitempty"` // computed from Dur at marshal time
	Err       string        `json:"err,omitempty"`
	Msg       string        `json:"msg,omitempty"`
}

// MarshalJSON converts Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	a := alias(e)
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}

// Sink accepts events. *Log implements it; nil-safe helpers live on Log.
type Sink interface {
	Emit(e Event)
}
