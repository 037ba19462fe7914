// Package feed holds the ordered set of playable feed items and the
// per-item engagement flags (liked/saved) layered on top of them.
package feed

import (
	"errors"
	"time"
)

// ErrUnknownItem is returned when an operation names an id that is not in the store.
var ErrUnknownItem = errors.New("unknown feed item")

// Item is one playable entry of a feed. Identity (ID, MediaRef) is fixed for
// the session; only Stats and engagement change.
type Item struct {
	ID           string
	MediaRef     string        // opaque locator handed to the playback binder
	DurationHint time.Duration // zero when unknown
	Title        string
	Author       string
	Stats        Stats
}

// Stats is the denormalized counter block shown next to an item.
type Stats struct {
	Views    int64
	Likes    int64
	Comments int64
	Shares   int64
}

// Engagement is the per-item liked/saved state. The zero value means
// "never interacted".
type Engagement struct {
	Liked bool `json:"liked"`
	Saved bool `json:"saved"`
}

// IsZero reports whether neither flag is set.
func (e Engagement) IsZero() bool {
	return !e.Liked && !e.Saved
}

// EngagementPatch names the flags to change; nil fields are left alone.
type EngagementPatch struct {
	Liked *bool
	Saved *bool
}

// Bool returns a pointer to b, for building patches.
func Bool(b bool) *bool {
	return &b
}
