// Package ui provides the Bubble Tea TUI hosting the feed surfaces.
package ui

import (
	"time"

	"github.com/abelbrown/reelfeed/internal/simplayer"
)

// TickMsg advances the simulated playback clock.
type TickMsg time.Time

// Ticker advances simulated resources and returns their callbacks.
// *simplayer.Binder implements it.
type Ticker interface {
	Tick(dt time.Duration) []simplayer.Delivery
}
