// Package visibility tracks which on-screen regions of a grid layout are
// visible enough to claim playback.
package visibility

import (
	"sort"
)

// DefaultThreshold is the visible area ratio at which a region counts as
// intersecting.
const DefaultThreshold = 0.6

// Entry is one observation from the viewport primitive.
type Entry struct {
	RegionID string
	Ratio    float64 // visible fraction of the region's area, 0..1
}

// Change reports a threshold crossing.
type Change struct {
	RegionID     string
	Order        int
	Intersecting bool
}

type region struct {
	order        int
	threshold    float64
	intersecting bool
}

// Tracker turns raw intersection ratios into crossing events. Changes from
// one batch are reported in ascending region order so the consumer can
// resolve races deterministically.
//
// Not safe for concurrent use.
type Tracker struct {
	defaultThreshold float64
	regions          map[string]*region
}

// NewTracker creates a tracker. A threshold outside (0, 1] falls back to
// DefaultThreshold.
func NewTracker(threshold float64) *Tracker {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Tracker{
		defaultThreshold: threshold,
		regions:          make(map[string]*region),
	}
}

// Observe registers a region. order is its position in the layout; a
// threshold <= 0 uses the tracker default. Re-observing a region resets it
// to not intersecting.
func (t *Tracker) Observe(regionID string, order int, threshold float64) {
	if threshold <= 0 || threshold > 1 {
		threshold = t.defaultThreshold
	}
	t.regions[regionID] = &region{order: order, threshold: threshold}
}

// Unobserve drops a region. No change is reported for it.
func (t *Tracker) Unobserve(regionID string) {
	delete(t.regions, regionID)
}

// Observed reports whether regionID is registered.
func (t *Tracker) Observed(regionID string) bool {
	_, ok := t.regions[regionID]
	return ok
}

// Intersecting reports the last computed state for regionID.
func (t *Tracker) Intersecting(regionID string) bool {
	r, ok := t.regions[regionID]
	return ok && r.intersecting
}

// Len returns the number of observed regions.
func (t *Tracker) Len() int {
	return len(t.regions)
}

// Update applies a batch of observations and returns the regions whose
// state flipped, sorted by order. Unknown regions are ignored; when a region
// appears more than once the last ratio wins.
func (t *Tracker) Update(batch []Entry) []Change {
	latest := make(map[string]float64, len(batch))
	for _, e := range batch {
		if _, ok := t.regions[e.RegionID]; !ok {
			continue
		}
		latest[e.RegionID] = e.Ratio
	}

	var changes []Change
	for id, ratio := range latest {
		r := t.regions[id]
		now := ratio >= r.threshold
		if now == r.intersecting {
			continue
		}
		r.intersecting = now
		changes = append(changes, Change{RegionID: id, Order: r.order, Intersecting: now})
	}

	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Order != changes[j].Order {
			return changes[i].Order < changes[j].Order
		}
		return changes[i].RegionID < changes[j].RegionID
	})
	return changes
}
