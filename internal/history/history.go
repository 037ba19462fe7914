// Package history tracks per-item watch progress so playback can resume
// where the viewer left off.
package history

import (
	"context"
	"sort"
	"time"

	"github.com/abelbrown/reelfeed/internal/logging"
)

// completeAt is the completion percentage at which an item counts as watched.
const completeAt = 95.0

// Record is the persisted progress for one item.
type Record struct {
	LastWatchedAt     time.Time `json:"last_watched_at"`
	WatchedSeconds    float64   `json:"watched_seconds"`
	CompletionPercent float64   `json:"completion_percent"`
}

// Completed reports whether the item was watched to (nearly) the end.
func (r Record) Completed() bool {
	return r.CompletionPercent >= completeAt
}

// Persister loads and stores the whole watch-history map.
type Persister interface {
	LoadWatchHistory(ctx context.Context) map[string]Record
	SaveWatchHistory(ctx context.Context, m map[string]Record) error
}

// History is the in-memory watch-history map with write-through persistence.
type History struct {
	records   map[string]Record
	persister Persister
	now       func() time.Time
}

// New loads history once from p (nil p keeps history in memory only).
func New(ctx context.Context, p Persister) *History {
	h := &History{
		records:   make(map[string]Record),
		persister: p,
		now:       time.Now,
	}
	if p != nil {
		for id, r := range p.LoadWatchHistory(ctx) {
			h.records[id] = r
		}
	}
	return h
}

// SetClock overrides the time source (tests).
func (h *History) SetClock(now func() time.Time) {
	h.now = now
}

// Get returns the record for id.
func (h *History) Get(id string) (Record, bool) {
	r, ok := h.records[id]
	return r, ok
}

// ResumePosition returns the position playback should start from.
// Completed items restart from the beginning.
func (h *History) ResumePosition(id string) float64 {
	r, ok := h.records[id]
	if !ok || r.Completed() {
		return 0
	}
	return r.WatchedSeconds
}

// Record stores the current position of id and writes the full map.
// duration <= 0 leaves the completion percentage untouched.
func (h *History) Record(ctx context.Context, id string, current, duration float64) Record {
	r := h.records[id]
	r.LastWatchedAt = h.now()
	r.WatchedSeconds = current
	if duration > 0 {
		pct := current / duration * 100
		if pct > 100 {
			pct = 100
		}
		if pct < 0 {
			pct = 0
		}
		r.CompletionPercent = pct
	}
	h.records[id] = r
	h.flush(ctx)
	return r
}

// MarkCompleted records an item as fully watched (ended event).
func (h *History) MarkCompleted(ctx context.Context, id string, duration float64) Record {
	r := h.records[id]
	r.LastWatchedAt = h.now()
	if duration > 0 {
		r.WatchedSeconds = duration
	}
	r.CompletionPercent = 100
	h.records[id] = r
	h.flush(ctx)
	return r
}

// ContinueWatching returns up to limit unfinished items with progress,
// most recently watched first.
func (h *History) ContinueWatching(limit int) []string {
	type entry struct {
		id string
		at time.Time
	}
	var entries []entry
	for id, r := range h.records {
		if r.Completed() || r.WatchedSeconds <= 0 {
			continue
		}
		entries = append(entries, entry{id: id, at: r.LastWatchedAt})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].at.Equal(entries[j].at) {
			return entries[i].id < entries[j].id
		}
		return entries[i].at.After(entries[j].at)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids
}

// Snapshot returns a copy of all records.
func (h *History) Snapshot() map[string]Record {
	out := make(map[string]Record, len(h.records))
	for id, r := range h.records {
		out[id] = r
	}
	return out
}

func (h *History) flush(ctx context.Context) {
	if h.persister == nil {
		return
	}
	if err := h.persister.SaveWatchHistory(ctx, h.Snapshot()); err != nil {
		logging.Warn("Failed to persist watch history", "error", err)
	}
}
