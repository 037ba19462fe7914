package feed

import (
	"context"
	"fmt"

	"github.com/abelbrown/reelfeed/internal/logging"
)

// EngagementPersister is the slice of persistence the store needs.
// LoadEngagement must not fail: missing or corrupt data comes back empty.
type EngagementPersister interface {
	LoadEngagement(ctx context.Context) map[string]Engagement
	SaveEngagement(ctx context.Context, m map[string]Engagement) error
}

// Store is the ordered feed plus engagement state.
// Not safe for concurrent use: it is owned by the UI loop.
type Store struct {
	items      []Item
	index      map[string]int
	engagement map[string]Engagement
	persister  EngagementPersister // nil disables persistence
}

// New builds a store over items, reading persisted engagement once.
// Items with a duplicate id keep the first occurrence.
func New(ctx context.Context, items []Item, p EngagementPersister) *Store {
	s := &Store{
		items:      make([]Item, 0, len(items)),
		index:      make(map[string]int, len(items)),
		engagement: make(map[string]Engagement),
		persister:  p,
	}
	for _, it := range items {
		if _, dup := s.index[it.ID]; dup {
			logging.Warn("Duplicate feed item dropped", "id", it.ID)
			continue
		}
		s.index[it.ID] = len(s.items)
		s.items = append(s.items, it)
	}
	if p != nil {
		for id, e := range p.LoadEngagement(ctx) {
			s.engagement[id] = e
		}
	}
	return s
}

// Items returns a copy of the items in feed order.
func (s *Store) Items() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of items.
func (s *Store) Len() int {
	return len(s.items)
}

// Index returns the position of id.
func (s *Store) Index(id string) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

// Item looks an item up by id.
func (s *Store) Item(id string) (Item, bool) {
	i, ok := s.index[id]
	if !ok {
		return Item{}, false
	}
	return s.items[i], true
}

// At returns the item at position i.
func (s *Store) At(i int) (Item, bool) {
	if i < 0 || i >= len(s.items) {
		return Item{}, false
	}
	return s.items[i], true
}

// ClampIndex bounds i to [0, Len-1]. An empty store has no valid index.
func (s *Store) ClampIndex(i int) (int, bool) {
	if len(s.items) == 0 {
		return 0, false
	}
	if i < 0 {
		return 0, true
	}
	if i >= len(s.items) {
		return len(s.items) - 1, true
	}
	return i, true
}

// Engagement returns the flags for id (zero value when never set).
func (s *Store) Engagement(id string) Engagement {
	return s.engagement[id]
}

// EngagementSnapshot returns a copy of the engagement map.
func (s *Store) EngagementSnapshot() map[string]Engagement {
	out := make(map[string]Engagement, len(s.engagement))
	for id, e := range s.engagement {
		out[id] = e
	}
	return out
}

// SetEngagement applies patch to id and persists the full map. The write
// happens even when nothing changed. A persistence failure is logged and
// returned alongside the updated record; the in-memory state keeps the change.
func (s *Store) SetEngagement(ctx context.Context, id string, patch EngagementPatch) (Engagement, error) {
	i, ok := s.index[id]
	if !ok {
		return Engagement{}, fmt.Errorf("set engagement %q: %w", id, ErrUnknownItem)
	}

	prev := s.engagement[id]
	next := prev
	if patch.Liked != nil {
		next.Liked = *patch.Liked
	}
	if patch.Saved != nil {
		next.Saved = *patch.Saved
	}
	s.engagement[id] = next

	switch {
	case next.Liked && !prev.Liked:
		s.items[i].Stats.Likes++
	case !next.Liked && prev.Liked && s.items[i].Stats.Likes > 0:
		s.items[i].Stats.Likes--
	}

	if s.persister != nil {
		if err := s.persister.SaveEngagement(ctx, s.EngagementSnapshot()); err != nil {
			logging.Error("Failed to persist engagement", "id", id, "error", err)
			return next, fmt.Errorf("persist engagement: %w", err)
		}
	}
	return next, nil
}

// ToggleLike flips the liked flag of id.
func (s *Store) ToggleLike(ctx context.Context, id string) (Engagement, error) {
	return s.SetEngagement(ctx, id, EngagementPatch{Liked: Bool(!s.engagement[id].Liked)})
}

// ToggleSave flips the saved flag of id.
func (s *Store) ToggleSave(ctx context.Context, id string) (Engagement, error) {
	return s.SetEngagement(ctx, id, EngagementPatch{Saved: Bool(!s.engagement[id].Saved)})
}
