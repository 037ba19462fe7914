// Package persist maps engagement and watch-progress state onto a durable
// key-value store. Every write replaces the whole namespace; every read
// degrades to an empty mapping when the data is missing or unreadable.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/abelbrown/reelfeed/internal/events"
	"github.com/abelbrown/reelfeed/internal/feed"
	"github.com/abelbrown/reelfeed/internal/history"
	"github.com/abelbrown/reelfeed/internal/logging"
	"github.com/abelbrown/reelfeed/internal/metrics"
)

// ErrNotFound is returned by KV.Get when the key has never been written.
var ErrNotFound = errors.New("key not found")

// Namespaces. Kept apart so independent features never contend on one blob.
const (
	NamespaceLiked        = "liked_items"
	NamespaceSaved        = "saved_items"
	NamespaceWatchHistory = "watch_history"
)

// KV is the durable key-value primitive supplied by the platform.
// Set is a full overwrite.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Persistence reads and writes the coordinator namespaces on a KV.
// It implements feed.EngagementPersister and history.Persister.
type Persistence struct {
	kv      KV
	prefix  string
	metrics *metrics.Metrics
	events  events.Sink
}

var (
	_ feed.EngagementPersister = (*Persistence)(nil)
	_ history.Persister        = (*Persistence)(nil)
)

// New wraps kv. m may be nil.
func New(kv KV, m *metrics.Metrics) *Persistence {
	return &Persistence{kv: kv, metrics: m}
}

// WithPrefix returns a Persistence whose keys are scoped under prefix
// (e.g. a profile id), sharing the same KV.
func (p *Persistence) WithPrefix(prefix string) *Persistence {
	cp := *p
	cp.prefix = prefix
	return &cp
}

// WithEvents returns a Persistence that reports read and write failures to
// sink as persist.error events.
func (p *Persistence) WithEvents(sink events.Sink) *Persistence {
	cp := *p
	cp.events = sink
	return &cp
}

func (p *Persistence) key(ns string) string {
	if p.prefix == "" {
		return ns
	}
	return p.prefix + ":" + ns
}

// load fetches ns and decodes it into v. It reports whether v was filled.
func (p *Persistence) load(ctx context.Context, ns string, v any) bool {
	data, err := p.kv.Get(ctx, p.key(ns))
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err != nil {
		logging.Warn("Persisted data unavailable, starting empty", "namespace", ns, "error", err)
		p.failed(ns, "load", events.LevelWarn, err)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		logging.Warn("Persisted data corrupt, starting empty", "namespace", ns, "error", err)
		p.failed(ns, "decode", events.LevelWarn, err)
		return false
	}
	return true
}

func (p *Persistence) save(ctx context.Context, ns string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ns, err)
	}
	if err := p.kv.Set(ctx, p.key(ns), data); err != nil {
		p.failed(ns, "write", events.LevelError, err)
		return fmt.Errorf("write %s: %w", ns, err)
	}
	p.metrics.PersistWrite(ns)
	return nil
}

func (p *Persistence) failed(ns, op string, level events.Level, err error) {
	p.metrics.PersistError(ns)
	if p.events == nil {
		return
	}
	p.events.Emit(events.Event{
		Kind:  events.KindPersistError,
		Level: level,
		Msg:   op + " " + p.key(ns),
		Err:   err.Error(),
	})
}

// LoadIDs returns the id list stored under ns (empty on any failure).
func (p *Persistence) LoadIDs(ctx context.Context, ns string) []string {
	var ids []string
	if !p.load(ctx, ns, &ids) {
		return nil
	}
	return ids
}

// SaveIDs overwrites ns with ids.
func (p *Persistence) SaveIDs(ctx context.Context, ns string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	return p.save(ctx, ns, ids)
}

// LoadEngagement merges the liked and saved lists into one mapping.
// Items in neither list are absent (the zero Engagement).
func (p *Persistence) LoadEngagement(ctx context.Context) map[string]feed.Engagement {
	out := make(map[string]feed.Engagement)
	for _, id := range p.LoadIDs(ctx, NamespaceLiked) {
		e := out[id]
		e.Liked = true
		out[id] = e
	}
	for _, id := range p.LoadIDs(ctx, NamespaceSaved) {
		e := out[id]
		e.Saved = true
		out[id] = e
	}
	return out
}

// SaveEngagement replaces both lists from m. Ids are written sorted so the
// same mapping always produces the same bytes.
func (p *Persistence) SaveEngagement(ctx context.Context, m map[string]feed.Engagement) error {
	liked := make([]string, 0, len(m))
	saved := make([]string, 0, len(m))
	for id, e := range m {
		if e.Liked {
			liked = append(liked, id)
		}
		if e.Saved {
			saved = append(saved, id)
		}
	}
	sort.Strings(liked)
	sort.Strings(saved)

	if err := p.SaveIDs(ctx, NamespaceLiked, liked); err != nil {
		return err
	}
	return p.SaveIDs(ctx, NamespaceSaved, saved)
}

// LoadWatchHistory returns the stored progress map (empty on any failure).
func (p *Persistence) LoadWatchHistory(ctx context.Context) map[string]history.Record {
	out := make(map[string]history.Record)
	if !p.load(ctx, NamespaceWatchHistory, &out) || out == nil {
		return make(map[string]history.Record)
	}
	return out
}

// SaveWatchHistory replaces the stored progress map.
func (p *Persistence) SaveWatchHistory(ctx context.Context, m map[string]history.Record) error {
	if m == nil {
		m = map[string]history.Record{}
	}
	return p.save(ctx, NamespaceWatchHistory, m)
}
