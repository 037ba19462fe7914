package events

// Goroutine safety:
// Emit may be called from any goroutine. The drain goroutine is the only
// reader of l.ch and the only writer to l.w, so w needs no locking of its
// own. Log.mu guards the ring pointer alone and is released before
// Ring.Push, which takes the ring's own lock; the two are never nested.

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// chanSize is the capacity of the async write channel.
const chanSize = 2048

// entry pairs the encoded line with the event itself so the ring keeps
// fields the JSON form drops (Dur).
type entry struct {
	data []byte
	ev   Event
}

// Log writes events as JSONL via a background goroutine and mirrors them
// into an optional Ring. Safe for concurrent use. Emit never blocks: when
// the channel is full, or the Log is closed, the event is counted as
// dropped.
type Log struct {
	mu        sync.Mutex
	ring      *Ring
	sessionID string
	ch        chan entry
	w         io.Writer
	dropped   atomic.Uint64
	closed    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewLog starts a Log writing to w and its drain goroutine. w is written
// only from that goroutine. Call Close to flush and stop it.
func NewLog(w io.Writer) *Log {
	l := &Log{
		sessionID: uuid.NewString(),
		ch:        make(chan entry, chanSize),
		w:         w,
		done:      make(chan struct{}),
	}
	go l.drain()
	return l
}

// NewNullLog discards output but still feeds an attached Ring. It still
// owns a goroutine, so callers Close it.
func NewNullLog() *Log {
	return NewLog(io.Discard)
}

// drain writes queued entries until Close closes the channel. A failed
// write counts as a drop; the ring still receives the event.
func (l *Log) drain() {
	defer close(l.done)
	for e := range l.ch {
		if _, err := l.w.Write(e.data); err != nil {
			l.dropped.Add(1)
		}

		l.mu.Lock()
		ring := l.ring
		l.mu.Unlock()

		if ring != nil {
			ring.Push(e.ev)
		}
	}
}

// Emit stamps e with Time (when zero) and the session id, encodes it, and
// queues it for the drain goroutine. Safe for concurrent use and on a nil
// Log.
//
// Emit may race with Close. The closed flag catches most late calls; a call
// that passes the check just before Close closes the channel panics on send,
// and that panic is recovered and counted as a drop.
func (l *Log) Emit(e Event) {
	if l == nil {
		return
	}
	defer func() {
		if recover() != nil {
			l.dropped.Add(1)
		}
	}()

	if l.closed.Load() {
		l.dropped.Add(1)
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.sessionID

	data, err := json.Marshal(e)
	if err != nil {
		l.dropped.Add(1)
		return
	}
	data = append(data, '\n')

	select {
	case l.ch <- entry{data: data, ev: e}:
	default:
		l.dropped.Add(1)
	}
}

// SetRing attaches a ring buffer for live inspection. Events already queued
// reach the new ring. Safe to call while events are flowing.
func (l *Log) SetRing(r *Ring) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ring = r
}

// SessionID returns the id stamped on every event of this run.
func (l *Log) SessionID() string {
	return l.sessionID
}

// Dropped returns the number of events dropped since creation.
func (l *Log) Dropped() uint64 {
	return l.dropped.Load()
}

// Close stops accepting events, waits for the drain goroutine to write
// everything already queued, and reports drops on stderr. Safe to call more
// than once and from any goroutine; only the first call does the work.
func (l *Log) Close() {
	if l == nil {
		return
	}
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.ch)
		<-l.done

		if d := l.dropped.Load(); d > 0 {
			fmt.Fprintf(os.Stderr, "reelfeed: %d events dropped during session %s\n", d, l.sessionID)
		}
	})
}
