package events

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestEmitWritesValidJSONL(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(&buf)

	l.Emit(Event{Kind: KindNavAccept, Level: LevelInfo, Surface: "reels", Source: "wheel", Index: 2})
	l.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["kind"] != "nav.accept" {
		t.Errorf("expected kind=nav.accept, got %v", decoded["kind"])
	}
	if decoded["source"] != "wheel" {
		t.Errorf("expected source=wheel, got %v", decoded["source"])
	}
	if decoded["index"] != float64(2) {
		t.Errorf("expected index=2, got %v", decoded["index"])
	}
}

func TestEmitSetsTimeAndSessionID(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(&buf)

	before := time.Now()
	l.Emit(Event{Kind: KindStartup})
	l.Close()
	after := time.Now()

	var ev Event
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Time.Before(before) || ev.Time.After(after) {
		t.Errorf("time %v not in [%v, %v]", ev.Time, before, after)
	}
	if ev.SessionID != l.SessionID() || ev.SessionID == "" {
		t.Errorf("session_id = %q, want %q", ev.SessionID, l.SessionID())
	}
}

func TestDurToMs(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(&buf)

	l.Emit(Event{Kind: KindState, Dur: 300 * time.Millisecond})
	l.Close()

	var decoded map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["dur_ms"] != float64(300) {
		t.Errorf("expected dur_ms=300, got %v", decoded["dur_ms"])
	}
}

func TestOmitempty(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(&buf)

	l.Emit(Event{Kind: KindStartup})
	l.Close()

	line := strings.TrimSpace(buf.String())
	for _, field := range []string{"dur_ms", "surface", "item", "source", "from", "to", "index", "err", "msg"} {
		if strings.Contains(line, `"`+field+`"`) {
			t.Errorf("expected field %q to be omitted, but found in: %s", field, line)
		}
	}
}

func TestConcurrentEmit(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Emit(Event{Kind: KindNavDrop})
		}()
	}
	wg.Wait()
	l.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 100 {
		t.Errorf("expected 100 lines, got %d", len(lines))
	}
}

// Concurrent emitters after Close are dropped and counted, never written.
func TestConcurrentEmitAfterCloseIsCounted(t *testing.T) {
	const emitters, perEmitter = 8, 100
	var buf bytes.Buffer
	l := NewLog(&buf)

	burst := func() {
		var wg sync.WaitGroup
		for i := 0; i < emitters; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < perEmitter; j++ {
					l.Emit(Event{Kind: KindNavAccept})
				}
			}()
		}
		wg.Wait()
	}

	burst()
	l.Close()
	burst()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != emitters*perEmitter {
		t.Errorf("written = %d, want %d", len(lines), emitters*perEmitter)
	}
	if l.Dropped() != emitters*perEmitter {
		t.Errorf("Dropped = %d, want %d", l.Dropped(), emitters*perEmitter)
	}
}

func TestNilLogIsSafe(t *testing.T) {
	var l *Log
	l.Emit(Event{Kind: KindStartup})
	l.Close()
}

func TestEmitAfterCloseIsDropped(t *testing.T) {
	l := NewNullLog()
	l.Close()
	l.Emit(Event{Kind: KindShutdown})
	if l.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", l.Dropped())
	}
	l.Close() // idempotent
}

func TestDropCounter(t *testing.T) {
	bw := &blockingWriter{
		started: make(chan struct{}),
		block:   make(chan struct{}),
	}
	l := NewLog(bw)

	// First emit gets picked up by drain, which blocks on write.
	l.Emit(Event{Kind: KindNavAccept})
	<-bw.started

	for i := 0; i < chanSize+10; i++ {
		l.Emit(Event{Kind: KindNavAccept})
	}
	if l.Dropped() == 0 {
		t.Error("expected some drops when channel is full, got 0")
	}

	close(bw.block)
	l.Close()
}

type blockingWriter struct {
	started chan struct{}
	block   chan struct{}
	once    sync.Once
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	w.once.Do(func() {
		close(w.started)
		<-w.block
	})
	return len(p), nil
}

func TestRingAttachedToLog(t *testing.T) {
	l := NewNullLog()
	r := NewRing(8)
	l.SetRing(r)

	l.Emit(Event{Kind: KindActivate, Item: "a"})
	l.Emit(Event{Kind: KindActivate, Item: "b"})
	l.Close()

	last := r.Last(2)
	if len(last) != 2 || last[0].Item != "a" || last[1].Item != "b" {
		t.Errorf("ring contents = %+v", last)
	}
}
