package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.NavAccepted("reels", "wheel")
	m.NavDropped("reels", "wheel")
	m.Activation("reels")
	m.PlaybackError("reels")
	m.StaleEvent("reels")
	m.PersistWrite("liked_items")
	m.PersistError("liked_items")
}

func TestCounters(t *testing.T) {
	m := New()
	m.NavAccepted("reels", "key")
	m.NavAccepted("reels", "key")
	m.NavDropped("reels", "wheel")

	if got := testutil.ToFloat64(m.navAccepted.WithLabelValues("reels", "key")); got != 2 {
		t.Errorf("accepted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.navDropped.WithLabelValues("reels", "wheel")); got != 1 {
		t.Errorf("dropped = %v, want 1", got)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.Activation("grid")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `reelfeed_activations_total{surface="grid"} 1`) {
		t.Errorf("metrics output missing activation counter:\n%s", body)
	}
}
