package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/reelfeed/internal/events"
)

// debugPanelChrome is the number of terminal lines consumed by DebugPanel's
// border (top + bottom = 2) and vertical padding (top + bottom = 2).
// Must be updated if DebugPanel style changes.
const debugPanelChrome = 4

// debugRow is one summary line of the debug pane.
type debugRow struct {
	label  string
	format string
	kinds  []events.Kind
}

var debugRows = []debugRow{
	{"Navigation", "%d accepted, %d dropped, %d clamped", []events.Kind{events.KindNavAccept, events.KindNavDrop, events.KindNavNoop}},
	{"Playback", "%d activations, %d errors, %d stale", []events.Kind{events.KindActivate, events.KindPlayError, events.KindStale}},
	{"Overlays", "%d opened, %d closed", []events.Kind{events.KindOverlayOpen, events.KindOverlayClose}},
	{"Engagement", "%d toggles, %d persist errors", []events.Kind{events.KindEngagement, events.KindPersistError}},
}

// debugOverlay renders per-kind counts and the most recent events. Returns
// "" without a ring.
func debugOverlay(ring *events.Ring, width, height int) string {
	if ring == nil {
		return ""
	}

	counts := ring.Counts()
	out := []string{DebugHeaderStyle.Render("Coordinator Stats")}
	for _, row := range debugRows {
		args := make([]any, len(row.kinds))
		for i, k := range row.kinds {
			args[i] = counts[k]
		}
		out = append(out, fmt.Sprintf("  %-11s "+row.format, append([]any{row.label + ":"}, args...)...))
	}
	out = append(out,
		fmt.Sprintf("  %-11s %d / %d events", "Buffer:", ring.Len(), ring.Cap()),
		"",
		DebugHeaderStyle.Render("Recent Events"),
	)
	for _, e := range ring.Last(20) {
		out = append(out, describeEvent(e))
	}

	// Border and padding take debugPanelChrome lines.
	if limit := max(1, height-debugPanelChrome); len(out) > limit {
		out = out[:limit]
	}

	w := min(96, width-4)
	return DebugPanel.Width(max(20, w)).Render(strings.Join(out, "\n"))
}

// describeEvent renders e as one line: age, kind, surface, then whichever
// optional fields are set.
func describeEvent(e events.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %6s  %-16s %-6s", formatAge(time.Since(e.Time)), string(e.Kind), e.Surface)
	if e.Item != "" {
		b.WriteString("  " + truncateRunes(e.Item, 16))
	}
	if e.From != "" || e.To != "" {
		fmt.Fprintf(&b, "  %s→%s", e.From, e.To)
	}
	if e.Dur > 0 {
		b.WriteString(" in " + formatAge(e.Dur))
	}
	if e.Source != "" {
		b.WriteString("  src:" + e.Source)
	}
	if e.Msg != "" {
		b.WriteString("  " + truncateRunes(e.Msg, 40))
	}
	if e.Err != "" {
		b.WriteString("  ERR:" + truncateRunes(e.Err, 30))
	}
	return b.String()
}

// formatAge formats a duration as a compact human string.
// Handles negative durations from clock skew by clamping to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

// debugStatusBar renders the status bar for the debug overlay.
func debugStatusBar(width int) string {
	keys := StatusBarKey.Render("D") + StatusBarText.Render(":close")
	return StatusBar.Width(width).Render("  [DEBUG]  " + keys)
}
