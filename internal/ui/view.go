package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/reelfeed/internal/feed"
	"github.com/abelbrown/reelfeed/internal/feedsrc"
	"github.com/abelbrown/reelfeed/internal/playback"
	"github.com/abelbrown/reelfeed/internal/surface"
)

// renderTabs renders the view switcher.
func renderTabs(panes []Pane, current, width int) string {
	var tabs []string
	for i, p := range panes {
		label := string(p.Surface.Kind())
		if i == current {
			tabs = append(tabs, TabActive.Render(label))
		} else {
			tabs = append(tabs, TabInactive.Render(label))
		}
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
}

// renderReel renders the active item full screen.
func renderReel(s *surface.Surface, width, height int, spin string, prog progress.Model) string {
	idx, ok := s.CurrentIndex()
	item, hasItem := s.CurrentItem()
	if !ok || !hasItem {
		return HelpStyle.Render("Nothing to play. The feed is empty.")
	}

	sess := s.Session()
	eng := s.Store().Engagement(item.ID)
	inner := max(20, width-8)

	frac := 0.0
	if sess.Duration > 0 {
		frac = sess.Position / sess.Duration
	}

	lines := []string{
		StatStyle.Render(fmt.Sprintf("%d/%d", idx+1, s.Store().Len())),
		TitleStyle.Render(truncateRunes(item.Title, inner)),
		AuthorStyle.Render(item.Author),
		"",
		stateLine(sess, spin),
		prog.ViewAs(frac),
		StatStyle.Render(formatClock(sess.Position) + " / " + formatClock(sess.Duration)),
		"",
		statsLine(item, eng),
		badges(sess),
	}

	card := CardStyle.Width(inner).Render(strings.Join(lines, "\n"))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, card)
}

// renderGrid renders the preview cards visible in the grid viewport.
func renderGrid(s *surface.Surface, width, height int, spin string) string {
	items := s.Store().Items()
	if len(items) == 0 {
		return HelpStyle.Render("Nothing to preview. The feed is empty.")
	}

	vp, _ := s.Viewport()
	cols := vp.Columns
	if cols < 1 {
		cols = 1
	}
	firstRow := 0
	if vp.RowHeight > 0 {
		firstRow = int(vp.Offset / vp.RowHeight)
	}
	cardWidth := max(16, width/cols-2)
	active := ""
	if it, ok := s.CurrentItem(); ok {
		active = it.ID
	}
	sess := s.Session()

	var rows []string
	for row := firstRow; len(rows)*GridRowHeight < height; row++ {
		start := row * cols
		if start >= len(items) {
			break
		}
		var cards []string
		for i := start; i < start+cols && i < len(items); i++ {
			cards = append(cards, renderGridCard(items[i], s.Store().Engagement(items[i].ID), items[i].ID == active, sess, spin, cardWidth))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	return strings.Join(rows, "\n")
}

func renderGridCard(item feed.Item, eng feed.Engagement, active bool, sess playback.Session, spin string, width int) string {
	inner := max(8, width-4)
	status := statsLine(item, eng)
	if active {
		status = stateLine(sess, spin)
	}
	content := strings.Join([]string{
		TitleStyle.Render(truncateRunes(item.Title, inner)),
		AuthorStyle.Render(truncateRunes(item.Author, inner)),
		status,
	}, "\n")

	style := GridCard
	if active {
		style = GridCardActive
	}
	return style.Width(inner).Height(GridRowHeight - 2).Render(content)
}

// renderComments renders the comments overlay for item.
func renderComments(item feed.Item, comments []feedsrc.Comment, width, height int) string {
	inner := max(20, width-6)
	lines := []string{
		TitleStyle.Render("Comments · " + truncateRunes(item.Title, inner-11)),
		"",
	}
	for _, c := range comments {
		if len(lines) >= height-4 {
			break
		}
		lines = append(lines, AuthorStyle.Render(c.Author)+"  "+
			truncateRunes(c.Text, inner-lipgloss.Width(c.Author)-10)+"  "+
			StatStyle.Render(fmt.Sprintf("♥ %d", c.Likes)))
	}
	lines = append(lines, "", StatusBarText.Render("esc: close"))
	return OverlayStyle.Width(inner).Render(strings.Join(lines, "\n"))
}

// stateLine describes playback state, with a spinner while loading or
// buffering.
func stateLine(sess playback.Session, spin string) string {
	switch {
	case sess.NeedsTap:
		return TapStyle.Render("▶ tap to play (space)")
	case sess.State == playback.Loading:
		return spin + " loading"
	case sess.Buffering:
		return spin + " buffering"
	case sess.State == playback.Playing:
		return PlayingStyle.Render("▶ playing")
	case sess.State == playback.Paused:
		return StatStyle.Render("❚❚ paused")
	case sess.State == playback.Ended:
		return StatStyle.Render("■ ended")
	}
	return ""
}

func statsLine(item feed.Item, eng feed.Engagement) string {
	heart := StatStyle.Render("♡")
	if eng.Liked {
		heart = LikedStyle.Render("♥")
	}
	saved := ""
	if eng.Saved {
		saved = "  " + LikedStyle.Render("★ saved")
	}
	return heart + StatStyle.Render(fmt.Sprintf(" %s  💬 %s  ↗ %s  👁 %s",
		formatCount(item.Stats.Likes),
		formatCount(item.Stats.Comments),
		formatCount(item.Stats.Shares),
		formatCount(item.Stats.Views))) + saved
}

func badges(sess playback.Session) string {
	var out []string
	if sess.IsMuted {
		out = append(out, BadgeStyle.Render("muted"))
	}
	if sess.Loop {
		out = append(out, BadgeStyle.Render("loop"))
	}
	if sess.Rate != 1 && sess.Rate > 0 {
		out = append(out, BadgeStyle.Render(fmt.Sprintf("%gx", sess.Rate)))
	}
	return strings.Join(out, "")
}

// RenderStatusBar renders the bottom bar for surface s.
func RenderStatusBar(s *surface.Surface, width int) string {
	position := fmt.Sprintf(" %s ", s.Kind())
	if idx, ok := s.CurrentIndex(); ok {
		position = fmt.Sprintf(" %s %d/%d ", s.Kind(), idx+1, s.Store().Len())
	}
	if s.Router().Locked() {
		position += "· "
	}

	nav := "j/k"
	if s.Kind() == surface.Watch {
		nav = "←/→"
	}
	keys := []string{
		StatusBarKey.Render(nav) + StatusBarText.Render(":nav"),
		StatusBarKey.Render("space") + StatusBarText.Render(":play"),
		StatusBarKey.Render("f") + StatusBarText.Render(":like"),
		StatusBarKey.Render("c") + StatusBarText.Render(":comments"),
		StatusBarKey.Render("tab") + StatusBarText.Render(":view"),
		StatusBarKey.Render("?") + StatusBarText.Render(":help"),
		StatusBarKey.Render("q") + StatusBarText.Render(":quit"),
	}
	keyHints := strings.Join(keys, " ")

	// Calculate padding to fill width
	padding := width - lipgloss.Width(position) - lipgloss.Width(keyHints)
	if padding < 0 {
		padding = 0
	}

	bar := position + strings.Repeat(" ", padding) + keyHints
	return StatusBar.Width(width).Render(bar)
}

// formatClock renders seconds as m:ss.
func formatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// formatCount abbreviates large counters: 950, 1.2K, 3.4M.
func formatCount(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

// truncateRunes truncates s to maxRunes, appending "…" when cut.
func truncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	r := []rune(s)
	if maxRunes == 1 {
		return "…"
	}
	return string(r[:maxRunes-1]) + "…"
}
