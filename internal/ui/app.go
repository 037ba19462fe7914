package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/reelfeed/internal/events"
	"github.com/abelbrown/reelfeed/internal/feedsrc"
	"github.com/abelbrown/reelfeed/internal/nav"
	"github.com/abelbrown/reelfeed/internal/surface"
)

// DefaultTick is the simulated resource time-update cadence.
const DefaultTick = 250 * time.Millisecond

// GridRowHeight is the number of terminal lines one grid card occupies.
const GridRowHeight = 5

// rowUnits converts terminal rows into the display units the touch
// threshold is expressed in.
const rowUnits = 16.0

// backgroundOverlay pauses a surface that is not on screen.
const backgroundOverlay = "background"

// commentsOverlay is the comments panel.
const commentsOverlay = "comments"

// Pane pairs a surface with the simulated resources behind it.
type Pane struct {
	Surface *surface.Surface
	Player  Ticker
}

// Options configures the App.
type Options struct {
	Panes     []Pane // in tab order
	Start     surface.Kind
	Ring      *events.Ring
	TickEvery time.Duration
	ShowDebug bool
}

// App is the root Bubble Tea model.
// IMPORTANT: App does NOT own the surfaces' lifecycle. The caller closes them.
type App struct {
	ctx       context.Context
	panes     []Pane
	current   int
	ring      *events.Ring
	tickEvery time.Duration

	comments  []feedsrc.Comment
	spinner   spinner.Model
	progress  progress.Model
	help      help.Model
	keys      keyMap
	showDebug bool

	touchY   int
	touching bool

	err    error
	width  int
	height int
	ready  bool
}

// NewApp creates the App. Panes other than the start pane are paused.
func NewApp(ctx context.Context, opts Options) App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = PlayingStyle

	p := progress.New(
		progress.WithGradient(string(colorPrimary), string(colorHighlight)),
		progress.WithoutPercentage(),
	)

	if opts.TickEvery <= 0 {
		opts.TickEvery = DefaultTick
	}

	a := App{
		ctx:       ctx,
		panes:     opts.Panes,
		ring:      opts.Ring,
		tickEvery: opts.TickEvery,
		spinner:   s,
		progress:  p,
		help:      help.New(),
		keys:      newKeyMap(),
		showDebug: opts.ShowDebug,
	}
	for i, pane := range a.panes {
		if pane.Surface.Kind() == opts.Start {
			a.current = i
		}
	}
	for i, pane := range a.panes {
		if i != a.current {
			pane.Surface.OpenOverlay(backgroundOverlay)
		}
	}
	return a
}

// Init starts the playback clock and the spinner.
func (a App) Init() tea.Cmd {
	return tea.Batch(a.tick(), a.spinner.Tick)
}

func (a App) tick() tea.Cmd {
	return tea.Tick(a.tickEvery, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.MouseMsg:
		return a.handleMouseMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.progress.Width = max(10, msg.Width-12)
		a.help.Width = msg.Width
		for _, pane := range a.panes {
			pane.Surface.Resize(float64(a.contentHeight()))
		}
		return a, nil

	case TickMsg:
		for _, pane := range a.panes {
			if pane.Player == nil {
				continue
			}
			for _, d := range pane.Player.Tick(a.tickEvery) {
				pane.Surface.HandleEvent(d.ItemID, d.Event)
			}
		}
		return a, a.tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Clear any existing error on key press
	if a.err != nil {
		a.err = nil
	}

	s := a.surface()

	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Debug):
		a.showDebug = !a.showDebug
		return a, nil

	case key.Matches(msg, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
		return a, nil
	}

	if s == nil {
		return a, nil
	}

	// The comments overlay captures everything but close.
	if s.OverlayOpen() == commentsOverlay {
		if key.Matches(msg, a.keys.Close) || key.Matches(msg, a.keys.Comments) {
			s.CloseOverlay()
			a.comments = nil
		}
		return a, nil
	}

	switch {
	case key.Matches(msg, a.keys.Switch):
		a.switchTo((a.current + 1) % len(a.panes))
		return a, nil

	case key.Matches(msg, a.keys.Like):
		if item, ok := s.CurrentItem(); ok {
			_, a.err = s.ToggleLike(a.ctx, item.ID)
		}
		return a, nil

	case key.Matches(msg, a.keys.Save):
		if item, ok := s.CurrentItem(); ok {
			_, a.err = s.ToggleSave(a.ctx, item.ID)
		}
		return a, nil

	case key.Matches(msg, a.keys.Comments):
		if item, ok := s.CurrentItem(); ok && s.OpenOverlay(commentsOverlay) {
			a.comments = feedsrc.DemoComments(item.ID, 8)
		}
		return a, nil

	case key.Matches(msg, a.keys.Open):
		if s.Kind() == surface.Grid {
			a.openInViewer()
		}
		return a, nil
	}

	s.Router().Key(msg.String())
	return a, nil
}

// handleMouseMsg maps wheel to scroll, drag to swipe, and taps on the top or
// bottom third of the screen to explicit previous/next.
func (a App) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	s := a.surface()
	if s == nil || s.OverlayOpen() != "" {
		return a, nil
	}
	r := s.Router()

	switch {
	case msg.Button == tea.MouseButtonWheelDown:
		r.Wheel(1)
	case msg.Button == tea.MouseButtonWheelUp:
		r.Wheel(-1)
	case msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
		a.touchY = msg.Y
		a.touching = true
		r.TouchStart(float64(msg.Y) * rowUnits)
	case msg.Action == tea.MouseActionRelease && a.touching:
		a.touching = false
		if r.TouchEnd(float64(msg.Y)*rowUnits) || msg.Y != a.touchY {
			return a, nil
		}
		a.tap(s, msg.Y)
	}
	return a, nil
}

func (a App) tap(s *surface.Surface, y int) {
	third := a.height / 3
	switch {
	case third > 0 && y < third:
		s.Router().Click(nav.Previous)
	case third > 0 && y >= a.height-third:
		s.Router().Click(nav.Next)
	default:
		s.TogglePlay()
	}
}

// switchTo pauses the visible surface and resumes the target. The viewer
// and watch page come back as the user left them; grid previews always
// autoplay on screen.
func (a *App) switchTo(i int) {
	if i == a.current || i < 0 || i >= len(a.panes) {
		return
	}
	a.panes[a.current].Surface.OpenOverlay(backgroundOverlay)
	a.current = i
	next := a.panes[i].Surface
	if next.OverlayOpen() == backgroundOverlay {
		next.CloseOverlay()
	}
	if next.Kind() == surface.Grid && !next.IsPlaying() && !next.NeedsTap() {
		next.Play()
	}
}

// openInViewer opens the active grid card in the reel viewer.
func (a *App) openInViewer() {
	item, ok := a.surface().CurrentItem()
	if !ok {
		return
	}
	for i, pane := range a.panes {
		if pane.Surface.Kind() == surface.Reels {
			a.switchTo(i)
			pane.Surface.JumpTo(item.ID)
			return
		}
	}
}

func (a App) surface() *surface.Surface {
	if len(a.panes) == 0 {
		return nil
	}
	return a.panes[a.current].Surface
}

// contentHeight is the terminal height minus the tab bar and status bar.
func (a App) contentHeight() int {
	h := a.height - 2
	if a.err != nil {
		h--
	}
	if h < GridRowHeight {
		h = GridRowHeight
	}
	return h
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}
	s := a.surface()
	if s == nil {
		return HelpStyle.Render("No feed surfaces configured.")
	}

	if a.showDebug {
		return debugOverlay(a.ring, a.width, a.height) + "\n" + debugStatusBar(a.width)
	}

	tabs := renderTabs(a.panes, a.current, a.width)

	var body string
	switch {
	case s.OverlayOpen() == commentsOverlay:
		item, _ := s.CurrentItem()
		body = renderComments(item, a.comments, a.width, a.contentHeight())
	case s.Kind() == surface.Grid:
		body = renderGrid(s, a.width, a.contentHeight(), a.spinner.View())
	default:
		body = renderReel(s, a.width, a.contentHeight(), a.spinner.View(), a.progress)
	}

	errorBar := ""
	if a.err != nil {
		errorBar = ErrorStyle.Width(a.width).Render("Error: "+a.err.Error()+" (press any key to dismiss)") + "\n"
	}

	footer := RenderStatusBar(s, a.width)
	if a.help.ShowAll {
		footer = a.help.View(a.keys)
	}

	return tabs + "\n" + body + "\n" + errorBar + footer
}

// Current returns the visible surface (for testing).
func (a App) Current() *surface.Surface {
	return a.surface()
}

// Comments returns the comments on display (for testing).
func (a App) Comments() []feedsrc.Comment {
	return a.comments
}
