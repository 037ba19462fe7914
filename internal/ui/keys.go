package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap lists the host-level bindings. Navigation and playback keys are
// interpreted by each surface's router; they appear here for help only.
type keyMap struct {
	Nav      key.Binding
	Play     key.Binding
	Mute     key.Binding
	Loop     key.Binding
	Seek     key.Binding
	Rate     key.Binding
	Like     key.Binding
	Save     key.Binding
	Comments key.Binding
	Open     key.Binding
	Switch   key.Binding
	Debug    key.Binding
	Help     key.Binding
	Close    key.Binding
	Quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Nav: key.NewBinding(
			key.WithKeys("up", "down", "j", "k", "left", "right"),
			key.WithHelp("↑/↓ ←/→", "navigate"),
		),
		Play: key.NewBinding(
			key.WithKeys(" ", "p"),
			key.WithHelp("space", "play/pause"),
		),
		Mute: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mute"),
		),
		Loop: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "loop"),
		),
		Seek: key.NewBinding(
			key.WithKeys("0", "1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("0-9", "seek"),
		),
		Rate: key.NewBinding(
			key.WithKeys("<", ">"),
			key.WithHelp("</>", "speed"),
		),
		Like: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "like"),
		),
		Save: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "save"),
		),
		Comments: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "comments"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open in viewer"),
		),
		Switch: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch view"),
		),
		Debug: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "debug"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Nav, k.Play, k.Like, k.Comments, k.Switch, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Nav, k.Play, k.Mute, k.Loop, k.Seek, k.Rate},
		{k.Like, k.Save, k.Comments, k.Close, k.Open},
		{k.Switch, k.Debug, k.Help, k.Quit},
	}
}
