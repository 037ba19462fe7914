// Package overlay couples an auxiliary panel (comments, share sheet) to
// playback: opening pauses, closing resumes only what was playing.
package overlay

// Player is the playback surface an overlay pauses. *playback.Controller
// implements it.
type Player interface {
	IsPlaying() bool
	Pause()
	Play()
}

// Coupling tracks at most one open overlay per surface.
type Coupling struct {
	player     Player
	name       string
	open       bool
	wasPlaying bool
}

// New couples overlays to p.
func New(p Player) *Coupling {
	return &Coupling{player: p}
}

// Open opens the named overlay and pauses playback. Returns false when an
// overlay is already open; the saved play state is left untouched.
func (c *Coupling) Open(name string) bool {
	if c.open {
		return false
	}
	c.open = true
	c.name = name
	c.wasPlaying = c.player.IsPlaying()
	if c.wasPlaying {
		c.player.Pause()
	}
	return true
}

// Close closes the overlay and resumes playback if it was playing at Open.
// Returns false when nothing was open.
func (c *Coupling) Close() bool {
	if !c.open {
		return false
	}
	resume := c.wasPlaying
	c.open = false
	c.name = ""
	c.wasPlaying = false
	if resume {
		c.player.Play()
	}
	return true
}

// Hold re-pauses playback that started while the overlay is open, such as
// an item activated underneath it. The state saved at Open is kept, so
// Close resumes only if playback was running before the overlay opened.
func (c *Coupling) Hold() {
	if !c.open || !c.player.IsPlaying() {
		return
	}
	c.player.Pause()
}

// IsOpen reports whether an overlay is open.
func (c *Coupling) IsOpen() bool {
	return c.open
}

// Name returns the open overlay's name, "" when closed.
func (c *Coupling) Name() string {
	return c.name
}
