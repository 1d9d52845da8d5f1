// Package tray provides a system tray interface for a SignLingo practice
// session.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/signlingo/internal/session"
)

// Tray represents the system tray application.
type Tray struct {
	title   string
	onReset func()
	onRetry func()
	onOpen  func()
	onQuit  func()
	mu      sync.RWMutex

	// Menu items stored for later updates
	menuStatus   *systray.MenuItem
	menuTarget   *systray.MenuItem
	menuProgress *systray.MenuItem
	menuSeen     *systray.MenuItem
	menuRetry    *systray.MenuItem
	menuOpen     *systray.MenuItem
	pending      *session.Snapshot
}

// New creates a new Tray titled after the exercise being practised.
func New(title string) *Tray {
	return &Tray{title: title}
}

// OnReset sets the callback for the "Try Again" menu item.
func (t *Tray) OnReset(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReset = fn
}

// OnRetry sets the callback for the "Retry Camera" menu item.
func (t *Tray) OnRetry(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRetry = fn
}

// OnOpen sets the callback for the "Open in Browser" menu item. The item is
// only shown when a callback is set before Run.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray event loop.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("SignLingo")
	systray.SetTooltip("SignLingo: " + t.title)

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem(session.StatusConnecting, "Session status")
	t.menuStatus.Disable()
	t.menuTarget = systray.AddMenuItem("Sign: -", "Letter to sign next")
	t.menuTarget.Disable()
	t.menuProgress = systray.AddMenuItem("Progress: 0%", "Letters confirmed")
	t.menuProgress.Disable()
	t.menuSeen = systray.AddMenuItem("Seen: none", "Latest prediction")
	t.menuSeen.Disable()
	systray.AddSeparator()

	menuReset := systray.AddMenuItem("Try Again", "Start the exercise over")
	t.menuRetry = systray.AddMenuItem("Retry Camera", "Try to open the camera again")
	t.menuRetry.Hide()

	openCh := make(chan struct{})
	if t.onOpen != nil {
		t.menuOpen = systray.AddMenuItem("Open in Browser", "Open the practice page")
		openCh = t.menuOpen.ClickedCh
	}
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit SignLingo")

	pending := t.pending
	t.pending = nil
	t.mu.Unlock()

	if pending != nil {
		t.Update(*pending)
	}

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-menuReset.ClickedCh:
				t.handle(func() func() { return t.onReset })
			case <-t.menuRetry.ClickedCh:
				t.handle(func() func() { return t.onRetry })
			case <-openCh:
				t.handle(func() func() { return t.onOpen })
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handle runs the callback chosen by get outside the lock.
func (t *Tray) handle(get func() func()) {
	t.mu.RLock()
	callback := get()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.handle(func() func() { return t.onQuit })
	systray.Quit()
}

// Update refreshes the menu from a session snapshot. Snapshots that arrive
// before the tray is ready are applied once it is.
func (t *Tray) Update(snap session.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.menuStatus == nil {
		t.pending = &snap
		return
	}

	m := render(snap)
	t.menuStatus.SetTitle(m.status)
	t.menuTarget.SetTitle(m.target)
	t.menuProgress.SetTitle(m.progress)
	t.menuSeen.SetTitle(m.seen)
	if m.retry {
		t.menuRetry.Show()
	} else {
		t.menuRetry.Hide()
	}
	systray.SetTitle(m.title)
}
