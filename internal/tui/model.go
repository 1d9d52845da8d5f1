// Package tui provides the Bubble Tea practice screen.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ayusman/signlingo/internal/confirm"
	"github.com/ayusman/signlingo/internal/session"
)

const maxBarWidth = 60

// Controller is the part of a session the screen can drive.
type Controller interface {
	Reset()
	Retry()
}

// Feed carries session snapshots into the model. Only the most recent
// undelivered snapshot is kept, so Push never blocks the session.
type Feed struct {
	ch chan session.Snapshot
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{ch: make(chan session.Snapshot, 1)}
}

// Push offers snap to the model, replacing any snapshot it has not read yet.
func (f *Feed) Push(snap session.Snapshot) {
	for {
		select {
		case f.ch <- snap:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

type snapshotMsg session.Snapshot

// Model implements the Bubble Tea practice UI.
type Model struct {
	ctrl  Controller
	feed  *Feed
	keys  KeyMap
	bar   progress.Model
	snap  session.Snapshot
	width int
}

// NewModel constructs the practice screen showing initial until the feed
// delivers something newer.
func NewModel(ctrl Controller, feed *Feed, initial session.Snapshot) *Model {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40
	return &Model{
		ctrl: ctrl,
		feed: feed,
		keys: DefaultKeyMap(),
		bar:  bar,
		snap: initial,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.wait()
}

func (m *Model) wait() tea.Cmd {
	ch := m.feed.ch
	return func() tea.Msg {
		return snapshotMsg(<-ch)
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(max(msg.Width-8, 10), maxBarWidth)
		return m, nil
	case snapshotMsg:
		m.snap = session.Snapshot(msg)
		return m, m.wait()
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Reset):
			m.ctrl.Reset()
		case key.Matches(msg, m.keys.Retry):
			if m.snap.Readiness == session.CameraFailed || m.snap.Error != "" {
				m.ctrl.Retry()
			}
		}
		return m, nil
	default:
		return m, nil
	}
}

// Snapshot returns the snapshot currently on screen.
func (m *Model) Snapshot() session.Snapshot {
	return m.snap
}

// View implements tea.Model.
func (m *Model) View() string {
	s := m.snap
	var b strings.Builder

	b.WriteString(titleStyle.Render("SignLingo · " + s.Exercise.Title))
	b.WriteString("\n\n")

	if s.Completed {
		b.WriteString(doneStyle.Render("Exercise complete!"))
	} else {
		b.WriteString("Sign the letter  ")
		b.WriteString(targetStyle.Render(orDash(s.Letter)))
	}
	b.WriteString("\n\n")

	b.WriteString(renderLetters(s))
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(s.Progress.Percent / 100))
	b.WriteString(fmt.Sprintf("  %d/%d", len(s.Progress.Completed), s.Progress.Total))
	b.WriteString("\n\n")

	if !s.Completed {
		if line := readoutLine(s); line != "" {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString(statusStyle.Render(s.Status))
	if s.Error != "" {
		b.WriteString("  ")
		b.WriteString(errorStyle.Render(s.Error))
	} else if s.ChannelError != "" && s.Channel != "connected" {
		b.WriteString("  ")
		b.WriteString(errorStyle.Render(s.ChannelError))
	}
	b.WriteString("\n\n")

	b.WriteString(footerStyle.Render(m.footer()))

	content := b.String()
	if m.width > 0 {
		content = lipgloss.NewStyle().Width(m.width).Render(content)
	}
	return content
}

func (m *Model) footer() string {
	bindings := []key.Binding{m.keys.Reset}
	if m.snap.Readiness == session.CameraFailed {
		bindings = append(bindings, m.keys.Retry)
	}
	bindings = append(bindings, m.keys.Quit)

	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " · ")
}

// renderLetters shows every target letter, marking completed and current ones.
func renderLetters(s session.Snapshot) string {
	done := make(map[int]bool, len(s.Progress.Completed))
	for _, i := range s.Progress.Completed {
		done[i] = true
	}

	parts := make([]string, len(s.Exercise.Letters))
	for i, letter := range s.Exercise.Letters {
		switch {
		case done[i]:
			parts[i] = completedStyle.Render(letter)
		case i == s.Progress.CurrentIndex && !s.Completed:
			parts[i] = currentStyle.Render(letter)
		default:
			parts[i] = pendingStyle.Render(letter)
		}
	}
	return strings.Join(parts, " ")
}

// readoutLine describes the latest prediction and how close the current
// letter is to being confirmed.
func readoutLine(s session.Snapshot) string {
	var parts []string
	if lp := s.LastPrediction; lp != nil {
		parts = append(parts, fmt.Sprintf("Seen %s (%.0f%%)", lp.Letter, lp.Confidence*100))
	}

	r := s.Readout
	switch {
	case s.Transitioning:
		parts = append(parts, "Correct!")
	case r.Policy == confirm.PolicyHold && r.Elapsed > 0:
		parts = append(parts, fmt.Sprintf("hold %.1fs / %.1fs", r.Elapsed.Seconds(), r.Duration.Seconds()))
	case r.Policy == confirm.PolicyStreak && r.Count > 0:
		parts = append(parts, fmt.Sprintf("streak %d / %d", r.Count, r.Threshold))
	}
	return strings.Join(parts, "  ·  ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
