package tray

import (
	"fmt"

	"github.com/ayusman/signlingo/internal/session"
)

// menu is the text shown in the tray for one snapshot.
type menu struct {
	title    string
	status   string
	target   string
	progress string
	seen     string
	retry    bool
}

func render(snap session.Snapshot) menu {
	m := menu{
		title:  "SignLingo",
		status: snap.Status,
		target: "Sign: -",
		seen:   "Seen: none",
	}

	if snap.Error != "" {
		m.status = snap.Status + ": " + snap.Error
	}
	m.retry = snap.Readiness == session.CameraFailed

	switch {
	case snap.Completed:
		m.target = "Done!"
		m.title = "SignLingo ✓"
	case snap.Letter != "":
		m.target = "Sign: " + snap.Letter
		m.title = "SignLingo · " + snap.Letter
	}

	p := snap.Progress
	m.progress = fmt.Sprintf("Progress: %d/%d (%d%%)", len(p.Completed), p.Total, int(p.Percent))

	if lp := snap.LastPrediction; lp != nil {
		m.seen = fmt.Sprintf("Seen: %s (%.0f%%)", lp.Letter, lp.Confidence*100)
	}
	return m
}
