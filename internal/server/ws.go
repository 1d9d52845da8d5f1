package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/signlingo/internal/session"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// handleSessionEvents streams session snapshots over a WebSocket. The current
// snapshot is sent on connect; after that a slow client only sees the latest.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates := make(chan session.Snapshot, 1)
	updates <- s.config.Session.Snapshot()

	unwatch := s.config.Session.Watch(func(snap session.Snapshot) {
		select {
		case updates <- snap:
			return
		default:
		}
		// Replace the stale pending snapshot.
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- snap:
		default:
		}
	})
	defer unwatch()

	// Keep reading so close frames from the client are processed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-s.quit:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		case snap := <-updates:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				s.log.Debug("session event write failed", "error", err)
				return
			}
		}
	}
}
