package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/signlingo/internal/capture"
	"github.com/ayusman/signlingo/internal/config"
	"github.com/ayusman/signlingo/internal/detector"
	"github.com/ayusman/signlingo/internal/lesson"
	"github.com/ayusman/signlingo/internal/session"
)

// predictionService answers every landmark frame with the current letter.
func predictionService(t *testing.T, letter *atomic.Value) string {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var frame detector.Frame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			if len(frame) == 0 {
				continue
			}
			reply, _ := json.Marshal(map[string]any{"prediction": letter.Load().(string), "confidence": 0.93})
			conn.WriteMessage(websocket.TextMessage, reply)
		}
	}))
	t.Cleanup(ts.Close)

	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func TestApp_PracticeRecordsAttempt(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	// Setup test store
	st := newTestStore(t)

	var letter atomic.Value
	letter.Store("A")

	settings := config.Default()
	settings.ServerURL = predictionService(t, &letter)
	settings.Reconnect.Policy = config.PolicyFixed
	settings.Reconnect.BaseDelay = 20 * time.Millisecond
	settings.Confirmation.Policy = "streak"
	settings.Confirmation.StreakThreshold = 2
	settings.TransitionDelay = 20 * time.Millisecond
	settings.RefreshInterval = 10 * time.Millisecond
	settings.MaxFPS = 50

	// Camera playback of blank frames, detector always sees a hand
	mockDetector := detector.NewMockDetector()
	mockDetector.SetHands([]detector.HandLandmarks{detector.LetterALandmarks()})
	source := capture.NewLandmarkSource(capture.NewMockCamera(nil, true), mockDetector)

	a, err := New(Config{Settings: settings, Store: st, Source: source})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ex := lesson.Exercise{ID: 1, Kind: lesson.KindLesson, Title: "Lesson 1", Letters: []string{"A", "B"}}
	sess, err := a.NewSession(ex)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	completed := make(chan session.Snapshot, 1)
	sess.OnComplete(func(snap session.Snapshot) { completed <- snap })
	sess.Watch(func(snap session.Snapshot) {
		if snap.Letter == "B" {
			letter.Store("B")
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.Run(ctx)

	select {
	case snap := <-completed:
		if snap.Progress.Percent != 100 {
			t.Errorf("expected 100%% progress, got %v", snap.Progress.Percent)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("exercise did not complete, last snapshot %+v", sess.Snapshot())
	}

	cancel()
	<-sess.Done()
	if err := a.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	attempts, err := st.Attempts().List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts))
	}
	if !attempts[0].Completed {
		t.Error("expected recorded attempt to be completed")
	}

	confirmations, err := st.Confirmations().ListByAttempt(attempts[0].ID)
	if err != nil {
		t.Fatalf("ListByAttempt() error = %v", err)
	}
	if len(confirmations) != 2 || confirmations[0].Letter != "A" || confirmations[1].Letter != "B" {
		t.Errorf("confirmations = %+v, want A then B", confirmations)
	}
}
