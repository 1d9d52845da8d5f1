package e2e

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/signlingo/internal/app"
	"github.com/ayusman/signlingo/internal/capture"
	"github.com/ayusman/signlingo/internal/config"
	"github.com/ayusman/signlingo/internal/detector"
	"github.com/ayusman/signlingo/internal/lesson"
	"github.com/ayusman/signlingo/internal/server"
	"github.com/ayusman/signlingo/internal/session"
	"github.com/ayusman/signlingo/internal/store"
)

// predictionService replies to every non-empty landmark frame with the
// letter currently stored in letter.
func predictionService(t *testing.T, letter *atomic.Value) *httptest.Server {
	t.Helper()
	return httptest.NewServer(predictionHandler(letter))
}

func predictionHandler(letter *atomic.Value) http.Handler {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
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
			reply, _ := json.Marshal(map[string]any{"prediction": letter.Load().(string), "confidence": 0.88})
			if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
				return
			}
		}
	})
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func testSettings(serverURL string) config.Config {
	settings := config.Default()
	settings.ServerURL = serverURL
	settings.Reconnect.Policy = config.PolicyFixed
	settings.Reconnect.BaseDelay = 25 * time.Millisecond
	settings.Confirmation.Policy = "streak"
	settings.Confirmation.StreakThreshold = 3
	settings.TransitionDelay = 20 * time.Millisecond
	settings.RefreshInterval = 10 * time.Millisecond
	settings.MaxFPS = 60
	return settings
}

func newSource() *capture.LandmarkSource {
	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.LetterBLandmarks()})
	return capture.NewLandmarkSource(capture.NewMockCamera(nil, true), det)
}

type eventView struct {
	Readiness string `json:"readiness"`
	Letter    string `json:"letter"`
	Completed bool   `json:"completed"`
	Progress  struct {
		Completed []int   `json:"completed"`
		Percent   float64 `json:"percent"`
	} `json:"progress"`
}

func TestE2E_LessonOverHTTP(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	var letter atomic.Value
	letter.Store("")
	predictor := predictionService(t, &letter)
	defer predictor.Close()

	st, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()

	application, err := app.New(app.Config{
		Settings: testSettings(wsURL(predictor.URL)),
		Store:    st,
		Source:   newSource(),
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	defer application.Close()

	ex, err := application.Exercise(lesson.KindQuiz, 7)
	if err != nil {
		t.Fatalf("Exercise() error = %v", err)
	}
	sess, err := application.NewSession(ex)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	srv := server.New(server.Config{
		Catalog: application.Catalog(),
		Store:   st,
		Session: sess,
	})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.Run(ctx)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts.URL)+"/api/session/events", nil)
	if err != nil {
		t.Fatalf("dial events error = %v", err)
	}
	defer conn.Close()

	t.Run("StreamsUntilComplete", func(t *testing.T) {
		conn.SetReadDeadline(time.Now().Add(15 * time.Second))
		sawActive := false
		for {
			var ev eventView
			if err := conn.ReadJSON(&ev); err != nil {
				t.Fatalf("read event error = %v (last snapshot %+v)", err, sess.Snapshot())
			}
			if ev.Readiness == "capture_active" {
				sawActive = true
			}
			// Play along: predict whatever the quiz asks for next.
			if ev.Letter != "" && !ev.Completed {
				letter.Store(ev.Letter)
			}
			if ev.Completed {
				if ev.Progress.Percent != 100 {
					t.Errorf("percent = %v, want 100", ev.Progress.Percent)
				}
				if len(ev.Progress.Completed) != len(ex.Letters) {
					t.Errorf("completed %v, want %d letters", ev.Progress.Completed, len(ex.Letters))
				}
				break
			}
		}
		if !sawActive {
			t.Error("never observed an active camera")
		}
	})

	t.Run("HistoryRecordsAttempt", func(t *testing.T) {
		var history struct {
			Attempts []store.Attempt `json:"attempts"`
		}
		deadline := time.Now().Add(5 * time.Second)
		for {
			resp, err := ts.Client().Get(ts.URL + "/api/history")
			if err != nil {
				t.Fatalf("get history error = %v", err)
			}
			json.NewDecoder(resp.Body).Decode(&history)
			resp.Body.Close()

			if len(history.Attempts) == 1 && history.Attempts[0].Completed {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("no completed attempt recorded, got %+v", history.Attempts)
			}
			time.Sleep(20 * time.Millisecond)
		}

		got := history.Attempts[0]
		if got.Kind != string(lesson.KindQuiz) || got.ExerciseID != 7 {
			t.Errorf("attempt = %s %d, want quiz 7", got.Kind, got.ExerciseID)
		}

		resp, err := ts.Client().Get(ts.URL + "/api/history/" + got.ID)
		if err != nil {
			t.Fatalf("get attempt error = %v", err)
		}
		defer resp.Body.Close()

		var detail struct {
			Confirmations []store.Confirmation `json:"confirmations"`
		}
		json.NewDecoder(resp.Body).Decode(&detail)
		if len(detail.Confirmations) != len(ex.Letters) {
			t.Fatalf("expected %d confirmations, got %d", len(ex.Letters), len(detail.Confirmations))
		}
		for i, c := range detail.Confirmations {
			if c.Letter != ex.Letters[i] {
				t.Errorf("confirmation %d = %s, want %s", i, c.Letter, ex.Letters[i])
			}
		}
	})

	t.Run("ResetStartsOver", func(t *testing.T) {
		resp, err := ts.Client().Post(ts.URL+"/api/session/reset", "application/json", nil)
		if err != nil {
			t.Fatalf("reset error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("reset status = %d, want %d", resp.StatusCode, http.StatusAccepted)
		}

		deadline := time.Now().Add(5 * time.Second)
		for {
			snap := sess.Snapshot()
			if !snap.Completed && snap.Progress.CurrentIndex == 0 && snap.Letter == ex.Letters[0] {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("session did not reset, snapshot %+v", snap)
			}
			time.Sleep(10 * time.Millisecond)
		}
	})
}

func TestE2E_ReconnectsWhenServiceAppears(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	var letter atomic.Value
	letter.Store("A")

	// Reserve an address and leave it closed so the first dials fail.
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error = %v", err)
	}
	addr := probe.Addr().String()
	probe.Close()

	application, err := app.New(app.Config{
		Settings: testSettings("ws://" + addr + "/ws"),
		Source:   newSource(),
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	defer application.Close()

	ex, err := application.Exercise(lesson.KindLesson, 1)
	if err != nil {
		t.Fatalf("Exercise() error = %v", err)
	}
	sess, err := application.NewSession(ex)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	confirmed := make(chan string, len(ex.Letters))
	sess.OnConfirm(func(c session.Confirmation) { confirmed <- c.Letter })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.Run(ctx)

	deadline := time.Now().Add(3 * time.Second)
	for sess.Snapshot().ChannelError == "" {
		if time.Now().After(deadline) {
			t.Fatalf("expected a connection error, snapshot %+v", sess.Snapshot())
		}
		time.Sleep(10 * time.Millisecond)
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		t.Skipf("address %s was taken before the service could start: %v", addr, err)
	}
	live := httptest.NewUnstartedServer(predictionHandler(&letter))
	live.Listener.Close()
	live.Listener = l
	live.Start()
	defer live.Close()

	select {
	case got := <-confirmed:
		if got != "A" {
			t.Errorf("confirmed %s, want A", got)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("no confirmation after the service came up, snapshot %+v", sess.Snapshot())
	}

	if snap := sess.Snapshot(); snap.Channel != "connected" {
		t.Errorf("channel = %s, want connected", snap.Channel)
	}
}
