package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/signlingo/internal/lesson"
	"github.com/ayusman/signlingo/internal/session"
	"github.com/ayusman/signlingo/internal/store"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func (c *clock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestRecorder(t *testing.T, letters ...string) (*Recorder, *store.Store, *clock) {
	t.Helper()
	st := newTestStore(t)
	clk := &clock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	rec := NewRecorder(RecorderConfig{
		Store:    st,
		Exercise: lesson.Exercise{ID: 3, Kind: lesson.KindQuiz, Title: "Quiz 3", Letters: letters},
		Policy:   "streak",
		Now:      clk.Now,
	})
	return rec, st, clk
}

func progress(done int, total int) session.Snapshot {
	completed := make([]int, done)
	for i := range completed {
		completed[i] = i
	}
	return session.Snapshot{Progress: lesson.Progress{CurrentIndex: done, Completed: completed, Total: total}}
}

func TestRecorder_CompletedAttempt(t *testing.T) {
	rec, st, clk := newTestRecorder(t, "A", "B")

	if rec.AttemptID() != "" {
		t.Fatal("no attempt should exist before the first confirmation")
	}

	clk.advance(5 * time.Second)
	rec.confirm(session.Confirmation{Position: 0, Letter: "A", Confidence: 0.8, At: clk.now})
	id := rec.AttemptID()
	if id == "" {
		t.Fatal("expected attempt after first confirmation")
	}
	rec.observe(progress(1, 2))

	clk.advance(5 * time.Second)
	rec.confirm(session.Confirmation{Position: 1, Letter: "B", Confidence: 0.95, At: clk.now})
	rec.observe(progress(2, 2))
	rec.complete(session.Snapshot{Completed: true})

	attempt, err := st.Attempts().GetByID(id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !attempt.Completed {
		t.Error("expected attempt to be completed")
	}
	if attempt.Duration() != 10*time.Second {
		t.Errorf("Duration() = %v, want 10s", attempt.Duration())
	}
	if attempt.Kind != "quiz" || attempt.ExerciseID != 3 || attempt.Policy != "streak" {
		t.Errorf("unexpected attempt %+v", attempt)
	}

	confirmations, err := st.Confirmations().ListByAttempt(id)
	if err != nil {
		t.Fatalf("ListByAttempt() error = %v", err)
	}
	if len(confirmations) != 2 {
		t.Fatalf("expected 2 confirmations, got %d", len(confirmations))
	}

	if rec.AttemptID() != "" {
		t.Error("completion should close the attempt")
	}
}

func TestRecorder_ResetAbandonsAttempt(t *testing.T) {
	tests := []struct {
		name  string
		reset func(rec *Recorder)
	}{
		{
			name:  "progress goes backwards",
			reset: func(rec *Recorder) { rec.observe(progress(0, 3)) },
		},
		{
			name:  "position repeats before any snapshot",
			reset: func(rec *Recorder) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, st, clk := newTestRecorder(t, "A", "B", "C")

			rec.confirm(session.Confirmation{Position: 0, Letter: "A", At: clk.now})
			rec.observe(progress(1, 3))
			first := rec.AttemptID()

			clk.advance(time.Second)
			tt.reset(rec)

			clk.advance(time.Second)
			rec.confirm(session.Confirmation{Position: 0, Letter: "A", At: clk.now})
			second := rec.AttemptID()

			if second == "" || second == first {
				t.Fatalf("expected a new attempt after reset, got %q (first %q)", second, first)
			}

			abandoned, err := st.Attempts().GetByID(first)
			if err != nil {
				t.Fatalf("GetByID() error = %v", err)
			}
			if abandoned.Completed || abandoned.FinishedAt == nil {
				t.Errorf("first attempt should be finished incomplete, got %+v", abandoned)
			}
		})
	}
}

func TestRecorder_CloseFinishesOpenAttempt(t *testing.T) {
	rec, st, clk := newTestRecorder(t, "A", "B")

	rec.confirm(session.Confirmation{Position: 0, Letter: "A", At: clk.now})
	id := rec.AttemptID()

	if err := rec.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	attempt, err := st.Attempts().GetByID(id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if attempt.Completed || attempt.FinishedAt == nil {
		t.Errorf("expected unfinished attempt to be closed as incomplete, got %+v", attempt)
	}
}

func TestRecorder_NoConfirmationsNoAttempt(t *testing.T) {
	rec, st, _ := newTestRecorder(t, "A")

	rec.observe(progress(0, 1))
	rec.Close()

	attempts, err := st.Attempts().List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(attempts) != 0 {
		t.Errorf("expected no attempts, got %d", len(attempts))
	}
}
