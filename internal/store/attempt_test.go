package store

import (
	"errors"
	"testing"
	"time"
)

func newAttempt(kind string, id int, started time.Time) *Attempt {
	return &Attempt{
		Kind:       kind,
		ExerciseID: id,
		Title:      "Letters A-E",
		Letters:    []string{"A", "B", "C"},
		Policy:     "hold",
		StartedAt:  started,
	}
}

func TestAttemptRepository_Create(t *testing.T) {
	s := newTestStore(t)
	repo := s.Attempts()

	t.Run("assigns id", func(t *testing.T) {
		a := newAttempt("lesson", 1, time.Now())
		if err := repo.Create(a); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if a.ID == "" {
			t.Error("expected ID to be assigned")
		}
	})

	t.Run("keeps explicit id", func(t *testing.T) {
		a := newAttempt("quiz", 2, time.Now())
		a.ID = "fixed-id"
		if err := repo.Create(a); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		got, err := repo.GetByID("fixed-id")
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.Kind != "quiz" || got.ExerciseID != 2 {
			t.Errorf("got kind=%s exercise=%d, want quiz/2", got.Kind, got.ExerciseID)
		}
		if len(got.Letters) != 3 || got.Letters[2] != "C" {
			t.Errorf("letters = %v, want [A B C]", got.Letters)
		}
		if got.FinishedAt != nil {
			t.Error("new attempt should not be finished")
		}
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		if err := repo.Create(newAttempt("drill", 1, time.Now())); err == nil {
			t.Error("expected error for unknown kind")
		}
	})

	t.Run("rejects duplicate id", func(t *testing.T) {
		a := newAttempt("lesson", 1, time.Now())
		a.ID = "fixed-id"
		if err := repo.Create(a); err == nil {
			t.Error("expected error for duplicate id")
		}
	})
}

func TestAttemptRepository_Finish(t *testing.T) {
	s := newTestStore(t)
	repo := s.Attempts()

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := newAttempt("lesson", 1, start)
	if err := repo.Create(a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.Finish(a.ID, start.Add(42*time.Second), true); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	got, err := repo.GetByID(a.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !got.Completed {
		t.Error("expected attempt to be completed")
	}
	if got.FinishedAt == nil {
		t.Fatal("expected FinishedAt to be set")
	}
	if d := got.Duration(); d != 42*time.Second {
		t.Errorf("Duration() = %v, want 42s", d)
	}

	if err := repo.Finish("missing", time.Now(), true); !errors.Is(err, ErrNotFound) {
		t.Errorf("Finish(missing) error = %v, want ErrNotFound", err)
	}
}

func TestAttemptRepository_GetByID_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Attempts().GetByID("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAttemptRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Attempts()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := repo.Create(newAttempt("lesson", i+1, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	all, err := repo.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(all))
	}
	if all[0].ExerciseID != 3 {
		t.Errorf("expected newest attempt first, got exercise %d", all[0].ExerciseID)
	}

	limited, err := repo.List(2)
	if err != nil {
		t.Fatalf("List(2) error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 attempts, got %d", len(limited))
	}
}

func TestAttemptRepository_Delete(t *testing.T) {
	s := newTestStore(t)
	repo := s.Attempts()

	a := newAttempt("quiz", 1, time.Now())
	if err := repo.Create(a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Confirmations().Add(&Confirmation{AttemptID: a.ID, Position: 0, Letter: "A", Confidence: 0.9}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := repo.Delete(a.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	confirmations, err := s.Confirmations().ListByAttempt(a.ID)
	if err != nil {
		t.Fatalf("ListByAttempt() error = %v", err)
	}
	if len(confirmations) != 0 {
		t.Errorf("expected confirmations to cascade, got %d", len(confirmations))
	}

	if err := repo.Delete(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestAttemptRepository_Stats(t *testing.T) {
	s := newTestStore(t)
	repo := s.Attempts()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	record := func(kind string, id int, offset, took time.Duration, completed bool) {
		t.Helper()
		a := newAttempt(kind, id, base.Add(offset))
		if err := repo.Create(a); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if took > 0 {
			if err := repo.Finish(a.ID, a.StartedAt.Add(took), completed); err != nil {
				t.Fatalf("Finish() error = %v", err)
			}
		}
	}

	record("lesson", 1, 0, 60*time.Second, true)
	record("lesson", 1, time.Hour, 45*time.Second, true)
	record("lesson", 1, 2*time.Hour, 10*time.Second, false)
	record("quiz", 1, 3*time.Hour, 0, false)

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 exercises, got %d", len(stats))
	}

	if stats[0].Kind != "quiz" {
		t.Errorf("expected most recently played first, got %s", stats[0].Kind)
	}

	lesson := stats[1]
	if lesson.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", lesson.Attempts)
	}
	if lesson.Completions != 2 {
		t.Errorf("Completions = %d, want 2", lesson.Completions)
	}
	if lesson.BestDuration != 45*time.Second {
		t.Errorf("BestDuration = %v, want 45s", lesson.BestDuration)
	}
	if stats[0].BestDuration != 0 {
		t.Errorf("unfinished quiz BestDuration = %v, want 0", stats[0].BestDuration)
	}
}
