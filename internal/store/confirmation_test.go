package store

import (
	"testing"
	"time"
)

func TestConfirmationRepository(t *testing.T) {
	s := newTestStore(t)

	a := newAttempt("lesson", 1, time.Now())
	if err := s.Attempts().Create(a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, letter := range []string{"A", "B", "C"} {
		c := &Confirmation{
			AttemptID:   a.ID,
			Position:    i,
			Letter:      letter,
			Confidence:  0.9,
			ConfirmedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := s.Confirmations().Add(c); err != nil {
			t.Fatalf("Add(%s) error = %v", letter, err)
		}
		if c.ID == 0 {
			t.Errorf("expected ID to be assigned for %s", letter)
		}
	}

	t.Run("lists in order", func(t *testing.T) {
		got, err := s.Confirmations().ListByAttempt(a.ID)
		if err != nil {
			t.Fatalf("ListByAttempt() error = %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 confirmations, got %d", len(got))
		}
		for i, want := range []string{"A", "B", "C"} {
			if got[i].Letter != want || got[i].Position != i {
				t.Errorf("confirmation %d = %s@%d, want %s@%d", i, got[i].Letter, got[i].Position, want, i)
			}
		}
	})

	t.Run("unknown attempt is empty", func(t *testing.T) {
		got, err := s.Confirmations().ListByAttempt("missing")
		if err != nil {
			t.Fatalf("ListByAttempt() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no confirmations, got %d", len(got))
		}
	})

	t.Run("rejects unknown attempt", func(t *testing.T) {
		err := s.Confirmations().Add(&Confirmation{AttemptID: "missing", Letter: "A"})
		if err == nil {
			t.Error("expected foreign key error")
		}
	})
}
