package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Attempt is one run through an exercise.
type Attempt struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	ExerciseID int        `json:"exercise_id"`
	Title      string     `json:"title"`
	Letters    []string   `json:"letters"`
	Policy     string     `json:"policy"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Completed  bool       `json:"completed"`
}

// Duration is how long the attempt ran, or zero if it has not finished.
func (a *Attempt) Duration() time.Duration {
	if a.FinishedAt == nil {
		return 0
	}
	return a.FinishedAt.Sub(a.StartedAt)
}

// ExerciseStats summarizes the attempts at one exercise.
type ExerciseStats struct {
	Kind         string        `json:"kind"`
	ExerciseID   int           `json:"exercise_id"`
	Title        string        `json:"title"`
	Attempts     int           `json:"attempts"`
	Completions  int           `json:"completions"`
	BestDuration time.Duration `json:"best_duration,omitempty"`
	LastPlayed   time.Time     `json:"last_played"`
}

// AttemptRepository provides operations on attempts.
type AttemptRepository struct {
	db *sql.DB
}

// Attempts returns the attempt repository for this store.
func (s *Store) Attempts() *AttemptRepository {
	return &AttemptRepository{db: s.db}
}

// Create inserts a new attempt. An empty ID is filled with a new UUID and a
// zero StartedAt with the current time.
func (r *AttemptRepository) Create(a *Attempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.StartedAt.IsZero() {
		a.StartedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO attempts (id, kind, exercise_id, title, letters, policy, started_at, completed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Kind, a.ExerciseID, a.Title, strings.Join(a.Letters, ","), a.Policy, a.StartedAt, a.Completed,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// Finish records when an attempt ended and whether every letter was confirmed.
func (r *AttemptRepository) Finish(id string, finishedAt time.Time, completed bool) error {
	result, err := r.db.Exec(
		`UPDATE attempts SET finished_at = ?, completed = ? WHERE id = ?`,
		finishedAt, completed, id,
	)
	if err != nil {
		return fmt.Errorf("finish attempt: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves an attempt by its ID.
func (r *AttemptRepository) GetByID(id string) (*Attempt, error) {
	row := r.db.QueryRow(
		`SELECT id, kind, exercise_id, title, letters, policy, started_at, finished_at, completed
		 FROM attempts WHERE id = ?`,
		id,
	)

	a, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// List returns the most recent attempts first. A limit of zero or less
// returns all of them.
func (r *AttemptRepository) List(limit int) ([]*Attempt, error) {
	query := `SELECT id, kind, exercise_id, title, letters, policy, started_at, finished_at, completed
		 FROM attempts ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []*Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}

// Delete removes an attempt and its confirmations.
func (r *AttemptRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM attempts WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats summarizes attempts per exercise, most recently played first.
func (r *AttemptRepository) Stats() ([]ExerciseStats, error) {
	attempts, err := r.List(0)
	if err != nil {
		return nil, err
	}

	type key struct {
		kind string
		id   int
	}
	byExercise := make(map[key]*ExerciseStats)

	for _, a := range attempts {
		k := key{a.Kind, a.ExerciseID}
		st, ok := byExercise[k]
		if !ok {
			st = &ExerciseStats{Kind: a.Kind, ExerciseID: a.ExerciseID, Title: a.Title}
			byExercise[k] = st
		}

		st.Attempts++
		if a.StartedAt.After(st.LastPlayed) {
			st.LastPlayed = a.StartedAt
		}
		if !a.Completed {
			continue
		}
		st.Completions++
		if d := a.Duration(); d > 0 && (st.BestDuration == 0 || d < st.BestDuration) {
			st.BestDuration = d
		}
	}

	stats := make([]ExerciseStats, 0, len(byExercise))
	for _, st := range byExercise {
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].LastPlayed.After(stats[j].LastPlayed)
	})
	return stats, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(s scanner) (*Attempt, error) {
	a := &Attempt{}
	var letters string
	var finished sql.NullTime

	err := s.Scan(&a.ID, &a.Kind, &a.ExerciseID, &a.Title, &letters, &a.Policy, &a.StartedAt, &finished, &a.Completed)
	if err != nil {
		return nil, err
	}

	if letters != "" {
		a.Letters = strings.Split(letters, ",")
	}
	if finished.Valid {
		t := finished.Time
		a.FinishedAt = &t
	}
	return a, nil
}
