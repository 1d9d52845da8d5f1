package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Confirmation is a letter confirmed during an attempt.
type Confirmation struct {
	ID          int64     `json:"id"`
	AttemptID   string    `json:"attempt_id"`
	Position    int       `json:"position"`
	Letter      string    `json:"letter"`
	Confidence  float64   `json:"confidence"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// ConfirmationRepository provides operations on confirmations.
type ConfirmationRepository struct {
	db *sql.DB
}

// Confirmations returns the confirmation repository for this store.
func (s *Store) Confirmations() *ConfirmationRepository {
	return &ConfirmationRepository{db: s.db}
}

// Add inserts a confirmation and sets its ID.
func (r *ConfirmationRepository) Add(c *Confirmation) error {
	if c.ConfirmedAt.IsZero() {
		c.ConfirmedAt = time.Now()
	}

	result, err := r.db.Exec(
		`INSERT INTO confirmations (attempt_id, position, letter, confidence, confirmed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		c.AttemptID, c.Position, c.Letter, c.Confidence, c.ConfirmedAt,
	)
	if err != nil {
		return fmt.Errorf("insert confirmation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// ListByAttempt returns the confirmations of an attempt in the order they
// happened.
func (r *ConfirmationRepository) ListByAttempt(attemptID string) ([]*Confirmation, error) {
	rows, err := r.db.Query(
		`SELECT id, attempt_id, position, letter, confidence, confirmed_at
		 FROM confirmations WHERE attempt_id = ? ORDER BY confirmed_at, id`,
		attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var confirmations []*Confirmation
	for rows.Next() {
		c := &Confirmation{}
		if err := rows.Scan(&c.ID, &c.AttemptID, &c.Position, &c.Letter, &c.Confidence, &c.ConfirmedAt); err != nil {
			return nil, err
		}
		confirmations = append(confirmations, c)
	}

	return confirmations, rows.Err()
}
