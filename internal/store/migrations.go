package store

import (
	"database/sql"
	"fmt"
)

// schema lists migration steps in order. Step i moves the database from
// user_version i to i+1; append new steps, never edit old ones.
var schema = [][]string{
	{
		// One row per run through a lesson or quiz.
		`CREATE TABLE attempts (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL CHECK(kind IN ('lesson', 'quiz')),
			exercise_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			letters TEXT NOT NULL,
			policy TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			finished_at DATETIME,
			completed INTEGER NOT NULL DEFAULT 0
		)`,

		// Each letter confirmed during an attempt.
		`CREATE TABLE confirmations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			attempt_id TEXT NOT NULL REFERENCES attempts(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			letter TEXT NOT NULL,
			confidence REAL NOT NULL,
			confirmed_at DATETIME NOT NULL
		)`,
	},
	{
		`CREATE INDEX idx_attempts_exercise ON attempts(kind, exercise_id)`,
		`CREATE INDEX idx_attempts_started_at ON attempts(started_at)`,
		`CREATE INDEX idx_confirmations_attempt_id ON confirmations(attempt_id)`,
	},
}

// SchemaVersion is the user_version of a fully migrated database.
var SchemaVersion = len(schema)

// runMigrations applies every step past the database's user_version, each
// in its own transaction.
func (s *Store) runMigrations() error {
	version, err := s.schemaVersion()
	if err != nil {
		return err
	}
	if version > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, SchemaVersion)
	}

	for v := version; v < SchemaVersion; v++ {
		if err := s.migrate(v); err != nil {
			return fmt.Errorf("migrate to version %d: %w", v+1, err)
		}
	}
	return nil
}

func (s *Store) migrate(from int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range schema[from] {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", from+1)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) schemaVersion() (int, error) {
	var v int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&v); err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}
