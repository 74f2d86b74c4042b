// Package repository provides the SQLite-backed high score store. It is
// the only persistent state in the server; rooms and tournaments live in
// memory.
package repository

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/SuryaXyz-art/Type-Arena/internal/models"
)

// Repository provides data access methods.
type Repository struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and applies migrations.
// Use ":memory:" for tests.
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		return nil, err
	}
	return repo, nil
}

// NewWithDB wraps an existing database handle. Used by tests that
// substitute a mock driver.
func NewWithDB(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS high_scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL,
			wpm REAL NOT NULL,
			recorded_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_high_scores_wpm ON high_scores(wpm DESC)`,
	}
	for _, m := range migrations {
		if _, err := r.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// InsertScore appends a timestamped high score entry.
func (r *Repository) InsertScore(ctx context.Context, username string, wpm float64, recordedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO high_scores (username, wpm, recorded_at) VALUES (?, ?, ?)`,
		username, wpm, recordedAt.UnixMilli())
	return err
}

// TrimScores deletes everything past the top keep entries, ranked by wpm
// descending with older entries winning ties.
func (r *Repository) TrimScores(ctx context.Context, keep int) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM high_scores WHERE id NOT IN (
			SELECT id FROM high_scores ORDER BY wpm DESC, recorded_at ASC LIMIT ?
		)`, keep)
	return err
}

// TopScores returns the best limit entries, wpm descending.
func (r *Repository) TopScores(ctx context.Context, limit int) ([]models.HighScore, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT username, wpm, recorded_at FROM high_scores
		 ORDER BY wpm DESC, recorded_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []models.HighScore
	for rows.Next() {
		var s models.HighScore
		if err := rows.Scan(&s.Username, &s.WPM, &s.RecordedAt); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}
