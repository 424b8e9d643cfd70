package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS rating_sessions (
    id TEXT PRIMARY KEY,
    rater TEXT NOT NULL,
    rater_key TEXT NOT NULL,
    images_dir TEXT NOT NULL,
    output_dir TEXT NOT NULL,
    image_count INTEGER NOT NULL,
    rated_count INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'active',
    export_path TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_rating_sessions_rater_key ON rating_sessions(rater_key);
CREATE INDEX IF NOT EXISTS idx_rating_sessions_updated_at ON rating_sessions(updated_at);
`

// Store is the sqlite ledger of rating sessions. It records history only;
// the resumable state lives in the JSON snapshots.
type Store struct {
	db *sql.DB
}

func NewStoreWithPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

func DBPath(dataDir string) string {
	return filepath.Join(dataDir, "imgrate.db")
}

func (s *Store) Close() error {
	return s.db.Close()
}

const recordColumns = `id, rater, rater_key, images_dir, output_dir, image_count, rated_count, status, export_path, created_at, updated_at, completed_at`

func (s *Store) CreateSession(ctx context.Context, rec *Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rating_sessions (`+recordColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Rater, rec.RaterKey, rec.ImagesDir, rec.OutputDir, rec.ImageCount, rec.RatedCount,
		string(rec.Status), nullString(rec.ExportPath), rec.CreatedAt, rec.UpdatedAt, nullTime(rec.CompletedAt))
	return err
}

func (s *Store) GetSession(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM rating_sessions WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return rec, err
}

// FindActive returns the most recent active session for a rater key, or
// ErrSessionNotFound.
func (s *Store) FindActive(ctx context.Context, raterKey string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM rating_sessions
		 WHERE rater_key = ? AND status = ?
		 ORDER BY updated_at DESC LIMIT 1`, raterKey, string(StatusActive))
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, raterKey)
	}
	return rec, err
}

func (s *Store) UpdateProgress(ctx context.Context, id string, rated int, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE rating_sessions SET rated_count = ?, updated_at = ? WHERE id = ?`,
		rated, at, id)
	return err
}

func (s *Store) MarkCompleted(ctx context.Context, id, exportPath string, rated int, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE rating_sessions
		 SET status = ?, export_path = ?, rated_count = ?, updated_at = ?, completed_at = ?
		 WHERE id = ?`,
		string(StatusCompleted), exportPath, rated, at, at, id)
	return err
}

// AbandonActive marks every active session of a rater as abandoned. It is
// used when a fresh session replaces one whose snapshot was lost.
func (s *Store) AbandonActive(ctx context.Context, raterKey string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE rating_sessions SET status = ?, updated_at = ? WHERE rater_key = ? AND status = ?`,
		string(StatusAbandoned), at, raterKey, string(StatusActive))
	return err
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rating_sessions WHERE id = ?`, id)
	return err
}

func (s *Store) ListSessions(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM rating_sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	rec := &Record{}
	var status string
	var exportPath sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(&rec.ID, &rec.Rater, &rec.RaterKey, &rec.ImagesDir, &rec.OutputDir,
		&rec.ImageCount, &rec.RatedCount, &status, &exportPath, &rec.CreatedAt, &rec.UpdatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	rec.Status = Status(status)
	rec.ExportPath = exportPath.String
	if completedAt.Valid {
		t := completedAt.Time
		rec.CompletedAt = &t
	}
	return rec, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
