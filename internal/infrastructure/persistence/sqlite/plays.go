package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"vocBot/internal/domain"
)

var ErrUnknownPlay = errors.New("sqlite: unknown play id")

// PlayStore keeps an audit trail of playbacks. Nothing reads it back into
// cooldown or busy state.
type PlayStore struct {
	db *sql.DB
}

func NewPlayStore(dbPath string) (*PlayStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite: empty db path")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: creating dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &PlayStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	const playsTable = `
CREATE TABLE IF NOT EXISTS plays (
	id TEXT PRIMARY KEY,
	command TEXT NOT NULL,
	kind TEXT NOT NULL,
	url TEXT NOT NULL,
	requested_by TEXT,
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP,
	status TEXT NOT NULL,
	error TEXT
);
CREATE INDEX IF NOT EXISTS idx_plays_started_at ON plays(started_at DESC);`

	if _, err := db.Exec(playsTable); err != nil {
		return fmt.Errorf("sqlite: migrate plays: %w", err)
	}
	return nil
}

func (s *PlayStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PlayStore) RecordStart(ctx context.Context, rec domain.PlayRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("sqlite: play without id")
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	if rec.Status == "" {
		rec.Status = domain.PlayStatusPlaying
	}

	const stmt = `
INSERT INTO plays (id, command, kind, url, requested_by, started_at, status)
VALUES (?, ?, ?, ?, ?, ?, ?);
`

	_, err := s.db.ExecContext(
		ctx,
		stmt,
		rec.ID,
		rec.Command,
		string(rec.Kind),
		rec.URL,
		rec.RequestedBy,
		rec.StartedAt.UTC(),
		string(rec.Status),
	)
	if err != nil {
		return fmt.Errorf("sqlite: record play start: %w", err)
	}
	return nil
}

// RecordFinish marks the play ended, or failed when playErr is not nil.
func (s *PlayStore) RecordFinish(ctx context.Context, id string, finishedAt time.Time, playErr error) error {
	status := domain.PlayStatusEnded
	var errText any
	if playErr != nil {
		status = domain.PlayStatusFailed
		errText = playErr.Error()
	}

	const stmt = `UPDATE plays SET finished_at = ?, status = ?, error = ? WHERE id = ?;`
	res, err := s.db.ExecContext(ctx, stmt, finishedAt.UTC(), string(status), errText, id)
	if err != nil {
		return fmt.Errorf("sqlite: record play finish: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownPlay, id)
	}
	return nil
}

func (s *PlayStore) RecentPlays(ctx context.Context, limit int) ([]domain.PlayRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
SELECT id, command, kind, url, requested_by, started_at, finished_at, status, error
FROM plays
ORDER BY started_at DESC
LIMIT ?;
`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list plays: %w", err)
	}
	defer rows.Close()

	var out []domain.PlayRecord
	for rows.Next() {
		var (
			rec                    domain.PlayRecord
			kind, status           string
			requestedBy, errorText sql.NullString
			startedAt, finishedAt  sql.NullTime
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Command,
			&kind,
			&rec.URL,
			&requestedBy,
			&startedAt,
			&finishedAt,
			&status,
			&errorText,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scan play: %w", err)
		}

		rec.Kind = domain.MediaKind(kind)
		rec.Status = domain.PlayStatus(status)
		rec.RequestedBy = requestedBy.String
		rec.StartedAt = startedAt.Time
		rec.FinishedAt = finishedAt.Time
		rec.Error = errorText.String
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list plays rows: %w", err)
	}
	return out, nil
}

var (
	_ domain.PlayRecorder = (*PlayStore)(nil)
	_ domain.PlayHistory  = (*PlayStore)(nil)
)
