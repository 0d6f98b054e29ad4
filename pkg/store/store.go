// Package store persists the play history.
package store

import (
	"context"
	"database/sql"
	"time"

	"sfxd/pkg/db"
)

// Play is one row of trigger history: what was asked for, who asked, and
// how resolution ended. Failed resolutions are recorded too, with their
// error code and no duration.
type Play struct {
	ID              int64     `json:"id"`
	Prompt          string    `json:"prompt"`
	Sender          string    `json:"sender,omitempty"`
	Source          string    `json:"source"`
	ErrorCode       string    `json:"error_code,omitempty"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// HistoryStore is the repository interface for play history.
type HistoryStore interface {
	RecordPlay(ctx context.Context, p *Play) error
	RecentPlays(ctx context.Context, limit int) ([]Play, error)
	Close() error
}

// SQLiteStore implements HistoryStore.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordPlay appends one history row. CreatedAt is assigned by the
// database when left zero.
func (s *SQLiteStore) RecordPlay(ctx context.Context, p *Play) error {
	var sender, errCode sql.NullString
	if p.Sender != "" {
		sender = sql.NullString{String: p.Sender, Valid: true}
	}
	if p.ErrorCode != "" {
		errCode = sql.NullString{String: p.ErrorCode, Valid: true}
	}
	var duration sql.NullFloat64
	if p.DurationSeconds > 0 {
		duration = sql.NullFloat64{Float64: p.DurationSeconds, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO plays (prompt, sender, source, error_code, duration_seconds)
		 VALUES (?, ?, ?, ?, ?)`,
		p.Prompt, sender, p.Source, errCode, duration)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		p.ID = id
	}
	return nil
}

// RecentPlays returns up to limit rows, newest first.
func (s *SQLiteStore) RecentPlays(ctx context.Context, limit int) ([]Play, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, prompt, sender, source, error_code, duration_seconds, created_at
		 FROM plays ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plays []Play
	for rows.Next() {
		var p Play
		var sender, errCode sql.NullString
		var duration sql.NullFloat64
		if err := rows.Scan(&p.ID, &p.Prompt, &sender, &p.Source, &errCode, &duration, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Sender = sender.String
		p.ErrorCode = errCode.String
		p.DurationSeconds = duration.Float64
		plays = append(plays, p)
	}
	return plays, rows.Err()
}
