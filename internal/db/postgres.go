// Package db provides the Postgres-backed persistence collaborator: a
// document store of {id, messages} session rows, plus NOTIFY/LISTEN support
// for following session activity.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"psychsession/internal/transcript"
	"psychsession/pkg"
)

// Store implements transcript.DocumentStore on top of a sessions table with
// a JSONB messages column.  The caller owns the *sql.DB lifecycle.
type Store struct {
	DB *sql.DB
}

// NewStore wraps an existing database handle.
func NewStore(db *sql.DB) *Store { return &Store{DB: db} }

// Insert creates a new session document.
func (s *Store) Insert(ctx context.Context, id string, entries []pkg.TranscriptEntry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	// pq sends []byte as bytea, which jsonb rejects; bind as text.
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO sessions (id, messages) VALUES ($1, $2::jsonb)`,
		id, string(payload),
	)
	return err
}

// Get returns the message list for a session by id.
func (s *Store) Get(ctx context.Context, id string) ([]pkg.TranscriptEntry, error) {
	var payload []byte
	err := s.DB.QueryRowContext(ctx,
		`SELECT messages FROM sessions WHERE id = $1`, id,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", transcript.ErrSessionNotFound, id)
		}
		return nil, err
	}
	var entries []pkg.TranscriptEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}
	return entries, nil
}

// Update replaces the message list for a session by id.
func (s *Store) Update(ctx context.Context, id string, entries []pkg.TranscriptEntry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE sessions SET messages = $2::jsonb WHERE id = $1`,
		id, string(payload),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", transcript.ErrSessionNotFound, id)
	}
	return nil
}

// ListIDs returns every session id ordered by creation time.
func (s *Store) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id FROM sessions ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
