// Package transcript implements the append-only, session-scoped message log.
// Storage mechanics live behind the DocumentStore interface; this package
// owns the role validation and rendering rules.
package transcript

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"psychsession/pkg"
)

// DocumentStore is the persistence collaborator: a named collection of
// session documents of the shape {id, messages}.  Implementations must
// return ErrSessionNotFound for unknown ids.
type DocumentStore interface {
	Insert(ctx context.Context, id string, entries []pkg.TranscriptEntry) error
	Get(ctx context.Context, id string) ([]pkg.TranscriptEntry, error)
	Update(ctx context.Context, id string, entries []pkg.TranscriptEntry) error
	ListIDs(ctx context.Context) ([]string, error)
}

// Store is the core-side transcript contract over a DocumentStore.
type Store struct {
	docs DocumentStore
}

// NewStore wraps a document store.
func NewStore(docs DocumentStore) *Store {
	return &Store{docs: docs}
}

// Create obtains a fresh session id and initializes an empty transcript.
func (s *Store) Create(ctx context.Context) (string, error) {
	id := uuid.New().String()
	if err := s.docs.Insert(ctx, id, []pkg.TranscriptEntry{}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return id, nil
}

// Append validates the role and adds one entry to the end of the transcript.
// Historical entries are never edited or reordered.
func (s *Store) Append(ctx context.Context, id string, role pkg.Role, content string) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	entries, err := s.docs.Get(ctx, id)
	if err != nil {
		return err
	}
	entries = append(entries, pkg.TranscriptEntry{Role: role, Content: content})
	return s.docs.Update(ctx, id, entries)
}

// Fetch returns the ordered transcript for a session.
func (s *Store) Fetch(ctx context.Context, id string) ([]pkg.TranscriptEntry, error) {
	return s.docs.Get(ctx, id)
}

// ListSessions returns the ids of every stored session.
func (s *Store) ListSessions(ctx context.Context) ([]string, error) {
	return s.docs.ListIDs(ctx)
}

// Render formats the transcript for display, substituting the given labels
// for the user and assistant roles.  System entries are skipped.  Entries
// are joined by a literal " |\n| " delimiter.
func (s *Store) Render(ctx context.Context, id, userLabel, assistantLabel string) (string, error) {
	entries, err := s.docs.Get(ctx, id)
	if err != nil {
		return "", err
	}
	formatted := make([]string, 0, len(entries))
	for _, e := range entries {
		switch e.Role {
		case pkg.RoleUser:
			formatted = append(formatted, fmt.Sprintf("*%s*: %s", userLabel, e.Content))
		case pkg.RoleAssistant:
			formatted = append(formatted, fmt.Sprintf("*%s*: %s", assistantLabel, e.Content))
		}
	}
	return strings.Join(formatted, " |\n| "), nil
}
