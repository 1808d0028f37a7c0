package transcript

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psychsession/pkg"
)

func TestCreateAndFetch(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryStore())

	id, err := store.Create(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	entries, err := store.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, entries)

	ids, err := store.ListSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids)
}

func TestAppendPreservesOrder(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryStore())
	id, err := store.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Append(ctx, id, pkg.RoleSystem, "instructions"))
	require.NoError(t, store.Append(ctx, id, pkg.RoleUser, "hello"))
	require.NoError(t, store.Append(ctx, id, pkg.RoleAssistant, "hi there"))

	entries, err := store.Fetch(ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, pkg.RoleSystem, entries[0].Role)
	assert.Equal(t, "hello", entries[1].Content)
	assert.Equal(t, pkg.RoleAssistant, entries[2].Role)
}

func TestAppendRejectsUnknownRole(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryStore())
	id, err := store.Create(ctx)
	require.NoError(t, err)

	err = store.Append(ctx, id, pkg.Role("moderator"), "nope")
	assert.ErrorIs(t, err, ErrInvalidRole)

	entries, err := store.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected append must not mutate the transcript")
}

func TestAppendUnknownSession(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryStore())

	err := store.Append(ctx, "no-such-id", pkg.RoleUser, "hello")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = store.Fetch(ctx, "no-such-id")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = store.Render(ctx, "no-such-id", "Patient", "Therapist")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRenderSkipsSystemEntries(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryStore())
	id, err := store.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Append(ctx, id, pkg.RoleSystem, "instructions"))
	const pairs = 3
	for i := 0; i < pairs; i++ {
		require.NoError(t, store.Append(ctx, id, pkg.RoleUser, fmt.Sprintf("question %d", i)))
		require.NoError(t, store.Append(ctx, id, pkg.RoleAssistant, fmt.Sprintf("answer %d", i)))
	}

	text, err := store.Render(ctx, id, "Patient", "Therapist")
	require.NoError(t, err)

	assert.NotContains(t, text, "instructions")
	assert.Equal(t, pairs*2-1, strings.Count(text, " |\n| "))
	assert.Equal(t, pairs, strings.Count(text, "*Patient*: "))
	assert.Equal(t, pairs, strings.Count(text, "*Therapist*: "))
	assert.True(t, strings.HasPrefix(text, "*Patient*: question 0"))
	assert.True(t, strings.HasSuffix(text, "*Therapist*: answer 2"))
}
