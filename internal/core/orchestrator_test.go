package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psychsession/internal/llm"
	"psychsession/internal/patient"
	"psychsession/internal/transcript"
	"psychsession/pkg"
)

// stubGateway returns a fixed structured result and records what it saw.
type stubGateway struct {
	result   llm.StructuredResult
	err      error
	calls    int
	lastMsgs []llm.Message
}

func (s *stubGateway) CompleteStructured(_ context.Context, _ string, messages []llm.Message) (*llm.StructuredResult, error) {
	s.calls++
	s.lastMsgs = messages
	if s.err != nil {
		return nil, s.err
	}
	res := s.result
	return &res, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func anxietyReply() llm.StructuredResult {
	return llm.StructuredResult{
		Response:             "Tell me more",
		PsychiatristThoughts: "Pt reports anxiety",
		Usage:                pkg.UsageStats{InputTokens: 50, OutputTokens: 20, TotalTokens: 70},
	}
}

func newTestOrchestrator(gw StructuredCompleter) (*Orchestrator, *transcript.Store) {
	store := transcript.NewStore(transcript.NewMemoryStore())
	o := NewOrchestrator(Config{SessionDurationMinutes: 10}, gw, store, testLogger())
	return o, store
}

func TestStartSessionSeedsTranscript(t *testing.T) {
	ctx := context.Background()
	o, store := newTestOrchestrator(&stubGateway{})

	id, err := o.StartSession(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, StateActive, o.State())
	assert.Equal(t, id, o.ChatID())

	entries, err := store.Fetch(ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, pkg.RoleSystem, entries[0].Role)
	assert.Contains(t, entries[0].Content, "psychology bot")
	assert.Equal(t, pkg.RoleUser, entries[1].Role)
	assert.Equal(t, "The User is just entering the chat.", entries[1].Content)
}

func TestStartSessionTwiceFails(t *testing.T) {
	ctx := context.Background()
	o, _ := newTestOrchestrator(&stubGateway{})

	_, err := o.StartSession(ctx)
	require.NoError(t, err)

	_, err = o.StartSession(ctx)
	assert.ErrorIs(t, err, ErrSessionActive)
}

func TestProcessMessageTurn(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{result: anxietyReply()}
	o, store := newTestOrchestrator(gw)

	id, err := o.StartSession(ctx)
	require.NoError(t, err)

	result, err := o.ProcessMessage(ctx, "I feel anxious")
	require.NoError(t, err)

	assert.Equal(t, "Tell me more", result.PatientResponse)
	assert.Equal(t, "Pt reports anxiety", result.PsychiatristThoughts)
	assert.Equal(t, 70, result.UsageStats.TotalTokens)
	assert.True(t, result.SessionActive)
	assert.Equal(t, 1, result.CurrentSession)
	assert.Contains(t, result.TimeLeft, "minutes and")

	// The model sees the enhanced payload, not the raw message.
	require.Equal(t, 1, gw.calls)
	last := gw.lastMsgs[len(gw.lastMsgs)-1]
	assert.Equal(t, "user", last.Role)
	assert.Contains(t, last.Content, "Latest_Patient_Message: {I feel anxious};")
	assert.Contains(t, last.Content, "Patient_History:")

	// The transcript keeps the raw message and the reply, not the notes.
	entries, err := store.Fetch(ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, pkg.TranscriptEntry{Role: pkg.RoleUser, Content: "I feel anxious"}, entries[2])
	assert.Equal(t, pkg.TranscriptEntry{Role: pkg.RoleAssistant, Content: "Tell me more"}, entries[3])
	for _, e := range entries {
		assert.NotContains(t, e.Content, "Pt reports anxiety")
	}
}

func TestProcessMessageRequiresActiveSession(t *testing.T) {
	ctx := context.Background()
	o, _ := newTestOrchestrator(&stubGateway{result: anxietyReply()})

	_, err := o.ProcessMessage(ctx, "hello")
	assert.ErrorIs(t, err, ErrSessionNotActive)

	_, err = o.StartSession(ctx)
	require.NoError(t, err)
	_, err = o.EndSession(ctx)
	require.NoError(t, err)

	_, err = o.ProcessMessage(ctx, "hello again")
	assert.ErrorIs(t, err, ErrSessionNotActive)

	entries, fetchErr := o.History(ctx)
	require.NoError(t, fetchErr)
	assert.Len(t, entries, 3, "rejected turns must not touch the transcript")
}

func TestProcessMessageFailureCommitsNothing(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{err: errors.New("rate limited")}
	o, store := newTestOrchestrator(gw)

	id, err := o.StartSession(ctx)
	require.NoError(t, err)

	_, err = o.ProcessMessage(ctx, "I feel anxious")
	require.Error(t, err)

	entries, err := store.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "neither the user message nor a reply may be appended on failure")
}

func TestEndSessionSummaryOrdering(t *testing.T) {
	ctx := context.Background()
	o, store := newTestOrchestrator(&stubGateway{result: anxietyReply()})

	id, err := o.StartSession(ctx)
	require.NoError(t, err)
	_, err = o.ProcessMessage(ctx, "I feel anxious")
	require.NoError(t, err)

	summary, err := o.EndSession(ctx)
	require.NoError(t, err)

	// Counts are taken before the closing entry is appended.
	assert.Equal(t, 4, summary.MessageCount.Total)
	assert.Equal(t, 2, summary.MessageCount.User)
	assert.Equal(t, 1, summary.MessageCount.Assistant)
	assert.Equal(t, "Alex Johnson", summary.PatientName)
	assert.Equal(t, 10, summary.SessionDurationMinutes)
	assert.Equal(t, id, summary.ChatID)
	assert.Equal(t, StateEnded, o.State())

	entries, err := store.Fetch(ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	closing := entries[4]
	assert.Equal(t, pkg.RoleSystem, closing.Role)
	assert.Equal(t, "Session 1 ended. Duration: 10 minutes.", closing.Content)

	_, err = o.EndSession(ctx)
	assert.ErrorIs(t, err, ErrSessionNotActive)
}

func TestEndSessionTwoExchanges(t *testing.T) {
	ctx := context.Background()
	o, _ := newTestOrchestrator(&stubGateway{result: anxietyReply()})

	_, err := o.StartSession(ctx)
	require.NoError(t, err)
	_, err = o.ProcessMessage(ctx, "first")
	require.NoError(t, err)
	_, err = o.ProcessMessage(ctx, "second")
	require.NoError(t, err)

	summary, err := o.EndSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, summary.MessageCount.Total)
	assert.Equal(t, 3, summary.MessageCount.User)
	assert.Equal(t, 2, summary.MessageCount.Assistant)
}

func TestUpdatePatientHistoryAndSessionNumber(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{result: anxietyReply()}
	o, _ := newTestOrchestrator(gw)

	o.UpdatePatientHistory(&patient.Profile{
		PatientID: "PAT002",
		Name:      "Sam Rivera",
		Age:       35,
		Diagnosis: "Major Depressive Disorder",
	})
	o.SetSessionNumber(7)

	_, err := o.StartSession(ctx)
	require.NoError(t, err)
	result, err := o.ProcessMessage(ctx, "hello")
	require.NoError(t, err)

	assert.Equal(t, 7, result.CurrentSession)
	last := gw.lastMsgs[len(gw.lastMsgs)-1]
	assert.Contains(t, last.Content, "Current_Session: {Session 7};")
	assert.Contains(t, last.Content, "Patient: Sam Rivera (Age: 35)")

	summary, err := o.EndSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Sam Rivera", summary.PatientName)
	assert.Equal(t, 7, summary.SessionNumber)
}

func TestHistoryFormatted(t *testing.T) {
	ctx := context.Background()
	o, _ := newTestOrchestrator(&stubGateway{result: anxietyReply()})

	text, err := o.HistoryFormatted(ctx)
	require.NoError(t, err)
	assert.Empty(t, text)

	_, err = o.StartSession(ctx)
	require.NoError(t, err)
	_, err = o.ProcessMessage(ctx, "I feel anxious")
	require.NoError(t, err)

	text, err = o.HistoryFormatted(ctx)
	require.NoError(t, err)
	assert.Contains(t, text, "*Patient*: I feel anxious")
	assert.Contains(t, text, "*Therapist*: Tell me more")
	assert.Equal(t, 2, strings.Count(text, " |\n| "))
	assert.NotContains(t, text, "psychology bot")
}
