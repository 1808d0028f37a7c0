// Package core implements the session orchestrator: the state machine that
// owns one clock, one patient profile and one transcript, and drives the
// prompt composer and completion gateway per turn.
package core

import (
	"context"
	"fmt"
	"log/slog"

	"psychsession/internal/clock"
	"psychsession/internal/llm"
	"psychsession/internal/patient"
	"psychsession/internal/prompt"
	"psychsession/internal/transcript"
	"psychsession/pkg"
)

// State is the orchestrator lifecycle position.  There is no transition back
// to Active once Ended.
type State int

const (
	StateNotStarted State = iota
	StateActive
	StateEnded
)

// Config carries the per-orchestrator settings.  Zero values fall back to
// the defaults below.
type Config struct {
	Model                  string
	SessionDurationMinutes int
}

const (
	defaultModel           = "gpt-4o-mini"
	defaultDurationMinutes = 50
)

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.SessionDurationMinutes <= 0 {
		c.SessionDurationMinutes = defaultDurationMinutes
	}
	return c
}

// StructuredCompleter is the slice of the completion gateway the
// orchestrator needs.
type StructuredCompleter interface {
	CompleteStructured(ctx context.Context, model string, messages []llm.Message) (*llm.StructuredResult, error)
}

// Orchestrator processes one therapy session strictly sequentially.  It
// provides no internal locking: callers own one orchestrator per active
// session and issue one ProcessMessage at a time.
type Orchestrator struct {
	cfg         Config
	gateway     StructuredCompleter
	transcripts *transcript.Store
	logger      *slog.Logger

	clock         *clock.Clock
	profile       *patient.Profile
	sessionNumber int
	chatID        string
	state         State
}

// NewOrchestrator builds an orchestrator in the NotStarted state with the
// default patient profile and session number 1.
func NewOrchestrator(cfg Config, gateway StructuredCompleter, transcripts *transcript.Store, logger *slog.Logger) *Orchestrator {
	cfg = cfg.withDefaults()
	return &Orchestrator{
		cfg:           cfg,
		gateway:       gateway,
		transcripts:   transcripts,
		logger:        logger,
		clock:         clock.New(cfg.SessionDurationMinutes),
		profile:       patient.Default(),
		sessionNumber: 1,
		state:         StateNotStarted,
	}
}

// ChatID returns the transcript identifier, empty before StartSession.
func (o *Orchestrator) ChatID() string { return o.chatID }

// State returns the current lifecycle state.
func (o *Orchestrator) State() State { return o.state }

// StartSession creates the transcript, starts the clock and seeds the
// system instructions plus the synthetic opening turn.  Calling it on a
// started orchestrator fails with ErrSessionActive.
func (o *Orchestrator) StartSession(ctx context.Context) (string, error) {
	if o.state != StateNotStarted {
		return "", ErrSessionActive
	}

	id, err := o.transcripts.Create(ctx)
	if err != nil {
		o.logger.Error("failed to create session transcript", "error", err)
		return "", err
	}

	o.clock.Start()

	if err := o.transcripts.Append(ctx, id, pkg.RoleSystem, prompt.SystemPrompt); err != nil {
		return "", fmt.Errorf("seed system message: %w", err)
	}
	opening := prompt.OpeningMessage()
	if err := o.transcripts.Append(ctx, id, opening.Role, opening.Content); err != nil {
		return "", fmt.Errorf("seed opening message: %w", err)
	}

	o.chatID = id
	o.state = StateActive
	o.logger.Info("session started", "chat_id", id, "duration_minutes", o.cfg.SessionDurationMinutes)
	return id, nil
}

// UpdatePatientHistory replaces the held profile wholesale.  Valid in any
// state.
func (o *Orchestrator) UpdatePatientHistory(p *patient.Profile) {
	o.profile = p
	o.logger.Info("patient history updated", "patient_id", p.PatientID)
}

// SetSessionNumber sets the displayed session counter, which is independent
// of the transcript identifier.  Valid in any state.
func (o *Orchestrator) SetSessionNumber(n int) {
	o.sessionNumber = n
	o.logger.Info("current session set", "session_number", n)
}

// ProcessMessage runs one turn: compose the enhanced payload, send it with
// the full history to the model, persist the raw user message and the
// assistant's reply, and report the turn outcome.  The enhanced text is what
// the model sees; the raw text is what the transcript keeps.  Nothing is
// appended if the model call fails.
func (o *Orchestrator) ProcessMessage(ctx context.Context, userMessage string) (*pkg.TurnResult, error) {
	if o.state != StateActive {
		return nil, ErrSessionNotActive
	}

	enhanced := prompt.Enhance(userMessage, o.clock, o.sessionNumber, o.profile)
	if !prompt.Validate(enhanced) {
		return nil, ErrEnhancementInvalid
	}

	entries, err := o.transcripts.Fetch(ctx, o.chatID)
	if err != nil {
		o.logger.Error("failed to fetch transcript", "chat_id", o.chatID, "error", err)
		return nil, err
	}

	messages := make([]llm.Message, 0, len(entries)+1)
	for _, e := range entries {
		messages = append(messages, llm.Message{Role: string(e.Role), Content: e.Content})
	}
	messages = append(messages, llm.Message{Role: string(pkg.RoleUser), Content: enhanced})

	result, err := o.gateway.CompleteStructured(ctx, o.cfg.Model, messages)
	if err != nil {
		o.logger.Error("structured completion failed", "chat_id", o.chatID, "error", err)
		return nil, err
	}

	if err := o.transcripts.Append(ctx, o.chatID, pkg.RoleUser, userMessage); err != nil {
		return nil, err
	}
	if err := o.transcripts.Append(ctx, o.chatID, pkg.RoleAssistant, result.Response); err != nil {
		return nil, err
	}

	metrics := o.clock.Metrics()
	o.logger.Info("message processed", "chat_id", o.chatID, "time_left", o.clock.TimeLeftString(),
		"total_tokens", result.Usage.TotalTokens)

	return &pkg.TurnResult{
		PatientResponse:      result.Response,
		PsychiatristThoughts: result.PsychiatristThoughts,
		SessionMetrics:       metrics,
		TimeLeft:             o.clock.TimeLeftString(),
		SessionActive:        metrics.SessionActive,
		CurrentSession:       o.sessionNumber,
		UsageStats:           result.Usage,
	}, nil
}

// Summary reports message counts and clock metrics for the session as it
// currently stands.
func (o *Orchestrator) Summary(ctx context.Context) (*pkg.SessionSummary, error) {
	var entries []pkg.TranscriptEntry
	if o.chatID != "" {
		var err error
		entries, err = o.transcripts.Fetch(ctx, o.chatID)
		if err != nil {
			return nil, err
		}
	}

	count := pkg.MessageCount{Total: len(entries)}
	for _, e := range entries {
		switch e.Role {
		case pkg.RoleUser:
			count.User++
		case pkg.RoleAssistant:
			count.Assistant++
		}
	}

	return &pkg.SessionSummary{
		ChatID:                 o.chatID,
		SessionNumber:          o.sessionNumber,
		SessionMetrics:         o.clock.Metrics(),
		MessageCount:           count,
		SessionDurationMinutes: o.cfg.SessionDurationMinutes,
		PatientName:            o.profile.Name,
	}, nil
}

// EndSession computes the summary, then appends a closing system entry and
// flips to Ended.  The closing entry is appended after the counts are taken,
// so it is not included in the returned summary.
func (o *Orchestrator) EndSession(ctx context.Context) (*pkg.SessionSummary, error) {
	if o.state != StateActive {
		return nil, ErrSessionNotActive
	}

	summary, err := o.Summary(ctx)
	if err != nil {
		return nil, err
	}

	closing := fmt.Sprintf("Session %d ended. Duration: %d minutes.", o.sessionNumber, o.cfg.SessionDurationMinutes)
	if err := o.transcripts.Append(ctx, o.chatID, pkg.RoleSystem, closing); err != nil {
		return nil, err
	}

	o.state = StateEnded
	o.logger.Info("session ended", "chat_id", o.chatID, "session_number", o.sessionNumber)
	return summary, nil
}

// History returns the raw transcript, or an empty slice before the session
// has been started.
func (o *Orchestrator) History(ctx context.Context) ([]pkg.TranscriptEntry, error) {
	if o.chatID == "" {
		return []pkg.TranscriptEntry{}, nil
	}
	return o.transcripts.Fetch(ctx, o.chatID)
}

// HistoryFormatted renders the transcript with Patient/Therapist labels.
func (o *Orchestrator) HistoryFormatted(ctx context.Context) (string, error) {
	if o.chatID == "" {
		return "", nil
	}
	return o.transcripts.Render(ctx, o.chatID, "Patient", "Therapist")
}
