// Package http exposes the orchestrator over a small JSON API.  The web
// front end is a separate collaborator; these handlers only translate
// requests into core operations.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"psychsession/internal/core"
	"psychsession/internal/patient"
	"psychsession/internal/transcript"
)

// Notifier publishes the id of a session whose transcript just changed.
// db.Notifier satisfies it; a nil Notifier disables publishing.
type Notifier interface {
	Notify(ctx context.Context, sessionID string) error
}

// Server bundles the dependencies of the HTTP handlers and implements
// http.Handler.  It keeps one orchestrator per active session, matching the
// one-orchestrator-per-conversation concurrency model.
type Server struct {
	cfg         core.Config
	gateway     core.StructuredCompleter
	transcripts *transcript.Store
	notifier    Notifier
	logger      *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*core.Orchestrator
}

// NewServer constructs a Server.  notifier may be nil.
func NewServer(cfg core.Config, gateway core.StructuredCompleter, transcripts *transcript.Store, notifier Notifier, logger *slog.Logger) *Server {
	return &Server{
		cfg:         cfg,
		gateway:     gateway,
		transcripts: transcripts,
		notifier:    notifier,
		logger:      logger,
		sessions:    make(map[string]*core.Orchestrator),
	}
}

// ServeHTTP dispatches incoming requests based on the URL path.  Minimal
// routing logic is implemented here to keep dependencies light.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/sessions" && r.Method == http.MethodPost:
		s.handleStartSession(w, r)
	case strings.HasPrefix(path, "/api/sessions/") && strings.HasSuffix(path, "/messages") && r.Method == http.MethodPost:
		s.handleProcessMessage(w, r, pathSegment(path, 3))
	case strings.HasPrefix(path, "/api/sessions/") && strings.HasSuffix(path, "/end") && r.Method == http.MethodPost:
		s.handleEndSession(w, r, pathSegment(path, 3))
	case strings.HasPrefix(path, "/api/sessions/") && strings.HasSuffix(path, "/history") && r.Method == http.MethodGet:
		s.handleHistory(w, r, pathSegment(path, 3))
	default:
		http.NotFound(w, r)
	}
}

// pathSegment returns the n-th slash-separated segment of path, or "".
func pathSegment(path string, n int) string {
	parts := strings.Split(path, "/")
	if len(parts) <= n {
		return ""
	}
	return parts[n]
}

type startSessionRequest struct {
	SessionNumber int              `json:"session_number,omitempty"`
	Patient       *patient.Profile `json:"patient,omitempty"`
}

type startSessionResponse struct {
	ChatID          string `json:"chat_id"`
	SessionNumber   int    `json:"session_number"`
	DurationMinutes int    `json:"duration_minutes"`
}

// handleStartSession creates a fresh orchestrator, starts its session and
// registers it under the new chat id.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// An empty or malformed body means all defaults.
	var req startSessionRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	o := core.NewOrchestrator(s.cfg, s.gateway, s.transcripts, s.logger)
	if req.Patient != nil {
		o.UpdatePatientHistory(req.Patient)
	}
	sessionNumber := 1
	if req.SessionNumber > 0 {
		sessionNumber = req.SessionNumber
		o.SetSessionNumber(sessionNumber)
	}

	id, err := o.StartSession(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	s.sessions[id] = o
	s.mu.Unlock()

	duration := s.cfg.SessionDurationMinutes
	if duration <= 0 {
		duration = 50
	}
	writeJSON(w, http.StatusCreated, startSessionResponse{
		ChatID:          id,
		SessionNumber:   sessionNumber,
		DurationMinutes: duration,
	})
}

type messageRequest struct {
	Content string `json:"content"`
}

// handleProcessMessage runs one turn for the session and returns the full
// TurnResult, clinical notes included.  The notes never reach the stored
// transcript.
func (s *Server) handleProcessMessage(w http.ResponseWriter, r *http.Request, sessionID string) {
	ctx := r.Context()

	o := s.lookup(sessionID)
	if o == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		http.Error(w, "empty message", http.StatusBadRequest)
		return
	}

	result, err := o.ProcessMessage(ctx, req.Content)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, sessionID); err != nil {
			s.logger.Warn("session notify failed", "chat_id", sessionID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// handleEndSession closes the session and returns the summary.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	o := s.lookup(sessionID)
	if o == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	summary, err := o.EndSession(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleHistory returns the transcript, rendered when ?formatted=true.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, sessionID string) {
	ctx := r.Context()

	o := s.lookup(sessionID)
	if o == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	if r.URL.Query().Get("formatted") == "true" {
		text, err := o.HistoryFormatted(ctx)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"history": text})
		return
	}

	entries, err := o.History(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) lookup(sessionID string) *core.Orchestrator {
	if sessionID == "" {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[sessionID]
}

// writeError maps collaborator errors onto HTTP statuses.  Nothing is
// swallowed; the original error is logged before a caller-safe status goes
// out.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.logger.Error("request failed", "error", err)
	switch {
	case errors.Is(err, transcript.ErrSessionNotFound):
		http.Error(w, "session not found", http.StatusNotFound)
	case errors.Is(err, core.ErrSessionNotActive), errors.Is(err, core.ErrSessionActive):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
