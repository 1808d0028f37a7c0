package pkg

// Role describes who authored a transcript entry.  The set is closed:
// anything other than system, user or assistant is rejected at the
// transcript boundary rather than coerced.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// TranscriptEntry is a single role-tagged message in a session transcript.
type TranscriptEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ClockMetrics is a snapshot of the session clock.  CompletionPercentage is
// deliberately not clamped and exceeds 100 when the session has overrun.
type ClockMetrics struct {
	SessionActive        bool    `json:"session_active"`
	ElapsedMinutes       int     `json:"elapsed_minutes"`
	ElapsedSeconds       int     `json:"elapsed_seconds"`
	RemainingMinutes     int     `json:"remaining_minutes"`
	RemainingSeconds     int     `json:"remaining_seconds"`
	TotalDurationMinutes int     `json:"total_duration_minutes"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

// UsageStats carries the token accounting reported by the model for one call.
type UsageStats struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// TurnResult bundles everything the caller gets back for one processed
// message.  PsychiatristThoughts is returned here only; it is never written
// to the transcript.
type TurnResult struct {
	PatientResponse      string       `json:"patient_response"`
	PsychiatristThoughts string       `json:"psychiatrist_thoughts"`
	SessionMetrics       ClockMetrics `json:"session_metrics"`
	TimeLeft             string       `json:"time_left"`
	SessionActive        bool         `json:"session_active"`
	CurrentSession       int          `json:"current_session"`
	UsageStats           UsageStats   `json:"usage_stats"`
}

// MessageCount breaks a transcript down by author.
type MessageCount struct {
	User      int `json:"user"`
	Assistant int `json:"assistant"`
	Total     int `json:"total"`
}

// SessionSummary is returned by the orchestrator at end of session.  It is
// computed from the transcript as it stands before the closing system entry
// is appended.
type SessionSummary struct {
	ChatID                 string       `json:"chat_id"`
	SessionNumber          int          `json:"session_number"`
	SessionMetrics         ClockMetrics `json:"session_metrics"`
	MessageCount           MessageCount `json:"message_count"`
	SessionDurationMinutes int          `json:"session_duration_minutes"`
	PatientName            string       `json:"patient_name"`
}
