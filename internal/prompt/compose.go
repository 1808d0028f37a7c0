// Package prompt composes the enhanced per-turn payload sent to the model in
// place of the patient's raw message.
package prompt

import (
	"fmt"
	"strings"

	"psychsession/internal/clock"
	"psychsession/internal/patient"
	"psychsession/pkg"
)

// requiredLabels are the field labels every enhanced payload must carry.
var requiredLabels = []string{
	"Latest_Patient_Message:",
	"Time_Left_In_Session:",
	"Current_Session:",
	"Patient_History:",
}

// OpeningMessage returns the synthetic first user turn of a session.
func OpeningMessage() pkg.TranscriptEntry {
	return pkg.TranscriptEntry{Role: pkg.RoleUser, Content: OpeningContent}
}

// Enhance builds the four-field enhanced payload from the raw patient
// message plus session context.  The labels, brace delimiters and field
// order are part of the contract the model is prompted against and must not
// change.
func Enhance(latestMessage string, c *clock.Clock, sessionNumber int, profile *patient.Profile) string {
	enhanced := fmt.Sprintf(`Latest_Patient_Message: {%s};

Time_Left_In_Session: {%s};

Current_Session: {Session %d};

Patient_History: {%s};`,
		latestMessage,
		c.TimeLeftString(),
		sessionNumber,
		profile.Render(),
	)
	return strings.TrimSpace(enhanced)
}

// Validate reports whether every required label appears somewhere in the
// payload.  This is a presence check, not a structural parse; the weak
// contract is intentional and matched by the composer above.
func Validate(enhanced string) bool {
	for _, label := range requiredLabels {
		if !strings.Contains(enhanced, label) {
			return false
		}
	}
	return true
}
