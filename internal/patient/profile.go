// Package patient holds the patient record that gets injected into every
// enhanced prompt.
package patient

import (
	"fmt"
	"strings"
)

// PriorSession summarises one earlier session for prompt injection.
type PriorSession struct {
	Number    int      `json:"session_number"`
	Date      string   `json:"date"`
	KeyTopics []string `json:"key_topics"`
	Notes     string   `json:"notes"`
}

// Profile is the patient context carried by an orchestrator.  It is read-only
// during prompt composition and replaced wholesale via
// Orchestrator.UpdatePatientHistory.
type Profile struct {
	PatientID        string         `json:"patient_id"`
	Name             string         `json:"name"`
	Age              int            `json:"age"`
	Diagnosis        string         `json:"diagnosis"`
	Medications      []string       `json:"medications"`
	TherapyGoals     []string       `json:"therapy_goals"`
	Triggers         []string       `json:"triggers"`
	Strengths        []string       `json:"strengths"`
	PreviousSessions []PriorSession `json:"previous_sessions"`
}

// Default returns the placeholder patient record used when the caller has
// not supplied one.
func Default() *Profile {
	return &Profile{
		PatientID: "PAT001",
		Name:      "Alex Johnson",
		Age:       28,
		Diagnosis: "Generalized Anxiety Disorder",
		Medications: []string{
			"Sertraline 50mg daily",
		},
		TherapyGoals: []string{
			"Reduce anxiety symptoms",
			"Improve sleep quality",
			"Develop healthy coping strategies",
			"Enhance work-life balance",
		},
		Triggers:  []string{"work deadlines", "conflict situations", "social gatherings"},
		Strengths: []string{"intelligent", "motivated", "good insight", "supportive family"},
		PreviousSessions: []PriorSession{
			{
				Number:    1,
				Date:      "2024-06-18",
				KeyTopics: []string{"work stress", "anxiety", "sleep issues"},
				Notes:     "Patient reports high stress levels at work, difficulty sleeping. Discussed coping mechanisms.",
			},
			{
				Number:    2,
				Date:      "2024-06-11",
				KeyTopics: []string{"relationship concerns", "communication"},
				Notes:     "Explored relationship dynamics with partner. Worked on communication strategies.",
			},
		},
	}
}

// Render formats the profile for prompt injection.  The layout is part of
// the prompt contract: identity line, diagnosis, comma-joined medications,
// bulleted goals, comma-joined triggers and strengths, then one block per
// prior session.  Empty lists render as empty joins, no special-casing.
func (p *Profile) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Patient: %s (Age: %d)\n", p.Name, p.Age)
	fmt.Fprintf(&b, "Diagnosis: %s\n", p.Diagnosis)
	fmt.Fprintf(&b, "Current Medications: %s\n", strings.Join(p.Medications, ", "))

	b.WriteString("\nTherapy Goals:\n")
	goals := make([]string, 0, len(p.TherapyGoals))
	for _, g := range p.TherapyGoals {
		goals = append(goals, "- "+g)
	}
	b.WriteString(strings.Join(goals, "\n"))
	b.WriteString("\n")

	fmt.Fprintf(&b, "\nKnown Triggers:\n%s\n", strings.Join(p.Triggers, ", "))
	fmt.Fprintf(&b, "\nPatient Strengths:\n%s\n", strings.Join(p.Strengths, ", "))

	b.WriteString("\nPrevious Sessions Summary:\n")
	for _, s := range p.PreviousSessions {
		fmt.Fprintf(&b, "\nSession %d (%s):\n", s.Number, s.Date)
		fmt.Fprintf(&b, "- Topics: %s\n", strings.Join(s.KeyTopics, ", "))
		fmt.Fprintf(&b, "- Notes: %s\n", s.Notes)
	}

	return strings.TrimSpace(b.String())
}
