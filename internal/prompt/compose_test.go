package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psychsession/internal/clock"
	"psychsession/internal/patient"
	"psychsession/pkg"
)

func TestEnhanceContainsLabelsInOrder(t *testing.T) {
	c := clock.New(50)
	c.Start()
	enhanced := Enhance("I feel anxious", c, 3, patient.Default())

	last := -1
	for _, label := range requiredLabels {
		idx := strings.Index(enhanced, label)
		require.GreaterOrEqual(t, idx, 0, "missing label %q", label)
		assert.Greater(t, idx, last, "label %q out of order", label)
		last = idx
	}

	assert.Contains(t, enhanced, "Latest_Patient_Message: {I feel anxious};")
	assert.Contains(t, enhanced, "Current_Session: {Session 3};")
	assert.Contains(t, enhanced, "minutes and")
	assert.Contains(t, enhanced, "Patient: Alex Johnson (Age: 28)")
	assert.True(t, Validate(enhanced))
}

func TestEnhanceBeforeClockStart(t *testing.T) {
	enhanced := Enhance("hello", clock.New(50), 1, patient.Default())
	assert.Contains(t, enhanced, "Time_Left_In_Session: {0 minutes and 0 seconds};")
}

func TestValidateAcceptsAnyLabelOrder(t *testing.T) {
	shuffled := "Patient_History: {x};\nCurrent_Session: {Session 1};\n" +
		"Latest_Patient_Message: {y};\nTime_Left_In_Session: {5 minutes and 0 seconds};"
	assert.True(t, Validate(shuffled))
}

func TestValidateRejectsMissingLabel(t *testing.T) {
	c := clock.New(50)
	c.Start()
	full := Enhance("hi", c, 1, patient.Default())

	for _, label := range requiredLabels {
		broken := strings.ReplaceAll(full, label, "")
		assert.False(t, Validate(broken), "still valid without %q", label)
	}
}

func TestOpeningMessage(t *testing.T) {
	msg := OpeningMessage()
	assert.Equal(t, pkg.RoleUser, msg.Role)
	assert.Equal(t, "The User is just entering the chat.", msg.Content)
}
