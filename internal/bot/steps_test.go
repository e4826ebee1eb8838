package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvance(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		wantText string
		wantOK   bool
	}{
		{"msc entry", TokenMSC, "worked on a cruise ship", true},
		{"msc yes", TokenMSCYes, "worked on a cruise ship", true},
		{"experience yes", TokenWorkedCruiseYes, "speak Japanese", true},
		{"experience no", TokenWorkedCruiseNo, "speak Japanese", true},
		{"japanese yes", TokenJapaneseYes, RegistrationFormURL, true},
		{"job shortcut", TokenJobOpening, JobBoardURL, true},
		{"apply shortcut", TokenHowToApply, JobBoardURL, true},
		{"pre-screening shortcut", TokenPreScreening, PreScreeningURL, true},
		{"help shortcut", TokenHelp, "How can I help", true},
		{"unknown token", "BOGUS", "", false},
		{"empty token", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := Advance(tt.token)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Nil(t, msg)
				return
			}
			require.NotNil(t, msg)
			assert.Contains(t, msg.Text, tt.wantText)
		})
	}
}

func TestAdvanceDeclineIsSilent(t *testing.T) {
	msg, ok := Advance(TokenMSCNo)
	assert.True(t, ok)
	assert.Nil(t, msg)
}

func TestAdvanceEnglishFallbackIsButtonTemplate(t *testing.T) {
	msg, ok := Advance(TokenJapaneseNo)
	require.True(t, ok)
	require.NotNil(t, msg)
	require.NotNil(t, msg.Attachment)

	payload := msg.Attachment.Payload
	assert.Equal(t, "button", payload.TemplateType)
	require.Len(t, payload.Buttons, 3)
	assert.Equal(t, "More Jobs", payload.Buttons[0].Title)
	assert.Equal(t, JobBoardURL, payload.Buttons[0].URL)
	assert.Equal(t, TokenHelp, payload.Buttons[2].Payload)
}

func TestAdvanceExperienceDoesNotBranch(t *testing.T) {
	yes, okYes := Advance(TokenWorkedCruiseYes)
	no, okNo := Advance(TokenWorkedCruiseNo)
	require.True(t, okYes)
	require.True(t, okNo)
	assert.Equal(t, yes.Text, no.Text)
}

func TestAdvanceStateless(t *testing.T) {
	// A terminal token works without ever visiting the earlier steps.
	msg, ok := Advance(TokenJapaneseYes)
	require.True(t, ok)
	assert.Contains(t, msg.Text, RegistrationFormURL)
}

func TestStepName(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{TokenMSC, "experience_asked"},
		{TokenMSCYes, "experience_asked"},
		{TokenMSCNo, "declined"},
		{TokenWorkedCruiseYes, "language_asked"},
		{TokenWorkedCruiseNo, "language_asked"},
		{TokenJapaneseYes, "registration_link_sent"},
		{TokenJapaneseNo, "english_fallback_sent"},
		{TokenJobOpening, "shortcut"},
		{TokenHelp, "shortcut"},
		{"BOGUS", ""},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, tt.want, StepName(tt.token))
		})
	}
}
