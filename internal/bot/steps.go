package bot

import (
	"github.com/horizonjapan/crewbot/internal/messenger"
)

// Advance drives the quick-reply funnel one step for a payload token and
// returns the message to send. The token carries its own position in the
// script, so the machine holds no state between calls: a user can only
// progress by tapping buttons.
//
// Funnel: MSC interest -> cruise experience -> Japanese fluency ->
// registration link or English fallback. The experience answer does not
// branch; both answers funnel into the language question.
//
// JOB_OPENING, HOW_TO_APPLY, PRE_SCREENING and HELP are absorbing
// shortcuts into the static catalog.
//
// Returns (nil, false) for tokens outside the catalog; the caller logs the
// anomaly and stays silent.
func Advance(token string) (*messenger.Message, bool) {
	switch token {
	case TokenMSC, TokenMSCYes:
		return CruiseExperiencePrompt(), true
	case TokenMSCNo:
		// Declined at the first question; no reply, but the token is ours.
		return nil, true
	case TokenWorkedCruiseYes, TokenWorkedCruiseNo:
		return LanguagePrompt(), true
	case TokenJapaneseYes:
		return RegistrationLink(), true
	case TokenJapaneseNo:
		return EnglishFallback(), true
	case TokenJobOpening:
		return JobListings(), true
	case TokenHowToApply:
		return HowToApply(), true
	case TokenPreScreening:
		return PreScreening(), true
	case TokenHelp:
		return Help(), true
	default:
		return nil, false
	}
}

// StepName labels a funnel token for state tracking and logs.
// Shortcut tokens report the step they short-circuit to.
func StepName(token string) string {
	switch token {
	case TokenMSC, TokenMSCYes:
		return "experience_asked"
	case TokenMSCNo:
		return "declined"
	case TokenWorkedCruiseYes, TokenWorkedCruiseNo:
		return "language_asked"
	case TokenJapaneseYes:
		return "registration_link_sent"
	case TokenJapaneseNo:
		return "english_fallback_sent"
	case TokenJobOpening, TokenHowToApply, TokenPreScreening, TokenHelp:
		return "shortcut"
	default:
		return ""
	}
}
