package bot

import (
	"github.com/horizonjapan/crewbot/internal/messenger"
)

// Payload tokens shared by quick replies and postbacks (single namespace).
const (
	TokenGetStarted      = "GET_STARTED"
	TokenMSC             = "MSC"
	TokenMSCYes          = "MSC_YES"
	TokenMSCNo           = "MSC_NO"
	TokenWorkedCruiseYes = "WORKED_CRUISE_YES"
	TokenWorkedCruiseNo  = "WORKED_CRUISE_NO"
	TokenJapaneseYes     = "JAPANESE_YES"
	TokenJapaneseNo      = "JAPANESE_NO"
	TokenJobOpening      = "JOB_OPENING"
	TokenHowToApply      = "HOW_TO_APPLY"
	TokenPreScreening    = "PRE_SCREENING"
	TokenHelp            = "HELP"
)

// Destination URLs.
const (
	JobBoardURL         = "https://horizonjapan.softr.app/"
	RegistrationFormURL = "https://airtable.com/appODQ53LeZaz8bgj/pagGGwD7IdGwlVSlE/form"
	PreScreeningURL     = "https://calendar.google.com/calendar/u/0/appointments/AcZssZ1XWqZlSoUY8C4H7uB9w2Q-NU9fXJ5S7Spgmmc="
)

// mainMenu is the top-level quick-reply menu attached to the welcome and
// fallback messages.
func mainMenu() []messenger.QuickReplyOption {
	return []messenger.QuickReplyOption{
		messenger.QR("MSC Cruise Jobs", TokenMSC),
		messenger.QR("Current Job Opening", TokenJobOpening),
		messenger.QR("How to Apply", TokenHowToApply),
		messenger.QR("Pre-Screening Appointment", TokenPreScreening),
	}
}

// MSCPrompt asks whether the user is interested in MSC crew work and opens
// the quick-reply funnel.
func MSCPrompt() *messenger.Message {
	return messenger.NewQuickReplyMessage(
		"Interested in joining MSC Cruises as crew? 🚢\nMSCクルーズのクルーに興味がありますか？🌊",
		messenger.QR("Yes", TokenMSCYes),
		messenger.QR("No", TokenMSCNo),
	)
}

// HowToApply explains the application steps.
func HowToApply() *messenger.Message {
	return messenger.NewTextMessage(
		"📝 Here's how to apply for jobs with us:\n" +
			"1. Visit: " + JobBoardURL + "\n" +
			"2. Select the job you're interested in\n" +
			"3. Fill out the application form\n" +
			"📝 応募方法：\n" +
			"1. サイトへアクセス：" + JobBoardURL + "\n" +
			"2. 応募したい仕事を選ぶ\n" +
			"3. 応募フォームに記入してください")
}

// JobListings points at the current openings.
func JobListings() *messenger.Message {
	return messenger.NewTextMessage(
		"💼 We currently have several job openings!\n" +
			"💼 現在、さまざまな求人があります！\n" +
			"➡️ " + JobBoardURL)
}

// Help is the generic assistance prompt.
func Help() *messenger.Message {
	return messenger.NewTextMessage(
		"🆘 How can I help you?\n🆘 どのようにお手伝いできますか？")
}

// PreScreening links the pre-screening appointment calendar.
func PreScreening() *messenger.Message {
	return messenger.NewTextMessage(
		"To complete your pre-screening appointment, click below:\n" +
			"事前面談のご予約はこちら：\n" +
			"👉 " + PreScreeningURL + "\n\n" +
			"ご不明な点がございましたら、お気軽にこちらのメッセージでお問い合わせください。")
}

// CruiseExperiencePrompt is the second funnel step.
func CruiseExperiencePrompt() *messenger.Message {
	return messenger.NewQuickReplyMessage(
		"🤖 Have you ever worked on a cruise ship before?",
		messenger.QR("Yes", TokenWorkedCruiseYes),
		messenger.QR("No", TokenWorkedCruiseNo),
	)
}

// LanguagePrompt is the third funnel step.
func LanguagePrompt() *messenger.Message {
	return messenger.NewQuickReplyMessage(
		"🤖 Can you speak Japanese?",
		messenger.QR("Yes", TokenJapaneseYes),
		messenger.QR("No", TokenJapaneseNo),
	)
}

// RegistrationLink is the funnel's Japanese-speaker terminal message.
func RegistrationLink() *messenger.Message {
	return messenger.NewTextMessage(
		"Great! Please register here:\nこちらからご登録ください：\n👉 " + RegistrationFormURL)
}

// EnglishFallback is the funnel's non-Japanese-speaker terminal message:
// a button template pointing at English-language options.
func EnglishFallback() *messenger.Message {
	return messenger.NewButtonTemplate(
		"No worries! We have jobs for English speakers too.",
		messenger.URLButton("More Jobs", JobBoardURL),
		messenger.URLButton("Visit Website", JobBoardURL),
		messenger.PostbackButton("Contact Support", TokenHelp),
	)
}

// Welcome greets a user who tapped Get Started.
func Welcome() *messenger.Message {
	return messenger.NewQuickReplyMessage(
		"Thanks for messaging us!🙌\nOur team will reply soon.\n"+
			"メッセージありがとうございます！🙌\n担当者よりすぐにご連絡いたします。",
		mainMenu()...,
	)
}

// Fallback is the catch-all reply for unmatched text, cooldown-gated by
// the dispatcher.
func Fallback() *messenger.Message {
	return messenger.NewQuickReplyMessage(
		"🤖 One of our team members will be with you shortly.",
		mainMenu()...,
	)
}

// IntentMessage maps a classified intent to its canned reply.
// Returns nil for IntentNone.
func IntentMessage(intent Intent) *messenger.Message {
	switch intent {
	case IntentMSCInterest:
		return MSCPrompt()
	case IntentHowToApply:
		return HowToApply()
	case IntentJobListings:
		return JobListings()
	case IntentHelp:
		return Help()
	case IntentPreScreening:
		return PreScreening()
	default:
		return nil
	}
}

// ProfileSettings is the messenger profile provisioned at startup:
// Get Started button, greeting and the persistent menu.
func ProfileSettings() messenger.ProfileSettings {
	return messenger.ProfileSettings{
		GetStarted: &messenger.GetStarted{Payload: TokenGetStarted},
		Greeting: []messenger.Greeting{{
			Locale: "default",
			Text:   "Hi! Ask us about cruise crew jobs in Japan. 🚢",
		}},
		PersistentMenu: []messenger.PersistentMenu{{
			Locale:                "default",
			ComposerInputDisabled: false,
			CallToActions: []messenger.Button{
				messenger.PostbackButton("Current Job Openings", TokenJobOpening),
				messenger.URLButton("MSC Cruise Application", RegistrationFormURL),
				messenger.URLButton("Pre-Screening Appointment", PreScreeningURL),
				messenger.URLButton("Visit Website", JobBoardURL),
				messenger.PostbackButton("Help", TokenHelp),
			},
		}},
	}
}
