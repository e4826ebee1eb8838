// Package messenger provides the Facebook Messenger platform integration:
// webhook payload types, the Graph API send client with bounded retry, and
// messenger profile provisioning.
package messenger

// WebhookPayload is the body Meta delivers to POST /webhook.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry is one page entry inside a webhook delivery.
type Entry struct {
	ID        string  `json:"id"`
	Time      int64   `json:"time"`
	Messaging []Event `json:"messaging"`
}

// Event is a single messaging event. Exactly one of Message, Postback,
// PassThreadControl or TakeThreadControl is set.
type Event struct {
	Sender            User             `json:"sender"`
	Recipient         User             `json:"recipient"`
	Timestamp         int64            `json:"timestamp"`
	Message           *ReceivedMessage `json:"message,omitempty"`
	Postback          *Postback        `json:"postback,omitempty"`
	PassThreadControl *ThreadControl   `json:"pass_thread_control,omitempty"`
	TakeThreadControl *ThreadControl   `json:"take_thread_control,omitempty"`
}

// User identifies a conversation participant by PSID.
type User struct {
	ID string `json:"id"`
}

// ReceivedMessage is an inbound message from a user.
type ReceivedMessage struct {
	MID        string      `json:"mid"`
	Text       string      `json:"text,omitempty"`
	QuickReply *QuickReply `json:"quick_reply,omitempty"`
}

// QuickReply carries the payload token of a tapped quick-reply button.
type QuickReply struct {
	Payload string `json:"payload"`
}

// Postback is a button-tap event carrying a fixed payload token.
type Postback struct {
	Title   string `json:"title,omitempty"`
	Payload string `json:"payload"`
}

// ThreadControl signals a handover-protocol ownership change.
type ThreadControl struct {
	PreviousOwnerAppID int64  `json:"previous_owner_app_id,omitempty"`
	NewOwnerAppID      int64  `json:"new_owner_app_id,omitempty"`
	Metadata           string `json:"metadata,omitempty"`
}

// Message is an outbound message payload for the Send API.
type Message struct {
	Text         string             `json:"text,omitempty"`
	QuickReplies []QuickReplyOption `json:"quick_replies,omitempty"`
	Attachment   *Attachment        `json:"attachment,omitempty"`
}

// QuickReplyOption is a quick-reply button rendered beneath a message.
type QuickReplyOption struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Payload     string `json:"payload"`
}

// Attachment wraps a structured template payload.
type Attachment struct {
	Type    string            `json:"type"`
	Payload AttachmentPayload `json:"payload"`
}

// AttachmentPayload holds button template content.
type AttachmentPayload struct {
	TemplateType string   `json:"template_type"`
	Text         string   `json:"text,omitempty"`
	Buttons      []Button `json:"buttons,omitempty"`
}

// Button is a postback or web_url call-to-action.
type Button struct {
	Type               string `json:"type"`
	Title              string `json:"title"`
	URL                string `json:"url,omitempty"`
	Payload            string `json:"payload,omitempty"`
	WebviewHeightRatio string `json:"webview_height_ratio,omitempty"`
}

// SendRequest is the Send API request body.
type SendRequest struct {
	Recipient     User     `json:"recipient"`
	Message       *Message `json:"message"`
	MessagingType string   `json:"messaging_type,omitempty"`
}

// SendResponse is the Send API response body.
type SendResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}

// ProfileSettings is the messenger_profile request body.
type ProfileSettings struct {
	GetStarted     *GetStarted      `json:"get_started,omitempty"`
	Greeting       []Greeting       `json:"greeting,omitempty"`
	PersistentMenu []PersistentMenu `json:"persistent_menu,omitempty"`
}

// GetStarted configures the payload sent when a user taps Get Started.
type GetStarted struct {
	Payload string `json:"payload"`
}

// Greeting is the localized greeting text shown before first contact.
type Greeting struct {
	Locale string `json:"locale"`
	Text   string `json:"text"`
}

// PersistentMenu is the always-visible hamburger menu.
type PersistentMenu struct {
	Locale                string   `json:"locale"`
	ComposerInputDisabled bool     `json:"composer_input_disabled"`
	CallToActions         []Button `json:"call_to_actions"`
}

// ProfileData is the messenger_profile read response.
type ProfileData struct {
	Data []ProfileSettings `json:"data"`
}

// NewTextMessage builds a plain text message.
func NewTextMessage(text string) *Message {
	return &Message{Text: text}
}

// NewQuickReplyMessage builds a text message with quick-reply buttons.
// Each pair is (title, payload).
func NewQuickReplyMessage(text string, options ...QuickReplyOption) *Message {
	return &Message{Text: text, QuickReplies: options}
}

// QR builds a text-type quick-reply option.
func QR(title, payload string) QuickReplyOption {
	return QuickReplyOption{ContentType: "text", Title: title, Payload: payload}
}

// NewButtonTemplate builds a button template message.
func NewButtonTemplate(text string, buttons ...Button) *Message {
	return &Message{
		Attachment: &Attachment{
			Type: "template",
			Payload: AttachmentPayload{
				TemplateType: "button",
				Text:         text,
				Buttons:      buttons,
			},
		},
	}
}

// URLButton builds a web_url call-to-action.
func URLButton(title, url string) Button {
	return Button{Type: "web_url", Title: title, URL: url, WebviewHeightRatio: "full"}
}

// PostbackButton builds a postback call-to-action.
func PostbackButton(title, payload string) Button {
	return Button{Type: "postback", Title: title, Payload: payload}
}
