package model

// Address is a single mail address with an optional display name.
// Email may hold a malformed fragment verbatim when parsing failed;
// callers must be able to see that something was present.
type Address struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Attachment holds metadata about a message attachment. Size is the
// number of bytes actually captured; DeclaredSize is the total number
// of bytes the part carried before any guardrail clipping.
type Attachment struct {
	Filename     string `json:"filename"`
	ContentType  string `json:"content_type"`
	Size         int    `json:"size"`
	Truncated    bool   `json:"truncated"`
	DeclaredSize int64  `json:"-"`
}

// BodyContent holds the message body variants. Text and HTML are
// always present (empty string when the message has no such part).
type BodyContent struct {
	Text        string       `json:"text"`
	HTML        string       `json:"html"`
	Attachments []Attachment `json:"attachments"`
}

// NormalizedEmail is the canonical, agent-consumable record produced
// by normalization. Every field is always present with a well-typed
// default; absence is represented by an empty string or sequence,
// never by a missing key or null.
type NormalizedEmail struct {
	ID        string         `json:"id"`
	Mailbox   string         `json:"mailbox"`
	From      Address        `json:"from"`
	To        []Address      `json:"to"`
	Cc        []Address      `json:"cc"`
	Bcc       []Address      `json:"bcc"`
	Subject   string         `json:"subject"`
	Timestamp string         `json:"timestamp"`
	Body      BodyContent    `json:"body"`
	Headers   map[string]any `json:"headers"`
	Flags     []string       `json:"flags"`
}
