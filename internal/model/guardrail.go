package model

// Default guardrail ceilings. Overridable via the config file or the
// MAX_BODY_BYTES / MAX_ATTACHMENT_BYTES / MAX_MESSAGES_PER_FETCH /
// MAX_MIME_DEPTH environment variables.
const (
	DefaultMaxBodyBytes        = 10 * 1024 * 1024
	DefaultMaxAttachmentBytes  = 25 * 1024 * 1024
	DefaultMaxMessagesPerFetch = 50
	DefaultMaxMIMEDepth        = 10
)

// GuardrailConfig holds the size and count ceilings enforced on
// untrusted input. It is immutable per invocation: callers pass a
// value into every normalization call rather than relying on ambient
// state, so concurrent invocations with different limits are safe.
type GuardrailConfig struct {
	MaxBodyBytes        int
	MaxAttachmentBytes  int
	MaxMessagesPerFetch int
	MaxMIMEDepth        int
}

// DefaultGuardrails returns the process-wide default ceilings.
func DefaultGuardrails() GuardrailConfig {
	return GuardrailConfig{
		MaxBodyBytes:        DefaultMaxBodyBytes,
		MaxAttachmentBytes:  DefaultMaxAttachmentBytes,
		MaxMessagesPerFetch: DefaultMaxMessagesPerFetch,
		MaxMIMEDepth:        DefaultMaxMIMEDepth,
	}
}
