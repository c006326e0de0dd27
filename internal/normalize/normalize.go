package normalize

import (
	"strings"

	"github.com/nhle/mailbridge/internal/model"
)

// selectedHeaders are the header names surfaced in the normalized
// record's headers map, always present with an empty-string default.
var selectedHeaders = []string{
	"message-id",
	"in-reply-to",
	"references",
	"reply-to",
	"date",
	"content-type",
}

// Options identifies the message being normalized. Flags and Mailbox
// come from the IMAP collaborator and are passed through verbatim.
type Options struct {
	ID      string
	Mailbox string
	Flags   []string
}

// Email converts a raw message into the canonical NormalizedEmail
// record. It is a pure function of its inputs plus the guardrail
// config: identical inputs always produce an identical record, and no
// input, however malformed, makes it fail.
func Email(raw []byte, opts Options, limits model.GuardrailConfig) model.NormalizedEmail {
	tree := Walk(raw, limits)
	root := tree.Root()

	rec := model.NormalizedEmail{
		ID:        opts.ID,
		Mailbox:   opts.Mailbox,
		To:        []model.Address{},
		Cc:        []model.Address{},
		Bcc:       []model.Address{},
		Timestamp: TimestampSentinel,
		Body: model.BodyContent{
			Attachments: []model.Attachment{},
		},
		Headers: map[string]any{},
		Flags:   []string{},
	}
	if opts.Flags != nil {
		rec.Flags = append(rec.Flags, opts.Flags...)
	}

	rec.From = ParseAddress(headerValue(root, "From"))
	rec.To = append(rec.To, parseAll(root, "To")...)
	rec.Cc = append(rec.Cc, parseAll(root, "Cc")...)
	rec.Bcc = append(rec.Bcc, parseAll(root, "Bcc")...)
	rec.Subject = DecodeHeader(headerValue(root, "Subject"))
	rec.Timestamp, _ = ResolveDate(headerValue(root, "Date"))
	rec.Headers = buildHeaderMap(root)

	assembleBody(tree, &rec.Body, limits)
	return rec
}

// BatchItem is one raw message queued for batch normalization.
type BatchItem struct {
	ID    string
	Flags []string
	Raw   []byte
}

// Batch normalizes up to MaxMessagesPerFetch items. Excess items are
// not silently ignored: the returned skipped count reports how many
// were cut by the batch ceiling, and the partial batch is still
// returned.
func Batch(items []BatchItem, mailbox string, limits model.GuardrailConfig) ([]model.NormalizedEmail, int) {
	skipped := 0
	if limits.MaxMessagesPerFetch > 0 && len(items) > limits.MaxMessagesPerFetch {
		skipped = len(items) - limits.MaxMessagesPerFetch
		items = items[:limits.MaxMessagesPerFetch]
	}
	records := make([]model.NormalizedEmail, 0, len(items))
	for _, item := range items {
		records = append(records, Email(item.Raw, Options{
			ID:      item.ID,
			Mailbox: mailbox,
			Flags:   item.Flags,
		}, limits))
	}
	return records, skipped
}

// assembleBody walks the tree depth-first pre-order, binding the
// first text/plain leaf as the text body and the first text/html leaf
// as the html body. Every other leaf, including anything carrying a
// Content-Disposition of attachment regardless of media type, becomes
// an attachment entry.
func assembleBody(t *Tree, body *model.BodyContent, limits model.GuardrailConfig) {
	var visit func(idx int)
	visit = func(idx int) {
		p := &t.Parts[idx]
		if len(p.Children) > 0 {
			for _, child := range p.Children {
				visit(child)
			}
			return
		}
		switch {
		case !p.Attachment && p.MediaType == "text/plain" && body.Text == "":
			body.Text = ClipString(strings.ToValidUTF8(string(p.Payload), "�"), limits.MaxBodyBytes)
		case !p.Attachment && p.MediaType == "text/html" && body.HTML == "":
			body.HTML = ClipString(strings.ToValidUTF8(string(p.Payload), "�"), limits.MaxBodyBytes)
		default:
			body.Attachments = append(body.Attachments, leafAttachment(p))
		}
	}
	visit(0)
}

func leafAttachment(p *Part) model.Attachment {
	filename := p.Filename
	if filename == "" {
		filename = "attachment"
	}
	contentType := p.MediaType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return model.Attachment{
		Filename:     filename,
		ContentType:  contentType,
		Size:         len(p.Payload),
		Truncated:    p.Truncated,
		DeclaredSize: p.DeclaredSize,
	}
}

// headerValue returns the first value of a header on the part,
// matching the name case-insensitively.
func headerValue(p *Part, name string) string {
	for _, f := range p.Headers {
		if strings.EqualFold(f.Key, name) {
			return f.Value
		}
	}
	return ""
}

// parseAll parses every occurrence of an address header, preserving
// order across repeated header lines.
func parseAll(p *Part, name string) []model.Address {
	var addrs []model.Address
	for _, f := range p.Headers {
		if strings.EqualFold(f.Key, name) {
			addrs = append(addrs, ParseAddressList(f.Value)...)
		}
	}
	return addrs
}

// buildHeaderMap assembles the selected-headers map. Names are
// deduplicated case-insensitively; a header that repeats collects its
// values into an ordered list instead of keeping only one.
func buildHeaderMap(root *Part) map[string]any {
	headers := make(map[string]any, len(selectedHeaders))
	for _, name := range selectedHeaders {
		headers[name] = ""
	}
	for _, f := range root.Headers {
		key := strings.ToLower(f.Key)
		current, ok := headers[key]
		if !ok {
			continue
		}
		value := DecodeHeader(f.Value)
		switch existing := current.(type) {
		case string:
			if existing == "" {
				headers[key] = value
			} else {
				headers[key] = []string{existing, value}
			}
		case []string:
			headers[key] = append(existing, value)
		}
	}
	return headers
}
