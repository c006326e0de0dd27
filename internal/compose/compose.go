// Package compose builds well-formed MIME byte sequences for the SMTP
// transport. Attachment sizes are checked against the guardrail
// ceiling before any bytes reach the transport, failing fast with a
// structured error instead of letting the server reject the message.
package compose

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	gomail "github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.com/nhle/mailbridge/internal/model"
)

// AttachmentTooLargeError reports an outbound attachment exceeding
// MaxAttachmentBytes. It is the only failure that aborts a send
// outright; the caller must shrink or remove the attachment.
type AttachmentTooLargeError struct {
	Filename string
	Size     int64
	Limit    int64
}

func (e *AttachmentTooLargeError) Error() string {
	return fmt.Sprintf(
		"attachment %s is %d bytes, exceeding the %d byte limit",
		e.Filename, e.Size, e.Limit,
	)
}

// Params describes an outbound message.
type Params struct {
	From      model.Address
	To        []model.Address
	Cc        []model.Address
	Bcc       []model.Address
	ReplyTo   string
	InReplyTo string
	Subject   string
	Text      string
	HTML      string

	// AttachmentPaths are local files to attach, checked against
	// MaxAttachmentBytes before the message is built.
	AttachmentPaths []string
}

// Recipients returns every envelope recipient (To + Cc + Bcc).
func (p Params) Recipients() []string {
	var out []string
	for _, group := range [][]model.Address{p.To, p.Cc, p.Bcc} {
		for _, a := range group {
			out = append(out, a.Email)
		}
	}
	return out
}

// Build assembles the MIME byte sequence for p. Attachments are
// validated first so an oversized file fails before any composition
// work happens.
func Build(p Params, limits model.GuardrailConfig) ([]byte, error) {
	type pending struct {
		path     string
		filename string
	}
	var attachments []pending
	for _, path := range p.AttachmentPaths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("reading attachment %s: %w", path, err)
		}
		if info.Size() > int64(limits.MaxAttachmentBytes) {
			return nil, &AttachmentTooLargeError{
				Filename: filepath.Base(path),
				Size:     info.Size(),
				Limit:    int64(limits.MaxAttachmentBytes),
			}
		}
		attachments = append(attachments, pending{path: path, filename: filepath.Base(path)})
	}

	var h gomail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*gomail.Address{{Name: p.From.Name, Address: p.From.Email}})
	h.SetAddressList("To", toAddressList(p.To))
	if len(p.Cc) > 0 {
		h.SetAddressList("Cc", toAddressList(p.Cc))
	}
	h.SetSubject(p.Subject)
	h.Set("Message-Id", generateMessageID(p.From.Email))
	if p.ReplyTo != "" {
		h.Set("Reply-To", p.ReplyTo)
	}
	if p.InReplyTo != "" {
		h.Set("In-Reply-To", p.InReplyTo)
		h.Set("References", p.InReplyTo)
	}

	var buf bytes.Buffer
	mw, err := gomail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}

	if err := writeBody(mw, p); err != nil {
		return nil, err
	}

	for _, att := range attachments {
		if err := writeAttachment(mw, att.path, att.filename); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing message: %w", err)
	}
	return buf.Bytes(), nil
}

// writeBody writes the text part and, when present, the HTML
// alternative.
func writeBody(mw *gomail.Writer, p Params) error {
	iw, err := mw.CreateInline()
	if err != nil {
		return fmt.Errorf("creating body: %w", err)
	}

	var th gomail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	tw, err := iw.CreatePart(th)
	if err != nil {
		return fmt.Errorf("creating text part: %w", err)
	}
	if _, err := io.WriteString(tw, p.Text); err != nil {
		return fmt.Errorf("writing text part: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("closing text part: %w", err)
	}

	if p.HTML != "" {
		var hh gomail.InlineHeader
		hh.SetContentType("text/html", map[string]string{"charset": "utf-8"})
		hw, err := iw.CreatePart(hh)
		if err != nil {
			return fmt.Errorf("creating html part: %w", err)
		}
		if _, err := io.WriteString(hw, p.HTML); err != nil {
			return fmt.Errorf("writing html part: %w", err)
		}
		if err := hw.Close(); err != nil {
			return fmt.Errorf("closing html part: %w", err)
		}
	}

	if err := iw.Close(); err != nil {
		return fmt.Errorf("closing body: %w", err)
	}
	return nil
}

func writeAttachment(mw *gomail.Writer, path, filename string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening attachment %s: %w", path, err)
	}
	defer f.Close()

	var ah gomail.AttachmentHeader
	ah.SetFilename(filename)
	ah.SetContentType(detectContentType(filename), nil)
	aw, err := mw.CreateAttachment(ah)
	if err != nil {
		return fmt.Errorf("creating attachment %s: %w", filename, err)
	}
	if _, err := io.Copy(aw, f); err != nil {
		return fmt.Errorf("writing attachment %s: %w", filename, err)
	}
	if err := aw.Close(); err != nil {
		return fmt.Errorf("closing attachment %s: %w", filename, err)
	}
	return nil
}

func detectContentType(filename string) string {
	if t := mime.TypeByExtension(filepath.Ext(filename)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func toAddressList(addrs []model.Address) []*gomail.Address {
	out := make([]*gomail.Address, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, &gomail.Address{Name: a.Name, Address: a.Email})
	}
	return out
}

// generateMessageID builds a unique Message-Id using the sender's
// domain when one is available.
func generateMessageID(from string) string {
	domain := "mailbridge.local"
	if at := strings.LastIndexByte(from, '@'); at >= 0 && at < len(from)-1 {
		domain = from[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}
