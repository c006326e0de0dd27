package compose

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nhle/mailbridge/internal/model"
	"github.com/nhle/mailbridge/internal/normalize"
)

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestBuildRoundTrip(t *testing.T) {
	attachment := writeTempFile(t, "notes.txt", []byte("attached content"))

	params := Params{
		From:    model.Address{Name: "Alice", Email: "alice@example.com"},
		To:      []model.Address{{Email: "bob@example.com"}},
		Cc:      []model.Address{{Name: "Carol", Email: "carol@example.com"}},
		Subject: "Café plans",
		Text:    "plain body",
		HTML:    "<p>html body</p>",

		AttachmentPaths: []string{attachment},
	}

	raw, err := Build(params, model.DefaultGuardrails())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	// The built message must survive its own normalization pipeline.
	rec := normalize.Email(raw, normalize.Options{ID: "1", Mailbox: "Sent"}, model.DefaultGuardrails())

	if rec.From.Email != "alice@example.com" || rec.From.Name != "Alice" {
		t.Fatalf("from = %+v", rec.From)
	}
	if len(rec.To) != 1 || rec.To[0].Email != "bob@example.com" {
		t.Fatalf("to = %+v", rec.To)
	}
	if len(rec.Cc) != 1 || rec.Cc[0].Email != "carol@example.com" {
		t.Fatalf("cc = %+v", rec.Cc)
	}
	if rec.Subject != "Café plans" {
		t.Fatalf("subject = %q", rec.Subject)
	}
	if rec.Timestamp == "" {
		t.Fatal("built message has no resolvable date")
	}
	if rec.Body.Text != "plain body" {
		t.Fatalf("text = %q", rec.Body.Text)
	}
	if rec.Body.HTML != "<p>html body</p>" {
		t.Fatalf("html = %q", rec.Body.HTML)
	}
	if len(rec.Body.Attachments) != 1 {
		t.Fatalf("attachments = %+v", rec.Body.Attachments)
	}
	att := rec.Body.Attachments[0]
	if att.Filename != "notes.txt" {
		t.Fatalf("attachment filename = %q", att.Filename)
	}
	if att.Size != len("attached content") {
		t.Fatalf("attachment size = %d", att.Size)
	}
	if id, _ := rec.Headers["message-id"].(string); id == "" {
		t.Fatal("built message has no Message-Id")
	}
}

func TestBuildThreadingHeaders(t *testing.T) {
	params := Params{
		From:      model.Address{Email: "alice@example.com"},
		To:        []model.Address{{Email: "bob@example.com"}},
		Subject:   "Re: thread",
		Text:      "reply",
		ReplyTo:   "alice+replies@example.com",
		InReplyTo: "<original@example.com>",
	}
	raw, err := Build(params, model.DefaultGuardrails())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	rec := normalize.Email(raw, normalize.Options{ID: "1"}, model.DefaultGuardrails())
	if got := rec.Headers["in-reply-to"]; got != "<original@example.com>" {
		t.Fatalf("in-reply-to = %v", got)
	}
	if got := rec.Headers["references"]; got != "<original@example.com>" {
		t.Fatalf("references = %v", got)
	}
	if got := rec.Headers["reply-to"]; got != "alice+replies@example.com" {
		t.Fatalf("reply-to = %v", got)
	}
}

func TestBuildAttachmentTooLarge(t *testing.T) {
	big := writeTempFile(t, "big.bin", bytes.Repeat([]byte{0xFF}, 64))

	limits := model.DefaultGuardrails()
	limits.MaxAttachmentBytes = 32

	_, err := Build(Params{
		From:            model.Address{Email: "alice@example.com"},
		To:              []model.Address{{Email: "bob@example.com"}},
		Text:            "body",
		AttachmentPaths: []string{big},
	}, limits)

	var tooLarge *AttachmentTooLargeError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("err = %v, want AttachmentTooLargeError", err)
	}
	if tooLarge.Filename != "big.bin" || tooLarge.Size != 64 || tooLarge.Limit != 32 {
		t.Fatalf("error detail = %+v", tooLarge)
	}
}

func TestBuildMissingAttachment(t *testing.T) {
	_, err := Build(Params{
		From:            model.Address{Email: "alice@example.com"},
		To:              []model.Address{{Email: "bob@example.com"}},
		Text:            "body",
		AttachmentPaths: []string{filepath.Join(t.TempDir(), "absent.txt")},
	}, model.DefaultGuardrails())
	if err == nil {
		t.Fatal("expected error for missing attachment file")
	}
}

func TestRecipients(t *testing.T) {
	p := Params{
		To:  []model.Address{{Email: "a@x"}, {Email: "b@x"}},
		Cc:  []model.Address{{Email: "c@x"}},
		Bcc: []model.Address{{Email: "d@x"}},
	}
	got := p.Recipients()
	want := []string{"a@x", "b@x", "c@x", "d@x"}
	if len(got) != len(want) {
		t.Fatalf("recipients = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("recipients[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGenerateMessageID(t *testing.T) {
	id := generateMessageID("alice@example.com")
	if id[0] != '<' || id[len(id)-1] != '>' {
		t.Fatalf("message id %q not angle-bracketed", id)
	}
	if !bytes.HasSuffix([]byte(id), []byte("@example.com>")) {
		t.Fatalf("message id %q does not use the sender domain", id)
	}
	if generateMessageID("alice@example.com") == id {
		t.Fatal("message ids are not unique")
	}

	fallback := generateMessageID("no-domain")
	if !bytes.HasSuffix([]byte(fallback), []byte("@mailbridge.local>")) {
		t.Fatalf("fallback message id = %q", fallback)
	}
}
