package store_test

import (
	"context"
	"testing"

	"github.com/nhle/mailbridge/internal/model"
	"github.com/nhle/mailbridge/internal/store"
	"github.com/nhle/mailbridge/tests/testutil"
)

func record(id, mailbox, subject, timestamp string) model.NormalizedEmail {
	return model.NormalizedEmail{
		ID:        id,
		Mailbox:   mailbox,
		From:      model.Address{Email: "alice@example.com"},
		To:        []model.Address{{Email: "bob@example.com"}},
		Cc:        []model.Address{},
		Bcc:       []model.Address{},
		Subject:   subject,
		Timestamp: timestamp,
		Body: model.BodyContent{
			Text:        "body of " + id,
			Attachments: []model.Attachment{},
		},
		Headers: map[string]any{"message-id": "<" + id + "@example.com>"},
		Flags:   []string{},
	}
}

func TestUpsertAndGetMessage(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	msgs := []model.NormalizedEmail{
		record("1", "INBOX", "first", "2026-02-10T08:30:00Z"),
		record("2", "INBOX", "second", "2026-02-11T09:00:00Z"),
	}
	if err := s.UpsertMessages(ctx, "work", msgs); err != nil {
		t.Fatalf("upserting: %v", err)
	}

	got, err := s.GetMessage(ctx, "work", "INBOX", "1")
	if err != nil {
		t.Fatalf("getting message: %v", err)
	}
	if got == nil {
		t.Fatal("message not found")
	}
	if got.Subject != "first" || got.Body.Text != "body of 1" {
		t.Fatalf("got %+v", got)
	}

	missing, err := s.GetMessage(ctx, "work", "INBOX", "absent")
	if err != nil {
		t.Fatalf("getting missing message: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing message, got %+v", missing)
	}
}

func TestUpsertReplaces(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	first := record("1", "INBOX", "original subject", "2026-02-10T08:30:00Z")
	if err := s.UpsertMessages(ctx, "work", []model.NormalizedEmail{first}); err != nil {
		t.Fatalf("upserting: %v", err)
	}

	updated := first
	updated.Subject = "updated subject"
	updated.Flags = []string{"\\Seen"}
	if err := s.UpsertMessages(ctx, "work", []model.NormalizedEmail{updated}); err != nil {
		t.Fatalf("re-upserting: %v", err)
	}

	msgs, err := s.ListMessages(ctx, store.MessageFilter{Account: "work", Mailbox: "INBOX"})
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Subject != "updated subject" {
		t.Fatalf("subject = %q", msgs[0].Subject)
	}
	if len(msgs[0].Flags) != 1 || msgs[0].Flags[0] != "\\Seen" {
		t.Fatalf("flags = %v", msgs[0].Flags)
	}
}

func TestListMessagesFilters(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	msgs := []model.NormalizedEmail{
		record("1", "INBOX", "quarterly report", "2026-02-10T08:30:00Z"),
		record("2", "INBOX", "lunch plans", "2026-02-12T12:00:00Z"),
		record("3", "Archive", "old report", "2025-06-01T10:00:00Z"),
	}
	if err := s.UpsertMessages(ctx, "work", msgs); err != nil {
		t.Fatalf("upserting: %v", err)
	}
	if err := s.UpsertMessages(ctx, "personal", []model.NormalizedEmail{
		record("9", "INBOX", "unrelated", "2026-01-01T00:00:00Z"),
	}); err != nil {
		t.Fatalf("upserting second account: %v", err)
	}

	all, err := s.ListMessages(ctx, store.MessageFilter{Account: "work"})
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d messages, want 3", len(all))
	}
	// Newest first.
	if all[0].ID != "2" || all[1].ID != "1" || all[2].ID != "3" {
		t.Fatalf("order = %s, %s, %s", all[0].ID, all[1].ID, all[2].ID)
	}

	inbox, err := s.ListMessages(ctx, store.MessageFilter{Account: "work", Mailbox: "INBOX"})
	if err != nil {
		t.Fatalf("listing inbox: %v", err)
	}
	if len(inbox) != 2 {
		t.Fatalf("got %d inbox messages, want 2", len(inbox))
	}

	reports, err := s.ListMessages(ctx, store.MessageFilter{Account: "work", Query: "report"})
	if err != nil {
		t.Fatalf("listing by query: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d report messages, want 2", len(reports))
	}

	limited, err := s.ListMessages(ctx, store.MessageFilter{Account: "work", Limit: 1})
	if err != nil {
		t.Fatalf("listing limited: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "2" {
		t.Fatalf("limited = %+v", limited)
	}
}

func TestUpsertEmptyBatch(t *testing.T) {
	s := testutil.NewTestStore(t)
	if err := s.UpsertMessages(context.Background(), "work", nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
}
