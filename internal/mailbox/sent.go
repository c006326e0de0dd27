package mailbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
)

// sentFolderNames are the common Sent folder names across providers,
// tried in order.
var sentFolderNames = []string{
	"Sent",
	"Sent Items",
	"Gesendet",
	"[Gmail]/Sent Mail",
	"Sent Messages",
	"OUTBOX",
}

// Append stores a raw message into a mailbox with the given flags.
func (c *Client) Append(ctx context.Context, mailbox string, raw []byte, flags []imap.Flag) error {
	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	cmd := client.Append(mailbox, int64(len(raw)), &imap.AppendOptions{
		Flags: flags,
		Time:  time.Now(),
	})
	if _, err := cmd.Write(raw); err != nil {
		return fmt.Errorf("writing message to %s: %w", mailbox, err)
	}
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("closing append to %s: %w", mailbox, err)
	}
	if _, err := cmd.Wait(); err != nil {
		return fmt.Errorf("appending to %s: %w", mailbox, err)
	}
	return nil
}

// FindSentFolder locates the account's Sent folder: exact candidate
// match first, then case-insensitive, then any folder containing
// "sent" that is not a drafts folder. Returns "" when nothing
// matches.
func (c *Client) FindSentFolder(ctx context.Context) (string, error) {
	infos, err := c.ListMailboxes(ctx)
	if err != nil {
		return "", err
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	return matchSentFolder(names), nil
}

func matchSentFolder(names []string) string {
	for _, candidate := range sentFolderNames {
		for _, name := range names {
			if name == candidate {
				return name
			}
		}
	}
	for _, candidate := range sentFolderNames {
		for _, name := range names {
			if strings.EqualFold(name, candidate) {
				return name
			}
		}
	}
	for _, name := range names {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "sent") && !strings.Contains(lower, "draft") {
			return name
		}
	}
	return ""
}

// SaveToSent appends an outbound message to the Sent folder with
// \Seen set, returning the folder used. Callers treat failure as
// best-effort: a missing Sent folder or a failed append must not fail
// the send that preceded it.
func (c *Client) SaveToSent(ctx context.Context, raw []byte) (string, error) {
	folder, err := c.FindSentFolder(ctx)
	if err != nil {
		return "", fmt.Errorf("finding sent folder: %w", err)
	}
	if folder == "" {
		return "", fmt.Errorf("no sent folder found")
	}
	if err := c.Append(ctx, folder, raw, []imap.Flag{imap.FlagSeen}); err != nil {
		return "", err
	}
	return folder, nil
}
