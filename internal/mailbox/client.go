// Package mailbox wraps go-imap v2 as the IMAP collaborator: it
// delivers raw message bytes and flags to the normalization core and
// performs flag/move/delete/append operations. It holds no protocol
// knowledge beyond that boundary.
package mailbox

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/mailbridge/internal/model"
	"github.com/nhle/mailbridge/internal/normalize"
)

// AuthError indicates the server rejected the configured credentials.
type AuthError struct {
	Username string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s: %v", e.Username, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Client holds the connection settings for one IMAP account. Each
// operation dials, authenticates, performs its work, and logs out.
type Client struct {
	host     string
	port     string
	username string
	password string
	tls      bool
}

// New creates a client configuration. tls selects implicit TLS;
// otherwise STARTTLS is used.
func New(host, port, username, password string, tls bool) *Client {
	return &Client{
		host:     host,
		port:     port,
		username: username,
		password: password,
		tls:      tls,
	}
}

// connect establishes a connection and authenticates. The caller is
// responsible for calling Logout on the returned client.
func (c *Client) connect(_ context.Context) (*imapclient.Client, error) {
	addr := c.host + ":" + c.port

	var client *imapclient.Client
	var err error
	if c.tls {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(c.username, c.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &AuthError{Username: c.username, Err: err}
	}
	return client, nil
}

// MailboxInfo describes one mailbox from LIST.
type MailboxInfo struct {
	Name      string   `json:"name"`
	Delimiter string   `json:"delimiter"`
	Attrs     []string `json:"attrs"`
}

// ListMailboxes returns every mailbox on the server.
func (c *Client) ListMailboxes(ctx context.Context) ([]MailboxInfo, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	boxes, err := client.List("", "*", nil).Collect()
	if err != nil {
		return nil, fmt.Errorf("listing mailboxes: %w", err)
	}

	infos := make([]MailboxInfo, 0, len(boxes))
	for _, box := range boxes {
		attrs := make([]string, 0, len(box.Attrs))
		for _, a := range box.Attrs {
			attrs = append(attrs, string(a))
		}
		infos = append(infos, MailboxInfo{
			Name:      box.Mailbox,
			Delimiter: string(box.Delim),
			Attrs:     attrs,
		})
	}
	return infos, nil
}

// MailboxStatus summarizes a mailbox for the status command.
type MailboxStatus struct {
	Mailbox     string `json:"mailbox"`
	Exists      uint32 `json:"exists"`
	Unseen      uint32 `json:"unseen"`
	UIDValidity uint32 `json:"uidvalidity"`
}

// Status reports message counts for a mailbox.
func (c *Client) Status(ctx context.Context, mailbox string) (MailboxStatus, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return MailboxStatus{}, err
	}
	defer func() { _ = client.Logout().Wait() }()

	data, err := client.Status(mailbox, &imap.StatusOptions{
		NumMessages: true,
		NumUnseen:   true,
		UIDValidity: true,
	}).Wait()
	if err != nil {
		return MailboxStatus{}, fmt.Errorf("mailbox status %s: %w", mailbox, err)
	}

	st := MailboxStatus{Mailbox: mailbox, UIDValidity: data.UIDValidity}
	if data.NumMessages != nil {
		st.Exists = *data.NumMessages
	}
	if data.NumUnseen != nil {
		st.Unseen = *data.NumUnseen
	}
	return st, nil
}

// Search runs an IMAP UID search against a mailbox. The criteria
// string is a shorthand: ALL, UNSEEN, "FROM <sender>",
// "SUBJECT <text>"; anything else becomes a full-text search.
func (c *Client) Search(ctx context.Context, mailbox, criteria string) ([]uint32, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(mailbox, nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", mailbox, err)
	}

	data, err := client.UIDSearch(buildCriteria(criteria), nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", mailbox, err)
	}

	uids := data.AllUIDs()
	out := make([]uint32, 0, len(uids))
	for _, uid := range uids {
		out = append(out, uint32(uid))
	}
	return out, nil
}

func buildCriteria(criteria string) *imap.SearchCriteria {
	trimmed := strings.TrimSpace(criteria)
	upper := strings.ToUpper(trimmed)
	switch {
	case trimmed == "" || upper == "ALL":
		return &imap.SearchCriteria{}
	case upper == "UNSEEN":
		return &imap.SearchCriteria{NotFlag: []imap.Flag{imap.FlagSeen}}
	case strings.HasPrefix(upper, "FROM "):
		value := strings.Trim(strings.TrimSpace(trimmed[5:]), `"'`)
		return &imap.SearchCriteria{
			Header: []imap.SearchCriteriaHeaderField{{Key: "From", Value: value}},
		}
	case strings.HasPrefix(upper, "SUBJECT "):
		value := strings.Trim(strings.TrimSpace(trimmed[8:]), `"'`)
		return &imap.SearchCriteria{
			Header: []imap.SearchCriteriaHeaderField{{Key: "Subject", Value: value}},
		}
	default:
		return &imap.SearchCriteria{Text: []string{trimmed}}
	}
}

// RawMessage is one fetched message: the raw RFC 822 bytes plus the
// server-side flags, exactly as handed to the normalization core.
type RawMessage struct {
	UID   uint32
	Flags []string
	Raw   []byte
}

// FetchRaw retrieves the raw bytes and flags for the given UIDs using
// a BODY.PEEK fetch so messages are not implicitly marked read.
func (c *Client) FetchRaw(ctx context.Context, mailbox string, uids []uint32) ([]RawMessage, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(mailbox, nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", mailbox, err)
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(uidSet(uids), &imap.FetchOptions{
		Flags:       true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	var messages []RawMessage
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			continue
		}
		raw := buf.FindBodySection(bodySection)
		if raw == nil {
			continue
		}
		flags := make([]string, 0, len(buf.Flags))
		for _, f := range buf.Flags {
			flags = append(flags, string(f))
		}
		messages = append(messages, RawMessage{
			UID:   uint32(buf.UID),
			Flags: flags,
			Raw:   raw,
		})
	}
	if err := fetchCmd.Close(); err != nil {
		return messages, fmt.Errorf("fetching from %s: %w", mailbox, err)
	}
	return messages, nil
}

// FetchNormalized fetches the given UIDs and runs them through the
// normalization core as one batch. The skipped count reports messages
// cut by the MaxMessagesPerFetch ceiling.
func (c *Client) FetchNormalized(
	ctx context.Context,
	mailbox string,
	uids []uint32,
	limits model.GuardrailConfig,
) ([]model.NormalizedEmail, int, error) {
	raws, err := c.FetchRaw(ctx, mailbox, uids)
	if err != nil {
		return nil, 0, err
	}

	items := make([]normalize.BatchItem, 0, len(raws))
	for _, m := range raws {
		items = append(items, normalize.BatchItem{
			ID:    strconv.FormatUint(uint64(m.UID), 10),
			Flags: m.Flags,
			Raw:   m.Raw,
		})
	}
	records, skipped := normalize.Batch(items, mailbox, limits)
	return records, skipped, nil
}

// SetFlags adds or removes flags on the given UIDs.
func (c *Client) SetFlags(ctx context.Context, mailbox string, uids []uint32, flags []imap.Flag, add bool) error {
	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(mailbox, nil).Wait(); err != nil {
		return fmt.Errorf("selecting %s: %w", mailbox, err)
	}

	op := imap.StoreFlagsAdd
	if !add {
		op = imap.StoreFlagsDel
	}
	storeCmd := client.Store(uidSet(uids), &imap.StoreFlags{
		Op:     op,
		Silent: true,
		Flags:  flags,
	}, nil)
	if err := storeCmd.Close(); err != nil {
		return fmt.Errorf("storing flags in %s: %w", mailbox, err)
	}
	return nil
}

// MarkRead sets \Seen on the given UIDs.
func (c *Client) MarkRead(ctx context.Context, mailbox string, uids []uint32) error {
	return c.SetFlags(ctx, mailbox, uids, []imap.Flag{imap.FlagSeen}, true)
}

// MarkUnread removes \Seen from the given UIDs.
func (c *Client) MarkUnread(ctx context.Context, mailbox string, uids []uint32) error {
	return c.SetFlags(ctx, mailbox, uids, []imap.Flag{imap.FlagSeen}, false)
}

// Delete flags the given UIDs \Deleted and expunges them.
func (c *Client) Delete(ctx context.Context, mailbox string, uids []uint32) error {
	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(mailbox, nil).Wait(); err != nil {
		return fmt.Errorf("selecting %s: %w", mailbox, err)
	}

	storeCmd := client.Store(uidSet(uids), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagDeleted},
	}, nil)
	if err := storeCmd.Close(); err != nil {
		return fmt.Errorf("flagging messages deleted in %s: %w", mailbox, err)
	}

	if _, err := client.Expunge().Collect(); err != nil {
		return fmt.Errorf("expunging %s: %w", mailbox, err)
	}
	return nil
}

// Move transfers the given UIDs to another mailbox.
func (c *Client) Move(ctx context.Context, mailbox, target string, uids []uint32) error {
	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(mailbox, nil).Wait(); err != nil {
		return fmt.Errorf("selecting %s: %w", mailbox, err)
	}

	if _, err := client.Move(uidSet(uids), target).Wait(); err != nil {
		return fmt.Errorf("moving messages to %s: %w", target, err)
	}
	return nil
}

func uidSet(uids []uint32) imap.UIDSet {
	converted := make([]imap.UID, 0, len(uids))
	for _, uid := range uids {
		converted = append(converted, imap.UID(uid))
	}
	return imap.UIDSetNum(converted...)
}
