package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nhle/mailbridge/internal/model"
	"github.com/nhle/mailbridge/internal/store"
)

func parseUIDs(args []string) ([]uint32, error) {
	uids := make([]uint32, 0, len(args))
	for _, arg := range args {
		uid, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid UID %q: %w", arg, err)
		}
		uids = append(uids, uint32(uid))
	}
	return uids, nil
}

func newMailboxesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mailboxes",
		Short: "List all mailboxes on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			client, _, err := a.imapClient()
			if err != nil {
				return err
			}
			infos, err := client.ListMailboxes(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(map[string]any{"mailboxes": infos})
		},
	}
}

func newStatusCmd() *cobra.Command {
	var mailboxName string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show message counts for a mailbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			client, _, err := a.imapClient()
			if err != nil {
				return err
			}
			st, err := client.Status(cmd.Context(), mailboxName)
			if err != nil {
				return err
			}
			return writeJSON(st)
		},
	}
	cmd.Flags().StringVar(&mailboxName, "mailbox", "INBOX", "mailbox to inspect")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var mailboxName string
	cmd := &cobra.Command{
		Use:   "search <criteria>",
		Short: "Search a mailbox (ALL, UNSEEN, FROM x, SUBJECT x, or free text)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			client, _, err := a.imapClient()
			if err != nil {
				return err
			}
			uids, err := client.Search(cmd.Context(), mailboxName, args[0])
			if err != nil {
				return err
			}
			return writeJSON(map[string]any{
				"mailbox": mailboxName,
				"uids":    uids,
				"count":   len(uids),
			})
		},
	}
	cmd.Flags().StringVar(&mailboxName, "mailbox", "INBOX", "mailbox to search")
	return cmd
}

func newFetchCmd() *cobra.Command {
	var (
		mailboxName string
		cache       bool
	)
	cmd := &cobra.Command{
		Use:   "fetch <uid>...",
		Short: "Fetch messages and emit canonical JSON records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			uids, err := parseUIDs(args)
			if err != nil {
				return err
			}
			client, acct, err := a.imapClient()
			if err != nil {
				return err
			}
			records, skipped, err := client.FetchNormalized(cmd.Context(), mailboxName, uids, a.limits)
			if err != nil {
				return err
			}
			if skipped > 0 {
				logger.Warn("batch ceiling reached",
					"skipped", skipped,
					"max_messages_per_fetch", a.limits.MaxMessagesPerFetch)
			}

			if cache {
				if err := cacheRecords(cmd, a, acct.Name, records); err != nil {
					// Cache trouble must not cost the caller its fetched records.
					logger.Warn("caching records failed", "error", err)
				}
			}

			return writeJSON(map[string]any{
				"mailbox":  mailboxName,
				"messages": records,
				"skipped":  skipped,
			})
		},
	}
	cmd.Flags().StringVar(&mailboxName, "mailbox", "INBOX", "mailbox to fetch from")
	cmd.Flags().BoolVar(&cache, "cache", false, "save fetched records to the local cache")
	return cmd
}

func cacheRecords(cmd *cobra.Command, a *app, account string, records []model.NormalizedEmail) error {
	s, err := store.NewSQLiteStore(a.cfg.CachePath)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.UpsertMessages(cmd.Context(), account, records)
}

func newCachedCmd() *cobra.Command {
	var (
		mailboxName string
		query       string
		limit       int
	)
	cmd := &cobra.Command{
		Use:   "cached",
		Short: "List normalized records from the local cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			acct, err := a.cfg.Account(accountName)
			if err != nil {
				return err
			}
			s, err := store.NewSQLiteStore(a.cfg.CachePath)
			if err != nil {
				return err
			}
			defer s.Close()

			msgs, err := s.ListMessages(cmd.Context(), store.MessageFilter{
				Account: acct.Name,
				Mailbox: mailboxName,
				Query:   query,
				Limit:   limit,
			})
			if err != nil {
				return err
			}
			if msgs == nil {
				msgs = []model.NormalizedEmail{}
			}
			return writeJSON(map[string]any{"messages": msgs, "count": len(msgs)})
		},
	}
	cmd.Flags().StringVar(&mailboxName, "mailbox", "", "restrict to one mailbox")
	cmd.Flags().StringVar(&query, "query", "", "subject substring filter")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum records to return")
	return cmd
}

func newMarkCmd(use, short string, read bool) *cobra.Command {
	var mailboxName string
	action := "mark-unread"
	if read {
		action = "mark-read"
	}
	cmd := &cobra.Command{
		Use:   use + " <uid>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			uids, err := parseUIDs(args)
			if err != nil {
				return err
			}
			if sandboxed() {
				return reportSandbox(action, mailboxName, "", uids)
			}
			client, _, err := a.imapClient()
			if err != nil {
				return err
			}
			if read {
				err = client.MarkRead(cmd.Context(), mailboxName, uids)
			} else {
				err = client.MarkUnread(cmd.Context(), mailboxName, uids)
			}
			if err != nil {
				return err
			}
			return writeJSON(map[string]any{"status": "success", "action": action, "uids": uids})
		},
	}
	cmd.Flags().StringVar(&mailboxName, "mailbox", "INBOX", "mailbox containing the messages")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	var mailboxName string
	cmd := &cobra.Command{
		Use:   "delete <uid>...",
		Short: "Delete messages (sandbox-aware)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			uids, err := parseUIDs(args)
			if err != nil {
				return err
			}
			if sandboxed() {
				return reportSandbox("delete", mailboxName, "", uids)
			}
			client, _, err := a.imapClient()
			if err != nil {
				return err
			}
			if err := client.Delete(cmd.Context(), mailboxName, uids); err != nil {
				return err
			}
			return writeJSON(map[string]any{"status": "success", "action": "delete", "uids": uids})
		},
	}
	cmd.Flags().StringVar(&mailboxName, "mailbox", "INBOX", "mailbox containing the messages")
	return cmd
}

func newMoveCmd() *cobra.Command {
	var (
		mailboxName string
		target      string
	)
	cmd := &cobra.Command{
		Use:   "move <uid>...",
		Short: "Move messages to another mailbox (sandbox-aware)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if target == "" {
				return fmt.Errorf("--target is required")
			}
			uids, err := parseUIDs(args)
			if err != nil {
				return err
			}
			if sandboxed() {
				return reportSandbox("move", mailboxName, target, uids)
			}
			client, _, err := a.imapClient()
			if err != nil {
				return err
			}
			if err := client.Move(cmd.Context(), mailboxName, target, uids); err != nil {
				return err
			}
			return writeJSON(map[string]any{
				"status": "success", "action": "move",
				"uids": uids, "target": target,
			})
		},
	}
	cmd.Flags().StringVar(&mailboxName, "mailbox", "INBOX", "source mailbox")
	cmd.Flags().StringVar(&target, "target", "", "destination mailbox")
	return cmd
}
