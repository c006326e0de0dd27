package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/mailbridge/internal/compose"
	"github.com/nhle/mailbridge/internal/mailbox"
	"github.com/nhle/mailbridge/internal/model"
	"github.com/nhle/mailbridge/internal/normalize"
	"github.com/nhle/mailbridge/internal/transport"
)

func newSendCmd() *cobra.Command {
	var (
		to         []string
		cc         []string
		bcc        []string
		subject    string
		body       string
		htmlBody   string
		replyTo    string
		inReplyTo  string
		attach     []string
		noSentCopy bool
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Compose and send a message, saving a copy to the Sent folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if len(to) == 0 {
				return fmt.Errorf("--to is required")
			}

			smtpCfg, acct, err := a.smtpConfig()
			if err != nil {
				return err
			}

			params := compose.Params{
				From:            model.Address{Email: acct.Username},
				To:              toAddresses(to),
				Cc:              toAddresses(cc),
				Bcc:             toAddresses(bcc),
				ReplyTo:         replyTo,
				InReplyTo:       inReplyTo,
				Subject:         subject,
				Text:            body,
				HTML:            htmlBody,
				AttachmentPaths: attach,
			}

			raw, err := compose.Build(params, a.limits)
			if err != nil {
				var tooLarge *compose.AttachmentTooLargeError
				if errors.As(err, &tooLarge) {
					// Structured failure the agent can act on.
					_ = writeJSON(map[string]any{
						"status":   "error",
						"error":    "attachment_too_large",
						"filename": tooLarge.Filename,
						"size":     tooLarge.Size,
						"limit":    tooLarge.Limit,
					})
				}
				return err
			}

			if err := transport.Send(smtpCfg, acct.Username, params.Recipients(), raw); err != nil {
				return err
			}

			sentFolder := ""
			if !noSentCopy {
				// Best-effort: a failed Sent save never fails the send.
				client := mailbox.New(acct.IMAPHost, acct.IMAPPort, acct.Username, smtpCfg.Password, acct.IMAPTLS)
				folder, err := client.SaveToSent(cmd.Context(), raw)
				if err != nil {
					logger.Warn("saving to sent folder failed", "error", err)
				} else {
					sentFolder = folder
				}
			}

			return writeJSON(map[string]any{
				"status":      "success",
				"from":        acct.Username,
				"to":          to,
				"cc":          cc,
				"bcc":         bcc,
				"subject":     subject,
				"sent_folder": sentFolder,
			})
		},
	}

	cmd.Flags().StringSliceVar(&to, "to", nil, "recipient address (repeatable)")
	cmd.Flags().StringSliceVar(&cc, "cc", nil, "cc address (repeatable)")
	cmd.Flags().StringSliceVar(&bcc, "bcc", nil, "bcc address (repeatable)")
	cmd.Flags().StringVar(&subject, "subject", "", "message subject")
	cmd.Flags().StringVar(&body, "body", "", "plain text body")
	cmd.Flags().StringVar(&htmlBody, "html-body", "", "HTML body (sent as multipart/alternative)")
	cmd.Flags().StringVar(&replyTo, "reply-to", "", "Reply-To address")
	cmd.Flags().StringVar(&inReplyTo, "in-reply-to", "", "Message-Id being replied to")
	cmd.Flags().StringSliceVar(&attach, "attach", nil, "attachment file path (repeatable)")
	cmd.Flags().BoolVar(&noSentCopy, "no-sent-copy", false, "skip saving a copy to the Sent folder")
	return cmd
}

// toAddresses parses command-line address arguments, tolerating
// "Name <addr>" forms by reusing the core address parser.
func toAddresses(values []string) []model.Address {
	var out []model.Address
	for _, v := range values {
		out = append(out, normalize.ParseAddressList(v)...)
	}
	return out
}
