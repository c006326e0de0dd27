// mailbridge — agent-facing IMAP/SMTP bridge.
// Fetches mail as canonical JSON records, sends composed MIME
// messages, and manages account profiles. JSON goes to stdout; logs
// go to stderr so output stays machine-readable.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/mailbridge/internal/credential"
	"github.com/nhle/mailbridge/internal/mailbox"
	"github.com/nhle/mailbridge/internal/model"
	"github.com/nhle/mailbridge/internal/profile"
	"github.com/nhle/mailbridge/internal/transport"
)

// version is set by ldflags at build time.
var version = "dev"

var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

// global flags
var (
	configPath  string
	accountName string
	sandboxFlag bool
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mailbridge",
		Short:         "IMAP/SMTP bridge that normalizes email into agent-consumable JSON",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", profile.DefaultPath(), "config file path")
	root.PersistentFlags().StringVar(&accountName, "account", "", "account profile name (default profile if empty)")
	root.PersistentFlags().BoolVar(&sandboxFlag, "sandbox", false, "simulate destructive operations without touching the server")

	root.AddCommand(
		newMailboxesCmd(),
		newStatusCmd(),
		newSearchCmd(),
		newFetchCmd(),
		newCachedCmd(),
		newMarkCmd("mark-read", "Mark messages as read", true),
		newMarkCmd("mark-unread", "Mark messages as unread", false),
		newDeleteCmd(),
		newMoveCmd(),
		newSendCmd(),
		newProfileCmd(),
	)
	return root
}

// sandboxed reports whether destructive operations are gated, either
// by the --sandbox flag or the MAILBRIDGE_SANDBOX environment
// variable.
func sandboxed() bool {
	if sandboxFlag {
		return true
	}
	switch os.Getenv("MAILBRIDGE_SANDBOX") {
	case "1", "true", "yes":
		return true
	}
	return false
}

// app bundles the loaded configuration for command handlers.
type app struct {
	cfg    *profile.Config
	limits model.GuardrailConfig
}

func loadApp() (*app, error) {
	cfg, err := profile.Load(configPath)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, limits: cfg.GuardrailConfig()}, nil
}

// imapClient resolves the account profile and its password and
// returns a configured IMAP client.
func (a *app) imapClient() (*mailbox.Client, *profile.Account, error) {
	acct, err := a.cfg.Account(accountName)
	if err != nil {
		return nil, nil, err
	}
	password, err := resolvePassword(acct.Name)
	if err != nil {
		return nil, nil, err
	}
	client := mailbox.New(acct.IMAPHost, acct.IMAPPort, acct.Username, password, acct.IMAPTLS)
	return client, acct, nil
}

// smtpConfig resolves the account profile into SMTP transport
// settings.
func (a *app) smtpConfig() (transport.Config, *profile.Account, error) {
	acct, err := a.cfg.Account(accountName)
	if err != nil {
		return transport.Config{}, nil, err
	}
	password, err := resolvePassword(acct.Name)
	if err != nil {
		return transport.Config{}, nil, err
	}
	return transport.Config{
		Host:     acct.SMTPHost,
		Port:     acct.SMTPPort,
		Username: acct.Username,
		Password: password,
		TLS:      acct.SMTPTLS,
	}, acct, nil
}

// resolvePassword prefers the MAILBRIDGE_PASSWORD environment
// variable (useful in CI) over the system keyring.
func resolvePassword(profileName string) (string, error) {
	if pw := os.Getenv("MAILBRIDGE_PASSWORD"); pw != "" {
		return pw, nil
	}
	pw, err := credential.GetPassword(profileName)
	if err != nil {
		return "", fmt.Errorf("resolving password (set MAILBRIDGE_PASSWORD or store one with 'profile add'): %w", err)
	}
	return pw, nil
}

// writeJSON prints a result document to stdout.
func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// sandboxResult is the document reported instead of performing a
// destructive operation in sandbox mode.
type sandboxResult struct {
	Status      string   `json:"status"`
	Action      string   `json:"action"`
	Mailbox     string   `json:"mailbox"`
	UIDs        []uint32 `json:"uids"`
	Target      string   `json:"target,omitempty"`
	SandboxMode bool     `json:"sandbox_mode"`
}

func reportSandbox(action, mailboxName, target string, uids []uint32) error {
	return writeJSON(sandboxResult{
		Status:      "sandbox",
		Action:      action,
		Mailbox:     mailboxName,
		UIDs:        uids,
		Target:      target,
		SandboxMode: true,
	})
}
