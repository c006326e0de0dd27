package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/mailbridge/internal/credential"
	"github.com/nhle/mailbridge/internal/profile"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage account profiles",
	}
	cmd.AddCommand(
		newProfileAddCmd(),
		newProfileListCmd(),
		newProfileShowCmd(),
		newProfileRemoveCmd(),
		newProfileSetDefaultCmd(),
	)
	return cmd
}

func newProfileAddCmd() *cobra.Command {
	var (
		username      string
		imapHost      string
		imapPort      string
		imapStartTLS  bool
		smtpHost      string
		smtpPort      string
		smtpStartTLS  bool
		password      string
		makeDefault   bool
		skipCredStore bool
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add or update an account profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if username == "" {
				return fmt.Errorf("--username is required")
			}
			if imapHost == "" || smtpHost == "" {
				return fmt.Errorf("--imap-host and --smtp-host are required")
			}

			cfg, err := profile.Load(configPath)
			if err != nil {
				return err
			}

			cfg.Upsert(profile.Account{
				Name:     name,
				Username: username,
				IMAPHost: imapHost,
				IMAPPort: imapPort,
				IMAPTLS:  !imapStartTLS,
				SMTPHost: smtpHost,
				SMTPPort: smtpPort,
				SMTPTLS:  !smtpStartTLS,
			})
			if cfg.Default == "" || makeDefault {
				cfg.Default = name
			}
			if err := profile.Save(configPath, cfg); err != nil {
				return err
			}

			if !skipCredStore {
				pw := password
				if pw == "" {
					pw, err = promptPassword(name)
					if err != nil {
						return err
					}
				}
				if pw != "" {
					if err := credential.SetPassword(name, pw); err != nil {
						return err
					}
				}
			}

			return writeJSON(map[string]any{
				"status":  "success",
				"profile": name,
				"default": cfg.Default == name,
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "account login / email address")
	cmd.Flags().StringVar(&imapHost, "imap-host", "", "IMAP server host")
	cmd.Flags().StringVar(&imapPort, "imap-port", "993", "IMAP server port")
	cmd.Flags().BoolVar(&imapStartTLS, "imap-starttls", false, "use STARTTLS for IMAP instead of implicit TLS")
	cmd.Flags().StringVar(&smtpHost, "smtp-host", "", "SMTP server host")
	cmd.Flags().StringVar(&smtpPort, "smtp-port", "465", "SMTP server port")
	cmd.Flags().BoolVar(&smtpStartTLS, "smtp-starttls", false, "use STARTTLS for SMTP instead of implicit TLS")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted if omitted)")
	cmd.Flags().BoolVar(&makeDefault, "default", false, "make this the default profile")
	cmd.Flags().BoolVar(&skipCredStore, "no-store-password", false, "skip storing the password in the keyring")
	return cmd
}

// promptPassword reads a password from stdin. Interactive terminals
// get a prompt on stderr so stdout stays clean for JSON.
func promptPassword(name string) (string, error) {
	fmt.Fprintf(os.Stderr, "Password for %s (empty to skip): ", name)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newProfileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := profile.Load(configPath)
			if err != nil {
				return err
			}
			type entry struct {
				Name     string `json:"name"`
				Username string `json:"username"`
				Default  bool   `json:"default"`
			}
			entries := make([]entry, 0, len(cfg.Accounts))
			for _, acct := range cfg.Accounts {
				entries = append(entries, entry{
					Name:     acct.Name,
					Username: acct.Username,
					Default:  acct.Name == cfg.Default,
				})
			}
			return writeJSON(map[string]any{"profiles": entries})
		},
	}
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a profile's connection settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := profile.Load(configPath)
			if err != nil {
				return err
			}
			acct, err := cfg.Account(args[0])
			if err != nil {
				return err
			}
			return writeJSON(acct)
		},
	}
}

func newProfileRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a profile and its stored password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			cfg, err := profile.Load(configPath)
			if err != nil {
				return err
			}
			if !cfg.Remove(name) {
				return fmt.Errorf("unknown profile %q", name)
			}
			if err := profile.Save(configPath, cfg); err != nil {
				return err
			}
			if err := credential.DeletePassword(name); err != nil {
				// The keyring entry may never have existed.
				logger.Warn("removing stored password failed", "profile", name, "error", err)
			}
			return writeJSON(map[string]any{"status": "success", "removed": name})
		},
	}
}

func newProfileSetDefaultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-default <name>",
		Short: "Set the default profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := profile.Load(configPath)
			if err != nil {
				return err
			}
			if _, err := cfg.Account(args[0]); err != nil {
				return err
			}
			cfg.Default = args[0]
			if err := profile.Save(configPath, cfg); err != nil {
				return err
			}
			return writeJSON(map[string]any{"status": "success", "default": args[0]})
		},
	}
}
