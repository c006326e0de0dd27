// Package profile manages named account profiles and the guardrail
// configuration, backed by a Viper YAML file. Passwords are resolved
// through the credential package, never from the file.
package profile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/nhle/mailbridge/internal/model"
)

// Account holds the connection settings for one email account.
type Account struct {
	Name     string `mapstructure:"name" yaml:"name"`
	Username string `mapstructure:"username" yaml:"username"`

	IMAPHost string `mapstructure:"imap_host" yaml:"imap_host"`
	IMAPPort string `mapstructure:"imap_port" yaml:"imap_port"`
	// IMAPTLS selects implicit TLS; false means STARTTLS.
	IMAPTLS bool `mapstructure:"imap_tls" yaml:"imap_tls"`

	SMTPHost string `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort string `mapstructure:"smtp_port" yaml:"smtp_port"`
	SMTPTLS  bool   `mapstructure:"smtp_tls" yaml:"smtp_tls"`
}

// GuardrailSettings mirrors model.GuardrailConfig in the config file.
type GuardrailSettings struct {
	MaxBodyBytes        int `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	MaxAttachmentBytes  int `mapstructure:"max_attachment_bytes" yaml:"max_attachment_bytes"`
	MaxMessagesPerFetch int `mapstructure:"max_messages_per_fetch" yaml:"max_messages_per_fetch"`
	MaxMIMEDepth        int `mapstructure:"max_mime_depth" yaml:"max_mime_depth"`
}

// Config is the top-level application configuration.
type Config struct {
	Default    string            `mapstructure:"default" yaml:"default"`
	Accounts   []Account         `mapstructure:"accounts" yaml:"accounts"`
	Guardrails GuardrailSettings `mapstructure:"guardrails" yaml:"guardrails"`
	CachePath  string            `mapstructure:"cache_path" yaml:"cache_path"`
}

// DefaultPath returns the default config file location,
// ~/.config/mailbridge/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "mailbridge", "config.yaml")
}

// DefaultCachePath returns the default location of the local message
// cache database.
func DefaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "cache.db")
	}
	return filepath.Join(home, ".local", "share", "mailbridge", "cache.db")
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("default", "")
	v.SetDefault("accounts", []Account{})
	v.SetDefault("cache_path", DefaultCachePath())
	v.SetDefault("guardrails.max_body_bytes", model.DefaultMaxBodyBytes)
	v.SetDefault("guardrails.max_attachment_bytes", model.DefaultMaxAttachmentBytes)
	v.SetDefault("guardrails.max_messages_per_fetch", model.DefaultMaxMessagesPerFetch)
	v.SetDefault("guardrails.max_mime_depth", model.DefaultMaxMIMEDepth)

	// Guardrail ceilings can be overridden from the environment.
	_ = v.BindEnv("guardrails.max_body_bytes", "MAX_BODY_BYTES")
	_ = v.BindEnv("guardrails.max_attachment_bytes", "MAX_ATTACHMENT_BYTES")
	_ = v.BindEnv("guardrails.max_messages_per_fetch", "MAX_MESSAGES_PER_FETCH")
	_ = v.BindEnv("guardrails.max_mime_depth", "MAX_MIME_DEPTH")

	return v
}

// Load reads the configuration from path. A missing file resolves to
// defaults, never an error.
func Load(path string) (*Config, error) {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file at path, creating
// parent directories if needed.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := newViper(path)
	v.Set("default", cfg.Default)
	v.Set("accounts", cfg.Accounts)
	v.Set("cache_path", cfg.CachePath)
	v.Set("guardrails", cfg.Guardrails)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Account resolves a profile by name; an empty name resolves the
// default profile.
func (c *Config) Account(name string) (*Account, error) {
	if name == "" {
		name = c.Default
	}
	if name == "" {
		return nil, fmt.Errorf("no account given and no default profile set")
	}
	for i := range c.Accounts {
		if c.Accounts[i].Name == name {
			return &c.Accounts[i], nil
		}
	}
	return nil, fmt.Errorf("unknown profile %q", name)
}

// Upsert adds or replaces an account profile by name.
func (c *Config) Upsert(account Account) {
	for i := range c.Accounts {
		if c.Accounts[i].Name == account.Name {
			c.Accounts[i] = account
			return
		}
	}
	c.Accounts = append(c.Accounts, account)
}

// Remove deletes an account profile by name, clearing the default if
// it pointed at the removed profile. It reports whether the profile
// existed.
func (c *Config) Remove(name string) bool {
	for i := range c.Accounts {
		if c.Accounts[i].Name == name {
			c.Accounts = append(c.Accounts[:i], c.Accounts[i+1:]...)
			if c.Default == name {
				c.Default = ""
			}
			return true
		}
	}
	return false
}

// GuardrailConfig converts the file settings into the immutable
// per-invocation value the core consumes, falling back to defaults
// for unset or non-positive entries.
func (c *Config) GuardrailConfig() model.GuardrailConfig {
	g := model.DefaultGuardrails()
	if c.Guardrails.MaxBodyBytes > 0 {
		g.MaxBodyBytes = c.Guardrails.MaxBodyBytes
	}
	if c.Guardrails.MaxAttachmentBytes > 0 {
		g.MaxAttachmentBytes = c.Guardrails.MaxAttachmentBytes
	}
	if c.Guardrails.MaxMessagesPerFetch > 0 {
		g.MaxMessagesPerFetch = c.Guardrails.MaxMessagesPerFetch
	}
	if c.Guardrails.MaxMIMEDepth > 0 {
		g.MaxMIMEDepth = c.Guardrails.MaxMIMEDepth
	}
	return g
}
