package profile

import (
	"path/filepath"
	"testing"

	"github.com/nhle/mailbridge/internal/model"
)

func testAccount(name string) Account {
	return Account{
		Name:     name,
		Username: name + "@example.com",
		IMAPHost: "imap.example.com",
		IMAPPort: "993",
		IMAPTLS:  true,
		SMTPHost: "smtp.example.com",
		SMTPPort: "465",
		SMTPTLS:  true,
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading missing config: %v", err)
	}
	if len(cfg.Accounts) != 0 || cfg.Default != "" {
		t.Fatalf("got %+v, want empty config", cfg)
	}
	if cfg.GuardrailConfig() != model.DefaultGuardrails() {
		t.Fatalf("guardrails = %+v, want defaults", cfg.GuardrailConfig())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := &Config{Default: "work"}
	cfg.Upsert(testAccount("work"))
	cfg.Upsert(testAccount("personal"))
	cfg.Guardrails.MaxBodyBytes = 1024

	if err := Save(path, cfg); err != nil {
		t.Fatalf("saving: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if loaded.Default != "work" {
		t.Fatalf("default = %q", loaded.Default)
	}
	if len(loaded.Accounts) != 2 {
		t.Fatalf("got %d accounts", len(loaded.Accounts))
	}

	acct, err := loaded.Account("personal")
	if err != nil {
		t.Fatalf("resolving personal: %v", err)
	}
	if acct.Username != "personal@example.com" || !acct.IMAPTLS {
		t.Fatalf("account = %+v", acct)
	}

	g := loaded.GuardrailConfig()
	if g.MaxBodyBytes != 1024 {
		t.Fatalf("max body bytes = %d", g.MaxBodyBytes)
	}
	if g.MaxAttachmentBytes != model.DefaultMaxAttachmentBytes {
		t.Fatalf("max attachment bytes = %d", g.MaxAttachmentBytes)
	}
}

func TestAccountResolution(t *testing.T) {
	cfg := &Config{Default: "work"}
	cfg.Upsert(testAccount("work"))

	acct, err := cfg.Account("")
	if err != nil {
		t.Fatalf("resolving default: %v", err)
	}
	if acct.Name != "work" {
		t.Fatalf("default resolved to %q", acct.Name)
	}

	if _, err := cfg.Account("missing"); err == nil {
		t.Fatal("expected error for unknown profile")
	}

	empty := &Config{}
	if _, err := empty.Account(""); err == nil {
		t.Fatal("expected error with no default set")
	}
}

func TestUpsertAndRemove(t *testing.T) {
	cfg := &Config{}
	cfg.Upsert(testAccount("work"))

	updated := testAccount("work")
	updated.IMAPHost = "mail.example.org"
	cfg.Upsert(updated)
	if len(cfg.Accounts) != 1 {
		t.Fatalf("got %d accounts after upsert", len(cfg.Accounts))
	}
	if cfg.Accounts[0].IMAPHost != "mail.example.org" {
		t.Fatalf("host = %q", cfg.Accounts[0].IMAPHost)
	}

	cfg.Default = "work"
	if !cfg.Remove("work") {
		t.Fatal("remove reported missing profile")
	}
	if cfg.Default != "" {
		t.Fatalf("default = %q after removing its profile", cfg.Default)
	}
	if cfg.Remove("work") {
		t.Fatal("second remove reported success")
	}
}

func TestGuardrailEnvOverride(t *testing.T) {
	t.Setenv("MAX_BODY_BYTES", "2048")
	t.Setenv("MAX_MESSAGES_PER_FETCH", "5")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("loading: %v", err)
	}

	g := cfg.GuardrailConfig()
	if g.MaxBodyBytes != 2048 {
		t.Fatalf("max body bytes = %d, want env override", g.MaxBodyBytes)
	}
	if g.MaxMessagesPerFetch != 5 {
		t.Fatalf("max messages per fetch = %d, want env override", g.MaxMessagesPerFetch)
	}
	if g.MaxMIMEDepth != model.DefaultMaxMIMEDepth {
		t.Fatalf("max mime depth = %d, want default", g.MaxMIMEDepth)
	}
}
