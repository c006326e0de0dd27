// Package credential stores account passwords in the system keyring.
// Passwords never live in the YAML config file.
package credential

import (
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "mailbridge"

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/mailbridge/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("mailbridge-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// passwordKey namespaces a profile's password entry.
func passwordKey(profile string) string {
	return "password:" + profile
}

// GetPassword retrieves the stored password for a profile.
func GetPassword(profile string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(passwordKey(profile))
	if err != nil {
		return "", fmt.Errorf("getting password for profile %q: %w", profile, err)
	}
	return string(item.Data), nil
}

// SetPassword stores the password for a profile.
func SetPassword(profile, password string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  passwordKey(profile),
		Data: []byte(password),
	})
	if err != nil {
		return fmt.Errorf("setting password for profile %q: %w", profile, err)
	}
	return nil
}

// DeletePassword removes the stored password for a profile.
func DeletePassword(profile string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	if err := ring.Remove(passwordKey(profile)); err != nil {
		return fmt.Errorf("deleting password for profile %q: %w", profile, err)
	}
	return nil
}
