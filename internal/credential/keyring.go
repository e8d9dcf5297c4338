package credential

import (
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "imapfs"

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
		FileDir:                  "~/.config/imapfs/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("imapfs-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Password retrieves the stored password for an account from the
// system keyring.
func Password(account string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(account)
	if err != nil {
		return "", fmt.Errorf("getting password for %q: %w", account, err)
	}

	return string(item.Data), nil
}

// SetPassword stores the password for an account in the system keyring.
func SetPassword(account, password string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  account,
		Data: []byte(password),
	})
	if err != nil {
		return fmt.Errorf("setting password for %q: %w", account, err)
	}

	return nil
}

// DeletePassword removes the stored password for an account from the
// system keyring.
func DeletePassword(account string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(account)
	if err != nil {
		return fmt.Errorf("deleting password for %q: %w", account, err)
	}

	return nil
}
