package security

import (
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	// KeychainService is the service name used for storing passwords in the keychain
	KeychainService = "driftwood"
)

// Keychain stores NickServ passwords in the OS keychain, keyed by network
// name. The config file value always wins; the keychain is the fallback so
// passwords can be kept out of plain-text TOML.
type Keychain struct{}

// NewKeychain creates a new keychain instance
func NewKeychain() *Keychain {
	return &Keychain{}
}

// StoreNickPassword stores the NickServ password for a network.
func (k *Keychain) StoreNickPassword(network, password string) error {
	if password == "" {
		// Empty password, delete instead
		return k.DeleteNickPassword(network)
	}
	if err := keyring.Set(KeychainService, network, password); err != nil {
		return fmt.Errorf("failed to store password in keychain: %w", err)
	}
	return nil
}

// NickPassword retrieves the NickServ password for a network. A missing
// entry is not an error; it returns the empty string.
func (k *Keychain) NickPassword(network string) (string, error) {
	password, err := keyring.Get(KeychainService, network)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", nil
		}
		return "", fmt.Errorf("failed to get password from keychain: %w", err)
	}
	return password, nil
}

// DeleteNickPassword removes the NickServ password for a network.
func (k *Keychain) DeleteNickPassword(network string) error {
	err := keyring.Delete(KeychainService, network)
	if err != nil {
		if err == keyring.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete password from keychain: %w", err)
	}
	return nil
}
