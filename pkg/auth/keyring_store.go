package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/zalando/go-keyring"
)

const keyringService = "ehgrab"

// KeyringStore keeps accounts in the system keychain, one entry per member.
type KeyringStore struct{}

// NewKeyringStore probes the keychain with a throwaway entry; some systems
// (headless linux in particular) have no secret service running.
func NewKeyringStore() (*KeyringStore, error) {
	const probeKey = "availability_check"
	if err := keyring.Set(keyringService, probeKey, "ok"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, probeKey)
	return &KeyringStore{}, nil
}

func memberKey(memberID string) string {
	return "member_" + memberID
}

// Store saves the account as JSON under its member key.
func (k *KeyringStore) Store(account *Account) error {
	if account == nil || account.MemberID == "" {
		return ErrInvalidCredentials
	}
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}
	if err := keyring.Set(keyringService, memberKey(account.MemberID), string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// Retrieve loads the account for the member from the keychain.
func (k *KeyringStore) Retrieve(memberID string) (*Account, error) {
	if memberID == "" {
		return nil, ErrInvalidCredentials
	}
	data, err := keyring.Get(keyringService, memberKey(memberID))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var account Account
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	return &account, nil
}

// List returns no accounts: the keychain APIs offer no portable enumeration,
// so listing relies on the vault file copy of each account.
func (k *KeyringStore) List() ([]*Account, error) {
	return []*Account{}, nil
}

// Delete removes the member's entry from the keychain.
func (k *KeyringStore) Delete(memberID string) error {
	if memberID == "" {
		return ErrInvalidCredentials
	}
	if err := keyring.Delete(keyringService, memberKey(memberID)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrCredentialsNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

// Exists reports whether the keychain holds the member.
func (k *KeyringStore) Exists(memberID string) bool {
	if memberID == "" {
		return false
	}
	_, err := keyring.Get(keyringService, memberKey(memberID))
	return err == nil
}

// IsKeyringAvailable reports whether this platform is expected to have a
// working keychain. On linux that means a desktop session with a secret
// service on the session bus.
func IsKeyringAvailable() bool {
	switch runtime.GOOS {
	case "darwin", "windows":
		return true
	case "linux":
		return os.Getenv("DBUS_SESSION_BUS_ADDRESS") != "" || os.Getenv("DISPLAY") != ""
	default:
		return false
	}
}
