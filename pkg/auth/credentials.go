package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Account holds the session cookies for one member account. MemberID and
// PassHash mirror the ipb_member_id and ipb_pass_hash cookies.
type Account struct {
	MemberID     string    `json:"member_id"`
	PassHash     string    `json:"pass_hash"`
	UserAgent    string    `json:"user_agent,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Validate checks the fields a usable account needs. Member IDs are numeric
// on the site, so anything else is a paste mistake.
func (a *Account) Validate() error {
	if a == nil || a.MemberID == "" {
		return errors.New("member ID is required")
	}
	for _, r := range a.MemberID {
		if r < '0' || r > '9' {
			return fmt.Errorf("member ID must be numeric, got %q", a.MemberID)
		}
	}
	if a.PassHash == "" {
		return errors.New("pass hash is required")
	}
	return nil
}

// CredentialStore is one backend in the credential chain.
type CredentialStore interface {
	Store(account *Account) error
	Retrieve(memberID string) (*Account, error)
	List() ([]*Account, error)
	Delete(memberID string) error
	Exists(memberID string) bool
}

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)

// Manager walks a chain of credential stores: system keychain when present,
// then the encrypted vault file, then environment variables.
type Manager struct {
	stores []CredentialStore
}

// NewManager builds the store chain for this machine.
func NewManager() (*Manager, error) {
	chain := make([]CredentialStore, 0, 3)

	if keychain, err := NewKeyringStore(); err == nil {
		chain = append(chain, keychain)
	}

	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	vault, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	chain = append(chain, vault, NewEnvironmentStore())

	return &Manager{stores: chain}, nil
}

// Store saves the account in the first store that accepts it.
func (m *Manager) Store(account *Account) error {
	if err := account.Validate(); err != nil {
		return err
	}
	account.LastModified = time.Now()

	var failures []error
	for _, store := range m.stores {
		err := store.Store(account)
		if err == nil {
			return nil
		}
		failures = append(failures, err)
	}
	return fmt.Errorf("no store accepted the credentials: %w", errors.Join(failures...))
}

// Retrieve returns the account from the first store that has it.
func (m *Manager) Retrieve(memberID string) (*Account, error) {
	for _, store := range m.stores {
		if account, err := store.Retrieve(memberID); err == nil && account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("%w: member %s", ErrCredentialsNotFound, memberID)
}

// RetrieveDefault picks the account to use when none was named: environment
// credentials win, otherwise the most recently stored account.
func (m *Manager) RetrieveDefault() (*Account, error) {
	for _, store := range m.stores {
		if env, ok := store.(*EnvironmentStore); ok {
			if account, err := env.Retrieve(""); err == nil && account != nil {
				return account, nil
			}
		}
	}

	accounts, err := m.List()
	if err != nil || len(accounts) == 0 {
		return nil, ErrCredentialsNotFound
	}
	newest := accounts[0]
	for _, account := range accounts[1:] {
		if account.LastModified.After(newest.LastModified) {
			newest = account
		}
	}
	return newest, nil
}

// List merges accounts across all stores. When the same member appears in
// several stores the most recently modified copy wins.
func (m *Manager) List() ([]*Account, error) {
	merged := make(map[string]*Account)
	for _, store := range m.stores {
		accounts, err := store.List()
		if err != nil {
			continue
		}
		for _, account := range accounts {
			known, ok := merged[account.MemberID]
			if !ok || account.LastModified.After(known.LastModified) {
				merged[account.MemberID] = account
			}
		}
	}

	result := make([]*Account, 0, len(merged))
	for _, account := range merged {
		result = append(result, account)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].MemberID < result[j].MemberID })
	return result, nil
}

// Delete removes the account from every store that holds it.
func (m *Manager) Delete(memberID string) error {
	deleted := false
	var lastErr error
	for _, store := range m.stores {
		switch err := store.Delete(memberID); err {
		case nil:
			deleted = true
		default:
			lastErr = err
		}
	}
	if deleted {
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	return fmt.Errorf("%w: member %s", ErrCredentialsNotFound, memberID)
}

// DeleteAll removes every stored account.
func (m *Manager) DeleteAll() error {
	accounts, err := m.List()
	if err != nil {
		return err
	}
	for _, account := range accounts {
		_ = m.Delete(account.MemberID)
	}
	return nil
}

// configDir returns the per-user config directory, created on first use.
func configDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	dir := filepath.Join(base, "ehgrab")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// SanitizeAccount returns a copy safe to print: the pass hash is masked.
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}
	masked := *account
	masked.PassHash = maskString(account.PassHash)
	return &masked
}

func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
