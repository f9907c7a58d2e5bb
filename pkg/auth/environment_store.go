package auth

import (
	"os"
	"time"
)

// EnvironmentStore exposes EHGRAB_MEMBER_ID / EHGRAB_PASS_HASH as a
// read-only account, for scripted runs and backward compatibility.
type EnvironmentStore struct{}

func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func envAccount() *Account {
	memberID := os.Getenv("EHGRAB_MEMBER_ID")
	passHash := os.Getenv("EHGRAB_PASS_HASH")
	if memberID == "" || passHash == "" {
		return nil
	}
	return &Account{
		MemberID:     memberID,
		PassHash:     passHash,
		UserAgent:    os.Getenv("EHGRAB_USER_AGENT"),
		LastModified: time.Now(),
	}
}

// Store is not supported: the environment is read-only.
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment account. An empty memberID matches
// whatever the environment holds; a named member must match exactly.
func (e *EnvironmentStore) Retrieve(memberID string) (*Account, error) {
	account := envAccount()
	if account == nil {
		return nil, ErrCredentialsNotFound
	}
	if memberID != "" && memberID != account.MemberID {
		return nil, ErrCredentialsNotFound
	}
	return account, nil
}

// List returns the environment account when one is configured.
func (e *EnvironmentStore) List() ([]*Account, error) {
	if account := envAccount(); account != nil {
		return []*Account{account}, nil
	}
	return []*Account{}, nil
}

// Delete is not supported: the environment is read-only.
func (e *EnvironmentStore) Delete(memberID string) error {
	return ErrStoreUnavailable
}

// Exists reports whether the environment account matches the member.
func (e *EnvironmentStore) Exists(memberID string) bool {
	_, err := e.Retrieve(memberID)
	return err == nil
}
