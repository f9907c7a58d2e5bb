package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	vaultVersion = 1
	saltLen      = 32
	keyLen       = 32
	kdfRounds    = 100000
)

// vaultFile is the on-disk envelope: a fresh salt per write and the
// AES-GCM sealed account map, both base64.
type vaultFile struct {
	Version  int       `json:"version"`
	Salt     string    `json:"salt"`
	Payload  string    `json:"payload"`
	Modified time.Time `json:"modified"`
}

// EncryptedFileStore keeps all accounts in a single sealed vault file.
// The key derives from a passphrase via PBKDF2; the passphrase comes from
// EHGRAB_PASSPHRASE or a generated file in the config directory.
type EncryptedFileStore struct {
	path       string
	passphrase string
	mu         sync.Mutex
}

// NewEncryptedFileStore opens (or prepares) the vault at path.
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	passphrase, err := resolvePassphrase()
	if err != nil {
		return nil, fmt.Errorf("failed to get passphrase: %w", err)
	}
	return &EncryptedFileStore{path: path, passphrase: passphrase}, nil
}

// Store adds or replaces the account in the vault.
func (e *EncryptedFileStore) Store(account *Account) error {
	if account == nil || account.MemberID == "" {
		return ErrInvalidCredentials
	}
	return e.update(func(accounts map[string]Account) error {
		accounts[account.MemberID] = *account
		return nil
	})
}

// Retrieve returns the stored account for the member.
func (e *EncryptedFileStore) Retrieve(memberID string) (*Account, error) {
	if memberID == "" {
		return nil, ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	account, ok := accounts[memberID]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &account, nil
}

// List returns every account in the vault.
func (e *EncryptedFileStore) List() ([]*Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.snapshot()
	if err != nil && !errors.Is(err, ErrCredentialsNotFound) {
		return nil, err
	}

	result := make([]*Account, 0, len(accounts))
	for _, account := range accounts {
		account := account
		result = append(result, &account)
	}
	return result, nil
}

// Delete removes the account; an emptied vault file is removed outright.
func (e *EncryptedFileStore) Delete(memberID string) error {
	if memberID == "" {
		return ErrInvalidCredentials
	}
	return e.update(func(accounts map[string]Account) error {
		if _, ok := accounts[memberID]; !ok {
			return ErrCredentialsNotFound
		}
		delete(accounts, memberID)
		return nil
	})
}

// Exists reports whether the vault holds the member.
func (e *EncryptedFileStore) Exists(memberID string) bool {
	account, err := e.Retrieve(memberID)
	return err == nil && account != nil
}

// update runs fn against the decrypted account map and persists the result.
func (e *EncryptedFileStore) update(fn func(map[string]Account) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.snapshot()
	if err != nil {
		if !errors.Is(err, ErrCredentialsNotFound) {
			return err
		}
		accounts = make(map[string]Account)
	}

	if err := fn(accounts); err != nil {
		return err
	}

	if len(accounts) == 0 {
		return os.Remove(e.path)
	}
	return e.persist(accounts)
}

// snapshot reads and opens the vault. A missing file maps to
// ErrCredentialsNotFound so callers can treat it as an empty vault.
func (e *EncryptedFileStore) snapshot() (map[string]Account, error) {
	raw, err := os.ReadFile(e.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCredentialsNotFound
		}
		return nil, err
	}

	var vault vaultFile
	if err := json.Unmarshal(raw, &vault); err != nil {
		return nil, fmt.Errorf("failed to parse vault: %w", err)
	}
	salt, err := base64.StdEncoding.DecodeString(vault.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(vault.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}

	plaintext, err := gcmOpen(sealed, e.deriveKey(salt))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt vault: %w", err)
	}

	var accounts map[string]Account
	if err := json.Unmarshal(plaintext, &accounts); err != nil {
		return nil, fmt.Errorf("failed to parse accounts: %w", err)
	}
	return accounts, nil
}

// persist seals the account map under a fresh salt and writes it atomically.
func (e *EncryptedFileStore) persist(accounts map[string]Account) error {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	plaintext, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}
	sealed, err := gcmSeal(plaintext, e.deriveKey(salt))
	if err != nil {
		return fmt.Errorf("failed to encrypt vault: %w", err)
	}

	raw, err := json.MarshalIndent(vaultFile{
		Version:  vaultVersion,
		Salt:     base64.StdEncoding.EncodeToString(salt),
		Payload:  base64.StdEncoding.EncodeToString(sealed),
		Modified: time.Now(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal vault: %w", err)
	}

	tmp := e.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0600); err != nil {
		return fmt.Errorf("failed to write vault: %w", err)
	}
	return os.Rename(tmp, e.path)
}

func (e *EncryptedFileStore) deriveKey(salt []byte) []byte {
	return pbkdf2.Key([]byte(e.passphrase), salt, kdfRounds, keyLen, sha256.New)
}

// resolvePassphrase returns the vault passphrase, generating and saving one
// on first use.
func resolvePassphrase() (string, error) {
	if pass := os.Getenv("EHGRAB_PASSPHRASE"); pass != "" {
		return pass, nil
	}

	dir, err := configDir()
	if err != nil {
		return "", err
	}
	file := filepath.Join(dir, ".passphrase")

	if content, err := os.ReadFile(file); err == nil && len(content) > 0 {
		return string(content), nil
	}

	buf := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	passphrase := base64.URLEncoding.EncodeToString(buf)

	if err := os.WriteFile(file, []byte(passphrase), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}
	return passphrase, nil
}

func gcmSeal(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func gcmOpen(sealed, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
