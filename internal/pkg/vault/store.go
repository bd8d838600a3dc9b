package vault

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var ErrNoCredential = errors.New("no credential stored for provider")

// Credential is one stored provider key. EncryptedKey holds vault
// ciphertext; the plaintext key never touches disk.
type Credential struct {
	Provider     string    `json:"provider"`
	EncryptedKey string    `json:"encrypted_key"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store keeps encrypted provider credentials in a durable file and the
// session key in session-lifetime storage. The two live in different
// places on purpose: credentials survive logout, the session key does not.
type Store struct {
	configDir  string
	runtimeDir string
}

func NewStore(configDir, runtimeDir string) *Store {
	return &Store{configDir: configDir, runtimeDir: runtimeDir}
}

// ConfigDir exposes the durable credentials directory.
func (s *Store) ConfigDir() string {
	return s.configDir
}

// DefaultStore places credentials under the user config dir and the
// session key under XDG_RUNTIME_DIR (a tmpfs on most systems), falling
// back to the OS temp dir when the runtime dir is unset.
func DefaultStore() (*Store, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config dir: %w", err)
	}

	runDir := os.Getenv("XDG_RUNTIME_DIR")
	if runDir == "" {
		runDir = os.TempDir()
	}

	return NewStore(filepath.Join(cfgDir, "brandwatch"), filepath.Join(runDir, "brandwatch")), nil
}

func (s *Store) credentialsPath() string {
	return filepath.Join(s.configDir, "credentials.json")
}

func (s *Store) sessionKeyPath() string {
	return filepath.Join(s.runtimeDir, "session.key")
}

// EnsureSessionKey returns the session's symmetric key, generating and
// persisting one on first use. The key is never logged and never leaves
// the client machine.
func (s *Store) EnsureSessionKey() ([]byte, error) {
	raw, err := os.ReadFile(s.sessionKeyPath())
	if err == nil {
		return ParseHexKey(strings.TrimSpace(string(raw)))
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read session key: %w", err)
	}

	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.runtimeDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create runtime dir: %w", err)
	}
	if err := os.WriteFile(s.sessionKeyPath(), []byte(hex.EncodeToString(key)), 0o600); err != nil {
		return nil, fmt.Errorf("failed to persist session key: %w", err)
	}

	return key, nil
}

// Save stores ciphertext for the provider, replacing any previous entry.
func (s *Store) Save(provider, ciphertext string) error {
	creds, err := s.readAll()
	if err != nil {
		return err
	}

	creds[provider] = Credential{
		Provider:     provider,
		EncryptedKey: ciphertext,
		CreatedAt:    time.Now().UTC(),
	}

	return s.writeAll(creds)
}

// Load returns the stored ciphertext for the provider, or ok=false when
// none is stored.
func (s *Store) Load(provider string) (string, bool, error) {
	creds, err := s.readAll()
	if err != nil {
		return "", false, err
	}

	cred, ok := creds[provider]
	if !ok {
		return "", false, nil
	}

	return cred.EncryptedKey, true, nil
}

// Remove deletes the provider's entry. Removing an absent entry is a no-op.
func (s *Store) Remove(provider string) error {
	creds, err := s.readAll()
	if err != nil {
		return err
	}

	delete(creds, provider)

	return s.writeAll(creds)
}

// List returns all stored credentials sorted by provider, ciphertext
// included, plaintext never.
func (s *Store) List() ([]Credential, error) {
	creds, err := s.readAll()
	if err != nil {
		return nil, err
	}

	out := make([]Credential, 0, len(creds))
	for _, cred := range creds {
		out = append(out, cred)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })

	return out, nil
}

// ClearAll wipes the session key and every stored credential. Subsequent
// loads return absent until keys are re-entered.
func (s *Store) ClearAll() error {
	if err := os.Remove(s.sessionKeyPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session key: %w", err)
	}
	if err := os.Remove(s.credentialsPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}

	return nil
}

// SetKey encrypts a plaintext provider key under the session key and
// stores the ciphertext.
func (s *Store) SetKey(provider, plaintext string) error {
	key, err := s.EnsureSessionKey()
	if err != nil {
		return err
	}

	ciphertext, err := Encrypt(plaintext, key)
	if err != nil {
		return err
	}

	return s.Save(provider, ciphertext)
}

// GetKey loads and decrypts the provider's key. It returns ErrNoCredential
// when nothing is stored and ErrDecrypt when the session key cannot open
// the ciphertext, never a garbled or empty key.
func (s *Store) GetKey(provider string) (string, error) {
	ciphertext, ok, err := s.Load(provider)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoCredential
	}

	key, err := s.EnsureSessionKey()
	if err != nil {
		return "", err
	}

	return Decrypt(ciphertext, key)
}

func (s *Store) readAll() (map[string]Credential, error) {
	raw, err := os.ReadFile(s.credentialsPath())
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Credential{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	creds := map[string]Credential{}
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	return creds, nil
}

func (s *Store) writeAll(creds map[string]Credential) error {
	if err := os.MkdirAll(s.configDir, 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	raw, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	if err := os.WriteFile(s.credentialsPath(), raw, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}

	return nil
}
