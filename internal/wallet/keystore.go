package wallet

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/99designs/keyring"
)

const keychainService = "polkafarm"

// Environment overrides.
const (
	// EnvPrivateKey supplies a signing key directly, bypassing the keychain (CI).
	EnvPrivateKey = "POLKAFARM_PRIVATE_KEY"
	// EnvKeyringPassword unlocks the encrypted file backend without a prompt.
	EnvKeyringPassword = "POLKAFARM_KEYRING_PASSWORD"
	// EnvKeyringBackend forces a backend, e.g. "file".
	EnvKeyringBackend = "POLKAFARM_KEYRING_BACKEND"
)

// ErrKeystoreUnavailable is returned when no key storage backend can be opened.
var ErrKeystoreUnavailable = errors.New("keystore not available")

// KeystoreBackend stores private keys by reference.
type KeystoreBackend interface {
	Store(name, hexKey string) (string, error)
	Retrieve(ref string) (string, error)
	Delete(ref string) error
}

// Keystore wraps OS keychain access.
type Keystore struct {
	ring keyring.Keyring
}

// KeystoreOption configures OpenKeystore.
type KeystoreOption func(*keyring.Config)

// WithPasswordPrompt sets how the file backend asks for its password.
func WithPasswordPrompt(fn keyring.PromptFunc) KeystoreOption {
	return func(c *keyring.Config) { c.FilePasswordFunc = fn }
}

// WithFileBackendOnly skips OS keychains, e.g. in tests or headless servers.
func WithFileBackendOnly() KeystoreOption {
	return func(c *keyring.Config) {
		c.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
	}
}

// OpenKeystore opens the OS keychain, falling back to an encrypted file
// store under dir/keys.
func OpenKeystore(dir string, opts ...KeystoreOption) (*Keystore, error) {
	cfg := keyring.Config{
		ServiceName:              keychainService,
		KeychainTrustApplication: true,
		FileDir:                  filepath.Join(dir, "keys"),
		FilePasswordFunc:         envPasswordPrompt,
	}

	// On Linux without a GUI, fall back to file-based storage.
	if runtime.GOOS == "linux" {
		cfg.AllowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.FileBackend,
		}
	}
	if strings.EqualFold(os.Getenv(EnvKeyringBackend), "file") {
		WithFileBackendOnly()(&cfg)
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		cfg.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
		ring, err = keyring.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKeystoreUnavailable, err)
		}
	}
	return &Keystore{ring: ring}, nil
}

// envPasswordPrompt reads the file backend password from the environment,
// then falls back to an interactive terminal prompt.
func envPasswordPrompt(prompt string) (string, error) {
	if pw := os.Getenv(EnvKeyringPassword); pw != "" {
		return pw, nil
	}
	return keyring.TerminalPrompt(prompt)
}

// Store saves a private key for a wallet name and returns a reference key.
func (k *Keystore) Store(name, hexKey string) (string, error) {
	if k.ring == nil {
		return "", ErrKeystoreUnavailable
	}
	ref := keychainService + "." + name
	err := k.ring.Set(keyring.Item{
		Key:   ref,
		Data:  []byte(normaliseHexKey(hexKey)),
		Label: "polkafarm wallet " + name,
	})
	if err != nil {
		return "", fmt.Errorf("keychain store: %w", err)
	}
	return ref, nil
}

// Retrieve fetches a private key by its reference. EnvPrivateKey wins when set.
func (k *Keystore) Retrieve(ref string) (string, error) {
	if v := os.Getenv(EnvPrivateKey); v != "" {
		return normaliseHexKey(v), nil
	}
	if k.ring == nil {
		return "", ErrKeystoreUnavailable
	}
	item, err := k.ring.Get(ref)
	if err != nil {
		return "", fmt.Errorf("keychain retrieve: %w", err)
	}
	return normaliseHexKey(string(item.Data)), nil
}

// Delete removes a stored key. Missing keys are not an error.
func (k *Keystore) Delete(ref string) error {
	if k.ring == nil {
		return nil
	}
	err := k.ring.Remove(ref)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("keychain delete: %w", err)
	}
	return nil
}

// InMemoryKeystore stores keys in memory (for tests).
type InMemoryKeystore struct {
	mu   sync.Mutex
	data map[string]string
}

// NewInMemoryKeystore creates an in-memory keystore.
func NewInMemoryKeystore() *InMemoryKeystore {
	return &InMemoryKeystore{data: make(map[string]string)}
}

func (k *InMemoryKeystore) Store(name, hexKey string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	ref := keychainService + "." + name
	k.data[ref] = normaliseHexKey(hexKey)
	return ref, nil
}

func (k *InMemoryKeystore) Retrieve(ref string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.data[ref]
	if !ok {
		return "", fmt.Errorf("key not found: %s", ref)
	}
	return v, nil
}

func (k *InMemoryKeystore) Delete(ref string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.data, ref)
	return nil
}

// normaliseHexKey trims whitespace and a 0x/0X prefix.
func normaliseHexKey(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}
