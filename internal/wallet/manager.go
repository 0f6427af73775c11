package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polkafarm/polkafarm/internal/config"
)

// Wallet types.
const (
	TypeWatchOnly = "watch-only"
	TypeSigning   = "signing"
)

// Errors.
var (
	ErrWalletNotFound = errors.New("wallet not found")
	ErrWalletExists   = errors.New("wallet already exists")
	ErrInvalidKey     = errors.New("invalid private key")
	ErrInvalidAddress = errors.New("invalid address")
)

// Wallet holds metadata for a single wallet.
type Wallet struct {
	Name      string
	Address   string
	Type      string
	KeyRef    string // keychain reference for signing wallets
	IsDefault bool
	CreatedAt string
}

// CanSign reports whether the wallet holds a key.
func (w *Wallet) CanSign() bool { return w.Type == TypeSigning }

// Account returns the wallet address as a common.Address.
func (w *Wallet) Account() common.Address { return common.HexToAddress(w.Address) }

// Store persists wallets.
type Store interface {
	Load() ([]*Wallet, error)
	Save([]*Wallet) error
}

// Manager handles wallet CRUD.
type Manager struct {
	store   Store
	keys    KeystoreBackend
	wallets map[string]*Wallet
	loaded  bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithInMemoryStore uses an in-memory store (useful for tests).
func WithInMemoryStore() Option {
	return func(m *Manager) { m.store = &memStore{} }
}

// WithStore sets a custom store.
func WithStore(s Store) Option {
	return func(m *Manager) { m.store = s }
}

// WithKeystore sets where signing keys are kept.
func WithKeystore(ks KeystoreBackend) Option {
	return func(m *Manager) { m.keys = ks }
}

// NewManager creates a new wallet manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		wallets: make(map[string]*Wallet),
		store:   &memStore{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Keystore returns the backend signing keys are stored in, or nil.
func (m *Manager) Keystore() KeystoreBackend { return m.keys }

// Reload drops cached wallets so the next call reads the store again.
func (m *Manager) Reload() {
	m.wallets = make(map[string]*Wallet)
	m.loaded = false
}

// AddWatchOnly registers an address without a key.
func (m *Manager) AddWatchOnly(name, address string) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}
	return m.add(&Wallet{
		Name:    name,
		Address: common.HexToAddress(address).Hex(),
		Type:    TypeWatchOnly,
	})
}

// AddWithKey derives the address from a hex private key and stores the key
// in the keystore.
func (m *Manager) AddWithKey(name, hexKey string) (*Wallet, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	if _, exists := m.wallets[name]; exists {
		return nil, ErrWalletExists
	}

	privKey, err := crypto.HexToECDSA(normaliseHexKey(hexKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if m.keys == nil {
		return nil, ErrKeystoreUnavailable
	}

	ref, err := m.keys.Store(name, hexKey)
	if err != nil {
		return nil, fmt.Errorf("storing key: %w", err)
	}

	w := &Wallet{
		Name:    name,
		Address: crypto.PubkeyToAddress(privKey.PublicKey).Hex(),
		Type:    TypeSigning,
		KeyRef:  ref,
	}
	if err := m.add(w); err != nil {
		return nil, err
	}
	return w, nil
}

// Generate creates a fresh key and stores it as a signing wallet.
func (m *Manager) Generate(name string) (*Wallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	return m.AddWithKey(name, hex.EncodeToString(crypto.FromECDSA(key)))
}

// Get returns a wallet by name.
func (m *Manager) Get(name string) (*Wallet, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	w, ok := m.wallets[name]
	if !ok {
		return nil, ErrWalletNotFound
	}
	return w, nil
}

// Remove deletes a wallet and its key.
func (m *Manager) Remove(name string) error {
	if err := m.load(); err != nil {
		return err
	}
	w, ok := m.wallets[name]
	if !ok {
		return ErrWalletNotFound
	}
	if w.KeyRef != "" && m.keys != nil {
		if err := m.keys.Delete(w.KeyRef); err != nil {
			return err
		}
	}
	delete(m.wallets, name)
	return m.persist()
}

// List returns all wallets sorted by name.
func (m *Manager) List() ([]*Wallet, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	out := make([]*Wallet, 0, len(m.wallets))
	for _, w := range m.wallets {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SetDefault marks a wallet as the default.
func (m *Manager) SetDefault(name string) error {
	if err := m.load(); err != nil {
		return err
	}
	if _, ok := m.wallets[name]; !ok {
		return ErrWalletNotFound
	}
	for _, w := range m.wallets {
		w.IsDefault = w.Name == name
	}
	return m.persist()
}

// Default returns the default wallet, or nil if none.
// A single stored wallet is the default even when unmarked.
func (m *Manager) Default() (*Wallet, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	for _, w := range m.wallets {
		if w.IsDefault {
			return w, nil
		}
	}
	if len(m.wallets) == 1 {
		for _, w := range m.wallets {
			return w, nil
		}
	}
	return nil, nil
}

// --- internal ---

func (m *Manager) add(w *Wallet) error {
	if err := m.load(); err != nil {
		return err
	}
	if _, exists := m.wallets[w.Name]; exists {
		return ErrWalletExists
	}
	if w.CreatedAt == "" {
		w.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	m.wallets[w.Name] = w
	return m.persist()
}

func (m *Manager) load() error {
	if m.loaded {
		return nil
	}
	wallets, err := m.store.Load()
	if err != nil {
		return err
	}
	for _, w := range wallets {
		m.wallets[w.Name] = w
	}
	m.loaded = true
	return nil
}

func (m *Manager) persist() error {
	wallets := make([]*Wallet, 0, len(m.wallets))
	for _, w := range m.wallets {
		wallets = append(wallets, w)
	}
	sort.Slice(wallets, func(i, j int) bool { return wallets[i].Name < wallets[j].Name })
	return m.store.Save(wallets)
}

// --- in-memory store ---

type memStore struct {
	wallets []*Wallet
}

func (s *memStore) Load() ([]*Wallet, error) { return s.wallets, nil }

func (s *memStore) Save(wallets []*Wallet) error {
	s.wallets = wallets
	return nil
}

// --- wallets.json store ---

// ConfigStore persists wallets to wallets.json in the config directory.
type ConfigStore struct {
	cfg *config.Config
}

// NewConfigStore creates a store over cfg's wallets.json.
func NewConfigStore(cfg *config.Config) *ConfigStore {
	return &ConfigStore{cfg: cfg}
}

func (s *ConfigStore) Load() ([]*Wallet, error) {
	wf, err := s.cfg.LoadWallets()
	if err != nil {
		return nil, fmt.Errorf("reading wallets: %w", err)
	}
	out := make([]*Wallet, 0, len(wf.Wallets))
	for _, w := range wf.Wallets {
		out = append(out, &Wallet{
			Name:      w.Name,
			Address:   w.Address,
			Type:      w.Type,
			KeyRef:    w.KeyRef,
			IsDefault: w.IsDefault,
			CreatedAt: w.CreatedAt,
		})
	}
	return out, nil
}

func (s *ConfigStore) Save(wallets []*Wallet) error {
	wf := &config.WalletsFile{Wallets: make([]config.Wallet, 0, len(wallets))}
	for _, w := range wallets {
		wf.Wallets = append(wf.Wallets, config.Wallet{
			Name:      w.Name,
			Address:   w.Address,
			Type:      w.Type,
			KeyRef:    w.KeyRef,
			IsDefault: w.IsDefault,
			CreatedAt: w.CreatedAt,
		})
	}
	return s.cfg.SaveWallets(wf)
}
