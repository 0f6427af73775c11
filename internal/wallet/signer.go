package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrWatchOnly is returned when a watch-only wallet is asked to sign.
var ErrWatchOnly = errors.New("wallet is watch-only and cannot sign")

// Signer signs EVM transactions for a signing wallet. The key is read from
// the keystore once and kept for the signer's lifetime.
type Signer struct {
	wallet *Wallet
	ks     KeystoreBackend

	mu  sync.Mutex
	key *ecdsa.PrivateKey
}

// NewSigner creates a signer for the given wallet.
func NewSigner(w *Wallet, ks KeystoreBackend) *Signer {
	return &Signer{wallet: w, ks: ks}
}

// Address returns the wallet's address.
func (s *Signer) Address() common.Address {
	return s.wallet.Account()
}

// Unlock loads the key and proves it controls the wallet address.
func (s *Signer) Unlock() error {
	key, err := s.privateKey()
	if err != nil {
		return err
	}
	if got := crypto.PubkeyToAddress(key.PublicKey); got != s.Address() {
		s.mu.Lock()
		s.key = nil
		s.mu.Unlock()
		return fmt.Errorf("stored key belongs to %s, not %s", got.Hex(), s.Address().Hex())
	}
	return nil
}

// SignTx signs tx for chainID.
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	key, err := s.privateKey()
	if err != nil {
		return nil, err
	}
	signed, err := types.SignTx(tx, types.NewLondonSigner(chainID), key)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	return signed, nil
}

// SignMessage signs an EIP-191 message with the wallet key.
func (s *Signer) SignMessage(message []byte) ([]byte, error) {
	key, err := s.privateKey()
	if err != nil {
		return nil, err
	}
	return signEIP191(key, message)
}

func (s *Signer) privateKey() (*ecdsa.PrivateKey, error) {
	if !s.wallet.CanSign() {
		return nil, fmt.Errorf("wallet %q: %w", s.wallet.Name, ErrWatchOnly)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil {
		return s.key, nil
	}
	if s.ks == nil {
		return nil, fmt.Errorf("retrieving key: %w", ErrKeystoreUnavailable)
	}

	hexKey, err := s.ks.Retrieve(s.wallet.KeyRef)
	if err != nil {
		return nil, fmt.Errorf("retrieving key: %w", err)
	}
	key, err := crypto.HexToECDSA(normaliseHexKey(hexKey))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	s.key = key
	return key, nil
}
