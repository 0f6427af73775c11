package wallet

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known Hardhat/Anvil test account #0. Never fund on mainnet.
const (
	testPrivKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testSignerAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func signingWallet(t *testing.T) (*Wallet, *InMemoryKeystore) {
	t.Helper()
	ks := NewInMemoryKeystore()
	ref, err := ks.Store("farmer", testPrivKeyHex)
	require.NoError(t, err)
	return &Wallet{Name: "farmer", Address: testSignerAddr, Type: TypeSigning, KeyRef: ref}, ks
}

func sampleTx() *types.Transaction {
	to := common.HexToAddress("0x54c27ad8a9a35902b304c1ddda79711f23d1dd48")
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(420420421),
		Nonce:     3,
		GasTipCap: big.NewInt(1e9),
		GasFeeCap: big.NewInt(2e9),
		Gas:       150_000,
		To:        &to,
		Value:     big.NewInt(1e18),
		Data:      []byte{0x3a, 0x4b, 0x66, 0xf1},
	})
}

func TestSignerAddress(t *testing.T) {
	w, ks := signingWallet(t)
	assert.Equal(t, testSignerAddr, NewSigner(w, ks).Address().Hex())
}

func TestSignTxRecoversSender(t *testing.T) {
	w, ks := signingWallet(t)
	s := NewSigner(w, ks)

	chainID := big.NewInt(420420421)
	signed, err := s.SignTx(sampleTx(), chainID)
	require.NoError(t, err)

	from, err := types.Sender(types.NewLondonSigner(chainID), signed)
	require.NoError(t, err)
	assert.Equal(t, testSignerAddr, from.Hex())
}

func TestSignTxWatchOnly(t *testing.T) {
	w := &Wallet{Name: "watcher", Address: testSignerAddr, Type: TypeWatchOnly}
	_, err := NewSigner(w, NewInMemoryKeystore()).SignTx(sampleTx(), big.NewInt(1))
	assert.ErrorIs(t, err, ErrWatchOnly)
}

func TestSignTxNoKeystore(t *testing.T) {
	w, _ := signingWallet(t)
	_, err := NewSigner(w, nil).SignTx(sampleTx(), big.NewInt(1))
	assert.ErrorIs(t, err, ErrKeystoreUnavailable)
}

func TestSignTxKeyNotFound(t *testing.T) {
	w := &Wallet{Name: "missing", Address: testSignerAddr, Type: TypeSigning, KeyRef: "polkafarm.missing"}
	_, err := NewSigner(w, NewInMemoryKeystore()).SignTx(sampleTx(), big.NewInt(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieving key")
}

func TestUnlockDetectsForeignKey(t *testing.T) {
	w, ks := signingWallet(t)
	w.Address = "0x0000000000000000000000000000000000000001"

	err := NewSigner(w, ks).Unlock()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stored key belongs to")
}

func TestUnlockCachesKey(t *testing.T) {
	w, ks := signingWallet(t)
	s := NewSigner(w, ks)
	require.NoError(t, s.Unlock())

	require.NoError(t, ks.Delete(w.KeyRef))
	_, err := s.SignTx(sampleTx(), big.NewInt(420420421))
	assert.NoError(t, err, "unlocked signer keeps its key")
}
