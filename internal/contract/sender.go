package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/polkafarm/polkafarm/internal/logger"
)

// ErrReadOnly is returned for writes through a gateway without a signer.
var ErrReadOnly = errors.New("no signer: connect a signing wallet to send transactions")

// Backend is the subset of an RPC client the gateway needs.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// TxSigner signs transactions on behalf of one account.
type TxSigner interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Transactor builds, signs and broadcasts EIP-1559 transactions.
type Transactor struct {
	backend Backend
	signer  TxSigner
	chainID *big.Int
}

// NewTransactor creates a Transactor.
func NewTransactor(backend Backend, signer TxSigner, chainID *big.Int) *Transactor {
	return &Transactor{backend: backend, signer: signer, chainID: chainID}
}

// From returns the sending account.
func (t *Transactor) From() common.Address { return t.signer.Address() }

// Send broadcasts a call to `to` carrying value and data.
// A reverting gas estimate aborts the send; any other estimate failure
// falls back to fallbackGas.
func (t *Transactor) Send(ctx context.Context, to common.Address, value *big.Int, data []byte, fallbackGas uint64) (*types.Transaction, error) {
	log := logger.With("transactor")
	from := t.signer.Address()
	if value == nil {
		value = new(big.Int)
	}

	gas, err := t.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Value: value, Data: data})
	if err != nil {
		if IsRevert(err) {
			return nil, describeRevert(err)
		}
		log.Warn().Err(err).Uint64("fallback", fallbackGas).Msg("gas estimate failed")
		gas = fallbackGas
	}

	gasPrice, err := t.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting gas price: %w", err)
	}

	nonce, err := t.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("getting nonce: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   t.chainID,
		Nonce:     nonce,
		GasTipCap: gasPrice,
		GasFeeCap: new(big.Int).Mul(gasPrice, big.NewInt(2)),
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      data,
	})

	signed, err := t.signer.SignTx(tx, t.chainID)
	if err != nil {
		return nil, err
	}

	if err := t.backend.SendTransaction(ctx, signed); err != nil {
		if IsRevert(err) {
			return nil, describeRevert(err)
		}
		return nil, fmt.Errorf("broadcasting: %w", err)
	}

	log.Debug().Str("hash", signed.Hash().Hex()).Uint64("nonce", nonce).Uint64("gas", gas).Msg("sent")
	return signed, nil
}

// IsRevert reports whether err came from the EVM rejecting the call.
func IsRevert(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}

// RevertReason extracts a Solidity revert string from an RPC error, if present.
func RevertReason(err error) string {
	var de interface{ ErrorData() interface{} }
	if !errors.As(err, &de) {
		return ""
	}
	s, ok := de.ErrorData().(string)
	if !ok {
		return ""
	}
	data, decErr := hexutil.Decode(s)
	if decErr != nil {
		return ""
	}
	reason, unpackErr := abi.UnpackRevert(data)
	if unpackErr != nil {
		return ""
	}
	return reason
}

func describeRevert(err error) error {
	if reason := RevertReason(err); reason != "" && !strings.Contains(err.Error(), reason) {
		return fmt.Errorf("%w: %s", err, reason)
	}
	return err
}
