package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrEmptyResult is returned when a call returns no data, usually because
// nothing is deployed at the address on this chain.
var ErrEmptyResult = errors.New("empty call result")

// bound pairs an ABI with a deployed address.
type bound struct {
	address common.Address
	abi     abi.ABI
	backend Backend
	tx      *Transactor
}

func (b *bound) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	input, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", method, err)
	}
	out, err := b.backend.CallContract(ctx, ethereum.CallMsg{To: &b.address, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s at %s", ErrEmptyResult, method, b.address.Hex())
	}
	values, err := b.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", method, err)
	}
	return values, nil
}

func (b *bound) callBig(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	values, err := b.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("decoding %s: unexpected %T", method, values[0])
	}
	return v, nil
}

func (b *bound) callString(ctx context.Context, method string) (string, error) {
	values, err := b.call(ctx, method)
	if err != nil {
		return "", err
	}
	v, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("decoding %s: unexpected %T", method, values[0])
	}
	return v, nil
}

func (b *bound) transact(ctx context.Context, value *big.Int, gas uint64, method string, args ...interface{}) (*types.Transaction, error) {
	if b.tx == nil {
		return nil, ErrReadOnly
	}
	input, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", method, err)
	}
	return b.tx.Send(ctx, b.address, value, input, gas)
}
