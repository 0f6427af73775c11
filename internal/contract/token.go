package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/polkafarm/polkafarm/internal/config"
)

// Token is the farm's reward token.
type Token struct{ bound }

// NewToken binds the reward token at address. tx may be nil for read-only use.
func NewToken(address common.Address, backend Backend, tx *Transactor) *Token {
	return &Token{bound{address: address, abi: mustBuiltin(TokenBuiltin), backend: backend, tx: tx}}
}

// Address returns the token contract address.
func (t *Token) Address() common.Address { return t.address }

// Name returns the token name.
func (t *Token) Name(ctx context.Context) (string, error) { return t.callString(ctx, "name") }

// Symbol returns the token ticker.
func (t *Token) Symbol(ctx context.Context) (string, error) { return t.callString(ctx, "symbol") }

// Decimals returns the token's decimal places.
func (t *Token) Decimals(ctx context.Context) (uint8, error) {
	values, err := t.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	d, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decoding decimals: unexpected %T", values[0])
	}
	return d, nil
}

// BalanceOf returns the token balance of account in base units.
func (t *Token) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return t.callBig(ctx, "balanceOf", account)
}

// Transfer sends amount base units to `to`.
func (t *Token) Transfer(ctx context.Context, to common.Address, amount *big.Int) (*types.Transaction, error) {
	return t.transact(ctx, nil, config.GasLimitERC20Transfer, "transfer", to, amount)
}
