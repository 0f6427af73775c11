// Package contract binds the farm's token and staking pool contracts.
package contract

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Gateway gives typed access to both farm contracts over one backend.
type Gateway struct {
	Token   *Token
	Staking *Staking

	tx *Transactor
}

// Addresses locates the farm contracts.
type Addresses struct {
	Token   common.Address
	Staking common.Address
}

// NewGateway binds the farm at addrs. With a nil signer the gateway is
// read-only and every write returns ErrReadOnly.
func NewGateway(backend Backend, addrs Addresses, signer TxSigner, chainID *big.Int) *Gateway {
	var tx *Transactor
	if signer != nil {
		tx = NewTransactor(backend, signer, chainID)
	}
	return &Gateway{
		Token:   NewToken(addrs.Token, backend, tx),
		Staking: NewStaking(addrs.Staking, backend, tx),
		tx:      tx,
	}
}

// ReadOnly reports whether the gateway can only read.
func (g *Gateway) ReadOnly() bool { return g.tx == nil }

// Account returns the signing account, or the zero address when read-only.
func (g *Gateway) Account() common.Address {
	if g.tx == nil {
		return common.Address{}
	}
	return g.tx.From()
}

// StakeOf reads the stake of account.
func (g *Gateway) StakeOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return g.Staking.StakeOf(ctx, account)
}

// TokenBalance reads the reward token balance of account.
func (g *Gateway) TokenBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	return g.Token.BalanceOf(ctx, account)
}

// TotalStaked reads the pool total.
func (g *Gateway) TotalStaked(ctx context.Context) (*big.Int, error) {
	return g.Staking.Total(ctx)
}

// RewardRate reads the pool rate.
func (g *Gateway) RewardRate(ctx context.Context) (*big.Int, error) {
	return g.Staking.Rate(ctx)
}

// TokenName reads the reward token name.
func (g *Gateway) TokenName(ctx context.Context) (string, error) { return g.Token.Name(ctx) }

// TokenSymbol reads the reward token symbol.
func (g *Gateway) TokenSymbol(ctx context.Context) (string, error) { return g.Token.Symbol(ctx) }

// TokenDecimals reads the reward token decimals.
func (g *Gateway) TokenDecimals(ctx context.Context) (uint8, error) { return g.Token.Decimals(ctx) }
