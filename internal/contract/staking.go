package contract

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/polkafarm/polkafarm/internal/config"
)

// Staking is the farm's staking pool.
type Staking struct{ bound }

// NewStaking binds the staking pool at address. tx may be nil for read-only use.
func NewStaking(address common.Address, backend Backend, tx *Transactor) *Staking {
	return &Staking{bound{address: address, abi: mustBuiltin(StakingBuiltin), backend: backend, tx: tx}}
}

// Address returns the pool contract address.
func (s *Staking) Address() common.Address { return s.address }

// Total returns the total amount staked in the pool, in wei.
func (s *Staking) Total(ctx context.Context) (*big.Int, error) { return s.callBig(ctx, "total") }

// Rate returns the pool's reward rate as stored on chain.
func (s *Staking) Rate(ctx context.Context) (*big.Int, error) { return s.callBig(ctx, "rate") }

// StakeOf returns account's staked amount via the s(address) mapping.
func (s *Staking) StakeOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return s.callBig(ctx, "s", account)
}

// Stake deposits value wei of the native asset.
func (s *Staking) Stake(ctx context.Context, value *big.Int) (*types.Transaction, error) {
	return s.transact(ctx, value, config.GasLimitStake, "stake")
}

// Exit withdraws the caller's whole stake and pays out rewards.
func (s *Staking) Exit(ctx context.Context) (*types.Transaction, error) {
	return s.transact(ctx, nil, config.GasLimitContractCall, "exit")
}
