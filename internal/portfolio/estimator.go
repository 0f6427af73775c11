package portfolio

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/polkafarm/polkafarm/internal/chain"
	"github.com/polkafarm/polkafarm/internal/logger"
)

// StakeSource records where a staked amount came from.
type StakeSource string

const (
	SourceDirect   StakeSource = "direct"   // read from s(address)
	SourcePresumed StakeSource = "presumed" // configured fallback table
	SourceNone     StakeSource = "none"     // nothing known, reported as zero
)

// StakeReader reads a stake straight from the pool.
type StakeReader interface {
	StakeOf(ctx context.Context, account common.Address) (*big.Int, error)
}

// BlockReader reports the chain head.
type BlockReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// PresumedTable maps addresses to stakes in whole units. *config.Config
// satisfies it.
type PresumedTable interface {
	PresumedStake(address string) (string, bool)
}

// StakeEstimator determines a user's stake when the pool's mapping may not
// be readable.
type StakeEstimator struct {
	stakes   StakeReader
	blocks   BlockReader
	presumed PresumedTable
	decimals int
	log      zerolog.Logger
}

// NewStakeEstimator builds an estimator. presumed may be nil.
func NewStakeEstimator(stakes StakeReader, blocks BlockReader, presumed PresumedTable, decimals int) *StakeEstimator {
	return &StakeEstimator{
		stakes:   stakes,
		blocks:   blocks,
		presumed: presumed,
		decimals: decimals,
		log:      logger.With("estimator"),
	}
}

// Estimate never fails: an unreadable stake is reported as zero.
func (e *StakeEstimator) Estimate(ctx context.Context, account common.Address) (*big.Int, StakeSource) {
	staked, err := e.stakes.StakeOf(ctx, account)
	if err == nil {
		return staked, SourceDirect
	}
	e.log.Debug().Err(err).Str("account", account.Hex()).Msg("direct stake read failed")

	block, err := e.blocks.BlockNumber(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("reading block number")
		return new(big.Int), SourceNone
	}
	e.log.Debug().Uint64("block", block).Msg("estimating stake")

	if e.presumed == nil {
		return new(big.Int), SourceNone
	}
	amount, ok := e.presumed.PresumedStake(account.Hex())
	if !ok {
		return new(big.Int), SourceNone
	}
	v, err := chain.ParseUnits(amount, e.decimals)
	if err != nil {
		e.log.Warn().Err(err).Str("amount", amount).Msg("invalid presumed stake")
		return new(big.Int), SourceNone
	}
	return v, SourcePresumed
}
