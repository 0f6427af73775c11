// Package portfolio keeps a user's farm balances and pool statistics current.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/polkafarm/polkafarm/internal/config"
	"github.com/polkafarm/polkafarm/internal/logger"
)

// ErrRefreshInFlight is returned by Poll while another refresh is running.
var ErrRefreshInFlight = errors.New("refresh already in progress")

// ChainReader is the node access the synchronizer needs.
type ChainReader interface {
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// FarmReader is the read side of the farm contracts. *contract.Gateway
// satisfies it.
type FarmReader interface {
	StakeReader
	TokenBalance(ctx context.Context, account common.Address) (*big.Int, error)
	TotalStaked(ctx context.Context) (*big.Int, error)
	RewardRate(ctx context.Context) (*big.Int, error)
	TokenName(ctx context.Context) (string, error)
	TokenSymbol(ctx context.Context) (string, error)
	TokenDecimals(ctx context.Context) (uint8, error)
}

// Balances are one account's holdings in raw units.
type Balances struct {
	Native      *big.Int
	Staked      *big.Int
	Token       *big.Int
	StakeSource StakeSource
	UpdatedAt   time.Time
}

// FarmStats describe the pool and its reward token.
type FarmStats struct {
	TotalStaked   *big.Int
	RewardRate    *big.Int
	TokenName     string
	TokenSymbol   string
	TokenDecimals uint8
}

// Snapshot pairs an account's balances with the pool stats read alongside.
type Snapshot struct {
	Account common.Address
	Balances
	Stats FarmStats
}

// Synchronizer reads balances and stats for one account.
type Synchronizer struct {
	chain      ChainReader
	farm       FarmReader
	account    common.Address
	estimator  *StakeEstimator
	retryDelay time.Duration
	now        func() time.Time
	log        zerolog.Logger

	inFlight atomic.Bool
	mu       sync.RWMutex
	last     *Snapshot
}

// Option configures a Synchronizer.
type Option func(*options)

type options struct {
	presumed       PresumedTable
	nativeDecimals int
	retryDelay     time.Duration
}

// WithPresumedStakes sets the fallback table used when s(address) fails.
func WithPresumedStakes(t PresumedTable) Option {
	return func(o *options) { o.presumed = t }
}

// WithNativeDecimals sets the native currency precision (default 18).
func WithNativeDecimals(d int) Option {
	return func(o *options) { o.nativeDecimals = d }
}

// WithRetryDelay sets the pause before Load's single retry.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) { o.retryDelay = d }
}

// New creates a Synchronizer for account.
func New(chain ChainReader, farm FarmReader, account common.Address, opts ...Option) *Synchronizer {
	o := options{nativeDecimals: 18, retryDelay: config.InitialLoadRetryDelay}
	for _, opt := range opts {
		opt(&o)
	}
	return &Synchronizer{
		chain:      chain,
		farm:       farm,
		account:    account,
		estimator:  NewStakeEstimator(farm, chain, o.presumed, o.nativeDecimals),
		retryDelay: o.retryDelay,
		now:        time.Now,
		log:        logger.With("portfolio"),
	}
}

// Account returns the tracked account.
func (s *Synchronizer) Account() common.Address { return s.account }

// Refresh reads the account's balances. Only a failed native balance read
// fails the refresh; staked and token reads fall back to zero.
func (s *Synchronizer) Refresh(ctx context.Context) (*Balances, error) {
	native, err := s.chain.BalanceAt(ctx, s.account)
	if err != nil {
		return nil, fmt.Errorf("reading native balance: %w", err)
	}

	staked, source := s.estimator.Estimate(ctx, s.account)

	token, err := s.farm.TokenBalance(ctx, s.account)
	if err != nil {
		s.log.Warn().Err(err).Msg("reading token balance")
		token = new(big.Int)
	}

	return &Balances{
		Native:      native,
		Staked:      staked,
		Token:       token,
		StakeSource: source,
		UpdatedAt:   s.now(),
	}, nil
}

// Stats reads pool statistics. Each field degrades on its own.
func (s *Synchronizer) Stats(ctx context.Context) FarmStats {
	st := FarmStats{TokenName: "Unknown", TokenSymbol: "TOKEN", TokenDecimals: 18}

	var err error
	if st.TotalStaked, err = s.farm.TotalStaked(ctx); err != nil {
		s.log.Warn().Err(err).Msg("reading total staked")
		st.TotalStaked = new(big.Int)
	}
	if st.RewardRate, err = s.farm.RewardRate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("reading reward rate")
		st.RewardRate = new(big.Int)
	}
	if name, err := s.farm.TokenName(ctx); err == nil {
		st.TokenName = name
	} else {
		s.log.Warn().Err(err).Msg("reading token name")
	}
	if sym, err := s.farm.TokenSymbol(ctx); err == nil {
		st.TokenSymbol = sym
	} else {
		s.log.Warn().Err(err).Msg("reading token symbol")
	}
	if dec, err := s.farm.TokenDecimals(ctx); err == nil {
		st.TokenDecimals = dec
	} else {
		s.log.Warn().Err(err).Msg("reading token decimals")
	}
	return st
}

// Snapshot refreshes balances and stats and remembers the result.
func (s *Synchronizer) Snapshot(ctx context.Context) (*Snapshot, error) {
	bal, err := s.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Account: s.account, Balances: *bal, Stats: s.Stats(ctx)}

	s.mu.Lock()
	s.last = snap
	s.mu.Unlock()
	return snap, nil
}

// Load takes the first snapshot, retrying once after the retry delay.
func (s *Synchronizer) Load(ctx context.Context) (*Snapshot, error) {
	snap, err := s.Snapshot(ctx)
	if err == nil {
		return snap, nil
	}
	s.log.Warn().Err(err).Dur("retry_in", s.retryDelay).Msg("initial load failed")

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.retryDelay):
	}
	return s.Snapshot(ctx)
}

// Poll takes a snapshot unless one is already being taken.
func (s *Synchronizer) Poll(ctx context.Context) (*Snapshot, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrRefreshInFlight
	}
	defer s.inFlight.Store(false)
	return s.Snapshot(ctx)
}

// Run polls every interval until ctx is cancelled, passing each result to
// fn. Ticks that arrive while a refresh is running are dropped.
func (s *Synchronizer) Run(ctx context.Context, interval time.Duration, fn func(*Snapshot, error)) {
	if interval <= 0 {
		interval = config.DefaultRefreshInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			wg.Add(1)
			go func() {
				defer wg.Done()
				snap, err := s.Poll(ctx)
				if errors.Is(err, ErrRefreshInFlight) {
					s.log.Debug().Msg("skipping tick, refresh in flight")
					return
				}
				if ctx.Err() != nil {
					return
				}
				fn(snap, err)
			}()
		}
	}
}

// Last returns the most recent snapshot, or nil before the first one.
func (s *Synchronizer) Last() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}
