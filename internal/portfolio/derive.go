package portfolio

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/polkafarm/polkafarm/internal/chain"
	"github.com/polkafarm/polkafarm/internal/price"
)

// Display constants.
const (
	// APY is shown until the pool exposes a yield figure.
	APY = 23.8
	// DailyRewardFactor converts a stake into estimated reward tokens per day.
	DailyRewardFactor = 0.000652
	// GasReserve is left behind when staking the maximum.
	GasReserve = "0.01"
)

var (
	ErrInvalidAmount       = errors.New("please enter a valid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNothingStaked       = errors.New("nothing staked")
)

// NothingStakedError is returned by ValidateExit. It matches ErrNothingStaked.
type NothingStakedError struct {
	Symbol string
}

func (e *NothingStakedError) Error() string {
	return fmt.Sprintf("You don't have any %s staked. Please stake some %s first.", e.Symbol, e.Symbol)
}

func (e *NothingStakedError) Is(target error) bool { return target == ErrNothingStaked }

// Derived holds display values computed from a snapshot.
type Derived struct {
	Native float64
	Staked float64
	Token  float64
	Total  float64

	Share float64 // percent of the pool
	APY   float64

	NativeUSD float64
	StakedUSD float64
	TokenUSD  float64

	DailyRewards    float64
	DailyRewardsUSD float64
}

// Derive converts raw snapshot amounts into whole units and USD estimates.
func Derive(s *Snapshot, q price.Quote, nativeDecimals int) Derived {
	tokenDecimals := int(s.Stats.TokenDecimals)
	d := Derived{
		Native: chain.ToFloat(s.Native, nativeDecimals),
		Staked: chain.ToFloat(s.Staked, nativeDecimals),
		Token:  chain.ToFloat(s.Token, tokenDecimals),
		Total:  chain.ToFloat(s.Stats.TotalStaked, nativeDecimals),
		Share:  Share(s.Staked, s.Stats.TotalStaked),
		APY:    APY,
	}
	d.NativeUSD = d.Native * q.NativeUSD
	d.StakedUSD = d.Staked * q.NativeUSD
	d.TokenUSD = d.Token * q.TokenUSD
	d.DailyRewards = d.Staked * DailyRewardFactor
	d.DailyRewardsUSD = d.DailyRewards * q.TokenUSD
	return d
}

// Share returns staked as a percentage of total, or 0 for an empty pool.
func Share(staked, total *big.Int) float64 {
	if staked == nil || total == nil || total.Sign() <= 0 {
		return 0
	}
	r := new(big.Rat).SetFrac(staked, total)
	f, _ := r.Float64()
	return f * 100
}

// MaxStake is the native balance minus the gas reserve, floored at zero.
func MaxStake(native *big.Int, decimals int) *big.Int {
	if native == nil {
		return new(big.Int)
	}
	reserve, _ := chain.ParseUnits(GasReserve, decimals)
	if reserve == nil {
		reserve = new(big.Int)
	}
	out := new(big.Int).Sub(native, reserve)
	if out.Sign() < 0 {
		return new(big.Int)
	}
	return out
}

// ParseStake parses a user-entered amount into raw units.
func ParseStake(s string, decimals int) (*big.Int, error) {
	v, err := chain.ParseUnits(s, decimals)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return v, nil
}

// ValidateStake checks that amount is positive and covered by native.
func ValidateStake(amount, native *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if native == nil || amount.Cmp(native) > 0 {
		return ErrInsufficientBalance
	}
	return nil
}

// ValidateExit requires a positive stake.
func ValidateExit(staked *big.Int, symbol string) error {
	if staked == nil || staked.Sign() <= 0 {
		return &NothingStakedError{Symbol: symbol}
	}
	return nil
}
