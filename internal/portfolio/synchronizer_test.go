package portfolio

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

var farmer = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

type fakeChain struct {
	balance    *big.Int
	balanceErr error
	failFirst  atomic.Int32 // number of BalanceAt calls that fail before succeeding
	calls      atomic.Int32
	blockErr   error
	delay      time.Duration
}

func (c *fakeChain) BalanceAt(ctx context.Context, _ common.Address) (*big.Int, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.delay):
		}
	}
	if c.failFirst.Load() > 0 {
		c.failFirst.Add(-1)
		return nil, errors.New("connection reset")
	}
	if c.balanceErr != nil {
		return nil, c.balanceErr
	}
	return c.balance, nil
}

func (c *fakeChain) BlockNumber(context.Context) (uint64, error) {
	if c.blockErr != nil {
		return 0, c.blockErr
	}
	return 1234, nil
}

type fakeFarm struct {
	stake, token, total, rate *big.Int
	stakeErr, tokenErr        error
	statsErr                  error
}

func (f *fakeFarm) StakeOf(context.Context, common.Address) (*big.Int, error) {
	return f.stake, f.stakeErr
}

func (f *fakeFarm) TokenBalance(context.Context, common.Address) (*big.Int, error) {
	return f.token, f.tokenErr
}

func (f *fakeFarm) TotalStaked(context.Context) (*big.Int, error) { return f.total, f.statsErr }
func (f *fakeFarm) RewardRate(context.Context) (*big.Int, error)  { return f.rate, f.statsErr }

func (f *fakeFarm) TokenName(context.Context) (string, error) {
	if f.statsErr != nil {
		return "", f.statsErr
	}
	return "PolkaFarm Token", nil
}

func (f *fakeFarm) TokenSymbol(context.Context) (string, error) {
	if f.statsErr != nil {
		return "", f.statsErr
	}
	return "PLKF", nil
}

func (f *fakeFarm) TokenDecimals(context.Context) (uint8, error) {
	if f.statsErr != nil {
		return 0, f.statsErr
	}
	return 18, nil
}

type presumed map[string]string

func (p presumed) PresumedStake(addr string) (string, bool) {
	v, ok := p[addr]
	return v, ok
}

func healthyFarm() *fakeFarm {
	return &fakeFarm{stake: ether(2), token: ether(7), total: ether(8), rate: big.NewInt(1000)}
}

// ---------------------------------------------------------------------------
// Refresh
// ---------------------------------------------------------------------------

func TestRefresh(t *testing.T) {
	s := New(&fakeChain{balance: ether(10)}, healthyFarm(), farmer)

	bal, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, bal.Native.Cmp(ether(10)))
	assert.Equal(t, 0, bal.Staked.Cmp(ether(2)))
	assert.Equal(t, 0, bal.Token.Cmp(ether(7)))
	assert.Equal(t, SourceDirect, bal.StakeSource)
	assert.False(t, bal.UpdatedAt.IsZero())
}

func TestRefreshNativeFailureFailsWhole(t *testing.T) {
	s := New(&fakeChain{balanceErr: errors.New("boom")}, healthyFarm(), farmer)
	_, err := s.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "native balance")
}

func TestRefreshDegradesStakeAndToken(t *testing.T) {
	farm := healthyFarm()
	farm.stakeErr = errors.New("execution reverted")
	farm.tokenErr = errors.New("execution reverted")
	s := New(&fakeChain{balance: ether(1)}, farm, farmer)

	bal, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, bal.Staked.Sign())
	assert.Equal(t, 0, bal.Token.Sign())
	assert.Equal(t, SourceNone, bal.StakeSource)
}

func TestRefreshUsesPresumedStake(t *testing.T) {
	farm := healthyFarm()
	farm.stakeErr = errors.New("no getter")
	s := New(&fakeChain{balance: ether(1)}, farm, farmer,
		WithPresumedStakes(presumed{farmer.Hex(): "1.0"}))

	bal, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, bal.Staked.Cmp(ether(1)))
	assert.Equal(t, SourcePresumed, bal.StakeSource)
}

// ---------------------------------------------------------------------------
// Estimator
// ---------------------------------------------------------------------------

func TestEstimatorFallbacks(t *testing.T) {
	farm := &fakeFarm{stakeErr: errors.New("no getter")}

	t.Run("block read fails", func(t *testing.T) {
		e := NewStakeEstimator(farm, &fakeChain{blockErr: errors.New("down")}, presumed{farmer.Hex(): "3"}, 18)
		v, src := e.Estimate(context.Background(), farmer)
		assert.Equal(t, 0, v.Sign())
		assert.Equal(t, SourceNone, src)
	})

	t.Run("no table", func(t *testing.T) {
		e := NewStakeEstimator(farm, &fakeChain{}, nil, 18)
		v, src := e.Estimate(context.Background(), farmer)
		assert.Equal(t, 0, v.Sign())
		assert.Equal(t, SourceNone, src)
	})

	t.Run("bad table value", func(t *testing.T) {
		e := NewStakeEstimator(farm, &fakeChain{}, presumed{farmer.Hex(): "lots"}, 18)
		v, src := e.Estimate(context.Background(), farmer)
		assert.Equal(t, 0, v.Sign())
		assert.Equal(t, SourceNone, src)
	})

	t.Run("other address", func(t *testing.T) {
		e := NewStakeEstimator(farm, &fakeChain{}, presumed{"0xabc": "3"}, 18)
		_, src := e.Estimate(context.Background(), farmer)
		assert.Equal(t, SourceNone, src)
	})
}

// ---------------------------------------------------------------------------
// Stats / Snapshot
// ---------------------------------------------------------------------------

func TestStats(t *testing.T) {
	s := New(&fakeChain{balance: ether(1)}, healthyFarm(), farmer)
	st := s.Stats(context.Background())
	assert.Equal(t, 0, st.TotalStaked.Cmp(ether(8)))
	assert.Equal(t, int64(1000), st.RewardRate.Int64())
	assert.Equal(t, "PolkaFarm Token", st.TokenName)
	assert.Equal(t, "PLKF", st.TokenSymbol)
	assert.Equal(t, uint8(18), st.TokenDecimals)
}

func TestStatsDegrade(t *testing.T) {
	farm := healthyFarm()
	farm.statsErr = errors.New("no contract code at given address")
	s := New(&fakeChain{balance: ether(1)}, farm, farmer)

	st := s.Stats(context.Background())
	assert.Equal(t, 0, st.TotalStaked.Sign())
	assert.Equal(t, 0, st.RewardRate.Sign())
	assert.Equal(t, "TOKEN", st.TokenSymbol)
	assert.Equal(t, uint8(18), st.TokenDecimals)
}

func TestSnapshotRemembersLast(t *testing.T) {
	s := New(&fakeChain{balance: ether(3)}, healthyFarm(), farmer)
	assert.Nil(t, s.Last())

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Same(t, snap, s.Last())
	assert.Equal(t, farmer, snap.Account)
	assert.Equal(t, farmer, s.Account())
}

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

func TestLoadRetriesOnce(t *testing.T) {
	c := &fakeChain{balance: ether(3)}
	c.failFirst.Store(1)
	s := New(c, healthyFarm(), farmer, WithRetryDelay(5*time.Millisecond))

	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Native.Cmp(ether(3)))
	assert.Equal(t, int32(2), c.calls.Load())
}

func TestLoadGivesUpAfterRetry(t *testing.T) {
	c := &fakeChain{balance: ether(3)}
	c.failFirst.Store(2)
	s := New(c, healthyFarm(), farmer, WithRetryDelay(time.Millisecond))

	_, err := s.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(2), c.calls.Load())
}

func TestLoadHonoursCancel(t *testing.T) {
	c := &fakeChain{balanceErr: errors.New("down")}
	s := New(c, healthyFarm(), farmer, WithRetryDelay(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// ---------------------------------------------------------------------------
// Poll / Run
// ---------------------------------------------------------------------------

func TestPollSkipsWhileInFlight(t *testing.T) {
	c := &fakeChain{balance: ether(1), delay: 50 * time.Millisecond}
	s := New(c, healthyFarm(), farmer)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := s.Poll(context.Background())
		assert.NoError(t, err)
	}()

	require.Eventually(t, func() bool { return c.calls.Load() == 1 }, time.Second, time.Millisecond)
	_, err := s.Poll(context.Background())
	assert.ErrorIs(t, err, ErrRefreshInFlight)
	wg.Wait()
}

func TestRunDeliversSnapshots(t *testing.T) {
	s := New(&fakeChain{balance: ether(1)}, healthyFarm(), farmer)

	ctx, cancel := context.WithCancel(context.Background())
	var got atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx, 5*time.Millisecond, func(snap *Snapshot, err error) {
			if err == nil && snap != nil {
				got.Add(1)
			}
		})
	}()

	require.Eventually(t, func() bool { return got.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(&fakeChain{balance: ether(1)}, healthyFarm(), farmer)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	s.Run(ctx, time.Hour, func(*Snapshot, error) { called = true })
	assert.False(t, called)
}
