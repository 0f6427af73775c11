package farm_test

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polkafarm/polkafarm/internal/config"
	"github.com/polkafarm/polkafarm/internal/connector"
	"github.com/polkafarm/polkafarm/internal/farm"
	"github.com/polkafarm/polkafarm/internal/portfolio"
	"github.com/polkafarm/polkafarm/internal/price"
	"github.com/polkafarm/polkafarm/internal/wallet"
	"github.com/polkafarm/polkafarm/test/fixtures"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

type env struct {
	cfg  *config.Config
	node *fixtures.FarmNode
	svc  *farm.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	node := fixtures.NewFarmNode(t, fixtures.WestendEntry.ChainID)
	node.Configure(t, cfg, fixtures.WestendEntry)
	require.NoError(t, cfg.Save())

	m := wallet.NewManager(wallet.WithStore(wallet.NewConfigStore(cfg)), wallet.WithKeystore(wallet.NewInMemoryKeystore()))
	_, err = m.AddWithKey("farmer", fixtures.PrivateKey)
	require.NoError(t, err)

	svc := farm.New(cfg, connector.New(cfg, m), price.Static{Q: price.Quote{NativeUSD: 13.75, TokenUSD: 0.85}}, "",
		farm.WithRetryDelay(time.Millisecond), farm.WithTxTimeout(5*time.Second))
	t.Cleanup(svc.Close)
	return &env{cfg: cfg, node: node, svc: svc}
}

func (e *env) connect(t *testing.T) {
	t.Helper()
	view, err := e.svc.Connect(context.Background())
	require.NoError(t, err)
	require.Equal(t, connector.ViewDashboard, view)
}

// ---------------------------------------------------------------------------
// connection
// ---------------------------------------------------------------------------

func TestResumeWithoutSessionIsDisconnected(t *testing.T) {
	e := newEnv(t)
	view, err := e.svc.Resume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, connector.ViewDisconnected, view)

	_, err = e.svc.Load(context.Background())
	assert.ErrorIs(t, err, farm.ErrNotReady)
}

func TestConnectAndLoad(t *testing.T) {
	e := newEnv(t)
	e.connect(t)

	snap, err := e.svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Native.Cmp(fixtures.Ether(10)))
	assert.Equal(t, 0, snap.Staked.Cmp(fixtures.Ether(2)))
	assert.Equal(t, 0, snap.Token.Cmp(fixtures.Ether(5)))
	assert.Equal(t, "PLKF", snap.Stats.TokenSymbol)
	assert.Equal(t, fixtures.Account, snap.Account)
	assert.Same(t, snap, e.svc.Last())

	d := e.svc.Derive(context.Background(), snap)
	assert.InDelta(t, 2.0, d.Share, 1e-9)
	assert.InDelta(t, 137.5, d.NativeUSD, 1e-9)
}

func TestWrongNetworkThenSwitch(t *testing.T) {
	e := newEnv(t)
	eth := fixtures.NewFarmNode(t, 1)
	e.cfg.Network = "ethereum"
	require.NoError(t, e.cfg.AddRPC("ethereum", eth.URL))

	view, err := e.svc.Connect(context.Background())
	var wrong *connector.WrongNetworkError
	require.ErrorAs(t, err, &wrong)
	assert.Equal(t, connector.ViewWrongNetwork, view)

	_, err = e.svc.Load(context.Background())
	assert.ErrorAs(t, err, &wrong, "farm reads are refused on the wrong chain")

	view, err = e.svc.SwitchNetwork(context.Background())
	require.NoError(t, err)
	assert.Equal(t, connector.ViewDashboard, view)
	assert.Equal(t, "westend-asset-hub", e.cfg.Network)
}

func TestDisconnect(t *testing.T) {
	e := newEnv(t)
	e.connect(t)
	require.NoError(t, e.svc.Disconnect())
	assert.Equal(t, connector.ViewDisconnected, e.svc.View())
	assert.Nil(t, e.svc.Session())

	view, err := e.svc.Resume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, connector.ViewDisconnected, view)
}

// ---------------------------------------------------------------------------
// changes made by another process
// ---------------------------------------------------------------------------

// otherProcess loads the config directory the way a second CLI invocation would.
func (e *env) otherProcess(t *testing.T) (*config.Config, *wallet.Manager) {
	t.Helper()
	cfg, err := config.Load(e.cfg.Dir())
	require.NoError(t, err)
	return cfg, wallet.NewManager(wallet.WithStore(wallet.NewConfigStore(cfg)))
}

func TestFollowDefaultWalletChangeConnectsNewAccount(t *testing.T) {
	e := newEnv(t)
	e.connect(t)

	beef := common.HexToAddress("0x000000000000000000000000000000000000bEEF").Hex()
	cfg, m := e.otherProcess(t)
	require.NoError(t, m.AddWatchOnly("other", beef))
	require.NoError(t, m.SetDefault("other"))
	cfg.DefaultWallet = "other"
	require.NoError(t, cfg.Save())

	view, err := e.svc.Follow(context.Background(), connector.Event{
		Kind: connector.AccountsChanged, Account: beef, Wallet: "other",
	})
	require.NoError(t, err)
	assert.Equal(t, connector.ViewDashboard, view)
	require.NotNil(t, e.svc.Session())
	assert.Equal(t, beef, e.svc.Session().Account.Hex())
	assert.Equal(t, "other", e.svc.Session().Wallet)

	sf, err := e.cfg.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, beef, sf.Account)
}

func TestFollowSameAccountResumes(t *testing.T) {
	e := newEnv(t)
	e.connect(t)

	view, err := e.svc.Follow(context.Background(), connector.Event{
		Kind: connector.AccountsChanged, Account: fixtures.Account.Hex(), Wallet: "farmer",
	})
	require.NoError(t, err)
	assert.Equal(t, connector.ViewDashboard, view)
	assert.Equal(t, fixtures.Account, e.svc.Session().Account)
}

func TestFollowEmptyAccountDisconnects(t *testing.T) {
	e := newEnv(t)
	e.connect(t)
	require.NoError(t, e.cfg.ClearSession())

	view, err := e.svc.Follow(context.Background(), connector.Event{Kind: connector.AccountsChanged})
	require.NoError(t, err)
	assert.Equal(t, connector.ViewDisconnected, view)
	assert.Nil(t, e.svc.Session())
}

func TestFollowChainChangedReloads(t *testing.T) {
	e := newEnv(t)
	eth := fixtures.NewFarmNode(t, 1)
	e.cfg.Network = "ethereum"
	require.NoError(t, e.cfg.AddRPC("ethereum", eth.URL))
	require.NoError(t, e.cfg.Save())

	view, err := e.svc.Connect(context.Background())
	var wrong *connector.WrongNetworkError
	require.ErrorAs(t, err, &wrong)
	require.Equal(t, connector.ViewWrongNetwork, view)

	cfg, _ := e.otherProcess(t)
	cfg.Network = "westend-asset-hub"
	require.NoError(t, cfg.Save())

	view, err = e.svc.Follow(context.Background(), connector.Event{Kind: connector.ChainChanged, Network: "westend-asset-hub"})
	require.NoError(t, err)
	assert.Equal(t, connector.ViewDashboard, view)
	assert.Equal(t, "westend-asset-hub", e.cfg.Network)
	assert.Equal(t, int64(420420421), e.svc.Session().ChainID)
}

// ---------------------------------------------------------------------------
// stake / exit
// ---------------------------------------------------------------------------

func TestStake(t *testing.T) {
	e := newEnv(t)
	e.connect(t)

	amount, err := e.svc.ParseAmount("1.5")
	require.NoError(t, err)
	receipt, err := e.svc.Stake(context.Background(), amount)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), receipt.Status)

	sent := e.node.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, 0, sent[0].Value().Cmp(amount))

	last := e.svc.Last()
	require.NotNil(t, last)
	assert.Equal(t, "3500000000000000000", last.Staked.String(), "refreshed after the stake")
}

func TestStakeValidation(t *testing.T) {
	e := newEnv(t)
	e.connect(t)

	_, err := e.svc.Stake(context.Background(), fixtures.Ether(11))
	require.ErrorIs(t, err, portfolio.ErrInsufficientBalance)
	assert.Equal(t, "Insufficient balance.", farm.StakeFailure(err))

	_, err = e.svc.Stake(context.Background(), fixtures.Ether(0))
	require.ErrorIs(t, err, portfolio.ErrInvalidAmount)
	assert.Empty(t, e.node.Sent())
}

func TestMaxStakeLeavesGas(t *testing.T) {
	e := newEnv(t)
	e.connect(t)

	max, err := e.svc.MaxStake(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "9990000000000000000", max.String())
}

func TestCheckStakeRejectsMaxOfDustBalance(t *testing.T) {
	e := newEnv(t)
	e.node.SetBalance(new(big.Int).Div(fixtures.Ether(1), big.NewInt(200))) // 0.005
	e.connect(t)

	max, err := e.svc.MaxStake(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, max.Sign())
	err = e.svc.CheckStake(context.Background(), max)
	require.ErrorIs(t, err, portfolio.ErrInvalidAmount)
	assert.Equal(t, "Please enter a valid amount.", farm.StakeFailure(err))
	assert.Empty(t, e.node.Sent())
}

func TestCheckExitNeedsStake(t *testing.T) {
	e := newEnv(t)
	e.connect(t)
	require.NoError(t, e.svc.CheckExit(context.Background()))

	e.node.SetStaked(fixtures.Ether(0))
	_, err := e.svc.Poll(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, e.svc.CheckExit(context.Background()), portfolio.ErrNothingStaked)
}

func TestExit(t *testing.T) {
	e := newEnv(t)
	e.connect(t)

	_, err := e.svc.Exit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, e.node.Staked().Sign())
	assert.Equal(t, 0, e.svc.Last().Staked.Sign())
}

func TestExitNothingStaked(t *testing.T) {
	e := newEnv(t)
	e.node.SetStaked(fixtures.Ether(0))
	e.connect(t)

	_, err := e.svc.Exit(context.Background())
	require.ErrorIs(t, err, portfolio.ErrNothingStaked)
	assert.Equal(t, "You don't have any WND staked. Please stake some WND first.", farm.ExitFailure(err, "WND"))
	assert.Empty(t, e.node.Sent())
}

func TestExitRevertedEstimate(t *testing.T) {
	e := newEnv(t)
	e.node.RevertEstimates("nothing to withdraw")
	e.connect(t)

	_, err := e.svc.Exit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Withdrawal failed. Please make sure you have WND staked and try again.", farm.ExitFailure(err, "WND"))
}

func TestExitMinedButFailed(t *testing.T) {
	e := newEnv(t)
	e.node.FailReceipts()
	e.connect(t)

	_, err := e.svc.Exit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Withdrawal failed. Please make sure you have WND staked and try again.", farm.ExitFailure(err, "WND"))
}

func TestWatchOnlyCannotStake(t *testing.T) {
	e := newEnv(t)
	m := wallet.NewManager(wallet.WithStore(wallet.NewConfigStore(e.cfg)), wallet.WithKeystore(wallet.NewInMemoryKeystore()))
	require.NoError(t, m.AddWatchOnly("viewer", fixtures.Account.Hex()))
	svc := farm.New(e.cfg, connector.New(e.cfg, m), price.Static{}, "viewer")
	defer svc.Close()

	_, err := svc.Connect(context.Background())
	require.NoError(t, err)
	_, err = svc.Stake(context.Background(), fixtures.Ether(1))
	require.Error(t, err)
	assert.Equal(t, "This wallet is watch-only and cannot stake.", farm.StakeFailure(err))
}

// ---------------------------------------------------------------------------
// polling
// ---------------------------------------------------------------------------

func TestWatchPolls(t *testing.T) {
	e := newEnv(t)
	e.connect(t)

	ctx, cancel := context.WithCancel(context.Background())
	var got atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- e.svc.Watch(ctx, 10*time.Millisecond, func(s *portfolio.Snapshot, err error) {
			if err == nil {
				got.Add(1)
			}
		})
	}()

	require.Eventually(t, func() bool { return got.Load() >= 2 }, 3*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestHiddenStakeFallsBackToZero(t *testing.T) {
	e := newEnv(t)
	e.node.HideStakes()
	e.connect(t)

	snap, err := e.svc.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Staked.Sign())
	assert.Equal(t, portfolio.SourceNone, snap.StakeSource)
}

func TestHiddenStakeUsesPresumedTable(t *testing.T) {
	e := newEnv(t)
	e.node.HideStakes()
	e.cfg.PresumedStakes = map[string]string{fixtures.Account.Hex(): "1.0"}
	e.connect(t)

	snap, err := e.svc.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Staked.Cmp(fixtures.Ether(1)))
	assert.Equal(t, portfolio.SourcePresumed, snap.StakeSource)
}

// ---------------------------------------------------------------------------
// messages
// ---------------------------------------------------------------------------

func TestFailureMessages(t *testing.T) {
	assert.Equal(t, farm.StakeFailed, farm.StakeFailure(errors.New("nonce too low")))
	assert.Equal(t, "Please enter a valid amount.", farm.StakeFailure(portfolio.ErrInvalidAmount))
	assert.Equal(t, "Withdrawal failed. Error: insufficient funds for gas",
		farm.ExitFailure(errors.New("insufficient funds for gas"), "WND"))
	assert.Equal(t, "Withdrawal failed. Please make sure you have PAS staked and try again.",
		farm.ExitFailure(errors.New("execution reverted"), "PAS"))
}
